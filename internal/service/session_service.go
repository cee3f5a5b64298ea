package service

import (
	"context"
	"fmt"
	"time"

	"github.com/examdrive/examdrive-backend/internal/events"
	"github.com/examdrive/examdrive-backend/internal/metrics"
	"github.com/examdrive/examdrive-backend/internal/model"
	"github.com/examdrive/examdrive-backend/internal/repository"
	"github.com/examdrive/examdrive-backend/internal/schedule"
	"github.com/examdrive/examdrive-backend/internal/scoring"
	"github.com/rs/zerolog"
)

// SessionService drives a student's exam session from start to submission.
type SessionService struct {
	drives    repository.DriveStore
	students  repository.StudentStore
	questions repository.QuestionLister
	shuffler  Shuffler
	events    events.Publisher
	now       Clock
	log       zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	drives repository.DriveStore,
	students repository.StudentStore,
	questions repository.QuestionLister,
	shuffler Shuffler,
	pub events.Publisher,
	now Clock,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		drives:    drives,
		students:  students,
		questions: questions,
		shuffler:  shuffler,
		events:    pub,
		now:       now,
		log:       log.With().Str("component", "session_service").Logger(),
	}
}

// StartResult is returned when a session starts.
type StartResult struct {
	ExamStartedAt       time.Time `json:"exam_started_at"`
	ExpectedEnd         time.Time `json:"expected_end"`
	ExamDurationMinutes int       `json:"exam_duration_minutes"`
	QuestionOrder       []int64   `json:"question_order"`
}

// Paper is the question set shown to a student during the exam.
type Paper struct {
	Questions   []model.QuestionForStudent `json:"questions"`
	TotalMarks  int                        `json:"total_marks"`
	ExpectedEnd time.Time                  `json:"expected_end"`
}

// SubmitResult is returned after a graded submission.
type SubmitResult struct {
	Score       int       `json:"score"`
	TotalMarks  int       `json:"total_marks"`
	Percentage  float64   `json:"percentage"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Result is a student's final outcome. Score, TotalMarks and Percentage
// are nil when the session was closed by the window cutoff without a
// submission.
type Result struct {
	Graded                 bool                   `json:"graded"`
	Score                  *int                   `json:"score"`
	TotalMarks             *int                   `json:"total_marks"`
	Percentage             *float64               `json:"percentage"`
	SubmittedAt            *time.Time             `json:"submitted_at"`
	IsDisqualified         bool                   `json:"is_disqualified"`
	DisqualificationReason *string                `json:"disqualification_reason"`
	TotalViolations        int                    `json:"total_violations"`
	ViolationDetails       *model.ViolationCounts `json:"violation_details"`
}

// SessionState is the derived timing view of a session at one instant.
type SessionState struct {
	State            model.SessionState `json:"session_state"`
	DriveStatus      model.DriveStatus  `json:"drive_status"`
	ExamStartedAt    *time.Time         `json:"exam_started_at"`
	ExamSubmittedAt  *time.Time         `json:"exam_submitted_at"`
	ExpectedEnd      *time.Time         `json:"expected_end"`
	Deadline         *time.Time         `json:"deadline"`
	RemainingSeconds int                `json:"remaining_seconds"`
	Expired          bool               `json:"expired"`
}

// StudentDrive is the student-facing view of a drive.
type StudentDrive struct {
	ID                  int64             `json:"id"`
	Title               string            `json:"title"`
	Description         string            `json:"description,omitempty"`
	Category            string            `json:"category"`
	Status              model.DriveStatus `json:"status"`
	WindowStart         *time.Time        `json:"window_start"`
	WindowEnd           *time.Time        `json:"window_end"`
	ActualWindowStart   *time.Time        `json:"actual_window_start"`
	ActualWindowEnd     *time.Time        `json:"actual_window_end"`
	ExamDurationMinutes int               `json:"exam_duration_minutes"`
	QuestionCount       int               `json:"question_count"`
	TotalMarks          int               `json:"total_marks"`
}

// Start begins the session: it checks the effective window and the drive,
// fixes a random question order and sets the start time. The expected end
// is derived from the start time and never stored.
func (s *SessionService) Start(ctx context.Context, studentID int64) (*StartResult, error) {
	var (
		res     *StartResult
		driveID int64
	)
	err := s.students.UpdateStudent(ctx, studentID, func(ctx context.Context, tx repository.StudentTx) error {
		st := tx.Student()
		if err := requireState(st, model.SessionNotStarted); err != nil {
			return err
		}
		d, err := tx.Drive(ctx)
		if err != nil {
			return err
		}
		driveID = d.ID

		now := s.now()
		w, ok := schedule.EffectiveWindow(d)
		if !ok {
			return ErrWindowNotConfigured
		}
		if now.Before(w.Start) {
			return driveStateErr(ErrWindowNotOpenYet, d)
		}
		if !now.Before(w.End) {
			return driveStateErr(ErrWindowClosed, d)
		}
		if !d.IsApproved {
			return driveStateErr(ErrNotApproved, d)
		}
		if d.Status == model.DriveStatusSuspended {
			return driveStateErr(ErrDriveSuspended, d)
		}
		if d.ExamDurationMinutes <= 0 {
			return ErrDurationNotSet
		}

		questions, err := s.questions.ListQuestions(ctx, d.ID)
		if err != nil {
			return fmt.Errorf("list questions: %w", err)
		}
		if len(questions) == 0 {
			return ErrNoQuestions
		}
		order := make([]int64, len(questions))
		for i := range questions {
			order[i] = questions[i].ID
		}
		if err := s.shuffler.Shuffle(order); err != nil {
			return err
		}

		st.Begin(order, now)
		res = &StartResult{
			ExamStartedAt:       now,
			ExpectedEnd:         *st.ExpectedEnd(d.ExamDuration()),
			ExamDurationMinutes: d.ExamDurationMinutes,
			QuestionOrder:       append([]int64(nil), order...),
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("start exam", err, ErrStudentNotFound)
	}

	metrics.SessionsStarted.Inc()
	s.log.Info().
		Int64("drive_id", driveID).
		Int64("student_id", studentID).
		Time("expected_end", res.ExpectedEnd).
		Msg("Exam started")
	s.events.Publish(ctx, events.Event{
		Type:      events.TypeSessionStarted,
		DriveID:   driveID,
		StudentID: studentID,
		At:        res.ExamStartedAt,
	})
	return res, nil
}

// Questions returns the paper in the student's fixed order without answer keys.
func (s *SessionService) Questions(ctx context.Context, studentID int64) (*Paper, error) {
	st, err := s.students.GetStudent(ctx, studentID)
	if err != nil {
		return nil, storeErr("get student", err, ErrStudentNotFound)
	}
	if err := requireState(st, model.SessionInProgress); err != nil {
		return nil, err
	}
	d, err := s.drives.GetDrive(ctx, st.DriveID)
	if err != nil {
		return nil, storeErr("get drive", err, ErrDriveNotFound)
	}
	questions, err := s.questions.ListQuestions(ctx, st.DriveID)
	if err != nil {
		return nil, storeErr("list questions", err, ErrDriveNotFound)
	}

	byID := make(map[int64]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}
	ordered := make([]model.QuestionForStudent, 0, len(st.QuestionOrder))
	for _, id := range st.QuestionOrder {
		if q, ok := byID[id]; ok {
			ordered = append(ordered, q.ForStudent())
		}
	}

	return &Paper{
		Questions:   ordered,
		TotalMarks:  scoring.TotalMarks(questions),
		ExpectedEnd: *st.ExpectedEnd(d.ExamDuration()),
	}, nil
}

// Submit grades the answers against the whole paper and closes the session.
// Answers to unknown questions are ignored; a repeated question keeps its
// last answer.
func (s *SessionService) Submit(ctx context.Context, studentID int64, answers []model.Answer) (*SubmitResult, error) {
	var (
		res     *SubmitResult
		driveID int64
	)
	err := s.students.UpdateStudent(ctx, studentID, func(ctx context.Context, tx repository.StudentTx) error {
		st := tx.Student()
		if err := requireState(st, model.SessionInProgress); err != nil {
			return err
		}
		driveID = st.DriveID

		questions, err := s.questions.ListQuestions(ctx, st.DriveID)
		if err != nil {
			return fmt.Errorf("list questions: %w", err)
		}
		byID := make(map[int64]*model.Question, len(questions))
		for i := range questions {
			byID[questions[i].ID] = &questions[i]
		}

		now := s.now()
		responses := gradeAnswers(st, answers, byID, now)
		if err := tx.InsertResponses(ctx, responses); err != nil {
			return err
		}

		score, total := scoring.Aggregate(responses, questions)
		st.Finish(score, total, now)
		res = &SubmitResult{
			Score:       score,
			TotalMarks:  total,
			Percentage:  scoring.Percentage(score, total),
			SubmittedAt: now,
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("submit exam", err, ErrStudentNotFound)
	}

	metrics.Submissions.WithLabelValues("voluntary").Inc()
	s.log.Info().
		Int64("drive_id", driveID).
		Int64("student_id", studentID).
		Int("score", res.Score).
		Int("total_marks", res.TotalMarks).
		Msg("Exam submitted")
	s.events.Publish(ctx, events.Event{
		Type:      events.TypeSubmitted,
		DriveID:   driveID,
		StudentID: studentID,
		At:        res.SubmittedAt,
	})
	return res, nil
}

func gradeAnswers(st *model.Student, answers []model.Answer, byID map[int64]*model.Question, now time.Time) []model.StudentResponse {
	last := make(map[int64]int, len(answers))
	for i, a := range answers {
		last[a.QuestionID] = i
	}

	responses := make([]model.StudentResponse, 0, len(last))
	for i, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok || last[a.QuestionID] != i {
			continue
		}
		responses = append(responses, model.StudentResponse{
			StudentID:       st.ID,
			QuestionID:      a.QuestionID,
			DriveID:         st.DriveID,
			SelectedOption:  a.SelectedOption,
			IsCorrect:       scoring.Grade(a.SelectedOption, q),
			MarkedForReview: a.MarkedForReview,
			AnsweredAt:      now,
		})
	}
	return responses
}

// Result returns the outcome of a finished session. Total marks are
// recomputed from the current paper. A session closed by the window cutoff
// without grading stays ungraded; disqualified sessions report zero of zero.
func (s *SessionService) Result(ctx context.Context, studentID int64) (*Result, error) {
	st, err := s.students.GetStudent(ctx, studentID)
	if err != nil {
		return nil, storeErr("get student", err, ErrStudentNotFound)
	}
	if !st.State.Terminal() {
		return nil, sessionStateErr(ErrNotSubmitted, st)
	}

	res := &Result{
		SubmittedAt:            st.ExamSubmittedAt,
		IsDisqualified:         st.IsDisqualified,
		DisqualificationReason: st.DisqualificationReason,
		TotalViolations:        st.TotalViolations,
		ViolationDetails:       st.ViolationDetails,
	}
	switch {
	case st.State == model.SessionDisqualified:
		res.grade(0, 0)
		return res, nil
	case st.Score == nil:
		return res, nil
	}

	questions, err := s.questions.ListQuestions(ctx, st.DriveID)
	if err != nil {
		return nil, storeErr("list questions", err, ErrDriveNotFound)
	}
	res.grade(*st.Score, scoring.TotalMarks(questions))
	return res, nil
}

func (r *Result) grade(score, totalMarks int) {
	pct := scoring.Percentage(score, totalMarks)
	r.Graded = true
	r.Score = &score
	r.TotalMarks = &totalMarks
	r.Percentage = &pct
}

// State derives the timing view of a session at the current instant.
// Expiry is detected here, on read, and has no side effect.
func (s *SessionService) State(ctx context.Context, studentID int64) (*SessionState, error) {
	st, err := s.students.GetStudent(ctx, studentID)
	if err != nil {
		return nil, storeErr("get student", err, ErrStudentNotFound)
	}
	d, err := s.drives.GetDrive(ctx, st.DriveID)
	if err != nil {
		return nil, storeErr("get drive", err, ErrDriveNotFound)
	}

	now := s.now()
	out := &SessionState{
		State:           st.State,
		DriveStatus:     schedule.ResolveStatus(d, now),
		ExamStartedAt:   st.ExamStartedAt,
		ExamSubmittedAt: st.ExamSubmittedAt,
		ExpectedEnd:     st.ExpectedEnd(d.ExamDuration()),
	}
	if deadline, ok := schedule.Deadline(d, st); ok {
		out.Deadline = &deadline
		if left := deadline.Sub(now); left > 0 {
			out.RemainingSeconds = int(left / time.Second)
		}
		out.Expired = st.State == model.SessionInProgress && !now.Before(deadline)
	}
	return out, nil
}

// Drive returns the student-facing view of the student's drive.
func (s *SessionService) Drive(ctx context.Context, studentID int64) (*StudentDrive, error) {
	st, err := s.students.GetStudent(ctx, studentID)
	if err != nil {
		return nil, storeErr("get student", err, ErrStudentNotFound)
	}
	d, err := s.drives.GetDrive(ctx, st.DriveID)
	if err != nil {
		return nil, storeErr("get drive", err, ErrDriveNotFound)
	}
	questions, err := s.questions.ListQuestions(ctx, d.ID)
	if err != nil {
		return nil, storeErr("list questions", err, ErrDriveNotFound)
	}
	return &StudentDrive{
		ID:                  d.ID,
		Title:               d.Title,
		Description:         d.Description,
		Category:            d.Category,
		Status:              schedule.ResolveStatus(d, s.now()),
		WindowStart:         d.WindowStart,
		WindowEnd:           d.WindowEnd,
		ActualWindowStart:   d.ActualWindowStart,
		ActualWindowEnd:     d.ActualWindowEnd,
		ExamDurationMinutes: d.ExamDurationMinutes,
		QuestionCount:       len(questions),
		TotalMarks:          scoring.TotalMarks(questions),
	}, nil
}
