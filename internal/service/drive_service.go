package service

import (
	"context"
	"strings"
	"time"

	"github.com/examdrive/examdrive-backend/internal/model"
	"github.com/examdrive/examdrive-backend/internal/repository"
	"github.com/examdrive/examdrive-backend/internal/schedule"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultQuestionPoints = 1

// DriveService handles drive authoring and review.
type DriveService struct {
	drives   repository.DriveStore
	students repository.StudentStore
	now      Clock
	log      zerolog.Logger
}

// NewDriveService creates a new DriveService.
func NewDriveService(drives repository.DriveStore, students repository.StudentStore, now Clock, log zerolog.Logger) *DriveService {
	return &DriveService{
		drives:   drives,
		students: students,
		now:      now,
		log:      log.With().Str("component", "drive_service").Logger(),
	}
}

// DriveDetail is a drive with its resolved status and content counts.
type DriveDetail struct {
	model.Drive
	ResolvedStatus model.DriveStatus `json:"resolved_status"`
	QuestionCount  int               `json:"question_count"`
	StudentCount   int               `json:"student_count"`
}

// Create stores a new draft drive. The scheduled window length is kept as
// the intended window duration used when the window is opened.
func (s *DriveService) Create(ctx context.Context, req *model.CreateDriveRequest) (*model.Drive, error) {
	start, end := req.WindowStart.UTC(), req.WindowEnd.UTC()
	if !end.After(start) {
		return nil, ErrInvalidWindow
	}
	windowMinutes := int(end.Sub(start) / time.Minute)
	if req.ExamDurationMinutes >= windowMinutes {
		return nil, ErrInvalidExamDuration
	}

	now := s.now()
	d := &model.Drive{
		Title:                 strings.TrimSpace(req.Title),
		Description:           req.Description,
		Category:              req.Category,
		Status:                model.DriveStatusDraft,
		WindowStart:           &start,
		WindowEnd:             &end,
		ExamDurationMinutes:   req.ExamDurationMinutes,
		WindowDurationMinutes: &windowMinutes,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := s.drives.CreateDrive(ctx, d); err != nil {
		return nil, storeErr("create drive", err, ErrDriveNotFound)
	}

	s.log.Info().Int64("drive_id", d.ID).Str("title", d.Title).Msg("Drive created")
	return d, nil
}

// Get returns a drive with its resolved status.
func (s *DriveService) Get(ctx context.Context, driveID int64) (*DriveDetail, error) {
	d, err := s.drives.GetDrive(ctx, driveID)
	if err != nil {
		return nil, storeErr("get drive", err, ErrDriveNotFound)
	}
	questions, err := s.drives.ListQuestions(ctx, driveID)
	if err != nil {
		return nil, storeErr("list questions", err, ErrDriveNotFound)
	}
	count, err := s.students.CountStudents(ctx, driveID)
	if err != nil {
		return nil, storeErr("count students", err, ErrDriveNotFound)
	}
	return &DriveDetail{
		Drive:          *d,
		ResolvedStatus: schedule.ResolveStatus(d, s.now()),
		QuestionCount:  len(questions),
		StudentCount:   count,
	}, nil
}

// AddQuestions appends questions to a draft drive.
func (s *DriveService) AddQuestions(ctx context.Context, driveID int64, req *model.AddQuestionsRequest) ([]model.Question, error) {
	now := s.now()
	questions := make([]model.Question, 0, len(req.Questions))
	for _, q := range req.Questions {
		points := q.Points
		if points <= 0 {
			points = defaultQuestionPoints
		}
		questions = append(questions, model.Question{
			DriveID:       driveID,
			QuestionText:  q.QuestionText,
			OptionA:       q.OptionA,
			OptionB:       q.OptionB,
			OptionC:       q.OptionC,
			OptionD:       q.OptionD,
			CorrectAnswer: strings.TrimSpace(q.CorrectAnswer),
			Points:        points,
			CreatedAt:     now,
		})
	}

	err := s.drives.UpdateDrive(ctx, driveID, func(ctx context.Context, tx repository.DriveTx) error {
		d := tx.Drive()
		if d.Status != model.DriveStatusDraft {
			return driveStateErr(ErrNotDraft, d)
		}
		d.UpdatedAt = now
		return tx.InsertQuestions(ctx, questions)
	})
	if err != nil {
		return nil, storeErr("add questions", err, ErrDriveNotFound)
	}

	s.log.Info().Int64("drive_id", driveID).Int("count", len(questions)).Msg("Questions added")
	return questions, nil
}

// AddStudents uploads roster entries, each with a fresh access token.
// The roster is closed once the window has been opened.
func (s *DriveService) AddStudents(ctx context.Context, driveID int64, req *model.AddStudentsRequest) ([]model.Student, error) {
	now := s.now()
	seen := make(map[string]struct{}, len(req.Students))
	students := make([]model.Student, 0, len(req.Students))
	for _, in := range req.Students {
		email := strings.ToLower(strings.TrimSpace(in.Email))
		if _, dup := seen[email]; dup {
			return nil, ErrDuplicateStudent
		}
		seen[email] = struct{}{}
		students = append(students, model.Student{
			DriveID:          driveID,
			Name:             strings.TrimSpace(in.Name),
			Email:            email,
			RollNumber:       in.RollNumber,
			Phone:            in.Phone,
			CollegeName:      in.CollegeName,
			StudentGroupName: in.StudentGroupName,
			AccessToken:      uuid.NewString(),
			State:            model.SessionNotStarted,
			CreatedAt:        now,
		})
	}

	err := s.drives.UpdateDrive(ctx, driveID, func(ctx context.Context, tx repository.DriveTx) error {
		d := tx.Drive()
		switch {
		case d.Status == model.DriveStatusRejected:
			return driveStateErr(ErrNotApproved, d)
		case d.Status == model.DriveStatusSuspended:
			return driveStateErr(ErrDriveSuspended, d)
		case d.ActualWindowStart != nil:
			return driveStateErr(ErrWindowAlreadyOpened, d)
		}
		return tx.InsertStudents(ctx, students)
	})
	if err != nil {
		return nil, storeErr("add students", err, ErrDriveNotFound)
	}

	s.log.Info().Int64("drive_id", driveID).Int("count", len(students)).Msg("Students added")
	return students, nil
}

// Submit sends a draft drive for admin review.
func (s *DriveService) Submit(ctx context.Context, driveID int64) (*model.Drive, error) {
	var out *model.Drive
	err := s.drives.UpdateDrive(ctx, driveID, func(ctx context.Context, tx repository.DriveTx) error {
		d := tx.Drive()
		if d.Status != model.DriveStatusDraft {
			return driveStateErr(ErrNotDraft, d)
		}
		questions, err := tx.CountQuestions(ctx)
		if err != nil {
			return err
		}
		if questions == 0 {
			return ErrDriveHasNoQuestions
		}
		students, err := tx.CountStudents(ctx)
		if err != nil {
			return err
		}
		if students == 0 {
			return ErrDriveHasNoStudents
		}
		d.Status = model.DriveStatusSubmitted
		d.UpdatedAt = s.now()
		out = d
		return nil
	})
	if err != nil {
		return nil, storeErr("submit drive", err, ErrDriveNotFound)
	}

	s.log.Info().Int64("drive_id", driveID).Msg("Drive submitted for review")
	return out, nil
}

// Review approves or rejects a submitted drive.
func (s *DriveService) Review(ctx context.Context, driveID int64, approve bool, notes string) (*model.Drive, error) {
	var out *model.Drive
	err := s.drives.UpdateDrive(ctx, driveID, func(ctx context.Context, tx repository.DriveTx) error {
		d := tx.Drive()
		if d.Status != model.DriveStatusSubmitted {
			return driveStateErr(ErrNotAwaitingReview, d)
		}
		d.IsApproved = approve
		d.AdminNotes = notes
		if approve {
			d.Status = model.DriveStatusApproved
		} else {
			d.Status = model.DriveStatusRejected
		}
		d.UpdatedAt = s.now()
		out = d
		return nil
	})
	if err != nil {
		return nil, storeErr("review drive", err, ErrDriveNotFound)
	}

	s.log.Info().Int64("drive_id", driveID).Bool("approved", approve).Msg("Drive reviewed")
	return out, nil
}
