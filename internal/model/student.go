package model

import "time"

// SessionState is the state of a student's exam session.
type SessionState string

const (
	SessionNotStarted   SessionState = "NOT_STARTED"
	SessionInProgress   SessionState = "IN_PROGRESS"
	SessionSubmitted    SessionState = "SUBMITTED"
	SessionDisqualified SessionState = "DISQUALIFIED"
)

// Terminal reports whether no further exam operation is allowed in s.
func (s SessionState) Terminal() bool {
	return s == SessionSubmitted || s == SessionDisqualified
}

// Student is one roster entry of a drive together with its exam session.
type Student struct {
	ID               int64  `json:"id"`
	DriveID          int64  `json:"drive_id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	RollNumber       string `json:"roll_number,omitempty"`
	Phone            string `json:"phone,omitempty"`
	CollegeName      string `json:"college_name,omitempty"`
	StudentGroupName string `json:"student_group_name,omitempty"`
	AccessToken      string `json:"-"`

	State           SessionState `json:"session_state"`
	QuestionOrder   []int64      `json:"question_order,omitempty"`
	ExamStartedAt   *time.Time   `json:"exam_started_at,omitempty"`
	ExamSubmittedAt *time.Time   `json:"exam_submitted_at,omitempty"`

	Score      *int `json:"score,omitempty"`
	TotalMarks *int `json:"total_marks,omitempty"`

	ViolationDetails       *ViolationCounts `json:"violation_details,omitempty"`
	TotalViolations        int              `json:"total_violations"`
	IsDisqualified         bool             `json:"is_disqualified"`
	DisqualificationReason *string          `json:"disqualification_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ExpectedEnd returns exam_started_at + duration, or nil before start.
// It is derived on every call and never stored.
func (s *Student) ExpectedEnd(duration time.Duration) *time.Time {
	if s.ExamStartedAt == nil {
		return nil
	}
	end := s.ExamStartedAt.Add(duration)
	return &end
}

// Begin moves a not-started session into progress.
func (s *Student) Begin(order []int64, now time.Time) {
	s.State = SessionInProgress
	s.QuestionOrder = order
	s.ExamStartedAt = &now
	s.ViolationDetails = &ViolationCounts{}
	s.TotalViolations = 0
}

// Finish records a graded submission.
func (s *Student) Finish(score, totalMarks int, now time.Time) {
	s.State = SessionSubmitted
	s.Score = &score
	s.TotalMarks = &totalMarks
	s.ExamSubmittedAt = &now
}

// Cutoff stamps the submission time without grading. Score and total marks
// keep whatever value they held.
func (s *Student) Cutoff(now time.Time) {
	s.State = SessionSubmitted
	s.ExamSubmittedAt = &now
}

// Disqualify ends the session with a forced zero score.
func (s *Student) Disqualify(reason string, now time.Time) {
	zero, zeroTotal := 0, 0
	s.State = SessionDisqualified
	s.IsDisqualified = true
	s.DisqualificationReason = &reason
	s.ExamSubmittedAt = &now
	s.Score = &zero
	s.TotalMarks = &zeroTotal
	if s.ViolationDetails != nil {
		s.TotalViolations = s.ViolationDetails.Total()
	} else {
		s.TotalViolations = 0
	}
}

// ResetSession clears every timing, scoring and violation field while
// keeping the roster identity.
func (s *Student) ResetSession() {
	s.State = SessionNotStarted
	s.QuestionOrder = nil
	s.ExamStartedAt = nil
	s.ExamSubmittedAt = nil
	s.Score = nil
	s.TotalMarks = nil
	s.ViolationDetails = nil
	s.TotalViolations = 0
	s.IsDisqualified = false
	s.DisqualificationReason = nil
}

// StatusLabel is the human-facing session label used by result listings.
func (s *Student) StatusLabel() string {
	switch s.State {
	case SessionDisqualified:
		return "Disqualified"
	case SessionSubmitted:
		return "Submitted"
	case SessionInProgress:
		return "In Progress"
	}
	return "Not Started"
}

// AddStudentRequest is one roster entry in a bulk add.
type AddStudentRequest struct {
	Name             string `json:"name" binding:"required,min=2,max=200"`
	Email            string `json:"email" binding:"required,email,max=255"`
	RollNumber       string `json:"roll_number" binding:"omitempty,max=100"`
	Phone            string `json:"phone" binding:"omitempty,max=50"`
	CollegeName      string `json:"college_name" binding:"omitempty,max=255"`
	StudentGroupName string `json:"student_group_name" binding:"omitempty,max=255"`
}

// AddStudentsRequest is the payload for uploading a drive roster.
type AddStudentsRequest struct {
	Students []AddStudentRequest `json:"students" binding:"required,min=1,dive"`
}

// RosterEntry is a newly added student as returned to the operator who
// uploaded the roster. It is the only place the access token is exposed.
type RosterEntry struct {
	Student
	AccessToken string `json:"access_token"`
}

// NewRosterEntries pairs students with their access tokens.
func NewRosterEntries(students []Student) []RosterEntry {
	out := make([]RosterEntry, len(students))
	for i, st := range students {
		out[i] = RosterEntry{Student: st, AccessToken: st.AccessToken}
	}
	return out
}

// StudentLoginRequest is the payload for student authentication.
type StudentLoginRequest struct {
	Email       string `json:"email" binding:"required,email"`
	AccessToken string `json:"access_token" binding:"required,uuid"`
}
