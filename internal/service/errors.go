package service

import (
	"errors"
	"fmt"

	"github.com/examdrive/examdrive-backend/internal/model"
	"github.com/examdrive/examdrive-backend/internal/repository"
)

// ErrorKind classifies domain failures so callers can decide how to react.
type ErrorKind string

const (
	// KindPrecondition means a state-machine guard failed. Never retried.
	KindPrecondition ErrorKind = "precondition_violation"
	// KindConfiguration means the drive lacks timing data and needs an administrative fix.
	KindConfiguration ErrorKind = "configuration_error"
	KindNotFound      ErrorKind = "not_found"
	// KindConflict means a concurrent writer held the record. The caller may retry.
	KindConflict ErrorKind = "concurrency_conflict"
)

// DomainError is a classified failure with a stable reason code.
type DomainError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *DomainError) Error() string { return e.Message }

func precondition(code, msg string) *DomainError {
	return &DomainError{Kind: KindPrecondition, Code: code, Message: msg}
}

// Window and drive lifecycle errors.
var (
	ErrAlreadyActivated    = precondition("ALREADY_ACTIVATED", "exam window has already been started")
	ErrNotApproved         = precondition("NOT_APPROVED", "drive is not approved")
	ErrNotActivated        = precondition("NOT_ACTIVATED", "exam window has not been started")
	ErrAlreadyEnded        = precondition("ALREADY_ENDED", "exam window has already ended")
	ErrAlreadySuspended    = precondition("ALREADY_SUSPENDED", "drive is already suspended")
	ErrNotSuspended        = precondition("NOT_SUSPENDED", "only suspended drives can be reactivated")
	ErrDriveSuspended      = precondition("DRIVE_SUSPENDED", "drive has been suspended")
	ErrNotDraft            = precondition("NOT_DRAFT", "drive can only be changed while in draft")
	ErrNotAwaitingReview   = precondition("NOT_AWAITING_REVIEW", "drive is not awaiting review")
	ErrDriveHasNoQuestions = precondition("DRIVE_HAS_NO_QUESTIONS", "drive has no questions")
	ErrDriveHasNoStudents  = precondition("DRIVE_HAS_NO_STUDENTS", "drive has no students")
	ErrInvalidExamDuration = precondition("INVALID_EXAM_DURATION", "exam duration must be shorter than the window")
	ErrInvalidWindow       = precondition("INVALID_WINDOW", "window end must be after window start")
	ErrWindowAlreadyOpened = precondition("WINDOW_ALREADY_OPENED", "roster cannot change after the window opened")
	ErrDuplicateStudent    = precondition("DUPLICATE_STUDENT", "a student with this email is already on the roster")

	ErrWindowNotConfigured = &DomainError{Kind: KindConfiguration, Code: "WINDOW_NOT_CONFIGURED", Message: "exam window times are not configured"}
	ErrDurationNotSet      = &DomainError{Kind: KindConfiguration, Code: "DURATION_NOT_CONFIGURED", Message: "exam duration is not configured"}
)

// Session errors.
var (
	ErrAlreadyStarted       = precondition("ALREADY_STARTED", "exam already started")
	ErrAlreadySubmitted     = precondition("ALREADY_SUBMITTED", "exam already submitted")
	ErrNotStarted           = precondition("NOT_STARTED", "exam not started yet")
	ErrDisqualified         = precondition("DISQUALIFIED", "student has been disqualified")
	ErrWindowNotOpenYet     = precondition("WINDOW_NOT_OPEN_YET", "exam window has not opened yet")
	ErrWindowClosed         = precondition("WINDOW_CLOSED", "exam window has closed")
	ErrNoQuestions          = precondition("NO_QUESTIONS", "no questions found for this drive")
	ErrNotSubmitted         = precondition("NOT_SUBMITTED", "exam not submitted yet")
	ErrInvalidViolationKind = precondition("INVALID_VIOLATION_KIND", "unrecognized violation type")
)

var (
	ErrDriveNotFound    = &DomainError{Kind: KindNotFound, Code: "DRIVE_NOT_FOUND", Message: "drive not found"}
	ErrStudentNotFound  = &DomainError{Kind: KindNotFound, Code: "STUDENT_NOT_FOUND", Message: "student not found"}
	ErrOperatorNotFound = &DomainError{Kind: KindNotFound, Code: "OPERATOR_NOT_FOUND", Message: "operator not found"}

	ErrConflict = &DomainError{Kind: KindConflict, Code: "CONCURRENT_UPDATE", Message: "record is being modified by another request, retry"}
)

// StateError carries the state observed when a guard failed.
type StateError struct {
	Err          *DomainError
	DriveStatus  model.DriveStatus
	SessionState model.SessionState
}

func (e *StateError) Error() string {
	switch {
	case e.SessionState != "" && e.DriveStatus != "":
		return fmt.Sprintf("%s (session %s, drive %s)", e.Err.Message, e.SessionState, e.DriveStatus)
	case e.SessionState != "":
		return fmt.Sprintf("%s (session %s)", e.Err.Message, e.SessionState)
	case e.DriveStatus != "":
		return fmt.Sprintf("%s (drive %s)", e.Err.Message, e.DriveStatus)
	}
	return e.Err.Message
}

func (e *StateError) Unwrap() error { return e.Err }

func driveStateErr(err *DomainError, d *model.Drive) error {
	return &StateError{Err: err, DriveStatus: d.Status}
}

func sessionStateErr(err *DomainError, s *model.Student) error {
	return &StateError{Err: err, SessionState: s.State}
}

// AsDomainError extracts the classified error from a chain.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// storeErr maps repository sentinels to domain errors. notFound is used for
// lookup misses; other errors are wrapped with op.
func storeErr(op string, err error, notFound *DomainError) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return notFound
	case errors.Is(err, repository.ErrConflict):
		return ErrConflict
	case errors.Is(err, repository.ErrDuplicate):
		return ErrDuplicateStudent
	}
	if _, ok := AsDomainError(err); ok {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
