package service

import (
	"context"
	"time"

	"github.com/examdrive/examdrive-backend/internal/events"
	"github.com/examdrive/examdrive-backend/internal/metrics"
	"github.com/examdrive/examdrive-backend/internal/model"
	"github.com/examdrive/examdrive-backend/internal/repository"
	"github.com/examdrive/examdrive-backend/internal/schedule"
	"github.com/rs/zerolog"
)

// WindowService opens, closes, suspends and reactivates drive windows.
type WindowService struct {
	drives   repository.DriveStore
	students repository.StudentStore
	events   events.Publisher
	now      Clock
	log      zerolog.Logger
}

// NewWindowService creates a new WindowService.
func NewWindowService(drives repository.DriveStore, students repository.StudentStore, pub events.Publisher, now Clock, log zerolog.Logger) *WindowService {
	return &WindowService{
		drives:   drives,
		students: students,
		events:   pub,
		now:      now,
		log:      log.With().Str("component", "window_service").Logger(),
	}
}

// ForceEndResult is returned by ForceEnd.
type ForceEndResult struct {
	Drive              *model.Drive `json:"drive"`
	AutoSubmittedCount int          `json:"auto_submitted_count"`
}

// SuspendResult is returned by Suspend.
type SuspendResult struct {
	Drive             *model.Drive `json:"drive"`
	ExamEnded         bool         `json:"exam_ended"`
	ResponsesDeleted  int64        `json:"responses_deleted"`
	StudentsPreserved int          `json:"students_preserved"`
}

// WindowReport summarises the actual window for operators.
type WindowReport struct {
	DriveID              int64              `json:"drive_id"`
	ExamState            schedule.ExamState `json:"exam_state"`
	Status               model.DriveStatus  `json:"status"`
	WindowStart          *time.Time         `json:"window_start"`
	WindowEnd            *time.Time         `json:"window_end"`
	ActualWindowStart    *time.Time         `json:"actual_window_start"`
	ActualWindowEnd      *time.Time         `json:"actual_window_end"`
	ExamDurationMinutes  int                `json:"exam_duration_minutes"`
	TimeRemainingSeconds *int               `json:"time_remaining"`
	CanStart             bool               `json:"can_start"`
	CanEnd               bool               `json:"can_end"`
	IsApproved           bool               `json:"is_approved"`
	HasStudents          bool               `json:"has_students"`
	StudentCount         int                `json:"student_count"`
}

// Activate opens the actual window now. The window stays open for the
// length chosen by schedule.WindowLength.
func (s *WindowService) Activate(ctx context.Context, driveID int64) (*model.Drive, error) {
	var out *model.Drive
	err := s.drives.UpdateDrive(ctx, driveID, func(ctx context.Context, tx repository.DriveTx) error {
		d := tx.Drive()
		if d.ActualWindowStart != nil {
			return driveStateErr(ErrAlreadyActivated, d)
		}
		if d.Status == model.DriveStatusSuspended {
			return driveStateErr(ErrDriveSuspended, d)
		}
		if !d.IsApproved {
			return driveStateErr(ErrNotApproved, d)
		}
		if d.WindowStart == nil || d.WindowEnd == nil {
			return ErrWindowNotConfigured
		}
		length, ok := schedule.WindowLength(d)
		if !ok {
			return ErrWindowNotConfigured
		}

		now := s.now()
		end := now.Add(length)
		d.ActualWindowStart = &now
		d.ActualWindowEnd = &end
		d.UpdatedAt = now
		out = d
		return nil
	})
	if err != nil {
		return nil, storeErr("activate window", err, ErrDriveNotFound)
	}

	metrics.WindowTransitions.WithLabelValues("opened").Inc()
	s.log.Info().
		Int64("drive_id", driveID).
		Time("actual_window_end", *out.ActualWindowEnd).
		Msg("Exam window opened")
	s.events.Publish(ctx, events.Event{Type: events.TypeWindowOpened, DriveID: driveID, At: *out.ActualWindowStart})
	return out, nil
}

// ForceEnd closes the window now and stamps every in-progress session as
// submitted without grading it. The drive and all students commit together.
func (s *WindowService) ForceEnd(ctx context.Context, driveID int64) (*ForceEndResult, error) {
	res := &ForceEndResult{}
	err := s.drives.UpdateDrive(ctx, driveID, func(ctx context.Context, tx repository.DriveTx) error {
		d := tx.Drive()
		if d.ActualWindowStart == nil {
			return driveStateErr(ErrNotActivated, d)
		}
		now := s.now()
		if schedule.HasEnded(d, now) {
			return driveStateErr(ErrAlreadyEnded, d)
		}

		students, err := tx.Students(ctx)
		if err != nil {
			return err
		}
		stamped := make([]*model.Student, 0, len(students))
		for _, st := range students {
			if st.State != model.SessionInProgress {
				continue
			}
			st.Cutoff(now)
			stamped = append(stamped, st)
		}
		if err := tx.SaveStudents(ctx, stamped); err != nil {
			return err
		}

		d.ActualWindowEnd = &now
		d.Status = model.DriveStatusCompleted
		d.UpdatedAt = now
		res.Drive = d
		res.AutoSubmittedCount = len(stamped)
		return nil
	})
	if err != nil {
		return nil, storeErr("force end window", err, ErrDriveNotFound)
	}

	metrics.WindowTransitions.WithLabelValues("closed").Inc()
	metrics.Submissions.WithLabelValues("window_cutoff").Add(float64(res.AutoSubmittedCount))
	s.log.Info().
		Int64("drive_id", driveID).
		Int("auto_submitted", res.AutoSubmittedCount).
		Msg("Exam window force-ended")
	s.events.Publish(ctx, events.Event{
		Type:    events.TypeWindowClosed,
		DriveID: driveID,
		Count:   res.AutoSubmittedCount,
		At:      *res.Drive.ActualWindowEnd,
	})
	return res, nil
}

// Suspend discards all exam progress of a drive while keeping its roster.
// An ongoing window is ended first.
func (s *WindowService) Suspend(ctx context.Context, driveID int64) (*SuspendResult, error) {
	res := &SuspendResult{}
	err := s.drives.UpdateDrive(ctx, driveID, func(ctx context.Context, tx repository.DriveTx) error {
		d := tx.Drive()
		if d.Status == model.DriveStatusSuspended {
			return driveStateErr(ErrAlreadySuspended, d)
		}
		now := s.now()
		res.ExamEnded = schedule.StateOf(d, now) == schedule.ExamStateOngoing

		students, err := tx.Students(ctx)
		if err != nil {
			return err
		}
		deleted, err := tx.DeleteResponses(ctx)
		if err != nil {
			return err
		}
		for _, st := range students {
			st.ResetSession()
		}
		if err := tx.SaveStudents(ctx, students); err != nil {
			return err
		}

		d.SuspendedFrom = d.Status
		d.Status = model.DriveStatusSuspended
		d.ActualWindowStart = nil
		d.ActualWindowEnd = nil
		d.UpdatedAt = now

		res.Drive = d
		res.ResponsesDeleted = deleted
		res.StudentsPreserved = len(students)
		return nil
	})
	if err != nil {
		return nil, storeErr("suspend drive", err, ErrDriveNotFound)
	}

	metrics.WindowTransitions.WithLabelValues("suspended").Inc()
	s.log.Warn().
		Int64("drive_id", driveID).
		Bool("exam_ended", res.ExamEnded).
		Int64("responses_deleted", res.ResponsesDeleted).
		Int("students_preserved", res.StudentsPreserved).
		Msg("Drive suspended")
	s.events.Publish(ctx, events.Event{Type: events.TypeDriveSuspended, DriveID: driveID, At: s.now()})
	return res, nil
}

// Reactivate lifts a suspension. Approved drives come back as approved and
// the window must be opened again; drives suspended before approval return
// to the status they were suspended from.
func (s *WindowService) Reactivate(ctx context.Context, driveID int64) (*model.Drive, error) {
	var out *model.Drive
	err := s.drives.UpdateDrive(ctx, driveID, func(ctx context.Context, tx repository.DriveTx) error {
		d := tx.Drive()
		if d.Status != model.DriveStatusSuspended {
			return driveStateErr(ErrNotSuspended, d)
		}
		d.Status = model.DriveStatusApproved
		switch d.SuspendedFrom {
		case model.DriveStatusDraft, model.DriveStatusSubmitted, model.DriveStatusRejected:
			if !d.IsApproved {
				d.Status = d.SuspendedFrom
			}
		}
		d.SuspendedFrom = ""
		d.UpdatedAt = s.now()
		out = d
		return nil
	})
	if err != nil {
		return nil, storeErr("reactivate drive", err, ErrDriveNotFound)
	}

	metrics.WindowTransitions.WithLabelValues("reactivated").Inc()
	s.log.Info().Int64("drive_id", driveID).Msg("Drive reactivated")
	return out, nil
}

// Status resolves the human-facing status of a drive at the current instant.
func (s *WindowService) Status(ctx context.Context, driveID int64) (model.DriveStatus, error) {
	d, err := s.drives.GetDrive(ctx, driveID)
	if err != nil {
		return "", storeErr("get drive", err, ErrDriveNotFound)
	}
	return schedule.ResolveStatus(d, s.now()), nil
}

// WindowStatus reports the actual window state and which operator actions apply.
func (s *WindowService) WindowStatus(ctx context.Context, driveID int64) (*WindowReport, error) {
	d, err := s.drives.GetDrive(ctx, driveID)
	if err != nil {
		return nil, storeErr("get drive", err, ErrDriveNotFound)
	}
	count, err := s.students.CountStudents(ctx, driveID)
	if err != nil {
		return nil, storeErr("count students", err, ErrDriveNotFound)
	}

	now := s.now()
	report := &WindowReport{
		DriveID:             d.ID,
		ExamState:           schedule.StateOf(d, now),
		Status:              schedule.ResolveStatus(d, now),
		WindowStart:         d.WindowStart,
		WindowEnd:           d.WindowEnd,
		ActualWindowStart:   d.ActualWindowStart,
		ActualWindowEnd:     d.ActualWindowEnd,
		ExamDurationMinutes: d.ExamDurationMinutes,
		IsApproved:          d.IsApproved,
		HasStudents:         count > 0,
		StudentCount:        count,
	}
	if left, ok := schedule.Remaining(d, now); ok {
		secs := int(left / time.Second)
		report.TimeRemainingSeconds = &secs
	}
	report.CanStart = d.IsApproved &&
		d.Status != model.DriveStatusSuspended &&
		d.ActualWindowStart == nil &&
		report.HasStudents
	report.CanEnd = d.ActualWindowStart != nil && !schedule.HasEnded(d, now)
	return report, nil
}
