package service

import (
	"context"

	"github.com/examdrive/examdrive-backend/internal/events"
	"github.com/examdrive/examdrive-backend/internal/metrics"
	"github.com/examdrive/examdrive-backend/internal/model"
	"github.com/examdrive/examdrive-backend/internal/repository"
	"github.com/rs/zerolog"
)

// ViolationService accumulates anti-cheat violations and disqualifies.
// It never disqualifies on its own: thresholds are reported for the client
// to act on.
type ViolationService struct {
	students repository.StudentStore
	events   events.Publisher
	now      Clock
	log      zerolog.Logger
}

// NewViolationService creates a new ViolationService.
func NewViolationService(students repository.StudentStore, pub events.Publisher, now Clock, log zerolog.Logger) *ViolationService {
	return &ViolationService{
		students: students,
		events:   pub,
		now:      now,
		log:      log.With().Str("component", "violation_service").Logger(),
	}
}

// Tally is the violation state after recording one occurrence.
type Tally struct {
	CurrentViolations model.ViolationCounts `json:"current_violations"`
	TotalViolations   int                   `json:"total_violations"`
	Count             int                   `json:"count"`
	Threshold         *int                  `json:"threshold"`
	ThresholdReached  bool                  `json:"threshold_reached"`
	IsDisqualified    bool                  `json:"is_disqualified"`
}

// DisqualifyResult is returned after a disqualification.
type DisqualifyResult struct {
	DisqualificationReason string `json:"disqualification_reason"`
	TotalViolations        int    `json:"total_violations"`
}

// Record adds one violation of kind to an in-progress session.
func (s *ViolationService) Record(ctx context.Context, studentID int64, kind model.ViolationKind) (*Tally, error) {
	var (
		tally   *Tally
		driveID int64
	)
	err := s.students.UpdateStudent(ctx, studentID, func(ctx context.Context, tx repository.StudentTx) error {
		st := tx.Student()
		if err := requireState(st, model.SessionInProgress); err != nil {
			return err
		}
		if st.ViolationDetails == nil {
			st.ViolationDetails = &model.ViolationCounts{}
		}
		count, ok := st.ViolationDetails.Increment(kind)
		if !ok {
			return ErrInvalidViolationKind
		}
		st.TotalViolations = st.ViolationDetails.Total()
		driveID = st.DriveID

		tally = &Tally{
			CurrentViolations: *st.ViolationDetails,
			TotalViolations:   st.TotalViolations,
			Count:             count,
		}
		if limit, limited := kind.Threshold(); limited {
			tally.Threshold = &limit
			tally.ThresholdReached = count >= limit
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("record violation", err, ErrStudentNotFound)
	}

	metrics.Violations.WithLabelValues(string(kind)).Inc()
	s.log.Info().
		Int64("drive_id", driveID).
		Int64("student_id", studentID).
		Str("violation_type", string(kind)).
		Int("count", tally.Count).
		Msg("Violation recorded")
	counts := tally.CurrentViolations
	s.events.Publish(ctx, events.Event{
		Type:            events.TypeViolation,
		DriveID:         driveID,
		StudentID:       studentID,
		ViolationType:   kind,
		Counts:          &counts,
		TotalViolations: tally.TotalViolations,
		At:              s.now(),
	})
	return tally, nil
}

// Disqualify ends an in-progress session with a forced zero score. The
// per-kind counters are left as recorded; the total is recomputed from them.
func (s *ViolationService) Disqualify(ctx context.Context, studentID int64, kind model.ViolationKind, reason string) (*DisqualifyResult, error) {
	if !kind.Valid() {
		return nil, ErrInvalidViolationKind
	}

	var (
		res     *DisqualifyResult
		driveID int64
		now     = s.now()
	)
	err := s.students.UpdateStudent(ctx, studentID, func(ctx context.Context, tx repository.StudentTx) error {
		st := tx.Student()
		if err := requireState(st, model.SessionInProgress); err != nil {
			return err
		}
		st.Disqualify(reason, now)
		driveID = st.DriveID
		res = &DisqualifyResult{
			DisqualificationReason: reason,
			TotalViolations:        st.TotalViolations,
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("disqualify student", err, ErrStudentNotFound)
	}

	metrics.Disqualifications.Inc()
	s.log.Warn().
		Int64("drive_id", driveID).
		Int64("student_id", studentID).
		Str("violation_type", string(kind)).
		Str("reason", reason).
		Msg("Student disqualified")
	s.events.Publish(ctx, events.Event{
		Type:            events.TypeDisqualified,
		DriveID:         driveID,
		StudentID:       studentID,
		ViolationType:   kind,
		Reason:          reason,
		TotalViolations: res.TotalViolations,
		At:              now,
	})
	return res, nil
}
