package repository

import (
	"context"

	"github.com/examdrive/examdrive-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ViolationEventRepository writes the violation audit trail.
type ViolationEventRepository struct {
	pool *pgxpool.Pool
}

// NewViolationEventRepository creates a new ViolationEventRepository.
func NewViolationEventRepository(pool *pgxpool.Pool) *ViolationEventRepository {
	return &ViolationEventRepository{pool: pool}
}

var _ ViolationAudit = (*ViolationEventRepository)(nil)

var violationEventColumns = []string{
	"drive_id", "student_id", "violation_type", "disqualified", "reason", "violation_details", "occurred_at",
}

func violationEventRow(e *model.ViolationEvent) []any {
	return []any{e.DriveID, e.StudentID, e.ViolationType, e.Disqualified, e.Reason, e.Counts, e.OccurredAt}
}

// BulkInsert copies a batch of events in one round trip.
func (r *ViolationEventRepository) BulkInsert(ctx context.Context, events []model.ViolationEvent) error {
	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"violation_events"},
		violationEventColumns,
		pgx.CopyFromSlice(len(events), func(i int) ([]any, error) {
			return violationEventRow(&events[i]), nil
		}),
	)
	return mapErr(err)
}

// Insert writes a single event.
func (r *ViolationEventRepository) Insert(ctx context.Context, e *model.ViolationEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO violation_events (drive_id, student_id, violation_type, disqualified, reason, violation_details, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		violationEventRow(e)...)
	return mapErr(err)
}

// CountByDrive returns the audited violation count of each student of a drive.
func (r *ViolationEventRepository) CountByDrive(ctx context.Context, driveID int64) (map[int64]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT student_id, COUNT(*) FROM violation_events
		 WHERE drive_id = $1 AND NOT disqualified
		 GROUP BY student_id`, driveID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	counts := make(map[int64]int64)
	for rows.Next() {
		var sid, n int64
		if err := rows.Scan(&sid, &n); err != nil {
			return nil, mapErr(err)
		}
		counts[sid] = n
	}
	return counts, mapErr(rows.Err())
}
