package memstore

import (
	"context"

	"github.com/examdrive/examdrive-backend/internal/model"
)

// BulkInsert appends violation audit rows.
func (s *Store) BulkInsert(ctx context.Context, events []model.ViolationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, events...)
	return nil
}

// Insert appends one violation audit row.
func (s *Store) Insert(ctx context.Context, e *model.ViolationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, *e)
	return nil
}

// CountByDrive returns the audited violation count of each student of a drive.
func (s *Store) CountByDrive(ctx context.Context, driveID int64) (map[int64]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[int64]int64)
	for _, e := range s.audit {
		if e.DriveID == driveID && !e.Disqualified {
			counts[e.StudentID]++
		}
	}
	return counts, nil
}
