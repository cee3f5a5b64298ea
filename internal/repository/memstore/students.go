package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/examdrive/examdrive-backend/internal/model"
	"github.com/examdrive/examdrive-backend/internal/repository"
)

// GetStudent returns a copy of a student.
func (s *Store) GetStudent(ctx context.Context, id int64) (*model.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneStudent(st), nil
}

// FindByCredentials matches a roster entry by email and access token.
func (s *Store) FindByCredentials(ctx context.Context, email, accessToken string) (*model.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.students {
		if strings.EqualFold(st.Email, email) && st.AccessToken == accessToken {
			return cloneStudent(st), nil
		}
	}
	return nil, repository.ErrNotFound
}

// ListStudents returns a drive's roster ordered by ID.
func (s *Store) ListStudents(ctx context.Context, driveID int64) ([]model.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Student
	for _, st := range s.students {
		if st.DriveID == driveID {
			out = append(out, *cloneStudent(st))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CountStudents counts a drive's roster.
func (s *Store) CountStudents(ctx context.Context, driveID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countStudents(driveID), nil
}

// ListResponses returns every response recorded for a drive.
func (s *Store) ListResponses(ctx context.Context, driveID int64) ([]model.StudentResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.StudentResponse
	for _, r := range s.responses {
		if r.DriveID == driveID {
			out = append(out, r)
		}
	}
	return out, nil
}

// UpdateStudent runs fn with the student locked and commits its changes when fn succeeds.
func (s *Store) UpdateStudent(ctx context.Context, id int64, fn func(ctx context.Context, tx repository.StudentTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	st, ok := s.students[id]
	if !ok {
		s.mu.Unlock()
		return repository.ErrNotFound
	}
	if err := s.acquire(studentKey(id)); err != nil {
		s.mu.Unlock()
		return err
	}
	tx := &studentTx{store: s, student: cloneStudent(st)}
	s.mu.Unlock()
	defer s.release([]string{studentKey(id)})

	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.students[id] = tx.student
	for i := range tx.responses {
		tx.responses[i].ID = s.id()
		s.responses = append(s.responses, tx.responses[i])
	}
	return nil
}

type studentTx struct {
	store     *Store
	student   *model.Student
	responses []model.StudentResponse
}

func (tx *studentTx) Student() *model.Student { return tx.student }

// Drive fails with ErrConflict while the drive is locked by a drive-wide
// transaction, the in-memory equivalent of a shared row lock.
func (tx *studentTx) Drive(ctx context.Context) (*model.Drive, error) {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drives[tx.student.DriveID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if _, busy := s.locked[driveKey(d.ID)]; busy {
		return nil, repository.ErrConflict
	}
	return cloneDrive(d), nil
}

func (tx *studentTx) InsertResponses(ctx context.Context, responses []model.StudentResponse) error {
	tx.responses = append(tx.responses, responses...)
	return nil
}
