// Package memstore keeps drives, rosters and responses in process memory.
// It implements the same stores as the PostgreSQL repositories and is used
// for local development and tests. Row locks are try-locks: a record held by
// another transaction fails fast with repository.ErrConflict.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/examdrive/examdrive-backend/internal/model"
	"github.com/examdrive/examdrive-backend/internal/repository"
)

// Store is an in-memory DriveStore, StudentStore and OperatorStore.
type Store struct {
	mu     sync.Mutex
	nextID int64

	drives    map[int64]*model.Drive
	questions map[int64][]model.Question // by drive
	students  map[int64]*model.Student
	responses []model.StudentResponse
	operators map[string]*model.Operator // by email
	audit     []model.ViolationEvent

	locked map[string]struct{}
}

var (
	_ repository.DriveStore     = (*Store)(nil)
	_ repository.StudentStore   = (*Store)(nil)
	_ repository.OperatorStore  = (*Store)(nil)
	_ repository.ViolationAudit = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{
		drives:    make(map[int64]*model.Drive),
		questions: make(map[int64][]model.Question),
		students:  make(map[int64]*model.Student),
		operators: make(map[string]*model.Operator),
		locked:    make(map[string]struct{}),
	}
}

func driveKey(id int64) string   { return fmt.Sprintf("drive:%d", id) }
func studentKey(id int64) string { return fmt.Sprintf("student:%d", id) }

// id returns the next identifier. Callers hold mu.
func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// acquire marks keys as locked, all or none. Callers hold mu.
func (s *Store) acquire(keys ...string) error {
	for _, k := range keys {
		if _, busy := s.locked[k]; busy {
			return repository.ErrConflict
		}
	}
	for _, k := range keys {
		s.locked[k] = struct{}{}
	}
	return nil
}

func (s *Store) release(keys []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.locked, k)
	}
}

func cloneDrive(d *model.Drive) *model.Drive {
	c := *d
	return &c
}

func cloneStudent(st *model.Student) *model.Student {
	c := *st
	if st.QuestionOrder != nil {
		c.QuestionOrder = append([]int64(nil), st.QuestionOrder...)
	}
	if st.ViolationDetails != nil {
		v := *st.ViolationDetails
		c.ViolationDetails = &v
	}
	return &c
}

// CreateDrive stores a new drive and assigns its ID.
func (s *Store) CreateDrive(ctx context.Context, d *model.Drive) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.ID = s.id()
	s.drives[d.ID] = cloneDrive(d)
	return nil
}

// GetDrive returns a copy of a drive.
func (s *Store) GetDrive(ctx context.Context, id int64) (*model.Drive, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drives[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneDrive(d), nil
}

// ListQuestions returns a drive's questions in insertion order.
func (s *Store) ListQuestions(ctx context.Context, driveID int64) ([]model.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Question(nil), s.questions[driveID]...), nil
}

// UpdateDrive runs fn with the drive locked and commits its changes when fn succeeds.
func (s *Store) UpdateDrive(ctx context.Context, id int64, fn func(ctx context.Context, tx repository.DriveTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	d, ok := s.drives[id]
	if !ok {
		s.mu.Unlock()
		return repository.ErrNotFound
	}
	if err := s.acquire(driveKey(id)); err != nil {
		s.mu.Unlock()
		return err
	}
	tx := &driveTx{
		store: s,
		drive: cloneDrive(d),
		keys:  []string{driveKey(id)},
		saved: make(map[int64]*model.Student),
	}
	s.mu.Unlock()
	defer func() { s.release(tx.keys) }()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.drives[id] = tx.drive
	for sid, st := range tx.saved {
		s.students[sid] = st
	}
	if tx.deleteResponses {
		kept := s.responses[:0]
		for _, r := range s.responses {
			if r.DriveID != id {
				kept = append(kept, r)
			}
		}
		s.responses = kept
	}
	s.questions[id] = append(s.questions[id], tx.newQuestions...)
	for i := range tx.newStudents {
		st := tx.newStudents[i]
		s.students[st.ID] = cloneStudent(&st)
	}
	return nil
}

type driveTx struct {
	store *Store
	drive *model.Drive
	keys  []string

	saved           map[int64]*model.Student
	deleteResponses bool
	newQuestions    []model.Question
	newStudents     []model.Student
}

func (tx *driveTx) Drive() *model.Drive { return tx.drive }

func (tx *driveTx) Students(ctx context.Context) ([]*model.Student, error) {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*model.Student
	var keys []string
	for _, st := range s.students {
		if st.DriveID != tx.drive.ID {
			continue
		}
		out = append(out, cloneStudent(st))
		if !contains(tx.keys, studentKey(st.ID)) {
			keys = append(keys, studentKey(st.ID))
		}
	}
	if err := s.acquire(keys...); err != nil {
		return nil, err
	}
	tx.keys = append(tx.keys, keys...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func contains(keys []string, k string) bool {
	for _, v := range keys {
		if v == k {
			return true
		}
	}
	return false
}

func (tx *driveTx) SaveStudents(ctx context.Context, students []*model.Student) error {
	for _, st := range students {
		if !contains(tx.keys, studentKey(st.ID)) {
			return fmt.Errorf("student %d saved without being locked", st.ID)
		}
		tx.saved[st.ID] = cloneStudent(st)
	}
	return nil
}

func (tx *driveTx) DeleteResponses(ctx context.Context) (int64, error) {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, r := range s.responses {
		if r.DriveID == tx.drive.ID {
			n++
		}
	}
	tx.deleteResponses = true
	return n, nil
}

func (tx *driveTx) CountQuestions(ctx context.Context) (int, error) {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.questions[tx.drive.ID]) + len(tx.newQuestions), nil
}

func (tx *driveTx) CountStudents(ctx context.Context) (int, error) {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countStudents(tx.drive.ID) + len(tx.newStudents), nil
}

func (tx *driveTx) InsertQuestions(ctx context.Context, questions []model.Question) error {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range questions {
		questions[i].ID = s.id()
		questions[i].DriveID = tx.drive.ID
		tx.newQuestions = append(tx.newQuestions, questions[i])
	}
	return nil
}

func (tx *driveTx) InsertStudents(ctx context.Context, students []model.Student) error {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	emails := make(map[string]struct{})
	for _, st := range s.students {
		if st.DriveID == tx.drive.ID {
			emails[strings.ToLower(st.Email)] = struct{}{}
		}
	}
	for _, st := range tx.newStudents {
		emails[strings.ToLower(st.Email)] = struct{}{}
	}
	for i := range students {
		if _, dup := emails[strings.ToLower(students[i].Email)]; dup {
			return repository.ErrDuplicate
		}
		emails[strings.ToLower(students[i].Email)] = struct{}{}
	}
	for i := range students {
		students[i].ID = s.id()
		students[i].DriveID = tx.drive.ID
		if students[i].State == "" {
			students[i].State = model.SessionNotStarted
		}
		tx.newStudents = append(tx.newStudents, students[i])
	}
	return nil
}

// countStudents counts a drive's roster. Callers hold mu.
func (s *Store) countStudents(driveID int64) int {
	n := 0
	for _, st := range s.students {
		if st.DriveID == driveID {
			n++
		}
	}
	return n
}
