package memstore

import (
	"context"
	"strings"

	"github.com/examdrive/examdrive-backend/internal/model"
	"github.com/examdrive/examdrive-backend/internal/repository"
)

// CreateOperator stores an operator; emails are unique.
func (s *Store) CreateOperator(ctx context.Context, op *model.Operator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(op.Email)
	if _, exists := s.operators[key]; exists {
		return repository.ErrDuplicate
	}
	op.ID = s.id()
	c := *op
	s.operators[key] = &c
	return nil
}

// GetOperatorByEmail looks an operator up by email.
func (s *Store) GetOperatorByEmail(ctx context.Context, email string) (*model.Operator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, ok := s.operators[strings.ToLower(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *op
	return &c, nil
}
