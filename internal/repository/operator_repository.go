package repository

import (
	"context"

	"github.com/examdrive/examdrive-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OperatorRepository handles operator data access.
type OperatorRepository struct {
	pool *pgxpool.Pool
}

// NewOperatorRepository creates a new OperatorRepository.
func NewOperatorRepository(pool *pgxpool.Pool) *OperatorRepository {
	return &OperatorRepository{pool: pool}
}

// CreateOperator inserts a new operator.
func (r *OperatorRepository) CreateOperator(ctx context.Context, op *model.Operator) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO operators (name, email, password_hash, role)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		op.Name, op.Email, op.PasswordHash, op.Role,
	).Scan(&op.ID, &op.CreatedAt)
	return mapErr(err)
}

// GetOperatorByEmail retrieves an operator by email.
func (r *OperatorRepository) GetOperatorByEmail(ctx context.Context, email string) (*model.Operator, error) {
	op := &model.Operator{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, role, created_at
		 FROM operators WHERE LOWER(email) = LOWER($1)`, email,
	).Scan(&op.ID, &op.Name, &op.Email, &op.PasswordHash, &op.Role, &op.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return op, nil
}
