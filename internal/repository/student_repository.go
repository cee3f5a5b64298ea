package repository

import (
	"context"
	"fmt"

	"github.com/examdrive/examdrive-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StudentRepository handles roster, session and response data access.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// GetStudent retrieves a student by ID.
func (r *StudentRepository) GetStudent(ctx context.Context, id int64) (*model.Student, error) {
	return scanStudent(r.pool.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = $1`, id))
}

// FindByCredentials retrieves the student matching an email and access token pair.
func (r *StudentRepository) FindByCredentials(ctx context.Context, email, accessToken string) (*model.Student, error) {
	return scanStudent(r.pool.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students
		 WHERE LOWER(email) = LOWER($1) AND access_token = $2`, email, accessToken))
}

// ListStudents retrieves a drive's roster ordered by ID.
func (r *StudentRepository) ListStudents(ctx context.Context, driveID int64) ([]model.Student, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+studentColumns+` FROM students WHERE drive_id = $1 ORDER BY id`, driveID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var students []model.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, *s)
	}
	return students, mapErr(rows.Err())
}

// CountStudents counts a drive's roster.
func (r *StudentRepository) CountStudents(ctx context.Context, driveID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM students WHERE drive_id = $1`, driveID).Scan(&n)
	return n, mapErr(err)
}

// ListResponses retrieves every response recorded for a drive.
func (r *StudentRepository) ListResponses(ctx context.Context, driveID int64) ([]model.StudentResponse, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, student_id, question_id, drive_id, selected_option, is_correct, marked_for_review, answered_at
		 FROM student_responses WHERE drive_id = $1
		 ORDER BY student_id, question_id`, driveID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var responses []model.StudentResponse
	for rows.Next() {
		var sr model.StudentResponse
		if err := rows.Scan(&sr.ID, &sr.StudentID, &sr.QuestionID, &sr.DriveID,
			&sr.SelectedOption, &sr.IsCorrect, &sr.MarkedForReview, &sr.AnsweredAt); err != nil {
			return nil, mapErr(err)
		}
		responses = append(responses, sr)
	}
	return responses, mapErr(rows.Err())
}

// UpdateStudent locks the student row with NOWAIT, runs fn and writes the session back.
func (r *StudentRepository) UpdateStudent(ctx context.Context, id int64, fn func(ctx context.Context, tx StudentTx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	s, err := scanStudent(tx.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = $1 FOR UPDATE NOWAIT`, id))
	if err != nil {
		return err
	}

	if err := fn(ctx, &studentTx{tx: tx, student: s}); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, updateStudentSQL, studentSessionArgs(s)...); err != nil {
		return mapErr(err)
	}
	return mapErr(tx.Commit(ctx))
}

type studentTx struct {
	tx      pgx.Tx
	student *model.Student
}

func (t *studentTx) Student() *model.Student { return t.student }

// Drive takes a shared lock so a concurrent window change fails one side fast.
func (t *studentTx) Drive(ctx context.Context) (*model.Drive, error) {
	return scanDrive(t.tx.QueryRow(ctx,
		`SELECT `+driveColumns+` FROM drives WHERE id = $1 FOR SHARE NOWAIT`, t.student.DriveID))
}

func (t *studentTx) InsertResponses(ctx context.Context, responses []model.StudentResponse) error {
	if len(responses) == 0 {
		return nil
	}
	_, err := t.tx.CopyFrom(
		ctx,
		pgx.Identifier{"student_responses"},
		[]string{"student_id", "question_id", "drive_id", "selected_option", "is_correct", "marked_for_review", "answered_at"},
		pgx.CopyFromSlice(len(responses), func(i int) ([]any, error) {
			r := responses[i]
			return []any{r.StudentID, r.QuestionID, r.DriveID, r.SelectedOption, r.IsCorrect, r.MarkedForReview, r.AnsweredAt}, nil
		}),
	)
	return mapErr(err)
}
