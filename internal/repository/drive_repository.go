package repository

import (
	"context"
	"fmt"

	"github.com/examdrive/examdrive-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DriveRepository handles drive and question data access.
type DriveRepository struct {
	pool *pgxpool.Pool
}

// NewDriveRepository creates a new DriveRepository.
func NewDriveRepository(pool *pgxpool.Pool) *DriveRepository {
	return &DriveRepository{pool: pool}
}

// CreateDrive inserts a new drive.
func (r *DriveRepository) CreateDrive(ctx context.Context, d *model.Drive) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO drives (title, description, category, status, is_approved, admin_notes,
		                     window_start, window_end, exam_duration_minutes, window_duration_minutes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at, updated_at`,
		d.Title, d.Description, d.Category, d.Status, d.IsApproved, d.AdminNotes,
		d.WindowStart, d.WindowEnd, d.ExamDurationMinutes, d.WindowDurationMinutes,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	return mapErr(err)
}

// GetDrive retrieves a drive by ID.
func (r *DriveRepository) GetDrive(ctx context.Context, id int64) (*model.Drive, error) {
	return scanDrive(r.pool.QueryRow(ctx,
		`SELECT `+driveColumns+` FROM drives WHERE id = $1`, id))
}

// ListQuestions retrieves a drive's questions in creation order.
func (r *DriveRepository) ListQuestions(ctx context.Context, driveID int64) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE drive_id = $1 ORDER BY id`, driveID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, mapErr(rows.Err())
}

// UpdateDrive locks the drive row with NOWAIT, runs fn and writes the drive back.
func (r *DriveRepository) UpdateDrive(ctx context.Context, id int64, fn func(ctx context.Context, tx DriveTx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	d, err := scanDrive(tx.QueryRow(ctx,
		`SELECT `+driveColumns+` FROM drives WHERE id = $1 FOR UPDATE NOWAIT`, id))
	if err != nil {
		return err
	}

	if err := fn(ctx, &driveTx{tx: tx, drive: d}); err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`UPDATE drives
		 SET status = $2, suspended_from = $3, is_approved = $4, admin_notes = $5,
		     actual_window_start = $6, actual_window_end = $7, updated_at = NOW()
		 WHERE id = $1`,
		d.ID, d.Status, d.SuspendedFrom, d.IsApproved, d.AdminNotes, d.ActualWindowStart, d.ActualWindowEnd)
	if err != nil {
		return mapErr(err)
	}
	return mapErr(tx.Commit(ctx))
}

type driveTx struct {
	tx    pgx.Tx
	drive *model.Drive
}

func (t *driveTx) Drive() *model.Drive { return t.drive }

func (t *driveTx) Students(ctx context.Context) ([]*model.Student, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+studentColumns+` FROM students
		 WHERE drive_id = $1 ORDER BY id FOR UPDATE NOWAIT`, t.drive.ID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var students []*model.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, mapErr(rows.Err())
}

func (t *driveTx) SaveStudents(ctx context.Context, students []*model.Student) error {
	if len(students) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, s := range students {
		batch.Queue(updateStudentSQL, studentSessionArgs(s)...)
	}
	return mapErr(t.tx.SendBatch(ctx, batch).Close())
}

func (t *driveTx) DeleteResponses(ctx context.Context) (int64, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM student_responses WHERE drive_id = $1`, t.drive.ID)
	if err != nil {
		return 0, mapErr(err)
	}
	return tag.RowsAffected(), nil
}

func (t *driveTx) CountQuestions(ctx context.Context) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM questions WHERE drive_id = $1`, t.drive.ID).Scan(&n)
	return n, mapErr(err)
}

func (t *driveTx) CountStudents(ctx context.Context) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM students WHERE drive_id = $1`, t.drive.ID).Scan(&n)
	return n, mapErr(err)
}

func (t *driveTx) InsertQuestions(ctx context.Context, questions []model.Question) error {
	batch := &pgx.Batch{}
	for i := range questions {
		q := &questions[i]
		batch.Queue(
			`INSERT INTO questions (drive_id, question_text, option_a, option_b, option_c, option_d, correct_answer, points)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING id, created_at`,
			t.drive.ID, q.QuestionText, q.OptionA, q.OptionB, q.OptionC, q.OptionD, q.CorrectAnswer, q.Points,
		).QueryRow(func(row pgx.Row) error {
			q.DriveID = t.drive.ID
			return row.Scan(&q.ID, &q.CreatedAt)
		})
	}
	return mapErr(t.tx.SendBatch(ctx, batch).Close())
}

func (t *driveTx) InsertStudents(ctx context.Context, students []model.Student) error {
	batch := &pgx.Batch{}
	for i := range students {
		s := &students[i]
		batch.Queue(
			`INSERT INTO students (drive_id, name, email, roll_number, phone, college_name,
			                       student_group_name, access_token, session_state)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING id, created_at`,
			t.drive.ID, s.Name, s.Email, s.RollNumber, s.Phone, s.CollegeName,
			s.StudentGroupName, s.AccessToken, model.SessionNotStarted,
		).QueryRow(func(row pgx.Row) error {
			s.DriveID = t.drive.ID
			s.State = model.SessionNotStarted
			return row.Scan(&s.ID, &s.CreatedAt)
		})
	}
	return mapErr(t.tx.SendBatch(ctx, batch).Close())
}
