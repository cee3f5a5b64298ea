package repository

import (
	"context"

	"github.com/examdrive/examdrive-backend/internal/model"
)

// DriveStore persists drives and their question papers.
type DriveStore interface {
	CreateDrive(ctx context.Context, d *model.Drive) error
	GetDrive(ctx context.Context, id int64) (*model.Drive, error)
	ListQuestions(ctx context.Context, driveID int64) ([]model.Question, error)

	// UpdateDrive runs fn inside one transaction holding the drive row lock.
	// The drive returned by tx.Drive is written back when fn returns nil;
	// nothing is written otherwise. A lock held elsewhere yields
	// ErrConflict without calling fn.
	UpdateDrive(ctx context.Context, id int64, fn func(ctx context.Context, tx DriveTx) error) error
}

// DriveTx is the transactional view of one drive and its roster.
type DriveTx interface {
	Drive() *model.Drive
	// Students locks and returns every student of the drive.
	Students(ctx context.Context) ([]*model.Student, error)
	SaveStudents(ctx context.Context, students []*model.Student) error
	// DeleteResponses removes every response recorded for the drive.
	DeleteResponses(ctx context.Context) (int64, error)
	CountQuestions(ctx context.Context) (int, error)
	CountStudents(ctx context.Context) (int, error)
	// InsertQuestions and InsertStudents assign IDs and creation times in place.
	InsertQuestions(ctx context.Context, questions []model.Question) error
	InsertStudents(ctx context.Context, students []model.Student) error
}

// QuestionLister provides a drive's question paper. PaperCache wraps a
// DriveStore with the same method.
type QuestionLister interface {
	ListQuestions(ctx context.Context, driveID int64) ([]model.Question, error)
}

// StudentStore persists roster entries, their sessions and responses.
type StudentStore interface {
	GetStudent(ctx context.Context, id int64) (*model.Student, error)
	FindByCredentials(ctx context.Context, email, accessToken string) (*model.Student, error)
	ListStudents(ctx context.Context, driveID int64) ([]model.Student, error)
	CountStudents(ctx context.Context, driveID int64) (int, error)
	ListResponses(ctx context.Context, driveID int64) ([]model.StudentResponse, error)

	// UpdateStudent runs fn inside one transaction holding the student row
	// lock. The student returned by tx.Student is written back when fn
	// returns nil. A lock held elsewhere yields ErrConflict.
	UpdateStudent(ctx context.Context, id int64, fn func(ctx context.Context, tx StudentTx) error) error
}

// StudentTx is the transactional view of one student session.
type StudentTx interface {
	Student() *model.Student
	// Drive reads the student's drive under a shared lock, so a concurrent
	// window change either completes first or fails this transaction.
	Drive(ctx context.Context) (*model.Drive, error)
	InsertResponses(ctx context.Context, responses []model.StudentResponse) error
}

// OperatorStore persists operator accounts.
type OperatorStore interface {
	CreateOperator(ctx context.Context, op *model.Operator) error
	GetOperatorByEmail(ctx context.Context, email string) (*model.Operator, error)
}

// ViolationAudit persists the violation audit trail.
type ViolationAudit interface {
	BulkInsert(ctx context.Context, events []model.ViolationEvent) error
	Insert(ctx context.Context, e *model.ViolationEvent) error
	CountByDrive(ctx context.Context, driveID int64) (map[int64]int64, error)
}
