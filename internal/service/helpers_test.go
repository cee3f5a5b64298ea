package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/examdrive/examdrive-backend/internal/events"
	"github.com/examdrive/examdrive-backend/internal/model"
	"github.com/examdrive/examdrive-backend/internal/repository/memstore"
	"github.com/examdrive/examdrive-backend/internal/service"
	"github.com/rs/zerolog"
)

func at(h, m int) time.Time {
	return time.Date(2025, 6, 2, h, m, 0, 0, time.UTC)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// reverseShuffler is deterministic: it reverses the IDs.
type reverseShuffler struct{}

func (reverseShuffler) Shuffle(ids []int64) error {
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	return nil
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

type fixture struct {
	store *memstore.Store
	clock *fakeClock
	pub   *recorder

	drives     *service.DriveService
	windows    *service.WindowService
	sessions   *service.SessionService
	violations *service.ViolationService
	results    *service.ResultService
}

func newFixture(t *testing.T, shuffler service.Shuffler) *fixture {
	t.Helper()
	store := memstore.New()
	clock := &fakeClock{t: at(9, 0)}
	pub := &recorder{}
	log := zerolog.Nop()

	return &fixture{
		store:      store,
		clock:      clock,
		pub:        pub,
		drives:     service.NewDriveService(store, store, clock.Now, log),
		windows:    service.NewWindowService(store, store, pub, clock.Now, log),
		sessions:   service.NewSessionService(store, store, store, shuffler, pub, clock.Now, log),
		violations: service.NewViolationService(store, pub, clock.Now, log),
		results:    service.NewResultService(store, store),
	}
}

// driveSpec describes a drive scheduled for [10:00, 12:00].
type driveSpec struct {
	examMinutes int
	points      []int
	students    int
	approve     bool
}

// seedDrive creates a drive with one question per entry of points, all
// answered by "A", and the requested roster.
func (f *fixture) seedDrive(t *testing.T, spec driveSpec) (*model.Drive, []model.Question, []model.Student) {
	t.Helper()
	ctx := context.Background()

	d, err := f.drives.Create(ctx, &model.CreateDriveRequest{
		Title:               "Backend Engineer Drive",
		Category:            "engineering",
		WindowStart:         at(10, 0),
		WindowEnd:           at(12, 0),
		ExamDurationMinutes: spec.examMinutes,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	qreq := &model.AddQuestionsRequest{}
	for i, p := range spec.points {
		qreq.Questions = append(qreq.Questions, model.AddQuestionRequest{
			QuestionText:  "Question " + string(rune('1'+i)),
			OptionA:       "alpha",
			OptionB:       "beta",
			OptionC:       "gamma",
			OptionD:       "delta",
			CorrectAnswer: "A",
			Points:        p,
		})
	}
	questions, err := f.drives.AddQuestions(ctx, d.ID, qreq)
	if err != nil {
		t.Fatalf("AddQuestions: %v", err)
	}

	sreq := &model.AddStudentsRequest{}
	for i := 0; i < spec.students; i++ {
		sreq.Students = append(sreq.Students, model.AddStudentRequest{
			Name:  "Student " + string(rune('A'+i)),
			Email: "student" + string(rune('a'+i)) + "@example.com",
		})
	}
	students, err := f.drives.AddStudents(ctx, d.ID, sreq)
	if err != nil {
		t.Fatalf("AddStudents: %v", err)
	}

	if spec.approve {
		if _, err := f.drives.Submit(ctx, d.ID); err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if d, err = f.drives.Review(ctx, d.ID, true, ""); err != nil {
			t.Fatalf("Review: %v", err)
		}
	}
	return d, questions, students
}

func answer(qid int64, opt string) model.Answer {
	return model.Answer{QuestionID: qid, SelectedOption: &opt}
}

func mustStudent(t *testing.T, f *fixture, id int64) *model.Student {
	t.Helper()
	st, err := f.store.GetStudent(context.Background(), id)
	if err != nil {
		t.Fatalf("GetStudent(%d): %v", id, err)
	}
	return st
}
