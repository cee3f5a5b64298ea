package service_test

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/examdrive/examdrive-backend/internal/model"
	"github.com/examdrive/examdrive-backend/internal/repository"
	"github.com/examdrive/examdrive-backend/internal/service"
)

func TestStartFixesExpectedEnd(t *testing.T) {
	f := newFixture(t, reverseShuffler{})
	d, _, students := f.seedDrive(t, driveSpec{examMinutes: 60, points: []int{1, 1, 1}, students: 1, approve: true})
	ctx := context.Background()

	f.clock.Set(at(10, 15))
	started, err := f.sessions.Start(ctx, students[0].ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !started.ExpectedEnd.Equal(at(11, 15)) {
		t.Fatalf("expected end = %v, want 11:15", started.ExpectedEnd)
	}
	if started.ExamDurationMinutes != d.ExamDurationMinutes {
		t.Errorf("duration = %d", started.ExamDurationMinutes)
	}

	for _, now := range []int{20, 40, 59} {
		f.clock.Set(at(10, now))
		paper, err := f.sessions.Questions(ctx, students[0].ID)
		if err != nil {
			t.Fatalf("Questions: %v", err)
		}
		if !paper.ExpectedEnd.Equal(at(11, 15)) {
			t.Errorf("at 10:%02d expected end = %v, want 11:15", now, paper.ExpectedEnd)
		}
	}
}

func TestQuestionOrderIsStablePermutation(t *testing.T) {
	f := newFixture(t, service.CryptoShuffler{})
	_, questions, students := f.seedDrive(t, driveSpec{examMinutes: 30, points: []int{1, 2, 3, 4, 5, 6, 7}, students: 1, approve: true})
	ctx := context.Background()

	f.clock.Set(at(10, 0))
	started, err := f.sessions.Start(ctx, students[0].ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	want := make([]int64, len(questions))
	for i, q := range questions {
		want[i] = q.ID
	}
	got := append([]int64(nil), started.QuestionOrder...)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
	if len(got) != len(want) {
		t.Fatalf("order has %d ids, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order %v is not a permutation of %v", started.QuestionOrder, want)
		}
	}

	for range 3 {
		paper, err := f.sessions.Questions(ctx, students[0].ID)
		if err != nil {
			t.Fatalf("Questions: %v", err)
		}
		if len(paper.Questions) != len(started.QuestionOrder) {
			t.Fatalf("paper has %d questions", len(paper.Questions))
		}
		for i, q := range paper.Questions {
			if q.ID != started.QuestionOrder[i] {
				t.Fatalf("position %d = %d, want %d", i, q.ID, started.QuestionOrder[i])
			}
		}
		if paper.TotalMarks != 28 {
			t.Errorf("total marks = %d, want 28", paper.TotalMarks)
		}
	}
}

func TestStartGuards(t *testing.T) {
	f := newFixture(t, reverseShuffler{})
	_, _, students := f.seedDrive(t, driveSpec{examMinutes: 30, points: []int{1}, students: 2, approve: true})
	ctx := context.Background()

	f.clock.Set(at(9, 30))
	if _, err := f.sessions.Start(ctx, students[0].ID); !errors.Is(err, service.ErrWindowNotOpenYet) {
		t.Errorf("early Start err = %v, want ErrWindowNotOpenYet", err)
	}

	// The scheduled window gates starts until the window is opened by hand.
	f.clock.Set(at(10, 30))
	if _, err := f.sessions.Start(ctx, students[0].ID); err != nil {
		t.Fatalf("Start in scheduled window: %v", err)
	}
	_, err := f.sessions.Start(ctx, students[0].ID)
	if !errors.Is(err, service.ErrAlreadyStarted) {
		t.Errorf("second Start err = %v, want ErrAlreadyStarted", err)
	}
	var se *service.StateError
	if !errors.As(err, &se) || se.SessionState != model.SessionInProgress {
		t.Errorf("state error = %+v, want IN_PROGRESS", se)
	}

	if _, err := f.sessions.Submit(ctx, students[0].ID, nil); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := f.sessions.Start(ctx, students[0].ID); !errors.Is(err, service.ErrAlreadySubmitted) {
		t.Errorf("Start after submit err = %v, want ErrAlreadySubmitted", err)
	}

	f.clock.Set(at(12, 0))
	if _, err := f.sessions.Start(ctx, students[1].ID); !errors.Is(err, service.ErrWindowClosed) {
		t.Errorf("late Start err = %v, want ErrWindowClosed", err)
	}

	if _, err := f.sessions.Start(ctx, 999); !errors.Is(err, service.ErrStudentNotFound) {
		t.Errorf("missing student err = %v, want ErrStudentNotFound", err)
	}
}

func TestStartNeedsQuestions(t *testing.T) {
	f := newFixture(t, reverseShuffler{})
	ctx := context.Background()

	// Approve through the store so the drive can lack questions.
	d, _, students := f.seedDrive(t, driveSpec{examMinutes: 30, students: 1})
	err := f.store.UpdateDrive(ctx, d.ID, func(ctx context.Context, tx repository.DriveTx) error {
		tx.Drive().Status = model.DriveStatusApproved
		tx.Drive().IsApproved = true
		return nil
	})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}

	f.clock.Set(at(10, 30))
	if _, err := f.sessions.Start(ctx, students[0].ID); !errors.Is(err, service.ErrNoQuestions) {
		t.Fatalf("err = %v, want ErrNoQuestions", err)
	}
}

func TestSubmitGradesWholePaper(t *testing.T) {
	f := newFixture(t, reverseShuffler{})
	_, questions, students := f.seedDrive(t, driveSpec{examMinutes: 30, points: []int{3, 4, 2}, students: 1, approve: true})
	ctx := context.Background()
	sid := students[0].ID

	f.clock.Set(at(10, 0))
	if _, err := f.sessions.Start(ctx, sid); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := f.sessions.Questions(ctx, students[0].ID); err != nil {
		t.Fatalf("Questions: %v", err)
	}

	f.clock.Set(at(10, 20))
	res, err := f.sessions.Submit(ctx, sid, []model.Answer{
		answer(questions[0].ID, "b"),
		answer(questions[0].ID, "a"), // last answer wins
		answer(questions[1].ID, "A"),
		answer(12345, "A"), // unknown question
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Score != 7 || res.TotalMarks != 9 || res.Percentage != 77.78 {
		t.Errorf("result = %d/%d (%.2f), want 7/9 (77.78)", res.Score, res.TotalMarks, res.Percentage)
	}

	responses, _ := f.store.ListResponses(ctx, students[0].DriveID)
	if len(responses) != 2 {
		t.Errorf("responses stored = %d, want 2", len(responses))
	}

	result, err := f.sessions.Result(ctx, sid)
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if !result.Graded || *result.Score != 7 || *result.TotalMarks != 9 || *result.Percentage != 77.78 || result.IsDisqualified {
		t.Errorf("Result = %+v", result)
	}

	if _, err := f.sessions.Submit(ctx, sid, nil); !errors.Is(err, service.ErrAlreadySubmitted) {
		t.Errorf("second Submit err = %v, want ErrAlreadySubmitted", err)
	}
	if _, err := f.sessions.Questions(ctx, sid); !errors.Is(err, service.ErrAlreadySubmitted) {
		t.Errorf("Questions after submit err = %v, want ErrAlreadySubmitted", err)
	}
}

func TestSubmitAcceptsFullTextAnswerKey(t *testing.T) {
	f := newFixture(t, reverseShuffler{})
	d, questions, students := f.seedDrive(t, driveSpec{examMinutes: 30, points: []int{1, 1}, students: 1})
	ctx := context.Background()

	// A legacy drive whose answer key stores option text.
	err := f.store.UpdateDrive(ctx, d.ID, func(ctx context.Context, tx repository.DriveTx) error {
		tx.Drive().Status = model.DriveStatusApproved
		tx.Drive().IsApproved = true
		return tx.InsertQuestions(ctx, []model.Question{{
			QuestionText: "legacy", OptionA: "red", OptionB: "Blue", OptionC: "green", OptionD: "grey",
			CorrectAnswer: "blue", Points: 5,
		}})
	})
	if err != nil {
		t.Fatalf("seed legacy question: %v", err)
	}
	paper, _ := f.store.ListQuestions(ctx, d.ID)
	legacy := paper[len(paper)-1]

	f.clock.Set(at(10, 0))
	if _, err := f.sessions.Start(ctx, students[0].ID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	res, err := f.sessions.Submit(ctx, students[0].ID, []model.Answer{
		answer(legacy.ID, "B"),
		answer(questions[0].ID, "A"),
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Score != 6 || res.TotalMarks != 7 {
		t.Errorf("result = %d/%d, want 6/7", res.Score, res.TotalMarks)
	}
}

func TestResultBeforeSubmit(t *testing.T) {
	f := newFixture(t, reverseShuffler{})
	_, _, students := f.seedDrive(t, driveSpec{examMinutes: 30, points: []int{1}, students: 1, approve: true})

	if _, err := f.sessions.Result(context.Background(), students[0].ID); !errors.Is(err, service.ErrNotSubmitted) {
		t.Fatalf("err = %v, want ErrNotSubmitted", err)
	}
	if _, err := f.sessions.Questions(context.Background(), students[0].ID); !errors.Is(err, service.ErrNotStarted) {
		t.Fatalf("Questions err = %v, want ErrNotStarted", err)
	}
}

func TestStateReportsDeadline(t *testing.T) {
	f := newFixture(t, reverseShuffler{})
	d, _, students := f.seedDrive(t, driveSpec{examMinutes: 30, points: []int{1}, students: 1, approve: true})
	ctx := context.Background()
	sid := students[0].ID

	f.clock.Set(at(10, 0))
	if _, err := f.windows.Activate(ctx, d.ID); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	f.clock.Set(at(11, 45))
	if _, err := f.sessions.Start(ctx, sid); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// The window closes at 12:00, before the personal end of 12:15.
	f.clock.Set(at(11, 50))
	st, err := f.sessions.State(ctx, sid)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if st.Deadline == nil || !st.Deadline.Equal(at(12, 0)) {
		t.Errorf("deadline = %v, want 12:00", st.Deadline)
	}
	if st.RemainingSeconds != 600 || st.Expired {
		t.Errorf("remaining = %d expired = %v", st.RemainingSeconds, st.Expired)
	}
	if !st.ExpectedEnd.Equal(at(12, 15)) {
		t.Errorf("expected end = %v, want 12:15", st.ExpectedEnd)
	}

	f.clock.Set(at(12, 0))
	st, _ = f.sessions.State(ctx, sid)
	if !st.Expired || st.RemainingSeconds != 0 {
		t.Errorf("at deadline remaining = %d expired = %v", st.RemainingSeconds, st.Expired)
	}
	if got := mustStudent(t, f, sid); got.State != model.SessionInProgress {
		t.Errorf("State mutated session to %s", got.State)
	}
}

func TestStartPublishesEvent(t *testing.T) {
	f := newFixture(t, reverseShuffler{})
	_, _, students := f.seedDrive(t, driveSpec{examMinutes: 30, points: []int{1}, students: 1, approve: true})

	f.clock.Set(at(10, 0))
	if _, err := f.sessions.Start(context.Background(), students[0].ID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	got := f.pub.types()
	if len(got) != 1 || got[0] != "session_started" {
		t.Errorf("events = %v", got)
	}
}
