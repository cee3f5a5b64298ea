package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/examdrive/examdrive-backend/internal/model"
	"github.com/examdrive/examdrive-backend/internal/schedule"
	"github.com/examdrive/examdrive-backend/internal/service"
)

func TestActivateTwiceFails(t *testing.T) {
	f := newFixture(t, reverseShuffler{})
	d, _, _ := f.seedDrive(t, driveSpec{examMinutes: 30, points: []int{1}, students: 1, approve: true})
	ctx := context.Background()

	f.clock.Set(at(10, 0))
	first, err := f.windows.Activate(ctx, d.ID)
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if !first.ActualWindowStart.Equal(at(10, 0)) || !first.ActualWindowEnd.Equal(at(12, 0)) {
		t.Fatalf("actual window = [%v, %v], want [10:00, 12:00]", first.ActualWindowStart, first.ActualWindowEnd)
	}

	f.clock.Set(at(10, 5))
	_, err = f.windows.Activate(ctx, d.ID)
	if !errors.Is(err, service.ErrAlreadyActivated) {
		t.Fatalf("second Activate err = %v, want ErrAlreadyActivated", err)
	}

	after, _ := f.store.GetDrive(ctx, d.ID)
	if !after.ActualWindowStart.Equal(*first.ActualWindowStart) || !after.ActualWindowEnd.Equal(*first.ActualWindowEnd) {
		t.Errorf("drive changed by failed activate: [%v, %v]", after.ActualWindowStart, after.ActualWindowEnd)
	}
}

func TestActivatePreconditions(t *testing.T) {
	f := newFixture(t, reverseShuffler{})
	ctx := context.Background()

	draft, _, _ := f.seedDrive(t, driveSpec{examMinutes: 30, points: []int{1}, students: 1})
	if _, err := f.windows.Activate(ctx, draft.ID); !errors.Is(err, service.ErrNotApproved) {
		t.Errorf("draft Activate err = %v, want ErrNotApproved", err)
	}

	if _, err := f.windows.Activate(ctx, 999); !errors.Is(err, service.ErrDriveNotFound) {
		t.Errorf("missing drive err = %v, want ErrDriveNotFound", err)
	}

	approved, _, _ := f.seedDrive(t, driveSpec{examMinutes: 30, points: []int{1}, students: 1, approve: true})
	if _, err := f.windows.Suspend(ctx, approved.ID); err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	_, err := f.windows.Activate(ctx, approved.ID)
	if !errors.Is(err, service.ErrDriveSuspended) {
		t.Errorf("suspended Activate err = %v, want ErrDriveSuspended", err)
	}
	var se *service.StateError
	if !errors.As(err, &se) || se.DriveStatus != model.DriveStatusSuspended {
		t.Errorf("state error = %+v, want drive status suspended", se)
	}
}

// A student starting near the end of the window is cut off when the window
// is force-ended, before their personal countdown runs out.
func TestForceEndOverridesPersonalCountdown(t *testing.T) {
	f := newFixture(t, reverseShuffler{})
	d, questions, students := f.seedDrive(t, driveSpec{examMinutes: 30, points: []int{2, 3, 4}, students: 3, approve: true})
	ctx := context.Background()

	f.clock.Set(at(10, 0))
	if _, err := f.windows.Activate(ctx, d.ID); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	// students[0] submits early, students[1] starts at 11:50, students[2] never starts.
	f.clock.Set(at(10, 10))
	if _, err := f.sessions.Start(ctx, students[0].ID); err != nil {
		t.Fatalf("Start early: %v", err)
	}
	f.clock.Set(at(10, 30))
	if _, err := f.sessions.Submit(ctx, students[0].ID, []model.Answer{answer(questions[0].ID, "A")}); err != nil {
		t.Fatalf("Submit early: %v", err)
	}

	f.clock.Set(at(11, 50))
	started, err := f.sessions.Start(ctx, students[1].ID)
	if err != nil {
		t.Fatalf("Start late: %v", err)
	}
	if !started.ExpectedEnd.Equal(at(12, 20)) {
		t.Fatalf("expected end = %v, want 12:20", started.ExpectedEnd)
	}

	f.clock.Set(at(12, 0))
	res, err := f.windows.ForceEnd(ctx, d.ID)
	if err != nil {
		t.Fatalf("ForceEnd: %v", err)
	}
	if res.AutoSubmittedCount != 1 {
		t.Errorf("auto submitted = %d, want 1", res.AutoSubmittedCount)
	}
	if res.Drive.Status != model.DriveStatusCompleted || !res.Drive.ActualWindowEnd.Equal(at(12, 0)) {
		t.Errorf("drive after force end = %s ending %v", res.Drive.Status, res.Drive.ActualWindowEnd)
	}

	late := mustStudent(t, f, students[1].ID)
	if late.State != model.SessionSubmitted {
		t.Errorf("late state = %s, want SUBMITTED", late.State)
	}
	if late.ExamSubmittedAt == nil || !late.ExamSubmittedAt.Equal(at(12, 0)) {
		t.Errorf("late submitted at = %v, want 12:00", late.ExamSubmittedAt)
	}
	if late.Score != nil || late.TotalMarks != nil {
		t.Errorf("late score = %v/%v, want ungraded", late.Score, late.TotalMarks)
	}

	early := mustStudent(t, f, students[0].ID)
	if !early.ExamSubmittedAt.Equal(at(10, 30)) || early.Score == nil || *early.Score != 2 {
		t.Errorf("early student changed: submitted %v score %v", early.ExamSubmittedAt, early.Score)
	}
	if idle := mustStudent(t, f, students[2].ID); idle.State != model.SessionNotStarted {
		t.Errorf("idle state = %s, want NOT_STARTED", idle.State)
	}

	if _, err := f.sessions.Submit(ctx, students[1].ID, nil); !errors.Is(err, service.ErrAlreadySubmitted) {
		t.Errorf("Submit after cutoff err = %v, want ErrAlreadySubmitted", err)
	}
	if _, err := f.sessions.Start(ctx, students[2].ID); !errors.Is(err, service.ErrWindowClosed) {
		t.Errorf("Start after cutoff err = %v, want ErrWindowClosed", err)
	}

	result, err := f.sessions.Result(ctx, students[1].ID)
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if result.Graded || result.Score != nil || result.TotalMarks != nil || result.Percentage != nil {
		t.Errorf("cutoff result = %+v, want ungraded", result)
	}
	if result.SubmittedAt == nil || !result.SubmittedAt.Equal(at(12, 0)) {
		t.Errorf("cutoff result submitted at = %v, want 12:00", result.SubmittedAt)
	}

	listing, err := f.results.List(ctx, d.ID, nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, row := range listing.Results {
		if row.StudentID == students[1].ID && row.Score != nil {
			t.Errorf("results list score = %v, want nil for the cutoff student", *row.Score)
		}
	}

	f.clock.Set(at(12, 1))
	if _, err := f.windows.ForceEnd(ctx, d.ID); !errors.Is(err, service.ErrAlreadyEnded) {
		t.Errorf("second ForceEnd err = %v, want ErrAlreadyEnded", err)
	}
}

func TestForceEndRequiresActivation(t *testing.T) {
	f := newFixture(t, reverseShuffler{})
	d, _, _ := f.seedDrive(t, driveSpec{examMinutes: 30, points: []int{1}, students: 1, approve: true})

	if _, err := f.windows.ForceEnd(context.Background(), d.ID); !errors.Is(err, service.ErrNotActivated) {
		t.Fatalf("err = %v, want ErrNotActivated", err)
	}
}

func TestSuspendWipesProgressKeepsRoster(t *testing.T) {
	f := newFixture(t, reverseShuffler{})
	d, questions, students := f.seedDrive(t, driveSpec{examMinutes: 30, points: []int{1, 1}, students: 10, approve: true})
	ctx := context.Background()

	f.clock.Set(at(10, 0))
	if _, err := f.windows.Activate(ctx, d.ID); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	f.clock.Set(at(10, 5))
	for _, st := range students {
		if _, err := f.sessions.Start(ctx, st.ID); err != nil {
			t.Fatalf("Start: %v", err)
		}
		if _, err := f.violations.Record(ctx, st.ID, model.ViolationTabSwitch); err != nil {
			t.Fatalf("Record: %v", err)
		}
		if _, err := f.sessions.Submit(ctx, st.ID, []model.Answer{answer(questions[0].ID, "A")}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	f.clock.Set(at(10, 40))
	res, err := f.windows.Suspend(ctx, d.ID)
	if err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	if res.ResponsesDeleted != 10 || res.StudentsPreserved != 10 || !res.ExamEnded {
		t.Errorf("suspend result = %+v", res)
	}

	if rs, _ := f.store.ListResponses(ctx, d.ID); len(rs) != 0 {
		t.Errorf("responses left = %d, want 0", len(rs))
	}
	roster, _ := f.store.ListStudents(ctx, d.ID)
	if len(roster) != 10 {
		t.Fatalf("roster = %d, want 10", len(roster))
	}
	for _, st := range roster {
		if st.Name == "" || st.Email == "" {
			t.Errorf("student %d lost roster fields", st.ID)
		}
		if st.State != model.SessionNotStarted || st.ExamStartedAt != nil || st.ExamSubmittedAt != nil ||
			st.Score != nil || st.TotalMarks != nil || st.ViolationDetails != nil || st.TotalViolations != 0 {
			t.Errorf("student %d session not reset: %+v", st.ID, st)
		}
	}

	after, _ := f.store.GetDrive(ctx, d.ID)
	if after.Status != model.DriveStatusSuspended || after.ActualWindowStart != nil || after.ActualWindowEnd != nil {
		t.Errorf("drive after suspend = %+v", after)
	}
	if _, err := f.sessions.Start(ctx, students[0].ID); !errors.Is(err, service.ErrDriveSuspended) {
		t.Errorf("Start on suspended drive err = %v, want ErrDriveSuspended", err)
	}
	if _, err := f.windows.Suspend(ctx, d.ID); !errors.Is(err, service.ErrAlreadySuspended) {
		t.Errorf("second Suspend err = %v, want ErrAlreadySuspended", err)
	}
}

func TestReactivateAllowsReopening(t *testing.T) {
	f := newFixture(t, reverseShuffler{})
	d, _, _ := f.seedDrive(t, driveSpec{examMinutes: 30, points: []int{1}, students: 1, approve: true})
	ctx := context.Background()

	if _, err := f.windows.Reactivate(ctx, d.ID); !errors.Is(err, service.ErrNotSuspended) {
		t.Errorf("Reactivate approved err = %v, want ErrNotSuspended", err)
	}

	f.clock.Set(at(10, 0))
	if _, err := f.windows.Activate(ctx, d.ID); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if _, err := f.windows.Suspend(ctx, d.ID); err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	got, err := f.windows.Reactivate(ctx, d.ID)
	if err != nil {
		t.Fatalf("Reactivate: %v", err)
	}
	if got.Status != model.DriveStatusApproved {
		t.Errorf("status = %s, want approved", got.Status)
	}

	f.clock.Set(at(10, 30))
	reopened, err := f.windows.Activate(ctx, d.ID)
	if err != nil {
		t.Fatalf("re-Activate: %v", err)
	}
	if !reopened.ActualWindowStart.Equal(at(10, 30)) {
		t.Errorf("reopened at %v, want 10:30", reopened.ActualWindowStart)
	}
}

// A drive suspended before approval comes back in the state it left, so its
// status never reads approved while it cannot be opened.
func TestReactivateRestoresUnapprovedStatus(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, f *fixture, driveID int64)
		want    model.DriveStatus
	}{
		{
			name:    "draft",
			prepare: func(*testing.T, *fixture, int64) {},
			want:    model.DriveStatusDraft,
		},
		{
			name: "submitted",
			prepare: func(t *testing.T, f *fixture, driveID int64) {
				if _, err := f.drives.Submit(context.Background(), driveID); err != nil {
					t.Fatalf("Submit: %v", err)
				}
			},
			want: model.DriveStatusSubmitted,
		},
		{
			name: "rejected",
			prepare: func(t *testing.T, f *fixture, driveID int64) {
				ctx := context.Background()
				if _, err := f.drives.Submit(ctx, driveID); err != nil {
					t.Fatalf("Submit: %v", err)
				}
				if _, err := f.drives.Review(ctx, driveID, false, "missing instructions"); err != nil {
					t.Fatalf("Review: %v", err)
				}
			},
			want: model.DriveStatusRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, reverseShuffler{})
			d, _, _ := f.seedDrive(t, driveSpec{examMinutes: 30, points: []int{1}, students: 1})
			ctx := context.Background()
			tt.prepare(t, f, d.ID)

			if _, err := f.windows.Suspend(ctx, d.ID); err != nil {
				t.Fatalf("Suspend: %v", err)
			}
			got, err := f.windows.Reactivate(ctx, d.ID)
			if err != nil {
				t.Fatalf("Reactivate: %v", err)
			}
			if got.Status != tt.want || got.IsApproved || got.SuspendedFrom != "" {
				t.Errorf("reactivated = status %s approved %v from %q, want %s", got.Status, got.IsApproved, got.SuspendedFrom, tt.want)
			}

			status, err := f.windows.Status(ctx, d.ID)
			if err != nil {
				t.Fatalf("Status: %v", err)
			}
			if status != tt.want {
				t.Errorf("resolved status = %s, want %s", status, tt.want)
			}
			if _, err := f.windows.Activate(ctx, d.ID); !errors.Is(err, service.ErrNotApproved) {
				t.Errorf("Activate err = %v, want ErrNotApproved", err)
			}
		})
	}
}

func TestWindowStatusReport(t *testing.T) {
	f := newFixture(t, reverseShuffler{})
	d, _, _ := f.seedDrive(t, driveSpec{examMinutes: 30, points: []int{1}, students: 2, approve: true})
	ctx := context.Background()

	before, err := f.windows.WindowStatus(ctx, d.ID)
	if err != nil {
		t.Fatalf("WindowStatus: %v", err)
	}
	if !before.CanStart || before.CanEnd || before.ExamState != schedule.ExamStateNotStarted || before.StudentCount != 2 {
		t.Errorf("before activation = %+v", before)
	}

	f.clock.Set(at(10, 0))
	if _, err := f.windows.Activate(ctx, d.ID); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	f.clock.Set(at(11, 0))
	during, _ := f.windows.WindowStatus(ctx, d.ID)
	if during.CanStart || !during.CanEnd || during.ExamState != schedule.ExamStateOngoing {
		t.Errorf("during window = %+v", during)
	}
	if during.TimeRemainingSeconds == nil || *during.TimeRemainingSeconds != 3600 {
		t.Errorf("remaining = %v, want 3600", during.TimeRemainingSeconds)
	}
	if during.Status != model.DriveStatusLive {
		t.Errorf("status = %s, want live", during.Status)
	}
}

func TestWindowEventsPublished(t *testing.T) {
	f := newFixture(t, reverseShuffler{})
	d, _, _ := f.seedDrive(t, driveSpec{examMinutes: 30, points: []int{1}, students: 1, approve: true})
	ctx := context.Background()

	f.clock.Set(at(10, 0))
	if _, err := f.windows.Activate(ctx, d.ID); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	f.clock.Set(at(11, 0))
	if _, err := f.windows.ForceEnd(ctx, d.ID); err != nil {
		t.Fatalf("ForceEnd: %v", err)
	}

	got := f.pub.types()
	if len(got) != 2 || got[0] != "window_opened" || got[1] != "window_closed" {
		t.Errorf("events = %v", got)
	}
}
