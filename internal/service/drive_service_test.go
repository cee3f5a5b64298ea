package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/examdrive/examdrive-backend/internal/model"
	"github.com/examdrive/examdrive-backend/internal/service"
	"github.com/google/uuid"
)

func TestCreateValidatesWindow(t *testing.T) {
	f := newFixture(t, reverseShuffler{})
	ctx := context.Background()

	tests := []struct {
		name    string
		start   int
		end     int
		minutes int
		want    error
	}{
		{"end before start", 12, 10, 30, service.ErrInvalidWindow},
		{"duration fills window", 10, 11, 60, service.ErrInvalidExamDuration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.drives.Create(ctx, &model.CreateDriveRequest{
				Title:               "Drive",
				Category:            "eng",
				WindowStart:         at(tt.start, 0),
				WindowEnd:           at(tt.end, 0),
				ExamDurationMinutes: tt.minutes,
			})
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	d, err := f.drives.Create(ctx, &model.CreateDriveRequest{
		Title: "  Drive  ", Category: "eng", WindowStart: at(10, 0), WindowEnd: at(12, 0), ExamDurationMinutes: 45,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if d.Status != model.DriveStatusDraft || d.Title != "Drive" {
		t.Errorf("drive = %+v", d)
	}
	if d.WindowDurationMinutes == nil || *d.WindowDurationMinutes != 120 {
		t.Errorf("window duration = %v, want 120", d.WindowDurationMinutes)
	}
}

func TestDriveLifecycle(t *testing.T) {
	f := newFixture(t, reverseShuffler{})
	ctx := context.Background()

	d, _, _ := f.seedDrive(t, driveSpec{examMinutes: 30})
	if _, err := f.drives.Submit(ctx, d.ID); !errors.Is(err, service.ErrDriveHasNoQuestions) {
		t.Errorf("Submit without questions err = %v", err)
	}
	if _, err := f.drives.Review(ctx, d.ID, true, ""); !errors.Is(err, service.ErrNotAwaitingReview) {
		t.Errorf("Review draft err = %v", err)
	}

	d, _, _ = f.seedDrive(t, driveSpec{examMinutes: 30, points: []int{1}})
	if _, err := f.drives.Submit(ctx, d.ID); !errors.Is(err, service.ErrDriveHasNoStudents) {
		t.Errorf("Submit without students err = %v", err)
	}

	d, _, _ = f.seedDrive(t, driveSpec{examMinutes: 30, points: []int{1}, students: 1})
	if _, err := f.drives.Submit(ctx, d.ID); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	req := &model.AddQuestionsRequest{Questions: []model.AddQuestionRequest{{QuestionText: "late", CorrectAnswer: "A"}}}
	if _, err := f.drives.AddQuestions(ctx, d.ID, req); !errors.Is(err, service.ErrNotDraft) {
		t.Errorf("AddQuestions after submit err = %v, want ErrNotDraft", err)
	}

	rejected, err := f.drives.Review(ctx, d.ID, false, "too short")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if rejected.Status != model.DriveStatusRejected || rejected.IsApproved || rejected.AdminNotes != "too short" {
		t.Errorf("rejected drive = %+v", rejected)
	}

	detail, err := f.drives.Get(ctx, d.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if detail.ResolvedStatus != model.DriveStatusRejected || detail.QuestionCount != 1 || detail.StudentCount != 1 {
		t.Errorf("detail = %+v", detail)
	}
}

func TestAddQuestionsDefaultsPoints(t *testing.T) {
	f := newFixture(t, reverseShuffler{})
	d, _, _ := f.seedDrive(t, driveSpec{examMinutes: 30})

	qs, err := f.drives.AddQuestions(context.Background(), d.ID, &model.AddQuestionsRequest{
		Questions: []model.AddQuestionRequest{{QuestionText: "q", CorrectAnswer: " B "}},
	})
	if err != nil {
		t.Fatalf("AddQuestions: %v", err)
	}
	if qs[0].Points != 1 || qs[0].CorrectAnswer != "B" || qs[0].ID == 0 {
		t.Errorf("question = %+v", qs[0])
	}
}

func TestAddStudentsRoster(t *testing.T) {
	f := newFixture(t, reverseShuffler{})
	ctx := context.Background()
	d, _, existing := f.seedDrive(t, driveSpec{examMinutes: 30, points: []int{1}, students: 1, approve: true})

	added, err := f.drives.AddStudents(ctx, d.ID, &model.AddStudentsRequest{Students: []model.AddStudentRequest{
		{Name: "Chen", Email: "  Chen@Example.com "},
	}})
	if err != nil {
		t.Fatalf("AddStudents: %v", err)
	}
	if added[0].Email != "chen@example.com" {
		t.Errorf("email = %q", added[0].Email)
	}
	if _, err := uuid.Parse(added[0].AccessToken); err != nil {
		t.Errorf("access token %q is not a uuid", added[0].AccessToken)
	}

	_, err = f.drives.AddStudents(ctx, d.ID, &model.AddStudentsRequest{Students: []model.AddStudentRequest{
		{Name: "Dup", Email: existing[0].Email},
	}})
	if !errors.Is(err, service.ErrDuplicateStudent) {
		t.Errorf("duplicate err = %v, want ErrDuplicateStudent", err)
	}

	_, err = f.drives.AddStudents(ctx, d.ID, &model.AddStudentsRequest{Students: []model.AddStudentRequest{
		{Name: "One", Email: "same@example.com"}, {Name: "Two", Email: "SAME@example.com"},
	}})
	if !errors.Is(err, service.ErrDuplicateStudent) {
		t.Errorf("in-request duplicate err = %v, want ErrDuplicateStudent", err)
	}

	f.clock.Set(at(10, 0))
	if _, err := f.windows.Activate(ctx, d.ID); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	_, err = f.drives.AddStudents(ctx, d.ID, &model.AddStudentsRequest{Students: []model.AddStudentRequest{
		{Name: "Late", Email: "late@example.com"},
	}})
	if !errors.Is(err, service.ErrWindowAlreadyOpened) {
		t.Errorf("after activation err = %v, want ErrWindowAlreadyOpened", err)
	}
}
