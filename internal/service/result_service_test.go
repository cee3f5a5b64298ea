package service_test

import (
	"context"
	"testing"

	"github.com/examdrive/examdrive-backend/internal/model"
	"github.com/examdrive/examdrive-backend/internal/service"
)

// resultsFixture leaves four students in four different states.
func resultsFixture(t *testing.T) (*fixture, *model.Drive, []model.Question, []model.Student) {
	t.Helper()
	f := newFixture(t, reverseShuffler{})
	d, questions, students := f.seedDrive(t, driveSpec{examMinutes: 30, points: []int{1, 1, 1, 1}, students: 4, approve: true})
	ctx := context.Background()

	f.clock.Set(at(10, 0))
	for _, st := range students[:3] {
		if _, err := f.sessions.Start(ctx, st.ID); err != nil {
			t.Fatalf("Start: %v", err)
		}
	}
	f.clock.Set(at(10, 20))
	if _, err := f.sessions.Submit(ctx, students[0].ID, []model.Answer{
		answer(questions[0].ID, "A"), answer(questions[1].ID, "A"), answer(questions[2].ID, "A"), answer(questions[3].ID, "c"),
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := f.sessions.Submit(ctx, students[1].ID, []model.Answer{answer(questions[0].ID, "A")}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := f.violations.Disqualify(ctx, students[2].ID, model.ViolationScreenshot, "screenshot"); err != nil {
		t.Fatalf("Disqualify: %v", err)
	}
	return f, d, questions, students
}

func TestResultList(t *testing.T) {
	f, d, _, _ := resultsFixture(t)
	ctx := context.Background()

	all, err := f.results.List(ctx, d.ID, nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if all.TotalStudents != 4 || all.FilteredStudents != 4 {
		t.Fatalf("counts = %d/%d", all.FilteredStudents, all.TotalStudents)
	}
	wantStatus := []string{"Submitted", "Submitted", "Disqualified", "Not Started"}
	for i, row := range all.Results {
		if row.Status != wantStatus[i] {
			t.Errorf("row %d status = %q, want %q", i, row.Status, wantStatus[i])
		}
	}
	if p := all.Results[0].Percentage; p == nil || *p != 75 {
		t.Errorf("first percentage = %v, want 75", p)
	}
	if all.Results[2].Percentage != nil {
		t.Errorf("disqualified percentage = %v, want nil", *all.Results[2].Percentage)
	}

	cutoff := 50.0
	filtered, err := f.results.List(ctx, d.ID, &cutoff)
	if err != nil {
		t.Fatalf("List filtered: %v", err)
	}
	if filtered.FilteredStudents != 1 || filtered.TotalStudents != 4 {
		t.Errorf("filtered = %d of %d, want 1 of 4", filtered.FilteredStudents, filtered.TotalStudents)
	}
}

func TestResultExportDetailed(t *testing.T) {
	f, d, questions, students := resultsFixture(t)

	table, err := f.results.Export(context.Background(), d.ID, service.ExportDetailed)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(table.Header) != 10+len(questions) || table.Header[10] != "Q1" {
		t.Fatalf("header = %v", table.Header)
	}
	if len(table.Rows) != len(students) {
		t.Fatalf("rows = %d, want %d", len(table.Rows), len(students))
	}

	// reverseShuffler puts the last question first.
	top := table.Rows[0]
	if top[7] != "75.00" || top[9] != "No" {
		t.Errorf("summary cells = %v", top[:10])
	}
	if top[10] != "C (incorrect)" || top[13] != "A (correct)" {
		t.Errorf("answer cells = %v", top[10:])
	}
	second := table.Rows[1]
	if second[10] != "Not Answered" || second[13] != "A (correct)" {
		t.Errorf("second answer cells = %v", second[10:])
	}
	disq := table.Rows[2]
	if disq[7] != "" || disq[9] != "Yes" {
		t.Errorf("disqualified cells = %v", disq[:10])
	}
	if idle := table.Rows[3]; idle[10] != "" {
		t.Errorf("not started answer cell = %q, want empty", idle[10])
	}
}

func TestResultExportSummary(t *testing.T) {
	f, d, _, _ := resultsFixture(t)

	table, err := f.results.Export(context.Background(), d.ID, service.ExportSummary)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(table.Header) != 10 {
		t.Errorf("header = %v", table.Header)
	}
	if _, err := f.results.Export(context.Background(), d.ID, service.ExportFormat("pdf")); err == nil {
		t.Error("expected error for unknown format")
	}
}
