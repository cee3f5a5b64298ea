package schedule

import (
	"testing"
	"time"

	"github.com/examdrive/examdrive-backend/internal/model"
)

func intPtr(n int) *int { return &n }

func TestWindowLengthPriority(t *testing.T) {
	tests := []struct {
		name  string
		drive model.Drive
		want  time.Duration
		ok    bool
	}{
		{
			name:  "intended window duration",
			drive: model.Drive{WindowDurationMinutes: intPtr(90), ExamDurationMinutes: 30},
			want:  90 * time.Minute,
			ok:    true,
		},
		{
			name:  "short exam gets an hour of buffer",
			drive: model.Drive{ExamDurationMinutes: 30},
			want:  90 * time.Minute,
			ok:    true,
		},
		{
			name:  "long exam gets a third as buffer",
			drive: model.Drive{ExamDurationMinutes: 240},
			want:  320 * time.Minute,
			ok:    true,
		},
		{
			name:  "buffer uses whole minutes",
			drive: model.Drive{ExamDurationMinutes: 200},
			want:  266 * time.Minute,
			ok:    true,
		},
		{
			name:  "scheduled span",
			drive: model.Drive{WindowStart: ptr(at(10, 0)), WindowEnd: ptr(at(11, 15))},
			want:  75 * time.Minute,
			ok:    true,
		},
		{
			name:  "nothing configured",
			drive: model.Drive{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := WindowLength(&tt.drive)
			if ok != tt.ok || got != tt.want {
				t.Errorf("WindowLength() = %v, %v; want %v, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestEffectiveWindowOverridesPerBound(t *testing.T) {
	d := approvedDrive()
	d.ActualWindowStart = ptr(at(10, 30))

	w, ok := EffectiveWindow(d)
	if !ok {
		t.Fatal("expected a window")
	}
	if !w.Start.Equal(at(10, 30)) || !w.End.Equal(at(12, 0)) {
		t.Errorf("window = [%s, %s)", w.Start, w.End)
	}
	if w.Contains(at(12, 0)) {
		t.Error("window end must be exclusive")
	}
	if !w.Contains(at(10, 30)) {
		t.Error("window start must be inclusive")
	}

	if _, ok := EffectiveWindow(&model.Drive{WindowStart: ptr(at(10, 0))}); ok {
		t.Error("expected missing window")
	}
}

func TestDeadlineIsEarlierOfExamAndWindow(t *testing.T) {
	d := approvedDrive()
	s := &model.Student{ExamStartedAt: ptr(at(11, 50))}

	got, ok := Deadline(d, s)
	if !ok || !got.Equal(at(12, 0)) {
		t.Errorf("Deadline() = %s, %v; want 12:00", got, ok)
	}

	s.ExamStartedAt = ptr(at(10, 0))
	got, _ = Deadline(d, s)
	if !got.Equal(at(10, 30)) {
		t.Errorf("Deadline() = %s; want 10:30", got)
	}

	if _, ok := Deadline(d, &model.Student{}); ok {
		t.Error("expected no deadline before start")
	}
}

func TestStateOfAndRemaining(t *testing.T) {
	d := approvedDrive()
	if got := StateOf(d, at(10, 0)); got != ExamStateNotStarted {
		t.Errorf("got %s, want not_started", got)
	}
	if _, ok := Remaining(d, at(10, 0)); ok {
		t.Error("no remaining time before the window opens")
	}

	d.ActualWindowStart = ptr(at(10, 0))
	d.ActualWindowEnd = ptr(at(11, 30))
	if got := StateOf(d, at(11, 0)); got != ExamStateOngoing {
		t.Errorf("got %s, want ongoing", got)
	}
	left, ok := Remaining(d, at(11, 0))
	if !ok || left != 30*time.Minute {
		t.Errorf("Remaining() = %v, %v; want 30m", left, ok)
	}

	if got := StateOf(d, at(11, 30).Add(-500*time.Millisecond)); got != ExamStateEnded {
		t.Errorf("got %s, want ended within tolerance", got)
	}
	if !HasEnded(d, at(11, 31)) || HasEnded(d, at(11, 30)) {
		t.Error("HasEnded must be strict")
	}
}
