package schedule

import (
	"time"

	"github.com/examdrive/examdrive-backend/internal/model"
)

// minimumBuffer is the least extra time granted after the exam duration when
// the window length has to be inferred.
const minimumBuffer = 60 * time.Minute

// Window is a half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// EffectiveWindow returns the bounds that gate exam starts. Each actual bound
// overrides its scheduled counterpart independently. ok is false when either
// bound is missing after the override.
func EffectiveWindow(d *model.Drive) (Window, bool) {
	start := d.WindowStart
	if d.ActualWindowStart != nil {
		start = d.ActualWindowStart
	}
	end := d.WindowEnd
	if d.ActualWindowEnd != nil {
		end = d.ActualWindowEnd
	}
	if start == nil || end == nil {
		return Window{}, false
	}
	return Window{Start: *start, End: *end}, true
}

// WindowLength picks how long an opened window stays open, preferring the
// stored intended window duration, then exam duration plus a buffer of a
// third of the exam (at least an hour), then the scheduled span.
// ok is false when none of the three yields a positive length.
func WindowLength(d *model.Drive) (time.Duration, bool) {
	if d.WindowDurationMinutes != nil && *d.WindowDurationMinutes > 0 {
		return time.Duration(*d.WindowDurationMinutes) * time.Minute, true
	}
	if d.ExamDurationMinutes > 0 {
		buffer := time.Duration(d.ExamDurationMinutes/3) * time.Minute
		if buffer < minimumBuffer {
			buffer = minimumBuffer
		}
		return d.ExamDuration() + buffer, true
	}
	if span, ok := d.ScheduledSpan(); ok && span > 0 {
		return span, true
	}
	return 0, false
}

// HasEnded reports whether the actual window has closed strictly before now.
func HasEnded(d *model.Drive, now time.Time) bool {
	return d.ActualWindowEnd != nil && d.ActualWindowEnd.Before(now)
}

// Deadline is the instant after which a student's session no longer accepts
// work: the earlier of the personal expected end and the effective window end.
// ok is false before the session started.
func Deadline(d *model.Drive, s *model.Student) (time.Time, bool) {
	expected := s.ExpectedEnd(d.ExamDuration())
	if expected == nil {
		return time.Time{}, false
	}
	deadline := *expected
	if w, ok := EffectiveWindow(d); ok && w.End.Before(deadline) {
		deadline = w.End
	}
	return deadline, true
}

// ExamState describes the actual window from an operator's point of view.
type ExamState string

const (
	ExamStateNotStarted ExamState = "not_started"
	ExamStateOngoing    ExamState = "ongoing"
	ExamStateEnded      ExamState = "ended"
)

// endTolerance treats an end within this distance of now as already passed.
const endTolerance = time.Second

// StateOf classifies the actual window at now.
func StateOf(d *model.Drive, now time.Time) ExamState {
	switch {
	case d.ActualWindowStart == nil:
		return ExamStateNotStarted
	case d.ActualWindowEnd != nil && !d.ActualWindowEnd.After(now.Add(endTolerance)):
		return ExamStateEnded
	default:
		return ExamStateOngoing
	}
}

// Remaining returns the time left until the effective window closes while the
// window is ongoing. ok is false otherwise.
func Remaining(d *model.Drive, now time.Time) (time.Duration, bool) {
	if StateOf(d, now) != ExamStateOngoing {
		return 0, false
	}
	w, ok := EffectiveWindow(d)
	if !ok {
		return 0, false
	}
	left := w.End.Sub(now)
	if left <= 0 {
		return 0, false
	}
	return left, true
}
