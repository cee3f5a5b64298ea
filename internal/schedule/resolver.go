// Package schedule holds the time rules of a drive: its derived status and
// the bounds of the window during which students may start.
package schedule

import (
	"time"

	"github.com/examdrive/examdrive-backend/internal/model"
)

// ResolveStatus computes the status a drive presents to every caller at now.
// Administrative states outrank the clock; the first matching rule wins.
func ResolveStatus(d *model.Drive, now time.Time) model.DriveStatus {
	switch d.Status {
	case model.DriveStatusSuspended:
		return model.DriveStatusSuspended
	case model.DriveStatusDraft, model.DriveStatusSubmitted, model.DriveStatusRejected:
		return d.Status
	}
	if !d.IsApproved {
		return d.Status
	}

	// Closed by hand or by the computed end passing.
	if d.ActualWindowEnd != nil && !now.Before(*d.ActualWindowEnd) {
		return model.DriveStatusCompleted
	}

	// Opened by hand: the scheduled span runs from the actual start.
	if d.ActualWindowStart != nil {
		if span, ok := d.ScheduledSpan(); ok {
			if now.Before(d.ActualWindowStart.Add(span)) {
				return model.DriveStatusLive
			}
			return model.DriveStatusCompleted
		}
	}

	if d.WindowStart != nil && d.WindowEnd != nil {
		switch {
		case now.Before(*d.WindowStart):
			return model.DriveStatusUpcoming
		case now.Before(*d.WindowEnd):
			return model.DriveStatusLive
		default:
			return model.DriveStatusCompleted
		}
	}

	return d.Status
}
