package model

import "time"

// DriveStatus enumerates both the stored lifecycle states of a drive and the
// time-derived labels produced by the status resolver.
type DriveStatus string

const (
	DriveStatusDraft     DriveStatus = "draft"
	DriveStatusSubmitted DriveStatus = "submitted"
	DriveStatusApproved  DriveStatus = "approved"
	DriveStatusRejected  DriveStatus = "rejected"
	DriveStatusSuspended DriveStatus = "suspended"

	// Derived labels. DriveStatusCompleted is also stored once a window is force-ended.
	DriveStatusUpcoming  DriveStatus = "upcoming"
	DriveStatusLive      DriveStatus = "live"
	DriveStatusCompleted DriveStatus = "completed"
)

// Drive is a company's scheduled recruitment exam.
type Drive struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Category    string      `json:"category"`
	Status      DriveStatus `json:"status"`
	IsApproved  bool        `json:"is_approved"`
	AdminNotes  string      `json:"admin_notes,omitempty"`
	// SuspendedFrom is the stored status the drive had when it was
	// suspended; empty otherwise.
	SuspendedFrom DriveStatus `json:"suspended_from,omitempty"`

	// Scheduled window, as planned by the company.
	WindowStart *time.Time `json:"window_start,omitempty"`
	WindowEnd   *time.Time `json:"window_end,omitempty"`

	// Actual window, set when the window is opened and closed.
	ActualWindowStart *time.Time `json:"actual_window_start,omitempty"`
	ActualWindowEnd   *time.Time `json:"actual_window_end,omitempty"`

	// ExamDurationMinutes is how long each student gets once they start.
	ExamDurationMinutes int `json:"exam_duration_minutes"`
	// WindowDurationMinutes is the intended length of the window. Drives
	// created before it existed carry nil.
	WindowDurationMinutes *int `json:"window_duration_minutes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScheduledSpan returns window_end - window_start when both are set.
func (d *Drive) ScheduledSpan() (time.Duration, bool) {
	if d.WindowStart == nil || d.WindowEnd == nil {
		return 0, false
	}
	return d.WindowEnd.Sub(*d.WindowStart), true
}

// ExamDuration returns the per-student exam duration.
func (d *Drive) ExamDuration() time.Duration {
	return time.Duration(d.ExamDurationMinutes) * time.Minute
}

// CreateDriveRequest is the payload for creating a new drive.
type CreateDriveRequest struct {
	Title               string    `json:"title" binding:"required,min=3,max=255"`
	Description         string    `json:"description" binding:"omitempty,max=4000"`
	Category            string    `json:"category" binding:"required,max=100"`
	WindowStart         time.Time `json:"window_start" binding:"required"`
	WindowEnd           time.Time `json:"window_end" binding:"required,gtfield=WindowStart"`
	ExamDurationMinutes int       `json:"exam_duration_minutes" binding:"required,min=1,max=1440"`
}

// ReviewDriveRequest is the payload an admin sends to approve or reject a drive.
type ReviewDriveRequest struct {
	Approve    *bool  `json:"approve" binding:"required"`
	AdminNotes string `json:"admin_notes" binding:"omitempty,max=2000"`
}
