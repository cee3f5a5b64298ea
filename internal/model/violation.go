package model

import (
	"fmt"
	"time"
)

// ViolationKind is an anti-cheat signal reported by the exam client.
type ViolationKind string

const (
	ViolationTabSwitch      ViolationKind = "tab_switch"
	ViolationFullscreenExit ViolationKind = "fullscreen_exit"
	ViolationRightClick     ViolationKind = "right_click"
	ViolationScreenshot     ViolationKind = "screenshot"
	ViolationCopy           ViolationKind = "copy"
	ViolationPaste          ViolationKind = "paste"
)

// ViolationKinds lists every recognized kind in reporting order.
var ViolationKinds = []ViolationKind{
	ViolationTabSwitch,
	ViolationFullscreenExit,
	ViolationRightClick,
	ViolationScreenshot,
	ViolationCopy,
	ViolationPaste,
}

// ParseViolationKind converts client input into a ViolationKind.
func ParseViolationKind(raw string) (ViolationKind, error) {
	k := ViolationKind(raw)
	if !k.Valid() {
		return "", fmt.Errorf("unknown violation kind %q", raw)
	}
	return k, nil
}

// Valid reports whether k is one of the recognized kinds.
func (k ViolationKind) Valid() bool {
	switch k {
	case ViolationTabSwitch, ViolationFullscreenExit, ViolationRightClick,
		ViolationScreenshot, ViolationCopy, ViolationPaste:
		return true
	}
	return false
}

// Threshold returns the number of occurrences after which the client is
// expected to disqualify. limited is false for warning-only kinds.
// The tracker does not enforce it.
func (k ViolationKind) Threshold() (limit int, limited bool) {
	switch k {
	case ViolationTabSwitch, ViolationFullscreenExit, ViolationRightClick:
		return 3, true
	case ViolationScreenshot:
		return 1, true
	}
	return 0, false
}

// ViolationCounts is the per-kind violation tally of one session.
type ViolationCounts struct {
	TabSwitch      int `json:"tab_switch"`
	FullscreenExit int `json:"fullscreen_exit"`
	RightClick     int `json:"right_click"`
	Screenshot     int `json:"screenshot"`
	Copy           int `json:"copy"`
	Paste          int `json:"paste"`
}

func (c *ViolationCounts) counter(k ViolationKind) *int {
	switch k {
	case ViolationTabSwitch:
		return &c.TabSwitch
	case ViolationFullscreenExit:
		return &c.FullscreenExit
	case ViolationRightClick:
		return &c.RightClick
	case ViolationScreenshot:
		return &c.Screenshot
	case ViolationCopy:
		return &c.Copy
	case ViolationPaste:
		return &c.Paste
	}
	return nil
}

// Increment adds one occurrence of k and returns the new count for k.
// It returns false for an unrecognized kind and leaves the counts untouched.
func (c *ViolationCounts) Increment(k ViolationKind) (int, bool) {
	p := c.counter(k)
	if p == nil {
		return 0, false
	}
	*p++
	return *p, true
}

// Get returns the count recorded for k.
func (c *ViolationCounts) Get(k ViolationKind) int {
	if p := c.counter(k); p != nil {
		return *p
	}
	return 0
}

// Total sums every counter.
func (c *ViolationCounts) Total() int {
	return c.TabSwitch + c.FullscreenExit + c.RightClick + c.Screenshot + c.Copy + c.Paste
}

// RecordViolationRequest is the payload for reporting a violation.
type RecordViolationRequest struct {
	ViolationType string `json:"violation_type" binding:"required,violation_kind"`
}

// DisqualifyRequest is the payload for a client-initiated disqualification.
type DisqualifyRequest struct {
	ViolationType string `json:"violation_type" binding:"required,violation_kind"`
	Reason        string `json:"reason" binding:"required,min=1,max=255"`
}

// ViolationEvent is one row of the violation audit trail.
type ViolationEvent struct {
	DriveID       int64            `json:"drive_id"`
	StudentID     int64            `json:"student_id"`
	ViolationType ViolationKind    `json:"violation_type"`
	Disqualified  bool             `json:"disqualified"`
	Reason        string           `json:"reason,omitempty"`
	Counts        *ViolationCounts `json:"violation_details,omitempty"`
	OccurredAt    time.Time        `json:"occurred_at"`
}
