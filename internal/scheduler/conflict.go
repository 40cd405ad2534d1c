package scheduler

import (
	"fmt"
	"strings"
	"time"
)

// DefaultTravelBuffer is the gap kept around existing commitments when
// offering public slots.
const DefaultTravelBuffer = 60 * time.Minute

// Policy selects how existing commitments are compared against a candidate.
type Policy string

const (
	// PolicyStrict is used when staff book a specific technician directly.
	PolicyStrict Policy = "strict"
	// PolicyBuffered dilates existing commitments by the travel buffer.
	PolicyBuffered Policy = "buffered"
)

// ParsePolicy converts a user supplied value into a Policy.
func ParsePolicy(value string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(value))) {
	case PolicyStrict, "":
		return PolicyStrict, nil
	case PolicyBuffered:
		return PolicyBuffered, nil
	}
	return "", fmt.Errorf("scheduler: unknown policy %q", value)
}

// Commitment is an existing calendar row of a single technician. Blocking
// rows take part in conflict checks exactly like bookings.
type Commitment struct {
	AppointmentID int64
	TechnicianID  int64
	Window        Window
	Blocking      bool
}

// Detector decides booking feasibility for one technician.
type Detector struct {
	buffer time.Duration
}

// NewDetector returns a Detector using buffer for the buffered policy.
// A non-positive buffer falls back to DefaultTravelBuffer.
func NewDetector(buffer time.Duration) *Detector {
	if buffer <= 0 {
		buffer = DefaultTravelBuffer
	}
	return &Detector{buffer: buffer}
}

// Buffer returns the travel buffer applied by the buffered policy.
func (d *Detector) Buffer() time.Duration {
	if d == nil || d.buffer <= 0 {
		return DefaultTravelBuffer
	}
	return d.buffer
}

// LookupWindow returns the range of existing rows that can influence a
// decision about candidate under policy. Stores are queried with it.
func (d *Detector) LookupWindow(candidate Window, policy Policy) Window {
	if policy == PolicyBuffered {
		return candidate.Expand(d.Buffer())
	}
	return candidate
}

// IsFree reports whether none of existing conflicts with candidate.
func (d *Detector) IsFree(existing []Commitment, candidate Window, policy Policy) (bool, error) {
	conflicts, err := d.Conflicts(existing, candidate, policy)
	if err != nil {
		return false, err
	}
	return len(conflicts) == 0, nil
}

// Conflicts returns the commitments that block candidate under policy.
// Only existing commitments are dilated; the candidate is compared as is.
func (d *Detector) Conflicts(existing []Commitment, candidate Window, policy Policy) ([]Commitment, error) {
	if !candidate.Valid() {
		return nil, ErrInvalidWindow
	}

	var buffer time.Duration
	switch policy {
	case PolicyStrict:
	case PolicyBuffered:
		buffer = d.Buffer()
	default:
		return nil, fmt.Errorf("scheduler: unknown policy %q", policy)
	}

	var conflicts []Commitment
	for _, commitment := range existing {
		if !commitment.Window.Valid() {
			continue
		}
		if commitment.Window.Expand(buffer).Overlaps(candidate) {
			conflicts = append(conflicts, commitment)
		}
	}
	return conflicts, nil
}
