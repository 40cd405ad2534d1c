package scheduler

import (
	"errors"
	"time"
)

// ErrInvalidWindow indicates a zero-length or inverted interval.
var ErrInvalidWindow = errors.New("scheduler: window end must be after start")

// Window is a half-open interval of instants [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow validates the bounds before returning a Window.
func NewWindow(start, end time.Time) (Window, error) {
	w := Window{Start: start, End: end}
	if !w.Valid() {
		return Window{}, ErrInvalidWindow
	}
	return w, nil
}

// Valid reports whether the window has a positive length.
func (w Window) Valid() bool {
	return !w.Start.IsZero() && !w.End.IsZero() && w.End.After(w.Start)
}

// Duration returns the length of the window.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Overlaps applies the open-interval test: touching endpoints do not overlap.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && w.End.After(other.Start)
}

// Expand widens the window symmetrically by buffer on both sides.
func (w Window) Expand(buffer time.Duration) Window {
	if buffer <= 0 {
		return w
	}
	return Window{Start: w.Start.Add(-buffer), End: w.End.Add(buffer)}
}
