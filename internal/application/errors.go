package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/fieldservice-scheduler/internal/scheduler"
)

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrTechnicianNotSynchronized is returned when a technician profile has
	// no matching row in the scheduling store. It is a configuration problem
	// the user has to fix, not a system failure.
	ErrTechnicianNotSynchronized = errors.New("application: technician not synchronized with scheduling store")
	// ErrNoProviders is returned when a service has no technician in its pool.
	ErrNoProviders = scheduler.ErrNoProviders
	// ErrNoOccurrences is returned when a recurrence rule matches no day in its range.
	ErrNoOccurrences = errors.New("application: recurrence rule produced no occurrences")
	// ErrInvalidTransition is returned when a status change would move a case backwards.
	ErrInvalidTransition = errors.New("application: invalid case status transition")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// orNil returns v when it holds errors and nil otherwise.
func (v *ValidationError) orNil() error {
	if v.HasErrors() {
		return v
	}
	return nil
}

// ConflictError reports that the technician is not free under the policy.
type ConflictError struct {
	TechnicianID int64
	Start        time.Time
	End          time.Time
	Policy       scheduler.Policy
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("technician %d is not free between %s and %s (%s policy)",
		e.TechnicianID, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339), e.Policy)
}

// StoreError is a connectivity or constraint failure in either store.
// Step names the saga step or operation that failed.
type StoreError struct {
	Step string
	Err  error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
}

// Unwrap returns the store failure.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// CompensationFailure means a rollback failed after a step error. A record
// now exists in one store without its counterpart in the other and needs
// manual reconciliation.
type CompensationFailure struct {
	Step         string
	CaseID       string
	Original     error
	Compensation error
}

// Error implements the error interface.
func (e *CompensationFailure) Error() string {
	return fmt.Sprintf("%s failed (%v) and case %s could not be removed: %v", e.Step, e.Original, e.CaseID, e.Compensation)
}

// Unwrap exposes the original failure and the compensation failure.
func (e *CompensationFailure) Unwrap() []error {
	return []error{e.Original, e.Compensation}
}
