// Package saga runs a fixed sequence of writes against stores that share no
// transaction. Each step may register a compensating action; when a later
// step fails, the compensations of the steps that already completed run in
// reverse order. Nothing is retried.
package saga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Action is a single write or its undo.
type Action func(ctx context.Context) error

type step struct {
	name string
	run  Action
}

// Saga is a linear state machine of named steps with a compensation table.
type Saga struct {
	name          string
	steps         []step
	compensations map[string]Action
	logger        *slog.Logger
}

// New creates an empty saga. A nil logger falls back to slog.Default.
func New(name string, logger *slog.Logger) *Saga {
	if logger == nil {
		logger = slog.Default()
	}
	return &Saga{
		name:          name,
		compensations: make(map[string]Action),
		logger:        logger.With("saga", name),
	}
}

// Step appends a named step.
func (s *Saga) Step(name string, run Action) *Saga {
	s.steps = append(s.steps, step{name: name, run: run})
	return s
}

// Compensate registers the undo of a step.
func (s *Saga) Compensate(stepName string, undo Action) *Saga {
	s.compensations[stepName] = undo
	return s
}

// Steps lists the step names in execution order.
func (s *Saga) Steps() []string {
	names := make([]string, 0, len(s.steps))
	for _, st := range s.steps {
		names = append(names, st.name)
	}
	return names
}

// Execute runs every step in order. On the first failure it compensates the
// completed steps and returns a *StepError, or a *CompensationError when an
// undo itself fails.
func (s *Saga) Execute(ctx context.Context) error {
	completed := make([]string, 0, len(s.steps))
	for _, st := range s.steps {
		s.logger.DebugContext(ctx, "saga step started", "step", st.name)
		if err := st.run(ctx); err != nil {
			s.logger.WarnContext(ctx, "saga step failed", "step", st.name, "error", err)
			return s.rollback(ctx, st.name, completed, err)
		}
		completed = append(completed, st.name)
	}
	return nil
}

func (s *Saga) rollback(ctx context.Context, failed string, completed []string, cause error) error {
	stepErr := &StepError{Saga: s.name, Step: failed, Err: cause}
	for i := len(completed) - 1; i >= 0; i-- {
		name := completed[i]
		undo, ok := s.compensations[name]
		if !ok {
			continue
		}
		if err := undo(ctx); err != nil {
			return &CompensationError{StepError: stepErr, CompensatingStep: name, Err: err}
		}
		stepErr.Compensated = append(stepErr.Compensated, name)
		s.logger.InfoContext(ctx, "saga step compensated", "step", name, "failed_step", failed)
	}
	return stepErr
}

// StepError reports which step failed and which completed steps were undone.
type StepError struct {
	Saga        string
	Step        string
	Err         error
	Compensated []string
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("saga %s: step %s: %v", e.Saga, e.Step, e.Err)
}

// Unwrap exposes the step failure.
func (e *StepError) Unwrap() error {
	return e.Err
}

// CompensationError reports a failed undo. The original step failure stays
// reachable through errors.Is and errors.As.
type CompensationError struct {
	*StepError
	CompensatingStep string
	Err              error
}

// Error implements the error interface.
func (e *CompensationError) Error() string {
	return fmt.Sprintf("saga %s: step %s failed (%v) and compensating %s failed: %v",
		e.StepError.Saga, e.StepError.Step, e.StepError.Err, e.CompensatingStep, e.Err)
}

// Unwrap exposes both the original failure and the compensation failure.
func (e *CompensationError) Unwrap() []error {
	return []error{e.StepError, e.Err}
}

// FailedStep returns the name of the step that failed, if err came from a saga.
func FailedStep(err error) (string, bool) {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Step, true
	}
	return "", false
}
