package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/fieldservice-scheduler/internal/persistence"
)

const caseServiceName = "CaseService"

var statusRank = map[persistence.CaseStatus]int{
	persistence.CaseStatusPending:   0,
	persistence.CaseStatusAssigned:  1,
	persistence.CaseStatusCompleted: 2,
}

// CaseService edits business cases outside the booking saga.
type CaseService struct {
	cases  CaseStore
	now    func() time.Time
	logger *slog.Logger
}

// NewCaseService wires dependencies for case operations.
func NewCaseService(cases CaseStore, now func() time.Time, logger *slog.Logger) *CaseService {
	if now == nil {
		now = time.Now
	}
	return &CaseService{cases: cases, now: now, logger: defaultLogger(logger).With("service", caseServiceName)}
}

// GetCase returns a case by id.
func (s *CaseService) GetCase(ctx context.Context, id string) (persistence.Case, error) {
	c, err := s.cases.GetCase(ctx, id)
	if err != nil {
		return persistence.Case{}, storeFailure(err, "GetCase", "case "+id)
	}
	return c, nil
}

// UpdateCase applies an administrative edit. Status may be set directly,
// but assigning a technician always forces the status to assigned.
func (s *CaseService) UpdateCase(ctx context.Context, id string, req CaseUpdateRequest) (persistence.Case, error) {
	logger := serviceLogger(ctx, s.logger, caseServiceName, "UpdateCase", "case_id", id)

	vErr := &ValidationError{}
	if req.Status != nil && !req.Status.Valid() {
		vErr.add("status", "status must be pending, assigned or completed")
	}
	if req.Type != nil && strings.TrimSpace(*req.Type) == "" {
		vErr.add("type", "type cannot be empty")
	}
	if err := vErr.orNil(); err != nil {
		return persistence.Case{}, err
	}

	update := persistence.CaseUpdate{
		Customer:     req.Customer,
		Type:         req.Type,
		Status:       req.Status,
		TechnicianID: req.TechnicianID,
		UpdatedAt:    s.now().UTC(),
	}
	if req.TechnicianID != nil && strings.TrimSpace(*req.TechnicianID) != "" {
		assigned := persistence.CaseStatusAssigned
		if req.Status != nil && *req.Status != assigned {
			logger.InfoContext(ctx, "technician assignment overrides requested status", "requested_status", string(*req.Status))
		}
		update.Status = &assigned
	}

	updated, err := s.cases.UpdateCase(ctx, id, update)
	if err != nil {
		return persistence.Case{}, storeFailure(err, "UpdateCase", "case "+id)
	}
	logger.InfoContext(ctx, "case updated", "status", string(updated.Status))
	return updated, nil
}

// AdvanceStatus moves a case forward along pending, assigned, completed.
// Moving backwards or staying put returns ErrInvalidTransition.
func (s *CaseService) AdvanceStatus(ctx context.Context, id string, next persistence.CaseStatus) (persistence.Case, error) {
	if !next.Valid() {
		vErr := &ValidationError{}
		vErr.add("status", "status must be pending, assigned or completed")
		return persistence.Case{}, vErr
	}

	current, err := s.GetCase(ctx, id)
	if err != nil {
		return persistence.Case{}, err
	}
	if statusRank[next] <= statusRank[current.Status] {
		return persistence.Case{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status, next)
	}

	updated, err := s.cases.UpdateCase(ctx, id, persistence.CaseUpdate{Status: &next, UpdatedAt: s.now().UTC()})
	if err != nil {
		return persistence.Case{}, storeFailure(err, "UpdateCase", "case "+id)
	}

	serviceLogger(ctx, s.logger, caseServiceName, "AdvanceStatus", "case_id", id).
		InfoContext(ctx, "case status advanced", "from", string(current.Status), "to", string(next))
	return updated, nil
}
