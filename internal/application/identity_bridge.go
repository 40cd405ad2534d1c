package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const identityBridgeName = "IdentityBridge"

// IdentityBridge maps identity-store technician ids to scheduling-store
// ids by email. There is no shared key between the two stores.
type IdentityBridge struct {
	profiles    ProfileDirectory
	technicians TechnicianDirectory
	logger      *slog.Logger
}

// NewIdentityBridge wires the two directories.
func NewIdentityBridge(profiles ProfileDirectory, technicians TechnicianDirectory, logger *slog.Logger) *IdentityBridge {
	return &IdentityBridge{
		profiles:    profiles,
		technicians: technicians,
		logger:      defaultLogger(logger).With("service", identityBridgeName),
	}
}

// ResolveSchedulingID returns the scheduling-store id of identityID. A
// missing profile or technician row yields ErrTechnicianNotSynchronized.
func (b *IdentityBridge) ResolveSchedulingID(ctx context.Context, identityID string) (int64, error) {
	logger := serviceLogger(ctx, b.logger, identityBridgeName, "ResolveSchedulingID", "identity_id", identityID)

	identityID = strings.TrimSpace(identityID)
	if identityID == "" {
		vErr := &ValidationError{}
		vErr.add("technician_identity_id", "technician identity is required")
		return 0, vErr
	}

	profile, err := b.profiles.GetTechnicianProfile(ctx, identityID)
	if err != nil {
		if isNotFound(err) {
			logger.InfoContext(ctx, "technician profile not found")
			return 0, fmt.Errorf("profile %s: %w", identityID, ErrTechnicianNotSynchronized)
		}
		return 0, &StoreError{Step: "GetTechnicianProfile", Err: err}
	}

	technician, err := b.technicians.GetTechnicianByEmail(ctx, profile.Email)
	if err != nil {
		if isNotFound(err) {
			logger.InfoContext(ctx, "no scheduling row for technician email", "email", profile.Email)
			return 0, fmt.Errorf("email %s: %w", profile.Email, ErrTechnicianNotSynchronized)
		}
		return 0, &StoreError{Step: "GetTechnicianByEmail", Err: err}
	}
	return technician.ID, nil
}
