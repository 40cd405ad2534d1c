package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/fieldservice-scheduler/internal/application"
	"github.com/example/fieldservice-scheduler/internal/logging"
	"github.com/example/fieldservice-scheduler/internal/scheduler"
)

func TestHandleServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		step   string
	}{
		{
			name:   "slot taken",
			err:    &application.ConflictError{TechnicianID: 3, Policy: scheduler.PolicyBuffered},
			status: http.StatusConflict,
			code:   codeSlotTaken,
		},
		{
			name:   "store failure",
			err:    &application.StoreError{Step: application.StepInsertAppointment, Err: errors.New("disk full")},
			status: http.StatusInternalServerError,
			code:   codeBookingFailed,
			step:   application.StepInsertAppointment,
		},
		{
			name: "integrity incident",
			err: &application.CompensationFailure{
				Step:         application.StepInsertAppointment,
				CaseID:       "case-1",
				Original:     errors.New("disk full"),
				Compensation: errors.New("timeout"),
			},
			status: http.StatusInternalServerError,
			code:   codeIntegrityIncident,
			step:   application.StepInsertAppointment,
		},
		{
			name:   "validation",
			err:    &application.ValidationError{FieldErrors: map[string]string{"end": "end must be after start"}},
			status: http.StatusUnprocessableEntity,
			code:   codeValidation,
		},
		{
			name:   "not synchronized",
			err:    fmt.Errorf("profile x: %w", application.ErrTechnicianNotSynchronized),
			status: http.StatusUnprocessableEntity,
			code:   codeNotSynchronized,
		},
		{
			name:   "no providers",
			err:    application.ErrNoProviders,
			status: http.StatusUnprocessableEntity,
			code:   codeNoProviders,
		},
		{
			name:   "not found",
			err:    fmt.Errorf("case x: %w", application.ErrNotFound),
			status: http.StatusNotFound,
			code:   codeNotFound,
		},
		{
			name:   "unexpected",
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
			code:   codeInternal,
		},
	}

	r := newResponder(logging.Discard())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.handleServiceError(context.Background(), rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.ErrorCode)
			assert.Equal(t, tt.step, body.Step)
			assert.NotEmpty(t, body.Message)
		})
	}
}
