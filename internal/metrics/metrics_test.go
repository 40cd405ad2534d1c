package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestCollectorsAreExposed(t *testing.T) {
	RecordBooking("staff", OutcomeBooked)
	RecordSagaStepFailure("InsertAppointment")
	RecordBlocks("recurring", 3)
	RecordBlocks("single", 0)
	RecordReconciliation(map[string]int{"OK": 2, "": 1}, 4, 1)

	body := scrape(t)
	assert.Contains(t, body, `fieldservice_bookings_total{channel="staff",outcome="booked"}`)
	assert.Contains(t, body, `fieldservice_saga_step_failures_total{step="InsertAppointment"}`)
	assert.Contains(t, body, `fieldservice_blocks_created_total{source="recurring"} 3`)
	assert.NotContains(t, body, `source="single"`)
	assert.Contains(t, body, `fieldservice_reconcile_views{classification="OK"} 2`)
	assert.Contains(t, body, `fieldservice_reconcile_views{classification="none"} 1`)
	assert.Contains(t, body, `fieldservice_reconcile_dangling_references 4`)
	assert.Contains(t, body, `fieldservice_reconcile_malformed_references 1`)
}

func TestRecordReconciliationResetsClassifications(t *testing.T) {
	RecordReconciliation(map[string]int{"MANUAL": 1}, 0, 0)
	RecordReconciliation(map[string]int{"ERROR_GHOST": 1}, 0, 0)

	body := scrape(t)
	assert.NotContains(t, body, `classification="MANUAL"`)
	assert.Contains(t, body, `fieldservice_reconcile_views{classification="ERROR_GHOST"} 1`)
}
