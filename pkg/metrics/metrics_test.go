package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewCollector_IndependentRegistries(t *testing.T) {
	a := NewCollector("workbench")
	b := NewCollector("workbench")

	a.RecordsLoadedTotal.Add(3)
	if got := testutil.ToFloat64(a.RecordsLoadedTotal); got != 3 {
		t.Errorf("a.RecordsLoadedTotal = %v, want 3", got)
	}
	if got := testutil.ToFloat64(b.RecordsLoadedTotal); got != 0 {
		t.Errorf("b.RecordsLoadedTotal = %v, want 0", got)
	}
}

func TestCollector_Counters(t *testing.T) {
	c := NewCollector("workbench")

	c.RecordAPIRequest("/api/records", "GET", "200")
	c.RecordAPIRequest("/api/records", "GET", "200")
	c.RecordAPIError("validation_failure", "/api/staging/commit")
	c.RecordCodecError("day")
	c.RecordStorageError("open")
	c.RecordValidationFailure("humidity")

	if got := testutil.ToFloat64(c.APIRequestsTotal.WithLabelValues("/api/records", "GET", "200")); got != 2 {
		t.Errorf("api_requests_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.APIErrorsTotal.WithLabelValues("validation_failure", "/api/staging/commit")); got != 1 {
		t.Errorf("api_errors_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.CodecErrorsTotal.WithLabelValues("day")); got != 1 {
		t.Errorf("codec_errors_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.StorageErrorsTotal.WithLabelValues("open")); got != 1 {
		t.Errorf("storage_errors_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.ValidationFailuresTotal.WithLabelValues("humidity")); got != 1 {
		t.Errorf("validation_failures_total = %v, want 1", got)
	}
}

func TestCollector_OperationTimer(t *testing.T) {
	c := NewCollector("workbench")
	c.OperationTimer("sort_by_season").ObserveDuration()

	if got := testutil.CollectAndCount(c.OperationDuration); got != 1 {
		t.Errorf("operation_duration series = %d, want 1", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("workbench")
	c.CommittedRecords.Set(31)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "workbench_committed_records 31") {
		t.Errorf("metrics output missing committed_records gauge:\n%s", body)
	}
}
