package handlers

import (
	"encoding/json"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/time/rate"

	"weather-workbench/internal/repository"
	"weather-workbench/internal/services"
	"weather-workbench/pkg/logging"
	"weather-workbench/pkg/metrics"
)

const sampleFile = `2021 12 30 -3 775 35 N
2021 12 31 -4 776 36 N
2022 1 1 -5 780 30 N
2022 1 2 -5 779 36 SW
2022 3 1 8 755 50 SW`

type testServer struct {
	router  *mux.Router
	service *services.WorkbenchService
	metrics *metrics.Collector
	dir     string
}

func newTestServer(t *testing.T, limiter *rate.Limiter) *testServer {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "weather.txt"), []byte(sampleFile), 0o644); err != nil {
		t.Fatal(err)
	}

	logger := logging.NewStructuredLogger("test", "0.0.0", logging.DebugLevel)
	logger.SetOutput(io.Discard)
	collector := metrics.NewCollector("test")
	repo := repository.NewFileRepository(dir, logger, collector)
	svc := services.NewWorkbenchService(repo, logger, collector, services.DefaultAnalysisSettings, rand.New(rand.NewPCG(1, 2)))

	router := mux.NewRouter()
	router.Use(RequestIDMiddleware, RateLimitMiddleware(limiter, collector), MetricsMiddleware(collector, logger))
	NewWorkbenchHandler(svc, "weather.txt", logger, collector).RegisterRoutes(router)

	return &testServer{router: router, service: svc, metrics: collector, dir: dir}
}

func (s *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) open(t *testing.T) {
	t.Helper()
	if rec := s.do(t, "POST", "/api/records/open?confirm=true", ""); rec.Code != http.StatusOK {
		t.Fatalf("open status = %d, body %s", rec.Code, rec.Body)
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestOpenFile(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, "POST", "/api/records/open", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("unconfirmed open status = %d, want 409", rec.Code)
	}
	if resp := decode[ErrorResponse](t, rec); resp.Message != services.PromptOpen {
		t.Errorf("message = %q, want the open prompt", resp.Message)
	}

	rec = s.do(t, "POST", "/api/records/open?confirm=true", `{"file": "weather.txt"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("open status = %d, body %s", rec.Code, rec.Body)
	}
	if resp := decode[OperationResponse](t, rec); resp.Records != 5 || resp.File != "weather.txt" {
		t.Errorf("open response = %+v", resp)
	}

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"missing file", `{"file": "missing.txt"}`, http.StatusInternalServerError},
		{"escaping path", `{"file": "../weather.txt"}`, http.StatusBadRequest},
		{"malformed body", `{"file":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := s.do(t, "POST", "/api/records/open?confirm=true", tt.body); rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

func TestOpenFile_Malformed(t *testing.T) {
	s := newTestServer(t, nil)
	if err := os.WriteFile(filepath.Join(s.dir, "bad.txt"), []byte("2022 1 x 1 760 50 N"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := s.do(t, "POST", "/api/records/open?confirm=true", `{"file": "bad.txt"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	resp := decode[ErrorResponse](t, rec)
	if resp.Field != "day" || resp.Row == nil || *resp.Row != 0 {
		t.Errorf("error response = %+v", resp)
	}
}

func TestStagingLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	s.open(t)

	rows := `{"rows": [["2022","5","1","20","735","66","E"],["2022","5","2","21","736","101","E"]]}`
	if rec := s.do(t, "PUT", "/api/staging", rows); rec.Code != http.StatusOK {
		t.Fatalf("stage status = %d", rec.Code)
	}

	table := decode[TableResponse](t, s.do(t, "GET", "/api/records", ""))
	if !table.Dirty || len(table.Staged) != 2 || len(table.Records) != 5 {
		t.Errorf("table = dirty %v, staged %d, records %d", table.Dirty, len(table.Staged), len(table.Records))
	}

	if rec := s.do(t, "GET", "/api/analysis/wind-runs", ""); rec.Code != http.StatusConflict {
		t.Errorf("wind runs while dirty status = %d, want 409", rec.Code)
	}

	rec := s.do(t, "POST", "/api/staging/commit", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("commit status = %d, want 422", rec.Code)
	}
	resp := decode[ErrorResponse](t, rec)
	if resp.Row == nil || *resp.Row != 1 || resp.Field != "humidity" || resp.Constraints == "" {
		t.Errorf("validation response = %+v", resp)
	}

	if rec := s.do(t, "PUT", "/api/staging", `{"rows": [["2022","5","1","20","735","66","E"]]}`); rec.Code != http.StatusOK {
		t.Fatalf("stage status = %d", rec.Code)
	}
	if rec := s.do(t, "DELETE", "/api/staging", ""); rec.Code != http.StatusNoContent {
		t.Errorf("discard status = %d, want 204", rec.Code)
	}
	if s.service.Dirty() {
		t.Error("discard left the session dirty")
	}

	if rec := s.do(t, "PUT", "/api/staging", `{"rows": [["2022","5","1","20","735","66","E"]]}`); rec.Code != http.StatusOK {
		t.Fatalf("stage status = %d", rec.Code)
	}
	if rec := s.do(t, "POST", "/api/staging/commit", ""); rec.Code != http.StatusOK {
		t.Fatalf("commit status = %d, body %s", rec.Code, rec.Body)
	}
	if got := s.service.Records().Len(); got != 1 {
		t.Errorf("committed records = %d, want 1", got)
	}
}

func TestAnalysisEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	s.open(t)

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"average temperature", "/api/analysis/average-temperature?start=2021-12-31&end=2022-01-02", http.StatusOK},
		{"inverted range", "/api/analysis/average-temperature?start=2022-01-02&end=2021-12-31", http.StatusBadRequest},
		{"no records in range", "/api/analysis/average-pressure?start=2023-01-01&end=2023-12-31", http.StatusNotFound},
		{"malformed date", "/api/analysis/average-pressure?start=31.12.2021&end=2022-01-02", http.StatusBadRequest},
		{"missing end", "/api/analysis/highest-humidity?start=2021-12-31", http.StatusBadRequest},
		{"zero band", "/api/analysis/periods?temperature_pct=0", http.StatusBadRequest},
		{"unknown field", "/api/graphs/wind", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := s.do(t, "GET", tt.target, ""); rec.Code != tt.status {
				t.Errorf("status = %d, want %d, body %s", rec.Code, tt.status, rec.Body)
			}
		})
	}

	avg := decode[ValueResponse](t, s.do(t, "GET", "/api/analysis/average-temperature?start=2021-12-31&end=2022-01-02", ""))
	if avg.Value != -4.67 {
		t.Errorf("average temperature = %v, want -4.67", avg.Value)
	}

	dates := decode[DatesResponse](t, s.do(t, "GET", "/api/analysis/highest-humidity?start=2021-12-30&end=2022-01-31", ""))
	if want := []string{"31.12.2021", "02.01.2022"}; strings.Join(dates.Dates, ",") != strings.Join(want, ",") {
		t.Errorf("highest humidity = %v, want %v", dates.Dates, want)
	}

	runs := decode[WindRunsResponse](t, s.do(t, "GET", "/api/analysis/wind-runs", ""))
	if len(runs.Runs) != 2 || len(runs.Runs[0]) != 3 || len(runs.Runs[1]) != 2 {
		t.Errorf("wind runs = %v", runs.Runs)
	}

	periods := decode[PeriodsResponse](t, s.do(t, "GET", "/api/analysis/periods", ""))
	if periods.TemperaturePct != 3.6 || periods.PressurePct != 2.5 {
		t.Errorf("default bands = %v, %v", periods.TemperaturePct, periods.PressurePct)
	}

	graph := decode[GraphResponse](t, s.do(t, "GET", "/api/graphs/pressure", ""))
	if graph.Title != "Pressure graph" || len(graph.Points) != 5 {
		t.Errorf("graph = %q with %d points", graph.Title, len(graph.Points))
	}
}

func TestGraph_NotEnoughData(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, "GET", "/api/graphs/temperature", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	resp := decode[ErrorResponse](t, rec)
	if len(resp.Notifications) != 1 || resp.Notifications[0] != services.NoticeNotEnoughData {
		t.Errorf("notifications = %v", resp.Notifications)
	}
}

func TestSortAndForecast(t *testing.T) {
	s := newTestServer(t, nil)
	s.open(t)

	if rec := s.do(t, "POST", "/api/records/sort-by-season", ""); rec.Code != http.StatusConflict {
		t.Errorf("unconfirmed sort status = %d, want 409", rec.Code)
	}
	if rec := s.do(t, "POST", "/api/records/sort-by-season?confirm=true", ""); rec.Code != http.StatusOK {
		t.Errorf("sort status = %d", rec.Code)
	}
	if got := s.service.Records().At(0).Pressure; got != 775 {
		t.Errorf("first pressure after sort = %d, want 775", got)
	}

	rec := s.do(t, "POST", "/api/records/forecast", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("forecast status = %d, body %s", rec.Code, rec.Body)
	}
	if resp := decode[OperationResponse](t, rec); resp.Appended != 30 || resp.Records != 35 {
		t.Errorf("forecast response = %+v", resp)
	}

	rec = s.do(t, "POST", "/api/records/save", `{"file": "forecast.txt"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d, body %s", rec.Code, rec.Body)
	}
	if _, err := os.Stat(filepath.Join(s.dir, "forecast.txt")); err != nil {
		t.Errorf("saved file missing: %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	s := newTestServer(t, rate.NewLimiter(rate.Every(time.Hour), 2))

	rec := s.do(t, "GET", "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("response carries no request ID")
	}

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("request ID = %q, want the caller's", got)
	}

	if rec := s.do(t, "GET", "/health", ""); rec.Code != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", rec.Code)
	}
	if got := testutil.ToFloat64(s.metrics.RateLimitDeniedTotal); got != 1 {
		t.Errorf("rate_limit_denied_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(s.metrics.APIRequestsTotal.WithLabelValues("/health", "GET", "200")); got != 2 {
		t.Errorf("api_requests_total{/health} = %v, want 2", got)
	}
}

func TestDocs(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, "GET", "/api/docs/openapi.json", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("openapi status = %d", rec.Code)
	}
	doc := decode[map[string]interface{}](t, rec)
	paths, _ := doc["paths"].(map[string]interface{})
	if _, ok := paths["/api/analysis/periods"]; !ok {
		t.Error("openapi document lacks /api/analysis/periods")
	}

	rec = s.do(t, "GET", "/api/docs", "")
	if !strings.Contains(rec.Body.String(), APITitle) {
		t.Error("docs page lacks the API title")
	}
}
