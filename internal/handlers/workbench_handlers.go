package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"weather-workbench/internal/codec"
	"weather-workbench/internal/models"
	"weather-workbench/internal/records"
	"weather-workbench/internal/repository"
	"weather-workbench/internal/services"
	"weather-workbench/pkg/logging"
	"weather-workbench/pkg/metrics"
)

// WorkbenchHandler exposes the workbench session over HTTP
type WorkbenchHandler struct {
	service     *services.WorkbenchService
	defaultFile string
	logger      *logging.StructuredLogger
	metrics     *metrics.Collector
}

// NewWorkbenchHandler creates a new workbench handler
func NewWorkbenchHandler(
	service *services.WorkbenchService,
	defaultFile string,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *WorkbenchHandler {
	return &WorkbenchHandler{
		service:     service,
		defaultFile: defaultFile,
		logger:      logger,
		metrics:     metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error         string   `json:"error"`
	Message       string   `json:"message"`
	Code          int      `json:"code"`
	Row           *int     `json:"row,omitempty"`
	Field         string   `json:"field,omitempty"`
	Constraints   string   `json:"constraints,omitempty"`
	Notifications []string `json:"notifications,omitempty"`
}

// TableResponse describes the committed set and any staged edit
type TableResponse struct {
	Records []models.Record `json:"records"`
	Table   [][]string      `json:"table"`
	Dirty   bool            `json:"dirty"`
	Staged  [][]string      `json:"staged,omitempty"`
}

// StageRequest carries the editor rows, seven cells each
type StageRequest struct {
	Rows [][]string `json:"rows"`
}

// FileRequest names a record file under the data directory
type FileRequest struct {
	File string `json:"file"`
}

// OperationResponse reports a mutating operation
type OperationResponse struct {
	Records       int      `json:"records"`
	Appended      int      `json:"appended,omitempty"`
	File          string   `json:"file,omitempty"`
	Notifications []string `json:"notifications,omitempty"`
}

// ValueResponse carries a scalar over a period
type ValueResponse struct {
	Value float64 `json:"value"`
	Start string  `json:"start"`
	End   string  `json:"end"`
}

// DatesResponse lists days formatted dd.MM.yyyy
type DatesResponse struct {
	Dates []string `json:"dates"`
}

// WindRunsResponse lists index runs of the committed table
type WindRunsResponse struct {
	Runs          [][]int  `json:"runs"`
	Notifications []string `json:"notifications,omitempty"`
}

// Period is one bounded drift period
type Period struct {
	Start              string          `json:"start"`
	End                string          `json:"end"`
	AverageTemperature float64         `json:"average_temperature"`
	AveragePressure    float64         `json:"average_pressure"`
	Records            []models.Record `json:"records"`
}

// PeriodsResponse lists bounded drift periods
type PeriodsResponse struct {
	TemperaturePct float64  `json:"temperature_pct"`
	PressurePct    float64  `json:"pressure_pct"`
	Periods        []Period `json:"periods"`
	Notifications  []string `json:"notifications,omitempty"`
}

// GraphResponse carries the points a chart is drawn from
type GraphResponse struct {
	Title  string          `json:"title"`
	Points []records.Point `json:"points"`
}

// GetRecords handles GET /api/records
func (h *WorkbenchHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	set := h.service.Records()
	staged, dirty := h.service.Staged()

	h.sendJSON(w, TableResponse{
		Records: set.Records(),
		Table:   codec.ToTable(set),
		Dirty:   dirty,
		Staged:  staged,
	}, http.StatusOK)
}

// StageTable handles PUT /api/staging
func (h *WorkbenchHandler) StageTable(w http.ResponseWriter, r *http.Request) {
	var req StageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, r, "invalid_request", "request body must be {\"rows\": [[...7 cells...]]}", http.StatusBadRequest)
		return
	}

	h.service.Stage(r.Context(), req.Rows)
	h.sendJSON(w, OperationResponse{Records: len(req.Rows)}, http.StatusOK)
}

// DiscardStaged handles DELETE /api/staging
func (h *WorkbenchHandler) DiscardStaged(w http.ResponseWriter, r *http.Request) {
	h.service.Discard(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// CommitStaged handles POST /api/staging/commit
func (h *WorkbenchHandler) CommitStaged(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Commit(r.Context()); err != nil {
		h.sendServiceError(w, r, err, nil)
		return
	}
	h.sendJSON(w, OperationResponse{Records: h.service.Records().Len()}, http.StatusOK)
}

// OpenFile handles POST /api/records/open
func (h *WorkbenchHandler) OpenFile(w http.ResponseWriter, r *http.Request) {
	file, ok := h.fileFromRequest(w, r)
	if !ok {
		return
	}

	n, err := h.service.Open(r.Context(), file, queryConfirmer(r))
	if err != nil {
		h.sendServiceError(w, r, err, nil)
		return
	}
	h.sendJSON(w, OperationResponse{Records: n, File: file}, http.StatusOK)
}

// SaveFile handles POST /api/records/save
func (h *WorkbenchHandler) SaveFile(w http.ResponseWriter, r *http.Request) {
	file, ok := h.fileFromRequest(w, r)
	if !ok {
		return
	}

	n, err := h.service.Save(r.Context(), file, queryConfirmer(r))
	if err != nil {
		h.sendServiceError(w, r, err, nil)
		return
	}
	h.sendJSON(w, OperationResponse{Records: n, File: file}, http.StatusOK)
}

// SortBySeason handles POST /api/records/sort-by-season
func (h *WorkbenchHandler) SortBySeason(w http.ResponseWriter, r *http.Request) {
	if err := h.service.SortPressureBySeason(r.Context(), queryConfirmer(r)); err != nil {
		h.sendServiceError(w, r, err, nil)
		return
	}
	h.sendJSON(w, OperationResponse{Records: h.service.Records().Len()}, http.StatusOK)
}

// Forecast handles POST /api/records/forecast
func (h *WorkbenchHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.Forecast(r.Context(), queryConfirmer(r))
	if err != nil {
		h.sendServiceError(w, r, err, nil)
		return
	}
	h.sendJSON(w, OperationResponse{
		Records:       h.service.Records().Len(),
		Appended:      n,
		Notifications: []string{services.NoticeForecastDone},
	}, http.StatusOK)
}

// AverageTemperature handles GET /api/analysis/average-temperature
func (h *WorkbenchHandler) AverageTemperature(w http.ResponseWriter, r *http.Request) {
	h.average(w, r, h.service.AverageTemperature)
}

// AveragePressure handles GET /api/analysis/average-pressure
func (h *WorkbenchHandler) AveragePressure(w http.ResponseWriter, r *http.Request) {
	h.average(w, r, h.service.AveragePressure)
}

type averageFunc func(ctx context.Context, start, end models.Date, c services.Confirmer) (float64, error)

func (h *WorkbenchHandler) average(w http.ResponseWriter, r *http.Request, fn averageFunc) {
	start, end, ok := h.periodFromQuery(w, r)
	if !ok {
		return
	}

	value, err := fn(r.Context(), start, end, queryConfirmer(r))
	if err != nil {
		h.sendServiceError(w, r, err, nil)
		return
	}
	h.sendJSON(w, ValueResponse{
		Value: value,
		Start: r.URL.Query().Get("start"),
		End:   r.URL.Query().Get("end"),
	}, http.StatusOK)
}

// HighestHumidity handles GET /api/analysis/highest-humidity
func (h *WorkbenchHandler) HighestHumidity(w http.ResponseWriter, r *http.Request) {
	start, end, ok := h.periodFromQuery(w, r)
	if !ok {
		return
	}

	dates, err := h.service.HighestHumidityDays(r.Context(), start, end, queryConfirmer(r))
	if err != nil {
		h.sendServiceError(w, r, err, nil)
		return
	}

	resp := DatesResponse{Dates: make([]string, len(dates))}
	for i, d := range dates {
		resp.Dates[i] = d.String()
	}
	h.sendJSON(w, resp, http.StatusOK)
}

// WindRuns handles GET /api/analysis/wind-runs
func (h *WorkbenchHandler) WindRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.service.StableWindRuns(r.Context())
	if err != nil {
		h.sendServiceError(w, r, err, nil)
		return
	}
	if runs == nil {
		runs = [][]int{}
	}
	h.sendJSON(w, WindRunsResponse{
		Runs:          runs,
		Notifications: []string{services.NoticeWindRuns},
	}, http.StatusOK)
}

// Periods handles GET /api/analysis/periods
func (h *WorkbenchHandler) Periods(w http.ResponseWriter, r *http.Request) {
	settings := h.service.Settings()
	temperaturePct, ok := h.floatFromQuery(w, r, "temperature_pct", settings.TemperaturePct)
	if !ok {
		return
	}
	pressurePct, ok := h.floatFromQuery(w, r, "pressure_pct", settings.PressurePct)
	if !ok {
		return
	}

	periods, err := h.service.BoundedDriftPeriodsWith(r.Context(), temperaturePct, pressurePct, queryConfirmer(r))
	if err != nil {
		h.sendServiceError(w, r, err, nil)
		return
	}

	resp := PeriodsResponse{
		TemperaturePct: temperaturePct,
		PressurePct:    pressurePct,
		Periods:        make([]Period, 0, len(periods)),
	}
	for _, p := range periods {
		// periods hold at least three records, so the averages cannot fail
		avgT, _ := p.AverageTemperature()
		avgP, _ := p.AveragePressure()
		resp.Periods = append(resp.Periods, Period{
			Start:              p.At(0).Date().String(),
			End:                p.At(p.Len() - 1).Date().String(),
			AverageTemperature: avgT,
			AveragePressure:    avgP,
			Records:            p.Records(),
		})
	}
	if len(periods) == 0 {
		resp.Notifications = []string{services.NoticeNoPeriods}
	}
	h.sendJSON(w, resp, http.StatusOK)
}

// Graph handles GET /api/graphs/{field}
func (h *WorkbenchHandler) Graph(w http.ResponseWriter, r *http.Request) {
	field := records.Field(mux.Vars(r)["field"])

	var (
		chart   capturedChart
		notices collectedNotices
	)
	if err := h.service.Graph(r.Context(), field, &chart, &notices, queryConfirmer(r)); err != nil {
		h.sendServiceError(w, r, err, notices.all())
		return
	}
	h.sendJSON(w, GraphResponse{Title: chart.title, Points: chart.points}, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *WorkbenchHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"records":   h.service.Records().Len(),
		"dirty":     h.service.Dirty(),
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, http.StatusOK)
}

// fileFromRequest reads an optional {"file": ...} body, defaulting to the configured file
func (h *WorkbenchHandler) fileFromRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req FileRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.sendError(w, r, "invalid_request", "request body must be {\"file\": \"name.txt\"}", http.StatusBadRequest)
			return "", false
		}
	}
	if req.File == "" {
		req.File = h.defaultFile
	}
	return req.File, true
}

// periodFromQuery parses the start and end query parameters (YYYY-MM-DD)
func (h *WorkbenchHandler) periodFromQuery(w http.ResponseWriter, r *http.Request) (models.Date, models.Date, bool) {
	start, err := parseDate(r.URL.Query().Get("start"))
	if err != nil {
		h.sendError(w, r, "invalid_request", "invalid start, expected YYYY-MM-DD", http.StatusBadRequest)
		return models.Date{}, models.Date{}, false
	}
	end, err := parseDate(r.URL.Query().Get("end"))
	if err != nil {
		h.sendError(w, r, "invalid_request", "invalid end, expected YYYY-MM-DD", http.StatusBadRequest)
		return models.Date{}, models.Date{}, false
	}
	return start, end, true
}

func (h *WorkbenchHandler) floatFromQuery(w http.ResponseWriter, r *http.Request, key string, def float64) (float64, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		h.sendError(w, r, "invalid_request", "invalid "+key+", expected a number", http.StatusBadRequest)
		return 0, false
	}
	return v, true
}

func parseDate(s string) (models.Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return models.Date{}, err
	}
	return models.Date{Year: t.Year(), Month: models.Month(t.Month()), Day: uint(t.Day())}, nil
}

// queryConfirmer approves prompts only when the request carries confirm=true
func queryConfirmer(r *http.Request) services.Confirmer {
	approve, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	return services.ConfirmFunc(func(context.Context, string) bool {
		return approve
	})
}

// collectedNotices gathers notifications for the response body
type collectedNotices struct {
	infos  []string
	errors []string
}

func (n *collectedNotices) Notify(_ context.Context, message string) {
	n.infos = append(n.infos, message)
}

func (n *collectedNotices) NotifyError(_ context.Context, message string) {
	n.errors = append(n.errors, message)
}

func (n *collectedNotices) all() []string {
	return append(append([]string(nil), n.infos...), n.errors...)
}

// capturedChart keeps the rendered series so it can be returned as JSON
type capturedChart struct {
	points []records.Point
	title  string
}

func (c *capturedChart) Render(_ context.Context, points []records.Point, title string) error {
	c.points, c.title = points, title
	return nil
}

// sendJSON sends a JSON response
func (h *WorkbenchHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *WorkbenchHandler) sendError(w http.ResponseWriter, r *http.Request, errorType, message string, statusCode int) {
	h.metrics.RecordAPIError(errorType, routeTemplate(r))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// sendServiceError maps a service failure onto a status code and error body
func (h *WorkbenchHandler) sendServiceError(w http.ResponseWriter, r *http.Request, err error, notifications []string) {
	ctx := r.Context()

	var (
		confirmErr *services.ConfirmationError
		validErr   *models.ValidationError
		parseErr   *codec.ParseError
		ioErr      *repository.IOError
	)

	response := ErrorResponse{Message: err.Error(), Notifications: notifications}
	errorType := "internal_error"

	switch {
	case errors.As(err, &confirmErr):
		response.Code, errorType = http.StatusConflict, "confirmation_required"
		response.Message = confirmErr.Prompt
	case errors.As(err, &validErr):
		response.Code, errorType = http.StatusUnprocessableEntity, "validation_failure"
		response.Field, response.Constraints = validErr.Field, models.ValidationConstraints
		if validErr.Row >= 0 {
			row := validErr.Row
			response.Row = &row
		}
	case errors.As(err, &parseErr):
		response.Code, errorType = http.StatusUnprocessableEntity, "parse_failure"
		row := parseErr.Record
		response.Row, response.Field = &row, parseErr.Field
		response.Constraints = models.ValidationConstraints
	case errors.Is(err, services.ErrUnsavedChanges):
		response.Code, errorType = http.StatusConflict, "unsaved_changes"
	case errors.Is(err, services.ErrInvertedRange),
		errors.Is(err, services.ErrInvalidBand),
		errors.Is(err, repository.ErrInvalidPath),
		errors.Is(err, records.ErrUnknownField):
		response.Code, errorType = http.StatusBadRequest, "invalid_request"
	case errors.Is(err, models.ErrInvalidRange):
		response.Code, errorType = http.StatusNotFound, "no_data_for_period"
	case errors.Is(err, models.ErrEmptySet),
		errors.Is(err, models.ErrNotEnoughData),
		errors.Is(err, models.ErrUnknownMonth):
		response.Code, errorType = http.StatusUnprocessableEntity, "not_enough_data"
	case errors.As(err, &ioErr):
		response.Code, errorType = http.StatusInternalServerError, "io_failure"
		response.Message = "file could not be opened or written"
	default:
		response.Code = http.StatusInternalServerError
		response.Message = "internal error"
	}
	response.Error = http.StatusText(response.Code)

	if response.Code >= http.StatusInternalServerError {
		h.logger.Error(ctx, "[API_ERROR] Request failed", logging.Fields{
			"path":       r.URL.Path,
			"error_type": errorType,
		}, err)
	} else {
		h.logger.Debug(ctx, "[API_REJECTED] Request rejected", logging.Fields{
			"path":       r.URL.Path,
			"error_type": errorType,
			"reason":     err.Error(),
		})
	}

	h.metrics.RecordAPIError(errorType, routeTemplate(r))
	h.sendJSON(w, response, response.Code)
}

// RegisterRoutes registers all workbench API routes
func (h *WorkbenchHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/records", h.GetRecords).Methods("GET")
	router.HandleFunc("/api/records/open", h.OpenFile).Methods("POST")
	router.HandleFunc("/api/records/save", h.SaveFile).Methods("POST")
	router.HandleFunc("/api/records/sort-by-season", h.SortBySeason).Methods("POST")
	router.HandleFunc("/api/records/forecast", h.Forecast).Methods("POST")

	router.HandleFunc("/api/staging", h.StageTable).Methods("PUT")
	router.HandleFunc("/api/staging", h.DiscardStaged).Methods("DELETE")
	router.HandleFunc("/api/staging/commit", h.CommitStaged).Methods("POST")

	router.HandleFunc("/api/analysis/average-temperature", h.AverageTemperature).Methods("GET")
	router.HandleFunc("/api/analysis/average-pressure", h.AveragePressure).Methods("GET")
	router.HandleFunc("/api/analysis/highest-humidity", h.HighestHumidity).Methods("GET")
	router.HandleFunc("/api/analysis/wind-runs", h.WindRuns).Methods("GET")
	router.HandleFunc("/api/analysis/periods", h.Periods).Methods("GET")

	router.HandleFunc("/api/graphs/{field}", h.Graph).Methods("GET")

	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
