package services

import (
	"context"
	"errors"
	"fmt"

	"weather-workbench/internal/models"
	"weather-workbench/internal/records"
	"weather-workbench/pkg/logging"
)

// ErrInvalidBand is returned for a drift band that is not a positive percentage
var ErrInvalidBand = errors.New("drift band must be a positive percentage")

// SortPressureBySeason sorts the committed set by pressure within each season
// run. It asks twice: once over unsaved edits, once because rows are reordered.
// Staged edits are dropped as the table is rebuilt from the sorted set.
func (s *WorkbenchService) SortPressureBySeason(ctx context.Context, c Confirmer) error {
	if err := s.confirmIfDirty(ctx, c, PromptSortUnsaved); err != nil {
		return err
	}
	if err := confirm(ctx, c, PromptSortReorders); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	timer := s.metrics.OperationTimer("sort_pressure_by_season")
	s.committed.SortPressureBySeason()
	duration := timer.ObserveDuration()
	s.clearStaged()

	s.logger.Info(ctx, "[SORT_COMPLETE] Pressure sorted within season runs", logging.Fields{
		"records":     s.committed.Len(),
		"season_runs": len(s.committed.SeasonRuns()),
		"duration_ms": duration.Milliseconds(),
	})
	return nil
}

// AverageTemperature returns the mean temperature of the committed records dated in [start, end]
func (s *WorkbenchService) AverageTemperature(ctx context.Context, start, end models.Date, c Confirmer) (float64, error) {
	set, err := s.periodQuery(ctx, start, end, c, PromptAverageUnsaved)
	if err != nil {
		return 0, err
	}
	defer s.metrics.OperationTimer("average_temperature").ObserveDuration()
	return set.AverageTemperature()
}

// AveragePressure returns the mean pressure of the committed records dated in [start, end]
func (s *WorkbenchService) AveragePressure(ctx context.Context, start, end models.Date, c Confirmer) (float64, error) {
	set, err := s.periodQuery(ctx, start, end, c, PromptAverageUnsaved)
	if err != nil {
		return 0, err
	}
	defer s.metrics.OperationTimer("average_pressure").ObserveDuration()
	return set.AveragePressure()
}

// HighestHumidityDays returns the dates in [start, end] sharing the highest humidity
func (s *WorkbenchService) HighestHumidityDays(ctx context.Context, start, end models.Date, c Confirmer) ([]models.Date, error) {
	set, err := s.periodQuery(ctx, start, end, c, PromptHumidityUnsaved)
	if err != nil {
		return nil, err
	}
	defer s.metrics.OperationTimer("highest_humidity").ObserveDuration()
	return set.HighestHumidityDates()
}

// periodQuery confirms over unsaved edits, then selects the committed records in [start, end].
// An inverted range yields ErrInvertedRange, an empty selection models.ErrInvalidRange.
func (s *WorkbenchService) periodQuery(ctx context.Context, start, end models.Date, c Confirmer, prompt string) (records.RecordSet, error) {
	if err := s.confirmIfDirty(ctx, c, prompt); err != nil {
		return records.RecordSet{}, err
	}
	if start.Compare(end) > 0 {
		return records.RecordSet{}, fmt.Errorf("%v - %v: %w", start, end, ErrInvertedRange)
	}

	set := s.Records().ByDateRange(start, end)
	if set.Len() == 0 {
		s.logger.Debug(ctx, "[PERIOD_EMPTY] No records for the requested period", logging.Fields{
			"start": start.String(),
			"end":   end.String(),
		})
		return records.RecordSet{}, fmt.Errorf("%v - %v: %w", start, end, models.ErrInvalidRange)
	}
	return set, nil
}

// StableWindRuns returns the committed-set index runs with an unchanged wind
// direction. The indices refer to the committed table, so it refuses to run
// while edits are staged.
func (s *WorkbenchService) StableWindRuns(ctx context.Context) ([][]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dirty {
		return nil, ErrUnsavedChanges
	}

	defer s.metrics.OperationTimer("stable_wind_runs").ObserveDuration()
	runs := s.committed.FindStableWindRuns()

	s.logger.Debug(ctx, "[WIND_RUNS] Stable wind runs found", logging.Fields{
		"runs": len(runs),
	})
	return runs, nil
}

// BoundedDriftPeriods segments the committed set with the configured bands
func (s *WorkbenchService) BoundedDriftPeriods(ctx context.Context, c Confirmer) ([]records.RecordSet, error) {
	return s.BoundedDriftPeriodsWith(ctx, s.settings.TemperaturePct, s.settings.PressurePct, c)
}

// BoundedDriftPeriodsWith segments the committed set into periods of at least
// three records whose temperature and pressure stay within the given percentages
// of the period's running average.
func (s *WorkbenchService) BoundedDriftPeriodsWith(ctx context.Context, temperaturePct, pressurePct float64, c Confirmer) ([]records.RecordSet, error) {
	if temperaturePct <= 0 || pressurePct <= 0 {
		return nil, fmt.Errorf("temperature %v%%, pressure %v%%: %w", temperaturePct, pressurePct, ErrInvalidBand)
	}
	if err := s.confirmIfDirty(ctx, c, PromptPeriodsUnsaved); err != nil {
		return nil, err
	}

	set := s.Records()
	timer := s.metrics.OperationTimer("bounded_drift_periods")
	periods := set.SegmentByBoundedDrift(temperaturePct, pressurePct)
	timer.ObserveDuration()

	s.logger.Info(ctx, "[PERIODS] Bounded drift periods found", logging.Fields{
		"temperature_pct": temperaturePct,
		"pressure_pct":    pressurePct,
		"records":         set.Len(),
		"periods":         len(periods),
	})
	return periods, nil
}

// Forecast appends a sampled forecast for the month after the last committed
// record. Staged edits are dropped as the table is rebuilt from the result.
func (s *WorkbenchService) Forecast(ctx context.Context, c Confirmer) (int, error) {
	if err := s.confirmIfDirty(ctx, c, PromptForecastUnsaved); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	timer := s.metrics.OperationTimer("forecast")
	appended, err := s.committed.AppendNextMonthForecast(s.rng)
	timer.ObserveDuration()
	if err != nil {
		s.logger.Error(ctx, "[FORECAST_ERROR] Forecast could not be generated", logging.Fields{
			"records": s.committed.Len(),
		}, err)
		return 0, err
	}

	s.clearStaged()
	s.metrics.ForecastRecordsTotal.Add(float64(appended))
	s.metrics.CommittedRecords.Set(float64(s.committed.Len()))

	last := s.committed.At(s.committed.Len() - 1)
	s.logger.Info(ctx, "[FORECAST_COMPLETE] Next month forecast appended", logging.Fields{
		"month":    last.Month.String(),
		"year":     last.Year,
		"appended": appended,
	})
	return appended, nil
}

// Graph renders field over the committed set. With fewer than three records
// the user is notified and the renderer is not called.
func (s *WorkbenchService) Graph(ctx context.Context, field records.Field, r Renderer, n Notifier, c Confirmer) error {
	if _, err := records.ParseField(string(field)); err != nil {
		return err
	}
	if err := s.confirmIfDirty(ctx, c, fmt.Sprintf(PromptGraphUnsavedTmpl, field)); err != nil {
		return err
	}

	points, title, err := s.Records().Graph(field)
	if errors.Is(err, models.ErrNotEnoughData) {
		n.Notify(ctx, NoticeNotEnoughData)
		return err
	}
	if err != nil {
		return err
	}

	if err := r.Render(ctx, points, title); err != nil {
		n.NotifyError(ctx, "The graph could not be drawn.")
		return fmt.Errorf("failed to render %s: %w", title, err)
	}
	return nil
}
