package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"weather-workbench/internal/codec"
	"weather-workbench/internal/models"
	"weather-workbench/internal/records"
	"weather-workbench/internal/repository"
	"weather-workbench/pkg/logging"
	"weather-workbench/pkg/metrics"
)

// AnalysisSettings holds the default drift bands in percent
type AnalysisSettings struct {
	TemperaturePct float64
	PressurePct    float64
}

// DefaultAnalysisSettings are the bands the workbench menu uses
var DefaultAnalysisSettings = AnalysisSettings{TemperaturePct: 3.6, PressurePct: 2.5}

// WorkbenchService owns the committed record set and the staged table edits.
// Edits accumulate in the staged table and replace the committed set only on Commit.
type WorkbenchService struct {
	repo     repository.RecordRepository
	logger   *logging.StructuredLogger
	metrics  *metrics.Collector
	settings AnalysisSettings

	mu        sync.Mutex
	rng       *rand.Rand
	committed records.RecordSet
	staged    [][]string
	dirty     bool
}

// NewWorkbenchService creates a new workbench session with an empty committed set
func NewWorkbenchService(
	repo repository.RecordRepository,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
	settings AnalysisSettings,
	rng *rand.Rand,
) *WorkbenchService {
	return &WorkbenchService{
		repo:     repo,
		logger:   logger,
		metrics:  metricsCollector,
		settings: settings,
		rng:      rng,
	}
}

// Records returns a copy of the committed set
func (s *WorkbenchService) Records() records.RecordSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed.Clone()
}

// Staged returns a copy of the staged table and whether one exists
func (s *WorkbenchService) Staged() ([][]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil, false
	}
	return copyTable(s.staged), true
}

// Settings returns the default drift bands
func (s *WorkbenchService) Settings() AnalysisSettings {
	return s.settings
}

// Dirty reports whether staged edits have not been committed
func (s *WorkbenchService) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Replace commits set directly, discarding staged edits. Used by batch tools.
func (s *WorkbenchService) Replace(ctx context.Context, set records.RecordSet) error {
	if err := set.Validate(); err != nil {
		s.recordValidationFailure(err)
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCommitted(set.Clone())

	s.logger.Info(ctx, "[COMMIT] Record set replaced", logging.Fields{
		"records": set.Len(),
	})
	return nil
}

// Stage stores rows as the pending table edit
func (s *WorkbenchService) Stage(ctx context.Context, rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.staged = copyTable(rows)
	s.dirty = true

	s.logger.Debug(ctx, "[STAGE] Table edit staged", logging.Fields{
		"rows": len(rows),
	})
}

// Discard drops the staged table
func (s *WorkbenchService) Discard(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearStaged()
}

// Commit validates the staged table and makes it the committed set.
// On failure the staged edit is discarded and the committed set is kept.
// Without staged edits Commit does nothing.
func (s *WorkbenchService) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}
	rows := s.staged
	s.clearStaged()

	set, err := codec.FromTable(rows)
	if err != nil {
		s.logger.Warn(ctx, "[COMMIT_REJECTED] Staged table is not completely filled in", logging.Fields{
			"rows": len(rows),
		})
		var perr *codec.ParseError
		if errors.As(err, &perr) {
			s.metrics.RecordValidationFailure(perr.Field)
		}
		return fmt.Errorf("failed to read staged table: %w", err)
	}

	if err := set.Validate(); err != nil {
		s.recordValidationFailure(err)
		s.logger.Warn(ctx, "[COMMIT_REJECTED] Staged table violates record constraints", logging.Fields{
			"rows":  set.Len(),
			"error": err.Error(),
		})
		return err
	}

	s.setCommitted(set)
	s.logger.Info(ctx, "[COMMIT] Staged table committed", logging.Fields{
		"records": set.Len(),
	})
	return nil
}

// Open replaces the committed set with the contents of the named file after
// confirmation. On any failure the session is unchanged.
func (s *WorkbenchService) Open(ctx context.Context, name string, c Confirmer) (int, error) {
	if err := confirm(ctx, c, PromptOpen); err != nil {
		return 0, err
	}

	path, err := s.repo.Resolve(name)
	if err != nil {
		return 0, err
	}

	s.logger.Info(ctx, "[LOAD_START] Opening record file", logging.Fields{
		"path": path,
	})

	set, err := s.repo.Load(ctx, path)
	if err != nil {
		s.logger.Error(ctx, "[LOAD_ERROR] File could not be opened", logging.Fields{
			"path": path,
		}, err)
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCommitted(set)

	s.logger.Info(ctx, "[LOAD_COMPLETE] Record file opened", logging.Fields{
		"path":    path,
		"records": set.Len(),
		"valid":   set.IsValid(),
	})
	return set.Len(), nil
}

// Save writes the committed set to the named file. Staged edits are not
// written; saving while dirty asks for confirmation first.
func (s *WorkbenchService) Save(ctx context.Context, name string, c Confirmer) (int, error) {
	if err := s.confirmIfDirty(ctx, c, PromptSaveUnsaved); err != nil {
		return 0, err
	}

	path, err := s.repo.Resolve(name)
	if err != nil {
		return 0, err
	}

	set := s.Records()
	if err := s.repo.Save(ctx, path, set); err != nil {
		s.logger.Error(ctx, "[SAVE_ERROR] The data has not been recorded", logging.Fields{
			"path": path,
		}, err)
		return 0, err
	}

	s.logger.Info(ctx, "[SAVE_COMPLETE] Records written", logging.Fields{
		"path":    path,
		"records": set.Len(),
	})
	return set.Len(), nil
}

// confirmIfDirty asks message only while staged edits exist
func (s *WorkbenchService) confirmIfDirty(ctx context.Context, c Confirmer, message string) error {
	if !s.Dirty() {
		return nil
	}
	return confirm(ctx, c, message)
}

// setCommitted replaces the committed set. Callers hold mu.
func (s *WorkbenchService) setCommitted(set records.RecordSet) {
	s.committed = set
	s.clearStaged()
	s.metrics.CommittedRecords.Set(float64(set.Len()))
}

func (s *WorkbenchService) clearStaged() {
	s.staged = nil
	s.dirty = false
}

func (s *WorkbenchService) recordValidationFailure(err error) {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		s.metrics.RecordValidationFailure(verr.Field)
	}
}

func copyTable(rows [][]string) [][]string {
	if rows == nil {
		return nil
	}
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string(nil), row...)
	}
	return out
}
