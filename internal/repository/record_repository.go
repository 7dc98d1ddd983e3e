package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"weather-workbench/internal/codec"
	"weather-workbench/internal/records"
	"weather-workbench/pkg/logging"
	"weather-workbench/pkg/metrics"
)

// ErrInvalidPath is returned when a file name would escape the data directory
var ErrInvalidPath = errors.New("file name must be a relative path inside the data directory")

// RecordRepository loads and saves record sets as line-oriented text files
type RecordRepository interface {
	// Resolve maps a user supplied file name to a path under the data directory
	Resolve(name string) (string, error)
	Load(ctx context.Context, path string) (records.RecordSet, error)
	Save(ctx context.Context, path string, set records.RecordSet) error
}

// fileRepository implements RecordRepository on the local file system
type fileRepository struct {
	dataDir string
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewFileRepository creates a repository rooted at dataDir.
// An empty dataDir leaves names unresolved, for command line use.
func NewFileRepository(dataDir string, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) RecordRepository {
	return &fileRepository{
		dataDir: dataDir,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Resolve joins name onto the data directory
func (r *fileRepository) Resolve(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty file name: %w", ErrInvalidPath)
	}
	if r.dataDir == "" {
		return name, nil
	}
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("%q: %w", name, ErrInvalidPath)
	}
	return filepath.Join(r.dataDir, name), nil
}

// Load reads a record set from path. Undecodable content yields a *codec.ParseError.
func (r *fileRepository) Load(ctx context.Context, path string) (records.RecordSet, error) {
	if err := ctx.Err(); err != nil {
		return records.RecordSet{}, err
	}

	file, err := os.Open(path)
	if err != nil {
		r.metrics.RecordStorageError("open")
		return records.RecordSet{}, &IOError{Op: "open", Path: path, Err: err}
	}
	defer file.Close()

	set, err := codec.Decode(file)
	if err != nil {
		var perr *codec.ParseError
		if errors.As(err, &perr) {
			r.metrics.RecordCodecError(perr.Field)
			return records.RecordSet{}, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		r.metrics.RecordStorageError("read")
		return records.RecordSet{}, &IOError{Op: "read", Path: path, Err: err}
	}

	r.metrics.RecordsLoadedTotal.Add(float64(set.Len()))
	r.logger.Debug(ctx, "[REPO_LOAD] Records loaded", logging.Fields{
		"path":    path,
		"records": set.Len(),
	})

	return set, nil
}

// Save writes set to path through a temporary file so a failed write
// never leaves a truncated file behind.
func (r *fileRepository) Save(ctx context.Context, path string, set records.RecordSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".records-*")
	if err != nil {
		r.metrics.RecordStorageError("create")
		return &IOError{Op: "create", Path: path, Err: err}
	}
	defer os.Remove(tmp.Name())

	if err := codec.Encode(tmp, set); err != nil {
		tmp.Close()
		r.metrics.RecordStorageError("write")
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		r.metrics.RecordStorageError("write")
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		r.metrics.RecordStorageError("rename")
		return &IOError{Op: "rename", Path: path, Err: err}
	}

	r.metrics.RecordsSavedTotal.Add(float64(set.Len()))
	r.logger.Debug(ctx, "[REPO_SAVE] Records saved", logging.Fields{
		"path":    path,
		"records": set.Len(),
	})

	return nil
}

// IOError represents a record file that could not be opened, read or written
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether retrying may succeed
func (e *IOError) IsTransient() bool {
	return !errors.Is(e.Err, os.ErrNotExist) && !errors.Is(e.Err, os.ErrPermission)
}
