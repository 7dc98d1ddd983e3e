package services

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"weather-workbench/internal/codec"
	"weather-workbench/internal/models"
	"weather-workbench/internal/records"
	"weather-workbench/internal/repository"
	"weather-workbench/pkg/logging"
	"weather-workbench/pkg/metrics"
)

const sampleFile = `2021 12 30 -3 775 35 N
2021 12 31 -4 776 36 N
2022 1 1 -5 780 30 N
2022 1 2 -5 779 36 SW
2022 3 1 8 755 50 SW`

type fixture struct {
	svc     *WorkbenchService
	dir     string
	metrics *metrics.Collector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	logger := logging.NewStructuredLogger("test", "0.0.0", logging.DebugLevel)
	logger.SetOutput(io.Discard)
	collector := metrics.NewCollector("test")
	repo := repository.NewFileRepository(dir, logger, collector)
	svc := NewWorkbenchService(repo, logger, collector, DefaultAnalysisSettings, rand.New(rand.NewPCG(1, 2)))
	return &fixture{svc: svc, dir: dir, metrics: collector}
}

// withFile writes content under the data dir and opens it
func (f *fixture) withFile(t *testing.T, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(f.dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Open(context.Background(), name, AlwaysConfirm); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
}

// promptLog records every prompt and answers with approve
type promptLog struct {
	approve bool
	prompts []string
}

func (p *promptLog) Confirm(_ context.Context, message string) bool {
	p.prompts = append(p.prompts, message)
	return p.approve
}

type notices struct {
	infos  []string
	errors []string
}

func (n *notices) Notify(_ context.Context, message string)      { n.infos = append(n.infos, message) }
func (n *notices) NotifyError(_ context.Context, message string) { n.errors = append(n.errors, message) }

type chart struct {
	points []records.Point
	title  string
	calls  int
}

func (c *chart) Render(_ context.Context, points []records.Point, title string) error {
	c.points, c.title = points, title
	c.calls++
	return nil
}

var validRow = []string{"2022", "5", "1", "20", "735", "66", "E"}

func TestOpen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	declined := &promptLog{approve: false}
	if _, err := f.svc.Open(ctx, "weather.txt", declined); !errors.Is(err, ErrCancelled) {
		t.Fatalf("Open() declined error = %v, want ErrCancelled", err)
	}
	var cerr *ConfirmationError
	if _, err := f.svc.Open(ctx, "weather.txt", declined); !errors.As(err, &cerr) || cerr.Prompt != PromptOpen {
		t.Errorf("declined Open() error = %v, want prompt %q", err, PromptOpen)
	}

	f.withFile(t, "weather.txt", sampleFile)
	if got := f.svc.Records().Len(); got != 5 {
		t.Errorf("Records().Len() = %d, want 5", got)
	}
	if got := testutil.ToFloat64(f.metrics.CommittedRecords); got != 5 {
		t.Errorf("committed_records = %v, want 5", got)
	}
}

func TestOpen_IOFailureKeepsState(t *testing.T) {
	f := newFixture(t)
	f.withFile(t, "weather.txt", sampleFile)
	f.svc.Stage(context.Background(), [][]string{validRow})

	_, err := f.svc.Open(context.Background(), "missing.txt", AlwaysConfirm)
	var ioErr *repository.IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("Open() error = %v, want *repository.IOError", err)
	}
	if f.svc.Records().Len() != 5 || !f.svc.Dirty() {
		t.Error("failed Open changed the session")
	}

	if _, err := f.svc.Open(context.Background(), "../escape.txt", AlwaysConfirm); !errors.Is(err, repository.ErrInvalidPath) {
		t.Errorf("Open() error = %v, want ErrInvalidPath", err)
	}
}

func TestStageCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.Commit(ctx); err != nil {
		t.Fatalf("Commit() without staged edits error = %v", err)
	}

	f.svc.Stage(ctx, [][]string{validRow, validRow})
	if !f.svc.Dirty() {
		t.Fatal("Dirty() = false after Stage")
	}
	staged, ok := f.svc.Staged()
	if !ok || len(staged) != 2 {
		t.Fatalf("Staged() = %v, %v", staged, ok)
	}
	if f.svc.Records().Len() != 0 {
		t.Error("staged edits leaked into the committed set")
	}

	if err := f.svc.Commit(ctx); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if f.svc.Dirty() || f.svc.Records().Len() != 2 {
		t.Errorf("after Commit dirty=%v len=%d", f.svc.Dirty(), f.svc.Records().Len())
	}
}

func TestCommit_ValidationFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.withFile(t, "weather.txt", sampleFile)

	bad := append([]string(nil), validRow...)
	bad[5] = "101"
	f.svc.Stage(ctx, [][]string{validRow, bad})

	err := f.svc.Commit(ctx)
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Commit() error = %v, want *models.ValidationError", err)
	}
	if verr.Row != 1 || verr.Field != "humidity" {
		t.Errorf("ValidationError = %+v", verr)
	}
	if f.svc.Dirty() {
		t.Error("rejected edit still staged")
	}
	if f.svc.Records().Len() != 5 {
		t.Error("rejected edit replaced the committed set")
	}
	if got := testutil.ToFloat64(f.metrics.ValidationFailuresTotal.WithLabelValues("humidity")); got != 1 {
		t.Errorf("validation_failures_total{field=humidity} = %v, want 1", got)
	}
}

func TestCommit_IncompleteTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	incomplete := append([]string(nil), validRow...)
	incomplete[2] = ""
	f.svc.Stage(ctx, [][]string{incomplete})

	var perr *codec.ParseError
	if err := f.svc.Commit(ctx); !errors.As(err, &perr) {
		t.Fatalf("Commit() error = %v, want *codec.ParseError", err)
	}
	if f.svc.Dirty() {
		t.Error("rejected edit still staged")
	}
}

func TestSave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.withFile(t, "weather.txt", sampleFile)

	n, err := f.svc.Save(ctx, "copy.txt", nil)
	if err != nil || n != 5 {
		t.Fatalf("Save() = %d, %v", n, err)
	}
	content, _ := os.ReadFile(filepath.Join(f.dir, "copy.txt"))
	if string(content) != sampleFile {
		t.Errorf("saved content = %q", content)
	}

	// dirty sessions ask first and never write the staged rows
	f.svc.Stage(ctx, [][]string{validRow})
	prompts := &promptLog{approve: false}
	if _, err := f.svc.Save(ctx, "copy.txt", prompts); !errors.Is(err, ErrCancelled) {
		t.Errorf("Save() declined error = %v, want ErrCancelled", err)
	}
	if len(prompts.prompts) != 1 || prompts.prompts[0] != PromptSaveUnsaved {
		t.Errorf("prompts = %v", prompts.prompts)
	}

	if n, err := f.svc.Save(ctx, "copy.txt", AlwaysConfirm); err != nil || n != 5 {
		t.Errorf("Save() confirmed = %d, %v, want 5 committed records", n, err)
	}
}

func TestReplace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bad := models.DefaultRecord()
	bad.WindDirection = models.Undefined
	if err := f.svc.Replace(ctx, records.From([]models.Record{bad})); err == nil {
		t.Error("Replace() accepted an invalid set")
	}

	if err := f.svc.Replace(ctx, records.From([]models.Record{models.DefaultRecord()})); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if f.svc.Records().Len() != 1 {
		t.Errorf("Records().Len() = %d, want 1", f.svc.Records().Len())
	}
}
