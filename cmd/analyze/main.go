package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"weather-workbench/internal/config"
	"weather-workbench/internal/models"
	"weather-workbench/internal/records"
	"weather-workbench/internal/repository"
	"weather-workbench/internal/services"
	"weather-workbench/pkg/logging"
	"weather-workbench/pkg/metrics"
)

// stdoutNotifier prints notifications as they arrive
type stdoutNotifier struct{}

func (stdoutNotifier) Notify(_ context.Context, message string) {
	fmt.Println(message)
}

func (stdoutNotifier) NotifyError(_ context.Context, message string) {
	fmt.Fprintln(os.Stderr, "error:", message)
}

// textRenderer draws a series as one labelled bar per point
type textRenderer struct{}

func (textRenderer) Render(_ context.Context, points []records.Point, title string) error {
	lo, hi := points[0].Value, points[0].Value
	for _, p := range points {
		lo, hi = min(lo, p.Value), max(hi, p.Value)
	}
	fmt.Println(title)
	for _, p := range points {
		width := 1
		if hi > lo {
			width += int(40 * (p.Value - lo) / (hi - lo))
		}
		fmt.Printf("  %s %8.1f %s\n", p.Label, p.Value, strings.Repeat("#", width))
	}
	return nil
}

func main() {
	file := flag.String("file", "", "Record file to analyze (required)")
	temperaturePct := flag.Float64("temperature-pct", 0, "Temperature band in percent (default from configuration)")
	pressurePct := flag.Float64("pressure-pct", 0, "Pressure band in percent (default from configuration)")
	seed := flag.Uint64("seed", 0, "Forecast seed (default from configuration, 0 seeds from the clock)")
	forecast := flag.Bool("forecast", false, "Append a forecast for the month after the last record")
	sortSeasons := flag.Bool("sort", false, "Sort pressure within each season run")
	graph := flag.String("graph", "", "Draw a series: temperature, pressure or humidity")
	out := flag.String("out", "", "Write the resulting records to this file")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *temperaturePct > 0 {
		cfg.Analysis.TemperaturePct = *temperaturePct
	}
	if *pressurePct > 0 {
		cfg.Analysis.PressurePct = *pressurePct
	}
	if *seed != 0 {
		cfg.Analysis.ForecastSeed = *seed
	}
	if cfg.Analysis.ForecastSeed == 0 {
		cfg.Analysis.ForecastSeed = uint64(time.Now().UnixNano())
	}

	logger := logging.NewStructuredLogger("weather-analyze", "1.0.0", logging.ParseLevel(cfg.Logging.Level))
	logger.SetOutput(os.Stderr)
	defer logger.Sync()

	ctx := context.Background()
	metricsCollector := metrics.NewCollector("workbench_analyze")

	// paths are taken as given on the command line
	repo := repository.NewFileRepository("", logger, metricsCollector)
	workbench := services.NewWorkbenchService(repo, logger, metricsCollector, services.AnalysisSettings{
		TemperaturePct: cfg.Analysis.TemperaturePct,
		PressurePct:    cfg.Analysis.PressurePct,
	}, rand.New(rand.NewPCG(cfg.Analysis.ForecastSeed, cfg.Analysis.ForecastSeed>>1|1)))

	if _, err := workbench.Open(ctx, *file, services.AlwaysConfirm); err != nil {
		logger.Fatal(ctx, "[ANALYZE_ERROR] File could not be opened", logging.Fields{"file": *file}, err)
	}
	set := workbench.Records()
	if err := set.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n%s\n", err, models.ValidationConstraints)
	}

	if *sortSeasons {
		if err := workbench.SortPressureBySeason(ctx, services.AlwaysConfirm); err != nil {
			logger.Fatal(ctx, "[ANALYZE_ERROR] Sort failed", logging.Fields{}, err)
		}
	}
	if *forecast {
		n, err := workbench.Forecast(ctx, services.AlwaysConfirm)
		if err != nil {
			logger.Fatal(ctx, "[ANALYZE_ERROR] Forecast failed", logging.Fields{}, err)
		}
		fmt.Printf("%s (%d records)\n", services.NoticeForecastDone, n)
	}

	set = workbench.Records()
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("WEATHER RECORDS")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("File:    %s\n", *file)
	fmt.Printf("Records: %d\n", set.Len())

	if set.Len() > 0 {
		first, last := dateSpan(set)
		fmt.Printf("Period:  %s - %s\n", first, last)

		if avg, err := workbench.AverageTemperature(ctx, first, last, services.AlwaysConfirm); err == nil {
			fmt.Printf("Average temperature: %.2f\n", avg)
		}
		if avg, err := workbench.AveragePressure(ctx, first, last, services.AlwaysConfirm); err == nil {
			fmt.Printf("Average pressure:    %.2f\n", avg)
		}
		if dates, err := workbench.HighestHumidityDays(ctx, first, last, services.AlwaysConfirm); err == nil {
			labels := make([]string, len(dates))
			for i, d := range dates {
				labels[i] = d.String()
			}
			fmt.Printf("Highest humidity:    %s\n", strings.Join(labels, ", "))
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("STABLE WIND RUNS")
	fmt.Println(strings.Repeat("=", 80))
	if runs, err := workbench.StableWindRuns(ctx); err == nil {
		for _, run := range runs {
			r := set.At(run[0])
			fmt.Printf("  %s  %-2s  %d days\n", r.Date(), r.WindDirection, len(run))
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Printf("BOUNDED DRIFT PERIODS (temperature %.1f%%, pressure %.1f%%)\n", cfg.Analysis.TemperaturePct, cfg.Analysis.PressurePct)
	fmt.Println(strings.Repeat("=", 80))
	periods, err := workbench.BoundedDriftPeriods(ctx, services.AlwaysConfirm)
	if err != nil {
		logger.Fatal(ctx, "[ANALYZE_ERROR] Period search failed", logging.Fields{}, err)
	}
	if len(periods) == 0 {
		fmt.Println(services.NoticeNoPeriods)
	}
	for _, p := range periods {
		avgT, _ := p.AverageTemperature()
		avgP, _ := p.AveragePressure()
		fmt.Printf("  %s - %s  %3d days  avg %.2f°, %.2f mmHg\n",
			p.At(0).Date(), p.At(p.Len()-1).Date(), p.Len(), avgT, avgP)
	}

	if *graph != "" {
		field, err := records.ParseField(*graph)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid graph field: %v\n", err)
			os.Exit(2)
		}
		fmt.Println()
		if err := workbench.Graph(ctx, field, textRenderer{}, stdoutNotifier{}, services.AlwaysConfirm); err != nil {
			logger.Warn(ctx, "[ANALYZE_GRAPH] Graph not drawn", logging.Fields{"reason": err.Error()})
		}
	}

	if *out != "" {
		n, err := workbench.Save(ctx, *out, services.AlwaysConfirm)
		if err != nil {
			logger.Fatal(ctx, "[ANALYZE_ERROR] Records could not be written", logging.Fields{"file": *out}, err)
		}
		fmt.Printf("\nWrote %d records to %s\n", n, *out)
	}

	logger.Info(ctx, "[ANALYZE_COMPLETE] Analysis finished", logging.Fields{
		"file":    *file,
		"records": set.Len(),
		"periods": len(periods),
	})
}

// dateSpan returns the earliest and latest record dates
func dateSpan(set records.RecordSet) (models.Date, models.Date) {
	first, last := set.At(0).Date(), set.At(0).Date()
	for i := 1; i < set.Len(); i++ {
		d := set.At(i).Date()
		if d.Compare(first) < 0 {
			first = d
		}
		if d.Compare(last) > 0 {
			last = d
		}
	}
	return first, last
}
