// Package main runs the batch pipeline: one analysis per available current
// period, each written to its own report directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"segment-flow-lab/internal/bootstrap"
	"segment-flow-lab/internal/config"
	"segment-flow-lab/internal/observability"
	"segment-flow-lab/internal/pipeline"
	"segment-flow-lab/internal/storage/csvdir"
)

func main() {
	settings, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading settings: %v\n", err)
		os.Exit(1)
	}

	// Flags override environment settings
	outputDir := flag.String("output-dir", settings.ExportDir, "Output directory; each run writes to <output-dir>/<run id>")
	monthsFlag := flag.String("months", "", "Comma-separated current periods YYYYMM (default: all available)")
	metric := flag.String("metric", "count", "Measure for summary, matrix and flows")
	concurrency := flag.Int("concurrency", 2, "Months analyzed in parallel")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	useFixtures := flag.Bool("use-fixtures", false, "Use a generated demo dataset instead of the configured sources")
	fixtureEntities := flag.Int("fixture-entities", pipeline.DefaultFixtureConfig().Entities, "Base entities in the generated dataset")
	writeFixtures := flag.Bool("write-fixtures", false, "With -use-fixtures, also write the dataset as CSV into -data-dir")
	flag.StringVar(&settings.DataDir, "data-dir", settings.DataDir, "Directory holding the CSV inputs")
	flag.StringVar(&settings.CacheBackend, "cache-backend", settings.CacheBackend, "Cache backend: file, memory, postgres or sqlite")
	flag.Parse()

	months, err := parseMonths(*monthsFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, cancelling pipeline...\n", sig)
		cancel()
	}()

	logger := log.New(os.Stderr, "", log.LstdFlags)

	shutdownTracing, err := observability.SetupTracing(ctx, "segment-flow-pipeline", settings.OTLPEndpoint)
	if err != nil {
		logger.Printf("[pipeline] tracing disabled: %v", err)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		_ = shutdownTracing(sctx)
	}()

	if *metricsAddr != "" {
		srv := &http.Server{Addr: *metricsAddr, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Printf("[pipeline] metrics server: %v", err)
			}
		}()
		defer srv.Close()
		logger.Printf("[pipeline] serving metrics on %s/metrics", *metricsAddr)
	}

	env, err := bootstrap.Open(ctx, settings, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening sources: %v\n", err)
		os.Exit(1)
	}
	defer env.Close()

	if *useFixtures {
		cfg := pipeline.DefaultFixtureConfig()
		cfg.Entities = *fixtureEntities
		f, err := pipeline.GenerateFixtures(cfg, settings.SegmentColumns, settings.MetricsColumns)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating fixtures: %v\n", err)
			os.Exit(1)
		}
		if *writeFixtures {
			if err := f.WriteTo(csvdir.New(settings.DataDir)); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing fixtures: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Fixture dataset written to %s\n", settings.DataDir)
		}
		env.WithSources(f.Sources())
	}

	p := pipeline.NewBatchPipeline(env.Orchestrator(), *outputDir).
		WithMetric(*metric).
		WithConcurrency(*concurrency).
		WithLogger(logger)

	res, err := p.Run(ctx, months)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Pipeline error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nBatch run %s: %s (%d succeeded, %d failed) in %s\n",
		res.RunID, res.Status(), res.Succeeded, res.Failed, res.Duration.Round(time.Millisecond))
	for _, m := range res.Months {
		if m.Err != nil {
			fmt.Printf("  - %d: FAILED: %v\n", m.CurrentMonth, m.Err)
			continue
		}
		fmt.Printf("  - %d: %d entities, %d high risk -> %s\n", m.CurrentMonth, m.Entities, m.HighRiskEntities, m.ReportPath)
	}
	fmt.Printf("  - %s/%s\n", res.RunDir, pipeline.BatchSummaryFile)

	if res.Status() == pipeline.StatusFailed {
		os.Exit(1)
	}
}

func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	return mux
}

func parseMonths(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var months []int
	for _, part := range strings.Split(s, ",") {
		m, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid month %q", part)
		}
		months = append(months, m)
	}
	return months, nil
}
