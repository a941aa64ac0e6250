// Package main analyzes one base/current period pair and writes the Markdown
// report plus CSV views.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"segment-flow-lab/internal/bootstrap"
	"segment-flow-lab/internal/config"
	"segment-flow-lab/internal/domain"
	"segment-flow-lab/internal/pipeline"
	"segment-flow-lab/internal/reporting"
)

func main() {
	settings, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading settings: %v\n", err)
		os.Exit(1)
	}

	// Flags override environment settings
	currentMonth := flag.Int("current-month", 0, "Current period YYYYMM (default: latest available)")
	metric := flag.String("metric", "count", "Measure for summary, matrix and flows (count or a metric column)")
	entity := flag.String("entity", "", "Print the revenue detail of one entity")
	outputDir := flag.String("output-dir", settings.ExportDir, "Output directory for the report and CSV views")
	flag.StringVar(&settings.DataDir, "data-dir", settings.DataDir, "Directory holding base_seg.csv, curr_seg_YYYYMM.csv and rev_glbl.csv")
	flag.StringVar(&settings.CacheBackend, "cache-backend", settings.CacheBackend, "Cache backend: file, memory, postgres or sqlite")
	flag.IntVar(&settings.WindowMonths, "window", settings.WindowMonths, "Trailing window length in months")
	noCache := flag.Bool("no-cache", false, "Disable the cache")
	useFixtures := flag.Bool("use-fixtures", false, "Use a generated demo dataset instead of the configured sources")
	flag.Parse()

	if *noCache {
		settings.CacheEnabled = false
	}

	ctx := context.Background()
	logger := log.New(os.Stderr, "", log.LstdFlags)

	env, err := bootstrap.Open(ctx, settings, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening sources: %v\n", err)
		os.Exit(1)
	}
	defer env.Close()

	if *useFixtures {
		f, err := pipeline.GenerateFixtures(pipeline.DefaultFixtureConfig(), settings.SegmentColumns, settings.MetricsColumns)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating fixtures: %v\n", err)
			os.Exit(1)
		}
		env.WithSources(f.Sources())
	}
	orch := env.Orchestrator()

	month := *currentMonth
	if month == 0 {
		months, err := orch.CurrentMonths(ctx)
		if err != nil || len(months) == 0 {
			fmt.Fprintf(os.Stderr, "Error: no current period available (%v)\n", err)
			os.Exit(1)
		}
		month = months[len(months)-1]
	}

	a, err := orch.Analyze(ctx, month, *metric)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error analyzing %d: %v\n", month, err)
		os.Exit(1)
	}

	if *entity != "" {
		d, err := a.LookupEntity(*entity)
		if errors.Is(err, domain.ErrEntityNotFound) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
		out, err := reporting.RenderCSV(d.Table())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error rendering entity: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(out)
		return
	}

	report := reporting.NewGenerator().Generate(a)
	exportDir, err := reporting.ExportCSV(*outputDir, report, a.Snapshot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error exporting CSV: %v\n", err)
		os.Exit(1)
	}
	reportPath := filepath.Join(*outputDir, fmt.Sprintf("REPORT_%d_%d.md", a.Snapshot.BaseMonth, month))
	if err := os.WriteFile(reportPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Analysis %d -> %d completed in %s (cache hit: %v):\n", a.Snapshot.BaseMonth, month, a.Duration, a.CacheHit)
	fmt.Printf("  - %s\n", reportPath)
	fmt.Printf("  - %s/ (%d views)\n", exportDir, len(report.Views)+1)
}
