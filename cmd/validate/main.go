// Package main validates the configured input tables before analysis.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"segment-flow-lab/internal/bootstrap"
	"segment-flow-lab/internal/config"
	"segment-flow-lab/internal/pipeline"
)

func main() {
	settings, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading settings: %v\n", err)
		os.Exit(1)
	}

	flag.StringVar(&settings.DataDir, "data-dir", settings.DataDir, "Directory holding the CSV inputs")
	flag.Parse()

	// Validation never needs the cache
	settings.CacheEnabled = false

	ctx := context.Background()
	env, err := bootstrap.Open(ctx, settings, log.New(os.Stderr, "", log.LstdFlags))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening sources: %v\n", err)
		os.Exit(1)
	}
	defer env.Close()

	res, err := pipeline.NewValidator(settings).Validate(ctx, env.Segments, env.Metrics)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error validating: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=== Input Validation ===")
	for _, c := range res.Checks {
		status := "PASS"
		if !c.Pass {
			status = "FAIL"
		}
		fmt.Printf("\n[%s] %s (%s)\n", status, c.Name, c.Kind)
		fmt.Printf("  rows: %d, entities: %d\n", c.Rows, c.Entities)
		switch c.Kind {
		case pipeline.KindSegment:
			if len(c.Segments) > 0 {
				fmt.Printf("  segments (%d): %s\n", len(c.Segments), strings.Join(c.Segments, ", "))
			}
		case pipeline.KindMetrics:
			if c.MonthMin > 0 {
				fmt.Printf("  months: %d - %d, metric columns: %d\n", c.MonthMin, c.MonthMax, c.MetricColumns)
			}
		}
		for _, w := range c.Warnings {
			fmt.Printf("  warning: %s\n", w)
		}
		for _, e := range c.Errors {
			fmt.Printf("  error: %s\n", e)
		}
	}

	if !res.AllPass {
		fmt.Println("\nValidation FAILED")
		os.Exit(1)
	}
	fmt.Println("\nAll inputs valid")
}
