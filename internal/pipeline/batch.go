// Package pipeline runs analyses in batch over every available current month,
// validates input data and generates deterministic demo datasets.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"segment-flow-lab/internal/domain"
	"segment-flow-lab/internal/observability"
	"segment-flow-lab/internal/orchestrator"
	"segment-flow-lab/internal/reporting"
	"segment-flow-lab/internal/storage/csvdir"
	"segment-flow-lab/internal/table"
)

// Run and month status labels.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// BatchSummaryFile is written at the root of every run directory.
const BatchSummaryFile = "batch_summary.csv"

// ErrNoMonths is returned when there is nothing to analyze.
var ErrNoMonths = errors.New("no current months available")

// BatchPipeline analyzes every requested current month against the base
// period and writes a report directory per month.
type BatchPipeline struct {
	orch        *orchestrator.Orchestrator
	reportGen   *reporting.Generator
	outputDir   string
	metric      string
	concurrency int
	clock       func() time.Time
	newID       func() uuid.UUID
	logger      *log.Logger
}

// NewBatchPipeline creates a new pipeline writing under outputDir.
func NewBatchPipeline(orch *orchestrator.Orchestrator, outputDir string) *BatchPipeline {
	return &BatchPipeline{
		orch:        orch,
		reportGen:   reporting.NewGenerator(),
		outputDir:   outputDir,
		metric:      "",
		concurrency: 1,
		clock:       func() time.Time { return time.Now().UTC() },
		newID:       uuid.New,
		logger:      log.Default(),
	}
}

// WithClock sets a custom clock function for deterministic output.
func (p *BatchPipeline) WithClock(clock func() time.Time) *BatchPipeline {
	p.clock = clock
	p.reportGen = p.reportGen.WithClock(clock)
	return p
}

// WithRunID fixes the run identifier.
func (p *BatchPipeline) WithRunID(id uuid.UUID) *BatchPipeline {
	p.newID = func() uuid.UUID { return id }
	return p
}

// WithMetric sets the measure used by the summary, matrix and flow views.
func (p *BatchPipeline) WithMetric(metric string) *BatchPipeline {
	p.metric = metric
	return p
}

// WithConcurrency sets how many months are analyzed at once.
func (p *BatchPipeline) WithConcurrency(n int) *BatchPipeline {
	if n < 1 {
		n = 1
	}
	p.concurrency = n
	return p
}

// WithLogger sets the logger.
func (p *BatchPipeline) WithLogger(l *log.Logger) *BatchPipeline {
	if l != nil {
		p.logger = l
	}
	return p
}

// MonthResult is the outcome of one month's analysis.
type MonthResult struct {
	BaseMonth        int
	CurrentMonth     int
	Entities         int
	HighRiskEntities int
	ReportPath       string
	ExportDir        string
	Status           string
	Err              error
}

// BatchResult is the outcome of one run.
type BatchResult struct {
	RunID     uuid.UUID
	RunDir    string
	StartedAt time.Time
	Duration  time.Duration
	Months    []MonthResult // in requested month order
	Succeeded int
	Failed    int
}

// Status is success when every month succeeded, failed when none did, else partial.
func (r *BatchResult) Status() string {
	switch {
	case r.Failed == 0:
		return StatusSuccess
	case r.Succeeded == 0:
		return StatusFailed
	default:
		return StatusPartial
	}
}

// Run analyzes months, or every month the segment source lists when months is
// empty. A failing month is recorded and the batch continues. Output goes to
// outputDir/<run id>/:
// - analysis_<base>_<current>/*.csv
// - REPORT_<base>_<current>.md
// - batch_summary.csv
func (p *BatchPipeline) Run(ctx context.Context, months []int) (*BatchResult, error) {
	if len(months) == 0 {
		listed, err := p.orch.CurrentMonths(ctx)
		if err != nil {
			return nil, err
		}
		months = listed
	}
	if len(months) == 0 {
		return nil, ErrNoMonths
	}

	res := &BatchResult{RunID: p.newID(), StartedAt: p.clock()}
	res.RunDir = filepath.Join(p.outputDir, res.RunID.String())
	if err := os.MkdirAll(res.RunDir, 0o755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	p.logger.Printf("[pipeline] run %s: %d months %v", res.RunID, len(months), months)

	timer := observability.StartTimer("pipeline", nil)
	res.Months = make([]MonthResult, len(months))

	sem := make(chan struct{}, p.concurrency)
	var wg sync.WaitGroup
	for i, m := range months {
		wg.Add(1)
		sem <- struct{}{}
		go func(i, month int) {
			defer wg.Done()
			defer func() { <-sem }()
			res.Months[i] = p.runMonth(ctx, res.RunDir, month)
		}(i, m)
	}
	wg.Wait()

	for _, mr := range res.Months {
		if mr.Err != nil {
			res.Failed++
		} else {
			res.Succeeded++
		}
	}
	res.Duration = timer.Stop()
	observability.RecordPipelineRun(res.Status(), res.Duration.Seconds())

	if err := p.writeSummary(res); err != nil {
		return res, err
	}
	p.logger.Printf("[pipeline] run %s %s: %d succeeded, %d failed in %s",
		res.RunID, res.Status(), res.Succeeded, res.Failed, res.Duration)
	return res, nil
}

func (p *BatchPipeline) runMonth(ctx context.Context, runDir string, month int) MonthResult {
	mr := MonthResult{CurrentMonth: month, Status: StatusFailed}

	fail := func(err error) MonthResult {
		mr.Err = err
		p.logger.Printf("[pipeline] %d failed: %v", month, err)
		return mr
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	a, err := p.orch.Analyze(ctx, month, p.metric)
	if err != nil {
		return fail(err)
	}
	mr.BaseMonth = a.Snapshot.BaseMonth
	mr.Entities = a.Snapshot.Len()
	mr.HighRiskEntities = a.RiskSummary.Entities[domain.RiskHigh]

	report := p.reportGen.Generate(a)
	mr.ExportDir, err = reporting.ExportCSV(runDir, report, a.Snapshot)
	if err != nil {
		return fail(err)
	}
	mr.ReportPath = filepath.Join(runDir, fmt.Sprintf("REPORT_%d_%d.md", mr.BaseMonth, month))
	if err := os.WriteFile(mr.ReportPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		return fail(fmt.Errorf("write report: %w", err))
	}

	mr.Status = StatusSuccess
	return mr
}

// SummaryTable renders one row per month.
func (r *BatchResult) SummaryTable() table.Table {
	t := table.New("Base Month", "Current Month", "Entities", "High Risk Entities", "Report", "Status")
	for _, m := range r.Months {
		status := m.Status
		if m.Err != nil {
			status = "Error: " + m.Err.Error()
		}
		var base any
		if m.BaseMonth != 0 {
			base = m.BaseMonth
		}
		report := m.ReportPath
		if report == "" {
			report = "Failed"
		}
		t.Append(base, m.CurrentMonth, m.Entities, m.HighRiskEntities, report, status)
	}
	return t
}

func (p *BatchPipeline) writeSummary(r *BatchResult) error {
	path := filepath.Join(r.RunDir, BatchSummaryFile)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create summary: %w", err)
	}
	if err := csvdir.WriteTable(f, r.SummaryTable()); err != nil {
		f.Close()
		return fmt.Errorf("write summary: %w", err)
	}
	return f.Close()
}
