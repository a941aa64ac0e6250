package pipeline

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"segment-flow-lab/internal/config"
	"segment-flow-lab/internal/orchestrator"
	"segment-flow-lab/internal/storage/memory"
	"segment-flow-lab/internal/table"
)

var quiet = log.New(io.Discard, "", 0)

var fixedTime = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

func testSettings() config.Settings {
	s := config.Default()
	s.SegmentColumns = config.SegmentColumns{Entity: "id", Month: "month", Segment: "seg"}
	s.MetricsColumns = config.MetricsColumns{Entity: "id", Month: "month"}
	return s
}

func assignments(month int, pairs ...string) table.Table {
	t := table.New("id", "month", "seg")
	for i := 0; i+1 < len(pairs); i += 2 {
		t.Append(pairs[i], month, pairs[i+1])
	}
	return t
}

func createTestSources() (*memory.SegmentSource, *memory.MetricsSource) {
	segs := memory.NewSegmentSource(assignments(202406, "E1", "SEG01", "E2", "SEG02"))
	segs.AddCurrent(202411, assignments(202411, "E1", "SEG01", "E3", "SEG03"))
	segs.AddCurrent(202412, assignments(202412, "E1", "SEG02", "E2", "SEG02"))

	m := table.New("id", "month", "A1_rev_wf")
	m.Append("E1", 202406, 1000.0)
	m.Append("E2", 202406, 800.0)
	m.Append("E1", 202411, 1200.0)
	m.Append("E3", 202411, 300.0)
	return segs, &memory.MetricsSource{Metrics: m}
}

func newTestPipeline(t *testing.T) (*BatchPipeline, string) {
	t.Helper()
	segs, metrics := createTestSources()
	orch := orchestrator.New(orchestrator.Options{
		Settings: testSettings(),
		Segments: segs,
		Metrics:  metrics,
		Logger:   quiet,
	})
	dir := t.TempDir()
	p := NewBatchPipeline(orch, dir).
		WithClock(func() time.Time { return fixedTime }).
		WithRunID(uuid.MustParse("6f1c2a7e-0000-4000-8000-000000000001")).
		WithLogger(quiet)
	return p, dir
}

func TestBatchPipeline_RunAllMonths(t *testing.T) {
	p, dir := newTestPipeline(t)

	res, err := p.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Status() != StatusSuccess {
		t.Errorf("status = %s, want success", res.Status())
	}
	if res.Succeeded != 2 || res.Failed != 0 {
		t.Errorf("succeeded/failed = %d/%d", res.Succeeded, res.Failed)
	}
	wantDir := filepath.Join(dir, "6f1c2a7e-0000-4000-8000-000000000001")
	if res.RunDir != wantDir {
		t.Errorf("run dir = %s, want %s", res.RunDir, wantDir)
	}
	if !res.StartedAt.Equal(fixedTime) {
		t.Errorf("started at = %v", res.StartedAt)
	}

	for _, name := range []string{
		"REPORT_202406_202411.md",
		"REPORT_202406_202412.md",
		BatchSummaryFile,
		filepath.Join("analysis_202406_202411", "summary.csv"),
		filepath.Join("analysis_202406_202412", "snapshot.csv"),
	} {
		if _, err := os.Stat(filepath.Join(wantDir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}

	first := res.Months[0]
	if first.BaseMonth != 202406 || first.CurrentMonth != 202411 || first.Entities != 3 {
		t.Errorf("first month = %+v", first)
	}
}

func TestBatchPipeline_FailingMonthIsIsolated(t *testing.T) {
	p, _ := newTestPipeline(t)
	p.WithConcurrency(2)

	res, err := p.Run(context.Background(), []int{202411, 202512, 202412})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Status() != StatusPartial {
		t.Errorf("status = %s, want partial", res.Status())
	}
	if res.Succeeded != 2 || res.Failed != 1 {
		t.Errorf("succeeded/failed = %d/%d", res.Succeeded, res.Failed)
	}

	// Results keep the requested order.
	failed := res.Months[1]
	if failed.CurrentMonth != 202512 || failed.Err == nil || failed.Status != StatusFailed {
		t.Errorf("failed month = %+v", failed)
	}
	if res.Months[2].CurrentMonth != 202412 || res.Months[2].Err != nil {
		t.Errorf("third month = %+v", res.Months[2])
	}

	data, err := os.ReadFile(filepath.Join(res.RunDir, BatchSummaryFile))
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	summary := string(data)
	if !strings.Contains(summary, "Base Month,Current Month,Entities,High Risk Entities,Report,Status") {
		t.Errorf("summary header missing:\n%s", summary)
	}
	if !strings.Contains(summary, ",202512,0,0,Failed,Error: ") {
		t.Errorf("failed row missing:\n%s", summary)
	}
}

func TestBatchPipeline_AllFailed(t *testing.T) {
	p, _ := newTestPipeline(t)

	res, err := p.Run(context.Background(), []int{202301})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Status() != StatusFailed {
		t.Errorf("status = %s, want failed", res.Status())
	}
}

func TestBatchPipeline_NoMonths(t *testing.T) {
	orch := orchestrator.New(orchestrator.Options{
		Settings: testSettings(),
		Segments: memory.NewSegmentSource(assignments(202406, "E1", "SEG01")),
		Metrics:  &memory.MetricsSource{},
		Logger:   quiet,
	})
	p := NewBatchPipeline(orch, t.TempDir()).WithLogger(quiet)

	_, err := p.Run(context.Background(), nil)
	if !errors.Is(err, ErrNoMonths) {
		t.Fatalf("expected ErrNoMonths, got %v", err)
	}
}

func TestBatchPipeline_CancelledContext(t *testing.T) {
	p, _ := newTestPipeline(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := p.Run(ctx, []int{202411})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !errors.Is(res.Months[0].Err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", res.Months[0].Err)
	}
}
