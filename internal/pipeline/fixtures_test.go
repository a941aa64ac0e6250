package pipeline

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"segment-flow-lab/internal/config"
	"segment-flow-lab/internal/orchestrator"
	"segment-flow-lab/internal/period"
	"segment-flow-lab/internal/storage/csvdir"
)

func smallFixtureConfig() FixtureConfig {
	cfg := DefaultFixtureConfig()
	cfg.Entities = 60
	cfg.MetricsStart = 202401
	return cfg
}

func generate(t *testing.T, cfg FixtureConfig) *Fixtures {
	t.Helper()
	s := config.Default()
	f, err := GenerateFixtures(cfg, s.SegmentColumns, s.MetricsColumns)
	if err != nil {
		t.Fatalf("GenerateFixtures: %v", err)
	}
	return f
}

func TestGenerateFixtures_Deterministic(t *testing.T) {
	a := generate(t, smallFixtureConfig())
	b := generate(t, smallFixtureConfig())
	if !reflect.DeepEqual(a, b) {
		t.Error("same seed should produce identical fixtures")
	}

	cfg := smallFixtureConfig()
	cfg.Seed = 7
	c := generate(t, cfg)
	if reflect.DeepEqual(a.Base, c.Base) && reflect.DeepEqual(a.Metrics, c.Metrics) {
		t.Error("different seeds should produce different fixtures")
	}
}

func TestGenerateFixtures_Shape(t *testing.T) {
	cfg := smallFixtureConfig()
	f := generate(t, cfg)

	if f.Base.Len() != cfg.Entities {
		t.Errorf("base rows = %d, want %d", f.Base.Len(), cfg.Entities)
	}
	if len(f.Current) != 2 {
		t.Fatalf("expected 2 current months, got %d", len(f.Current))
	}
	for m, tbl := range f.Current {
		if tbl.Len() == 0 {
			t.Errorf("current %d is empty", m)
		}
	}

	// month, entity, then rev and vol per product
	if want := 2 + 2*len(FixtureProducts); len(f.Metrics.Columns) != want {
		t.Errorf("metrics columns = %d, want %d", len(f.Metrics.Columns), want)
	}
	if f.Metrics.Columns[2] != "A1_rev_wf" || f.Metrics.Columns[3] != "A1_vol_wf" {
		t.Errorf("unexpected metric columns %v", f.Metrics.Columns[2:4])
	}
	// 202401 through 202512 is 24 months
	entities := cfg.Entities + newCount(cfg.Entities)
	if f.Metrics.Len() != entities*24 {
		t.Errorf("metrics rows = %d, want %d", f.Metrics.Len(), entities*24)
	}
}

func TestGenerateFixtures_InvertedMetricsRange(t *testing.T) {
	s := config.Default()
	cfg := smallFixtureConfig()
	cfg.MetricsStart, cfg.MetricsEnd = 202512, 202301

	f, err := GenerateFixtures(cfg, s.SegmentColumns, s.MetricsColumns)
	if !errors.Is(err, period.ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
	if f != nil {
		t.Errorf("expected no fixtures, got %d metrics rows", f.Metrics.Len())
	}
}

func TestGenerateFixtures_InvalidConfig(t *testing.T) {
	s := config.Default()
	for _, mutate := range []func(*FixtureConfig){
		func(c *FixtureConfig) { c.Entities = 0 },
		func(c *FixtureConfig) { c.BaseMonth = 202413 },
		func(c *FixtureConfig) { c.MetricsStart, c.MetricsEnd = 202512, 202301 },
		func(c *FixtureConfig) { c.CurrentMonths = []int{202400} },
	} {
		cfg := smallFixtureConfig()
		mutate(&cfg)
		if _, err := GenerateFixtures(cfg, s.SegmentColumns, s.MetricsColumns); err == nil {
			t.Errorf("expected error for %+v", cfg)
		}
	}
}

func TestFixtures_WriteAndAnalyze(t *testing.T) {
	f := generate(t, smallFixtureConfig())
	dir := csvdir.New(t.TempDir())
	if err := f.WriteTo(dir); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	months, err := dir.CurrentMonths(context.Background())
	if err != nil {
		t.Fatalf("CurrentMonths: %v", err)
	}
	if !reflect.DeepEqual(months, []int{202411, 202512}) {
		t.Errorf("months = %v", months)
	}

	orch := orchestrator.New(orchestrator.Options{
		Settings: config.Default(),
		Segments: dir,
		Metrics:  dir,
		Logger:   quiet,
	})
	a, err := orch.Analyze(context.Background(), 202411, "A1_rev_wf")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.Snapshot.BaseMonth != 202406 {
		t.Errorf("base month = %d", a.Snapshot.BaseMonth)
	}
	if len(a.ProductMix) != len(FixtureProducts) {
		t.Errorf("product mix has %d products, want %d", len(a.ProductMix), len(FixtureProducts))
	}
}

func TestFixtures_SourcesValidate(t *testing.T) {
	segs, metrics := generate(t, smallFixtureConfig()).Sources()

	res, err := NewValidator(config.Default()).Validate(context.Background(), segs, metrics)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !res.AllPass {
		t.Errorf("fixtures should validate: %+v", res.Checks)
	}
}
