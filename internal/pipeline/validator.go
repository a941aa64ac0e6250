package pipeline

import (
	"context"
	"fmt"
	"sort"

	"segment-flow-lab/internal/config"
	"segment-flow-lab/internal/period"
	"segment-flow-lab/internal/snapshot"
	"segment-flow-lab/internal/storage"
	"segment-flow-lab/internal/table"
)

// Input kinds.
const (
	KindSegment = "segment"
	KindMetrics = "metrics"
)

// InputCheck is the validation result of one input table.
type InputCheck struct {
	Name string
	Kind string
	Pass bool

	Rows     int
	Entities int
	Missing  []string // required columns not present

	// Segment inputs
	Segments      []string
	Duplicates    int
	EmptySegments int

	// Metrics inputs
	MonthMin      int
	MonthMax      int
	InvalidMonths int
	MetricColumns int

	Errors   []string // failures
	Warnings []string // usable but suspicious
}

// ValidationResult contains every input check.
type ValidationResult struct {
	Checks  []InputCheck
	AllPass bool
}

// Validator checks input tables before analysis. Missing columns, empty
// tables and unreadable sources fail; duplicates and empty segment codes warn.
type Validator struct {
	segCols    config.SegmentColumns
	metricCols config.MetricsColumns
}

// NewValidator creates a new validator.
func NewValidator(settings config.Settings) *Validator {
	return &Validator{segCols: settings.SegmentColumns, metricCols: settings.MetricsColumns}
}

// Validate checks the base table, every listed current table and the metrics table.
func (v *Validator) Validate(ctx context.Context, segs storage.SegmentSource, metrics storage.MetricsSource) (*ValidationResult, error) {
	res := &ValidationResult{AllPass: true}
	add := func(c InputCheck) {
		c.Pass = len(c.Errors) == 0
		if !c.Pass {
			res.AllPass = false
		}
		res.Checks = append(res.Checks, c)
	}

	base, err := segs.LoadBase(ctx)
	add(v.checkSegments("base", base, err))

	months, err := segs.CurrentMonths(ctx)
	if err != nil {
		add(InputCheck{Name: "current", Kind: KindSegment, Errors: []string{err.Error()}})
	} else if len(months) == 0 {
		add(InputCheck{Name: "current", Kind: KindSegment, Errors: []string{"no current period tables found"}})
	}
	for _, m := range months {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t, err := segs.LoadCurrent(ctx, m)
		add(v.checkSegments(fmt.Sprintf("current %d", m), t, err))
	}

	mt, err := metrics.LoadMetrics(ctx)
	add(v.checkMetrics("metrics", mt, err))

	return res, nil
}

func (v *Validator) checkSegments(name string, t table.Table, loadErr error) InputCheck {
	c := InputCheck{Name: name, Kind: KindSegment}
	if loadErr != nil {
		c.Errors = append(c.Errors, loadErr.Error())
		return c
	}
	c.Rows = t.Len()
	if c.Missing = t.Missing(v.segCols.Entity, v.segCols.Month, v.segCols.Segment); len(c.Missing) > 0 {
		c.Errors = append(c.Errors, fmt.Sprintf("missing columns %v (available: %v)", c.Missing, t.Columns))
		return c
	}

	rows, q, err := snapshot.ParseAssignments(t, v.segCols, name)
	if err != nil {
		c.Errors = append(c.Errors, err.Error())
		return c
	}
	c.Entities = len(rows) + len(q.EmptySegments)
	c.Duplicates = len(q.Duplicates)
	c.EmptySegments = len(q.EmptySegments)

	segs := make(map[string]struct{})
	for _, a := range rows {
		segs[a.SegmentCode] = struct{}{}
	}
	for s := range segs {
		c.Segments = append(c.Segments, s)
	}
	sort.Strings(c.Segments)

	if c.Duplicates > 0 {
		c.Warnings = append(c.Warnings, fmt.Sprintf("%d duplicate entities", c.Duplicates))
	}
	if c.EmptySegments > 0 {
		c.Warnings = append(c.Warnings, fmt.Sprintf("%d entities with empty segment code", c.EmptySegments))
	}
	if m, err := snapshot.Month(t, v.segCols, name); err == nil && !period.Valid(m) {
		c.Errors = append(c.Errors, fmt.Sprintf("period month %d is not YYYYMM", m))
	}
	return c
}

func (v *Validator) checkMetrics(name string, t table.Table, loadErr error) InputCheck {
	c := InputCheck{Name: name, Kind: KindMetrics}
	if loadErr != nil {
		c.Errors = append(c.Errors, loadErr.Error())
		return c
	}
	c.Rows = t.Len()
	if c.Missing = t.Missing(v.metricCols.Entity, v.metricCols.Month); len(c.Missing) > 0 {
		c.Errors = append(c.Errors, fmt.Sprintf("missing columns %v (available: %v)", c.Missing, t.Columns))
		return c
	}
	if c.Rows == 0 {
		c.Errors = append(c.Errors, "table is empty")
		return c
	}
	c.MetricColumns = len(t.Columns) - 2

	entityCol, monthCol := t.Index(v.metricCols.Entity), t.Index(v.metricCols.Month)
	entities := make(map[string]struct{})
	for r := range t.Rows {
		entities[table.AsString(t.Cell(r, entityCol))] = struct{}{}
		m, err := table.AsInt(t.Cell(r, monthCol))
		if err != nil || !period.Valid(m) {
			c.InvalidMonths++
			continue
		}
		if c.MonthMin == 0 || m < c.MonthMin {
			c.MonthMin = m
		}
		if m > c.MonthMax {
			c.MonthMax = m
		}
	}
	c.Entities = len(entities)

	if c.InvalidMonths > 0 {
		c.Errors = append(c.Errors, fmt.Sprintf("%d rows with a month that is not YYYYMM", c.InvalidMonths))
	}
	if c.MetricColumns == 0 {
		c.Warnings = append(c.Warnings, "no metric columns")
	}
	return c
}
