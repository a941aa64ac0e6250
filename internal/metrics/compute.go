// Package metrics reduces the long entity x month metrics table to one row per
// entity holding trailing-window sums.
package metrics

import (
	"fmt"
	"math"
	"sort"

	"segment-flow-lab/internal/config"
	"segment-flow-lab/internal/domain"
	"segment-flow-lab/internal/period"
	"segment-flow-lab/internal/table"
)

const source = "metrics"

// Aggregate sums every metric column over the window months ending at target.
// Metric columns are all columns other than the entity and month keys, in
// header order. Entities with no row inside the window are absent. Rows are
// ordered by entity id. Missing or unparsable cells inside the window yield a
// *domain.DataError; empty metric cells count as zero.
func Aggregate(t table.Table, cols config.MetricsColumns, target, window int) (*domain.AggregatedMetrics, error) {
	if missing := t.Missing(cols.Entity, cols.Month); len(missing) > 0 {
		return nil, domain.NewMissingColumnsError(source, missing)
	}

	months, err := period.TrailingWindow(target, window)
	if err != nil {
		return nil, fmt.Errorf("trailing window: %w", err)
	}
	inWindow := make(map[int]struct{}, len(months))
	for _, m := range months {
		inWindow[m] = struct{}{}
	}

	entityCol, monthCol := t.Index(cols.Entity), t.Index(cols.Month)
	var (
		names      []string
		metricCols []int
	)
	for i, c := range t.Columns {
		if i != entityCol && i != monthCol {
			names = append(names, c)
			metricCols = append(metricCols, i)
		}
	}

	sums := make(map[string][]kahanSum)
	for r := range t.Rows {
		month, err := table.AsInt(t.Cell(r, monthCol))
		if err != nil {
			return nil, cellError(cols.Month, r, err)
		}
		if _, ok := inWindow[month]; !ok {
			continue
		}

		entity := table.AsString(t.Cell(r, entityCol))
		if entity == "" {
			return nil, cellError(cols.Entity, r, fmt.Errorf("missing entity id"))
		}

		acc, ok := sums[entity]
		if !ok {
			acc = make([]kahanSum, len(metricCols))
			sums[entity] = acc
		}
		for m, c := range metricCols {
			v, err := table.AsFloat(t.Cell(r, c))
			if err != nil {
				return nil, cellError(t.Columns[c], r, err)
			}
			acc[m].Add(v)
		}
	}

	ids := make([]string, 0, len(sums))
	for id := range sums {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := &domain.AggregatedMetrics{
		TargetMonth:  target,
		WindowMonths: window,
		Months:       months,
		MetricNames:  names,
		Rows:         make([]domain.AggregatedRow, len(ids)),
	}
	for i, id := range ids {
		acc := sums[id]
		vals := make([]float64, len(acc))
		for m := range acc {
			vals[m] = acc[m].Sum()
		}
		out.Rows[i] = domain.AggregatedRow{EntityID: id, Values: vals}
	}
	return out, nil
}

func cellError(column string, row int, err error) *domain.DataError {
	return &domain.DataError{
		Source:  source,
		Columns: []string{column},
		Reason:  fmt.Sprintf("row %d: %v", row+1, err),
	}
}

// kahanSum is a Neumaier compensated accumulator.
type kahanSum struct {
	sum, c float64
}

func (k *kahanSum) Add(x float64) {
	t := k.sum + x
	if math.Abs(k.sum) >= math.Abs(x) {
		k.c += (k.sum - t) + x
	} else {
		k.c += (x - t) + k.sum
	}
	k.sum = t
}

func (k *kahanSum) Sum() float64 {
	return k.sum + k.c
}
