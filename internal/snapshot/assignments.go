package snapshot

import (
	"fmt"

	"segment-flow-lab/internal/config"
	"segment-flow-lab/internal/domain"
	"segment-flow-lab/internal/table"
)

// Quality lists data-quality findings in one assignment table. Findings are
// warnings: the table is still usable.
type Quality struct {
	Source        string
	Duplicates    []string // entity ids seen more than once; first occurrence kept
	EmptySegments []string // entity ids with an empty segment code, treated as absent
}

// Clean reports whether there are no findings.
func (q Quality) Clean() bool {
	return len(q.Duplicates) == 0 && len(q.EmptySegments) == 0
}

// Month reads the period month from the first row of an assignment table.
// Every row of the table is assumed to share it.
func Month(t table.Table, cols config.SegmentColumns, source string) (int, error) {
	if err := checkAssignmentTable(t, cols, source); err != nil {
		return 0, err
	}
	m, err := table.AsInt(t.Cell(0, t.Index(cols.Month)))
	if err != nil {
		return 0, &domain.DataError{Source: source, Columns: []string{cols.Month}, Reason: fmt.Sprintf("row 1: %v", err)}
	}
	return m, nil
}

// ParseAssignments converts an assignment table into assignments in table
// order. Duplicate entities keep their first occurrence; entities with an empty
// segment code are reported and omitted.
func ParseAssignments(t table.Table, cols config.SegmentColumns, source string) ([]domain.SegmentAssignment, Quality, error) {
	q := Quality{Source: source}

	month, err := Month(t, cols, source)
	if err != nil {
		return nil, q, err
	}

	entityCol, segCol := t.Index(cols.Entity), t.Index(cols.Segment)
	seen := make(map[string]struct{}, t.Len())
	out := make([]domain.SegmentAssignment, 0, t.Len())

	for r := range t.Rows {
		id := table.AsString(t.Cell(r, entityCol))
		if id == "" {
			return nil, q, &domain.DataError{Source: source, Columns: []string{cols.Entity}, Reason: fmt.Sprintf("row %d: missing entity id", r+1)}
		}
		if _, dup := seen[id]; dup {
			q.Duplicates = append(q.Duplicates, id)
			continue
		}
		seen[id] = struct{}{}

		seg := table.AsString(t.Cell(r, segCol))
		if seg == "" {
			q.EmptySegments = append(q.EmptySegments, id)
			continue
		}
		out = append(out, domain.SegmentAssignment{EntityID: id, PeriodMonth: month, SegmentCode: seg})
	}
	return out, q, nil
}

func checkAssignmentTable(t table.Table, cols config.SegmentColumns, source string) error {
	if missing := t.Missing(cols.Entity, cols.Month, cols.Segment); len(missing) > 0 {
		return domain.NewMissingColumnsError(source, missing)
	}
	if t.Len() == 0 {
		return &domain.DataError{Source: source, Reason: "table is empty"}
	}
	return nil
}
