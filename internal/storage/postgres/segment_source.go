package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"segment-flow-lab/internal/config"
	"segment-flow-lab/internal/domain"
	"segment-flow-lab/internal/observability"
	"segment-flow-lab/internal/storage"
	"segment-flow-lab/internal/table"
)

// SegmentSource implements storage.SegmentSource over segment_assignments.
// The base period is fixed at construction; every other month is a current period.
type SegmentSource struct {
	pool      *Pool
	cols      config.SegmentColumns
	baseMonth int
}

// NewSegmentSource creates a new SegmentSource. Output columns are named after cols.
func NewSegmentSource(pool *Pool, cols config.SegmentColumns, baseMonth int) *SegmentSource {
	return &SegmentSource{pool: pool, cols: cols, baseMonth: baseMonth}
}

// Compile-time interface check.
var _ storage.SegmentSource = (*SegmentSource)(nil)

// LoadBase returns the base-month assignments. A base month with no rows is a
// *domain.DataError, matching an empty base file.
func (s *SegmentSource) LoadBase(ctx context.Context) (table.Table, error) {
	t, err := s.loadMonth(ctx, "load_base", s.baseMonth)
	if domain.IsNotFound(err) {
		return table.Table{}, &domain.DataError{
			Source: fmt.Sprintf("base assignments %d", s.baseMonth),
			Reason: "table is empty",
		}
	}
	return t, err
}

// LoadCurrent returns the assignments for month. Returns *domain.NotFoundError
// if the month has no rows.
func (s *SegmentSource) LoadCurrent(ctx context.Context, month int) (table.Table, error) {
	return s.loadMonth(ctx, "load_current", month)
}

// CurrentMonths lists every stored month except the base month, ascending.
func (s *SegmentSource) CurrentMonths(ctx context.Context) ([]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT period_month
		FROM segment_assignments
		WHERE period_month <> $1
		ORDER BY period_month ASC
	`, s.baseMonth)
	if err != nil {
		return nil, wrapQueryError("list current months", err)
	}

	months, err := pgx.CollectRows(rows, pgx.RowTo[int32])
	if err != nil {
		return nil, fmt.Errorf("scan months: %w", err)
	}

	out := make([]int, len(months))
	for i, m := range months {
		out[i] = int(m)
	}
	return out, nil
}

// InsertBulk copies assignments into the table.
func (s *SegmentSource) InsertBulk(ctx context.Context, assignments []domain.SegmentAssignment) error {
	if len(assignments) == 0 {
		return nil
	}

	rows := make([][]any, len(assignments))
	for i, a := range assignments {
		if a.EntityID == "" {
			return storage.ErrInvalidInput
		}
		var seg any
		if a.SegmentCode != "" {
			seg = a.SegmentCode
		}
		rows[i] = []any{a.EntityID, int32(a.PeriodMonth), seg}
	}

	_, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"segment_assignments"},
		[]string{"entity_id", "period_month", "segment_code"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return wrapQueryError("copy segment assignments", err)
	}
	return nil
}

func (s *SegmentSource) loadMonth(ctx context.Context, op string, month int) (table.Table, error) {
	start := time.Now()
	t, err := s.queryMonth(ctx, month)
	observability.RecordDBQuery("postgres", op, time.Since(start).Seconds(), err)
	if err != nil {
		return table.Table{}, err
	}
	if t.Len() == 0 {
		return table.Table{}, &domain.NotFoundError{
			Resource: fmt.Sprintf("segment assignments for %d", month),
			Err:      storage.ErrNotFound,
		}
	}
	return t, nil
}

func (s *SegmentSource) queryMonth(ctx context.Context, month int) (table.Table, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT entity_id, period_month, segment_code
		FROM segment_assignments
		WHERE period_month = $1
		ORDER BY id ASC
	`, month)
	if err != nil {
		return table.Table{}, wrapQueryError("query segment assignments", err)
	}
	defer rows.Close()

	t := table.New(s.cols.Entity, s.cols.Month, s.cols.Segment)
	for rows.Next() {
		var (
			entityID string
			period   int32
			segment  *string
		)
		if err := rows.Scan(&entityID, &period, &segment); err != nil {
			return table.Table{}, fmt.Errorf("scan segment assignment: %w", err)
		}
		var seg any
		if segment != nil {
			seg = *segment
		}
		t.Append(entityID, int(period), seg)
	}
	if err := rows.Err(); err != nil {
		return table.Table{}, fmt.Errorf("iterate segment assignments: %w", err)
	}
	return t, nil
}
