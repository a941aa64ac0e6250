// Package csvdir reads and writes the flat-file dataset layout:
//
//	base_seg.csv            base-period assignments
//	curr_seg_YYYYMM.csv     one file per current period
//	rev_glbl.csv            long entity x month metrics
package csvdir

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"segment-flow-lab/internal/domain"
	"segment-flow-lab/internal/storage"
	"segment-flow-lab/internal/table"
)

// File names.
const (
	BaseFile    = "base_seg.csv"
	MetricsFile = "rev_glbl.csv"
)

var currentFilePattern = regexp.MustCompile(`^curr_seg_(\d{6})\.csv$`)

// CurrentFile returns the file name for a current month.
func CurrentFile(month int) string {
	return fmt.Sprintf("curr_seg_%d.csv", month)
}

// Dir is a dataset directory. It implements both storage.SegmentSource and
// storage.MetricsSource.
type Dir struct {
	path string
}

// New returns a Dir rooted at path.
func New(path string) *Dir {
	return &Dir{path: path}
}

// Path returns the directory path.
func (d *Dir) Path() string {
	return d.path
}

// LoadBase reads base_seg.csv.
func (d *Dir) LoadBase(_ context.Context) (table.Table, error) {
	return d.read(BaseFile)
}

// LoadCurrent reads curr_seg_YYYYMM.csv. Returns *domain.NotFoundError if the file is missing.
func (d *Dir) LoadCurrent(_ context.Context, month int) (table.Table, error) {
	return d.read(CurrentFile(month))
}

// LoadMetrics reads rev_glbl.csv.
func (d *Dir) LoadMetrics(_ context.Context) (table.Table, error) {
	return d.read(MetricsFile)
}

// CurrentMonths lists months with a curr_seg_YYYYMM.csv file, ascending.
func (d *Dir) CurrentMonths(_ context.Context) ([]int, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &domain.NotFoundError{Resource: "data directory " + d.path, Err: storage.ErrNotFound}
		}
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var months []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := currentFilePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		month, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		months = append(months, month)
	}
	sort.Ints(months)
	return months, nil
}

// WriteBase writes base_seg.csv.
func (d *Dir) WriteBase(t table.Table) error {
	return d.write(BaseFile, t)
}

// WriteCurrent writes curr_seg_YYYYMM.csv.
func (d *Dir) WriteCurrent(month int, t table.Table) error {
	return d.write(CurrentFile(month), t)
}

// WriteMetrics writes rev_glbl.csv.
func (d *Dir) WriteMetrics(t table.Table) error {
	return d.write(MetricsFile, t)
}

func (d *Dir) read(name string) (table.Table, error) {
	f, err := os.Open(filepath.Join(d.path, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return table.Table{}, &domain.NotFoundError{Resource: name, Err: storage.ErrNotFound}
		}
		return table.Table{}, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	t, err := ReadTable(f)
	if err != nil {
		return table.Table{}, fmt.Errorf("read %s: %w", name, err)
	}
	return t, nil
}

func (d *Dir) write(name string, t table.Table) error {
	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	f, err := os.Create(filepath.Join(d.path, name))
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if err := WriteTable(f, t); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	return f.Close()
}

// ReadTable parses CSV with a header row. Cells are kept as strings; empty
// cells become nil.
func ReadTable(r io.Reader) (table.Table, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return table.Table{}, nil
		}
		return table.Table{}, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = trimBOM(header[0])
	}

	t := table.New(header...)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return table.Table{}, fmt.Errorf("read row %d: %w", t.Len()+1, err)
		}
		cells := make([]any, len(rec))
		for i, v := range rec {
			if v != "" {
				cells[i] = v
			}
		}
		t.Append(cells...)
	}
	return t, nil
}

// WriteTable writes a header row and one record per row. Nil cells are empty.
func WriteTable(w io.Writer, t table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	rec := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i := range rec {
			rec[i] = ""
			if i < len(row) {
				rec[i] = formatCell(row[i])
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return table.AsString(v)
	}
}

func trimBOM(s string) string {
	const bom = "\ufeff"
	if len(s) >= len(bom) && s[:len(bom)] == bom {
		return s[len(bom):]
	}
	return s
}

var (
	_ storage.SegmentSource = (*Dir)(nil)
	_ storage.MetricsSource = (*Dir)(nil)
)
