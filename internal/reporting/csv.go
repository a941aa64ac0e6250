package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"segment-flow-lab/internal/domain"
	"segment-flow-lab/internal/storage/csvdir"
	"segment-flow-lab/internal/table"
)

// RenderCSV renders a table as CSV string.
func RenderCSV(t table.Table) (string, error) {
	var sb strings.Builder
	if err := csvdir.WriteTable(&sb, t); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// ExportDir is the directory, under root, that holds one analysis's CSV files.
func ExportDir(root string, baseMonth, currentMonth int) string {
	return filepath.Join(root, fmt.Sprintf("analysis_%d_%d", baseMonth, currentMonth))
}

// ExportCSV writes every view of the report, plus the full snapshot, as CSV
// files under ExportDir. It returns the directory written.
func ExportCSV(root string, r *Report, snap *domain.Snapshot) (string, error) {
	dir := ExportDir(root, r.BaseMonth, r.CurrentMonth)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	views := r.Views
	if snap != nil {
		views = append(append([]View(nil), views...), View{Name: "Snapshot", File: "snapshot.csv", Table: snap.Table()})
	}
	for _, v := range views {
		if err := writeFile(filepath.Join(dir, v.File), v.Table); err != nil {
			return "", err
		}
	}
	return dir, nil
}

func writeFile(path string, t table.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := csvdir.WriteTable(f, t); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
