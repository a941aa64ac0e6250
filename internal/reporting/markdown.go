package reporting

import (
	"fmt"
	"strings"
	"time"

	"segment-flow-lab/internal/table"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Segment Movement Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Base: %d | Current: %d | Window: %d months | Metric: %s\n\n",
		r.BaseMonth, r.CurrentMonth, r.WindowMonths, r.Metric))
	if r.CacheHit {
		sb.WriteString("Snapshot served from cache.\n\n")
	}

	// Data Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Entities | %d |\n", r.DataSummary.Entities))
	sb.WriteString(fmt.Sprintf("| Retained | %d |\n", r.DataSummary.Retained))
	sb.WriteString(fmt.Sprintf("| Moved Internal | %d |\n", r.DataSummary.MovedInternal))
	sb.WriteString(fmt.Sprintf("| New (System) | %d |\n", r.DataSummary.NewSystem))
	sb.WriteString(fmt.Sprintf("| Lost (System) | %d |\n", r.DataSummary.LostSystem))
	sb.WriteString(fmt.Sprintf("| Metrics | %d |\n", len(r.DataSummary.Metrics)))
	sb.WriteString("\n")

	// Data Quality
	sb.WriteString("## Data Quality\n\n")
	if len(r.DataQuality.Rows) > 0 {
		sb.WriteString("| Source | Duplicate Entities | Empty Segments |\n")
		sb.WriteString("|--------|--------------------|----------------|\n")
		for _, q := range r.DataQuality.Rows {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d |\n", q.Source, q.Duplicates, q.EmptySegments))
		}
		sb.WriteString("\n")
		if r.DataQuality.Clean {
			sb.WriteString("**No data quality warnings.**\n\n")
		} else {
			sb.WriteString("**Warnings present.** Duplicates keep their first occurrence; empty segments are treated as absent.\n\n")
		}
	} else {
		sb.WriteString("Not checked (snapshot served from cache).\n\n")
	}

	// Risk Summary
	sb.WriteString("## Risk Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Entities Analyzed | %d |\n", r.RiskSummary.EntitiesAnalyzed))
	sb.WriteString(fmt.Sprintf("| High Risk Entities | %d |\n", r.RiskSummary.HighEntities))
	sb.WriteString(fmt.Sprintf("| Medium Risk Entities | %d |\n", r.RiskSummary.MediumEntities))
	sb.WriteString(fmt.Sprintf("| Low Risk Entities | %d |\n", r.RiskSummary.LowEntities))
	sb.WriteString(fmt.Sprintf("| High Risk Segments | %d |\n", r.RiskSummary.HighSegments))
	sb.WriteString(fmt.Sprintf("| Medium Risk Segments | %d |\n", r.RiskSummary.MediumSegments))
	sb.WriteString("\n")

	for _, v := range r.Views {
		sb.WriteString(fmt.Sprintf("## %s\n\n", v.Name))
		if v.Table.Len() == 0 {
			sb.WriteString("No data.\n\n")
			continue
		}
		writeTable(&sb, v.Table)
		sb.WriteString("\n")
	}

	return sb.String()
}

func writeTable(sb *strings.Builder, t table.Table) {
	sb.WriteString("| " + strings.Join(t.Columns, " | ") + " |\n")
	sb.WriteString("|" + strings.Repeat("---|", len(t.Columns)) + "\n")
	for _, row := range t.Rows {
		cells := make([]string, len(t.Columns))
		for i := range cells {
			if i < len(row) {
				cells[i] = formatCell(row[i])
			}
		}
		sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case float64:
		return fmt.Sprintf("%.2f", x)
	default:
		return table.AsString(v)
	}
}
