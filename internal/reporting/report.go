package reporting

import (
	"time"

	"segment-flow-lab/internal/table"
)

// Report is the rendered form of one base/current analysis.
type Report struct {
	// Metadata
	GeneratedAt  time.Time
	BaseMonth    int
	CurrentMonth int
	WindowMonths int
	Metric       string
	CacheHit     bool

	DataSummary DataSummary
	DataQuality DataQualitySection
	RiskSummary RiskSummary

	// Views in display order
	Views []View
}

// DataSummary describes the snapshot.
type DataSummary struct {
	Entities      int
	Retained      int
	MovedInternal int
	NewSystem     int
	LostSystem    int
	Metrics       []string
}

// DataQualitySection lists findings per input table.
type DataQualitySection struct {
	Rows  []DataQualityRow
	Clean bool
}

// DataQualityRow is one input table's findings.
type DataQualityRow struct {
	Source        string
	Duplicates    int
	EmptySegments int
}

// RiskSummary counts entities and segments per risk level.
type RiskSummary struct {
	EntitiesAnalyzed int
	HighEntities     int
	MediumEntities   int
	LowEntities      int
	HighSegments     int
	MediumSegments   int
	LowSegments      int
}

// View is one named output table.
type View struct {
	Name  string
	File  string // CSV file name
	Table table.Table
}
