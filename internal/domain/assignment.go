package domain

// SegmentAssignment places one entity in one segment for one period.
type SegmentAssignment struct {
	EntityID    string
	PeriodMonth int // YYYYMM
	SegmentCode string
}

// MetricValue is one metric observation in long form: the value of one named
// metric for one entity in one month.
type MetricValue struct {
	EntityID string
	Month    int // YYYYMM
	Metric   string
	Value    float64
}
