package domain

// Status classifies an entity's transition between the base and current period.
type Status string

const (
	StatusRetained      Status = "Retained"
	StatusMovedInternal Status = "Moved Internal"
	StatusNewSystem     Status = "New (System)"
	StatusLostSystem    Status = "Lost (System)"
)

// AllStatuses lists every status in display order.
var AllStatuses = []Status{StatusRetained, StatusMovedInternal, StatusNewSystem, StatusLostSystem}

// String returns the string representation of Status.
func (s Status) String() string {
	return string(s)
}

// IsValid checks if the status is one of the four transition categories.
func (s Status) IsValid() bool {
	switch s {
	case StatusRetained, StatusMovedInternal, StatusNewSystem, StatusLostSystem:
		return true
	}
	return false
}

// ClassifyStatus maps a (base, current) segment pair to its transition status.
// An empty segment means the entity is absent from that period. The pair where
// both are absent never occurs in a snapshot; it classifies as New (System)
// so the result stays total.
func ClassifyStatus(baseSegment, currentSegment string) Status {
	switch {
	case baseSegment == "":
		return StatusNewSystem
	case currentSegment == "":
		return StatusLostSystem
	case baseSegment == currentSegment:
		return StatusRetained
	default:
		return StatusMovedInternal
	}
}
