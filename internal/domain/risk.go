package domain

// RiskLevel buckets a risk score.
type RiskLevel string

const (
	RiskHigh   RiskLevel = "High"
	RiskMedium RiskLevel = "Medium"
	RiskLow    RiskLevel = "Low"
)

// Risk level thresholds (inclusive).
const (
	HighRiskThreshold   = 60
	MediumRiskThreshold = 30
)

// String returns the string representation of RiskLevel.
func (l RiskLevel) String() string {
	return string(l)
}

// RiskLevelFor returns High for score >= 60, Medium for score >= 30, else Low.
func RiskLevelFor(score int) RiskLevel {
	switch {
	case score >= HighRiskThreshold:
		return RiskHigh
	case score >= MediumRiskThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}
