package entity

import "time"

// Trend classifies the direction of a concept's recent mastery movement.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// MasteryState is the derived, fully recomputable per-concept record.
// It is a cache over the attempt log plus current memory states and is
// rebuilt whenever a new attempt for the concept arrives.
type MasteryState struct {
	ConceptID     string
	ConceptName   string
	Domain        string
	MasteryScore  float64 // 0-100
	Attempts      int32
	Correct       int32
	AvgConfidence float64
	BrierScore    float64 // 0-1, lower is better calibrated
	Stability     float64 // attempt-weighted mean of pair stabilities
	DueBacklog    int32   // (concept,item) pairs currently due
	Trend         Trend
	LastAttempted time.Time
	UpdatedAt     time.Time
}

// Covered reports whether the concept has any recorded evidence. An
// uncovered concept is diagnostic-eligible but never review-eligible and
// never appears in the ranked gap list.
func (m *MasteryState) Covered() bool { return m.Attempts > 0 }

// CheckInvariants verifies the ranges the estimator must preserve.
func (m *MasteryState) CheckInvariants() error {
	if m.MasteryScore < 0 || m.MasteryScore > 100 {
		return &InvariantError{Quantity: "mastery score", Value: m.MasteryScore}
	}
	if m.BrierScore < 0 || m.BrierScore > 1 {
		return &InvariantError{Quantity: "brier score", Value: m.BrierScore}
	}
	return nil
}

// GapSummary is the ranked-gap projection served to the UI.
type GapSummary struct {
	ConceptID    string
	ConceptName  string
	Domain       string
	MasteryScore float64
	Stability    float64
	DueBacklog   int32
	Trend        Trend
	Severity     string // critical | weak | moderate | strong
}

// SeverityFor buckets a mastery score against the configured thresholds.
func SeverityFor(score, critical, weak, strong float64) string {
	switch {
	case score < critical:
		return "critical"
	case score < weak:
		return "weak"
	case score >= strong:
		return "strong"
	default:
		return "moderate"
	}
}
