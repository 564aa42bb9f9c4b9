package entity

import "time"

// Attempt is an immutable, append-only fact about one answer. ConceptIDs
// are denormalized from the item at submission time so later recomputes
// never need to dereference a possibly-deleted item.
type Attempt struct {
	ID          string
	ItemID      string
	SessionID   string
	ConceptIDs  []string
	UserAnswer  string
	IsCorrect   bool
	Confidence  int32 // 1-5
	TimeSpentMS int64
	Timestamp   time.Time
}

// Validate checks the submission-time constraints. Confidence outside 1-5
// and negative time are rejected before any state mutation.
func (a *Attempt) Validate() error {
	if a.Confidence < 1 || a.Confidence > 5 {
		return ErrInvalidConfidence
	}
	if a.TimeSpentMS < 0 {
		return ErrNegativeTimeSpent
	}
	if a.ItemID == "" {
		return ErrInvalidItemID
	}
	return nil
}

// ConfidenceProbability maps the 1-5 confidence scale linearly onto a
// stated recall probability: 1 -> 0.0, 5 -> 1.0.
func (a *Attempt) ConfidenceProbability() float64 {
	return float64(a.Confidence-1) / 4.0
}

// Outcome returns 1 for a correct attempt, 0 otherwise.
func (a *Attempt) Outcome() float64 {
	if a.IsCorrect {
		return 1
	}
	return 0
}
