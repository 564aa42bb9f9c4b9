package entity

import "time"

// MemoryState tracks spaced-repetition state for one (concept,item) pair.
// Retrievability is computed on demand from stability and elapsed time,
// never stored. DueAt is always derived from LastReviewed plus the
// interval implied by stability and the desired retention; it is never
// set independently.
type MemoryState struct {
	ConceptID    string
	ItemID       string
	Stability    float64 // days until retrievability decays to 0.9
	Difficulty   float64 // intrinsic FSRS difficulty, 1-10
	Reps         int32
	Lapses       int32
	LastReviewed time.Time
	DueAt        time.Time
}

// CheckInvariants verifies the ranges the scheduler must preserve.
func (m *MemoryState) CheckInvariants() error {
	if m.Stability <= 0 {
		return &InvariantError{Quantity: "stability", Value: m.Stability}
	}
	if m.Difficulty < 1 || m.Difficulty > 10 {
		return &InvariantError{Quantity: "difficulty", Value: m.Difficulty}
	}
	return nil
}
