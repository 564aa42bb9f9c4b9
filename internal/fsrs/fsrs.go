// Package fsrs implements the FSRS-style memory stability model. It is a
// pure function set over entity.MemoryState: no I/O, no clocks, no
// randomness, so a fixed attempt sequence always yields the same state.
package fsrs

import (
	"math"
	"time"

	"github.com/eslsoft/gapmap/internal/entity"
)

// Rating grades one attempt on the standard four-point FSRS scale.
type Rating int

const (
	RatingAgain Rating = 1
	RatingHard  Rating = 2
	RatingGood  Rating = 3
	RatingEasy  Rating = 4
)

// Params holds the tunable scheduler weights. The weight table follows
// the FSRS reference layout: w[0..3] are per-rating initial stabilities,
// w[4..7] drive difficulty, w[8..10] drive recall stability growth.
type Params struct {
	W                [17]float64
	DesiredRetention float64
	MaximumInterval  float64 // days
	// Failure collapses stability multiplicatively:
	// S' = S * (FailFactor + FailRetention*R). The sum of the two
	// coefficients must stay below 1 so a lapse always shrinks stability.
	FailFactor    float64
	FailRetention float64
}

// DefaultParams returns the stock weight table.
func DefaultParams() Params {
	return Params{
		W: [17]float64{
			0.4, 0.6, 2.4, 5.8, 4.93, 0.94, 0.86, 0.01, 1.49,
			0.14, 0.94, 2.18, 0.05, 0.34, 1.26, 0.29, 2.61,
		},
		DesiredRetention: 0.9,
		MaximumInterval:  36500,
		FailFactor:       0.2,
		FailRetention:    0.3,
	}
}

// Scheduler applies the stability model to memory states.
type Scheduler struct {
	params Params
}

// NewScheduler constructs a scheduler with the given parameters.
func NewScheduler(params Params) *Scheduler {
	if params.DesiredRetention <= 0 || params.DesiredRetention >= 1 {
		params.DesiredRetention = 0.9
	}
	if params.MaximumInterval <= 0 {
		params.MaximumInterval = 36500
	}
	return &Scheduler{params: params}
}

// RatingFor derives a rating from attempt correctness and confidence.
// Wrong answers always rate Again; correct answers grade Hard through
// Easy by stated confidence.
func RatingFor(isCorrect bool, confidence int32) Rating {
	if !isCorrect {
		return RatingAgain
	}
	c := confidence
	if c < 2 {
		c = 2
	}
	if c > 4 {
		c = 4
	}
	return Rating(c)
}

// InitialState builds the memory state for the first exposure of a
// (concept,item) pair. This path never fails.
func (s *Scheduler) InitialState(conceptID, itemID string, attempt *entity.Attempt) entity.MemoryState {
	rating := RatingFor(attempt.IsCorrect, attempt.Confidence)
	stability := s.initStability(rating)
	difficulty := s.constrainDifficulty(s.initDifficulty(rating))

	state := entity.MemoryState{
		ConceptID:    conceptID,
		ItemID:       itemID,
		Stability:    stability,
		Difficulty:   difficulty,
		Reps:         1,
		LastReviewed: attempt.Timestamp,
	}
	if rating == RatingAgain {
		state.Lapses = 1
	}
	state.DueAt = s.dueAt(attempt.Timestamp, stability)
	return state
}

// UpdateState folds one subsequent attempt into the pair's memory state.
func (s *Scheduler) UpdateState(state entity.MemoryState, attempt *entity.Attempt) entity.MemoryState {
	rating := RatingFor(attempt.IsCorrect, attempt.Confidence)
	elapsed := elapsedDays(state.LastReviewed, attempt.Timestamp)
	retr := s.forgettingCurve(elapsed, state.Stability)

	next := state
	next.Difficulty = s.nextDifficulty(state.Difficulty, rating)
	if rating == RatingAgain {
		next.Stability = s.failStability(state.Stability, retr)
		next.Lapses++
	} else {
		next.Stability = s.recallStability(state.Difficulty, state.Stability, retr, rating)
	}
	next.Reps++
	next.LastReviewed = attempt.Timestamp
	next.DueAt = s.dueAt(attempt.Timestamp, next.Stability)
	return next
}

// RetrievabilityAt answers the current recall probability without
// mutating state. Clock skew (asOf before the last review) clamps
// elapsed time to zero, yielding 1.0.
func (s *Scheduler) RetrievabilityAt(state *entity.MemoryState, asOf time.Time) float64 {
	if state.Stability <= 0 {
		return 0
	}
	return s.forgettingCurve(elapsedDays(state.LastReviewed, asOf), state.Stability)
}

// IsDue reports whether the pair is due for review at asOf.
func (s *Scheduler) IsDue(state *entity.MemoryState, asOf time.Time) bool {
	return !asOf.Before(state.DueAt)
}

// Interval returns the scheduling interval in days implied by a
// stability under the configured desired retention.
func (s *Scheduler) Interval(stability float64) float64 {
	interval := stability * math.Log(s.params.DesiredRetention) / math.Log(0.9)
	if interval > s.params.MaximumInterval {
		interval = s.params.MaximumInterval
	}
	if interval < 0 {
		interval = 0
	}
	return interval
}

func (s *Scheduler) dueAt(reviewed time.Time, stability float64) time.Time {
	return reviewed.Add(time.Duration(s.Interval(stability) * 24 * float64(time.Hour)))
}

// forgettingCurve is the exponential decay R = 0.9^(elapsed/stability),
// normalized so retrievability is exactly the reference 0.9 when elapsed
// equals stability.
func (s *Scheduler) forgettingCurve(elapsed, stability float64) float64 {
	if stability <= 0 {
		return 0
	}
	if elapsed <= 0 {
		return 1
	}
	return math.Exp(math.Log(0.9) * elapsed / stability)
}

func (s *Scheduler) initStability(rating Rating) float64 {
	return math.Max(s.params.W[rating-1], 0.1)
}

func (s *Scheduler) initDifficulty(rating Rating) float64 {
	return s.params.W[4] - s.params.W[5]*float64(rating-3)
}

func (s *Scheduler) nextDifficulty(difficulty float64, rating Rating) float64 {
	next := difficulty - s.params.W[6]*float64(rating-3)
	return s.constrainDifficulty(s.meanReversion(s.params.W[4], next))
}

func (s *Scheduler) constrainDifficulty(d float64) float64 {
	return math.Min(math.Max(d, 1), 10)
}

func (s *Scheduler) meanReversion(init, current float64) float64 {
	return s.params.W[7]*init + (1-s.params.W[7])*current
}

// recallStability grows stability on successful recall. The (1-R) factor
// rewards desirable difficulty: success on a nearly-forgotten pair earns
// more growth than success on a fresh one.
func (s *Scheduler) recallStability(difficulty, stability, retrievability float64, rating Rating) float64 {
	hardPenalty := 1.0
	if rating == RatingHard {
		hardPenalty = s.params.W[15]
	}
	easyBonus := 1.0
	if rating == RatingEasy {
		easyBonus = s.params.W[16]
	}

	growth := math.Exp(s.params.W[8]) *
		(11 - difficulty) *
		math.Pow(stability, -s.params.W[9]) *
		(math.Exp((1-retrievability)*s.params.W[10]) - 1) *
		hardPenalty * easyBonus

	return stability * (1 + growth)
}

// failStability collapses stability toward a fraction of its previous
// value. A lapse on a still-fresh pair (high retrievability) retains
// more prior signal than one on an already-forgotten pair, and the
// factor is strictly below 1 so stability always shrinks.
func (s *Scheduler) failStability(stability, retrievability float64) float64 {
	factor := s.params.FailFactor + s.params.FailRetention*retrievability
	if factor >= 1 {
		factor = 0.99
	}
	return stability * factor
}

func elapsedDays(from, to time.Time) float64 {
	days := to.Sub(from).Hours() / 24
	if days < 0 {
		return 0
	}
	return days
}
