// Package mastery derives per-concept mastery scores, calibration
// metrics and gap rankings from the attempt log and memory states. All
// functions are pure and idempotent: recomputing on identical inputs
// yields identical output.
package mastery

import (
	"math"
	"sort"
	"time"

	"github.com/eslsoft/gapmap/internal/entity"
)

// EstimatorConfig holds the tunable scoring weights.
type EstimatorConfig struct {
	RecencyHalfLifeDays float64 // half-life for recency weighting
	TrendWindow         int     // attempts per trend comparison window
	TrendThreshold      float64 // score delta treated as noise
	StabilityNormDays   float64 // stability at which the component reaches 0.5

	WeightRecency   float64
	WeightStability float64
	WeightAccuracy  float64
}

// DefaultEstimatorConfig returns the stock scoring weights.
func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		RecencyHalfLifeDays: 14,
		TrendWindow:         5,
		TrendThreshold:      3,
		StabilityNormDays:   14,
		WeightRecency:       0.55,
		WeightStability:     0.25,
		WeightAccuracy:      0.20,
	}
}

// Estimator recomputes MasteryState records.
type Estimator struct {
	cfg EstimatorConfig
}

// NewEstimator constructs an estimator with the given config.
func NewEstimator(cfg EstimatorConfig) *Estimator {
	if cfg.TrendWindow <= 0 {
		cfg.TrendWindow = 5
	}
	if cfg.RecencyHalfLifeDays <= 0 {
		cfg.RecencyHalfLifeDays = 14
	}
	if cfg.StabilityNormDays <= 0 {
		cfg.StabilityNormDays = 14
	}
	return &Estimator{cfg: cfg}
}

// Recompute derives the MasteryState for one concept from its attempt
// history and the concept's current memory states. attempts may arrive
// in any order; they are sorted by timestamp internally.
func (e *Estimator) Recompute(conceptID string, attempts []entity.Attempt, states []entity.MemoryState) entity.MasteryState {
	out := entity.MasteryState{
		ConceptID: conceptID,
		Trend:     entity.TrendStable,
	}
	if len(attempts) == 0 {
		return out
	}

	sorted := make([]entity.Attempt, len(attempts))
	copy(sorted, attempts)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	now := sorted[len(sorted)-1].Timestamp
	out.Attempts = int32(len(sorted))
	out.LastAttempted = now

	var confidenceSum, brierSum float64
	for _, a := range sorted {
		if a.IsCorrect {
			out.Correct++
		}
		confidenceSum += float64(a.Confidence)
		diff := a.ConfidenceProbability() - a.Outcome()
		brierSum += diff * diff
	}
	out.AvgConfidence = confidenceSum / float64(len(sorted))
	out.BrierScore = clamp(brierSum/float64(len(sorted)), 0, 1)

	out.Stability = aggregateStability(states)
	out.MasteryScore = e.score(sorted, now, out.Stability)
	out.Trend = e.trend(sorted, out.Stability)
	return out
}

// score blends recency-weighted accuracy, raw accuracy and the
// normalized aggregate stability into a 0-100 mastery estimate.
func (e *Estimator) score(sorted []entity.Attempt, now time.Time, stability float64) float64 {
	var weightSum, weightedCorrect, correct float64
	for _, a := range sorted {
		age := now.Sub(a.Timestamp).Hours() / 24
		if age < 0 {
			age = 0
		}
		w := math.Exp(-math.Ln2 * age / e.cfg.RecencyHalfLifeDays)
		weightSum += w
		weightedCorrect += w * a.Outcome()
		correct += a.Outcome()
	}

	recencyAcc := weightedCorrect / weightSum * 100
	rawAcc := correct / float64(len(sorted)) * 100
	stabilityComponent := stability / (stability + e.cfg.StabilityNormDays) * 100

	score := e.cfg.WeightRecency*recencyAcc +
		e.cfg.WeightStability*stabilityComponent +
		e.cfg.WeightAccuracy*rawAcc
	return clamp(score, 0, 100)
}

// trend compares the score over the most recent window of attempts with
// the window before that.
func (e *Estimator) trend(sorted []entity.Attempt, stability float64) entity.Trend {
	n := e.cfg.TrendWindow
	if len(sorted) < 2*n {
		return entity.TrendStable
	}

	recent := sorted[len(sorted)-n:]
	previous := sorted[len(sorted)-2*n : len(sorted)-n]

	recentScore := e.score(recent, recent[len(recent)-1].Timestamp, stability)
	previousScore := e.score(previous, previous[len(previous)-1].Timestamp, stability)

	switch delta := recentScore - previousScore; {
	case delta > e.cfg.TrendThreshold:
		return entity.TrendUp
	case delta < -e.cfg.TrendThreshold:
		return entity.TrendDown
	default:
		return entity.TrendStable
	}
}

// aggregateStability is the attempt-weighted mean of the concept's pair
// stabilities; pairs reviewed more often weigh more.
func aggregateStability(states []entity.MemoryState) float64 {
	var weightSum, sum float64
	for _, st := range states {
		w := float64(st.Reps)
		if w <= 0 {
			w = 1
		}
		weightSum += w
		sum += w * st.Stability
	}
	if weightSum == 0 {
		return 0
	}
	return sum / weightSum
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
