package mastery

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/eslsoft/gapmap/internal/entity"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func makeAttempt(i int, correct bool, confidence int32, ts time.Time) entity.Attempt {
	return entity.Attempt{
		ID:         fmt.Sprintf("a%03d", i),
		ItemID:     "item-1",
		ConceptIDs: []string{"concept-1"},
		IsCorrect:  correct,
		Confidence: confidence,
		Timestamp:  ts,
	}
}

func TestRecomputeZeroAttempts(t *testing.T) {
	est := NewEstimator(DefaultEstimatorConfig())
	state := est.Recompute("concept-1", nil, nil)

	if state.MasteryScore != 0 {
		t.Fatalf("mastery with zero attempts = %v, want 0", state.MasteryScore)
	}
	if state.BrierScore != 0 {
		t.Fatalf("brier with zero attempts = %v, want 0", state.BrierScore)
	}
	if state.Trend != entity.TrendStable {
		t.Fatalf("trend with zero attempts = %q, want stable", state.Trend)
	}
	if state.Covered() {
		t.Fatal("zero-attempt concept must not count as covered")
	}
}

func TestBrierScoreCalibration(t *testing.T) {
	// 10 attempts, 8 correct, all confidence 5 (stated probability 1.0):
	// brier = (8*0 + 2*1) / 10 = 0.2.
	est := NewEstimator(DefaultEstimatorConfig())
	attempts := make([]entity.Attempt, 0, 10)
	for i := 0; i < 10; i++ {
		attempts = append(attempts, makeAttempt(i, i < 8, 5, t0.Add(time.Duration(i)*time.Hour)))
	}

	state := est.Recompute("concept-1", attempts, nil)
	if math.Abs(state.BrierScore-0.2) > 1e-9 {
		t.Fatalf("brier = %v, want 0.2", state.BrierScore)
	}
	if state.Attempts != 10 || state.Correct != 8 {
		t.Fatalf("counts = %d/%d, want 8/10", state.Correct, state.Attempts)
	}
}

func TestScoreStaysInRange(t *testing.T) {
	est := NewEstimator(DefaultEstimatorConfig())

	sequences := [][]bool{
		{true, true, true, true, true, true, true, true},
		{false, false, false, false, false, false},
		{true, false, true, false, true, false, true, false, true, false},
		{false, true},
	}
	for si, seq := range sequences {
		attempts := make([]entity.Attempt, 0, len(seq))
		for i, correct := range seq {
			conf := int32(i%5 + 1)
			attempts = append(attempts, makeAttempt(i, correct, conf, t0.AddDate(0, 0, i)))
		}
		states := []entity.MemoryState{{ConceptID: "concept-1", ItemID: "item-1", Stability: 12, Difficulty: 5, Reps: int32(len(seq))}}

		state := est.Recompute("concept-1", attempts, states)
		if state.MasteryScore < 0 || state.MasteryScore > 100 {
			t.Fatalf("sequence %d: mastery out of [0,100]: %v", si, state.MasteryScore)
		}
		if state.BrierScore < 0 || state.BrierScore > 1 {
			t.Fatalf("sequence %d: brier out of [0,1]: %v", si, state.BrierScore)
		}
		if err := state.CheckInvariants(); err != nil {
			t.Fatalf("sequence %d: %v", si, err)
		}
	}
}

func TestRecomputeIdempotent(t *testing.T) {
	est := NewEstimator(DefaultEstimatorConfig())
	attempts := []entity.Attempt{
		makeAttempt(0, true, 4, t0),
		makeAttempt(1, false, 2, t0.AddDate(0, 0, 1)),
		makeAttempt(2, true, 5, t0.AddDate(0, 0, 3)),
	}
	states := []entity.MemoryState{{ConceptID: "concept-1", ItemID: "item-1", Stability: 4.2, Difficulty: 6.1, Reps: 3}}

	first := est.Recompute("concept-1", attempts, states)
	second := est.Recompute("concept-1", attempts, states)
	if first != second {
		t.Fatalf("recompute not idempotent: %+v vs %+v", first, second)
	}
}

func TestRecomputeOrderIndependent(t *testing.T) {
	est := NewEstimator(DefaultEstimatorConfig())
	attempts := []entity.Attempt{
		makeAttempt(0, true, 4, t0),
		makeAttempt(1, false, 2, t0.AddDate(0, 0, 1)),
		makeAttempt(2, true, 5, t0.AddDate(0, 0, 3)),
	}
	reversed := []entity.Attempt{attempts[2], attempts[1], attempts[0]}

	if a, b := est.Recompute("concept-1", attempts, nil), est.Recompute("concept-1", reversed, nil); a != b {
		t.Fatalf("recompute depends on input order: %+v vs %+v", a, b)
	}
}

func TestTrendDetection(t *testing.T) {
	est := NewEstimator(DefaultEstimatorConfig())

	attempts := make([]entity.Attempt, 0, 10)
	// Five misses, then five confident hits: trend must be up.
	for i := 0; i < 5; i++ {
		attempts = append(attempts, makeAttempt(i, false, 3, t0.AddDate(0, 0, i)))
	}
	for i := 5; i < 10; i++ {
		attempts = append(attempts, makeAttempt(i, true, 4, t0.AddDate(0, 0, i)))
	}
	if state := est.Recompute("concept-1", attempts, nil); state.Trend != entity.TrendUp {
		t.Fatalf("trend after improvement = %q, want up", state.Trend)
	}

	// The mirror image must be down.
	declining := make([]entity.Attempt, 0, 10)
	for i := 0; i < 5; i++ {
		declining = append(declining, makeAttempt(i, true, 4, t0.AddDate(0, 0, i)))
	}
	for i := 5; i < 10; i++ {
		declining = append(declining, makeAttempt(i, false, 3, t0.AddDate(0, 0, i)))
	}
	if state := est.Recompute("concept-1", declining, nil); state.Trend != entity.TrendDown {
		t.Fatalf("trend after decline = %q, want down", state.Trend)
	}

	// Too little history: stable.
	if state := est.Recompute("concept-1", attempts[:6], nil); state.Trend != entity.TrendStable {
		t.Fatalf("trend with short history = %q, want stable", state.Trend)
	}
}

func TestAggregateStabilityWeighting(t *testing.T) {
	states := []entity.MemoryState{
		{ItemID: "item-1", Stability: 10, Reps: 9},
		{ItemID: "item-2", Stability: 1, Reps: 1},
	}
	got := aggregateStability(states)
	want := (10*9 + 1*1) / 10.0
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("aggregate stability = %v, want %v", got, want)
	}
}
