package usecase

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/gapmap/internal/entity"
	"github.com/eslsoft/gapmap/internal/fsrs"
	"github.com/eslsoft/gapmap/internal/mastery"
)

type learningFixture struct {
	concepts *fakeConceptRepo
	items    *fakeItemRepo
	store    *fakeLearningStore
	uc       *learningUsecase
	now      time.Time
}

func newLearningFixture(t *testing.T) *learningFixture {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	f := &learningFixture{
		concepts: newFakeConceptRepo(),
		items:    newFakeItemRepo(),
		store:    newFakeLearningStore(),
		now:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	uc := NewLearningUsecase(
		f.items,
		f.concepts,
		f.store,
		memoryView{store: f.store},
		f.store,
		fsrs.NewScheduler(fsrs.DefaultParams()),
		mastery.NewEstimator(mastery.DefaultEstimatorConfig()),
		logger,
	).(*learningUsecase)
	uc.clock = func() time.Time { return f.now }
	f.uc = uc
	return f
}

func (f *learningFixture) seedConcept(t *testing.T, id, name, domain string) {
	t.Helper()
	_, err := f.concepts.Create(context.Background(), &entity.Concept{
		ID: id, Name: name, Domain: domain,
	})
	if err != nil {
		t.Fatalf("seed concept: %v", err)
	}
}

func (f *learningFixture) seedItem(t *testing.T, id string, typ entity.ItemType, conceptIDs ...string) {
	t.Helper()
	_, err := f.items.Create(context.Background(), &entity.Item{
		ID: id, Stem: "stem " + id, Type: typ, ConceptIDs: conceptIDs,
	})
	if err != nil {
		t.Fatalf("seed item: %v", err)
	}
}

func TestSubmitAttemptInitializesMemoryAndMastery(t *testing.T) {
	f := newLearningFixture(t)
	f.seedConcept(t, "c1", "Renal clearance", "physiology")
	f.seedItem(t, "i1", entity.ItemTypeMCQ, "c1")

	attempt, err := f.uc.SubmitAttempt(context.Background(), SubmitAttemptInput{
		ItemID:     "i1",
		IsCorrect:  true,
		Confidence: 4,
	})
	if err != nil {
		t.Fatalf("SubmitAttempt: %v", err)
	}
	if attempt.ID == "" {
		t.Fatal("expected generated attempt ID")
	}
	if got := attempt.ConceptIDs; len(got) != 1 || got[0] != "c1" {
		t.Fatalf("expected denormalized concept IDs [c1], got %v", got)
	}

	mem, err := f.store.Get(context.Background(), "c1", "i1")
	if err != nil {
		t.Fatalf("Get memory: %v", err)
	}
	if mem == nil {
		t.Fatal("expected memory state after first attempt")
	}
	if mem.Reps != 1 || mem.Lapses != 0 {
		t.Fatalf("expected reps=1 lapses=0, got reps=%d lapses=%d", mem.Reps, mem.Lapses)
	}
	if !mem.DueAt.After(f.now) {
		t.Fatalf("expected due date in the future, got %v", mem.DueAt)
	}

	ms, err := masteryView{store: f.store}.Get(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Get mastery: %v", err)
	}
	if ms.Attempts != 1 || ms.Correct != 1 {
		t.Fatalf("expected attempts=1 correct=1, got %+v", ms)
	}
	if ms.ConceptName != "Renal clearance" || ms.Domain != "physiology" {
		t.Fatalf("expected concept metadata on mastery state, got %+v", ms)
	}
	if ms.MasteryScore <= 0 || ms.MasteryScore > 100 {
		t.Fatalf("mastery score out of range: %v", ms.MasteryScore)
	}
}

func TestSubmitAttemptUpdatesEveryTargetConcept(t *testing.T) {
	f := newLearningFixture(t)
	f.seedConcept(t, "c1", "Starling forces", "physiology")
	f.seedConcept(t, "c2", "Capillary exchange", "physiology")
	f.seedItem(t, "i1", entity.ItemTypeFreeRecall, "c1", "c2")

	if _, err := f.uc.SubmitAttempt(context.Background(), SubmitAttemptInput{
		ItemID: "i1", IsCorrect: false, Confidence: 2,
	}); err != nil {
		t.Fatalf("SubmitAttempt: %v", err)
	}

	for _, conceptID := range []string{"c1", "c2"} {
		mem, err := f.store.Get(context.Background(), conceptID, "i1")
		if err != nil || mem == nil {
			t.Fatalf("expected memory state for %s, got %v err=%v", conceptID, mem, err)
		}
		ms, err := masteryView{store: f.store}.Get(context.Background(), conceptID)
		if err != nil {
			t.Fatalf("expected mastery state for %s: %v", conceptID, err)
		}
		if ms.Attempts != 1 || ms.Correct != 0 {
			t.Fatalf("%s: expected attempts=1 correct=0, got %+v", conceptID, ms)
		}
	}
}

func TestSubmitAttemptRejectsInvalidConfidence(t *testing.T) {
	f := newLearningFixture(t)
	f.seedConcept(t, "c1", "Acid-base", "physiology")
	f.seedItem(t, "i1", entity.ItemTypeMCQ, "c1")

	for _, confidence := range []int32{0, 6, -1} {
		_, err := f.uc.SubmitAttempt(context.Background(), SubmitAttemptInput{
			ItemID: "i1", IsCorrect: true, Confidence: confidence,
		})
		if err == nil {
			t.Fatalf("confidence %d: expected validation error", confidence)
		}
	}
	attempts, _, err := f.store.List(context.Background(), nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(attempts) != 0 {
		t.Fatalf("rejected submissions must not be recorded, got %d attempts", len(attempts))
	}
}

func TestSubmitAttemptUnknownItem(t *testing.T) {
	f := newLearningFixture(t)

	_, err := f.uc.SubmitAttempt(context.Background(), SubmitAttemptInput{
		ItemID: "missing", IsCorrect: true, Confidence: 3,
	})
	if err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestSubmitAttemptCommitFailureLeavesNoState(t *testing.T) {
	f := newLearningFixture(t)
	f.seedConcept(t, "c1", "Cardiac output", "physiology")
	f.seedItem(t, "i1", entity.ItemTypeCalc, "c1")

	f.store.failNext = true
	if _, err := f.uc.SubmitAttempt(context.Background(), SubmitAttemptInput{
		ItemID: "i1", IsCorrect: true, Confidence: 3,
	}); err == nil {
		t.Fatal("expected commit error")
	}

	attempts, _, err := f.store.List(context.Background(), nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(attempts) != 0 {
		t.Fatalf("failed commit must leave the log empty, got %d attempts", len(attempts))
	}
	mem, err := f.store.Get(context.Background(), "c1", "i1")
	if err != nil {
		t.Fatalf("Get memory: %v", err)
	}
	if mem != nil {
		t.Fatal("failed commit must leave no memory state")
	}
}

func TestRepeatedFailuresLowerMastery(t *testing.T) {
	f := newLearningFixture(t)
	f.seedConcept(t, "c1", "Frank-Starling", "physiology")
	f.seedItem(t, "i1", entity.ItemTypeMCQ, "c1")

	submit := func(correct bool) entity.MasteryState {
		t.Helper()
		if _, err := f.uc.SubmitAttempt(context.Background(), SubmitAttemptInput{
			ItemID: "i1", IsCorrect: correct, Confidence: 3,
		}); err != nil {
			t.Fatalf("SubmitAttempt: %v", err)
		}
		ms, err := masteryView{store: f.store}.Get(context.Background(), "c1")
		if err != nil {
			t.Fatalf("Get mastery: %v", err)
		}
		return *ms
	}

	after1 := submit(true)
	f.now = f.now.Add(24 * time.Hour)
	after2 := submit(false)
	f.now = f.now.Add(24 * time.Hour)
	after3 := submit(false)

	if after2.MasteryScore >= after1.MasteryScore {
		t.Fatalf("failure should lower score: %v -> %v", after1.MasteryScore, after2.MasteryScore)
	}
	if after3.MasteryScore >= after2.MasteryScore {
		t.Fatalf("second failure should lower score further: %v -> %v", after2.MasteryScore, after3.MasteryScore)
	}

	mem, err := f.store.Get(context.Background(), "c1", "i1")
	if err != nil || mem == nil {
		t.Fatalf("Get memory: %v", err)
	}
	if mem.Reps != 3 || mem.Lapses != 2 {
		t.Fatalf("expected reps=3 lapses=2, got reps=%d lapses=%d", mem.Reps, mem.Lapses)
	}
}

func TestNextReviewItemPicksMostAtRisk(t *testing.T) {
	f := newLearningFixture(t)
	f.seedConcept(t, "c1", "Nernst potential", "physiology")
	f.seedItem(t, "i1", entity.ItemTypeMCQ, "c1")
	f.seedItem(t, "i2", entity.ItemTypeMCQ, "c1")

	// i1 reviewed 30 days ago, i2 reviewed 10 days ago. Same stability,
	// so i1 has decayed further and must come first.
	base := f.now
	f.store.memories[memKey("c1", "i1")] = entity.MemoryState{
		ConceptID: "c1", ItemID: "i1", Stability: 2, Difficulty: 5,
		Reps: 1, LastReviewed: base.AddDate(0, 0, -30), DueAt: base.AddDate(0, 0, -28),
	}
	f.store.memories[memKey("c1", "i2")] = entity.MemoryState{
		ConceptID: "c1", ItemID: "i2", Stability: 2, Difficulty: 5,
		Reps: 1, LastReviewed: base.AddDate(0, 0, -10), DueAt: base.AddDate(0, 0, -8),
	}

	item, err := f.uc.NextReviewItem(context.Background(), base)
	if err != nil {
		t.Fatalf("NextReviewItem: %v", err)
	}
	if item == nil || item.ID != "i1" {
		t.Fatalf("expected i1 first, got %+v", item)
	}
}

func TestNextReviewItemSkipsDeletedItems(t *testing.T) {
	f := newLearningFixture(t)
	f.seedConcept(t, "c1", "Nernst potential", "physiology")
	f.seedItem(t, "i2", entity.ItemTypeMCQ, "c1")

	base := f.now
	f.store.memories[memKey("c1", "i1")] = entity.MemoryState{
		ConceptID: "c1", ItemID: "i1", Stability: 2, Difficulty: 5,
		Reps: 1, LastReviewed: base.AddDate(0, 0, -30), DueAt: base.AddDate(0, 0, -28),
	}
	f.store.memories[memKey("c1", "i2")] = entity.MemoryState{
		ConceptID: "c1", ItemID: "i2", Stability: 2, Difficulty: 5,
		Reps: 1, LastReviewed: base.AddDate(0, 0, -10), DueAt: base.AddDate(0, 0, -8),
	}

	item, err := f.uc.NextReviewItem(context.Background(), base)
	if err != nil {
		t.Fatalf("NextReviewItem: %v", err)
	}
	if item == nil || item.ID != "i2" {
		t.Fatalf("expected surviving item i2, got %+v", item)
	}
}

func TestNextReviewItemNothingDue(t *testing.T) {
	f := newLearningFixture(t)
	f.seedConcept(t, "c1", "Nernst potential", "physiology")
	f.seedItem(t, "i1", entity.ItemTypeMCQ, "c1")

	f.store.memories[memKey("c1", "i1")] = entity.MemoryState{
		ConceptID: "c1", ItemID: "i1", Stability: 10, Difficulty: 5,
		Reps: 1, LastReviewed: f.now, DueAt: f.now.AddDate(0, 0, 10),
	}

	item, err := f.uc.NextReviewItem(context.Background(), f.now)
	if err != nil {
		t.Fatalf("NextReviewItem: %v", err)
	}
	if item != nil {
		t.Fatalf("expected nil when nothing is due, got %+v", item)
	}
}

func TestCountDue(t *testing.T) {
	f := newLearningFixture(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	f.store.memories[memKey("c1", "i1")] = entity.MemoryState{
		ConceptID: "c1", ItemID: "i1", Stability: 1, Difficulty: 5,
		LastReviewed: base.AddDate(0, 0, -5), DueAt: base.AddDate(0, 0, -4),
	}
	f.store.memories[memKey("c1", "i2")] = entity.MemoryState{
		ConceptID: "c1", ItemID: "i2", Stability: 20, Difficulty: 5,
		LastReviewed: base, DueAt: base.AddDate(0, 0, 20),
	}

	n, err := f.uc.CountDue(context.Background(), base)
	if err != nil {
		t.Fatalf("CountDue: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 due, got %d", n)
	}
}
