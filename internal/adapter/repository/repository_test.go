package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/eslsoft/gapmap/internal/entity"
	"github.com/eslsoft/gapmap/internal/infrastructure/database"
	"github.com/eslsoft/gapmap/internal/repository"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	// one connection so every query sees the same in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func mustCreateConcept(t *testing.T, repo repository.ConceptRepository, id, name, domain string, at time.Time) {
	t.Helper()
	_, err := repo.Create(context.Background(), &entity.Concept{
		ID: id, Name: name, Domain: domain, Tags: []string{},
		CreatedAt: at, UpdatedAt: at,
	})
	if err != nil {
		t.Fatalf("create concept %s: %v", id, err)
	}
}

func TestConceptRepositoryCRUD(t *testing.T) {
	db := newTestDB(t)
	repo := NewConceptRepository(db)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mustCreateConcept(t, repo, "c1", "Ohm's law", "physics", now)

	got, err := repo.GetByID(ctx, "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Ohm's law" || got.Domain != "physics" {
		t.Fatalf("unexpected concept: %+v", got)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("created_at changed: %v", got.CreatedAt)
	}

	got.Description = "V = I * R"
	got.UpdatedAt = now.Add(time.Hour)
	if _, err := repo.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err = repo.GetByID(ctx, "c1")
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.Description != "V = I * R" {
		t.Fatalf("description not persisted: %q", got.Description)
	}

	if err := repo.Delete(ctx, "c1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, "c1"); !errors.Is(err, entity.ErrConceptNotFound) {
		t.Fatalf("expected ErrConceptNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, "c1"); !errors.Is(err, entity.ErrConceptNotFound) {
		t.Fatalf("expected ErrConceptNotFound on second delete, got %v", err)
	}
}

func TestConceptRepositoryListFilterAndOrder(t *testing.T) {
	db := newTestDB(t)
	repo := NewConceptRepository(db)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mustCreateConcept(t, repo, "c1", "Kirchhoff", "physics", now)
	mustCreateConcept(t, repo, "c2", "Ohm's law", "physics", now.Add(time.Minute))
	mustCreateConcept(t, repo, "c3", "Derivatives", "math", now.Add(2*time.Minute))

	query := &repository.ListConceptQuery{}
	query.Filter = `domain == "physics"`
	query.OrderBy = "name asc"
	concepts, total, err := repo.List(ctx, query)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(concepts) != 2 {
		t.Fatalf("expected 2 physics concepts, got total=%d len=%d", total, len(concepts))
	}
	if concepts[0].Name != "Kirchhoff" || concepts[1].Name != "Ohm's law" {
		t.Fatalf("unexpected order: %s, %s", concepts[0].Name, concepts[1].Name)
	}

	// default ordering is created_at desc
	all, total, err := repo.List(ctx, &repository.ListConceptQuery{})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if total != 3 || all[0].ID != "c3" {
		t.Fatalf("expected newest first, got total=%d first=%s", total, all[0].ID)
	}

	bad := &repository.ListConceptQuery{}
	bad.Filter = `domain != "physics"`
	if _, _, err := repo.List(ctx, bad); !errors.Is(err, entity.ErrValidation) {
		t.Fatalf("expected validation error for unsupported operator, got %v", err)
	}
}

func TestItemRepositoryListByConceptExactMatch(t *testing.T) {
	db := newTestDB(t)
	repo := NewItemRepository(db)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	items := []entity.Item{
		{ID: "i1", Stem: "a", Type: entity.ItemTypeMCQ, ConceptIDs: []string{"c_1"}, CreatedAt: now, UpdatedAt: now},
		{ID: "i2", Stem: "b", Type: entity.ItemTypeMCQ, ConceptIDs: []string{"cx1"}, CreatedAt: now, UpdatedAt: now},
		{ID: "i3", Stem: "c", Type: entity.ItemTypeCloze, ConceptIDs: []string{"c2", "c_1"}, CreatedAt: now, UpdatedAt: now},
	}
	for i := range items {
		if _, err := repo.Create(ctx, &items[i]); err != nil {
			t.Fatalf("create item: %v", err)
		}
	}

	// The underscore in "c_1" is a LIKE wildcard, so the SQL prefilter
	// alone would also return i2 ("cx1"); the decoded-list confirmation
	// must drop it.
	got, err := repo.ListByConcept(ctx, "c_1")
	if err != nil {
		t.Fatalf("list by concept: %v", err)
	}
	if len(got) != 2 || got[0].ID != "i1" || got[1].ID != "i3" {
		ids := make([]string, len(got))
		for i := range got {
			ids[i] = got[i].ID
		}
		t.Fatalf("expected [i1 i3], got %v", ids)
	}
}

func TestItemRepositoryVariantRoundTrip(t *testing.T) {
	db := newTestDB(t)
	repo := NewItemRepository(db)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	item := entity.Item{
		ID: "i1", Stem: "V = I * ?", Type: entity.ItemTypeMCQ,
		ConceptIDs: []string{"c1"}, Difficulty: 40,
		Choices: []entity.MCQOption{
			{ID: "a", Text: "R", IsCorrect: true},
			{ID: "b", Text: "P"},
		},
		CorrectAnswer: "a",
		CreatedAt:     now, UpdatedAt: now,
	}
	if _, err := repo.Create(ctx, &item); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetByID(ctx, "i1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Choices) != 2 || !got.Choices[0].IsCorrect || got.Choices[1].Text != "P" {
		t.Fatalf("choices not preserved: %+v", got.Choices)
	}
	if got.CalcTemplate != nil || got.CaseSteps != nil {
		t.Fatalf("unset variants should stay empty: %+v", got)
	}
}

func TestLearningRepositoryCommitSubmission(t *testing.T) {
	db := newTestDB(t)
	learning := NewLearningRepository(db)
	attempts := NewAttemptRepository(db)
	memories := NewMemoryStateRepository(db)
	masteries := NewMasteryStateRepository(db)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	sub := &repository.Submission{
		Attempt: &entity.Attempt{
			ID: "a1", ItemID: "i1", ConceptIDs: []string{"c1"},
			UserAnswer: "R", IsCorrect: true, Confidence: 4,
			TimeSpentMS: 9000, Timestamp: now,
		},
		MemoryStates: []entity.MemoryState{{
			ConceptID: "c1", ItemID: "i1", Stability: 2.4, Difficulty: 5,
			Reps: 1, LastReviewed: now, DueAt: now.AddDate(0, 0, 2),
		}},
		MasteryStates: []entity.MasteryState{{
			ConceptID: "c1", ConceptName: "Ohm's law", MasteryScore: 62.5,
			Attempts: 1, Correct: 1, Trend: entity.TrendStable,
			LastAttempted: now, UpdatedAt: now,
		}},
	}
	if err := learning.CommitSubmission(ctx, sub); err != nil {
		t.Fatalf("commit: %v", err)
	}

	mem, err := memories.Get(ctx, "c1", "i1")
	if err != nil {
		t.Fatalf("get memory state: %v", err)
	}
	if mem == nil || mem.Stability != 2.4 || mem.Reps != 1 {
		t.Fatalf("unexpected memory state: %+v", mem)
	}

	mas, err := masteries.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("get mastery state: %v", err)
	}
	if mas.MasteryScore != 62.5 || mas.Attempts != 1 {
		t.Fatalf("unexpected mastery state: %+v", mas)
	}

	// Replaying the same attempt ID must be a no-op.
	if err := learning.CommitSubmission(ctx, sub); err != nil {
		t.Fatalf("replay: %v", err)
	}
	log, err := attempts.ListByConcept(ctx, "c1")
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(log) != 1 {
		t.Fatalf("expected 1 attempt after replay, got %d", len(log))
	}

	// A second attempt upserts the same state rows.
	later := now.Add(48 * time.Hour)
	sub2 := &repository.Submission{
		Attempt: &entity.Attempt{
			ID: "a2", ItemID: "i1", ConceptIDs: []string{"c1"},
			IsCorrect: false, Confidence: 2, Timestamp: later,
		},
		MemoryStates: []entity.MemoryState{{
			ConceptID: "c1", ItemID: "i1", Stability: 0.9, Difficulty: 6.1,
			Reps: 2, Lapses: 1, LastReviewed: later, DueAt: later.AddDate(0, 0, 1),
		}},
		MasteryStates: []entity.MasteryState{{
			ConceptID: "c1", ConceptName: "Ohm's law", MasteryScore: 41,
			Attempts: 2, Correct: 1, Trend: entity.TrendDown,
			LastAttempted: later, UpdatedAt: later,
		}},
	}
	if err := learning.CommitSubmission(ctx, sub2); err != nil {
		t.Fatalf("second commit: %v", err)
	}
	mem, err = memories.Get(ctx, "c1", "i1")
	if err != nil {
		t.Fatalf("get memory state: %v", err)
	}
	if mem.Lapses != 1 || mem.Reps != 2 {
		t.Fatalf("memory state not upserted: %+v", mem)
	}
	mas, err = masteries.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("get mastery state: %v", err)
	}
	if mas.Attempts != 2 || mas.Trend != entity.TrendDown {
		t.Fatalf("mastery state not upserted: %+v", mas)
	}
}

func TestMemoryStateGetMissingReturnsNil(t *testing.T) {
	db := newTestDB(t)
	memories := NewMemoryStateRepository(db)

	m, err := memories.Get(context.Background(), "c1", "i1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if m != nil {
		t.Fatalf("expected nil state, got %+v", m)
	}
}

func TestMasteryStateGetMissingReturnsNotFound(t *testing.T) {
	db := newTestDB(t)
	masteries := NewMasteryStateRepository(db)

	_, err := masteries.Get(context.Background(), "c1")
	if !errors.Is(err, entity.ErrConceptNotFound) {
		t.Fatalf("expected ErrConceptNotFound, got %v", err)
	}
}

func TestSessionRepositoryRoundTrip(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	if _, err := repo.Create(ctx, &entity.Session{
		ID: "s1", Type: entity.SessionFocused, FocusConceptID: "c1", StartedAt: now,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetByID(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Completed() {
		t.Fatalf("fresh session should be open: %+v", got)
	}

	got.CompletedAt = now.Add(20 * time.Minute)
	got.TotalItems = 10
	got.CompletedItems = 10
	got.Accuracy = 0.8
	got.AvgConfidence = 3.4
	if _, err := repo.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err = repo.GetByID(ctx, "s1")
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if !got.Completed() || got.Accuracy != 0.8 || got.CompletedItems != 10 {
		t.Fatalf("rollup not persisted: %+v", got)
	}

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, entity.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
