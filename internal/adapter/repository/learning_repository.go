package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eslsoft/gapmap/internal/entity"
	"github.com/eslsoft/gapmap/internal/repository"
	"github.com/eslsoft/gapmap/pkg/filterexpr"
)

const attemptColumns = "id, item_id, session_id, concept_ids, user_answer, is_correct, confidence, time_spent_ms, created_at"

const memoryColumns = "concept_id, item_id, stability, difficulty, reps, lapses, last_reviewed, due_at"

const masteryColumns = "concept_id, concept_name, domain, mastery_score, attempts, correct, " +
	"avg_confidence, brier_score, stability, due_backlog, trend, last_attempted, updated_at"

type attemptRepository struct{ db *sql.DB }

// NewAttemptRepository returns the read side of the attempt log.
func NewAttemptRepository(db *sql.DB) repository.AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) List(ctx context.Context, query *repository.ListAttemptQuery) ([]entity.Attempt, int64, error) {
	if query == nil {
		query = &repository.ListAttemptQuery{}
	}
	if err := filterexpr.Bind(&query.FilterOrder, query, listAttemptsSchema); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", entity.ErrValidation, err)
	}

	var b condBuilder
	if query.ItemID != "" {
		b.add("item_id = ?", query.ItemID)
	}
	if query.SessionID != "" {
		b.add("session_id = ?", query.SessionID)
	}
	if query.ConceptID != "" {
		b.add("concept_ids LIKE ?", `%"`+query.ConceptID+`"%`)
	}
	if !query.Since.IsZero() {
		b.add("created_at >= ?", query.Since)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attempts`+b.where(), b.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count attempts: %w", err)
	}

	order, err := orderClause(listAttemptsSchema.Order,
		query.PrimaryKey, query.PrimaryDesc, query.SecondaryKey, query.SecondaryDesc)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+attemptColumns+` FROM attempts`+b.where()+order+limitClause(query.PageNo, query.PageSize),
		b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	attempts, err := collectAttempts(rows)
	if err != nil {
		return nil, 0, err
	}
	return attempts, total, nil
}

func (r *attemptRepository) ListByConcept(ctx context.Context, conceptID string) ([]entity.Attempt, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE concept_ids LIKE $1 ORDER BY created_at ASC, id ASC`,
		`%"`+conceptID+`"%`)
	if err != nil {
		return nil, fmt.Errorf("list attempts by concept: %w", err)
	}
	defer rows.Close()

	attempts, err := collectAttempts(rows)
	if err != nil {
		return nil, err
	}
	out := attempts[:0]
	for i := range attempts {
		for _, id := range attempts[i].ConceptIDs {
			if id == conceptID {
				out = append(out, attempts[i])
				break
			}
		}
	}
	return out, nil
}

func (r *attemptRepository) ListByItem(ctx context.Context, itemID string) ([]entity.Attempt, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE item_id = $1 ORDER BY created_at ASC, id ASC`, itemID)
	if err != nil {
		return nil, fmt.Errorf("list attempts by item: %w", err)
	}
	defer rows.Close()
	return collectAttempts(rows)
}

// CountByConcept tallies attempts per concept from the denormalized
// concept list, so counts survive item deletion.
func (r *attemptRepository) CountByConcept(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT concept_ids FROM attempts`)
	if err != nil {
		return nil, fmt.Errorf("count attempts by concept: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan attempt concepts: %w", err)
		}
		var ids []string
		if err := unmarshalJSON(raw, &ids); err != nil {
			return nil, err
		}
		for _, id := range ids {
			out[id]++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return out, nil
}

func scanAttempt(row rowScanner) (*entity.Attempt, error) {
	var a entity.Attempt
	var conceptIDs string
	if err := row.Scan(&a.ID, &a.ItemID, &a.SessionID, &conceptIDs, &a.UserAnswer,
		&a.IsCorrect, &a.Confidence, &a.TimeSpentMS, &a.Timestamp); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(conceptIDs, &a.ConceptIDs); err != nil {
		return nil, err
	}
	if a.ConceptIDs == nil {
		a.ConceptIDs = []string{}
	}
	return &a, nil
}

func collectAttempts(rows *sql.Rows) ([]entity.Attempt, error) {
	out := make([]entity.Attempt, 0)
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return out, nil
}

type memoryStateRepository struct{ db *sql.DB }

// NewMemoryStateRepository returns the read side of spaced-repetition
// state.
func NewMemoryStateRepository(db *sql.DB) repository.MemoryStateRepository {
	return &memoryStateRepository{db: db}
}

func (r *memoryStateRepository) Get(ctx context.Context, conceptID, itemID string) (*entity.MemoryState, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+memoryColumns+` FROM memory_states WHERE concept_id = $1 AND item_id = $2`,
		conceptID, itemID)
	m, err := scanMemoryState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get memory state: %w", err)
	}
	return m, nil
}

func (r *memoryStateRepository) ListByConcept(ctx context.Context, conceptID string) ([]entity.MemoryState, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+memoryColumns+` FROM memory_states WHERE concept_id = $1 ORDER BY item_id ASC`, conceptID)
	if err != nil {
		return nil, fmt.Errorf("list memory states: %w", err)
	}
	defer rows.Close()
	return collectMemoryStates(rows)
}

func (r *memoryStateRepository) ListAll(ctx context.Context) ([]entity.MemoryState, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+memoryColumns+` FROM memory_states ORDER BY concept_id ASC, item_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list memory states: %w", err)
	}
	defer rows.Close()
	return collectMemoryStates(rows)
}

func scanMemoryState(row rowScanner) (*entity.MemoryState, error) {
	var m entity.MemoryState
	if err := row.Scan(&m.ConceptID, &m.ItemID, &m.Stability, &m.Difficulty,
		&m.Reps, &m.Lapses, &m.LastReviewed, &m.DueAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func collectMemoryStates(rows *sql.Rows) ([]entity.MemoryState, error) {
	out := make([]entity.MemoryState, 0)
	for rows.Next() {
		m, err := scanMemoryState(rows)
		if err != nil {
			return nil, fmt.Errorf("scan memory state: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memory states: %w", err)
	}
	return out, nil
}

type masteryStateRepository struct{ db *sql.DB }

// NewMasteryStateRepository returns the derived per-concept cache.
func NewMasteryStateRepository(db *sql.DB) repository.MasteryStateRepository {
	return &masteryStateRepository{db: db}
}

func (r *masteryStateRepository) Get(ctx context.Context, conceptID string) (*entity.MasteryState, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+masteryColumns+` FROM mastery_states WHERE concept_id = $1`, conceptID)
	m, err := scanMasteryState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrConceptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get mastery state: %w", err)
	}
	return m, nil
}

func (r *masteryStateRepository) ListAll(ctx context.Context) ([]entity.MasteryState, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+masteryColumns+` FROM mastery_states ORDER BY concept_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list mastery states: %w", err)
	}
	defer rows.Close()

	out := make([]entity.MasteryState, 0)
	for rows.Next() {
		m, err := scanMasteryState(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mastery state: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mastery states: %w", err)
	}
	return out, nil
}

func (r *masteryStateRepository) Put(ctx context.Context, state *entity.MasteryState) error {
	if err := upsertMasteryState(ctx, r.db, state); err != nil {
		return fmt.Errorf("put mastery state: %w", err)
	}
	return nil
}

func (r *masteryStateRepository) Delete(ctx context.Context, conceptID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM mastery_states WHERE concept_id = $1`, conceptID); err != nil {
		return fmt.Errorf("delete mastery state: %w", err)
	}
	return nil
}

func scanMasteryState(row rowScanner) (*entity.MasteryState, error) {
	var m entity.MasteryState
	var trend string
	var lastAttempted sql.NullTime
	if err := row.Scan(&m.ConceptID, &m.ConceptName, &m.Domain, &m.MasteryScore,
		&m.Attempts, &m.Correct, &m.AvgConfidence, &m.BrierScore, &m.Stability,
		&m.DueBacklog, &trend, &lastAttempted, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.Trend = entity.Trend(trend)
	m.LastAttempted = fromNullTime(lastAttempted)
	return &m, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertMasteryState(ctx context.Context, db execer, m *entity.MasteryState) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO mastery_states (`+masteryColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (concept_id) DO UPDATE SET
		   concept_name = excluded.concept_name,
		   domain = excluded.domain,
		   mastery_score = excluded.mastery_score,
		   attempts = excluded.attempts,
		   correct = excluded.correct,
		   avg_confidence = excluded.avg_confidence,
		   brier_score = excluded.brier_score,
		   stability = excluded.stability,
		   due_backlog = excluded.due_backlog,
		   trend = excluded.trend,
		   last_attempted = excluded.last_attempted,
		   updated_at = excluded.updated_at`,
		m.ConceptID, m.ConceptName, m.Domain, m.MasteryScore, m.Attempts, m.Correct,
		m.AvgConfidence, m.BrierScore, m.Stability, m.DueBacklog, string(m.Trend),
		nullTime(m.LastAttempted), m.UpdatedAt,
	)
	return err
}

func upsertMemoryState(ctx context.Context, db execer, m *entity.MemoryState) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO memory_states (`+memoryColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (concept_id, item_id) DO UPDATE SET
		   stability = excluded.stability,
		   difficulty = excluded.difficulty,
		   reps = excluded.reps,
		   lapses = excluded.lapses,
		   last_reviewed = excluded.last_reviewed,
		   due_at = excluded.due_at`,
		m.ConceptID, m.ItemID, m.Stability, m.Difficulty, m.Reps, m.Lapses,
		m.LastReviewed, m.DueAt,
	)
	return err
}

type learningRepository struct{ db *sql.DB }

// NewLearningRepository returns the transactional write side of the
// engine.
func NewLearningRepository(db *sql.DB) repository.LearningRepository {
	return &learningRepository{db: db}
}

// CommitSubmission writes the attempt and all derived states in one
// transaction. Replaying an already-committed attempt ID is a no-op.
func (r *learningRepository) CommitSubmission(ctx context.Context, sub *repository.Submission) error {
	if sub == nil || sub.Attempt == nil {
		return entity.ErrInvalidItemID
	}
	conceptIDs, err := marshalJSON(sub.Attempt.ConceptIDs)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin submission: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM attempts WHERE id = $1`, sub.Attempt.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check attempt: %w", err)
	}
	if exists > 0 {
		return nil
	}

	a := sub.Attempt
	_, err = tx.ExecContext(ctx,
		`INSERT INTO attempts (`+attemptColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.ItemID, a.SessionID, conceptIDs, a.UserAnswer,
		a.IsCorrect, a.Confidence, a.TimeSpentMS, a.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}

	for i := range sub.MemoryStates {
		if err := upsertMemoryState(ctx, tx, &sub.MemoryStates[i]); err != nil {
			return fmt.Errorf("upsert memory state: %w", err)
		}
	}
	for i := range sub.MasteryStates {
		if err := upsertMasteryState(ctx, tx, &sub.MasteryStates[i]); err != nil {
			return fmt.Errorf("upsert mastery state: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit submission: %w", err)
	}
	return nil
}
