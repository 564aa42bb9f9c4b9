package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eslsoft/gapmap/internal/entity"
	"github.com/eslsoft/gapmap/internal/repository"
)

const sessionColumns = "id, session_type, focus_concept_id, time_limit_ms, started_at, " +
	"completed_at, total_items, completed_items, accuracy, avg_confidence"

type sessionRepository struct{ db *sql.DB }

// NewSessionRepository returns a SQL-backed session repository.
func NewSessionRepository(db *sql.DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, s *entity.Session) (*entity.Session, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, string(s.Type), s.FocusConceptID, s.TimeLimitMS, s.StartedAt,
		nullTime(s.CompletedAt), s.TotalItems, s.CompletedItems, s.Accuracy, s.AvgConfidence,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	out := *s
	return &out, nil
}

func (r *sessionRepository) Update(ctx context.Context, s *entity.Session) (*entity.Session, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET completed_at = $1, total_items = $2, completed_items = $3, accuracy = $4, avg_confidence = $5 WHERE id = $6`,
		nullTime(s.CompletedAt), s.TotalItems, s.CompletedItems, s.Accuracy, s.AvgConfidence, s.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, entity.ErrSessionNotFound
	}
	out := *s
	return &out, nil
}

func (r *sessionRepository) GetByID(ctx context.Context, id string) (*entity.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

func (r *sessionRepository) ListAll(ctx context.Context) ([]entity.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions ORDER BY started_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	out := make([]entity.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

func scanSession(row rowScanner) (*entity.Session, error) {
	var s entity.Session
	var sessionType string
	var completedAt sql.NullTime
	if err := row.Scan(&s.ID, &sessionType, &s.FocusConceptID, &s.TimeLimitMS,
		&s.StartedAt, &completedAt, &s.TotalItems, &s.CompletedItems,
		&s.Accuracy, &s.AvgConfidence); err != nil {
		return nil, err
	}
	s.Type = entity.SessionType(sessionType)
	s.CompletedAt = fromNullTime(completedAt)
	return &s, nil
}
