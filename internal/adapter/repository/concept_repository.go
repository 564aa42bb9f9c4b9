// Package repository implements the persistence interfaces on
// database/sql, against either PostgreSQL or SQLite.
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

const conceptColumns = "id, name, domain, subdomain, description, tags, created_at, updated_at"

type conceptRepository struct{ db *sql.DB }

// NewConceptRepository returns a SQL-backed concept repository.
func NewConceptRepository(db *sql.DB) repository.ConceptRepository {
	return &conceptRepository{db: db}
}

func (r *conceptRepository) Create(ctx context.Context, concept *entity.Concept) (*entity.Concept, error) {
	tags, err := marshalJSON(concept.Tags)
	if err != nil {
		return nil, err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO concepts (`+conceptColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		concept.ID, concept.Name, concept.Domain, concept.Subdomain,
		concept.Description, tags, concept.CreatedAt, concept.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert concept: %w", err)
	}
	out := *concept
	return &out, nil
}

func (r *conceptRepository) Update(ctx context.Context, concept *entity.Concept) (*entity.Concept, error) {
	tags, err := marshalJSON(concept.Tags)
	if err != nil {
		return nil, err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE concepts SET name = $1, domain = $2, subdomain = $3, description = $4, tags = $5, updated_at = $6 WHERE id = $7`,
		concept.Name, concept.Domain, concept.Subdomain, concept.Description,
		tags, concept.UpdatedAt, concept.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update concept: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, entity.ErrConceptNotFound
	}
	out := *concept
	return &out, nil
}

func (r *conceptRepository) GetByID(ctx context.Context, id string) (*entity.Concept, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+conceptColumns+` FROM concepts WHERE id = $1`, id)
	concept, err := scanConcept(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrConceptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get concept: %w", err)
	}
	return concept, nil
}

func (r *conceptRepository) List(ctx context.Context, query *repository.ListConceptQuery) ([]entity.Concept, int64, error) {
	if query == nil {
		query = &repository.ListConceptQuery{}
	}
	if err := filterexpr.Bind(&query.FilterOrder, query, listConceptsSchema); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", entity.ErrValidation, err)
	}

	var b condBuilder
	if query.Keyword != "" {
		b.add("name LIKE ?", query.Keyword+"%")
	}
	if query.Domain != "" {
		b.add("domain = ?", query.Domain)
	}
	if len(query.Domains) > 0 {
		args := make([]any, len(query.Domains))
		for i, d := range query.Domains {
			args[i] = d
		}
		b.add("domain IN "+placeholders(len(b.args), len(query.Domains)), args...)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM concepts`+b.where(), b.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count concepts: %w", err)
	}

	order, err := orderClause(listConceptsSchema.Order,
		query.PrimaryKey, query.PrimaryDesc, query.SecondaryKey, query.SecondaryDesc)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+conceptColumns+` FROM concepts`+b.where()+order+limitClause(query.PageNo, query.PageSize),
		b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list concepts: %w", err)
	}
	defer rows.Close()

	concepts, err := collectConcepts(rows)
	if err != nil {
		return nil, 0, err
	}
	return concepts, total, nil
}

func (r *conceptRepository) ListAll(ctx context.Context) ([]entity.Concept, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+conceptColumns+` FROM concepts ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list concepts: %w", err)
	}
	defer rows.Close()
	return collectConcepts(rows)
}

func (r *conceptRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM concepts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete concept: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrConceptNotFound
	}
	return nil
}

type rowScanner interface{ Scan(dest ...any) error }

func scanConcept(row rowScanner) (*entity.Concept, error) {
	var c entity.Concept
	var tags string
	if err := row.Scan(&c.ID, &c.Name, &c.Domain, &c.Subdomain, &c.Description,
		&tags, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(tags, &c.Tags); err != nil {
		return nil, err
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	return &c, nil
}

func collectConcepts(rows *sql.Rows) ([]entity.Concept, error) {
	out := make([]entity.Concept, 0)
	for rows.Next() {
		c, err := scanConcept(rows)
		if err != nil {
			return nil, fmt.Errorf("scan concept: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate concepts: %w", err)
	}
	return out, nil
}
