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

const itemColumns = "id, stem, item_type, concept_ids, difficulty, source, explanation, " +
	"choices, correct_answer, calc_template, case_steps, cloze_text, cloze_blanks, created_at, updated_at"

type itemRepository struct{ db *sql.DB }

// NewItemRepository returns a SQL-backed item repository.
func NewItemRepository(db *sql.DB) repository.ItemRepository {
	return &itemRepository{db: db}
}

type itemColumnsJSON struct {
	conceptIDs   string
	choices      string
	calcTemplate string
	caseSteps    string
	clozeBlanks  string
}

func encodeItem(item *entity.Item) (itemColumnsJSON, error) {
	var enc itemColumnsJSON
	var err error
	if enc.conceptIDs, err = marshalJSON(item.ConceptIDs); err != nil {
		return enc, err
	}
	if enc.choices, err = marshalJSON(item.Choices); err != nil {
		return enc, err
	}
	if enc.calcTemplate, err = marshalJSON(item.CalcTemplate); err != nil {
		return enc, err
	}
	if enc.caseSteps, err = marshalJSON(item.CaseSteps); err != nil {
		return enc, err
	}
	if enc.clozeBlanks, err = marshalJSON(item.ClozeBlanks); err != nil {
		return enc, err
	}
	return enc, nil
}

func (r *itemRepository) Create(ctx context.Context, item *entity.Item) (*entity.Item, error) {
	enc, err := encodeItem(item)
	if err != nil {
		return nil, err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO items (`+itemColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		item.ID, item.Stem, string(item.Type), enc.conceptIDs, item.Difficulty,
		item.Source, item.Explanation, enc.choices, item.CorrectAnswer,
		enc.calcTemplate, enc.caseSteps, item.ClozeText, enc.clozeBlanks,
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	out := *item
	return &out, nil
}

func (r *itemRepository) Update(ctx context.Context, item *entity.Item) (*entity.Item, error) {
	enc, err := encodeItem(item)
	if err != nil {
		return nil, err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE items SET concept_ids = $1, difficulty = $2, source = $3, explanation = $4, updated_at = $5 WHERE id = $6`,
		enc.conceptIDs, item.Difficulty, item.Source, item.Explanation,
		item.UpdatedAt, item.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, entity.ErrItemNotFound
	}
	out := *item
	return &out, nil
}

func (r *itemRepository) GetByID(ctx context.Context, id string) (*entity.Item, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

func (r *itemRepository) List(ctx context.Context, query *repository.ListItemQuery) ([]entity.Item, int64, error) {
	if query == nil {
		query = &repository.ListItemQuery{}
	}
	if err := filterexpr.Bind(&query.FilterOrder, query, listItemsSchema); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", entity.ErrValidation, err)
	}

	var b condBuilder
	if query.Keyword != "" {
		b.add("stem LIKE ?", query.Keyword+"%")
	}
	if query.ItemType != "" {
		b.add("item_type = ?", query.ItemType)
	}
	if len(query.ItemTypes) > 0 {
		args := make([]any, len(query.ItemTypes))
		for i, t := range query.ItemTypes {
			args[i] = t
		}
		b.add("item_type IN "+placeholders(len(b.args), len(query.ItemTypes)), args...)
	}
	if query.ConceptID != "" {
		// concept_ids is a JSON array column; match the quoted element.
		b.add("concept_ids LIKE ?", `%"`+query.ConceptID+`"%`)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`+b.where(), b.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count items: %w", err)
	}

	order, err := orderClause(listItemsSchema.Order,
		query.PrimaryKey, query.PrimaryDesc, query.SecondaryKey, query.SecondaryDesc)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items`+b.where()+order+limitClause(query.PageNo, query.PageSize),
		b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items, err := collectItems(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *itemRepository) ListAll(ctx context.Context) ([]entity.Item, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

func (r *itemRepository) ListByConcept(ctx context.Context, conceptID string) ([]entity.Item, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE concept_ids LIKE $1 ORDER BY id ASC`,
		`%"`+conceptID+`"%`)
	if err != nil {
		return nil, fmt.Errorf("list items by concept: %w", err)
	}
	defer rows.Close()

	items, err := collectItems(rows)
	if err != nil {
		return nil, err
	}
	// The LIKE match is a coarse prefilter; confirm against the decoded
	// list.
	out := items[:0]
	for i := range items {
		if items[i].TargetsConcept(conceptID) {
			out = append(out, items[i])
		}
	}
	return out, nil
}

func (r *itemRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrItemNotFound
	}
	return nil
}

func scanItem(row rowScanner) (*entity.Item, error) {
	var it entity.Item
	var itemType string
	var enc itemColumnsJSON
	if err := row.Scan(&it.ID, &it.Stem, &itemType, &enc.conceptIDs, &it.Difficulty,
		&it.Source, &it.Explanation, &enc.choices, &it.CorrectAnswer,
		&enc.calcTemplate, &enc.caseSteps, &it.ClozeText, &enc.clozeBlanks,
		&it.CreatedAt, &it.UpdatedAt); err != nil {
		return nil, err
	}
	it.Type = entity.ItemType(itemType)
	if err := unmarshalJSON(enc.conceptIDs, &it.ConceptIDs); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(enc.choices, &it.Choices); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(enc.calcTemplate, &it.CalcTemplate); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(enc.caseSteps, &it.CaseSteps); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(enc.clozeBlanks, &it.ClozeBlanks); err != nil {
		return nil, err
	}
	if it.ConceptIDs == nil {
		it.ConceptIDs = []string{}
	}
	return &it, nil
}

func collectItems(rows *sql.Rows) ([]entity.Item, error) {
	out := make([]entity.Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out = append(out, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return out, nil
}
