package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/eslsoft/gapmap/pkg/filterexpr"
)

// marshalJSON encodes slice/struct columns. Placeholder values ($1..$n)
// work against both supported drivers.
func marshalJSON(v any) (string, error) {
	if v == nil {
		return "null", nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json column: %w", err)
	}
	return string(raw), nil
}

func unmarshalJSON(raw string, dest any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return fmt.Errorf("decode json column: %w", err)
	}
	return nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func fromNullTime(nt sql.NullTime) time.Time {
	if !nt.Valid {
		return time.Time{}
	}
	return nt.Time
}

// orderClause renders the bound two-key ordering against the schema's
// column whitelist. Keys were validated at bind time; an unknown key
// here means the schema and binder disagree.
func orderClause(schema filterexpr.OrderSchema, primaryKey string, primaryDesc bool, secondaryKey string, secondaryDesc bool) (string, error) {
	render := func(key string, desc bool) (string, error) {
		col, ok := schema.Column(key)
		if !ok {
			return "", fmt.Errorf("order key %q has no column mapping", key)
		}
		if desc {
			return col + " DESC", nil
		}
		return col + " ASC", nil
	}

	primary, err := render(primaryKey, primaryDesc)
	if err != nil {
		return "", err
	}
	secondary, err := render(secondaryKey, secondaryDesc)
	if err != nil {
		return "", err
	}
	return " ORDER BY " + primary + ", " + secondary, nil
}

// limitClause applies pagination; zero or negative page size means no
// limit.
func limitClause(pageNo, pageSize int32) string {
	if pageSize <= 0 {
		return ""
	}
	offset := int32(0)
	if pageNo > 1 {
		offset = (pageNo - 1) * pageSize
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", pageSize, offset)
}

// condBuilder accumulates WHERE conditions with positional placeholders.
type condBuilder struct {
	conds []string
	args  []any
}

// add appends one condition, rewriting each ? to the next positional
// placeholder.
func (b *condBuilder) add(expr string, args ...any) {
	for _, arg := range args {
		b.args = append(b.args, arg)
		expr = strings.Replace(expr, "?", fmt.Sprintf("$%d", len(b.args)), 1)
	}
	b.conds = append(b.conds, expr)
}

func (b *condBuilder) where() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}

// placeholders renders ($n, $n+1, ...) for an IN list starting after the
// given arg count.
func placeholders(start, n int) string {
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = fmt.Sprintf("$%d", start+i+1)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
