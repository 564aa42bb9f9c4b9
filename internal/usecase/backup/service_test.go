package backup

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/eslsoft/gapmap/internal/infrastructure/database"
)

// openTestDB creates a named shared-cache in-memory database. The
// returned handle keeps the database alive while the service opens its
// own connections to the same DSN.
func openTestDB(t *testing.T, name string) (*sql.DB, string) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db, dsn
}

func seedFixture(t *testing.T, db *sql.DB) {
	t.Helper()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	stmts := []struct {
		query string
		args  []any
	}{
		{
			`INSERT INTO concepts (id, name, domain, subdomain, description, tags, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			[]any{"c1", "Ohm's law", "physics", "circuits", "", `["intro"]`, now, now},
		},
		{
			`INSERT INTO items (id, stem, item_type, concept_ids, difficulty, source, explanation,
			 choices, correct_answer, calc_template, case_steps, cloze_text, cloze_blanks, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			[]any{"i1", "V = I * ?", "mcq", `["c1"]`, 40, "", "",
				`["R","P"]`, "R", "null", "null", "", "null", now, now},
		},
		{
			`INSERT INTO sessions (id, session_type, focus_concept_id, time_limit_ms, started_at,
			 completed_at, total_items, completed_items, accuracy, avg_confidence)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			[]any{"s1", "review", "", 0, now, nil, 0, 0, 0.0, 0.0},
		},
		{
			`INSERT INTO attempts (id, item_id, session_id, concept_ids, user_answer, is_correct,
			 confidence, time_spent_ms, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			[]any{"a1", "i1", "s1", `["c1"]`, "R", true, 4, 9000, now},
		},
		{
			`INSERT INTO memory_states (concept_id, item_id, stability, difficulty, reps, lapses, last_reviewed, due_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			[]any{"c1", "i1", 2.4, 5.0, 1, 0, now, now.AddDate(0, 0, 2)},
		},
		{
			`INSERT INTO mastery_states (concept_id, concept_name, domain, mastery_score, attempts,
			 correct, avg_confidence, brier_score, stability, due_backlog, trend, last_attempted, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			[]any{"c1", "Ohm's law", "physics", 62.5, 1, 1, 0.75, 0.06, 2.4, 0, "stable", now, now},
		},
	}
	for _, s := range stmts {
		if _, err := db.Exec(s.query, s.args...); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	src, srcDSN := openTestDB(t, "backup_src")
	seedFixture(t, src)

	svc, err := NewService("sqlite3", srcDSN)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	var buf bytes.Buffer
	if err := svc.Export(context.Background(), &buf); err != nil {
		t.Fatalf("export: %v", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	if !scanner.Scan() {
		t.Fatal("expected meta record")
	}
	var meta record
	if err := json.Unmarshal(scanner.Bytes(), &meta); err != nil {
		t.Fatalf("decode meta: %v", err)
	}
	if meta.Type != "meta" || meta.Version != formatVersion {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	if meta.RowCounts["concepts"] != 1 || meta.RowCounts["attempts"] != 1 {
		t.Fatalf("unexpected row counts: %v", meta.RowCounts)
	}
	lines := 1
	for scanner.Scan() {
		lines++
	}
	if lines != 7 { // meta + one row per table
		t.Fatalf("expected 7 records, got %d", lines)
	}

	dst, dstDSN := openTestDB(t, "backup_dst")
	dstSvc, err := NewService("sqlite3", dstDSN)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if err := dstSvc.Import(context.Background(), bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("import: %v", err)
	}

	var name string
	if err := dst.QueryRow(`SELECT name FROM concepts WHERE id = 'c1'`).Scan(&name); err != nil {
		t.Fatalf("read imported concept: %v", err)
	}
	if name != "Ohm's law" {
		t.Fatalf("unexpected concept name %q", name)
	}
	var correct bool
	if err := dst.QueryRow(`SELECT is_correct FROM attempts WHERE id = 'a1'`).Scan(&correct); err != nil {
		t.Fatalf("read imported attempt: %v", err)
	}
	if !correct {
		t.Fatal("expected imported attempt to stay correct")
	}

	// Replaying the same backup must not duplicate rows.
	if err := dstSvc.Import(context.Background(), bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("second import: %v", err)
	}
	var count int
	if err := dst.QueryRow(`SELECT COUNT(*) FROM attempts`).Scan(&count); err != nil {
		t.Fatalf("count attempts: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 attempt after replay, got %d", count)
	}
}

func TestExportSelectedTables(t *testing.T) {
	src, srcDSN := openTestDB(t, "backup_sel")
	seedFixture(t, src)

	svc, err := NewService("sqlite3", srcDSN)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	var buf bytes.Buffer
	err = svc.Export(context.Background(), &buf, WithTables([]string{"concepts"}))
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	var types []string
	for scanner.Scan() {
		var rec rawRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("decode: %v", err)
		}
		types = append(types, rec.Type)
	}
	if got := strings.Join(types, ","); got != "meta,concepts" {
		t.Fatalf("unexpected record types: %s", got)
	}
}

func TestImportRequiresMeta(t *testing.T) {
	_, dsn := openTestDB(t, "backup_nometa")
	svc, err := NewService("sqlite3", dsn)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	row := `{"type":"concepts","payload":{"id":"c9","name":"x"}}` + "\n"
	if err := svc.Import(context.Background(), strings.NewReader(row)); err == nil {
		t.Fatal("expected error for backup without meta record")
	}
}

func TestImportRejectsNewerFormat(t *testing.T) {
	_, dsn := openTestDB(t, "backup_ver")
	svc, err := NewService("sqlite3", dsn)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	meta := fmt.Sprintf(`{"type":"meta","version":%d}`+"\n", formatVersion+1)
	if err := svc.Import(context.Background(), strings.NewReader(meta)); err == nil {
		t.Fatal("expected error for unsupported format version")
	}
}

func TestSelectTablesRejectsUnknown(t *testing.T) {
	svc, err := NewService("sqlite3", "file:backup_unknown?mode=memory")
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := svc.selectTables([]string{"widgets"}); err == nil {
		t.Fatal("expected error for unknown table")
	}
}

func TestSelectTablesKeepsCatalogOrder(t *testing.T) {
	svc, err := NewService("sqlite3", "file:backup_order?mode=memory")
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	tables, err := svc.selectTables([]string{"attempts", "concepts", "items"})
	if err != nil {
		t.Fatalf("select tables: %v", err)
	}
	got := strings.Join(tableNames(tables), ",")
	if got != "concepts,items,attempts" {
		t.Fatalf("unexpected order: %s", got)
	}
}
