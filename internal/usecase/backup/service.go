// Package backup streams the full engine state to and from NDJSON: one
// meta record followed by one record per row. Import is idempotent;
// replaying a backup never duplicates rows.
package backup

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"           // ensure postgres driver available
	_ "github.com/mattn/go-sqlite3" // ensure sqlite driver available
)

const (
	defaultBatchSize = 512
	formatVersion    = 1
)

var errNoTablesSelected = errors.New("backup: no tables selected")

// table describes one exportable table: its columns in stable order and
// the primary key used for conflict handling on import.
type table struct {
	Name       string
	Columns    []string
	PrimaryKey []string
}

// tableCatalog lists every engine table in dependency order, so an
// import into an empty database satisfies foreign keys.
var tableCatalog = []table{
	{
		Name: "concepts",
		Columns: []string{
			"id", "name", "domain", "subdomain", "description", "tags",
			"created_at", "updated_at",
		},
		PrimaryKey: []string{"id"},
	},
	{
		Name: "items",
		Columns: []string{
			"id", "stem", "item_type", "concept_ids", "difficulty", "source",
			"explanation", "choices", "correct_answer", "calc_template",
			"case_steps", "cloze_text", "cloze_blanks", "created_at", "updated_at",
		},
		PrimaryKey: []string{"id"},
	},
	{
		Name: "sessions",
		Columns: []string{
			"id", "session_type", "focus_concept_id", "time_limit_ms",
			"started_at", "completed_at", "total_items", "completed_items",
			"accuracy", "avg_confidence",
		},
		PrimaryKey: []string{"id"},
	},
	{
		Name: "attempts",
		Columns: []string{
			"id", "item_id", "session_id", "concept_ids", "user_answer",
			"is_correct", "confidence", "time_spent_ms", "created_at",
		},
		PrimaryKey: []string{"id"},
	},
	{
		Name: "memory_states",
		Columns: []string{
			"concept_id", "item_id", "stability", "difficulty", "reps",
			"lapses", "last_reviewed", "due_at",
		},
		PrimaryKey: []string{"concept_id", "item_id"},
	},
	{
		Name: "mastery_states",
		Columns: []string{
			"concept_id", "concept_name", "domain", "mastery_score",
			"attempts", "correct", "avg_confidence", "brier_score",
			"stability", "due_backlog", "trend", "last_attempted", "updated_at",
		},
		PrimaryKey: []string{"concept_id"},
	},
}

// ProgressReporter receives progress callbacks during export.
type ProgressReporter interface {
	StartTable(table string, total int)
	Increment(table string, delta int)
	FinishTable(table string)
}

type noopProgress struct{}

func (noopProgress) StartTable(string, int) {}
func (noopProgress) Increment(string, int)  {}
func (noopProgress) FinishTable(string)     {}

// Service streams engine tables to and from NDJSON backups.
type Service struct {
	driver     string
	dsn        string
	batchSize  int
	tables     []table
	tableIndex map[string]table
	schemaHash string
}

type Option func(*Service)

func WithBatchSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// NewService constructs a backup service bound to the provided database
// driver and DSN.
func NewService(driver, dsn string, opts ...Option) (*Service, error) {
	driver = strings.TrimSpace(strings.ToLower(driver))
	if driver == "" {
		return nil, errors.New("backup: driver is required")
	}
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("backup: DSN is required")
	}

	index := make(map[string]table, len(tableCatalog))
	for _, tbl := range tableCatalog {
		index[tbl.Name] = tbl
	}

	svc := &Service{
		driver:     driver,
		dsn:        dsn,
		batchSize:  defaultBatchSize,
		tables:     tableCatalog,
		tableIndex: index,
		schemaHash: computeSchemaHash(tableCatalog),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

type ExportOption func(*exportConfig)

type exportConfig struct {
	tables   []string
	reporter ProgressReporter
}

// WithTables restricts export to the provided table names.
func WithTables(tables []string) ExportOption {
	return func(cfg *exportConfig) {
		if len(tables) == 0 {
			return
		}
		cfg.tables = append([]string{}, tables...)
	}
}

// WithProgressReporter registers a reporter that receives progress
// callbacks during export.
func WithProgressReporter(reporter ProgressReporter) ExportOption {
	return func(cfg *exportConfig) {
		cfg.reporter = reporter
	}
}

type ImportOption func(*importConfig)

type importConfig struct {
	tables []string
}

// WithImportTables restricts import to the provided table names.
func WithImportTables(tables []string) ImportOption {
	return func(cfg *importConfig) {
		if len(tables) == 0 {
			return
		}
		cfg.tables = append([]string{}, tables...)
	}
}

type record struct {
	Type       string         `json:"type"`
	Version    int            `json:"version,omitempty"`
	ExportedAt *time.Time     `json:"exported_at,omitempty"`
	SchemaHash string         `json:"schema_hash,omitempty"`
	Tables     []string       `json:"tables,omitempty"`
	RowCounts  map[string]int `json:"row_counts,omitempty"`
	Payload    any            `json:"payload,omitempty"`
}

type rawRecord struct {
	Type       string          `json:"type"`
	Version    int             `json:"version"`
	SchemaHash string          `json:"schema_hash"`
	Payload    json.RawMessage `json:"payload"`
}

// Export writes the selected tables as NDJSON to w.
func (s *Service) Export(ctx context.Context, w io.Writer, opts ...ExportOption) error {
	cfg := exportConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	tables, err := s.selectTables(cfg.tables)
	if err != nil {
		return err
	}
	reporter := cfg.reporter
	if reporter == nil {
		reporter = noopProgress{}
	}

	db, err := s.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	counts := make(map[string]int, len(tables))
	for _, tbl := range tables {
		var count int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+tbl.Name).Scan(&count); err != nil {
			return fmt.Errorf("count table %s: %w", tbl.Name, err)
		}
		counts[tbl.Name] = count
	}

	writer := bufio.NewWriter(w)
	defer writer.Flush()

	now := time.Now().UTC()
	meta := record{
		Type:       "meta",
		Version:    formatVersion,
		ExportedAt: &now,
		SchemaHash: s.schemaHash,
		Tables:     tableNames(tables),
		RowCounts:  counts,
	}
	if err := writeRecord(writer, meta); err != nil {
		return err
	}

	for _, tbl := range tables {
		reporter.StartTable(tbl.Name, counts[tbl.Name])
		if err := s.exportTable(ctx, db, tbl, reporter, writer); err != nil {
			return err
		}
		reporter.FinishTable(tbl.Name)
	}
	return writer.Flush()
}

// Import replays an NDJSON backup in one transaction. Rows whose primary
// key already exists are skipped.
func (s *Service) Import(ctx context.Context, r io.Reader, opts ...ImportOption) error {
	cfg := importConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	tables, err := s.selectTables(cfg.tables)
	if err != nil {
		return err
	}
	tableFilter := make(map[string]table, len(tables))
	for _, tbl := range tables {
		tableFilter[tbl.Name] = tbl
	}

	db, err := s.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			_ = tx.Rollback()
		}
	}()

	br := bufio.NewReader(r)
	var (
		metaSeen bool
		meta     rawRecord
	)
	for {
		line, err := br.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read backup: %w", err)
		}
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			var rec rawRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				return fmt.Errorf("decode record: %w", err)
			}
			switch rec.Type {
			case "meta":
				metaSeen = true
				meta = rec
			default:
				tbl, ok := tableFilter[rec.Type]
				if !ok {
					break // record for a table not requested
				}
				if len(rec.Payload) == 0 {
					return fmt.Errorf("backup: missing payload for table %s", rec.Type)
				}
				if err := s.importRow(ctx, tx, tbl, rec.Payload); err != nil {
					return err
				}
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
	}

	if !metaSeen {
		return errors.New("backup: missing meta record")
	}
	if meta.Version != formatVersion {
		return fmt.Errorf("backup: unsupported format version %d", meta.Version)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	commit = true
	return nil
}

func (s *Service) exportTable(ctx context.Context, db *sql.DB, tbl table, reporter ProgressReporter, w io.Writer) error {
	orderBy := " ORDER BY " + strings.Join(tbl.PrimaryKey, ", ")
	batch := s.batchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}

	for offset := 0; ; offset += batch {
		query := fmt.Sprintf("SELECT %s FROM %s%s LIMIT %d OFFSET %d",
			strings.Join(tbl.Columns, ", "), tbl.Name, orderBy, batch, offset)
		rows, err := db.QueryContext(ctx, query)
		if err != nil {
			return fmt.Errorf("query %s: %w", tbl.Name, err)
		}

		rowCount := 0
		for rows.Next() {
			values := make([]any, len(tbl.Columns))
			dest := make([]any, len(tbl.Columns))
			for i := range dest {
				dest[i] = &values[i]
			}
			if err := rows.Scan(dest...); err != nil {
				rows.Close()
				return fmt.Errorf("scan %s: %w", tbl.Name, err)
			}
			rowMap := make(map[string]any, len(tbl.Columns))
			for i, col := range tbl.Columns {
				rowMap[col] = encodeValue(values[i])
			}
			if err := writeRecord(w, record{Type: tbl.Name, Payload: rowMap}); err != nil {
				rows.Close()
				return err
			}
			reporter.Increment(tbl.Name, 1)
			rowCount++
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("iterate %s: %w", tbl.Name, err)
		}
		rows.Close()
		if rowCount < batch {
			break
		}
	}
	return nil
}

func (s *Service) importRow(ctx context.Context, tx *sql.Tx, tbl table, payload json.RawMessage) error {
	var rowMap map[string]any
	if err := json.Unmarshal(payload, &rowMap); err != nil {
		return fmt.Errorf("decode payload for %s: %w", tbl.Name, err)
	}

	cols := make([]string, 0, len(tbl.Columns))
	args := make([]any, 0, len(tbl.Columns))
	for _, col := range tbl.Columns {
		val, ok := rowMap[col]
		if !ok {
			continue
		}
		cols = append(cols, col)
		args = append(args, val)
	}
	if len(cols) == 0 {
		return nil
	}

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING",
		tbl.Name,
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(tbl.PrimaryKey, ", "),
	)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert into %s: %w", tbl.Name, err)
	}
	return nil
}

func (s *Service) openDB(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open(s.driver, s.dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func (s *Service) selectTables(names []string) ([]table, error) {
	if len(names) == 0 {
		return s.tables, nil
	}
	out := make([]table, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	// preserve catalog order so dependencies import first
	want := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := s.tableIndex[name]; !ok {
			return nil, fmt.Errorf("backup: unknown table %q", name)
		}
		want[name] = struct{}{}
	}
	for _, tbl := range s.tables {
		if _, ok := want[tbl.Name]; !ok {
			continue
		}
		if _, dup := seen[tbl.Name]; dup {
			continue
		}
		seen[tbl.Name] = struct{}{}
		out = append(out, tbl)
	}
	if len(out) == 0 {
		return nil, errNoTablesSelected
	}
	return out, nil
}

// Tables lists the exportable table names.
func (s *Service) Tables() []string {
	names := tableNames(s.tables)
	sort.Strings(names)
	return names
}

func tableNames(tables []table) []string {
	out := make([]string, len(tables))
	for i, tbl := range tables {
		out[i] = tbl.Name
	}
	return out
}

func writeRecord(w io.Writer, rec record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if _, err := w.Write(append(raw, '\n')); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// encodeValue normalizes driver-specific scan results into JSON-safe
// values. Timestamps serialize as RFC3339Nano so both drivers re-parse
// them on import.
func encodeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return val
	}
}

func computeSchemaHash(tables []table) string {
	h := sha256.New()
	for _, tbl := range tables {
		h.Write([]byte(tbl.Name))
		for _, col := range tbl.Columns {
			h.Write([]byte("|" + col))
		}
		h.Write([]byte("\n"))
	}
	return hex.EncodeToString(h.Sum(nil))
}
