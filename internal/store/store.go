// Package store persists analyses per document version. Records are
// append-only: a saved (document, version) is never rewritten.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/ppiankov/covenant/internal/model"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

var (
	// ErrNotFound is returned when no analysis exists for a document version
	ErrNotFound = errors.New("store: not found")

	// ErrExists is returned when a document version was already saved
	ErrExists = errors.New("store: analysis already exists")
)

// Store is the append-only analysis store
type Store interface {
	SaveAnalysis(ctx context.Context, a *model.Analysis) error
	LoadAnalysis(ctx context.Context, documentID, version string) (*model.Analysis, error)
	Versions(ctx context.Context, documentID string) ([]VersionInfo, error)
	Close() error
}

// VersionInfo summarizes one saved analysis
type VersionInfo struct {
	Version      string          `json:"version"`
	Source       string          `json:"source,omitempty"`
	AnalyzedAt   time.Time       `json:"analyzed_at"`
	OverallLevel model.RiskLevel `json:"overall_level"`
	OverallScore int             `json:"overall_score"`
	FindingCount int             `json:"finding_count"`
}

// Dialect selects placeholder style
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// SQLStore implements Store over database/sql
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// Open opens a store for the given driver ("sqlite" or "postgres") and
// runs migrations
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	switch Dialect(strings.ToLower(driver)) {
	case DialectSQLite:
		return openSQLite(ctx, dsn)
	case DialectPostgres, "postgresql":
		return openPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("store: unknown driver %q (supported: sqlite, postgres)", driver)
	}
}

func openSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("store: create data dir: %w", err)
		}
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}

	s := NewSQLStore(db, DialectSQLite)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migration: %w", err)
	}
	return s, nil
}

func openPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := openDB("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping database: %w", err)
	}

	s := NewSQLStore(db, DialectPostgres)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migration: %w", err)
	}
	return s, nil
}

// NewSQLStore wraps an open database. Migrate must be run before use.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// recordTables hold one row per layer record, ordered by ordinal
var recordTables = []string{"facts", "bindings", "clauses", "cross_references", "slots", "findings"}

// Migrate creates the schema if needed
func (s *SQLStore) Migrate(ctx context.Context) error {
	stmts := []string{`
		CREATE TABLE IF NOT EXISTS analyses (
			document_id   TEXT    NOT NULL,
			version       TEXT    NOT NULL,
			source        TEXT    NOT NULL DEFAULT '',
			analyzed_at   TEXT    NOT NULL,
			overall_level TEXT    NOT NULL,
			overall_score INTEGER NOT NULL,
			finding_count INTEGER NOT NULL,
			summary       TEXT    NOT NULL,
			PRIMARY KEY (document_id, version)
		)`,
	}
	for _, table := range recordTables {
		stmts = append(stmts,
			fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			document_id TEXT    NOT NULL,
			version     TEXT    NOT NULL,
			ordinal     INTEGER NOT NULL,
			record_id   TEXT    NOT NULL,
			payload     TEXT    NOT NULL,
			PRIMARY KEY (document_id, version, ordinal)
		)`, table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_record ON %s(record_id)`, table, table),
		)
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// analysisSummary holds the document-level parts of an analysis
type analysisSummary struct {
	Profile    model.RiskProfile   `json:"risk_profile"`
	Signals    []model.Signal      `json:"signals"`
	Principles model.Principles    `json:"principles"`
	Judgment   *model.JudgmentMeta `json:"judgment,omitempty"`
}

// SaveAnalysis writes the analysis and every layer record in one transaction
func (s *SQLStore) SaveAnalysis(ctx context.Context, a *model.Analysis) error {
	if a.DocumentID == "" || a.Version == "" {
		return fmt.Errorf("store: save analysis: missing document id or version")
	}

	summary, err := json.Marshal(analysisSummary{
		Profile:    a.Profile,
		Signals:    a.Signals,
		Principles: a.Principles,
		Judgment:   a.Judgment,
	})
	if err != nil {
		return fmt.Errorf("store: marshal summary: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	if err := tx.QueryRowContext(ctx,
		s.rebind(`SELECT COUNT(*) FROM analyses WHERE document_id = ? AND version = ?`),
		a.DocumentID, a.Version,
	).Scan(&count); err != nil {
		return fmt.Errorf("store: check existing: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: %s@%s", ErrExists, a.DocumentID, a.Version)
	}

	if _, err := tx.ExecContext(ctx,
		s.rebind(`INSERT INTO analyses (document_id, version, source, analyzed_at, overall_level, overall_score, finding_count, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		a.DocumentID, a.Version, a.Source, a.AnalyzedAt.UTC().Format(time.RFC3339Nano),
		string(a.Profile.OverallLevel), a.Profile.OverallScore, len(a.Findings), string(summary),
	); err != nil {
		return fmt.Errorf("store: insert analysis: %w", err)
	}

	layers := map[string][]record{
		"facts":            recordsOf(a.Facts, func(f model.Fact) string { return f.ID }),
		"bindings":         recordsOf(a.Bindings, func(b model.Binding) string { return b.ID }),
		"clauses":          recordsOf(a.Clauses, func(c model.Clause) string { return c.ID }),
		"cross_references": recordsOf(a.CrossReferences, func(x model.CrossReference) string { return x.ID }),
		"slots":            recordsOf(a.Slots, func(sl model.ClauseFactSlot) string { return sl.ClauseID + "/" + sl.FactSpec }),
		"findings":         recordsOf(a.Findings, func(f model.Finding) string { return f.ID }),
	}
	for _, table := range recordTables {
		if err := s.insertRecords(ctx, tx, table, a.DocumentID, a.Version, layers[table]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

type record struct {
	id    string
	value any
}

func recordsOf[T any](items []T, id func(T) string) []record {
	out := make([]record, len(items))
	for i, item := range items {
		out[i] = record{id: id(item), value: item}
	}
	return out
}

func (s *SQLStore) insertRecords(ctx context.Context, tx *sql.Tx, table, documentID, version string, records []record) error {
	if len(records) == 0 {
		return nil
	}
	query := s.rebind(fmt.Sprintf(`INSERT INTO %s (document_id, version, ordinal, record_id, payload) VALUES (?, ?, ?, ?, ?)`, table))
	for i, r := range records {
		payload, err := json.Marshal(r.value)
		if err != nil {
			return fmt.Errorf("store: marshal %s %s: %w", table, r.id, err)
		}
		if _, err := tx.ExecContext(ctx, query, documentID, version, i, r.id, string(payload)); err != nil {
			return fmt.Errorf("store: insert %s %s: %w", table, r.id, err)
		}
	}
	return nil
}

// LoadAnalysis reassembles a saved analysis
func (s *SQLStore) LoadAnalysis(ctx context.Context, documentID, version string) (*model.Analysis, error) {
	var (
		a          = &model.Analysis{DocumentID: documentID, Version: version}
		analyzedAt string
		summary    string
	)
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT source, analyzed_at, summary FROM analyses WHERE document_id = ? AND version = ?`),
		documentID, version,
	).Scan(&a.Source, &analyzedAt, &summary)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s@%s", ErrNotFound, documentID, version)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load analysis: %w", err)
	}

	if a.AnalyzedAt, err = time.Parse(time.RFC3339Nano, analyzedAt); err != nil {
		return nil, fmt.Errorf("store: parse analyzed_at: %w", err)
	}

	var sum analysisSummary
	if err := json.Unmarshal([]byte(summary), &sum); err != nil {
		return nil, fmt.Errorf("store: decode summary: %w", err)
	}
	a.Profile, a.Signals, a.Principles, a.Judgment = sum.Profile, sum.Signals, sum.Principles, sum.Judgment

	if err := loadRecords(ctx, s, "facts", documentID, version, &a.Facts); err != nil {
		return nil, err
	}
	if err := loadRecords(ctx, s, "bindings", documentID, version, &a.Bindings); err != nil {
		return nil, err
	}
	if err := loadRecords(ctx, s, "clauses", documentID, version, &a.Clauses); err != nil {
		return nil, err
	}
	if err := loadRecords(ctx, s, "cross_references", documentID, version, &a.CrossReferences); err != nil {
		return nil, err
	}
	if err := loadRecords(ctx, s, "slots", documentID, version, &a.Slots); err != nil {
		return nil, err
	}
	if err := loadRecords(ctx, s, "findings", documentID, version, &a.Findings); err != nil {
		return nil, err
	}

	return a, nil
}

func loadRecords[T any](ctx context.Context, s *SQLStore, table, documentID, version string, out *[]T) error {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(fmt.Sprintf(`SELECT payload FROM %s WHERE document_id = ? AND version = ? ORDER BY ordinal`, table)),
		documentID, version,
	)
	if err != nil {
		return fmt.Errorf("store: query %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]T, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return fmt.Errorf("store: scan %s: %w", table, err)
		}
		var item T
		if err := json.Unmarshal([]byte(payload), &item); err != nil {
			return fmt.Errorf("store: decode %s: %w", table, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("store: iterate %s: %w", table, err)
	}

	*out = items
	return nil
}

// Versions lists saved analyses of a document, newest first
func (s *SQLStore) Versions(ctx context.Context, documentID string) ([]VersionInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT version, source, analyzed_at, overall_level, overall_score, finding_count
		FROM analyses WHERE document_id = ? ORDER BY analyzed_at DESC, version`),
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: query versions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var versions []VersionInfo
	for rows.Next() {
		var (
			v          VersionInfo
			analyzedAt string
			level      string
		)
		if err := rows.Scan(&v.Version, &v.Source, &analyzedAt, &level, &v.OverallScore, &v.FindingCount); err != nil {
			return nil, fmt.Errorf("store: scan version: %w", err)
		}
		if v.AnalyzedAt, err = time.Parse(time.RFC3339Nano, analyzedAt); err != nil {
			return nil, fmt.Errorf("store: parse analyzed_at: %w", err)
		}
		v.OverallLevel = model.RiskLevel(level)
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate versions: %w", err)
	}
	return versions, nil
}

// rebind rewrites '?' placeholders as $1..$n for postgres
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
