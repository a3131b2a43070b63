package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"homeautomation-crosspost/pkg/domain"
	"homeautomation-crosspost/pkg/ledger"
)

// DefaultTable is the table holding crawl state documents.
const DefaultTable = "crawl_state"

// Dialect captures the SQL differences between the supported engines.
type Dialect struct {
	Name          string
	DocumentType  string
	TimestampType string
	placeholder   func(n int) string
}

// Placeholder returns the n-th (1-based) bind parameter.
func (d Dialect) Placeholder(n int) string {
	return d.placeholder(n)
}

var (
	// Postgres stores the document as JSONB.
	Postgres = Dialect{
		Name:          "postgres",
		DocumentType:  "JSONB",
		TimestampType: "TIMESTAMPTZ",
		placeholder:   func(n int) string { return fmt.Sprintf("$%d", n) },
	}

	// SQLite stores the document as TEXT.
	SQLite = Dialect{
		Name:          "sqlite",
		DocumentType:  "TEXT",
		TimestampType: "TIMESTAMP",
		placeholder:   func(int) string { return "?" },
	}
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLStore keeps the crawl state as one JSON document row per key.
// Save is a single upsert statement.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	table   string
	key     string
}

// NewSQLStore creates a store on table. An empty table selects DefaultTable.
func NewSQLStore(db *sql.DB, dialect Dialect, table, key string) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sql store requires an open database")
	}
	if table == "" {
		table = DefaultTable
	}
	if !identifierPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if key == "" {
		return nil, fmt.Errorf("sql store requires a state key")
	}
	return &SQLStore{db: db, dialect: dialect, table: table, key: key}, nil
}

// EnsureSchema creates the state table if it does not exist.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	key TEXT PRIMARY KEY,
	document %s NOT NULL,
	updated_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, s.table, s.dialect.DocumentType, s.dialect.TimestampType)

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create %s table: %w", s.table, err)
	}
	return nil
}

// Load reads the state document for the store key.
func (s *SQLStore) Load(ctx context.Context) (domain.CrawlState, error) {
	query := fmt.Sprintf("SELECT document FROM %s WHERE key = %s", s.table, s.dialect.Placeholder(1))

	var document []byte
	err := s.db.QueryRowContext(ctx, query, s.key).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CrawlState{}, ledger.ErrNotFound
	}
	if err != nil {
		return domain.CrawlState{}, fmt.Errorf("query %s state: %w", s.dialect.Name, err)
	}

	return ledger.Decode(document)
}

// Save upserts the state document for the store key.
func (s *SQLStore) Save(ctx context.Context, state domain.CrawlState) error {
	document, err := ledger.Encode(state)
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf(`INSERT INTO %s (key, document, updated_at) VALUES (%s, %s, CURRENT_TIMESTAMP)
ON CONFLICT (key) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
		s.table, s.dialect.Placeholder(1), s.dialect.Placeholder(2))

	if _, err := s.db.ExecContext(ctx, stmt, s.key, string(document)); err != nil {
		return fmt.Errorf("upsert %s state: %w", s.dialect.Name, err)
	}
	return nil
}
