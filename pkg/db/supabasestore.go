package db

import (
	"context"
	"encoding/json"
	"fmt"

	supabase "github.com/supabase-community/supabase-go"

	"homeautomation-crosspost/pkg/domain"
	"homeautomation-crosspost/pkg/ledger"
)

// SupabaseStore keeps the crawl state in a Supabase table through the REST API.
// The table has the same layout as the SQLStore postgres table.
type SupabaseStore struct {
	client *supabase.Client
	table  string
	key    string
}

type stateRow struct {
	Key      string          `json:"key"`
	Document json.RawMessage `json:"document"`
}

// NewSupabaseStore creates a REST-backed store. An empty table selects DefaultTable.
func NewSupabaseStore(client *supabase.Client, table, key string) *SupabaseStore {
	if table == "" {
		table = DefaultTable
	}
	return &SupabaseStore{client: client, table: table, key: key}
}

// Load selects the document row of the store key.
// The REST client does not take a context; ctx is only checked up front.
func (s *SupabaseStore) Load(ctx context.Context) (domain.CrawlState, error) {
	if err := ctx.Err(); err != nil {
		return domain.CrawlState{}, err
	}

	var rows []stateRow
	if _, err := s.client.From(s.table).Select("document", "", false).Eq("key", s.key).ExecuteTo(&rows); err != nil {
		return domain.CrawlState{}, fmt.Errorf("select supabase state: %w", err)
	}
	if len(rows) == 0 || len(rows[0].Document) == 0 {
		return domain.CrawlState{}, ledger.ErrNotFound
	}

	return ledger.Decode(rows[0].Document)
}

// Save upserts the document row of the store key.
func (s *SupabaseStore) Save(ctx context.Context, state domain.CrawlState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	document, err := ledger.Encode(state)
	if err != nil {
		return err
	}

	row := stateRow{Key: s.key, Document: document}
	if _, _, err := s.client.From(s.table).Upsert(row, "key", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("upsert supabase state: %w", err)
	}
	return nil
}
