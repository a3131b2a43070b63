package replication

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeautomation-crosspost/pkg/db"
	"homeautomation-crosspost/pkg/domain"
	"homeautomation-crosspost/pkg/ledger"
)

// memStore is an in-memory ledger.Store for testing
type memStore struct {
	state     *domain.CrawlState
	loadErr   error
	saveCount int
}

func (m *memStore) Load(ctx context.Context) (domain.CrawlState, error) {
	if m.loadErr != nil {
		return domain.CrawlState{}, m.loadErr
	}
	if m.state == nil {
		return domain.CrawlState{}, ledger.ErrNotFound
	}
	return *m.state, nil
}

func (m *memStore) Save(ctx context.Context, state domain.CrawlState) error {
	m.saveCount++
	m.state = &state
	return nil
}

func stateWith(watermark float64, ids ...string) *domain.CrawlState {
	s := domain.CrawlState{Watermark: watermark, Records: map[string]domain.LedgerRecord{}, SchemaVersion: domain.SchemaVersion}
	for _, id := range ids {
		s.Records[id] = domain.LedgerRecord{ID: id, Title: id, CreatedAt: watermark}
	}
	return &s
}

func TestNewReplicator_RequiresStores(t *testing.T) {
	_, err := NewReplicator(Config{Destination: &memStore{}})
	assert.Error(t, err)
	_, err = NewReplicator(Config{Source: &memStore{}})
	assert.Error(t, err)
}

func TestReplicate_IntoEmptyDestination(t *testing.T) {
	src := &memStore{state: stateWith(300, "a", "b")}
	dst := &memStore{}
	r, err := NewReplicator(Config{Source: src, Destination: dst})
	require.NoError(t, err)

	report, err := r.Replicate(context.Background(), Merge)
	require.NoError(t, err)

	assert.Equal(t, Report{SourceRecords: 2, Inserted: 2, TotalRecords: 2, Watermark: 300, Saved: true}, report)
	assert.Equal(t, 1, dst.saveCount)
	assert.True(t, dst.state.Has("a"))
}

func TestReplicate_MergeKeepsHigherWatermark(t *testing.T) {
	src := &memStore{state: stateWith(100, "old")}
	dst := &memStore{state: stateWith(500, "new")}
	r, err := NewReplicator(Config{Source: src, Destination: dst})
	require.NoError(t, err)

	report, err := r.Replicate(context.Background(), Merge)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Inserted)
	assert.Equal(t, float64(500), dst.state.Watermark)
	assert.Len(t, dst.state.Records, 2)
}

func TestReplicate_MergeUpToDateSkipsSave(t *testing.T) {
	src := &memStore{state: stateWith(100, "a")}
	dst := &memStore{state: stateWith(100, "a")}
	r, err := NewReplicator(Config{Source: src, Destination: dst})
	require.NoError(t, err)

	report, err := r.Replicate(context.Background(), Merge)
	require.NoError(t, err)

	assert.False(t, report.Saved)
	assert.Equal(t, 0, dst.saveCount)
}

func TestReplicate_Overwrite(t *testing.T) {
	src := &memStore{state: stateWith(100, "a")}
	dst := &memStore{state: stateWith(500, "b")}
	r, err := NewReplicator(Config{Source: src, Destination: dst})
	require.NoError(t, err)

	_, err = r.Replicate(context.Background(), Overwrite)
	require.NoError(t, err)

	assert.Equal(t, float64(100), dst.state.Watermark)
	assert.True(t, dst.state.Has("a"))
	assert.False(t, dst.state.Has("b"))
}

func TestReplicate_MergeSavesChangedRecords(t *testing.T) {
	dst := &memStore{state: stateWith(300, "a")}
	changed := stateWith(300, "a")
	changed.Records["a"] = domain.LedgerRecord{ID: "a", Title: "a (retitled)", URL: "https://example.com/a", CreatedAt: 300}
	r, err := NewReplicator(Config{Source: &memStore{state: changed}, Destination: dst})
	require.NoError(t, err)

	report, err := r.Replicate(context.Background(), Merge)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Inserted)
	assert.Equal(t, 1, report.Updated)
	assert.True(t, report.Saved)
	assert.Equal(t, 1, dst.saveCount)
	assert.Equal(t, "a (retitled)", dst.state.Records["a"].Title)
}

func TestReplicate_SourceErrors(t *testing.T) {
	for _, loadErr := range []error{ledger.ErrNotFound, errors.New("decode crawl state: bad json")} {
		dst := &memStore{}
		r, err := NewReplicator(Config{Source: &memStore{loadErr: loadErr}, Destination: dst})
		require.NoError(t, err)

		_, err = r.Replicate(context.Background(), Merge)
		assert.ErrorIs(t, err, loadErr)
		assert.Equal(t, 0, dst.saveCount)
	}
}

func TestReplicate_UnknownMode(t *testing.T) {
	r, err := NewReplicator(Config{Source: &memStore{state: stateWith(1, "a")}, Destination: &memStore{}})
	require.NoError(t, err)

	_, err = r.Replicate(context.Background(), Mode("sideways"))
	assert.Error(t, err)
}

func TestReplicate_FileToSQLite(t *testing.T) {
	ctx := context.Background()

	file := ledger.NewFileStore(filepath.Join(t.TempDir(), "database.json"))
	require.NoError(t, file.Save(ctx, *stateWith(1700000000, "abc", "def")))

	client := db.NewSQLiteClient(db.MemoryPath)
	require.NoError(t, client.Connect(ctx))
	defer client.Close()
	sqlStore, err := db.NewSQLStore(client.DB(), db.SQLite, "", "homeautomation")
	require.NoError(t, err)
	require.NoError(t, sqlStore.EnsureSchema(ctx))

	r, err := NewReplicator(Config{Source: file, Destination: sqlStore})
	require.NoError(t, err)

	report, err := r.Replicate(ctx, Merge)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Inserted)

	loaded, err := sqlStore.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(1700000000), loaded.Watermark)
	assert.True(t, loaded.Has("abc"))
	assert.True(t, loaded.Has("def"))
}
