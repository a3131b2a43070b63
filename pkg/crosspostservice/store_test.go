package crosspostservice

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeautomation-crosspost/pkg/config"
	"homeautomation-crosspost/pkg/db"
	"homeautomation-crosspost/pkg/domain"
	"homeautomation-crosspost/pkg/ledger"
)

func ledgerConfig(t *testing.T, backend string) config.LedgerConfig {
	t.Helper()
	cfg, err := config.Parse(nil)
	require.NoError(t, err)
	cfg.Ledger.Backend = backend
	return cfg.Ledger
}

func TestOpenStore_File(t *testing.T) {
	cfg := ledgerConfig(t, config.BackendFile)
	cfg.Path = filepath.Join(t.TempDir(), "database.json")

	store, closeFn, err := OpenStore(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer closeFn(context.Background())

	assert.IsType(t, &ledger.FileStore{}, store)
}

func TestOpenStore_SQLite(t *testing.T) {
	ctx := context.Background()
	cfg := ledgerConfig(t, config.BackendSQLite)
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "state", "crosspost.db")

	store, closeFn, err := OpenStore(ctx, cfg, nil)
	require.NoError(t, err)
	defer closeFn(ctx)

	assert.IsType(t, &db.SQLStore{}, store)
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	state := ledger.Fold(domain.NewCrawlState(), []domain.LedgerRecord{{ID: "a", CreatedAt: 10}})
	require.NoError(t, store.Save(ctx, state))
	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(10), loaded.Watermark)
}

func TestOpenStore_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := ledgerConfig(t, config.BackendRedis)
	cfg.Redis.Address = mr.Addr()

	store, closeFn, err := OpenStore(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer closeFn(context.Background())

	require.NoError(t, store.Save(context.Background(), domain.NewCrawlState()))
	assert.True(t, mr.Exists("homeautomation"))
}

func TestPoolSettingsReachClients(t *testing.T) {
	pg := postgresConfig(config.PostgresConfig{
		DSN:          "postgres://bot@localhost/crosspost",
		MaxOpenConns: 4,
		MaxIdleConns: 2,
		ConnMaxIdle:  time.Minute,
		ConnMaxLife:  time.Hour,
	})
	assert.Equal(t, db.PostgresConfig{
		DSN:          "postgres://bot@localhost/crosspost",
		MaxOpenConns: 4,
		MaxIdleConns: 2,
		ConnMaxIdle:  time.Minute,
		ConnMaxLife:  time.Hour,
	}, pg)

	sb := supabaseConfig(config.SupabaseConfig{
		URL:          "https://abcdef.supabase.co",
		Key:          "service-key",
		Password:     "pw",
		MaxOpenConns: 3,
		MaxIdleConns: 1,
		ConnMaxIdle:  30 * time.Second,
		ConnMaxLife:  10 * time.Minute,
	})
	assert.Equal(t, "https://abcdef.supabase.co", sb.SupabaseURL)
	assert.Equal(t, "service-key", sb.SupabaseKey)
	assert.Equal(t, 3, sb.MaxOpenConns)
	assert.Equal(t, 1, sb.MaxIdleConns)
	assert.Equal(t, 30*time.Second, sb.ConnMaxIdle)
	assert.Equal(t, 10*time.Minute, sb.ConnMaxLife)
}

func TestOpenStore_Errors(t *testing.T) {
	ctx := context.Background()

	_, _, err := OpenStore(ctx, ledgerConfig(t, "etcd"), nil)
	assert.Error(t, err)

	_, _, err = OpenStore(ctx, ledgerConfig(t, config.BackendPostgres), nil)
	assert.Error(t, err, "postgres without DSN")

	redisCfg := ledgerConfig(t, config.BackendRedis)
	redisCfg.Redis.Address = ""
	_, _, err = OpenStore(ctx, redisCfg, nil)
	assert.ErrorIs(t, err, db.ErrEmptyAddress)
}
