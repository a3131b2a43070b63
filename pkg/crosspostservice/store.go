package crosspostservice

import (
	"context"
	"fmt"

	"homeautomation-crosspost/pkg/config"
	"homeautomation-crosspost/pkg/db"
	"homeautomation-crosspost/pkg/ledger"
	"homeautomation-crosspost/pkg/logger"
)

// CloseFunc releases a store's connection.
type CloseFunc func(ctx context.Context) error

func noClose(context.Context) error { return nil }

// OpenStore connects the configured ledger backend. Connection problems are
// returned here, before any run, so a run never starts from a fresh state
// because its database was unreachable.
func OpenStore(ctx context.Context, cfg config.LedgerConfig, log logger.Logger) (ledger.Store, CloseFunc, error) {
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With(logger.String("backend", cfg.Backend))

	switch cfg.Backend {
	case config.BackendFile:
		log.Debug("using file ledger", logger.String("path", cfg.Path))
		return ledger.NewFileStore(cfg.Path), noClose, nil

	case config.BackendSQLite:
		client := db.NewSQLiteClient(cfg.SQLite.Path)
		if err := client.Connect(ctx); err != nil {
			return nil, nil, err
		}
		return sqlStore(ctx, client, db.SQLite, cfg)

	case config.BackendPostgres:
		client := db.NewPostgresClient(postgresConfig(cfg.Postgres))
		if err := client.Connect(ctx); err != nil {
			return nil, nil, err
		}
		return sqlStore(ctx, client, db.Postgres, cfg)

	case config.BackendSupabase:
		client := db.NewSupabaseClient(supabaseConfig(cfg.Supabase))
		if err := client.Connect(ctx); err != nil {
			return nil, nil, err
		}
		store, err := client.Store(ctx, cfg.Table, cfg.Key)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		log.Debug("using supabase ledger", logger.Bool("direct_db", client.HasDirectDB()))
		return store, func(context.Context) error { return client.Close() }, nil

	case config.BackendMongo:
		client := db.NewMongoClient(cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
		if err := client.Connect(ctx); err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		return client.Store(cfg.Key), client.Close, nil

	case config.BackendRedis:
		client, err := db.NewRedisClient(ctx, db.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		return db.NewRedisStore(client, cfg.Key), func(context.Context) error { return client.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
	}
}

func postgresConfig(cfg config.PostgresConfig) db.PostgresConfig {
	return db.PostgresConfig{
		DSN:          cfg.DSN,
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
		ConnMaxIdle:  cfg.ConnMaxIdle,
		ConnMaxLife:  cfg.ConnMaxLife,
	}
}

func supabaseConfig(cfg config.SupabaseConfig) db.SupabaseConfig {
	return db.SupabaseConfig{
		ConnectionString: cfg.ConnectionString,
		SupabaseURL:      cfg.URL,
		SupabaseKey:      cfg.Key,
		Password:         cfg.Password,
		MaxOpenConns:     cfg.MaxOpenConns,
		MaxIdleConns:     cfg.MaxIdleConns,
		ConnMaxIdle:      cfg.ConnMaxIdle,
		ConnMaxLife:      cfg.ConnMaxLife,
	}
}

func sqlStore(ctx context.Context, client db.DBProvider, dialect db.Dialect, cfg config.LedgerConfig) (ledger.Store, CloseFunc, error) {
	closeFn := func(context.Context) error { return client.Close() }

	store, err := db.NewSQLStore(client.DB(), dialect, cfg.Table, cfg.Key)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return store, closeFn, nil
}
