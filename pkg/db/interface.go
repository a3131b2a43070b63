package db

import "database/sql"

// DBProvider is an interface for database clients that provide access to a sql.DB handle.
// PostgresClient, SupabaseClient (direct mode) and SQLiteClient all satisfy it, so any of
// them can back an SQLStore.
type DBProvider interface {
	DB() *sql.DB
	Close() error
}
