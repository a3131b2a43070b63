package config

import (
	"time"

	"homeautomation-crosspost/pkg/keywords"
	"homeautomation-crosspost/pkg/logger"
)

// Config is the complete bot configuration.
type Config struct {
	Source   string          `yaml:"source" env:"CROSSPOST_SOURCE"`
	Target   string          `yaml:"target" env:"CROSSPOST_TARGET"`
	Topics   keywords.Config `yaml:"topics"`
	Reddit   RedditConfig    `yaml:"reddit"`
	Fetch    FetchConfig     `yaml:"fetch"`
	Classify ClassifyConfig  `yaml:"classify"`
	Ledger   LedgerConfig    `yaml:"ledger"`
	Logging  logger.Config   `yaml:"logging"`
	Metrics  MetricsConfig   `yaml:"metrics"`
	Schedule ScheduleConfig  `yaml:"schedule"`
}

// Listing modes.
const (
	ModeAPI  = "api"
	ModeFeed = "feed"
)

// RedditConfig holds the script application credentials and endpoints.
type RedditConfig struct {
	// Mode selects the listing source: "api" or the public "feed".
	// Publishing always goes through the API.
	Mode              string        `yaml:"mode" env:"REDDIT_MODE"`
	ClientID          string        `yaml:"client_id" env:"REDDIT_CLIENT_ID"`
	ClientSecret      string        `yaml:"client_secret" env:"REDDIT_CLIENT_SECRET"`
	Username          string        `yaml:"username" env:"REDDIT_USERNAME"`
	Password          string        `yaml:"password" env:"REDDIT_PASSWORD"`
	UserAgent         string        `yaml:"user_agent" env:"REDDIT_USER_AGENT"`
	BaseURL           string        `yaml:"base_url" env:"REDDIT_BASE_URL"`
	TokenURL          string        `yaml:"token_url" env:"REDDIT_TOKEN_URL"`
	FeedURL           string        `yaml:"feed_url" env:"REDDIT_FEED_URL"`
	RequestsPerMinute int           `yaml:"requests_per_minute" env:"REDDIT_REQUESTS_PER_MINUTE"`
	Timeout           time.Duration `yaml:"timeout" env:"REDDIT_TIMEOUT"`
}

// FetchConfig bounds the listing window and article downloads.
type FetchConfig struct {
	Limit        int           `yaml:"limit" env:"CROSSPOST_LIMIT"`
	PublishQuota int           `yaml:"publish_quota" env:"CROSSPOST_PUBLISH_QUOTA"`
	Timeout      time.Duration `yaml:"timeout" env:"FETCH_TIMEOUT"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" env:"FETCH_MAX_BODY_BYTES"`
	// ClientType is the header profile for article hosts: browser, cloudflare or bot.
	ClientType string `yaml:"client_type" env:"FETCH_CLIENT_TYPE"`
}

// ClassifyConfig sizes the classification pool.
type ClassifyConfig struct {
	Workers int `yaml:"workers" env:"CLASSIFY_WORKERS"`
}

// Ledger backends.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendSupabase = "supabase"
	BackendMongo    = "mongo"
	BackendRedis    = "redis"
)

// LedgerConfig selects and configures the crawl state backend.
type LedgerConfig struct {
	Backend  string         `yaml:"backend" env:"LEDGER_BACKEND"`
	Key      string         `yaml:"key" env:"LEDGER_KEY"`
	Path     string         `yaml:"path" env:"LEDGER_PATH"`
	Table    string         `yaml:"table" env:"LEDGER_TABLE"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
	Supabase SupabaseConfig `yaml:"supabase"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Redis    RedisConfig    `yaml:"redis"`
}

// SQLiteConfig locates the SQLite database file.
type SQLiteConfig struct {
	Path string `yaml:"path" env:"SQLITE_PATH"`
}

// PostgresConfig holds the Postgres DSN and pool tuning. Zero pool values keep
// the database/sql defaults.
type PostgresConfig struct {
	DSN          string        `yaml:"dsn" env:"POSTGRES_DSN"`
	MaxOpenConns int           `yaml:"max_open_conns" env:"POSTGRES_MAX_OPEN_CONNS"`
	MaxIdleConns int           `yaml:"max_idle_conns" env:"POSTGRES_MAX_IDLE_CONNS"`
	ConnMaxIdle  time.Duration `yaml:"conn_max_idle" env:"POSTGRES_CONN_MAX_IDLE"`
	ConnMaxLife  time.Duration `yaml:"conn_max_life" env:"POSTGRES_CONN_MAX_LIFE"`
}

// SupabaseConfig holds Supabase credentials.
type SupabaseConfig struct {
	URL              string `yaml:"url" env:"SUPABASE_URL"`
	Key              string `yaml:"key" env:"SUPABASE_KEY"`
	Password         string `yaml:"password" env:"SUPABASE_DB_PASSWORD"`
	ConnectionString string `yaml:"connection_string" env:"SUPABASE_DB_URL"`

	// Pool tuning for the direct Postgres connection.
	MaxOpenConns int           `yaml:"max_open_conns" env:"SUPABASE_DB_MAX_OPEN_CONNS"`
	MaxIdleConns int           `yaml:"max_idle_conns" env:"SUPABASE_DB_MAX_IDLE_CONNS"`
	ConnMaxIdle  time.Duration `yaml:"conn_max_idle" env:"SUPABASE_DB_CONN_MAX_IDLE"`
	ConnMaxLife  time.Duration `yaml:"conn_max_life" env:"SUPABASE_DB_CONN_MAX_LIFE"`
}

// MongoConfig locates the state collection.
type MongoConfig struct {
	URI        string `yaml:"uri" env:"MONGODB_URI"`
	Database   string `yaml:"database" env:"MONGODB_DATABASE"`
	Collection string `yaml:"collection" env:"MONGODB_COLLECTION"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Address  string `yaml:"address" env:"REDIS_ADDRESS"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

// MetricsConfig enables pushing run metrics to a Prometheus Pushgateway.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url" env:"PUSHGATEWAY_URL"`
	Job            string `yaml:"job" env:"METRICS_JOB"`
}

// ScheduleConfig drives the watch command.
type ScheduleConfig struct {
	Cron       string `yaml:"cron" env:"CROSSPOST_SCHEDULE"`
	RunOnStart bool   `yaml:"run_on_start" env:"CROSSPOST_RUN_ON_START"`
}
