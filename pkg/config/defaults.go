package config

import (
	"time"

	"homeautomation-crosspost/pkg/content"
	"homeautomation-crosspost/pkg/db"
	"homeautomation-crosspost/pkg/keywords"
	"homeautomation-crosspost/pkg/ledger"
	"homeautomation-crosspost/pkg/logger"
	"homeautomation-crosspost/pkg/pipeline"
	"homeautomation-crosspost/pkg/reddit"
)

// Default values.
const (
	DefaultSource        = "homeautomation"
	DefaultTarget        = "o_homeautomation_test"
	DefaultLedgerKey     = "homeautomation"
	DefaultFetchTimeout  = 15 * time.Second
	DefaultRedditTimeout = 30 * time.Second
	DefaultUserAgent     = "homeautomation-crosspost/1.0"
	DefaultSQLitePath    = "crosspost.db"
	DefaultMongoDatabase = "crosspost"
	DefaultMetricsJob    = "homeautomation_crosspost"
	DefaultSchedule      = "*/10 * * * *"
	DefaultClientType    = "browser"
)

// SetDefaults fills every unset field with its default.
func (c *Config) SetDefaults() {
	if c.Source == "" {
		c.Source = DefaultSource
	}
	if c.Target == "" {
		c.Target = DefaultTarget
	}
	if len(c.Topics.Keywords) == 0 && len(c.Topics.Patterns) == 0 {
		c.Topics = keywords.DefaultConfig()
	}

	c.Reddit.setDefaults()
	c.Fetch.setDefaults()

	if c.Classify.Workers <= 0 {
		c.Classify.Workers = 1
	}

	c.Ledger.setDefaults()

	if c.Logging.Level == "" {
		c.Logging.Level = logger.DefaultLevel
	}
	if c.Metrics.Job == "" {
		c.Metrics.Job = DefaultMetricsJob
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = DefaultSchedule
	}
}

func (r *RedditConfig) setDefaults() {
	if r.Mode == "" {
		r.Mode = ModeAPI
	}
	if r.UserAgent == "" {
		r.UserAgent = DefaultUserAgent
	}
	if r.BaseURL == "" {
		r.BaseURL = reddit.DefaultBaseURL
	}
	if r.TokenURL == "" {
		r.TokenURL = reddit.DefaultTokenURL
	}
	if r.RequestsPerMinute <= 0 {
		r.RequestsPerMinute = reddit.DefaultRequestsPerMinute
	}
	if r.Timeout <= 0 {
		r.Timeout = DefaultRedditTimeout
	}
}

func (f *FetchConfig) setDefaults() {
	if f.Limit <= 0 {
		f.Limit = pipeline.DefaultLimit
	}
	if f.PublishQuota <= 0 {
		f.PublishQuota = pipeline.DefaultPublishQuota
	}
	if f.Timeout <= 0 {
		f.Timeout = DefaultFetchTimeout
	}
	if f.MaxBodyBytes <= 0 {
		f.MaxBodyBytes = content.DefaultMaxBodyBytes
	}
	if f.ClientType == "" {
		f.ClientType = DefaultClientType
	}
}

func (l *LedgerConfig) setDefaults() {
	if l.Backend == "" {
		l.Backend = BackendFile
	}
	if l.Key == "" {
		l.Key = DefaultLedgerKey
	}
	if l.Path == "" {
		l.Path = ledger.DefaultFilePath
	}
	if l.Table == "" {
		l.Table = db.DefaultTable
	}
	if l.SQLite.Path == "" {
		l.SQLite.Path = DefaultSQLitePath
	}
	if l.Mongo.Database == "" {
		l.Mongo.Database = DefaultMongoDatabase
	}
	if l.Mongo.Collection == "" {
		l.Mongo.Collection = db.DefaultTable
	}
}
