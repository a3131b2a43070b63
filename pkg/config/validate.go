package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/robfig/cron/v3"

	"homeautomation-crosspost/pkg/reddit"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateRequired checks if a string field is not empty.
func ValidateRequired(field, value string) error {
	if value == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

// ValidateLogLevel checks if a log level is valid.
func ValidateLogLevel(level string) error {
	switch level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return &ValidationError{Field: "logging.level", Message: "must be one of: debug, info, warn, error"}
	}
}

// ValidateURL checks that value is an absolute http(s) URL.
func ValidateURL(field, value string) error {
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ValidationError{Field: field, Message: "must be an absolute http(s) URL"}
	}
	return nil
}

// Validate returns every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	add(ValidateRequired("source", c.Source))
	add(ValidateRequired("target", c.Target))
	if c.Source != "" && c.Source == c.Target {
		add(&ValidationError{Field: "target", Message: "must differ from source"})
	}
	if len(c.Topics.Keywords) == 0 && len(c.Topics.Patterns) == 0 {
		add(&ValidationError{Field: "topics", Message: "at least one keyword or pattern is required"})
	}

	switch c.Reddit.Mode {
	case ModeAPI, ModeFeed:
	default:
		add(&ValidationError{Field: "reddit.mode", Message: "must be one of: api, feed"})
	}

	if c.Fetch.Limit < 1 || c.Fetch.Limit > reddit.MaxListingLimit {
		add(&ValidationError{Field: "fetch.limit", Message: fmt.Sprintf("must be between 1 and %d", reddit.MaxListingLimit)})
	}
	if c.Fetch.PublishQuota < 1 {
		add(&ValidationError{Field: "fetch.publish_quota", Message: "must be at least 1"})
	}
	switch c.Fetch.ClientType {
	case "browser", "cloudflare", "bot":
	default:
		add(&ValidationError{Field: "fetch.client_type", Message: "must be one of: browser, cloudflare, bot"})
	}
	if c.Classify.Workers < 1 {
		add(&ValidationError{Field: "classify.workers", Message: "must be at least 1"})
	}

	add(c.Ledger.Validate())
	add(ValidateLogLevel(c.Logging.Level))

	if c.Metrics.PushgatewayURL != "" {
		add(ValidateURL("metrics.pushgateway_url", c.Metrics.PushgatewayURL))
	}
	if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
		add(&ValidationError{Field: "schedule.cron", Message: err.Error()})
	}

	return errors.Join(errs...)
}

// Validate checks that the selected backend has what it needs to connect.
func (l *LedgerConfig) Validate() error {
	switch l.Backend {
	case BackendFile:
		return ValidateRequired("ledger.path", l.Path)
	case BackendSQLite:
		return ValidateRequired("ledger.sqlite.path", l.SQLite.Path)
	case BackendPostgres:
		return ValidateRequired("ledger.postgres.dsn", l.Postgres.DSN)
	case BackendSupabase:
		s := l.Supabase
		if s.ConnectionString == "" && (s.URL == "" || (s.Key == "" && s.Password == "")) {
			return &ValidationError{Field: "ledger.supabase", Message: "needs connection_string, or url with key or password"}
		}
		return nil
	case BackendMongo:
		return ValidateRequired("ledger.mongo.uri", l.Mongo.URI)
	case BackendRedis:
		return ValidateRequired("ledger.redis.address", l.Redis.Address)
	default:
		return &ValidationError{Field: "ledger.backend", Message: "must be one of: file, sqlite, postgres, supabase, mongo, redis"}
	}
}

// ValidateCredentials checks the API credentials needed to publish or to list in api mode.
func (r *RedditConfig) ValidateCredentials() error {
	var errs []error
	for field, value := range map[string]string{
		"reddit.client_id": r.ClientID,
		"reddit.username":  r.Username,
		"reddit.password":  r.Password,
	} {
		if err := ValidateRequired(field, value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
