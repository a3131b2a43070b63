// Package ledger persists the crawl state: the watermark and the records of
// every cross-posted item. It is the only memory the crawler has between runs.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"homeautomation-crosspost/pkg/domain"
	"homeautomation-crosspost/pkg/logger"
)

var (
	// ErrNotFound is returned by a Store that holds no state yet.
	ErrNotFound = errors.New("crawl state not found")
	// ErrCorrupt marks a stored state that exists but cannot be decoded.
	ErrCorrupt = errors.New("crawl state corrupt")
	// ErrUnavailable marks a store that could not be read at all.
	ErrUnavailable = errors.New("crawl state unavailable")
)

// Store loads and saves the whole crawl state. Save must replace the stored
// state atomically: a reader sees either the old or the new state in full.
type Store interface {
	Load(ctx context.Context) (domain.CrawlState, error)
	Save(ctx context.Context, state domain.CrawlState) error
}

// Ledger wraps a Store with the crawl state rules.
type Ledger struct {
	store Store
	log   logger.Logger
}

// New creates a ledger over store.
func New(store Store, log logger.Logger) *Ledger {
	if log == nil {
		log = logger.NewNop()
	}
	return &Ledger{store: store, log: log}
}

// Load returns the persisted state. A missing state yields a fresh one, a
// corrupt state yields a fresh one and a warning. Any other store error is
// returned wrapped in ErrUnavailable.
func (l *Ledger) Load(ctx context.Context) (domain.CrawlState, error) {
	state, err := l.store.Load(ctx)
	switch {
	case err == nil:
		return state.Normalize(), nil
	case errors.Is(err, ErrNotFound):
		l.log.Debug("no crawl state yet, starting fresh")
	case errors.Is(err, ErrCorrupt):
		l.log.Warn("crawl state unreadable, starting fresh", logger.Error(err))
	default:
		return domain.CrawlState{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return domain.NewCrawlState(), nil
}

// Commit folds records into state and saves the result. The input state is not
// modified. On a save error the input state is returned with the error.
func (l *Ledger) Commit(ctx context.Context, state domain.CrawlState, records []domain.LedgerRecord) (domain.CrawlState, error) {
	next := Fold(state, records)
	if err := l.store.Save(ctx, next); err != nil {
		return state, fmt.Errorf("save crawl state: %w", err)
	}

	l.log.Info("crawl state committed",
		logger.Int("records_added", len(records)),
		logger.Int("records_total", len(next.Records)),
		logger.Float64("watermark", next.Watermark))
	return next, nil
}

// Fold returns a copy of state with records inserted by ID (last write wins)
// and the watermark raised to the newest record. The watermark never decreases.
func Fold(state domain.CrawlState, records []domain.LedgerRecord) domain.CrawlState {
	next := state.Normalize()
	for _, rec := range records {
		next.Records[rec.ID] = rec
		if rec.CreatedAt > next.Watermark {
			next.Watermark = rec.CreatedAt
		}
	}
	next.SchemaVersion = domain.SchemaVersion
	return next
}

// Merge folds every record of src into dst and keeps the larger watermark.
func Merge(dst, src domain.CrawlState) domain.CrawlState {
	src = src.Normalize()
	records := make([]domain.LedgerRecord, 0, len(src.Records))
	for _, rec := range src.Records {
		records = append(records, rec)
	}

	merged := Fold(dst, records)
	if src.Watermark > merged.Watermark {
		merged.Watermark = src.Watermark
	}
	return merged
}

// Encode serializes state in the persisted JSON shape, stamping the schema version.
func Encode(state domain.CrawlState) ([]byte, error) {
	state = state.Normalize()
	state.SchemaVersion = domain.SchemaVersion
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode crawl state: %w", err)
	}
	return data, nil
}

// Decode parses the persisted JSON shape. Documents without a version field
// decode as version 0.
func Decode(data []byte) (domain.CrawlState, error) {
	var state domain.CrawlState
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.CrawlState{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return state.Normalize(), nil
}
