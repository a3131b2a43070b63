// Package replication copies crawl state between ledger backends, e.g. when
// moving the bot from its JSON file to a database.
package replication

import (
	"context"
	"errors"
	"fmt"

	"homeautomation-crosspost/pkg/domain"
	"homeautomation-crosspost/pkg/ledger"
	"homeautomation-crosspost/pkg/logger"
)

// Mode selects how source state is combined with destination state.
type Mode string

const (
	// Merge folds source records into the destination; the watermark never decreases.
	Merge Mode = "merge"
	// Overwrite replaces the destination with the source state.
	Overwrite Mode = "overwrite"
)

// Config wires the replication dependencies.
type Config struct {
	Source      ledger.Store
	Destination ledger.Store
	Logger      logger.Logger
}

// Replicator copies crawl state from one store to another.
type Replicator struct {
	source ledger.Store
	dest   ledger.Store
	log    logger.Logger
}

// Report summarizes a replication.
type Report struct {
	SourceRecords int
	Inserted      int
	// Updated counts destination records whose contents changed.
	Updated       int
	TotalRecords  int
	Watermark     float64
	Saved         bool
}

// NewReplicator validates cfg and creates a replicator.
func NewReplicator(cfg Config) (*Replicator, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("source store is required")
	}
	if cfg.Destination == nil {
		return nil, fmt.Errorf("destination store is required")
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Replicator{source: cfg.Source, dest: cfg.Destination, log: log}, nil
}

// Replicate reads the source state and writes it to the destination. Unlike a
// pipeline run, an unreadable source is an error: replicating an empty state
// would hide the problem.
func (r *Replicator) Replicate(ctx context.Context, mode Mode) (Report, error) {
	src, err := r.source.Load(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load source state: %w", err)
	}
	src = src.Normalize()

	dst, err := r.dest.Load(ctx)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		dst = domain.NewCrawlState()
	case err != nil:
		return Report{}, fmt.Errorf("load destination state: %w", err)
	default:
		dst = dst.Normalize()
	}

	var next domain.CrawlState
	switch mode {
	case Merge:
		next = ledger.Merge(dst, src)
	case Overwrite:
		next = ledger.Fold(src, nil)
	default:
		return Report{}, fmt.Errorf("unknown replication mode %q", mode)
	}

	report := Report{
		SourceRecords: len(src.Records),
		TotalRecords:  len(next.Records),
		Watermark:     next.Watermark,
	}
	for id, rec := range next.Records {
		old, ok := dst.Records[id]
		switch {
		case !ok:
			report.Inserted++
		case old != rec:
			report.Updated++
		}
	}

	if mode == Merge && report.Inserted == 0 && report.Updated == 0 && next.Watermark == dst.Watermark && dst.SchemaVersion == domain.SchemaVersion {
		r.log.Info("destination already up to date",
			logger.Int("records", report.TotalRecords),
			logger.Float64("watermark", report.Watermark))
		return report, nil
	}

	if err := r.dest.Save(ctx, next); err != nil {
		return report, fmt.Errorf("save destination state: %w", err)
	}
	report.Saved = true

	r.log.Info("replication complete",
		logger.String("mode", string(mode)),
		logger.Int("source_records", report.SourceRecords),
		logger.Int("inserted", report.Inserted),
		logger.Int("updated", report.Updated),
		logger.Int("total_records", report.TotalRecords),
		logger.Float64("watermark", report.Watermark))
	return report, nil
}
