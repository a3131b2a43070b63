// Package pipeline runs one incremental crawl pass: list the newest posts, keep
// the relevant new ones, cross-post up to a quota and commit them to the ledger.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"homeautomation-crosspost/pkg/domain"
	"homeautomation-crosspost/pkg/logger"
)

// Source lists the newest posts of a forum, newest first.
type Source interface {
	ListRecent(ctx context.Context, forum string, limit int) ([]domain.Post, error)
}

// Publisher cross-posts a post into another forum.
type Publisher interface {
	Crosspost(ctx context.Context, post domain.Post, targetForum string) (domain.PublishResult, error)
}

// Classifier selects the eligible posts, keeping source order.
type Classifier interface {
	Eligible(ctx context.Context, posts []domain.Post, watermark float64) []domain.Post
}

// Ledger loads the crawl state and commits new records to it. Load fails only
// when the state could not be read at all; missing or corrupt state is fresh.
type Ledger interface {
	Load(ctx context.Context) (domain.CrawlState, error)
	Commit(ctx context.Context, state domain.CrawlState, records []domain.LedgerRecord) (domain.CrawlState, error)
}

// Recorder observes finished runs.
type Recorder interface {
	ObserveRun(result Result, err error)
}

// DefaultPublishQuota caps cross-posts per run.
const DefaultPublishQuota = 1

// DefaultLimit is the number of newest posts inspected per run.
const DefaultLimit = 20

// CommitTimeout bounds the commit that follows a successful publish. The commit
// is not cancelled with the run's context.
const CommitTimeout = 30 * time.Second

// Config names the forums and bounds one run.
type Config struct {
	SourceForum  string
	TargetForum  string
	Limit        int
	PublishQuota int
	// DryRun stops after filtering: nothing is published or committed.
	DryRun bool
}

// Publication pairs a published post with where it went.
type Publication struct {
	Post   domain.Post
	Result domain.PublishResult
}

// Result reports one run.
type Result struct {
	RunID     string
	State     State
	Fetched   int
	Eligible  int
	Selected  []domain.Post
	Published []Publication
	Watermark float64
	Duration  time.Duration
}

// Pipeline runs crawl passes. Runs on one Pipeline never overlap.
type Pipeline struct {
	cfg        Config
	source     Source
	classifier Classifier
	publisher  Publisher
	ledger     Ledger
	log        logger.Logger
	recorder   Recorder

	mu    sync.Mutex
	state State
}

// New creates a pipeline. Zero Limit and PublishQuota select the defaults.
func New(cfg Config, source Source, classifier Classifier, publisher Publisher, ledger Ledger, log logger.Logger) *Pipeline {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.PublishQuota <= 0 {
		cfg.PublishQuota = DefaultPublishQuota
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Pipeline{
		cfg:        cfg,
		source:     source,
		classifier: classifier,
		publisher:  publisher,
		ledger:     ledger,
		log:        log,
		state:      Idle,
	}
}

// SetRecorder registers an observer of finished runs.
func (p *Pipeline) SetRecorder(r Recorder) {
	p.recorder = r
}

// State returns the state of the current or last run.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Run executes one pass. The persisted state is written at most once, at the end.
func (p *Pipeline) Run(ctx context.Context) (result Result, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	run := &runner{
		Pipeline: p,
		result:   Result{RunID: uuid.NewString(), State: Idle},
		started:  time.Now(),
	}
	run.log = p.log.With(logger.String("run_id", run.result.RunID))
	p.state = Idle

	defer func() {
		run.result.Duration = time.Since(run.started)
		result = run.result
		if p.recorder != nil {
			p.recorder.ObserveRun(result, err)
		}
	}()

	err = run.execute(ctx)
	return run.result, err
}

// runner holds the per-run bookkeeping.
type runner struct {
	*Pipeline
	log     logger.Logger
	result  Result
	started time.Time
}

func (r *runner) execute(ctx context.Context) error {
	r.enter(Fetching)
	state, err := r.ledger.Load(ctx)
	if err != nil {
		return r.fail(fmt.Errorf("load crawl state: %w", err))
	}
	r.result.Watermark = state.Watermark

	posts, err := r.source.ListRecent(ctx, r.cfg.SourceForum, r.cfg.Limit)
	if err != nil {
		return r.fail(fmt.Errorf("list r/%s: %w", r.cfg.SourceForum, err))
	}
	r.result.Fetched = len(posts)

	r.enter(Filtering)
	eligible := r.classifier.Eligible(ctx, posts, state.Watermark)
	if err := ctx.Err(); err != nil {
		return r.fail(fmt.Errorf("filter posts: %w", err))
	}
	r.result.Eligible = len(eligible)

	if len(eligible) == 0 {
		r.log.Info("no new relevant posts",
			logger.Int("fetched", len(posts)),
			logger.Float64("watermark", state.Watermark))
		r.enter(Done)
		return nil
	}

	quota := min(len(eligible), r.cfg.PublishQuota)
	r.result.Selected = append([]domain.Post(nil), eligible[:quota]...)

	if r.cfg.DryRun {
		for _, post := range r.result.Selected {
			r.log.Info("dry run, would cross-post",
				logger.String("post_id", post.ID),
				logger.String("title", post.Title),
				logger.String("target", r.cfg.TargetForum))
		}
		r.enter(Done)
		return nil
	}

	r.enter(Publishing)
	records := make([]domain.LedgerRecord, 0, quota)
	for _, post := range r.result.Selected {
		published, err := r.publisher.Crosspost(ctx, post, r.cfg.TargetForum)
		if err != nil {
			publishErr := fmt.Errorf("crosspost %s: %w", post.ID, err)
			if len(records) > 0 {
				// keep what already went out so it is not published twice
				if commitErr := r.commit(ctx, state, records); commitErr != nil {
					publishErr = errors.Join(publishErr, commitErr)
				}
			}
			return r.fail(publishErr)
		}

		r.log.Info("cross-posted",
			logger.String("post_id", post.ID),
			logger.String("title", post.Title),
			logger.String("target", published.Forum),
			logger.String("url", published.URL))
		r.result.Published = append(r.result.Published, Publication{Post: post, Result: published})
		records = append(records, domain.RecordFor(post))
	}

	if err := r.commit(ctx, state, records); err != nil {
		return r.fail(err)
	}

	r.enter(Done)
	return nil
}

func (r *runner) commit(ctx context.Context, state domain.CrawlState, records []domain.LedgerRecord) error {
	r.enter(Committing)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), CommitTimeout)
	defer cancel()

	next, err := r.ledger.Commit(ctx, state, records)
	if err != nil {
		return fmt.Errorf("commit crawl state: %w", err)
	}
	r.result.Watermark = next.Watermark
	return nil
}

func (r *runner) enter(next State) {
	r.log.Debug("pipeline state",
		logger.String("from", r.result.State.String()),
		logger.String("to", next.String()))
	r.result.State = next
	r.state = next
}

func (r *runner) fail(err error) error {
	r.log.Error("run failed", logger.String("during", r.result.State.String()), logger.Error(err))
	r.enter(Failed)
	return err
}
