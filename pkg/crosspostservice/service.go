// Package crosspostservice assembles the crawl pipeline from configuration and
// runs it once or on a schedule.
package crosspostservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"homeautomation-crosspost/pkg/config"
	"homeautomation-crosspost/pkg/content"
	"homeautomation-crosspost/pkg/filter"
	"homeautomation-crosspost/pkg/httpclient"
	"homeautomation-crosspost/pkg/keywords"
	"homeautomation-crosspost/pkg/ledger"
	"homeautomation-crosspost/pkg/logger"
	"homeautomation-crosspost/pkg/metrics"
	"homeautomation-crosspost/pkg/pipeline"
	"homeautomation-crosspost/pkg/reddit"
	"homeautomation-crosspost/pkg/scheduler"
	"homeautomation-crosspost/pkg/worker"
)

const pushTimeout = 10 * time.Second

// Config holds configuration for the service
type Config struct {
	App    *config.Config
	Logger logger.Logger
	// DryRun classifies without publishing or committing. In feed mode it
	// needs no Reddit credentials at all.
	DryRun bool
}

// Service owns the pipeline and the connections it uses
type Service struct {
	cfg      *config.Config
	log      logger.Logger
	pipeline *pipeline.Pipeline
	metrics  *metrics.Metrics
	pusher   *metrics.Pusher
	closeFn  CloseFunc
}

// NewService validates the configuration, connects the ledger backend and logs
// in to Reddit when needed.
func NewService(ctx context.Context, cfg Config) (*Service, error) {
	app := cfg.App
	if app == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if err := app.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}

	matcher, err := keywords.NewMatcher(app.Topics)
	if err != nil {
		return nil, fmt.Errorf("build topic matcher: %w", err)
	}

	m := metrics.New()

	fetcher := content.NewArticleFetcher(httpclient.NewClientWithOptions(
		httpclient.ClientType(app.Fetch.ClientType),
		httpclient.Options{Timeout: app.Fetch.Timeout, UserAgent: app.Reddit.UserAgent},
	))
	fetcher.SetMaxBodyBytes(app.Fetch.MaxBodyBytes)

	resolver := content.NewResolver(fetcher, log)
	resolver.OnFailure(m.ArticleFailed)

	relevance := filter.NewRelevance(matcher, resolver)
	relevance.SetPool(worker.NewPool(app.Classify.Workers))

	source, publisher, err := redditPorts(ctx, app, log, cfg.DryRun)
	if err != nil {
		return nil, err
	}

	store, closeFn, err := OpenStore(ctx, app.Ledger, log)
	if err != nil {
		return nil, fmt.Errorf("open %s ledger: %w", app.Ledger.Backend, err)
	}

	p := pipeline.New(pipeline.Config{
		SourceForum:  app.Source,
		TargetForum:  app.Target,
		Limit:        app.Fetch.Limit,
		PublishQuota: app.Fetch.PublishQuota,
		DryRun:       cfg.DryRun,
	}, source, relevance, publisher, ledger.New(store, log), log)
	p.SetRecorder(m)

	s := &Service{
		cfg:      app,
		log:      log,
		pipeline: p,
		metrics:  m,
		closeFn:  closeFn,
	}
	if app.Metrics.PushgatewayURL != "" {
		s.pusher = metrics.NewPusher(m, app.Metrics.PushgatewayURL, app.Metrics.Job)
	}
	return s, nil
}

// redditPorts builds the listing source and the publisher.
func redditPorts(ctx context.Context, app *config.Config, log logger.Logger, dryRun bool) (pipeline.Source, pipeline.Publisher, error) {
	var feed *reddit.FeedSource
	if app.Reddit.Mode == config.ModeFeed {
		feed = reddit.NewFeedSource(httpclient.NewClientWithOptions(httpclient.BotClient, httpclient.Options{
			Timeout:   app.Reddit.Timeout,
			UserAgent: app.Reddit.UserAgent,
		}), app.Reddit.FeedURL)
		if dryRun {
			return feed, nil, nil
		}
	}

	if err := app.Reddit.ValidateCredentials(); err != nil {
		return nil, nil, fmt.Errorf("reddit credentials: %w", err)
	}
	client, err := reddit.NewClient(ctx, reddit.Config{
		ClientID:          app.Reddit.ClientID,
		ClientSecret:      app.Reddit.ClientSecret,
		Username:          app.Reddit.Username,
		Password:          app.Reddit.Password,
		UserAgent:         app.Reddit.UserAgent,
		BaseURL:           app.Reddit.BaseURL,
		TokenURL:          app.Reddit.TokenURL,
		RequestsPerMinute: app.Reddit.RequestsPerMinute,
		Timeout:           app.Reddit.Timeout,
	}, log)
	if err != nil {
		return nil, nil, err
	}

	if feed != nil {
		return feed, client, nil
	}
	return client, client, nil
}

// RunOnce runs one pass and pushes metrics when a Pushgateway is configured.
// A failed push is logged and does not fail the run.
func (s *Service) RunOnce(ctx context.Context) (pipeline.Result, error) {
	result, err := s.pipeline.Run(ctx)

	if s.pusher != nil {
		s.push(ctx)
	}
	return result, err
}

// push sends the run metrics even when ctx was cancelled.
func (s *Service) push(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
	defer cancel()

	if err := s.pusher.Push(ctx); err != nil {
		s.log.Warn("metrics push failed", logger.Error(err))
	}
}

// Watch runs passes on the configured cron schedule until ctx is done. A failed
// pass is logged and the next slot runs as usual.
func (s *Service) Watch(ctx context.Context) error {
	sched := scheduler.New(s.log)

	job := func(ctx context.Context) {
		result, err := s.RunOnce(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error("scheduled run failed", logger.String("run_id", result.RunID), logger.Error(err))
		}
	}

	if _, err := sched.Add(s.cfg.Schedule.Cron, job); err != nil {
		return err
	}

	if s.cfg.Schedule.RunOnStart {
		job(ctx)
	}

	s.log.Info("watching",
		logger.String("schedule", s.cfg.Schedule.Cron),
		logger.String("source", s.cfg.Source),
		logger.String("target", s.cfg.Target))
	sched.Run(ctx)
	return nil
}

// Metrics exposes the run metrics.
func (s *Service) Metrics() *metrics.Metrics {
	return s.metrics
}

// Close releases the ledger connection.
func (s *Service) Close(ctx context.Context) error {
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn(ctx)
}
