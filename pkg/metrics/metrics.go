// Package metrics records crawl run metrics with Prometheus and optionally
// pushes them to a Pushgateway, since runs are too short-lived to be scraped.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"homeautomation-crosspost/pkg/domain"
	"homeautomation-crosspost/pkg/pipeline"
)

const namespace = "crosspost"

// Metrics holds the collectors of the bot on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	runs            *prometheus.CounterVec
	runDuration     prometheus.Histogram
	postsFetched    prometheus.Counter
	postsEligible   prometheus.Counter
	crossposts      prometheus.Counter
	articleFailures prometheus.Counter
	watermark       prometheus.Gauge
	lastRun         prometheus.Gauge
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Crawl runs by terminal state.",
		}, []string{"state"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of crawl runs.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		postsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_fetched_total",
			Help:      "Posts listed from the source forum.",
		}),
		postsEligible: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_eligible_total",
			Help:      "Posts that passed the novelty gate and topic match.",
		}),
		crossposts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crossposts_total",
			Help:      "Successful cross-posts.",
		}),
		articleFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "article_fetch_failures_total",
			Help:      "Linked articles that could not be fetched or extracted.",
		}),
		watermark: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watermark_seconds",
			Help:      "Creation time of the newest cross-posted post.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Time the last run finished.",
		}),
	}

	m.registry.MustRegister(
		m.runs, m.runDuration, m.postsFetched, m.postsEligible,
		m.crossposts, m.articleFailures, m.watermark, m.lastRun,
	)
	return m
}

// Registry exposes the registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(result pipeline.Result, err error) {
	m.runs.WithLabelValues(result.State.String()).Inc()
	m.runDuration.Observe(result.Duration.Seconds())
	m.postsFetched.Add(float64(result.Fetched))
	m.postsEligible.Add(float64(result.Eligible))
	m.crossposts.Add(float64(len(result.Published)))
	m.watermark.Set(result.Watermark)
	m.lastRun.SetToCurrentTime()
}

// ArticleFailed counts a failed article fetch. It matches the resolver failure hook.
func (m *Metrics) ArticleFailed(domain.Post, error) {
	m.articleFailures.Inc()
}

// Pusher sends the registry to a Pushgateway.
type Pusher struct {
	pusher *push.Pusher
}

// NewPusher creates a pusher for job at url.
func NewPusher(m *Metrics, url, job string) *Pusher {
	return &Pusher{pusher: push.New(url, job).Gatherer(m.registry)}
}

// Push replaces the job's metrics on the gateway.
func (p *Pusher) Push(ctx context.Context) error {
	if err := p.pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
