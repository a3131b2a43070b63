// Package filter decides which freshly listed posts are eligible for cross-posting.
package filter

import (
	"context"

	"homeautomation-crosspost/pkg/domain"
	"homeautomation-crosspost/pkg/worker"
)

// Matcher reports whether text mentions a topic
type Matcher interface {
	Matches(text string) bool
}

// ContentResolver supplies the body text of a post; it never fails
type ContentResolver interface {
	Resolve(ctx context.Context, post domain.Post) string
}

// Verdict explains a relevance decision
type Verdict int

const (
	// NotNew means the post is at or below the watermark
	NotNew Verdict = iota
	// TitleMatch means the title mentions a topic
	TitleMatch
	// BodyMatch means the self text or linked article mentions a topic
	BodyMatch
	// NoMatch means neither title nor body mention a topic
	NoMatch
)

func (v Verdict) String() string {
	switch v {
	case NotNew:
		return "not_new"
	case TitleMatch:
		return "title_match"
	case BodyMatch:
		return "body_match"
	case NoMatch:
		return "no_match"
	default:
		return "unknown"
	}
}

// Eligible reports whether the verdict allows cross-posting
func (v Verdict) Eligible() bool {
	return v == TitleMatch || v == BodyMatch
}

// Relevance combines the novelty gate with topic matching on title and body
type Relevance struct {
	matcher  Matcher
	resolver ContentResolver
	pool     *worker.Pool
}

// NewRelevance creates a relevance filter that classifies sequentially
func NewRelevance(matcher Matcher, resolver ContentResolver) *Relevance {
	return &Relevance{
		matcher:  matcher,
		resolver: resolver,
		pool:     worker.NewPool(1),
	}
}

// SetPool sets the worker pool used by Eligible
func (r *Relevance) SetPool(pool *worker.Pool) {
	if pool == nil {
		pool = worker.NewPool(1)
	}
	r.pool = pool
}

// Classify evaluates a post against the watermark, short-circuiting in order:
// novelty gate, title, then resolved body. The body is only resolved (and a link
// post only fetched) when the title does not already qualify.
func (r *Relevance) Classify(ctx context.Context, post domain.Post, watermark float64) Verdict {
	if post.CreatedAt <= watermark {
		return NotNew
	}

	if r.matcher.Matches(post.Title) {
		return TitleMatch
	}

	if r.resolver != nil && r.matcher.Matches(r.resolver.Resolve(ctx, post)) {
		return BodyMatch
	}

	return NoMatch
}

// IsEligible reports whether post may be cross-posted given the watermark
func (r *Relevance) IsEligible(ctx context.Context, post domain.Post, watermark float64) bool {
	return r.Classify(ctx, post, watermark).Eligible()
}

// Eligible returns the eligible posts in source order
func (r *Relevance) Eligible(ctx context.Context, posts []domain.Post, watermark float64) []domain.Post {
	return r.pool.Filter(ctx, posts, func(ctx context.Context, post domain.Post) bool {
		return r.IsEligible(ctx, post, watermark)
	})
}
