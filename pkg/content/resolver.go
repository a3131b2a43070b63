package content

import (
	"context"

	"homeautomation-crosspost/pkg/domain"
	"homeautomation-crosspost/pkg/logger"
)

// Resolver supplies the text of a post that is classified after its title:
// the self text, or the extracted body of the linked article.
type Resolver struct {
	fetcher   Fetcher
	log       logger.Logger
	onFailure func(post domain.Post, err error)
}

// NewResolver creates a resolver that fetches link posts through fetcher.
func NewResolver(fetcher Fetcher, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.NewNop()
	}
	return &Resolver{fetcher: fetcher, log: log}
}

// OnFailure registers a hook called for every failed article fetch.
func (r *Resolver) OnFailure(fn func(post domain.Post, err error)) {
	r.onFailure = fn
}

// Resolve never fails: a failed article fetch is logged as a warning and
// resolves to the empty string. Self posts never trigger a fetch.
func (r *Resolver) Resolve(ctx context.Context, post domain.Post) string {
	if post.IsSelf {
		return post.BodyText
	}
	if post.ExternalURL == "" || r.fetcher == nil {
		return ""
	}

	text, err := r.fetcher.FetchAndExtract(ctx, post.ExternalURL)
	if err != nil {
		r.log.Warn("article extraction failed, classifying on title only",
			logger.String("post_id", post.ID),
			logger.String("url", post.ExternalURL),
			logger.Error(err))
		if r.onFailure != nil {
			r.onFailure(post, err)
		}
		return ""
	}

	return text
}
