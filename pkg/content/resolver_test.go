package content

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"homeautomation-crosspost/pkg/domain"
	"homeautomation-crosspost/pkg/logger"
)

// mockFetcher is a mock implementation of Fetcher for testing
type mockFetcher struct {
	text      string
	err       error
	callCount int
	urls      []string
}

func (m *mockFetcher) FetchAndExtract(ctx context.Context, url string) (string, error) {
	m.callCount++
	m.urls = append(m.urls, url)
	return m.text, m.err
}

func TestResolver_SelfPostNeverFetches(t *testing.T) {
	fetcher := &mockFetcher{text: "should not be used"}
	r := NewResolver(fetcher, logger.NewNop())

	got := r.Resolve(context.Background(), domain.Post{ID: "b", IsSelf: true, BodyText: "my yaml config"})

	assert.Equal(t, "my yaml config", got)
	assert.Equal(t, 0, fetcher.callCount)
}

func TestResolver_EmptySelfText(t *testing.T) {
	fetcher := &mockFetcher{}
	r := NewResolver(fetcher, nil)

	assert.Equal(t, "", r.Resolve(context.Background(), domain.Post{IsSelf: true}))
	assert.Equal(t, 0, fetcher.callCount)
}

func TestResolver_LinkPostFetchesOnce(t *testing.T) {
	fetcher := &mockFetcher{text: "article body"}
	r := NewResolver(fetcher, logger.NewNop())

	got := r.Resolve(context.Background(), domain.Post{ID: "c", ExternalURL: "http://x"})

	assert.Equal(t, "article body", got)
	assert.Equal(t, 1, fetcher.callCount)
	assert.Equal(t, []string{"http://x"}, fetcher.urls)
}

func TestResolver_LinkPostWithoutURL(t *testing.T) {
	fetcher := &mockFetcher{text: "article body"}
	r := NewResolver(fetcher, logger.NewNop())

	assert.Equal(t, "", r.Resolve(context.Background(), domain.Post{ID: "c"}))
	assert.Equal(t, 0, fetcher.callCount)
}

func TestResolver_FailureFallsBackToEmpty(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	fetcher := &mockFetcher{text: "partial", err: errors.New("dial tcp: connection refused")}
	r := NewResolver(fetcher, logger.FromZap(zap.New(core)))

	var hooked []string
	r.OnFailure(func(post domain.Post, err error) {
		hooked = append(hooked, post.ID)
	})

	got := r.Resolve(context.Background(), domain.Post{ID: "c", ExternalURL: "http://x", Title: "cool gadget"})

	assert.Equal(t, "", got)
	assert.Equal(t, []string{"c"}, hooked)

	entries := logs.FilterMessage("article extraction failed, classifying on title only").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
		assert.Equal(t, "c", entries[0].ContextMap()["post_id"])
	}
}
