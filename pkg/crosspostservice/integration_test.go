package crosspostservice

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeautomation-crosspost/pkg/config"
	"homeautomation-crosspost/pkg/ledger"
	"homeautomation-crosspost/pkg/pipeline"
)

// fakeReddit records cross-posts made against it
type fakeReddit struct {
	mu         sync.Mutex
	listing    string
	crossposts []string // crosspost_fullname values
	targets    []string
}

func TestIntegration_RunOnce_PublishesNewestRelevantPost(t *testing.T) {
	articleServer := createArticleServer(t)
	fake, redditServer := createRedditServer(t, articleServer.URL)
	statePath := filepath.Join(t.TempDir(), "database.json")

	svc := createTestService(t, redditServer.URL, statePath)
	ctx := context.Background()

	result, err := svc.RunOnce(ctx)
	require.NoError(t, err)

	assert.Equal(t, pipeline.Done, result.State)
	assert.Equal(t, 3, result.Fetched)
	assert.Equal(t, 2, result.Eligible)
	require.Len(t, result.Published, 1)
	assert.Equal(t, []string{"t3_s1"}, fake.crossposts)
	assert.Equal(t, []string{"o_homeautomation_test"}, fake.targets)

	verifyFinalState(t, ctx, statePath, 300, []string{"s1"})

	// the link post (250) is now below the watermark and is not revisited
	result, err = svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Eligible)
	assert.Len(t, fake.crossposts, 1)

	verifyFinalState(t, ctx, statePath, 300, []string{"s1"})
}

func TestIntegration_RunOnce_LinkPostMatchedOnArticle(t *testing.T) {
	articleServer := createArticleServer(t)
	fake, redditServer := createRedditServer(t, articleServer.URL)
	fake.listing = listingJSON(articleServer.URL, false)
	statePath := filepath.Join(t.TempDir(), "database.json")

	svc := createTestService(t, redditServer.URL, statePath)
	ctx := context.Background()

	result, err := svc.RunOnce(ctx)
	require.NoError(t, err)

	require.Len(t, result.Published, 1)
	assert.Equal(t, "l1", result.Published[0].Post.ID)
	verifyFinalState(t, ctx, statePath, 250, []string{"l1"})
}

func TestIntegration_RunOnce_PushesMetricsAfterCancellation(t *testing.T) {
	articleServer := createArticleServer(t)
	_, redditServer := createRedditServer(t, articleServer.URL)

	var mu sync.Mutex
	var pushes []string
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		pushes = append(pushes, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(gateway.Close)

	svc := createTestService(t, redditServer.URL, filepath.Join(t.TempDir(), "database.json"), func(cfg *config.Config) {
		cfg.Metrics.PushgatewayURL = gateway.URL
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.RunOnce(ctx)
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, pushes, 1)
	assert.Equal(t, "PUT /metrics/job/homeautomation_crosspost", pushes[0])
}

func TestNewService_InvalidConfig(t *testing.T) {
	cfg, err := config.Parse(nil)
	require.NoError(t, err)
	cfg.Ledger.Backend = "etcd"

	_, err = NewService(context.Background(), Config{App: cfg})
	assert.Error(t, err)
}

func TestNewService_MissingCredentials(t *testing.T) {
	cfg, err := config.Parse(nil)
	require.NoError(t, err)

	_, err = NewService(context.Background(), Config{App: cfg})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reddit credentials")
}

func TestNewService_FeedDryRunNeedsNoCredentials(t *testing.T) {
	cfg, err := config.Parse(nil)
	require.NoError(t, err)
	cfg.Reddit.Mode = config.ModeFeed
	cfg.Ledger.Path = filepath.Join(t.TempDir(), "database.json")

	svc, err := NewService(context.Background(), Config{App: cfg, DryRun: true})
	require.NoError(t, err)
	assert.NoError(t, svc.Close(context.Background()))
}

// createArticleServer serves a linked article that mentions a topic only in its body
func createArticleServer(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><head><title>Gadget review</title></head><body>
<article><h1>Gadget review</h1>
<p>This little hub runs entirely on FOSS firmware and talks to every bulb in the house.</p>
<p>Setup took ten minutes and nothing phones home to a vendor cloud.</p>
</article></body></html>`)
	}))
	t.Cleanup(server.Close)
	return server
}

// listingJSON returns a newest-first listing; withSelf adds a newer self post with a matching title
func listingJSON(articleBase string, withSelf bool) string {
	self := ""
	if withSelf {
		self = `{"kind": "t3", "data": {"id": "s1", "title": "My Home Assistant dashboard", "created_utc": 300.0,
			"is_self": true, "selftext": "screenshots inside", "subreddit": "homeautomation",
			"permalink": "/r/homeautomation/comments/s1/x/"}},`
	}
	return `{"kind": "Listing", "data": {"children": [` + self + `
		{"kind": "t3", "data": {"id": "l1", "title": "Cool gadget", "created_utc": 250.0,
			"is_self": false, "url": "` + articleBase + `/review", "subreddit": "homeautomation",
			"permalink": "/r/homeautomation/comments/l1/x/"}},
		{"kind": "t3", "data": {"id": "o1", "title": "cats", "created_utc": 50.0, "is_self": true, "selftext": "meow"}}
	]}}`
}

// createRedditServer serves the token, listing and submit endpoints
func createRedditServer(t *testing.T, articleBase string) (*fakeReddit, *httptest.Server) {
	t.Helper()

	fake := &fakeReddit{listing: listingJSON(articleBase, true)}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token": "tok", "token_type": "bearer", "expires_in": 3600}`)
	})
	mux.HandleFunc("/r/homeautomation/new", func(w http.ResponseWriter, r *http.Request) {
		fake.mu.Lock()
		defer fake.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, fake.listing)
	})
	mux.HandleFunc("/api/submit", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fake.mu.Lock()
		fake.crossposts = append(fake.crossposts, r.PostForm.Get("crosspost_fullname"))
		fake.targets = append(fake.targets, r.PostForm.Get("sr"))
		fake.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"json": {"errors": [], "data": {"url": "https://reddit.test/r/o_homeautomation_test/comments/new/"}}}`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return fake, server
}

// createTestService builds a service against the fake servers with a file ledger
func createTestService(t *testing.T, redditURL, statePath string, opts ...func(*config.Config)) *Service {
	t.Helper()

	cfg, err := config.Parse(nil)
	require.NoError(t, err)
	cfg.Reddit.ClientID = "id"
	cfg.Reddit.ClientSecret = "secret"
	cfg.Reddit.Username = "bot"
	cfg.Reddit.Password = "pw"
	cfg.Reddit.BaseURL = redditURL
	cfg.Reddit.TokenURL = redditURL + "/api/v1/access_token"
	cfg.Reddit.RequestsPerMinute = 6000
	cfg.Fetch.ClientType = "bot"
	cfg.Classify.Workers = 2
	cfg.Ledger.Path = statePath
	for _, opt := range opts {
		opt(cfg)
	}

	svc, err := NewService(context.Background(), Config{App: cfg})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	return svc
}

// verifyFinalState checks the persisted watermark and record IDs
func verifyFinalState(t *testing.T, ctx context.Context, path string, watermark float64, ids []string) {
	t.Helper()

	state, err := ledger.NewFileStore(path).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, watermark, state.Watermark)
	assert.Len(t, state.Records, len(ids))
	for _, id := range ids {
		assert.True(t, state.Has(id), "expected record %s", id)
	}
}
