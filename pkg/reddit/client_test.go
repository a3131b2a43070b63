package reddit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReddit serves the token, listing and submit endpoints.
type fakeReddit struct {
	mu          sync.Mutex
	tokenCalls  int
	submitForms []map[string]string
	listing     string
	submitBody  string
	userAgents  []string
}

func (f *fakeReddit) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.tokenCalls++
		f.mu.Unlock()

		require.NoError(t, r.ParseForm())
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client-id" || pass != "client-secret" || r.PostForm.Get("password") != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error": "invalid_grant"}`))
			return
		}
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token": "tok", "token_type": "bearer", "expires_in": 3600}`))
	})
	mux.HandleFunc("/r/homeautomation/new", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.userAgents = append(f.userAgents, r.UserAgent())
		f.mu.Unlock()

		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(f.listing))
	})
	mux.HandleFunc("/api/submit", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form := map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		f.mu.Lock()
		f.submitForms = append(f.submitForms, form)
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(f.submitBody))
	})
	return mux
}

func newTestClient(t *testing.T, fake *fakeReddit) *Client {
	t.Helper()
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(), Config{
		ClientID:          "client-id",
		ClientSecret:      "client-secret",
		Username:          "bot",
		Password:          "hunter2",
		UserAgent:         "test-agent/1.0",
		BaseURL:           server.URL,
		TokenURL:          server.URL + "/api/v1/access_token",
		RequestsPerMinute: 6000,
	}, nil)
	require.NoError(t, err)
	return client
}

const sampleListing = `{
  "kind": "Listing",
  "data": {"children": [
    {"kind": "t3", "data": {"id": "b2", "title": "My Home Assistant setup", "created_utc": 200.0,
      "is_self": false, "selftext": "", "url": "http://example.com/setup", "subreddit": "homeautomation",
      "permalink": "/r/homeautomation/comments/b2/my_setup/"}},
    {"kind": "t3", "data": {"id": "a1", "title": "Question", "created_utc": 100.0,
      "is_self": true, "selftext": "Is it open source?", "url": "https://www.reddit.com/r/homeautomation/comments/a1/q/",
      "subreddit": "homeautomation", "permalink": "/r/homeautomation/comments/a1/q/"}},
    {"kind": "t3", "data": {"id": "c3", "title": "third", "created_utc": 50.0, "is_self": true}}
  ]}
}`

func TestClient_ListRecent(t *testing.T) {
	fake := &fakeReddit{listing: sampleListing}
	client := newTestClient(t, fake)

	posts, err := client.ListRecent(context.Background(), "homeautomation", 2)
	require.NoError(t, err)
	require.Len(t, posts, 2)

	assert.Equal(t, "b2", posts[0].ID)
	assert.False(t, posts[0].IsSelf)
	assert.Equal(t, "http://example.com/setup", posts[0].ExternalURL)
	assert.Empty(t, posts[0].BodyText)
	assert.Equal(t, float64(200), posts[0].CreatedAt)
	assert.Equal(t, "https://www.reddit.com/r/homeautomation/comments/b2/my_setup/", posts[0].Permalink)

	assert.True(t, posts[1].IsSelf)
	assert.Equal(t, "Is it open source?", posts[1].BodyText)
	assert.Empty(t, posts[1].ExternalURL)

	assert.Equal(t, 1, fake.tokenCalls)
	assert.Equal(t, []string{"test-agent/1.0"}, fake.userAgents)
}

func TestClient_Crosspost(t *testing.T) {
	fake := &fakeReddit{submitBody: `{"json": {"errors": [], "data": {"id": "z9", "name": "t3_z9", "url": "https://www.reddit.com/r/o_homeautomation_test/comments/z9/x/"}}}`}
	client := newTestClient(t, fake)

	result, err := client.Crosspost(context.Background(), postFixture(), "o_homeautomation_test")
	require.NoError(t, err)

	assert.Equal(t, "o_homeautomation_test", result.Forum)
	assert.Equal(t, "https://www.reddit.com/r/o_homeautomation_test/comments/z9/x/", result.URL)

	require.Len(t, fake.submitForms, 1)
	form := fake.submitForms[0]
	assert.Equal(t, "crosspost", form["kind"])
	assert.Equal(t, "o_homeautomation_test", form["sr"])
	assert.Equal(t, "t3_b2", form["crosspost_fullname"])
	assert.Equal(t, "My Home Assistant setup", form["title"])
	assert.Equal(t, "true", form["sendreplies"])
}

func TestClient_CrosspostAPIError(t *testing.T) {
	fake := &fakeReddit{submitBody: `{"json": {"errors": [["SUBREDDIT_NOTALLOWED", "you aren't allowed to post there.", "sr"]]}}`}
	client := newTestClient(t, fake)

	_, err := client.Crosspost(context.Background(), postFixture(), "o_homeautomation_test")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAPI)
	assert.Contains(t, err.Error(), "SUBREDDIT_NOTALLOWED")
}

func TestClient_HTTPErrorIsAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "token_type": "bearer", "expires_in": 3600})
	})
	mux.HandleFunc("/r/homeautomation/new", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, err := NewClient(context.Background(), Config{
		ClientID: "id", Username: "bot", BaseURL: server.URL, TokenURL: server.URL + "/api/v1/access_token",
		RequestsPerMinute: 6000,
	}, nil)
	require.NoError(t, err)

	_, err = client.ListRecent(context.Background(), "homeautomation", 20)
	assert.ErrorIs(t, err, ErrAPI)
	assert.Contains(t, err.Error(), "429")
}

func TestNewClient_LoginFailure(t *testing.T) {
	fake := &fakeReddit{}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	_, err := NewClient(context.Background(), Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Username:     "bot",
		Password:     "wrong",
		BaseURL:      server.URL,
		TokenURL:     server.URL + "/api/v1/access_token",
	}, nil)
	assert.Error(t, err)
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient(context.Background(), Config{}, nil)
	assert.Error(t, err)
}

func TestFullname(t *testing.T) {
	assert.Equal(t, "t3_abc", fullname("abc"))
	assert.Equal(t, "t3_abc", fullname("t3_abc"))
}
