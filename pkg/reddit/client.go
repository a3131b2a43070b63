// Package reddit adapts the Reddit API and public feeds to the crawl pipeline.
package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"homeautomation-crosspost/pkg/domain"
	"homeautomation-crosspost/pkg/httpclient"
	"homeautomation-crosspost/pkg/logger"
)

const (
	// DefaultBaseURL serves authenticated API requests.
	DefaultBaseURL = "https://oauth.reddit.com"
	// DefaultTokenURL issues OAuth tokens.
	DefaultTokenURL = "https://www.reddit.com/api/v1/access_token"
	// DefaultRequestsPerMinute stays within the free API quota.
	DefaultRequestsPerMinute = 60
	// MaxListingLimit is the largest page the listing endpoint returns.
	MaxListingLimit = 100

	maxResponseBytes = 4 << 20
)

// ErrAPI marks errors reported by Reddit itself (as opposed to transport errors).
var ErrAPI = errors.New("reddit api error")

// Config holds the credentials and endpoints of a script application.
type Config struct {
	ClientID          string
	ClientSecret      string
	Username          string
	Password          string
	UserAgent         string
	BaseURL           string
	TokenURL          string
	RequestsPerMinute int
	Timeout           time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.TokenURL == "" {
		c.TokenURL = DefaultTokenURL
	}
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = DefaultRequestsPerMinute
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return c
}

// Client lists posts and submits cross-posts on behalf of one account.
type Client struct {
	http    *http.Client
	baseURL string
	limiter *rate.Limiter
	log     logger.Logger
}

// NewClient logs in with the password grant and returns an authenticated client.
// A failed login is returned as an error.
func NewClient(ctx context.Context, cfg Config, log logger.Logger) (*Client, error) {
	cfg = cfg.withDefaults()
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.ClientID == "" || cfg.Username == "" {
		return nil, fmt.Errorf("reddit client id and username are required")
	}

	base := httpclient.NewClientWithOptions(httpclient.BotClient, httpclient.Options{
		Timeout:   cfg.Timeout,
		UserAgent: cfg.UserAgent,
	}).StandardClient()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)

	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	token, err := conf.PasswordCredentialsToken(ctx, cfg.Username, cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("reddit login: %w", err)
	}

	// Script tokens carry no refresh token; log in again when one expires.
	source := oauth2.ReuseTokenSource(token, &passwordTokenSource{
		ctx:      ctx,
		conf:     conf,
		username: cfg.Username,
		password: cfg.Password,
	})

	every := time.Minute / time.Duration(cfg.RequestsPerMinute)
	log.Info("reddit login succeeded", logger.String("username", cfg.Username))

	return &Client{
		http:    oauth2.NewClient(ctx, source),
		baseURL: cfg.BaseURL,
		limiter: rate.NewLimiter(rate.Every(every), 5),
		log:     log,
	}, nil
}

type passwordTokenSource struct {
	ctx      context.Context
	conf     *oauth2.Config
	username string
	password string
}

func (s *passwordTokenSource) Token() (*oauth2.Token, error) {
	return s.conf.PasswordCredentialsToken(s.ctx, s.username, s.password)
}

// ListRecent returns up to limit of the newest posts of forum, newest first.
func (c *Client) ListRecent(ctx context.Context, forum string, limit int) ([]domain.Post, error) {
	if limit <= 0 || limit > MaxListingLimit {
		limit = MaxListingLimit
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("raw_json", "1")
	endpoint := fmt.Sprintf("%s/r/%s/new?%s", c.baseURL, url.PathEscape(forum), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create listing request: %w", err)
	}

	var listing listingResponse
	if err := c.do(req, &listing); err != nil {
		return nil, fmt.Errorf("list r/%s: %w", forum, err)
	}

	posts := listing.posts()
	if len(posts) > limit {
		posts = posts[:limit]
	}
	c.log.Debug("listed posts", logger.String("forum", forum), logger.Int("count", len(posts)))
	return posts, nil
}

// Crosspost submits post into targetForum, keeping its title and enabling reply notifications.
func (c *Client) Crosspost(ctx context.Context, post domain.Post, targetForum string) (domain.PublishResult, error) {
	form := url.Values{}
	form.Set("api_type", "json")
	form.Set("kind", "crosspost")
	form.Set("sr", targetForum)
	form.Set("title", post.Title)
	form.Set("crosspost_fullname", fullname(post.ID))
	form.Set("sendreplies", "true")
	form.Set("resubmit", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/submit", strings.NewReader(form.Encode()))
	if err != nil {
		return domain.PublishResult{}, fmt.Errorf("create submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp submitResponse
	if err := c.do(req, &resp); err != nil {
		return domain.PublishResult{}, fmt.Errorf("crosspost %s to r/%s: %w", post.ID, targetForum, err)
	}
	if err := resp.err(); err != nil {
		return domain.PublishResult{}, fmt.Errorf("crosspost %s to r/%s: %w", post.ID, targetForum, err)
	}

	return domain.PublishResult{Forum: targetForum, URL: resp.JSON.Data.URL}, nil
}

func (c *Client) do(req *http.Request, out any) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d: %s", ErrAPI, resp.StatusCode, snippet(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func fullname(id string) string {
	if strings.HasPrefix(id, "t3_") {
		return id
	}
	return "t3_" + id
}

func snippet(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
