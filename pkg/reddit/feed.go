package reddit

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"homeautomation-crosspost/pkg/domain"
	"homeautomation-crosspost/pkg/httpclient"
)

// FeedSource lists posts from the public Atom feed of a subreddit. It needs no
// credentials and can only read.
type FeedSource struct {
	parser  *gofeed.Parser
	baseURL string
}

// NewFeedSource creates a feed source. An empty baseURL selects www.reddit.com.
func NewFeedSource(client *httpclient.HTTPClient, baseURL string) *FeedSource {
	if client == nil {
		client = httpclient.NewClient(httpclient.BotClient)
	}
	if baseURL == "" {
		baseURL = siteURL
	}
	parser := gofeed.NewParser()
	parser.Client = client.StandardClient()
	return &FeedSource{parser: parser, baseURL: strings.TrimRight(baseURL, "/")}
}

// ListRecent returns up to limit of the newest posts of forum, newest first.
func (s *FeedSource) ListRecent(ctx context.Context, forum string, limit int) ([]domain.Post, error) {
	if limit <= 0 || limit > MaxListingLimit {
		limit = MaxListingLimit
	}
	feedURL := fmt.Sprintf("%s/r/%s/new/.rss?limit=%s", s.baseURL, url.PathEscape(forum), strconv.Itoa(limit))

	feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed r/%s: %w", forum, err)
	}

	posts := make([]domain.Post, 0, len(feed.Items))
	for _, item := range feed.Items {
		post, ok := entryToPost(item, forum)
		if !ok {
			continue
		}
		posts = append(posts, post)
		if len(posts) == limit {
			break
		}
	}
	return posts, nil
}

// entryToPost maps a feed entry. The entry HTML carries a "[link]" anchor that points
// back to the comments page for self posts and to the article for link posts.
func entryToPost(item *gofeed.Item, forum string) (domain.Post, bool) {
	id := strings.TrimPrefix(item.GUID, "t3_")
	if id == "" || item.PublishedParsed == nil {
		return domain.Post{}, false
	}

	post := domain.Post{
		ID:        id,
		Title:     item.Title,
		CreatedAt: float64(item.PublishedParsed.Unix()),
		Forum:     forum,
		Permalink: item.Link,
		IsSelf:    true,
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(item.Content))
	if err != nil {
		return post, true
	}

	doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if strings.TrimSpace(a.Text()) != "[link]" {
			return true
		}
		href, _ := a.Attr("href")
		if href != "" && !sameCommentsPage(href, item.Link) {
			post.IsSelf = false
			post.ExternalURL = href
		}
		return false
	})

	if post.IsSelf {
		post.BodyText = strings.TrimSpace(doc.Find("div.md").Text())
	}
	return post, true
}

func sameCommentsPage(href, permalink string) bool {
	if permalink != "" && strings.TrimRight(href, "/") == strings.TrimRight(permalink, "/") {
		return true
	}
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	return strings.HasSuffix(u.Hostname(), "reddit.com") && strings.Contains(u.Path, "/comments/")
}
