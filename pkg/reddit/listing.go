package reddit

import (
	"fmt"
	"strings"

	"homeautomation-crosspost/pkg/domain"
)

const siteURL = "https://www.reddit.com"

type listingResponse struct {
	Data struct {
		Children []struct {
			Kind string    `json:"kind"`
			Data submission `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type submission struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	CreatedUTC float64 `json:"created_utc"`
	IsSelf     bool    `json:"is_self"`
	Selftext   string  `json:"selftext"`
	URL        string  `json:"url"`
	Subreddit  string  `json:"subreddit"`
	Permalink  string  `json:"permalink"`
}

// toPost maps an API submission into the pipeline's post type.
func (s submission) toPost() domain.Post {
	post := domain.Post{
		ID:        s.ID,
		Title:     s.Title,
		CreatedAt: s.CreatedUTC,
		IsSelf:    s.IsSelf,
		Forum:     s.Subreddit,
	}
	if s.Permalink != "" {
		post.Permalink = siteURL + s.Permalink
	}
	if s.IsSelf {
		post.BodyText = s.Selftext
	} else {
		post.ExternalURL = s.URL
	}
	return post
}

func (l listingResponse) posts() []domain.Post {
	posts := make([]domain.Post, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		if child.Kind != "t3" || child.Data.ID == "" {
			continue
		}
		posts = append(posts, child.Data.toPost())
	}
	return posts
}

type submitResponse struct {
	JSON struct {
		Errors [][]any `json:"errors"`
		Data   struct {
			ID   string `json:"id"`
			Name string `json:"name"`
			URL  string `json:"url"`
		} `json:"data"`
	} `json:"json"`
}

func (r submitResponse) err() error {
	if len(r.JSON.Errors) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(r.JSON.Errors))
	for _, e := range r.JSON.Errors {
		parts := make([]string, 0, len(e))
		for _, p := range e {
			if s := fmt.Sprint(p); s != "" && p != nil {
				parts = append(parts, s)
			}
		}
		msgs = append(msgs, strings.Join(parts, ": "))
	}
	return fmt.Errorf("%w: %s", ErrAPI, strings.Join(msgs, "; "))
}
