package domain

// Post is a forum post as seen by the crawl pipeline.
// Values are copied, never shared, so a Post is read-only for everything downstream of the
// source adapter that built it.
type Post struct {
	ID        string  // Stable source identifier (e.g. "1abcde")
	Title     string  // Post title
	CreatedAt float64 // Source timestamp in unix seconds

	// IsSelf reports whether the post carries its own text (BodyText) or points
	// to an external article (ExternalURL).
	IsSelf      bool
	BodyText    string
	ExternalURL string

	Forum     string // Forum the post was listed from (informational)
	Permalink string // Comments page of the post (informational)
}

// PublishResult describes a successful cross-post.
type PublishResult struct {
	Forum string // Forum the post was published into
	URL   string // URL of the new post
}
