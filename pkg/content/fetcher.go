package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"homeautomation-crosspost/pkg/httpclient"
)

// DefaultMaxBodyBytes caps how much of a remote article is read.
const DefaultMaxBodyBytes = 5 << 20

var (
	// ErrUnsupportedContent is returned for responses that carry no extractable text
	// (images, video, archives).
	ErrUnsupportedContent = errors.New("unsupported content type")
	// ErrInvalidURL is returned for empty or non-HTTP article URLs.
	ErrInvalidURL = errors.New("invalid article URL")
)

// Fetcher fetches a remote article and returns its readable text.
type Fetcher interface {
	FetchAndExtract(ctx context.Context, articleURL string) (string, error)
}

// ArticleFetcher implements Fetcher over HTTP. HTML goes through the Extractor,
// PDFs through the PDF text reader, plain text is returned as is.
type ArticleFetcher struct {
	client       *httpclient.HTTPClient
	extractor    Extractor
	maxBodyBytes int64
}

// NewArticleFetcher creates a fetcher using the given HTTP client
func NewArticleFetcher(client *httpclient.HTTPClient) *ArticleFetcher {
	if client == nil {
		client = httpclient.NewClient(httpclient.BrowserClient)
	}
	return &ArticleFetcher{
		client:       client,
		extractor:    NewDefaultExtractor(),
		maxBodyBytes: DefaultMaxBodyBytes,
	}
}

// SetExtractor sets a custom HTML extractor
func (f *ArticleFetcher) SetExtractor(extractor Extractor) {
	f.extractor = extractor
}

// SetMaxBodyBytes sets the maximum number of body bytes read per article.
// Values <= 0 restore the default.
func (f *ArticleFetcher) SetMaxBodyBytes(n int64) {
	if n <= 0 {
		n = DefaultMaxBodyBytes
	}
	f.maxBodyBytes = n
}

// FetchAndExtract performs a single GET of articleURL and extracts its text.
func (f *ArticleFetcher) FetchAndExtract(ctx context.Context, articleURL string) (string, error) {
	pageURL, err := url.Parse(articleURL)
	if err != nil || (pageURL.Scheme != "http" && pageURL.Scheme != "https") || pageURL.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, articleURL)
	}

	body, contentType, err := f.fetch(ctx, articleURL)
	if err != nil {
		return "", err
	}

	switch mediaType(contentType, body) {
	case "application/pdf":
		text, err := ExtractTextFromPDFReader(bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("failed to extract PDF text: %w", err)
		}
		return strings.TrimSpace(text), nil

	case "text/html", "application/xhtml+xml":
		text, err := f.extractor.ExtractText(string(body), pageURL)
		if err != nil {
			return "", fmt.Errorf("failed to extract text: %w", err)
		}
		return text, nil

	case "text/plain":
		return strings.TrimSpace(string(body)), nil

	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedContent, contentType)
	}
}

// fetch fetches the raw body and content type of a URL
func (f *ArticleFetcher) fetch(ctx context.Context, articleURL string) ([]byte, string, error) {
	resp, err := f.client.Get(ctx, articleURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %w", err)
	}

	// Check if we got an error page instead of actual content
	if len(bytes.TrimSpace(body)) == 0 || string(bytes.TrimSpace(body)) == "Not Acceptable" {
		return nil, "", fmt.Errorf("server returned error or empty response (status: %d)", resp.StatusCode)
	}

	return body, resp.Header.Get("Content-Type"), nil
}

// mediaType returns the bare media type of a response, sniffing the body
// when the server did not declare one
func mediaType(contentType string, body []byte) string {
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	}
	return mt
}
