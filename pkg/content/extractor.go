package content

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// ErrNoText is returned when neither readability nor the fallback found any text.
var ErrNoText = errors.New("no readable text found in HTML")

// Extractor defines an interface for extracting the main text from HTML content
type Extractor interface {
	ExtractText(htmlContent string, pageURL *url.URL) (string, error)
}

// DefaultExtractor implements the Extractor interface using the standard extraction functions
type DefaultExtractor struct{}

// NewDefaultExtractor creates a new default extractor
func NewDefaultExtractor() *DefaultExtractor {
	return &DefaultExtractor{}
}

// ExtractText extracts the article text using the default extraction logic
func (e *DefaultExtractor) ExtractText(htmlContent string, pageURL *url.URL) (string, error) {
	return ExtractText(htmlContent, pageURL)
}

// ExtractText extracts the main article text from HTML content with fallback mechanisms
func ExtractText(htmlContent string, pageURL *url.URL) (string, error) {
	// Try readability first
	article, err := readability.FromReader(strings.NewReader(htmlContent), pageURL)
	if err == nil {
		if text := strings.TrimSpace(article.TextContent); text != "" {
			return text, nil
		}
	}

	// Fallback: Try parsing HTML directly with goquery
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	for _, selector := range []string{"article p", "main p", "p"} {
		if text := joinText(doc.Find(selector)); text != "" {
			return text, nil
		}
	}

	// Last resort: everything visible in <body>
	doc.Find("script, style, noscript").Remove()
	if text := strings.TrimSpace(doc.Find("body").Text()); text != "" {
		return text, nil
	}

	return "", ErrNoText
}

// joinText joins the trimmed text of every non-empty node in the selection
func joinText(sel *goquery.Selection) string {
	var parts []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n")
}
