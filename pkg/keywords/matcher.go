// Package keywords decides whether a piece of text mentions the bot's topics.
package keywords

import (
	"fmt"
	"regexp"
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

// Config is the audited topic list. Keywords are plain phrases matched as
// case-insensitive substrings; Patterns are regular expressions matched
// case-insensitively.
type Config struct {
	Keywords []string `yaml:"keywords" env:"CROSSPOST_KEYWORDS"`
	Patterns []string `yaml:"patterns"`
}

// DefaultConfig returns the open source / home assistant topic list.
func DefaultConfig() Config {
	return Config{
		Keywords: []string{
			"open source",
			"open-source",
			"foss",
			"floss",
			"home assistant",
			"home-assistant",
			"homeassistant",
		},
	}
}

// Matcher reports whether text contains any configured topic.
// A Matcher is safe for concurrent use.
type Matcher struct {
	keywords []string
	trie     *ahocorasick.Matcher
	patterns []*regexp.Regexp
}

// NewMatcher builds a matcher from cfg. Empty keywords are ignored; an invalid
// pattern is a configuration error.
func NewMatcher(cfg Config) (*Matcher, error) {
	m := &Matcher{}

	for _, kw := range cfg.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		m.keywords = append(m.keywords, kw)
	}
	if len(m.keywords) > 0 {
		m.trie = ahocorasick.NewStringMatcher(m.keywords)
	}

	for _, p := range cfg.Patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("compile topic pattern %q: %w", p, err)
		}
		m.patterns = append(m.patterns, re)
	}

	return m, nil
}

// Matches returns true iff text contains at least one keyword or pattern.
func (m *Matcher) Matches(text string) bool {
	if m == nil || text == "" {
		return false
	}

	if m.trie != nil {
		lower := strings.ToLower(text)
		if len(m.trie.MatchThreadSafe([]byte(lower))) > 0 {
			return true
		}
	}

	for _, re := range m.patterns {
		if re.MatchString(text) {
			return true
		}
	}

	return false
}

// Topics lists the normalized keywords followed by the patterns, in configuration order.
func (m *Matcher) Topics() []string {
	topics := make([]string, 0, len(m.keywords)+len(m.patterns))
	topics = append(topics, m.keywords...)
	for _, re := range m.patterns {
		topics = append(topics, strings.TrimPrefix(re.String(), "(?i)"))
	}
	return topics
}
