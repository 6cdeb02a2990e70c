package ingestion

import (
	"fmt"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
)

// Processor prepares chapter content submitted by the reader extension
// before it is stored. Fragments are sanitized; full pages additionally
// go through readable-content extraction first.
type Processor struct {
	htmlPolicy *bluemonday.Policy
	baseURL    *url.URL
}

func NewProcessor() *Processor {
	// Chapters are stored without external references; readability only
	// needs a base URL to resolve relative links before they are dropped.
	base, _ := url.Parse("http://localhost/")
	return &Processor{
		htmlPolicy: bluemonday.UGCPolicy(),
		baseURL:    base,
	}
}

// SanitizeFragment cleans an HTML fragment down to user-generated-content
// safe markup. Returns an error when sanitization strips a non-empty
// fragment to nothing, which almost always means the client sent
// something that was never chapter text.
func (p *Processor) SanitizeFragment(fragment string) (string, error) {
	if strings.TrimSpace(fragment) == "" {
		return "", fmt.Errorf("chapter content is empty")
	}
	cleaned := p.htmlPolicy.Sanitize(fragment)
	if strings.TrimSpace(cleaned) == "" {
		return "", fmt.Errorf("chapter content is empty after sanitization")
	}
	return cleaned, nil
}

// ExtractArticle pulls the readable article body out of a full HTML page
// and sanitizes it. Returns the extracted title alongside the cleaned
// body; the title may be empty when the page does not declare one.
func (p *Processor) ExtractArticle(page string) (title string, body string, err error) {
	article, err := readability.FromReader(strings.NewReader(page), p.baseURL)
	if err != nil {
		return "", "", fmt.Errorf("failed to extract article content: %w", err)
	}

	body, err = p.SanitizeFragment(article.Content)
	if err != nil {
		return "", "", err
	}
	return article.Title, body, nil
}
