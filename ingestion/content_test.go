package ingestion

import (
	"strings"
	"testing"
)

func TestSanitizeFragmentKeepsProse(t *testing.T) {
	p := NewProcessor()

	cleaned, err := p.SanitizeFragment(`<p>He cultivated for <em>ten</em> years.</p>`)
	if err != nil {
		t.Fatalf("SanitizeFragment failed: %v", err)
	}
	if !strings.Contains(cleaned, "<em>ten</em>") {
		t.Errorf("sanitized fragment lost inline markup: %q", cleaned)
	}
}

func TestSanitizeFragmentStripsScripts(t *testing.T) {
	p := NewProcessor()

	cleaned, err := p.SanitizeFragment(`<p>Safe.</p><script>alert("x")</script>`)
	if err != nil {
		t.Fatalf("SanitizeFragment failed: %v", err)
	}
	if strings.Contains(cleaned, "<script") || strings.Contains(cleaned, "alert") {
		t.Errorf("sanitized fragment still contains script content: %q", cleaned)
	}
}

func TestSanitizeFragmentRejectsEmpty(t *testing.T) {
	p := NewProcessor()

	if _, err := p.SanitizeFragment("   "); err == nil {
		t.Error("expected error for empty fragment, got nil")
	}
	if _, err := p.SanitizeFragment(`<script>only()</script>`); err == nil {
		t.Error("expected error when sanitization strips everything, got nil")
	}
}

func TestExtractArticle(t *testing.T) {
	p := NewProcessor()

	page := `<!DOCTYPE html>
<html>
<head><title>Chapter 12 - Dao of Testing</title></head>
<body>
<nav><a href="/home">home</a></nav>
<article>
<h1>Chapter 12</h1>
<p>The sect elder frowned. This paragraph needs to be long enough for the
content extractor to recognize it as the main body of the page, so the
elder kept frowning for a considerable number of words.</p>
<p>Eventually the disciple spoke, and this second paragraph continues the
story with enough prose that extraction keeps it as article content.</p>
</article>
<footer>copyright</footer>
</body>
</html>`

	title, body, err := p.ExtractArticle(page)
	if err != nil {
		t.Fatalf("ExtractArticle failed: %v", err)
	}
	if title == "" {
		t.Error("extracted title is empty")
	}
	if !strings.Contains(body, "sect elder") {
		t.Errorf("extracted body lost the article text: %q", body)
	}
	if strings.Contains(body, "copyright") {
		t.Errorf("extracted body kept page chrome: %q", body)
	}
}
