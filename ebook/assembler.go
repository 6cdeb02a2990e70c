package ebook

import (
	"context"
	"fmt"
	"html"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	epub "github.com/go-shiori/go-epub"
	"github.com/google/uuid"
	"github.com/vincent-petithory/dataurl"
)

// Section is one chapter of a document: a heading plus an HTML fragment.
type Section struct {
	Title   string
	Content string
}

// Document is the input to Assemble. Cover, when present, must be a data
// URI ("data:image/png;base64,..."); a malformed or undecodable cover
// fails the whole assembly rather than producing a cover-less book.
type Document struct {
	Title      string
	Author     *string
	Translator *string
	Cover      *string
	Chapters   []Section
}

// Assembler packages documents into EPUB files.
type Assembler struct{}

func NewAssembler() *Assembler {
	log.Println("INFO (Assembler): Using go-epub for EPUB generation")
	return &Assembler{}
}

// Assemble builds an EPUB from the document and writes it to a fresh path
// under the system temp directory. Sections keep their input order and get
// internal names chapter_<n>.xhtml, after a title page and, when a cover
// is present, a cover page. The caller owns the returned file and should
// remove it once delivered.
func (a *Assembler) Assemble(ctx context.Context, doc Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if doc.Title == "" {
		return "", fmt.Errorf("document title cannot be empty")
	}

	startTime := time.Now()

	e, err := epub.NewEpub(doc.Title)
	if err != nil {
		return "", fmt.Errorf("failed to create epub: %w", err)
	}
	e.SetLang("en")
	switch {
	case doc.Author != nil:
		e.SetAuthor(*doc.Author)
	case doc.Translator != nil:
		e.SetAuthor(*doc.Translator)
	}
	if doc.Translator != nil {
		e.SetDescription(fmt.Sprintf("Translated by %s", *doc.Translator))
	}

	cssPath, cleanupCSS, err := addStylesheet(e)
	if err != nil {
		return "", err
	}
	defer cleanupCSS()

	if doc.Cover != nil {
		cleanupCover, err := addCover(e, *doc.Cover, cssPath)
		if err != nil {
			return "", err
		}
		defer cleanupCover()
	}

	titleBody := fmt.Sprintf("<h1>%s</h1>%s", html.EscapeString(doc.Title), titleCredits(doc))
	if _, err := e.AddSection(titleBody, doc.Title, "title.xhtml", cssPath); err != nil {
		return "", fmt.Errorf("failed to add title page: %w", err)
	}

	for i, chapter := range doc.Chapters {
		body := fmt.Sprintf("<h2>%s</h2>%s", html.EscapeString(chapter.Title), chapter.Content)
		filename := fmt.Sprintf("chapter_%d.xhtml", i+1)
		if _, err := e.AddSection(body, chapter.Title, filename, cssPath); err != nil {
			return "", fmt.Errorf("failed to add chapter %d (%q): %w", i+1, chapter.Title, err)
		}
	}

	outputPath := filepath.Join(os.TempDir(), fmt.Sprintf("%s-%s.epub", sanitizeTitle(doc.Title), uuid.NewString()))
	if err := e.Write(outputPath); err != nil {
		return "", fmt.Errorf("failed to write epub file: %w", err)
	}

	log.Printf("INFO (Assembler): Generated %q with %d chapters at %s (took %s)",
		doc.Title, len(doc.Chapters), outputPath, time.Since(startTime))
	return outputPath, nil
}

// addStylesheet registers the fixed stylesheet and returns its internal
// path plus a cleanup for the temp source file. go-epub reads source
// files when Write is called, so the temp file must outlive the build.
func addStylesheet(e *epub.Epub) (string, func(), error) {
	tmpFile, err := os.CreateTemp("", "wuxia2kindle-styles-*.css")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp stylesheet: %w", err)
	}
	cleanup := func() { os.Remove(tmpFile.Name()) }

	if _, err := tmpFile.WriteString(stylesheet); err != nil {
		tmpFile.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to write temp stylesheet: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to close temp stylesheet: %w", err)
	}

	cssPath, err := e.AddCSS(tmpFile.Name(), "styles.css")
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to add stylesheet to epub: %w", err)
	}
	return cssPath, cleanup, nil
}

// addCover decodes the data URI and registers the image as the book's
// declared cover. SetCover marks the image with the cover-image manifest
// property and a cover meta entry, and emits the cover page ahead of the
// title page; reader shells need the declaration to pick up thumbnails.
func addCover(e *epub.Epub, cover string, cssPath string) (func(), error) {
	du, err := dataurl.DecodeString(cover)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cover data URI: %w", err)
	}
	if du.MediaType.Type != "image" {
		return nil, fmt.Errorf("cover media type %q is not an image", du.ContentType())
	}

	ext := du.MediaType.Subtype
	if ext == "" {
		ext = "png"
	}

	tmpFile, err := os.CreateTemp("", "wuxia2kindle-cover-*."+ext)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp cover file: %w", err)
	}
	cleanup := func() { os.Remove(tmpFile.Name()) }

	if _, err := tmpFile.Write(du.Data); err != nil {
		tmpFile.Close()
		cleanup()
		return nil, fmt.Errorf("failed to write temp cover file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to close temp cover file: %w", err)
	}

	imagePath, err := e.AddImage(tmpFile.Name(), "cover."+ext)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to add cover image to epub: %w", err)
	}

	if err := e.SetCover(imagePath, cssPath); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to set cover image: %w", err)
	}
	return cleanup, nil
}

func titleCredits(doc Document) string {
	var credits strings.Builder
	if doc.Author != nil {
		credits.WriteString(fmt.Sprintf("<p>By %s</p>", html.EscapeString(*doc.Author)))
	}
	if doc.Translator != nil {
		credits.WriteString(fmt.Sprintf("<p>Translated by %s</p>", html.EscapeString(*doc.Translator)))
	}
	return credits.String()
}

// sanitizeTitle collapses whitespace runs to underscores so the title can
// be used in a filename.
func sanitizeTitle(title string) string {
	return strings.Join(strings.Fields(title), "_")
}
