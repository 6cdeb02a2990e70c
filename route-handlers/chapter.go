package routehandlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/wuxia2kindle/wuxia2kindle/datastore"
	"github.com/wuxia2kindle/wuxia2kindle/ingestion"
	"github.com/wuxia2kindle/wuxia2kindle/models"
	"github.com/wuxia2kindle/wuxia2kindle/webutil"
)

type ChapterHandler struct {
	Books     *datastore.BookRepository
	Chapters  *datastore.ChapterRepository
	Processor *ingestion.Processor
}

func NewChapterHandler(books *datastore.BookRepository, chapters *datastore.ChapterRepository, processor *ingestion.Processor) *ChapterHandler {
	return &ChapterHandler{Books: books, Chapters: chapters, Processor: processor}
}

type addChapterRequest struct {
	Book         string  `json:"book"`
	Author       *string `json:"author"`
	Translator   *string `json:"translator"`
	Name         string  `json:"name"`
	Content      string  `json:"content"`
	NumberInBook int     `json:"number_in_book"`
	// FullPage marks Content as a complete HTML page needing readable
	// content extraction rather than a ready chapter fragment.
	FullPage bool `json:"full_page"`
}

type addChapterResponse struct {
	Success bool `json:"success"`
	Chapter any  `json:"chapter"`
}

// HandleAddChapter ingests one chapter, creating the book on first sight
// and bumping its denormalized chapter count.
func (h *ChapterHandler) HandleAddChapter(w http.ResponseWriter, r *http.Request) error {
	var req addChapterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return webutil.ErrBadRequest("Invalid request payload")
	}
	defer r.Body.Close()

	if req.Book == "" {
		return webutil.ErrBadRequest("book is required")
	}
	if req.NumberInBook < 1 {
		return webutil.ErrBadRequest("number_in_book must be positive")
	}

	content := req.Content
	if req.FullPage {
		extractedTitle, body, err := h.Processor.ExtractArticle(content)
		if err != nil {
			return webutil.ErrBadRequest("Could not extract chapter content from page: " + err.Error())
		}
		content = body
		if req.Name == "" && extractedTitle != "" {
			req.Name = extractedTitle
		}
	} else {
		cleaned, err := h.Processor.SanitizeFragment(content)
		if err != nil {
			return webutil.ErrBadRequest("Invalid chapter content: " + err.Error())
		}
		content = cleaned
	}
	if req.Name == "" {
		return webutil.ErrBadRequest("name is required")
	}

	ctx := r.Context()
	book, err := h.Books.GetByName(ctx, req.Book)
	if err != nil {
		return fmt.Errorf("failed to look up book %q: %w", req.Book, err)
	}
	if book == nil {
		log.Printf("INFO (ChapterHandler): Inserting new book: %s", req.Book)
		book = &models.Book{Name: req.Book, Author: req.Author, Translator: req.Translator}
		if err := h.Books.Create(ctx, book); err != nil {
			return fmt.Errorf("failed to create book %q: %w", req.Book, err)
		}
	}

	chapter := models.Chapter{
		BookID:       book.ID,
		Name:         req.Name,
		Content:      content,
		NumberInBook: req.NumberInBook,
	}
	if err := h.Chapters.Create(ctx, &chapter); err != nil {
		return fmt.Errorf("failed to create chapter %q: %w", req.Name, err)
	}

	if err := h.Books.IncrementChapterCount(ctx, book.ID); err != nil {
		// The chapter is stored; a stale counter is not worth failing
		// the request over.
		log.Printf("WARN (ChapterHandler): Failed to bump chapter count for book %d: %v", book.ID, err)
	}

	log.Printf("INFO (ChapterHandler): Ingested chapter %s", chapter)
	webutil.RespondWithJSON(w, http.StatusCreated, addChapterResponse{Success: true, Chapter: chapter})
	return nil
}
