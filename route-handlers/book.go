package routehandlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/vincent-petithory/dataurl"
	"github.com/wuxia2kindle/wuxia2kindle/datastore"
	"github.com/wuxia2kindle/wuxia2kindle/webutil"
)

type BookHandler struct {
	Books    *datastore.BookRepository
	Chapters *datastore.ChapterRepository
}

func NewBookHandler(books *datastore.BookRepository, chapters *datastore.ChapterRepository) *BookHandler {
	return &BookHandler{Books: books, Chapters: chapters}
}

type updateBookRequest struct {
	Name       *string `json:"name"`
	Author     *string `json:"author"`
	Translator *string `json:"translator"`
	Cover      *string `json:"cover"`
}

func (h *BookHandler) HandleGetBooks(w http.ResponseWriter, r *http.Request) error {
	books, err := h.Books.List(r.Context())
	if err != nil {
		return fmt.Errorf("failed to retrieve books: %w", err)
	}
	webutil.RespondWithJSON(w, http.StatusOK, books)
	return nil
}

func (h *BookHandler) HandleGetBook(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}

	book, err := h.Books.GetByID(r.Context(), id)
	if err != nil {
		return err // sql.ErrNoRows maps to 404 in MakeHandler
	}
	webutil.RespondWithJSON(w, http.StatusOK, book)
	return nil
}

func (h *BookHandler) HandleGetBookChapters(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}

	if _, err := h.Books.GetByID(r.Context(), id); err != nil {
		return err
	}

	chapters, err := h.Chapters.ListByBook(r.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to retrieve chapters for book %d: %w", id, err)
	}
	webutil.RespondWithJSON(w, http.StatusOK, chapters)
	return nil
}

// HandleUpdateBook applies a partial update; absent fields keep their
// current values. A cover must be a well-formed data URI.
func (h *BookHandler) HandleUpdateBook(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}

	var req updateBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return webutil.ErrBadRequest("Invalid request payload")
	}
	defer r.Body.Close()

	book, err := h.Books.GetByID(r.Context(), id)
	if err != nil {
		return err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return webutil.ErrBadRequest("Book name cannot be empty")
		}
		book.Name = *req.Name
	}
	if req.Author != nil {
		book.Author = req.Author
	}
	if req.Translator != nil {
		book.Translator = req.Translator
	}
	if req.Cover != nil {
		du, err := dataurl.DecodeString(*req.Cover)
		if err != nil {
			return webutil.ErrBadRequest("Cover must be a valid data URI")
		}
		if du.MediaType.Type != "image" {
			return webutil.ErrBadRequest("Cover must be an image")
		}
		book.Cover = req.Cover
	}

	if err := h.Books.Update(r.Context(), book); err != nil {
		return fmt.Errorf("failed to update book %d: %w", id, err)
	}
	webutil.RespondWithJSON(w, http.StatusAccepted, book)
	return nil
}

func pathID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 1 {
		return 0, webutil.ErrBadRequest("Invalid ID in path")
	}
	return id, nil
}
