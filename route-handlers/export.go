package routehandlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/wuxia2kindle/wuxia2kindle/datastore"
	"github.com/wuxia2kindle/wuxia2kindle/models"
	"github.com/wuxia2kindle/wuxia2kindle/webutil"
)

type ExportHandler struct {
	Exports *datastore.ExportRepository
	Books   *datastore.BookRepository
}

func NewExportHandler(exports *datastore.ExportRepository, books *datastore.BookRepository) *ExportHandler {
	return &ExportHandler{Exports: exports, Books: books}
}

type enqueueExportRequest struct {
	BookID int `json:"book_id"`
	From   int `json:"from"`
	To     int `json:"to"`
}

// exportView is the read shape for listings. The raw row keeps state
// as a set of nullable timestamps; clients get the derived label.
type exportView struct {
	ID        int               `json:"id"`
	Meta      models.ExportKind `json:"meta"`
	CreatedAt time.Time         `json:"created_at"`
	State     string            `json:"state"`
	Error     *string           `json:"error,omitempty"`
}

// HandleEnqueueExport queues a chapter-range export for the next
// scheduler tick.
func (h *ExportHandler) HandleEnqueueExport(w http.ResponseWriter, r *http.Request) error {
	var req enqueueExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return webutil.ErrBadRequest("Invalid request payload")
	}
	defer r.Body.Close()

	if req.BookID < 1 {
		return webutil.ErrBadRequest("book_id must be positive")
	}
	if req.From < 1 || req.To < 1 {
		return webutil.ErrBadRequest("from and to must be positive")
	}
	if req.From > req.To {
		return webutil.ErrBadRequest("from must not be greater than to")
	}

	ctx := r.Context()
	if _, err := h.Books.GetByID(ctx, req.BookID); err != nil {
		return err // sql.ErrNoRows maps to 404 in MakeHandler
	}

	export, err := h.Exports.Enqueue(ctx, models.ChaptersRange(req.BookID, req.From, req.To))
	if err != nil {
		return fmt.Errorf("failed to enqueue export: %w", err)
	}

	log.Printf("INFO (ExportHandler): Enqueued export %d (%s)", export.ID, export.Meta)
	webutil.RespondWithJSON(w, http.StatusCreated, exportView{
		ID:        export.ID,
		Meta:      export.Meta,
		CreatedAt: export.CreatedAt,
		State:     string(export.State()),
	})
	return nil
}

func (h *ExportHandler) HandleGetExports(w http.ResponseWriter, r *http.Request) error {
	exports, err := h.Exports.List(r.Context())
	if err != nil {
		return fmt.Errorf("failed to list exports: %w", err)
	}

	views := make([]exportView, 0, len(exports))
	for _, e := range exports {
		views = append(views, exportView{
			ID:        e.ID,
			Meta:      e.Meta,
			CreatedAt: e.CreatedAt,
			State:     string(e.State()),
			Error:     e.Error,
		})
	}
	webutil.RespondWithJSON(w, http.StatusOK, views)
	return nil
}
