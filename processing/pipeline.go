package processing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/wuxia2kindle/wuxia2kindle/delivery"
	"github.com/wuxia2kindle/wuxia2kindle/ebook"
	"github.com/wuxia2kindle/wuxia2kindle/models"
)

// exportBatchSize caps how many requests one tick claims. Requests beyond
// the cap wait for the next tick.
const exportBatchSize = 10

// errBookNotFound is the terminal failure cause recorded when a range
// export references a book that does not exist.
var errBookNotFound = errors.New("book not found ?")

// ExportStore is the persisted queue the pipeline drains. Implemented by
// datastore.ExportRepository.
type ExportStore interface {
	ClaimDue(ctx context.Context, limit int) ([]models.Export, error)
	MarkProcessed(ctx context.Context, id int, errMsg *string) error
	MarkSent(ctx context.Context, id int) error
	RecordDeliveryFailure(ctx context.Context, id int, cause string) error
}

// BookSource resolves book metadata. Implemented by datastore.BookRepository.
type BookSource interface {
	GetByID(ctx context.Context, id int) (*models.Book, error)
}

// ChapterSource resolves chapter content. Implemented by
// datastore.ChapterRepository.
type ChapterSource interface {
	GetRange(ctx context.Context, bookID, from, to int) ([]models.Chapter, error)
}

// Assembler packages resolved content into a document file. Implemented by
// ebook.Assembler.
type Assembler interface {
	Assemble(ctx context.Context, doc ebook.Document) (string, error)
}

// Sink delivers a finished document. Implemented by delivery.Service.
type Sink interface {
	Deliver(ctx context.Context, filePath string, meta delivery.Metadata) error
}

// Pipeline converts queued export requests into delivered documents. One
// request's failure never affects its batch siblings: resolution and
// assembly errors are recorded on the row and processing moves on.
type Pipeline struct {
	store     ExportStore
	books     BookSource
	chapters  ChapterSource
	assembler Assembler
	sink      Sink
}

func NewPipeline(store ExportStore, books BookSource, chapters ChapterSource, assembler Assembler, sink Sink) *Pipeline {
	return &Pipeline{
		store:     store,
		books:     books,
		chapters:  chapters,
		assembler: assembler,
		sink:      sink,
	}
}

// RunTick claims one batch of due requests and processes them
// sequentially. A claim failure aborts the tick; the unclaimed rows are
// picked up by the next one. Returns the number of requests processed.
func (p *Pipeline) RunTick(ctx context.Context) (int, error) {
	exports, err := p.store.ClaimDue(ctx, exportBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to claim due exports: %w", err)
	}
	if len(exports) == 0 {
		return 0, nil
	}

	log.Printf("INFO (Pipeline): Processing %d exports", len(exports))
	for i := range exports {
		p.processExport(ctx, &exports[i])
	}
	return len(exports), nil
}

// processExport runs one claimed request to its terminal state.
func (p *Pipeline) processExport(ctx context.Context, export *models.Export) {
	log.Printf("INFO (Pipeline): Processing export %d (%s)", export.ID, export.Meta)

	filePath, meta, err := p.resolveAndAssemble(ctx, export)
	if err != nil {
		msg := err.Error()
		log.Printf("WARN (Pipeline): Export %d failed: %s", export.ID, msg)
		if storeErr := p.store.MarkProcessed(ctx, export.ID, &msg); storeErr != nil {
			log.Printf("ERROR (Pipeline): Failed to record failure for export %d: %v", export.ID, storeErr)
		}
		return
	}
	defer func() {
		if removeErr := os.Remove(filePath); removeErr != nil && !os.IsNotExist(removeErr) {
			log.Printf("WARN (Pipeline): Failed to remove temp file %s: %v", filePath, removeErr)
		}
	}()

	if err := p.store.MarkProcessed(ctx, export.ID, nil); err != nil {
		log.Printf("ERROR (Pipeline): Failed to mark export %d processed: %v", export.ID, err)
		return
	}

	if err := p.sink.Deliver(ctx, filePath, meta); err != nil {
		// The row stays processed and unsent; the cause lands in the
		// error column so the status display can surface it.
		cause := fmt.Sprintf("delivery failed: %v", err)
		if storeErr := p.store.RecordDeliveryFailure(ctx, export.ID, cause); storeErr != nil {
			log.Printf("ERROR (Pipeline): Failed to record delivery failure for export %d: %v", export.ID, storeErr)
		}
		return
	}

	if err := p.store.MarkSent(ctx, export.ID); err != nil {
		log.Printf("ERROR (Pipeline): Failed to mark export %d sent: %v", export.ID, err)
		return
	}
	log.Printf("INFO (Pipeline): Export %d sent", export.ID)
}

// resolveAndAssemble turns the request's kind into a packaged document.
// Every kind maps to either a concrete resolution or an explicit
// unsupported error; there is no panic path reachable from queue content.
func (p *Pipeline) resolveAndAssemble(ctx context.Context, export *models.Export) (string, delivery.Metadata, error) {
	switch export.Meta.Kind {
	case models.KindChaptersRange:
		return p.assembleChaptersRange(ctx, export.Meta)
	case models.KindAnthology, models.KindFullBook, models.KindSingleChapter:
		return "", delivery.Metadata{}, fmt.Errorf("unsupported export kind %q", export.Meta.Kind)
	default:
		return "", delivery.Metadata{}, fmt.Errorf("unknown export kind %q", export.Meta.Kind)
	}
}

func (p *Pipeline) assembleChaptersRange(ctx context.Context, kind models.ExportKind) (string, delivery.Metadata, error) {
	book, err := p.books.GetByID(ctx, kind.BookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", delivery.Metadata{}, errBookNotFound
		}
		return "", delivery.Metadata{}, fmt.Errorf("failed to fetch book %d: %w", kind.BookID, err)
	}

	chapters, err := p.chapters.GetRange(ctx, kind.BookID, kind.From, kind.To)
	if err != nil {
		return "", delivery.Metadata{}, fmt.Errorf("failed to fetch chapters %d..%d of book %d: %w", kind.From, kind.To, kind.BookID, err)
	}

	sections := make([]ebook.Section, 0, len(chapters))
	for _, chapter := range chapters {
		sections = append(sections, ebook.Section{Title: chapter.Name, Content: chapter.Content})
	}

	filePath, err := p.assembler.Assemble(ctx, ebook.Document{
		Title:      book.Name,
		Author:     book.Author,
		Translator: book.Translator,
		Cover:      book.Cover,
		Chapters:   sections,
	})
	if err != nil {
		return "", delivery.Metadata{}, fmt.Errorf("failed to assemble %q: %w", book.Name, err)
	}

	log.Printf("INFO (Pipeline): Epub generated at: %s", filePath)
	return filePath, delivery.Metadata{BookName: book.Name, From: kind.From, To: kind.To}, nil
}
