package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ExportKindName identifies which variant of an export request an
// ExportKind carries.
type ExportKindName string

const (
	KindAnthology     ExportKindName = "anthology"
	KindFullBook      ExportKindName = "full_book"
	KindSingleChapter ExportKindName = "single_chapter"
	KindChaptersRange ExportKindName = "chapters_range"
)

// ExportKind is the tagged variant stored in the exports.meta column.
// Only the fields relevant to the named kind are set: BookID/From/To for
// chapters_range, BookID for full_book, ChapterID for single_chapter.
// Every consumer must switch on Kind with a default branch; kinds other
// than chapters_range are accepted by the schema but not yet processable.
type ExportKind struct {
	Kind      ExportKindName `json:"kind"`
	BookID    int            `json:"book_id,omitempty"`
	ChapterID int            `json:"chapter_id,omitempty"`
	From      int            `json:"from,omitempty"`
	To        int            `json:"to,omitempty"`
}

// ChaptersRange builds the one fully supported export kind.
func ChaptersRange(bookID, from, to int) ExportKind {
	return ExportKind{Kind: KindChaptersRange, BookID: bookID, From: from, To: to}
}

func (k ExportKind) String() string {
	switch k.Kind {
	case KindChaptersRange:
		return fmt.Sprintf("%d: Chapters from %d to %d", k.BookID, k.From, k.To)
	case KindFullBook:
		return fmt.Sprintf("%d: Full book", k.BookID)
	case KindSingleChapter:
		return fmt.Sprintf("Chapter %d", k.ChapterID)
	case KindAnthology:
		return "Anthology"
	default:
		return fmt.Sprintf("unknown export kind %q", string(k.Kind))
	}
}

// Value serializes the kind for the jsonb meta column.
func (k ExportKind) Value() (driver.Value, error) {
	b, err := json.Marshal(k)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export kind: %w", err)
	}
	return b, nil
}

// Scan deserializes the kind from the jsonb meta column.
func (k *ExportKind) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("cannot scan export kind from %T", src)
	}
	if err := json.Unmarshal(b, k); err != nil {
		return fmt.Errorf("failed to unmarshal export kind: %w", err)
	}
	return nil
}

// ExportState is the derived lifecycle state of an export request.
type ExportState string

const (
	ExportStateCreated    ExportState = "created"
	ExportStateProcessing ExportState = "processing"
	ExportStateProcessed  ExportState = "processed"
	ExportStateSent       ExportState = "sent"
	ExportStateFailed     ExportState = "failed"
)

// Export is a queued instruction to package some subset of chapters into
// an EPUB and deliver it. Lifecycle columns are each written exactly once:
// ProcessingStartedAt when a pipeline run claims the row, ProcessedAt when
// processing finishes (success or failure), Sent after successful delivery.
type Export struct {
	ID                  int        `json:"id"`
	Meta                ExportKind `json:"meta"`
	CreatedAt           time.Time  `json:"created_at"`
	ProcessingStartedAt *time.Time `json:"processing_started_at,omitempty"`
	ProcessedAt         *time.Time `json:"processed_at,omitempty"`
	Sent                bool       `json:"sent"`
	Error               *string    `json:"error,omitempty"`
}

// State derives the display state. Precedence: an error means failed, then
// sent, then processed, then processing, then created.
func (e Export) State() ExportState {
	switch {
	case e.Error != nil:
		return ExportStateFailed
	case e.Sent:
		return ExportStateSent
	case e.ProcessedAt != nil:
		return ExportStateProcessed
	case e.ProcessingStartedAt != nil:
		return ExportStateProcessing
	default:
		return ExportStateCreated
	}
}

func (e Export) String() string {
	return fmt.Sprintf("%s -> %s", e.State(), e.Meta)
}
