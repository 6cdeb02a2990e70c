package datastore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wuxia2kindle/wuxia2kindle/models"
)

type ChapterRepository struct {
	db *sql.DB
}

func NewChapterRepository(db *sql.DB) *ChapterRepository {
	return &ChapterRepository{db: db}
}

const chapterColumns = "id, book_id, name, content, number_in_book"

func scanChapter(row interface{ Scan(...any) error }) (*models.Chapter, error) {
	var chapter models.Chapter
	err := row.Scan(&chapter.ID, &chapter.BookID, &chapter.Name, &chapter.Content, &chapter.NumberInBook)
	if err != nil {
		return nil, err
	}
	return &chapter, nil
}

// Create inserts a new chapter and fills in its assigned ID.
func (r *ChapterRepository) Create(ctx context.Context, chapter *models.Chapter) error {
	query := `
		INSERT INTO chapters (book_id, name, content, number_in_book)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		chapter.BookID, chapter.Name, chapter.Content, chapter.NumberInBook,
	).Scan(&chapter.ID)
	if err != nil {
		return fmt.Errorf("failed to insert chapter %q: %w", chapter.Name, err)
	}
	return nil
}

func (r *ChapterRepository) GetByID(ctx context.Context, id int) (*models.Chapter, error) {
	query := `SELECT ` + chapterColumns + ` FROM chapters WHERE id = $1`
	chapter, err := scanChapter(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get chapter %d: %w", id, err)
	}
	return chapter, nil
}

// GetRange returns chapters of a book with number_in_book in [from, to]
// inclusive, ascending. Gaps in the numbering are returned as-is.
func (r *ChapterRepository) GetRange(ctx context.Context, bookID, from, to int) ([]models.Chapter, error) {
	query := `
		SELECT ` + chapterColumns + `
		FROM chapters
		WHERE book_id = $1
			AND number_in_book >= $2
			AND number_in_book <= $3
		ORDER BY number_in_book ASC
	`
	rows, err := r.db.QueryContext(ctx, query, bookID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query chapters %d..%d of book %d: %w", from, to, bookID, err)
	}
	defer rows.Close()
	return collectChapters(rows)
}

// ListByBook returns all chapters of a book ordered by number_in_book,
// content included.
func (r *ChapterRepository) ListByBook(ctx context.Context, bookID int) ([]models.Chapter, error) {
	query := `
		SELECT ` + chapterColumns + `
		FROM chapters
		WHERE book_id = $1
		ORDER BY number_in_book ASC
	`
	rows, err := r.db.QueryContext(ctx, query, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chapters of book %d: %w", bookID, err)
	}
	defer rows.Close()
	return collectChapters(rows)
}

func collectChapters(rows *sql.Rows) ([]models.Chapter, error) {
	chapters := []models.Chapter{}
	for rows.Next() {
		chapter, err := scanChapter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chapter row: %w", err)
		}
		chapters = append(chapters, *chapter)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chapter rows: %w", err)
	}
	return chapters, nil
}
