package datastore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wuxia2kindle/wuxia2kindle/models"
)

type BookRepository struct {
	db *sql.DB
}

func NewBookRepository(db *sql.DB) *BookRepository {
	return &BookRepository{db: db}
}

const bookColumns = "id, name, chapter_count, author, translator, cover"

func scanBook(row interface{ Scan(...any) error }) (*models.Book, error) {
	var book models.Book
	err := row.Scan(&book.ID, &book.Name, &book.ChapterCount, &book.Author, &book.Translator, &book.Cover)
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetByID returns the book or sql.ErrNoRows wrapped if it does not exist.
func (r *BookRepository) GetByID(ctx context.Context, id int) (*models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`
	book, err := scanBook(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get book %d: %w", id, err)
	}
	return book, nil
}

// GetByName returns (nil, nil) when no book has that name; ingest uses
// this to decide between insert and reuse.
func (r *BookRepository) GetByName(ctx context.Context, name string) (*models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE name = $1`
	book, err := scanBook(r.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get book by name %q: %w", name, err)
	}
	return book, nil
}

func (r *BookRepository) List(ctx context.Context) ([]models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer rows.Close()

	books := []models.Book{}
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book row: %w", err)
		}
		books = append(books, *book)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating book rows: %w", err)
	}
	return books, nil
}

// Create inserts a new book and fills in its assigned ID.
func (r *BookRepository) Create(ctx context.Context, book *models.Book) error {
	query := `
		INSERT INTO books (name, author, translator)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query, book.Name, book.Author, book.Translator).Scan(&book.ID)
	if err != nil {
		return fmt.Errorf("failed to insert book %q: %w", book.Name, err)
	}
	return nil
}

// Update persists the full current state of the book row. Callers apply
// partial changes to a fetched model first.
func (r *BookRepository) Update(ctx context.Context, book *models.Book) error {
	query := `
		UPDATE books
		SET name = $2, author = $3, translator = $4, cover = $5
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, book.ID, book.Name, book.Author, book.Translator, book.Cover)
	if err != nil {
		return fmt.Errorf("failed to update book %d: %w", book.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to update book %d: %w", book.ID, sql.ErrNoRows)
	}
	return nil
}

// IncrementChapterCount bumps the denormalized chapter counter, treating
// NULL as zero.
func (r *BookRepository) IncrementChapterCount(ctx context.Context, id int) error {
	query := `
		UPDATE books
		SET chapter_count = COALESCE(chapter_count, 0) + 1
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to increment chapter count for book %d: %w", id, err)
	}
	return nil
}
