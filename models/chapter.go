package models

import "fmt"

// Chapter holds one chapter's content as an HTML fragment. NumberInBook
// defines ordering within a book and is not guaranteed contiguous.
type Chapter struct {
	ID           int    `json:"id"`
	BookID       int    `json:"book_id"`
	Name         string `json:"name"`
	Content      string `json:"content"`
	NumberInBook int    `json:"number_in_book"`
}

func (c Chapter) String() string {
	return fmt.Sprintf("(%d) %s #%d", c.BookID, c.Name, c.NumberInBook)
}
