package models

// Book is a novel tracked by the ingest API. ChapterCount is denormalized
// and maintained on chapter insert. Cover, when present, is a data URI
// ("data:image/png;base64,...") uploaded through the book update endpoint.
type Book struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	ChapterCount *int    `json:"chapter_count,omitempty"`
	Author       *string `json:"author,omitempty"`
	Translator   *string `json:"translator,omitempty"`
	Cover        *string `json:"cover,omitempty"`
}
