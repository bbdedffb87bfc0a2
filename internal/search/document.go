// Package search provides full-text search over the book catalog using Bleve.
// The database stays the source of truth: the index only returns matching
// book IDs, which callers intersect with their SQL filters.
package search

import (
	"github.com/listenupapp/library-server/internal/domain"
)

// BookDocument is the indexed form of a catalog entry.
type BookDocument struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	Publisher       string `json:"publisher,omitempty"`
	ISBN            string `json:"isbn,omitempty"`
	Category        string `json:"category,omitempty"`
	LibraryID       string `json:"library_id"`
	PublicationYear int    `json:"publication_year,omitempty"`
	CreatedAt       int64  `json:"created_at"` // Unix millis
}

// BookToDocument converts a book to its search document.
func BookToDocument(b *domain.Book) *BookDocument {
	doc := &BookDocument{
		ID:        b.ID,
		Title:     b.Title,
		Author:    b.Author,
		Publisher: b.Publisher,
		ISBN:      b.ISBN,
		Category:  b.Category,
		LibraryID: b.LibraryID,
		CreatedAt: b.CreatedAt.UnixMilli(),
	}
	if b.PublicationYear != nil {
		doc.PublicationYear = *b.PublicationYear
	}
	return doc
}

// ToMap converts the document to a map with lowercase field names.
// This ensures field names match the Bleve index mapping.
func (d *BookDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":         d.ID,
		"title":      d.Title,
		"author":     d.Author,
		"library_id": d.LibraryID,
		"created_at": d.CreatedAt,
	}
	if d.Publisher != "" {
		m["publisher"] = d.Publisher
	}
	if d.ISBN != "" {
		m["isbn"] = d.ISBN
	}
	if d.Category != "" {
		m["category"] = d.Category
	}
	if d.PublicationYear != 0 {
		m["publication_year"] = d.PublicationYear
	}
	return m
}
