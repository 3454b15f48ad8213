package main

import "context"

// Ebook represents an ebook entity. The ID is owned by the server
// and left out of the json output when empty.
type Ebook struct {
	ID     string `json:"id,omitempty"`
	Author string `json:"author"`
	Title  string `json:"title"`
	Format string `json:"format"`
}

// WithoutID returns a copy of the ebook with its identifier discarded.
func (e Ebook) WithoutID() Ebook {
	e.ID = ""
	return e
}

// EbookStorage defines possible operations on ebook entity.
type EbookStorage interface {
	GetAll(ctx context.Context) ([]Ebook, error)
	GetOne(ctx context.Context, id string) (Ebook, error)
	Add(ctx context.Context, ebook Ebook) (Ebook, error)
	Replace(ctx context.Context, id string, ebook Ebook) (Ebook, error)
	Remove(ctx context.Context, id string) (Ebook, error)
	Close() error
}
