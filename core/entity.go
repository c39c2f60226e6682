package core

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"
)

// ErrNotFound is returned (wrapped) by stores when the requested entity does not exist.
var ErrNotFound = errors.New("not found")

type DocumentType string

const (
	DocumentPDF   DocumentType = "PDF"
	DocumentWord  DocumentType = "Word"
	DocumentExcel DocumentType = "Excel"
)

// Valid reports whether t is one of the supported document types.
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentPDF, DocumentWord, DocumentExcel:
		return true
	}
	return false
}

type (
	Document struct {
		ID        string       `json:"id"`
		Name      string       `json:"name"`
		Type      DocumentType `json:"type"`
		Content   string       `json:"content"`
		AuthorID  string       `json:"authorId,omitempty"`
		CreatedAt time.Time    `json:"createdAt"`
		UpdatedAt time.Time    `json:"updatedAt"`
	}

	// DocumentPatch carries a partial update. Nil fields are left untouched.
	DocumentPatch struct {
		Name    *string       `json:"name,omitempty"`
		Type    *DocumentType `json:"type,omitempty"`
		Content *string       `json:"content,omitempty"`
	}

	// DocumentStore is the CRUD collaborator for documents.
	// Missing documents are reported as an error wrapping ErrNotFound.
	DocumentStore interface {
		// List returns all documents, newest first.
		List(ctx context.Context) ([]*Document, error)
		Get(ctx context.Context, id string) (*Document, error)
		// Create assigns an ID and timestamps and returns the stored document.
		Create(ctx context.Context, doc *Document) (*Document, error)
		Update(ctx context.Context, id string, patch DocumentPatch) (*Document, error)
		Delete(ctx context.Context, id string) error
	}

	Template struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Content   string    `json:"content"`
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}

	// TemplateStore keeps reusable document templates.
	TemplateStore interface {
		GetAll(ctx context.Context) ([]*Template, error)
		GetByID(ctx context.Context, id string) (*Template, error)
		// Save stores a new template. Any ID on the input is replaced.
		Save(ctx context.Context, tpl *Template) (*Template, error)
		Update(ctx context.Context, tpl *Template) (*Template, error)
		Delete(ctx context.Context, id string) error
	}
)

// Apply copies the non-nil patch fields onto doc.
func (p DocumentPatch) Apply(doc *Document) {
	if p.Name != nil {
		doc.Name = *p.Name
	}
	if p.Type != nil {
		doc.Type = *p.Type
	}
	if p.Content != nil {
		doc.Content = *p.Content
	}
}

// Empty reports whether the patch changes nothing.
func (p DocumentPatch) Empty() bool {
	return p.Name == nil && p.Type == nil && p.Content == nil
}

// SortNewestFirst orders documents by creation time, newest first. Ties are
// broken by ID so the order is stable.
func SortNewestFirst(docs []*Document) {
	slices.SortFunc(docs, func(a, b *Document) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}

// SortOldestFirst orders templates by creation time, oldest first.
func SortOldestFirst(tpls []*Template) {
	slices.SortFunc(tpls, func(a, b *Template) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
