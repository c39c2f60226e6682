package collab

import (
	"collab-docs/core"
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Documents wraps a DocumentStore for interactive use. Failures are logged and
// broadcast as a Failure event instead of being returned, so callers can keep
// working on their local copy.
type Documents struct {
	store  core.DocumentStore
	facade *Facade
}

func NewDocuments(store core.DocumentStore, facade *Facade) *Documents {
	return &Documents{store: store, facade: facade}
}

// List returns every document, or an empty slice when the store fails.
func (d *Documents) List(ctx context.Context) []*core.Document {
	docs, err := d.store.List(ctx)
	if err != nil {
		logrus.WithError(err).Warn("Failed to list documents")
		d.facade.Fail("Could not load documents")
		return []*core.Document{}
	}
	return docs
}

// Get returns the document or nil when it is missing or the store fails.
func (d *Documents) Get(ctx context.Context, id string) *core.Document {
	doc, err := d.store.Get(ctx, id)
	if err != nil {
		logrus.WithError(err).WithField("document_id", id).Warn("Failed to get document")
		d.facade.Fail(fmt.Sprintf("Could not load document %s", id))
		return nil
	}
	return doc
}

// Save updates doc when it has an ID and creates it otherwise. A successful
// update is broadcast as ContentUpdated on behalf of author. It returns nil on
// failure.
func (d *Documents) Save(ctx context.Context, doc *core.Document, author string) *core.Document {
	if doc.ID == "" {
		created, err := d.store.Create(ctx, doc)
		if err != nil {
			logrus.WithError(err).WithField("document_name", doc.Name).Error("Failed to create document")
			d.facade.Fail("Could not save document")
			return nil
		}
		return created
	}

	patch := core.DocumentPatch{Name: &doc.Name, Content: &doc.Content}
	if doc.Type != "" {
		patch.Type = &doc.Type
	}
	updated, err := d.store.Update(ctx, doc.ID, patch)
	if err != nil {
		logrus.WithError(err).WithField("document_id", doc.ID).Error("Failed to update document")
		d.facade.Fail("Could not save document")
		return nil
	}
	d.facade.ContentUpdated(updated.ID, updated.Content, author)
	return updated
}
