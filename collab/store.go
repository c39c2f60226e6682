package collab

import (
	"collab-docs/core"
	"context"
)

// AnnouncingStore is a DocumentStore that broadcasts every successful content
// update made through it, so the session sees edits that skip the editor.
type AnnouncingStore struct {
	core.DocumentStore
	facade *Facade
	author string
}

func NewAnnouncingStore(store core.DocumentStore, facade *Facade, author string) *AnnouncingStore {
	return &AnnouncingStore{DocumentStore: store, facade: facade, author: author}
}

func (s *AnnouncingStore) Update(ctx context.Context, id string, patch core.DocumentPatch) (*core.Document, error) {
	doc, err := s.DocumentStore.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if patch.Content != nil {
		s.facade.ExternalContentUpdated(doc.ID, doc.Content, s.author)
	}
	return doc, nil
}
