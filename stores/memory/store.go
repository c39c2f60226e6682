package memory

import (
	"collab-docs/core"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

type documentStore struct {
	mu        sync.RWMutex
	documents map[string]core.Document
}

func NewDocumentStore() core.DocumentStore {
	return &documentStore{documents: make(map[string]core.Document)}
}

func (s *documentStore) List(ctx context.Context) ([]*core.Document, error) {
	s.mu.RLock()
	docs := make([]*core.Document, 0, len(s.documents))
	for _, d := range s.documents {
		doc := d
		docs = append(docs, &doc)
	}
	s.mu.RUnlock()

	core.SortNewestFirst(docs)
	logrus.Debugf("Listed %d documents", len(docs))
	return docs, nil
}

func (s *documentStore) Get(ctx context.Context, id string) (*core.Document, error) {
	log := logrus.WithField("document_id", id)

	s.mu.RLock()
	doc, ok := s.documents[id]
	s.mu.RUnlock()

	if !ok {
		log.Warn("Document with specified ID not found")
		return nil, fmt.Errorf("document %s: %w", id, core.ErrNotFound)
	}
	log.Debug("Document retrieved successfully")
	return &doc, nil
}

func (s *documentStore) Create(ctx context.Context, document *core.Document) (*core.Document, error) {
	doc := *document
	doc.ID = ulid.Make().String()
	doc.CreatedAt = time.Now().UTC()
	doc.UpdatedAt = doc.CreatedAt

	s.mu.Lock()
	s.documents[doc.ID] = doc
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"document_id":    doc.ID,
		"content_length": len(doc.Content),
	}).Info("Document created successfully")
	return &doc, nil
}

func (s *documentStore) Update(ctx context.Context, id string, patch core.DocumentPatch) (*core.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, core.ErrNotFound)
	}
	patch.Apply(&doc)
	doc.UpdatedAt = time.Now().UTC()
	s.documents[id] = doc

	logrus.WithField("document_id", id).Info("Document updated successfully")
	return &doc, nil
}

func (s *documentStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[id]; !ok {
		return fmt.Errorf("document %s: %w", id, core.ErrNotFound)
	}
	delete(s.documents, id)
	logrus.WithField("document_id", id).Info("Document deleted successfully")
	return nil
}

type templateStore struct {
	mu        sync.RWMutex
	templates map[string]core.Template
}

func NewTemplateStore() core.TemplateStore {
	return &templateStore{templates: make(map[string]core.Template)}
}

func (s *templateStore) GetAll(ctx context.Context) ([]*core.Template, error) {
	s.mu.RLock()
	tpls := make([]*core.Template, 0, len(s.templates))
	for _, t := range s.templates {
		tpl := t
		tpls = append(tpls, &tpl)
	}
	s.mu.RUnlock()

	core.SortOldestFirst(tpls)
	return tpls, nil
}

func (s *templateStore) GetByID(ctx context.Context, id string) (*core.Template, error) {
	s.mu.RLock()
	tpl, ok := s.templates[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("template %s: %w", id, core.ErrNotFound)
	}
	return &tpl, nil
}

func (s *templateStore) Save(ctx context.Context, template *core.Template) (*core.Template, error) {
	tpl := *template
	tpl.ID = ulid.Make().String()
	tpl.CreatedAt = time.Now().UTC()
	tpl.UpdatedAt = tpl.CreatedAt

	s.mu.Lock()
	s.templates[tpl.ID] = tpl
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{"template_id": tpl.ID, "template_name": tpl.Name}).Info("Template saved successfully")
	return &tpl, nil
}

func (s *templateStore) Update(ctx context.Context, template *core.Template) (*core.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.templates[template.ID]
	if !ok {
		return nil, fmt.Errorf("template %s: %w", template.ID, core.ErrNotFound)
	}
	tpl := *template
	tpl.CreatedAt = existing.CreatedAt
	tpl.UpdatedAt = time.Now().UTC()
	s.templates[tpl.ID] = tpl
	return &tpl, nil
}

func (s *templateStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.templates[id]; !ok {
		return fmt.Errorf("template %s: %w", id, core.ErrNotFound)
	}
	delete(s.templates, id)
	return nil
}
