package filesystem

import (
	"collab-docs/core"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

const (
	documentsDir = "documents"
	templatesDir = "templates"
)

// dir keeps one JSON file per entity below path.
type dir struct {
	mu   sync.RWMutex
	path string
}

func newDir(basePath, name string) (*dir, error) {
	p := filepath.Join(basePath, name)
	if err := os.MkdirAll(p, 0755); err != nil {
		return nil, fmt.Errorf("create %s directory: %w", name, err)
	}
	return &dir{path: p}, nil
}

func (d *dir) file(id string) (string, error) {
	if id == "" || id == "." || id == ".." || filepath.Base(id) != id || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("invalid id %q: %w", id, core.ErrNotFound)
	}
	return filepath.Join(d.path, id+".json"), nil
}

func (d *dir) read(id string, v any) error {
	p, err := d.file(id)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", id, core.ErrNotFound)
		}
		return err
	}
	return json.Unmarshal(data, v)
}

func (d *dir) write(id string, v any) error {
	p, err := d.file(id)
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

func (d *dir) remove(id string) error {
	p, err := d.file(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", id, core.ErrNotFound)
		}
		return err
	}
	return nil
}

// each decodes every entity file, skipping the ones that cannot be read.
func (d *dir) each(decode func(data []byte) error) error {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return err
	}
	log := logrus.WithField("path", d.path)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(d.path, entry.Name()))
		if err != nil {
			log.WithError(err).Warnf("Failed to read %s, skipping", entry.Name())
			continue
		}
		if err := decode(data); err != nil {
			log.WithError(err).Warnf("Failed to unmarshal %s, skipping", entry.Name())
		}
	}
	return nil
}

type documentStore struct {
	dir *dir
}

// NewDocumentStore keeps documents as JSON files under basePath/documents.
func NewDocumentStore(basePath string) (core.DocumentStore, error) {
	d, err := newDir(basePath, documentsDir)
	if err != nil {
		return nil, err
	}
	return &documentStore{dir: d}, nil
}

func (s *documentStore) List(ctx context.Context) ([]*core.Document, error) {
	s.dir.mu.RLock()
	defer s.dir.mu.RUnlock()

	docs := []*core.Document{}
	err := s.dir.each(func(data []byte) error {
		var doc core.Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return err
		}
		docs = append(docs, &doc)
		return nil
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to list documents")
		return nil, err
	}
	core.SortNewestFirst(docs)
	return docs, nil
}

func (s *documentStore) Get(ctx context.Context, id string) (*core.Document, error) {
	s.dir.mu.RLock()
	defer s.dir.mu.RUnlock()

	var doc core.Document
	if err := s.dir.read(id, &doc); err != nil {
		logrus.WithField("document_id", id).WithError(err).Warn("Failed to read document")
		return nil, fmt.Errorf("document %w", err)
	}
	return &doc, nil
}

func (s *documentStore) Create(ctx context.Context, document *core.Document) (*core.Document, error) {
	doc := *document
	doc.ID = ulid.Make().String()
	doc.CreatedAt = time.Now().UTC()
	doc.UpdatedAt = doc.CreatedAt

	s.dir.mu.Lock()
	defer s.dir.mu.Unlock()

	log := logrus.WithField("document_id", doc.ID)
	if err := s.dir.write(doc.ID, &doc); err != nil {
		log.WithError(err).Error("Failed to create document")
		return nil, err
	}
	log.Info("Document created successfully")
	return &doc, nil
}

func (s *documentStore) Update(ctx context.Context, id string, patch core.DocumentPatch) (*core.Document, error) {
	s.dir.mu.Lock()
	defer s.dir.mu.Unlock()

	var doc core.Document
	if err := s.dir.read(id, &doc); err != nil {
		return nil, fmt.Errorf("document %w", err)
	}
	patch.Apply(&doc)
	doc.UpdatedAt = time.Now().UTC()

	log := logrus.WithField("document_id", id)
	if err := s.dir.write(id, &doc); err != nil {
		log.WithError(err).Error("Failed to update document")
		return nil, err
	}
	log.Info("Document updated successfully")
	return &doc, nil
}

func (s *documentStore) Delete(ctx context.Context, id string) error {
	s.dir.mu.Lock()
	defer s.dir.mu.Unlock()

	if err := s.dir.remove(id); err != nil {
		return fmt.Errorf("document %w", err)
	}
	logrus.WithField("document_id", id).Info("Document deleted successfully")
	return nil
}

type templateStore struct {
	dir *dir
}

// NewTemplateStore keeps templates as JSON files under basePath/templates.
func NewTemplateStore(basePath string) (core.TemplateStore, error) {
	d, err := newDir(basePath, templatesDir)
	if err != nil {
		return nil, err
	}
	return &templateStore{dir: d}, nil
}

func (s *templateStore) GetAll(ctx context.Context) ([]*core.Template, error) {
	s.dir.mu.RLock()
	defer s.dir.mu.RUnlock()

	tpls := []*core.Template{}
	err := s.dir.each(func(data []byte) error {
		var tpl core.Template
		if err := json.Unmarshal(data, &tpl); err != nil {
			return err
		}
		tpls = append(tpls, &tpl)
		return nil
	})
	if err != nil {
		return nil, err
	}
	core.SortOldestFirst(tpls)
	return tpls, nil
}

func (s *templateStore) GetByID(ctx context.Context, id string) (*core.Template, error) {
	s.dir.mu.RLock()
	defer s.dir.mu.RUnlock()

	var tpl core.Template
	if err := s.dir.read(id, &tpl); err != nil {
		return nil, fmt.Errorf("template %w", err)
	}
	return &tpl, nil
}

func (s *templateStore) Save(ctx context.Context, template *core.Template) (*core.Template, error) {
	tpl := *template
	tpl.ID = ulid.Make().String()
	tpl.CreatedAt = time.Now().UTC()
	tpl.UpdatedAt = tpl.CreatedAt

	s.dir.mu.Lock()
	defer s.dir.mu.Unlock()

	if err := s.dir.write(tpl.ID, &tpl); err != nil {
		logrus.WithField("template_id", tpl.ID).WithError(err).Error("Failed to save template")
		return nil, err
	}
	return &tpl, nil
}

func (s *templateStore) Update(ctx context.Context, template *core.Template) (*core.Template, error) {
	s.dir.mu.Lock()
	defer s.dir.mu.Unlock()

	var existing core.Template
	if err := s.dir.read(template.ID, &existing); err != nil {
		return nil, fmt.Errorf("template %w", err)
	}
	tpl := *template
	tpl.CreatedAt = existing.CreatedAt
	tpl.UpdatedAt = time.Now().UTC()
	if err := s.dir.write(tpl.ID, &tpl); err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (s *templateStore) Delete(ctx context.Context, id string) error {
	s.dir.mu.Lock()
	defer s.dir.mu.Unlock()

	if err := s.dir.remove(id); err != nil {
		return fmt.Errorf("template %w", err)
	}
	return nil
}
