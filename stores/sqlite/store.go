package sqlite

import (
	"collab-docs/core"
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Open opens the database at dataSourceName and applies pending migrations.
func Open(ctx context.Context, dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		db.Close()
		return nil, err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("goose new provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("goose up: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"dataSourceName": dataSourceName,
		"applied":        len(results),
	}).Info("SQLite migrations applied")
	return db, nil
}

func toTime(nanos int64) time.Time {
	return time.Unix(0, nanos).UTC()
}

type documentStore struct {
	db *sql.DB
}

func NewDocumentStore(db *sql.DB) core.DocumentStore {
	return &documentStore{db}
}

const documentColumns = "id, name, type, content, author_id, created_at, updated_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*core.Document, error) {
	var (
		doc                  core.Document
		createdAt, updatedAt int64
	)
	if err := row.Scan(&doc.ID, &doc.Name, &doc.Type, &doc.Content, &doc.AuthorID, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	doc.CreatedAt = toTime(createdAt)
	doc.UpdatedAt = toTime(updatedAt)
	return &doc, nil
}

func (s *documentStore) List(ctx context.Context) ([]*core.Document, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+documentColumns+" FROM documents ORDER BY created_at DESC, id DESC")
	if err != nil {
		logrus.WithError(err).Error("Failed to list documents")
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("Failed to close document rows")
		}
	}()

	docs := []*core.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *documentStore) Get(ctx context.Context, id string) (*core.Document, error) {
	log := logrus.WithField("document_id", id)
	log.Debug("Retrieving document by ID")

	doc, err := scanDocument(s.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn("Document with specified ID not found")
			return nil, fmt.Errorf("document %s: %w", id, core.ErrNotFound)
		}
		log.WithError(err).Error("Failed to retrieve document")
		return nil, err
	}
	return doc, nil
}

func (s *documentStore) Create(ctx context.Context, document *core.Document) (*core.Document, error) {
	doc := *document
	doc.ID = ulid.Make().String()
	doc.CreatedAt = time.Now().UTC()
	doc.UpdatedAt = doc.CreatedAt
	log := logrus.WithFields(logrus.Fields{
		"document_id":    doc.ID,
		"content_length": len(doc.Content),
	})

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO documents ("+documentColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		doc.ID, doc.Name, doc.Type, doc.Content, doc.AuthorID, doc.CreatedAt.UnixNano(), doc.UpdatedAt.UnixNano())
	if err != nil {
		log.WithError(err).Error("Failed to create document")
		return nil, err
	}
	log.Info("Document created successfully")
	return &doc, nil
}

func (s *documentStore) Update(ctx context.Context, id string, patch core.DocumentPatch) (*core.Document, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	doc, err := scanDocument(tx.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("document %s: %w", id, core.ErrNotFound)
		}
		return nil, err
	}
	patch.Apply(doc)
	doc.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx,
		"UPDATE documents SET name = ?, type = ?, content = ?, updated_at = ? WHERE id = ?",
		doc.Name, doc.Type, doc.Content, doc.UpdatedAt.UnixNano(), id)
	if err != nil {
		logrus.WithField("document_id", id).WithError(err).Error("Failed to update document")
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	logrus.WithField("document_id", id).Info("Document updated successfully")
	return doc, nil
}

func (s *documentStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("document %s: %w", id, core.ErrNotFound)
	}
	logrus.WithField("document_id", id).Info("Document deleted successfully")
	return nil
}

type templateStore struct {
	db *sql.DB
}

func NewTemplateStore(db *sql.DB) core.TemplateStore {
	return &templateStore{db}
}

const templateColumns = "id, name, content, created_at, updated_at"

func scanTemplate(row scanner) (*core.Template, error) {
	var (
		tpl                  core.Template
		createdAt, updatedAt int64
	)
	if err := row.Scan(&tpl.ID, &tpl.Name, &tpl.Content, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	tpl.CreatedAt = toTime(createdAt)
	tpl.UpdatedAt = toTime(updatedAt)
	return &tpl, nil
}

func (s *templateStore) GetAll(ctx context.Context) ([]*core.Template, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+templateColumns+" FROM templates ORDER BY created_at, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tpls := []*core.Template{}
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		tpls = append(tpls, tpl)
	}
	return tpls, rows.Err()
}

func (s *templateStore) GetByID(ctx context.Context, id string) (*core.Template, error) {
	tpl, err := scanTemplate(s.db.QueryRowContext(ctx, "SELECT "+templateColumns+" FROM templates WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("template %s: %w", id, core.ErrNotFound)
		}
		return nil, err
	}
	return tpl, nil
}

func (s *templateStore) Save(ctx context.Context, template *core.Template) (*core.Template, error) {
	tpl := *template
	tpl.ID = ulid.Make().String()
	tpl.CreatedAt = time.Now().UTC()
	tpl.UpdatedAt = tpl.CreatedAt

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO templates ("+templateColumns+") VALUES (?, ?, ?, ?, ?)",
		tpl.ID, tpl.Name, tpl.Content, tpl.CreatedAt.UnixNano(), tpl.UpdatedAt.UnixNano())
	if err != nil {
		logrus.WithField("template_id", tpl.ID).WithError(err).Error("Failed to save template")
		return nil, err
	}
	return &tpl, nil
}

func (s *templateStore) Update(ctx context.Context, template *core.Template) (*core.Template, error) {
	existing, err := s.GetByID(ctx, template.ID)
	if err != nil {
		return nil, err
	}
	tpl := *template
	tpl.CreatedAt = existing.CreatedAt
	tpl.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx,
		"UPDATE templates SET name = ?, content = ?, updated_at = ? WHERE id = ?",
		tpl.Name, tpl.Content, tpl.UpdatedAt.UnixNano(), tpl.ID)
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (s *templateStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM templates WHERE id = ?", id)
	if err != nil {
		return err
	}
	if rows, err := result.RowsAffected(); err != nil {
		return err
	} else if rows == 0 {
		return fmt.Errorf("template %s: %w", id, core.ErrNotFound)
	}
	return nil
}
