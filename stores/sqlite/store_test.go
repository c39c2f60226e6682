package sqlite

import (
	"collab-docs/core"
	"collab-docs/stores/storetest"
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "collab.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDocumentStore(t *testing.T) {
	storetest.DocumentStore(t, func(t *testing.T) core.DocumentStore {
		return NewDocumentStore(openTestDB(t))
	})
}

func TestTemplateStore(t *testing.T) {
	storetest.TemplateStore(t, func(t *testing.T) core.TemplateStore {
		return NewTemplateStore(openTestDB(t))
	})
}

func TestOpen_CreatesTables(t *testing.T) {
	db := openTestDB(t)

	for _, table := range []string{"documents", "templates"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not created: %v", table, err)
		}
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collab.db")
	ctx := context.Background()

	first, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	created, err := NewDocumentStore(first).Create(ctx, &core.Document{Name: "kept", Type: core.DocumentWord, Content: "body"})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	first.Close()

	second, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer second.Close()

	got, err := NewDocumentStore(second).Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() after reopen failed: %v", err)
	}
	if got.Content != "body" {
		t.Errorf("Get() content = %q, want %q", got.Content, "body")
	}
}
