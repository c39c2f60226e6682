// Package storetest holds behaviour checks shared by every store backend.
package storetest

import (
	"collab-docs/core"
	"context"
	"errors"
	"testing"
	"time"
)

// DocumentStore runs the document store checks against stores made by newStore.
// Each subtest gets a fresh store.
func DocumentStore(t *testing.T, newStore func(t *testing.T) core.DocumentStore) {
	t.Run("CreateAndGet", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		created, err := store.Create(ctx, &core.Document{Name: "Notes", Type: core.DocumentWord, Content: "# Hi", AuthorID: "u1"})
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		if len(created.ID) != 26 {
			t.Errorf("Create() returned invalid ID %q, want a ULID", created.ID)
		}
		if created.CreatedAt.IsZero() || !created.UpdatedAt.Equal(created.CreatedAt) {
			t.Errorf("Create() timestamps not set: created=%v updated=%v", created.CreatedAt, created.UpdatedAt)
		}

		got, err := store.Get(ctx, created.ID)
		if err != nil {
			t.Fatalf("Get() failed: %v", err)
		}
		if got.Name != "Notes" || got.Type != core.DocumentWord || got.Content != "# Hi" || got.AuthorID != "u1" {
			t.Errorf("Get() = %+v, want the created document", got)
		}
		if !got.CreatedAt.Equal(created.CreatedAt) {
			t.Errorf("Get() CreatedAt = %v, want %v", got.CreatedAt, created.CreatedAt)
		}
	})

	t.Run("CreateIgnoresInputID", func(t *testing.T) {
		store := newStore(t)
		created, err := store.Create(context.Background(), &core.Document{ID: "client-id", Name: "x", Type: core.DocumentPDF})
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		if created.ID == "client-id" {
			t.Error("Create() kept the caller supplied ID")
		}
	})

	t.Run("GetNotFound", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Get(context.Background(), "01HZZZZZZZZZZZZZZZZZZZZZZZ")
		if !errors.Is(err, core.ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		if docs, err := store.List(ctx); err != nil || len(docs) != 0 {
			t.Fatalf("List() on empty store = %v, %v", docs, err)
		}

		var ids []string
		for _, name := range []string{"first", "second", "third"} {
			d, err := store.Create(ctx, &core.Document{Name: name, Type: core.DocumentExcel})
			if err != nil {
				t.Fatalf("Create(%s) failed: %v", name, err)
			}
			ids = append(ids, d.ID)
			time.Sleep(2 * time.Millisecond)
		}

		docs, err := store.List(ctx)
		if err != nil {
			t.Fatalf("List() failed: %v", err)
		}
		if len(docs) != 3 {
			t.Fatalf("List() returned %d documents, want 3", len(docs))
		}
		for i, want := range []string{ids[2], ids[1], ids[0]} {
			if docs[i].ID != want {
				t.Errorf("List()[%d] = %s, want %s", i, docs[i].ID, want)
			}
		}
	})

	t.Run("UpdatePatch", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		created, err := store.Create(ctx, &core.Document{Name: "Draft", Type: core.DocumentWord, Content: "old"})
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		time.Sleep(2 * time.Millisecond)

		content := "new"
		updated, err := store.Update(ctx, created.ID, core.DocumentPatch{Content: &content})
		if err != nil {
			t.Fatalf("Update() failed: %v", err)
		}
		if updated.Content != "new" || updated.Name != "Draft" || updated.Type != core.DocumentWord {
			t.Errorf("Update() = %+v, want only content changed", updated)
		}
		if !updated.UpdatedAt.After(created.UpdatedAt) {
			t.Errorf("Update() UpdatedAt = %v, want after %v", updated.UpdatedAt, created.UpdatedAt)
		}
		if !updated.CreatedAt.Equal(created.CreatedAt) {
			t.Errorf("Update() changed CreatedAt")
		}

		got, err := store.Get(ctx, created.ID)
		if err != nil {
			t.Fatalf("Get() failed: %v", err)
		}
		if got.Content != "new" {
			t.Errorf("Get() after Update() content = %q, want %q", got.Content, "new")
		}
	})

	t.Run("UpdateNotFound", func(t *testing.T) {
		store := newStore(t)
		name := "x"
		_, err := store.Update(context.Background(), "01HZZZZZZZZZZZZZZZZZZZZZZZ", core.DocumentPatch{Name: &name})
		if !errors.Is(err, core.ErrNotFound) {
			t.Errorf("Update() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		created, err := store.Create(ctx, &core.Document{Name: "gone", Type: core.DocumentPDF})
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}

		if err := store.Delete(ctx, created.ID); err != nil {
			t.Fatalf("Delete() failed: %v", err)
		}
		if _, err := store.Get(ctx, created.ID); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("Get() after Delete() error = %v, want ErrNotFound", err)
		}
		if err := store.Delete(ctx, created.ID); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("second Delete() error = %v, want ErrNotFound", err)
		}
	})
}

// TemplateStore runs the template store checks against stores made by newStore.
func TemplateStore(t *testing.T, newStore func(t *testing.T) core.TemplateStore) {
	t.Run("SaveAndGet", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		saved, err := store.Save(ctx, &core.Template{ID: "ignored", Name: "Weekly", Content: "## Week"})
		if err != nil {
			t.Fatalf("Save() failed: %v", err)
		}
		if saved.ID == "" || saved.ID == "ignored" {
			t.Errorf("Save() ID = %q, want a new ID", saved.ID)
		}

		got, err := store.GetByID(ctx, saved.ID)
		if err != nil {
			t.Fatalf("GetByID() failed: %v", err)
		}
		if got.Name != "Weekly" || got.Content != "## Week" {
			t.Errorf("GetByID() = %+v", got)
		}
	})

	t.Run("GetAllInCreationOrder", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		if tpls, err := store.GetAll(ctx); err != nil || len(tpls) != 0 {
			t.Fatalf("GetAll() on empty store = %v, %v", tpls, err)
		}
		a, _ := store.Save(ctx, &core.Template{Name: "a", Content: "a"})
		time.Sleep(2 * time.Millisecond)
		b, _ := store.Save(ctx, &core.Template{Name: "b", Content: "b"})

		tpls, err := store.GetAll(ctx)
		if err != nil {
			t.Fatalf("GetAll() failed: %v", err)
		}
		if len(tpls) != 2 || tpls[0].ID != a.ID || tpls[1].ID != b.ID {
			t.Errorf("GetAll() = %+v, want [a b]", tpls)
		}
	})

	t.Run("Update", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		saved, err := store.Save(ctx, &core.Template{Name: "a", Content: "a"})
		if err != nil {
			t.Fatalf("Save() failed: %v", err)
		}

		updated, err := store.Update(ctx, &core.Template{ID: saved.ID, Name: "renamed", Content: "b"})
		if err != nil {
			t.Fatalf("Update() failed: %v", err)
		}
		if updated.Name != "renamed" || !updated.CreatedAt.Equal(saved.CreatedAt) {
			t.Errorf("Update() = %+v", updated)
		}

		_, err = store.Update(ctx, &core.Template{ID: "01HZZZZZZZZZZZZZZZZZZZZZZZ", Name: "x"})
		if !errors.Is(err, core.ErrNotFound) {
			t.Errorf("Update() of missing template error = %v, want ErrNotFound", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		saved, _ := store.Save(ctx, &core.Template{Name: "a", Content: "a"})

		if err := store.Delete(ctx, saved.ID); err != nil {
			t.Fatalf("Delete() failed: %v", err)
		}
		if _, err := store.GetByID(ctx, saved.ID); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("GetByID() after Delete() error = %v, want ErrNotFound", err)
		}
	})
}
