package documents

import (
	"collab-docs/core"
	"collab-docs/editor"
	"collab-docs/handlers/api"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

func HandleList(store core.DocumentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := store.List(r.Context())
		if err != nil {
			api.StoreError(w, r, err, "documents")
			return
		}
		if docs == nil {
			docs = []*core.Document{}
		}
		render.JSON(w, r, docs)
	}
}

func HandleGet(store core.DocumentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		doc, err := store.Get(r.Context(), id)
		if err != nil {
			api.StoreError(w, r, err, "Document")
			return
		}
		render.JSON(w, r, doc)
	}
}

func validate(doc *core.Document) string {
	if strings.TrimSpace(doc.Name) == "" {
		return "Document name is required"
	}
	if !doc.Type.Valid() {
		return "Document type must be PDF, Word or Excel"
	}
	return ""
}

func HandleCreate(store core.DocumentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var doc core.Document
		if err := render.DecodeJSON(r.Body, &doc); err != nil {
			api.Error(w, r, http.StatusBadRequest, "Invalid document body")
			return
		}
		if msg := validate(&doc); msg != "" {
			api.Error(w, r, http.StatusBadRequest, msg)
			return
		}

		created, err := store.Create(r.Context(), &doc)
		if err != nil {
			api.StoreError(w, r, err, "document")
			return
		}
		logrus.WithFields(logrus.Fields{
			"id":   created.ID,
			"type": created.Type,
		}).Info("Created document")
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, created)
	}
}

func HandleUpdate(store core.DocumentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var patch core.DocumentPatch
		if err := render.DecodeJSON(r.Body, &patch); err != nil {
			api.Error(w, r, http.StatusBadRequest, "Invalid document body")
			return
		}
		if patch.Empty() {
			api.Error(w, r, http.StatusBadRequest, "Nothing to update")
			return
		}
		if patch.Type != nil && !patch.Type.Valid() {
			api.Error(w, r, http.StatusBadRequest, "Document type must be PDF, Word or Excel")
			return
		}
		if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
			api.Error(w, r, http.StatusBadRequest, "Document name is required")
			return
		}

		updated, err := store.Update(r.Context(), id, patch)
		if err != nil {
			api.StoreError(w, r, err, "Document")
			return
		}
		render.JSON(w, r, updated)
	}
}

func HandleDelete(store core.DocumentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			api.StoreError(w, r, err, "Document")
			return
		}
		render.NoContent(w, r)
	}
}

type RenderRequest struct {
	ID      string `json:"id,omitempty"`
	Content string `json:"content,omitempty"`
}

type RenderResponse struct {
	HTML string `json:"html"`
}

// HandleRender renders a stored document by id, or the posted content.
func HandleRender(store core.DocumentStore, renderer editor.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RenderRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			api.Error(w, r, http.StatusBadRequest, "Invalid render body")
			return
		}

		doc := &core.Document{Content: req.Content}
		if req.ID != "" {
			stored, err := store.Get(r.Context(), req.ID)
			if err != nil {
				api.StoreError(w, r, err, "Document")
				return
			}
			doc = stored
		}
		render.JSON(w, r, RenderResponse{HTML: renderer.Render(doc)})
	}
}
