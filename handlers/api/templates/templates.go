package templates

import (
	"collab-docs/core"
	"collab-docs/handlers/api"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

func HandleList(store core.TemplateStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tpls, err := store.GetAll(r.Context())
		if err != nil {
			api.StoreError(w, r, err, "templates")
			return
		}
		if tpls == nil {
			tpls = []*core.Template{}
		}
		render.JSON(w, r, tpls)
	}
}

func HandleGet(store core.TemplateStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tpl, err := store.GetByID(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			api.StoreError(w, r, err, "Template")
			return
		}
		render.JSON(w, r, tpl)
	}
}

func decode(w http.ResponseWriter, r *http.Request) (*core.Template, bool) {
	var tpl core.Template
	if err := render.DecodeJSON(r.Body, &tpl); err != nil {
		api.Error(w, r, http.StatusBadRequest, "Invalid template body")
		return nil, false
	}
	if strings.TrimSpace(tpl.Name) == "" {
		api.Error(w, r, http.StatusBadRequest, "Template name is required")
		return nil, false
	}
	return &tpl, true
}

func HandleCreate(store core.TemplateStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tpl, ok := decode(w, r)
		if !ok {
			return
		}
		saved, err := store.Save(r.Context(), tpl)
		if err != nil {
			api.StoreError(w, r, err, "template")
			return
		}
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, saved)
	}
}

func HandleUpdate(store core.TemplateStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tpl, ok := decode(w, r)
		if !ok {
			return
		}
		tpl.ID = chi.URLParam(r, "id")
		updated, err := store.Update(r.Context(), tpl)
		if err != nil {
			api.StoreError(w, r, err, "Template")
			return
		}
		render.JSON(w, r, updated)
	}
}

func HandleDelete(store core.TemplateStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			api.StoreError(w, r, err, "Template")
			return
		}
		render.NoContent(w, r)
	}
}
