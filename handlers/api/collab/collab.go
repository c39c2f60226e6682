package collab

import (
	"collab-docs/app"
	"collab-docs/components"
	"collab-docs/core"
	"collab-docs/handlers/api"
	"collab-docs/middleware"
	"collab-docs/notifications"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

// Routes exposes one collaboration session over HTTP.
func Routes(s *app.Session) chi.Router {
	r := chi.NewRouter()
	r.Route("/users", func(r chi.Router) {
		r.Get("/", HandleUsers(s))
		r.Post("/", HandleJoin(s))
		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", HandleLeave(s))
			r.Put("/status", HandleStatus(s))
			r.Post("/typing", HandleTyping(s))
		})
	})
	r.Route("/chat", func(r chi.Router) {
		r.Get("/", HandleChatLog(s))
		r.Post("/", HandleChatSend(s))
	})
	r.Route("/toasts", func(r chi.Router) {
		r.Get("/", HandleToasts(s))
		r.Delete("/{id}", HandleDismissToast(s))
	})
	r.Route("/editor", func(r chi.Router) {
		r.Get("/", HandleEditorState(s))
		r.Put("/", HandleEditorInput(s))
		r.Post("/save", HandleEditorSave(s))
		r.Put("/features", HandleEditorFeatures(s))
		r.Post("/templates", HandleSaveAsTemplate(s))
		r.Post("/templates/{id}/apply", HandleApplyTemplate(s))
	})
	return r
}

func userID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		api.Error(w, r, http.StatusBadRequest, "User id must be a number")
		return 0, false
	}
	return id, true
}

// participant is the request's acting user: the explicit name, else the
// authenticated one.
func participant(r *http.Request, name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	name, _ = middleware.NameFromContext(r.Context())
	return name
}

func HandleUsers(s *app.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users := s.Users.Users()
		if term := r.URL.Query().Get("q"); term != "" {
			users = s.Users.Filter(term)
		}
		if users == nil {
			users = []core.User{}
		}
		render.JSON(w, r, users)
	}
}

type JoinRequest struct {
	ID     int             `json:"id,omitempty"`
	Name   string          `json:"name"`
	Status core.UserStatus `json:"status,omitempty"`
}

func HandleJoin(s *app.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req JoinRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			api.Error(w, r, http.StatusBadRequest, "Invalid join body")
			return
		}
		name := participant(r, req.Name)
		if name == "" {
			api.Error(w, r, http.StatusBadRequest, "User name is required")
			return
		}
		if req.Status != "" && !req.Status.Valid() {
			api.Error(w, r, http.StatusBadRequest, "Unknown user status")
			return
		}
		var user core.User
		if req.ID > 0 {
			if _, taken := s.Registry.Find(req.ID); taken {
				api.Error(w, r, http.StatusConflict, "User id already taken")
				return
			}
			user = core.NewUser(req.ID, name, req.Status)
			if !s.Facade.UserJoined(user) {
				api.Error(w, r, http.StatusConflict, "User id already taken")
				return
			}
		} else {
			user = s.Facade.Join(name, req.Status)
		}
		logrus.WithFields(logrus.Fields{"user_id": user.ID, "name": name}).Info("User joined session")
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, user)
	}
}

func HandleLeave(s *app.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := userID(w, r)
		if !ok {
			return
		}
		if _, found := s.Registry.Find(id); !found {
			api.Error(w, r, http.StatusNotFound, "User not found")
			return
		}
		s.Facade.UserLeft(id)
		render.NoContent(w, r)
	}
}

type StatusRequest struct {
	Status core.UserStatus `json:"status"`
}

func HandleStatus(s *app.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := userID(w, r)
		if !ok {
			return
		}
		var req StatusRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil || !req.Status.Valid() {
			api.Error(w, r, http.StatusBadRequest, "Unknown user status")
			return
		}
		if _, found := s.Registry.Find(id); !found {
			api.Error(w, r, http.StatusNotFound, "User not found")
			return
		}
		s.Facade.UpdateUserStatus(id, req.Status)
		user, _ := s.Registry.Find(id)
		render.JSON(w, r, user)
	}
}

func HandleTyping(s *app.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := userID(w, r)
		if !ok {
			return
		}
		if !s.Registry.NotifyTyping(id) {
			api.Error(w, r, http.StatusNotFound, "User not found")
			return
		}
		render.NoContent(w, r)
	}
}

func HandleChatLog(s *app.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		messages := s.Chat.Messages()
		if messages == nil {
			messages = []components.ChatMessage{}
		}
		render.JSON(w, r, messages)
	}
}

type ChatRequest struct {
	User    string `json:"user"`
	Message string `json:"message"`
}

func HandleChatSend(s *app.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			api.Error(w, r, http.StatusBadRequest, "Invalid chat body")
			return
		}
		if err := s.Chat.Send(participant(r, req.User), req.Message); err != nil {
			if errors.Is(err, components.ErrEmptyMessage) {
				api.Error(w, r, http.StatusBadRequest, err.Error())
				return
			}
			api.Error(w, r, http.StatusInternalServerError, "Failed to send message")
			return
		}
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, s.Chat.Messages())
	}
}

func HandleToasts(s *app.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		toasts := s.Notifications.Toasts()
		if toasts == nil {
			toasts = []notifications.Toast{}
		}
		render.JSON(w, r, toasts)
	}
}

func HandleDismissToast(s *app.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			api.Error(w, r, http.StatusBadRequest, "Toast id must be a number")
			return
		}
		s.Notifications.CloseToast(id)
		render.NoContent(w, r)
	}
}

func HandleEditorState(s *app.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, s.Editor.State())
	}
}

type InputRequest struct {
	Content string `json:"content"`
}

func HandleEditorInput(s *app.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req InputRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			api.Error(w, r, http.StatusBadRequest, "Invalid editor body")
			return
		}
		s.Editor.Input(req.Content)
		render.JSON(w, r, s.Editor.State())
	}
}

func HandleEditorSave(s *app.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := s.Editor.Save(r.Context())
		switch {
		case errors.Is(err, components.ErrNoDocument):
			api.Error(w, r, http.StatusConflict, err.Error())
		case errors.Is(err, components.ErrSaveFailed):
			api.Error(w, r, http.StatusBadGateway, err.Error())
		case err != nil:
			api.Error(w, r, http.StatusInternalServerError, "Failed to save document")
		default:
			render.JSON(w, r, doc)
		}
	}
}

func HandleEditorFeatures(s *app.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f components.Features
		if err := render.DecodeJSON(r.Body, &f); err != nil {
			api.Error(w, r, http.StatusBadRequest, "Invalid features body")
			return
		}
		render.JSON(w, r, s.Editor.SetFeatures(f))
	}
}

type TemplateRequest struct {
	Name string `json:"name"`
}

func HandleSaveAsTemplate(s *app.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TemplateRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			api.Error(w, r, http.StatusBadRequest, "Invalid template body")
			return
		}
		tpl, err := s.Editor.SaveAsTemplate(r.Context(), req.Name)
		if err != nil {
			if errors.Is(err, components.ErrEmptyContent) {
				api.Error(w, r, http.StatusBadRequest, err.Error())
				return
			}
			api.StoreError(w, r, err, "template")
			return
		}
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, tpl)
	}
}

func HandleApplyTemplate(s *app.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.Editor.ApplyTemplate(r.Context(), chi.URLParam(r, "id")); err != nil {
			api.StoreError(w, r, err, "Template")
			return
		}
		render.JSON(w, r, s.Editor.State())
	}
}
