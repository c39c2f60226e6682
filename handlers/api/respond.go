// Package api holds the response helpers shared by the REST handlers.
package api

import (
	"collab-docs/core"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

// Error renders {"error": message} with status.
func Error(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": message})
}

// StoreError maps a store failure on entity to 404 or 500.
func StoreError(w http.ResponseWriter, r *http.Request, err error, entity string) {
	if errors.Is(err, core.ErrNotFound) {
		Error(w, r, http.StatusNotFound, fmt.Sprintf("%s not found", entity))
		return
	}
	logrus.WithFields(logrus.Fields{
		"error":  err,
		"path":   r.URL.Path,
		"method": r.Method,
	}).Error("Store operation failed")
	Error(w, r, http.StatusInternalServerError, fmt.Sprintf("Failed to access %s", entity))
}
