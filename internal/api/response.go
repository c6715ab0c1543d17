package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/manash/iconforge/internal/batch"
	"github.com/manash/iconforge/internal/dispatch"
	"github.com/manash/iconforge/internal/project"
	"github.com/manash/iconforge/internal/store"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Debug("failed to write response", "error", err)
		}
	}
}

// Error writes an error response, mapping domain errors to HTTP status codes.
func Error(w http.ResponseWriter, err error) {
	var de *dispatch.Error
	if errors.As(err, &de) {
		dispatchError(w, de)
		return
	}

	status := http.StatusInternalServerError
	var notFound *project.NotFoundError
	var validation *project.ValidationError

	switch {
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &validation):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrQuotaExceeded):
		status = http.StatusInsufficientStorage
	case errors.Is(err, batch.ErrAlreadyRunning), errors.Is(err, batch.ErrItemRunning):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	JSON(w, status, map[string]string{"error": err.Error()})
}

func dispatchError(w http.ResponseWriter, e *dispatch.Error) {
	body := map[string]any{"error": e.Message}
	if e.Provider != "" {
		body["provider"] = e.Provider
	}
	if e.Model != "" {
		body["model"] = e.Model
	}
	if e.Available != nil {
		body["availableProviders"] = e.Available
	}
	JSON(w, e.Kind.StatusCode(), body)
}

// BadRequest writes a 400 error with the given message.
func BadRequest(w http.ResponseWriter, message string) {
	JSON(w, http.StatusBadRequest, map[string]string{"error": message})
}

const maxBodyBytes = 16 << 20

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		BadRequest(w, "Invalid request body")
		return false
	}
	return true
}
