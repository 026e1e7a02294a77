package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/AdamBeresnev/tkd-draws/internal/bracket"
)

func InternalServerError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("bad request", "message", msg, "error", err)
	} else {
		slog.Warn("bad request", "message", msg)
	}
	http.Error(w, msg, http.StatusBadRequest)
}

func NotFound(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("not found", "message", msg, "error", err)
	} else {
		slog.Warn("not found", "message", msg)
	}
	http.Error(w, msg, http.StatusNotFound)
}

func Conflict(w http.ResponseWriter, msg string, err error) {
	slog.Warn("conflict", "message", msg, "error", err)
	http.Error(w, msg, http.StatusConflict)
}

// Error writes the status matching a domain error.
func Error(w http.ResponseWriter, msg string, err error) {
	switch {
	case bracket.IsValidation(err):
		BadRequest(w, err.Error(), err)
	case errors.Is(err, bracket.ErrCompetitionNotFound), errors.Is(err, bracket.ErrDrawNotFound):
		NotFound(w, err.Error(), err)
	case errors.Is(err, bracket.ErrBracketNotReady), errors.Is(err, bracket.ErrUnnumberedMatches):
		Conflict(w, err.Error(), err)
	default:
		InternalServerError(w, msg, err)
	}
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
