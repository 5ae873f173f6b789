package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/velmark/taskrail-backend/internal/domain"
)

// errorResponse is the JSON body of every non-2xx response.
type errorResponse struct {
	Error  string              `json:"error"`
	Fields []fieldErrorPayload `json:"fields,omitempty"`
}

type fieldErrorPayload struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// respondError maps a domain error to an HTTP status. Unrecognized errors
// are logged and hidden behind a plain 500.
func respondError(ctx context.Context, log *slog.Logger, w http.ResponseWriter, err error) {
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		resp := errorResponse{Error: "validation failed"}
		for _, fe := range vErr.Errors {
			resp.Fields = append(resp.Fields, fieldErrorPayload{Field: fe.Field, Message: fe.Message})
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrExpired):
		writeError(w, http.StatusGone, err.Error())
	case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrTooManyItems):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, domain.ErrResolutionFailed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.ErrorContext(ctx, "request failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
