package http

import (
	"encoding/json"
	"net/http"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-lessons/internal/render"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// mapError turns a handler error into a status and a user facing message.
// Internal details never reach the response body.
func mapError(err error) (int, errorResponse) {
	if err == nil {
		return http.StatusInternalServerError, errorResponse{Error: "unknown_error"}
	}
	if render.IsNotFound(err) {
		return http.StatusNotFound, errorResponse{Error: "not_found", Message: "lesson not found"}
	}
	if goerrors.IsCategory(err, goerrors.CategoryValidation) {
		return http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "invalid request"}
	}
	return http.StatusInternalServerError, errorResponse{Error: "internal_error", Message: "internal server error"}
}
