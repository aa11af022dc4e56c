package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mathieusouflis/turing/pkg/domain"
	"github.com/mathieusouflis/turing/pkg/schema"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

func writeJSONError(w http.ResponseWriter, status int, name, code, message string, ctx map[string]any) {
	writeJSON(w, status, ErrorResponse{Error: name, Code: code, Message: message, Context: ctx})
}

// writeError maps domain errors to status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, ctx map[string]any) {
	switch {
	case errors.Is(err, domain.ErrMachineNotFound):
		writeJSONError(w, http.StatusNotFound, "MachineNotFoundError", "MACHINE_NOT_FOUND", err.Error(), ctx)
	case errors.Is(err, domain.ErrTemplateNotFound):
		writeJSONError(w, http.StatusNotFound, "TemplateNotFoundError", "TEMPLATE_NOT_FOUND", err.Error(), ctx)
	case errors.Is(err, domain.ErrAlreadyExists):
		writeJSONError(w, http.StatusConflict, "ConflictError", "ALREADY_EXISTS", err.Error(), ctx)
	case errors.Is(err, domain.ErrInvalidID):
		writeJSONError(w, http.StatusBadRequest, "ValidationError", "INVALID_ID", err.Error(), ctx)
	case errors.Is(err, domain.ErrInvalidDefinition):
		if issues := schema.ValidationErrors(err); len(issues) > 0 {
			if ctx == nil {
				ctx = map[string]any{}
			}
			msgs := make([]string, len(issues))
			for i, issue := range issues {
				msgs[i] = issue.Error()
			}
			ctx["issues"] = msgs
		}
		writeJSONError(w, http.StatusBadRequest, "ValidationError", "VALIDATION_ERROR", err.Error(), ctx)
	case r.Context().Err() != nil && errors.Is(err, r.Context().Err()):
		s.logger.Info("Request cancelled", "path", r.URL.Path)
		writeJSONError(w, http.StatusServiceUnavailable, "CancelledError", "CANCELLED", err.Error(), ctx)
	default:
		s.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeJSONError(w, http.StatusInternalServerError, "InternalError", "INTERNAL_ERROR", "internal server error", ctx)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encode failed", "err", err)
	}
}
