package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	domainErrors "github.com/cardhaus/card-exchange-backend/internal/domain/errors"
)

// writeError maps an error to the uniform envelope. Domain errors
// carry their own status code; anything else is an opaque 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *domainErrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Retryable {
			w.Header().Set("Retry-After", "1")
		}
		writeJSON(w, appErr.StatusCode, ErrorResponse{
			Error: ErrorBody{
				Code:    appErr.Code,
				Message: appErr.Message,
				Details: appErr.Details,
			},
		})

		if appErr.StatusCode >= http.StatusInternalServerError {
			slog.ErrorContext(r.Context(), "request failed",
				"code", appErr.Code,
				"path", r.URL.Path,
				"error", err,
			)
		}
		return
	}

	slog.ErrorContext(r.Context(), "unhandled error",
		"path", r.URL.Path,
		"error", err,
	)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error: ErrorBody{
			Code:    "INTERNAL_ERROR",
			Message: "an internal error occurred",
		},
	})
}

func writeValidationError(w http.ResponseWriter, code, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error: ErrorBody{Code: code, Message: message},
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
