package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"esgrec/internal/core"
	applog "esgrec/internal/log"
	"esgrec/internal/matrix"
	"esgrec/internal/services"
	"esgrec/internal/storage"
)

// validate checks request payload struct tags.
var validate = validator.New(validator.WithRequiredStructEnabled())

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	logger := applog.FromContext(r.Context())
	if status >= 500 {
		logger.ErrorContext(r.Context(), "Request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		logger.WarnContext(r.Context(), "Request rejected",
			"method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	var partial *matrix.PartialSaveError
	var invalid validator.ValidationErrors
	var badJSON badJSONError
	var badParam paramError
	switch {
	case errors.As(err, &badJSON), errors.As(err, &badParam):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrSaveInFlight):
		return http.StatusConflict
	case errors.Is(err, storage.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, matrix.ErrNoAccounts):
		return http.StatusNotFound
	case errors.Is(err, matrix.ErrMissingScope),
		errors.Is(err, core.ErrInvalidAccountID):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrEmptyAccountName):
		return http.StatusUnprocessableEntity
	case errors.As(err, &invalid):
		return http.StatusUnprocessableEntity
	case errors.As(err, &partial):
		// Some writes landed, some did not. The client must refetch.
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errBadJSON(err)
	}
	return nil
}

type badJSONError struct{ err error }

func errBadJSON(err error) error     { return badJSONError{err: err} }
func (e badJSONError) Error() string { return "invalid request body: " + e.err.Error() }
func (e badJSONError) Unwrap() error { return e.err }
