package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rpupo63/portfolio-backend/errs"
	"github.com/rs/zerolog"
)

type Responder struct {
	logger zerolog.Logger
}

func NewResponder(logger zerolog.Logger) Responder {
	return Responder{logger}
}

func (r Responder) WriteJSON(w http.ResponseWriter, data any) {
	r.WriteJSONStatus(w, http.StatusOK, data)
}

// WriteJSONStatus marshals data before touching the response so a marshal
// failure can still become a 500.
func (r Responder) WriteJSONStatus(w http.ResponseWriter, status int, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		r.logger.Error().Err(err).Msg("error marshaling response data")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(jsonData); err != nil {
		r.logger.Error().Err(err).Msg("error writing response")
	}
}

func (r Responder) WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func (r Responder) WriteError(w http.ResponseWriter, err error) {
	var validationErr *errs.ValidationError
	if errors.As(err, &validationErr) {
		r.logger.Debug().Str("error", validationErr.Error()).Msg("validation failed")
		r.WriteJSONStatus(w, http.StatusBadRequest, validationErr.Fields)
		return
	}

	var apiErr *errs.ApiErr

	// For unexpected errors, log and return generic internal error
	if !errors.As(err, &apiErr) {
		r.logger.Error().Err(err).Msg("unexpected error")
		r.WriteJSONStatus(w, http.StatusInternalServerError, ErrorResponse{
			Error:  "Internal Server Error",
			Status: "error",
		})
		return
	}

	switch {
	case apiErr.StatusCode >= http.StatusInternalServerError:
		r.logger.Error().Int("status", apiErr.StatusCode).Msg(apiErr.GetFullError())
		r.WriteJSONStatus(w, apiErr.StatusCode, ErrorResponse{
			Error:  apiErr.Message(),
			Status: "error",
		})
		return
	case errs.IsNotFound(apiErr):
		// entity routes answer a bare 404
		r.logger.Debug().Msg(apiErr.GetFullError())
		w.WriteHeader(http.StatusNotFound)
		return
	}

	event := r.logger.Warn()
	if reason := clientRejection(apiErr); reason != "" {
		event = r.logger.Info().Str("reason", reason)
	}
	event.Int("status", apiErr.StatusCode).Msg(apiErr.GetFullError())
	r.WriteJSONStatus(w, apiErr.StatusCode, ErrorResponse{
		Error:   apiErr.Message(),
		Status:  "error",
		Field:   apiErr.Field,
		Details: apiErr.Details,
	})
}

// clientRejection names the expected refusals that are logged at info rather
// than warn.
func clientRejection(err error) string {
	switch {
	case errs.IsNotAuthenticatedError(err):
		return "not_authenticated"
	case errs.IsInsufficientRoleError(err):
		return "insufficient_role"
	case errs.IsCSRFError(err):
		return "csrf"
	case errs.IsProtectedReference(err):
		return "protected_reference"
	case errs.IsUnsupportedMediaTypeError(err):
		return "unsupported_media_type"
	case errs.IsMaxBodySizeExceededError(err):
		return "body_too_large"
	}
	return ""
}

// wrapDatabaseError wraps a database error with context information
func wrapDatabaseError(operation, entity string, cause error) error {
	return errs.NewDatabaseError(operation, entity, cause)
}
