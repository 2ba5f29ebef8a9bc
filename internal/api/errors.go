package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-records/internal/record"
	"github.com/nerrad567/gray-logic-records/internal/schema"
	"github.com/nerrad567/gray-logic-records/internal/sqlexec"
	"github.com/nerrad567/gray-logic-records/internal/store"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeNotFound        = "not_found"
	ErrCodeUnauthorized    = "unauthorised"
	ErrCodeConflict        = "conflict"
	ErrCodeInternal        = "internal_error"
	ErrCodeValidation      = "validation_error"
	ErrCodeRejected        = "statement_rejected"
	ErrCodeRateLimited     = "rate_limited"
	ErrCodePayloadTooLarge = "payload_too_large"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeRawJSON writes an already-encoded JSON body.
func writeRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body) //nolint:errcheck // Best-effort write to response
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// validationErrors are caller mistakes caught before any statement runs.
var validationErrors = []error{
	schema.ErrInvalidIdentifier,
	schema.ErrInvalidColumnType,
	schema.ErrDuplicateColumn,
	schema.ErrMissingID,
	schema.ErrSchemaMismatch,
	record.ErrUnsupportedType,
	store.ErrReservedTable,
	store.ErrEmptyRecordSet,
	store.ErrIDColumn,
	store.ErrInvalidRelation,
	store.ErrInvalidJSON,
}

// writeStoreError maps a store failure onto an HTTP status.
// Unrecognised errors are logged and reported as 500.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		writeError(w, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, err.Error())
	case errors.Is(err, store.ErrTableNotFound), errors.Is(err, store.ErrRelationNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, store.ErrTableAlreadyExists), errors.Is(err, store.ErrRelationExists):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, sqlexec.ErrExecutionFailed), errors.Is(err, sqlexec.ErrTransactionFailed):
		writeError(w, http.StatusUnprocessableEntity, ErrCodeRejected, err.Error())
	default:
		s.logger.Error("store operation failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeInternalError(w, "internal server error")
	}
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
