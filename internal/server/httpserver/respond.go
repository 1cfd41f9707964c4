package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Nguyentram30/activity-portal/internal/errs"
	"github.com/Nguyentram30/activity-portal/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

const maxJSONBody = 1 << 20

// errorBody is the envelope of every non-2xx JSON response.
type errorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, msg string, fields map[string]string) {
	writeJSON(w, status, errorBody{Error: code, Message: msg, Fields: fields})
}

// writeServiceError maps service errors onto HTTP statuses. Unclassified errors are
// logged and answered with a bare 500.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error) {
	var ve *errs.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", "validation failed", ve.Fields)
	case errors.Is(err, errs.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error(), nil)
	case errors.Is(err, errs.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error(), nil)
	case errors.Is(err, errs.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, errs.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already_exists", err.Error(), nil)
	case errors.Is(err, errs.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error(), nil)
	case errors.Is(err, errs.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate_limited", err.Error(), nil)
	case errors.Is(err, errs.ErrValidation):
		writeError(w, http.StatusBadRequest, "bad_request", err.Error(), nil)
	default:
		if log != nil {
			log.Error("request failed", zap.Error(err))
		}
		writeError(w, http.StatusInternalServerError, "internal", "internal error", nil)
	}
}

// decodeJSON reads a JSON body into out. Malformed input is a validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode body: %v: %w", err, errs.ErrValidation)
	}
	return nil
}

// decodeOptionalJSON is decodeJSON that accepts an empty body.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode body: %v: %w", err, errs.ErrValidation)
	}
	return nil
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.FromString(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, errs.Invalid(name, "invalid id")
	}
	return id, nil
}

func writeBlob(w http.ResponseWriter, b *model.Blob) {
	w.Header().Set("Content-Type", b.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", b.FileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b.Data)
}
