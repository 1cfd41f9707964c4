package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/Nguyentram30/activity-portal/internal/errs"
)

// StatusError is a non-2xx API response. It matches the errs sentinels with errors.Is
// (401 ErrUnauthorized, 403 ErrForbidden, 404 ErrNotFound, 409 ErrConflict or
// ErrAlreadyExists, 400/422 ErrValidation, 429 ErrRateLimited).
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
	Fields     map[string]string
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, msg)
}

// Is matches the sentinel implied by the status code.
func (e *StatusError) Is(target error) bool {
	switch target {
	case errs.ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case errs.ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case errs.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case errs.ErrConflict:
		return e.StatusCode == http.StatusConflict && e.Code != "already_exists"
	case errs.ErrAlreadyExists:
		return e.StatusCode == http.StatusConflict && e.Code == "already_exists"
	case errs.ErrValidation:
		return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity
	case errs.ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// errorBody mirrors the server's error envelope.
type errorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

func decodeError(resp *http.Response) error {
	se := &StatusError{StatusCode: resp.StatusCode}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var eb errorBody
	if err := json.Unmarshal(b, &eb); err == nil {
		se.Code, se.Message, se.Fields = eb.Error, eb.Message, eb.Fields
		if se.Message == "" {
			se.Message = eb.Error
		}
	} else {
		se.Message = strings.TrimSpace(string(b))
	}
	return se
}

// Classify maps an error returned by the client to the failure taxonomy.
func Classify(err error) errs.Kind {
	if err == nil {
		return errs.KindUnknown
	}
	var se *StatusError
	if errors.As(err, &se) {
		if se.StatusCode >= 500 {
			return errs.KindServerFault
		}
		return errs.KindOf(se)
	}
	var ue *url.Error
	var ne net.Error
	if errors.As(err, &ue) || errors.As(err, &ne) {
		return errs.KindNetwork
	}
	return errs.KindOf(err)
}
