package errs

import (
	"errors"
	"sort"
	"strings"
)

// Kind is the coarse failure class a caller presents to a user.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindAuthenticationRequired
	KindAuthorizationDenied
	KindValidation
	KindNotFound
	KindConflict
	KindRateLimited
	KindServerFault
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network_failure"
	case KindAuthenticationRequired:
		return "authentication_required"
	case KindAuthorizationDenied:
		return "authorization_denied"
	case KindValidation:
		return "validation_failure"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRateLimited:
		return "rate_limited"
	case KindServerFault:
		return "server_fault"
	default:
		return "unknown"
	}
}

// KindOf maps sentinel-wrapping errors to a Kind. Errors that wrap none of the
// package sentinels are KindUnknown.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrUnauthorized):
		return KindAuthenticationRequired
	case errors.Is(err, ErrForbidden):
		return KindAuthorizationDenied
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrAlreadyExists):
		return KindConflict
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	default:
		return KindUnknown
	}
}

// ValidationError carries per-field messages and unwraps to ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

// Add records a message for field. The first message per field wins.
func (v *ValidationError) Add(field, msg string) {
	if v.Fields == nil {
		v.Fields = map[string]string{}
	}
	if _, ok := v.Fields[field]; !ok {
		v.Fields[field] = msg
	}
}

// Err returns nil when no field failed, v otherwise.
func (v *ValidationError) Err() error {
	if v == nil || len(v.Fields) == 0 {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a single-field validation error.
func Invalid(field, msg string) error {
	v := &ValidationError{}
	v.Add(field, msg)
	return v
}
