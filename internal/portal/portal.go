// Package portal maps each portal REST endpoint onto one typed method. Services hold
// no state besides the shared API client; every method performs exactly one request
// and returns transport errors unchanged.
package portal

import (
	"context"
	"net/http"
	"net/url"
	"path"

	"github.com/Nguyentram30/activity-portal/internal/apiclient"
	"github.com/Nguyentram30/activity-portal/internal/errs"
)

// Services groups the four endpoint families over one client.
type Services struct {
	Auth     *AuthService
	Activity *ActivityService
	Admin    *AdminService
	Manager  *ManagerService
}

// NewServices wires every service to c.
func NewServices(c *apiclient.Client) *Services {
	return &Services{
		Auth:     NewAuthService(c),
		Activity: NewActivityService(c),
		Admin:    NewAdminService(c),
		Manager:  NewManagerService(c),
	}
}

type validator interface {
	Validate() error
}

// encoder is implemented by the optional query structs of package model.
type encoder interface {
	Values() url.Values
}

func join(parts ...string) string {
	esc := make([]string, len(parts))
	for i, p := range parts {
		esc[i] = url.PathEscape(p)
	}
	return "/" + path.Join(esc...)
}

func getJSON[T any](ctx context.Context, c *apiclient.Client, p string, q encoder) (T, error) {
	var out T
	err := c.Do(ctx, http.MethodGet, p, values(q), nil, &out)
	return out, err
}

func sendJSON[T any](ctx context.Context, c *apiclient.Client, method, p string, body validator) (*T, error) {
	if body != nil {
		if err := body.Validate(); err != nil {
			return nil, err
		}
	}
	var out T
	var in any
	if body != nil {
		in = body
	}
	if err := c.Do(ctx, method, p, nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func values(q encoder) url.Values {
	if q == nil {
		return nil
	}
	return q.Values()
}

// UploadRequest is a file with optional metadata fields.
type UploadRequest struct {
	File  apiclient.FilePart
	Title string
}

func (r UploadRequest) Validate() error {
	v := &errs.ValidationError{}
	if r.File.Content == nil {
		v.Add("file", "required")
	}
	if r.File.Name == "" {
		v.Add("fileName", "required")
	}
	return v.Err()
}

func (r UploadRequest) fields() map[string]string {
	if r.Title == "" {
		return nil
	}
	return map[string]string{"title": r.Title}
}
