// Package apiclient is the single HTTP transport shared by all portal services.
// It owns the base URL, the cookie jar and bearer-token injection.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/Nguyentram30/activity-portal/internal/model"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 20 * time.Second
	maxErrorBody   = 64 * 1024
)

// TokenSource supplies the bearer token for a request. An empty token sends none.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// Client issues JSON, multipart and binary requests against one API base URL.
type Client struct {
	base   *url.URL
	http   *http.Client
	tokens TokenSource
	log    *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. A jar is attached when it has none.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

// WithTokenSource sets the default bearer token provider.
func WithTokenSource(ts TokenSource) Option { return func(c *Client) { c.tokens = ts } }

// WithLogger enables debug logging of calls.
func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = l } }

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if c.http != nil && d > 0 {
			c.http.Timeout = d
		}
	}
}

// New builds a client rooted at baseURL (for example "http://localhost:8080/api").
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		base: u,
		http: &http.Client{Timeout: defaultTimeout},
		log:  zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		c.http.Jar = jar
	}
	return c, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.base.String() }

type callConfig struct {
	bearer    string
	hasBearer bool
	header    http.Header
}

// CallOption adjusts a single request.
type CallOption func(*callConfig)

// WithBearer sends token instead of the token source's for this call.
func WithBearer(token string) CallOption {
	return func(cc *callConfig) {
		cc.bearer = token
		cc.hasBearer = true
	}
}

// WithHeader adds a request header for this call.
func WithHeader(key, value string) CallOption {
	return func(cc *callConfig) {
		if cc.header == nil {
			cc.header = http.Header{}
		}
		cc.header.Add(key, value)
	}
}

// Do sends body (JSON-encoded when non-nil) and decodes a 2xx JSON response into out
// (skipped when out is nil or the response is empty).
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any, opts ...CallOption) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := c.newRequest(ctx, method, path, query, rd, opts)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.roundTrip(req, out)
}

// FilePart is the file half of a multipart upload.
type FilePart struct {
	Name        string
	ContentType string
	Content     io.Reader
}

// Upload posts a multipart form with the file under "file" and one field per entry
// in fields, then decodes the JSON response into out.
func (c *Client) Upload(ctx context.Context, path string, file FilePart, fields map[string]string, out any, opts ...CallOption) error {
	if file.Content == nil {
		return fmt.Errorf("upload %s: no file content", path)
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := mw.WriteField(k, fields[k]); err != nil {
			return err
		}
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	ct := file.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	pw, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(pw, file.Content); err != nil {
		return fmt.Errorf("read upload content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, nil, &buf, opts)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.roundTrip(req, out)
}

// Download fetches a binary payload such as a CSV export.
func (c *Client) Download(ctx context.Context, path string, query url.Values, opts ...CallOption) (*model.Blob, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil, opts)
	if err != nil {
		return nil, err
	}
	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeError(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	blob := &model.Blob{ContentType: resp.Header.Get("Content-Type"), Data: data}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		blob.FileName = params["filename"]
	}
	return blob, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader, opts []CallOption) (*http.Request, error) {
	var cc callConfig
	for _, o := range opts {
		o(&cc)
	}
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawQuery = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	tok := cc.bearer
	if !cc.hasBearer && c.tokens != nil {
		tok = c.tokens.Token()
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	for k, vs := range cc.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return req, nil
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Duration("dur", time.Since(start)),
	}
	if err != nil {
		c.log.Debug("api call failed", append(fields, zap.Error(err))...)
		return nil, err
	}
	c.log.Debug("api call", append(fields, zap.Int("status", resp.StatusCode))...)
	return resp, nil
}

func (c *Client) roundTrip(req *http.Request, out any) error {
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}
