package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	pkgcrypto "github.com/Nguyentram30/activity-portal/internal/crypto"
	"github.com/Nguyentram30/activity-portal/internal/errs"
)

// StoredFile describes a file kept by a FileStore.
type StoredFile struct {
	Name        string // storage key
	URL         string
	ContentType string
	Size        int64
}

// FileStore keeps uploaded files and hands out their public URLs.
type FileStore interface {
	Save(ctx context.Context, originalName, contentType string, r io.Reader) (StoredFile, error)
	// Remove deletes the file behind url. Unknown files are ignored.
	Remove(ctx context.Context, url string) error
}

// DiskStore saves uploads under a directory served at baseURL.
type DiskStore struct {
	dir      string
	baseURL  string
	maxBytes int64
}

// NewDiskStore creates dir if needed.
func NewDiskStore(dir, baseURL string, maxBytes int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("upload dir: %w", err)
	}
	return &DiskStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/"), maxBytes: maxBytes}, nil
}

// Dir is the directory files are written to.
func (d *DiskStore) Dir() string { return d.dir }

// Save writes r under a random name keeping the original extension. Content that
// exceeds the size limit is rejected with a validation error.
func (d *DiskStore) Save(_ context.Context, originalName, contentType string, r io.Reader) (StoredFile, error) {
	token, err := pkgcrypto.NewToken(12)
	if err != nil {
		return StoredFile{}, err
	}
	name := token + cleanExt(originalName)

	tmp, err := os.CreateTemp(d.dir, ".upload-*")
	if err != nil {
		return StoredFile{}, err
	}
	defer os.Remove(tmp.Name())

	var head bytes.Buffer
	n, err := io.Copy(tmp, io.TeeReader(io.LimitReader(r, d.maxBytes+1), &limitedBuffer{buf: &head, max: 512}))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return StoredFile{}, err
	}
	if n > d.maxBytes {
		return StoredFile{}, errs.Invalid("file", fmt.Sprintf("larger than %d bytes", d.maxBytes))
	}
	if n == 0 {
		return StoredFile{}, errs.Invalid("file", "empty")
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(head.Bytes())
	}
	if err := os.Rename(tmp.Name(), filepath.Join(d.dir, name)); err != nil {
		return StoredFile{}, err
	}
	return StoredFile{Name: name, URL: d.baseURL + "/" + name, ContentType: contentType, Size: n}, nil
}

func (d *DiskStore) Remove(_ context.Context, url string) error {
	if !strings.HasPrefix(url, d.baseURL+"/") {
		return nil
	}
	name := path.Base(strings.TrimPrefix(url, d.baseURL+"/"))
	if name == "." || name == "/" || strings.HasPrefix(name, ".") {
		return nil
	}
	err := os.Remove(filepath.Join(d.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// cleanExt keeps a short alphanumeric extension and drops anything else.
func cleanExt(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) < 2 || len(ext) > 8 {
		return ""
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ""
		}
	}
	return ext
}

// limitedBuffer keeps the first max bytes written to it.
type limitedBuffer struct {
	buf *bytes.Buffer
	max int
}

func (l *limitedBuffer) Write(p []byte) (int, error) {
	if room := l.max - l.buf.Len(); room > 0 {
		if len(p) < room {
			room = len(p)
		}
		l.buf.Write(p[:room])
	}
	return len(p), nil
}

// contentTypeOf picks a type from the declared value or the file extension.
func contentTypeOf(declared, name string) string {
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			return mt
		}
	}
	return mime.TypeByExtension(cleanExt(name))
}
