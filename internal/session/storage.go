package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Storage is the durable key-value backend of a Store. Commit must apply all sets and
// deletes together: after a crash either every change is visible or none is.
type Storage interface {
	Load() (map[string][]byte, error)
	Commit(set map[string][]byte, del []string) error
}

// FileStorage keeps all entries in one JSON file. Each commit rewrites the file through
// a temporary sibling and a rename.
type FileStorage struct {
	path string
	mu   sync.Mutex
}

// NewFileStorage returns a storage backed by path. The file is created on first commit.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Path returns the backing file path.
func (f *FileStorage) Path() string { return f.path }

// Load returns the stored entries. A missing file is an empty store.
func (f *FileStorage) Load() (map[string][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read()
}

func (f *FileStorage) read() (map[string][]byte, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string][]byte{}, nil
	}
	if err != nil {
		return nil, err
	}
	var raw map[string]string
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	out := make(map[string][]byte, len(raw))
	for k, v := range raw {
		out[k] = []byte(v)
	}
	return out, nil
}

// Commit merges set into the stored entries, removes del and rewrites the file.
func (f *FileStorage) Commit(set map[string][]byte, del []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cur, err := f.read()
	if err != nil {
		// An unreadable file is replaced rather than left blocking every write.
		cur = map[string][]byte{}
	}
	for _, k := range del {
		delete(cur, k)
	}
	for k, v := range set {
		cur[k] = v
	}

	raw := make(map[string]string, len(cur))
	for k, v := range cur {
		raw[k] = string(v)
	}
	b, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".session-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		cleanup()
		return err
	}
	return nil
}

// MemoryStorage is an in-process Storage. FailCommit makes the next commits fail,
// which lets tests observe the store's rollback behaviour.
type MemoryStorage struct {
	mu         sync.Mutex
	data       map[string][]byte
	FailCommit error
}

// NewMemoryStorage returns a storage pre-populated with seed.
func NewMemoryStorage(seed map[string][]byte) *MemoryStorage {
	data := make(map[string][]byte, len(seed))
	for k, v := range seed {
		data[k] = append([]byte(nil), v...)
	}
	return &MemoryStorage{data: data}
}

func (m *MemoryStorage) Load() (map[string][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]byte, len(m.data))
	for k, v := range m.data {
		out[k] = append([]byte(nil), v...)
	}
	return out, nil
}

func (m *MemoryStorage) Commit(set map[string][]byte, del []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCommit != nil {
		return m.FailCommit
	}
	if m.data == nil {
		m.data = map[string][]byte{}
	}
	for _, k := range del {
		delete(m.data, k)
	}
	for k, v := range set {
		m.data[k] = append([]byte(nil), v...)
	}
	return nil
}

// Has reports whether key is stored.
func (m *MemoryStorage) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

// Put overwrites one raw entry, bypassing any validation.
func (m *MemoryStorage) Put(key string, v []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string][]byte{}
	}
	m.data[key] = v
}
