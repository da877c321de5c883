package storage

import (
	"bytes"
	"context"
	"io"
	"sync"
)

type memoryFile struct {
	contentType string
	data        []byte
}

// Memory is an in-memory Backend used by tests and the example server.
type Memory struct {
	mu    sync.RWMutex
	files map[string]memoryFile
	next  int
}

// NewMemory constructs an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{files: make(map[string]memoryFile)}
}

// Exists implements Backend.
func (m *Memory) Exists(_ context.Context, filename string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[filename]
	return ok, nil
}

// Put implements Backend.
func (m *Memory) Put(_ context.Context, filename, contentType string, r io.Reader) (any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.files[filename] = memoryFile{contentType: contentType, data: data}
	return m.next, nil
}

// Open implements Backend.
func (m *Memory) Open(_ context.Context, filename string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[filename]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

// Delete implements Backend.
func (m *Memory) Delete(_ context.Context, filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[filename]; !ok {
		return ErrNotFound
	}
	delete(m.files, filename)
	return nil
}

// Filenames returns the stored names. Test helper.
func (m *Memory) Filenames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	return names
}
