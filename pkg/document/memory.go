package document

import (
	"context"
	"fmt"
	"sync"

	"github.com/goliatone/go-docforms/pkg/schema"
	"github.com/goliatone/go-docforms/pkg/storage"
)

// MemoryStore keeps documents in process memory. It exists for tests and
// demos; persisted state is snapshot-isolated, so mutating a live instance
// does not change what was stored until the next Save.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]map[string]any
	files       storage.Backend
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithFileBackend overrides the in-memory file backend.
func WithFileBackend(backend storage.Backend) MemoryOption {
	return func(m *MemoryStore) {
		if backend != nil {
			m.files = backend
		}
	}
}

// NewMemoryStore constructs an empty store with an in-memory file backend.
func NewMemoryStore(options ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		collections: make(map[string][]map[string]any),
		files:       storage.NewMemory(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Files implements Store.
func (m *MemoryStore) Files() storage.Backend { return m.files }

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, inst *Instance) error {
	doc := inst.Schema()
	if !doc.Savable() {
		return fmt.Errorf("document: save %s: %w", doc.Name, ErrNotSavable)
	}
	id := inst.EnsureID()
	snapshot := encodeValues(doc, inst.values)

	m.mu.Lock()
	defer m.mu.Unlock()

	records := m.collections[doc.Collection]
	if err := m.checkUnique(doc, snapshot, id, records); err != nil {
		return err
	}
	for i, rec := range records {
		if sameID(rec[doc.IDField], id) {
			records[i] = snapshot
			inst.MarkSaved()
			return nil
		}
	}
	m.collections[doc.Collection] = append(records, snapshot)
	inst.MarkSaved()
	return nil
}

func (m *MemoryStore) checkUnique(doc *schema.Document, snapshot map[string]any, id any, records []map[string]any) error {
	for _, f := range doc.Fields {
		if !f.Unique {
			continue
		}
		value := snapshot[f.Name]
		if IsEmpty(value) {
			continue
		}
		for _, rec := range records {
			if sameID(rec[doc.IDField], id) {
				continue
			}
			if fmt.Sprint(rec[f.Name]) == fmt.Sprint(value) {
				return fmt.Errorf("document: field %q value %v already exists: %w", f.Name, value, ErrDuplicateKey)
			}
		}
	}
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, inst *Instance) error {
	doc := inst.Schema()
	if !doc.Savable() {
		return fmt.Errorf("document: delete %s: %w", doc.Name, ErrNotSavable)
	}
	id := inst.ID()
	if id == nil {
		return ErrNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	records := m.collections[doc.Collection]
	for i, rec := range records {
		if sameID(rec[doc.IDField], id) {
			m.collections[doc.Collection] = append(records[:i], records[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Find implements Store.
func (m *MemoryStore) Find(_ context.Context, doc *schema.Document, filter map[string]any) ([]*Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Instance
	for _, rec := range m.collections[doc.Collection] {
		if !m.matches(doc, rec, filter) {
			continue
		}
		inst := Hydrate(doc, decodeValues(doc, rec, m.files))
		out = append(out, inst)
	}
	return out, nil
}

func (m *MemoryStore) matches(doc *schema.Document, rec map[string]any, filter map[string]any) bool {
	for name, want := range filter {
		if name == "pk" {
			name = doc.IDField
		}
		got := rec[name]
		if sameID(got, want) {
			continue
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

// Count returns the number of stored records for a collection. Test helper.
func (m *MemoryStore) Count(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collection])
}

func sameID(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a == b {
		return true
	}
	return IDString(a) == IDString(b)
}
