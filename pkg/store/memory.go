package store

import (
	"context"
	"sync"
)

// Memory is a Store held in process memory. Documents are copied on the way
// in and out.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string]map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, collection, id string) (Document, error) {
	m.mu.RLock()
	data, ok := m.docs[collection][id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decode(data)
}

func (m *Memory) Set(_ context.Context, collection, id string, doc Document) error {
	data, err := encode(doc)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(collection, id, data)
	return nil
}

func (m *Memory) Merge(_ context.Context, collection, id string, patch Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := Document{}
	if data, ok := m.docs[collection][id]; ok {
		doc, err := decode(data)
		if err != nil {
			return err
		}
		current = doc
	}

	data, err := encode(MergePatch(current, patch))
	if err != nil {
		return err
	}
	m.put(collection, id, data)
	return nil
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs[collection], id)
	return nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) put(collection, id string, data []byte) {
	c, ok := m.docs[collection]
	if !ok {
		c = make(map[string][]byte)
		m.docs[collection] = c
	}
	c[id] = data
}
