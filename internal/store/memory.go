package store

import (
	"context"
	"maps"
	"slices"
	"sync"
)

var _ Backend = (*Memory)(nil)

// Memory is an in-process Backend. It is safe for concurrent use and keeps
// records in insertion order.
type Memory struct {
	mu      sync.RWMutex
	records map[string]*Record
	order   []string
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]*Record)}
}

func (m *Memory) Put(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[rec.ID]; ok {
		return &DuplicateIDError{ID: rec.ID}
	}
	m.records[rec.ID] = cloneRecord(rec)
	m.order = append(m.order, rec.ID)
	return nil
}

func (m *Memory) PutAll(ctx context.Context, recs []*Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]struct{}, len(recs))
	for _, rec := range recs {
		if _, ok := m.records[rec.ID]; ok {
			return &DuplicateIDError{ID: rec.ID}
		}
		if _, ok := seen[rec.ID]; ok {
			return &DuplicateIDError{ID: rec.ID}
		}
		seen[rec.ID] = struct{}{}
	}

	for _, rec := range recs {
		m.records[rec.ID] = cloneRecord(rec)
		m.order = append(m.order, rec.ID)
	}
	return nil
}

func (m *Memory) Get(ctx context.Context, id string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	return cloneRecord(rec), nil
}

func (m *Memory) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return false, nil
	}
	delete(m.records, id)
	m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == id })
	return true, nil
}

func (m *Memory) Scan(ctx context.Context) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Record, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, cloneRecord(m.records[id]))
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }

// cloneRecord copies rec so callers cannot mutate stored state through the
// frequency map.
func cloneRecord(rec *Record) *Record {
	c := *rec
	c.Properties.CharacterFrequencyMap = maps.Clone(rec.Properties.CharacterFrequencyMap)
	return &c
}
