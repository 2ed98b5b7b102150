package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps documents in process memory. It backs tests and
// STORE_BACKEND=memory.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]interface{}
	now         func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]map[string]interface{}),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.collections[collection][id]
	if !ok {
		return nil, wrapErr("get", collection, fmt.Errorf("%s: %w", id, ErrNotFound))
	}
	return &Document{ID: id, Data: copyFields(data)}, nil
}

func (s *MemoryStore) Create(ctx context.Context, collection, id string, data interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fields, err := ToFields(data)
	if err != nil {
		return "", wrapErr("create", collection, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		id = uuid.New().String()
	}
	docs := s.collection(collection)
	if _, exists := docs[id]; exists {
		return "", wrapErr("create", collection, fmt.Errorf("%s: %w", id, ErrAlreadyExists))
	}
	stampCreate(fields, s.now())
	docs[id] = fields
	return id, nil
}

func (s *MemoryStore) Set(ctx context.Context, collection, id string, data interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fields, err := ToFields(data)
	if err != nil {
		return wrapErr("set", collection, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.collection(collection)
	existing, ok := docs[id]
	if !ok {
		stampCreate(fields, s.now())
		docs[id] = fields
		return nil
	}
	stampUpdate(fields, s.now())
	for k, v := range fields {
		existing[k] = v
	}
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	normalized, err := ToFields(fields)
	if err != nil {
		return wrapErr("update", collection, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.collections[collection][id]
	if !ok {
		return wrapErr("update", collection, fmt.Errorf("%s: %w", id, ErrNotFound))
	}
	stampUpdate(normalized, s.now())
	for k, v := range normalized {
		existing[k] = v
	}
	return nil
}

func (s *MemoryStore) Increment(ctx context.Context, collection, id, field string, delta int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.collections[collection][id]
	if !ok {
		return wrapErr("increment", collection, fmt.Errorf("%s: %w", id, ErrNotFound))
	}
	current, _ := toFloat(existing[field])
	existing[field] = int64(current) + int64(delta)
	existing[FieldUpdatedAt] = s.now()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.collections[collection], id)
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := q.validate(); err != nil {
		return nil, wrapErr("query", q.Collection, err)
	}
	s.mu.RLock()
	docs := make([]Document, 0, len(s.collections[q.Collection]))
	for id, data := range s.collections[q.Collection] {
		docs = append(docs, Document{ID: id, Data: copyFields(data)})
	}
	s.mu.RUnlock()

	return q.apply(docs), nil
}

func (s *MemoryStore) Count(ctx context.Context, q Query) (int, error) {
	docs, err := s.Query(ctx, q)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// collection must be called with s.mu held for writing.
func (s *MemoryStore) collection(name string) map[string]map[string]interface{} {
	docs, ok := s.collections[name]
	if !ok {
		docs = make(map[string]map[string]interface{})
		s.collections[name] = docs
	}
	return docs
}

func copyFields(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return copyFields(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, inner := range val {
			out[i] = copyValue(inner)
		}
		return out
	default:
		return val
	}
}
