// Package store provides a small document-database abstraction used by the
// catalog, collection and blog services. Documents live in named collections,
// are keyed by opaque string ids and hold JSON-compatible field maps.
//
// Backends: in-memory (tests and local runs), SQLite through gorm, Firestore
// and MongoDB. All of them honour the same semantics for timestamps, filters,
// ordering and counting.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned by Create when the id is taken.
	ErrAlreadyExists = errors.New("document already exists")
)

// Error wraps a failed store operation with the collection it touched.
type Error struct {
	Op         string
	Collection string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapErr(op, collection string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Collection: collection, Err: err}
}

// Timestamp field names maintained by every backend.
const (
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// DocumentStore is implemented by every backend.
type DocumentStore interface {
	// Get returns ErrNotFound when the document is missing.
	Get(ctx context.Context, collection, id string) (*Document, error)
	// Create inserts a new document. An empty id asks the backend for a
	// generated one. Returns the document id.
	Create(ctx context.Context, collection, id string, data interface{}) (string, error)
	// Set merges data into the document, creating it when missing.
	Set(ctx context.Context, collection, id string, data interface{}) error
	// Update merges fields into an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]interface{}) error
	// Increment adds delta to a numeric field of an existing document.
	Increment(ctx context.Context, collection, id, field string, delta int) error
	// Delete removes the document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, q Query) ([]Document, error)
	Count(ctx context.Context, q Query) (int, error)
	Close() error
}

// Document is a single stored record.
type Document struct {
	ID   string
	Data map[string]interface{}
}

// DataTo decodes the document fields into v (a pointer to a struct with json
// tags). The document id is exposed to v under the "id" key when v does not
// already carry one.
func (d *Document) DataTo(v interface{}) error {
	data := d.Data
	if _, ok := data["id"]; !ok {
		data = make(map[string]interface{}, len(d.Data)+1)
		for k, val := range d.Data {
			data[k] = val
		}
		data["id"] = d.ID
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", d.ID, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode document %s: %w", d.ID, err)
	}
	return nil
}

// Int returns a numeric field as int, or 0.
func (d *Document) Int(field string) int {
	f, ok := toFloat(d.Data[field])
	if !ok {
		return 0
	}
	return int(f)
}

// String returns a string field, or "".
func (d *Document) String(field string) string {
	s, _ := d.Data[field].(string)
	return s
}

// ToFields converts a struct (via its json tags) or a map into a field map
// with normalized values: integral numbers become int64, other numbers
// float64, nested objects map[string]interface{} and arrays []interface{}.
func ToFields(data interface{}) (map[string]interface{}, error) {
	if data == nil {
		return map[string]interface{}{}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out interface{}
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	m, ok := normalizeValue(out).(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("document data must be an object, got %T", data)
	}
	return m, nil
}

func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	case map[string]interface{}:
		for k, inner := range val {
			val[k] = normalizeValue(inner)
		}
		return val
	case []interface{}:
		for i, inner := range val {
			val[i] = normalizeValue(inner)
		}
		return val
	default:
		return val
	}
}

// stampCreate sets both timestamps on a new document.
func stampCreate(fields map[string]interface{}, now time.Time) {
	fields[FieldCreatedAt] = now
	fields[FieldUpdatedAt] = now
}

// stampUpdate refreshes updatedAt and drops any createdAt carried by the caller.
func stampUpdate(fields map[string]interface{}, now time.Time) {
	delete(fields, FieldCreatedAt)
	fields[FieldUpdatedAt] = now
}
