package store

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// Op is a filter comparison operator. The values mirror Firestore's.
type Op string

const (
	OpEqual         Op = "=="
	OpNotEqual      Op = "!="
	OpLess          Op = "<"
	OpLessEqual     Op = "<="
	OpGreater       Op = ">"
	OpGreaterEqual  Op = ">="
	OpIn            Op = "in"
	OpArrayContains Op = "array-contains"
)

// Filter restricts a query to documents whose field satisfies Op against Value.
type Filter struct {
	Field string
	Op    Op
	Value interface{}
}

// Query describes a collection scan. Filters are ANDed together.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
	Offset     int
}

// NewQuery starts a query over collection.
func NewQuery(collection string) Query {
	return Query{Collection: collection}
}

// Where returns a copy of q with an extra filter.
func (q Query) Where(field string, op Op, value interface{}) Query {
	filters := make([]Filter, len(q.Filters), len(q.Filters)+1)
	copy(filters, q.Filters)
	q.Filters = append(filters, Filter{Field: field, Op: op, Value: value})
	return q
}

// Order returns a copy of q sorted by field.
func (q Query) Order(field string, descending bool) Query {
	q.OrderBy = field
	q.Descending = descending
	return q
}

// Take returns a copy of q limited to n documents.
func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}

// Skip returns a copy of q that skips the first n documents.
func (q Query) Skip(n int) Query {
	q.Offset = n
	return q
}

func (q Query) validate() error {
	if q.Collection == "" {
		return fmt.Errorf("query has no collection")
	}
	for _, f := range q.Filters {
		if f.Op == OpIn {
			if _, ok := toSlice(f.Value); !ok {
				return fmt.Errorf("filter %s in: value must be a slice, got %T", f.Field, f.Value)
			}
		}
	}
	return nil
}

// matches reports whether a document satisfies every filter in q.
func (q Query) matches(data map[string]interface{}) bool {
	for _, f := range q.Filters {
		if !f.matches(data) {
			return false
		}
	}
	return true
}

func (f Filter) matches(data map[string]interface{}) bool {
	actual, present := data[f.Field]
	switch f.Op {
	case OpEqual:
		return present && equalValues(actual, f.Value)
	case OpNotEqual:
		return present && !equalValues(actual, f.Value)
	case OpIn:
		if !present {
			return false
		}
		values, _ := toSlice(f.Value)
		for _, v := range values {
			if equalValues(actual, v) {
				return true
			}
		}
		return false
	case OpArrayContains:
		items, ok := toSlice(actual)
		if !ok {
			return false
		}
		for _, item := range items {
			if equalValues(item, f.Value) {
				return true
			}
		}
		return false
	case OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		if !present {
			return false
		}
		c, ok := compareValues(actual, f.Value)
		if !ok {
			return false
		}
		switch f.Op {
		case OpLess:
			return c < 0
		case OpLessEqual:
			return c <= 0
		case OpGreater:
			return c > 0
		default:
			return c >= 0
		}
	}
	return false
}

// apply filters, orders and windows docs in memory.
func (q Query) apply(docs []Document) []Document {
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if q.matches(d.Data) {
			out = append(out, d)
		}
	}

	// Ties in OrderBy resolve by document id.
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if q.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			a, aok := out[i].Data[q.OrderBy]
			b, bok := out[j].Data[q.OrderBy]
			// Documents without the order field sort last.
			if !aok || !bok {
				return aok && !bok
			}
			c, _ := compareValues(a, b)
			if q.Descending {
				return c > 0
			}
			return c < 0
		})
	}

	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return []Document{}
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func equalValues(a, b interface{}) bool {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	if at, ok := toTime(a); ok {
		bt, ok := toTime(b)
		if ok {
			return at.Equal(bt)
		}
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders numbers, times, strings and booleans. The second
// result is false when the values are not comparable.
func compareValues(a, b interface{}) (int, bool) {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		}
		return 0, true
	}
	if at, ok := toTime(a); ok {
		if bt, ok := toTime(b); ok {
			return at.Compare(bt), true
		}
	}
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(as, bs), true
	}
	if ab, ok := a.(bool); ok {
		bb, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case ab == bb:
			return 0, true
		case !ab:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// toTime accepts time.Time values and RFC 3339 strings, which is how
// timestamps come back from JSON-backed stores.
func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if len(t) < len("2006-01-02T15:04:05Z") || t[4] != '-' || t[10] != 'T' {
			return time.Time{}, false
		}
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	}
	return time.Time{}, false
}

func toSlice(v interface{}) ([]interface{}, bool) {
	if v == nil {
		return nil, false
	}
	if s, ok := v.([]interface{}); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
