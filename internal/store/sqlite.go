package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/codyseavey/pokemon-collector/backend/internal/database"
	"github.com/codyseavey/pokemon-collector/backend/internal/metrics"
)

// SQLiteStore keeps documents as JSON rows in the gorm "documents" table.
// Equality filters are pushed down to SQLite with json_extract; everything
// else is evaluated in process.
type SQLiteStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSQLiteStore(db *gorm.DB) *SQLiteStore {
	return &SQLiteStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *SQLiteStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	defer observe("sqlite", "get", time.Now())

	rec, err := s.find(s.db.WithContext(ctx), collection, id)
	if err != nil {
		return nil, wrapErr("get", collection, err)
	}
	data, err := decodeRecord(rec)
	if err != nil {
		return nil, wrapErr("get", collection, err)
	}
	return &Document{ID: id, Data: data}, nil
}

func (s *SQLiteStore) Create(ctx context.Context, collection, id string, data interface{}) (string, error) {
	defer observe("sqlite", "create", time.Now())

	fields, err := ToFields(data)
	if err != nil {
		return "", wrapErr("create", collection, err)
	}
	if id == "" {
		id = uuid.New().String()
	}
	now := s.now()
	stampCreate(fields, now)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.find(tx, collection, id); err == nil {
			return fmt.Errorf("%s: %w", id, ErrAlreadyExists)
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		return s.save(tx, collection, id, fields, now, now)
	})
	if err != nil {
		return "", wrapErr("create", collection, err)
	}
	return id, nil
}

func (s *SQLiteStore) Set(ctx context.Context, collection, id string, data interface{}) error {
	defer observe("sqlite", "set", time.Now())

	fields, err := ToFields(data)
	if err != nil {
		return wrapErr("set", collection, err)
	}
	now := s.now()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := s.find(tx, collection, id)
		if errors.Is(err, ErrNotFound) {
			stampCreate(fields, now)
			return s.save(tx, collection, id, fields, now, now)
		}
		if err != nil {
			return err
		}
		existing, err := decodeRecord(rec)
		if err != nil {
			return err
		}
		stampUpdate(fields, now)
		for k, v := range fields {
			existing[k] = v
		}
		return s.save(tx, collection, id, existing, rec.CreatedAt, now)
	})
	return wrapErr("set", collection, err)
}

func (s *SQLiteStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	defer observe("sqlite", "update", time.Now())

	normalized, err := ToFields(fields)
	if err != nil {
		return wrapErr("update", collection, err)
	}
	now := s.now()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := s.find(tx, collection, id)
		if err != nil {
			return err
		}
		existing, err := decodeRecord(rec)
		if err != nil {
			return err
		}
		stampUpdate(normalized, now)
		for k, v := range normalized {
			existing[k] = v
		}
		return s.save(tx, collection, id, existing, rec.CreatedAt, now)
	})
	return wrapErr("update", collection, err)
}

func (s *SQLiteStore) Increment(ctx context.Context, collection, id, field string, delta int) error {
	defer observe("sqlite", "increment", time.Now())

	now := s.now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := s.find(tx, collection, id)
		if err != nil {
			return err
		}
		existing, err := decodeRecord(rec)
		if err != nil {
			return err
		}
		current, _ := toFloat(existing[field])
		existing[field] = int64(current) + int64(delta)
		existing[FieldUpdatedAt] = now
		return s.save(tx, collection, id, existing, rec.CreatedAt, now)
	})
	return wrapErr("increment", collection, err)
}

func (s *SQLiteStore) Delete(ctx context.Context, collection, id string) error {
	defer observe("sqlite", "delete", time.Now())

	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Delete(&database.DocumentRecord{}).Error
	return wrapErr("delete", collection, err)
}

func (s *SQLiteStore) Query(ctx context.Context, q Query) ([]Document, error) {
	defer observe("sqlite", "query", time.Now())

	if err := q.validate(); err != nil {
		return nil, wrapErr("query", q.Collection, err)
	}

	tx := s.db.WithContext(ctx).Where("collection = ?", q.Collection)
	for _, f := range q.Filters {
		if f.Op != OpEqual {
			continue
		}
		switch f.Value.(type) {
		case string, int, int64, float64, bool:
			tx = tx.Where("json_extract(data, ?) = ?", "$."+f.Field, f.Value)
		}
	}

	var recs []database.DocumentRecord
	if err := tx.Find(&recs).Error; err != nil {
		return nil, wrapErr("query", q.Collection, err)
	}

	docs := make([]Document, 0, len(recs))
	for i := range recs {
		data, err := decodeRecord(&recs[i])
		if err != nil {
			return nil, wrapErr("query", q.Collection, err)
		}
		docs = append(docs, Document{ID: recs[i].ID, Data: data})
	}
	return q.apply(docs), nil
}

func (s *SQLiteStore) Count(ctx context.Context, q Query) (int, error) {
	docs, err := s.Query(ctx, q)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLiteStore) find(tx *gorm.DB, collection, id string) (*database.DocumentRecord, error) {
	var rec database.DocumentRecord
	err := tx.Where("collection = ? AND id = ?", collection, id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *SQLiteStore) save(tx *gorm.DB, collection, id string, fields map[string]interface{}, createdAt, updatedAt time.Time) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", id, err)
	}
	rec := database.DocumentRecord{
		Collection: collection,
		ID:         id,
		Data:       string(raw),
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
	}
	return tx.Save(&rec).Error
}

func decodeRecord(rec *database.DocumentRecord) (map[string]interface{}, error) {
	fields, err := ToFields(json.RawMessage(rec.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", rec.ID, err)
	}
	return fields, nil
}

func observe(backend, op string, start time.Time) {
	metrics.StoreOperationDuration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
}
