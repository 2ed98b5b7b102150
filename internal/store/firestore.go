package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	firestorepb "cloud.google.com/go/firestore/apiv1/firestorepb"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore is the production backend the web client already talks to.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore opens a Firestore client from an initialized Firebase app.
func NewFirestoreStore(ctx context.Context, app *firebase.App) (*FirestoreStore, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing firestore: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

// NewFirebaseApp creates the Firebase app shared by Firestore and Auth. It
// relies on Application Default Credentials (GOOGLE_APPLICATION_CREDENTIALS).
func NewFirebaseApp(ctx context.Context, projectID string) (*firebase.App, error) {
	conf := &firebase.Config{ProjectID: projectID}
	app, err := firebase.NewApp(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("error initializing app: %w", err)
	}
	return app, nil
}

func (s *FirestoreStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	defer observe("firestore", "get", time.Now())

	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return nil, wrapErr("get", collection, translateFirestoreErr(id, err))
	}
	return &Document{ID: snap.Ref.ID, Data: fromFirestore(snap.Data())}, nil
}

func (s *FirestoreStore) Create(ctx context.Context, collection, id string, data interface{}) (string, error) {
	defer observe("firestore", "create", time.Now())

	fields, err := ToFields(data)
	if err != nil {
		return "", wrapErr("create", collection, err)
	}
	fields[FieldCreatedAt] = firestore.ServerTimestamp
	fields[FieldUpdatedAt] = firestore.ServerTimestamp

	if id == "" {
		ref, _, err := s.client.Collection(collection).Add(ctx, fields)
		if err != nil {
			return "", wrapErr("create", collection, err)
		}
		return ref.ID, nil
	}
	if _, err := s.client.Collection(collection).Doc(id).Create(ctx, fields); err != nil {
		return "", wrapErr("create", collection, translateFirestoreErr(id, err))
	}
	return id, nil
}

func (s *FirestoreStore) Set(ctx context.Context, collection, id string, data interface{}) error {
	defer observe("firestore", "set", time.Now())

	fields, err := ToFields(data)
	if err != nil {
		return wrapErr("set", collection, err)
	}
	ref := s.client.Collection(collection).Doc(id)

	err = s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		_, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			fields[FieldCreatedAt] = firestore.ServerTimestamp
		} else if err != nil {
			return err
		} else {
			delete(fields, FieldCreatedAt)
		}
		fields[FieldUpdatedAt] = firestore.ServerTimestamp
		return tx.Set(ref, fields, firestore.MergeAll)
	})
	return wrapErr("set", collection, err)
}

func (s *FirestoreStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	defer observe("firestore", "update", time.Now())

	normalized, err := ToFields(fields)
	if err != nil {
		return wrapErr("update", collection, err)
	}
	delete(normalized, FieldCreatedAt)

	updates := make([]firestore.Update, 0, len(normalized)+1)
	for k, v := range normalized {
		updates = append(updates, firestore.Update{Path: k, Value: v})
	}
	updates = append(updates, firestore.Update{Path: FieldUpdatedAt, Value: firestore.ServerTimestamp})

	_, err = s.client.Collection(collection).Doc(id).Update(ctx, updates)
	return wrapErr("update", collection, translateFirestoreErr(id, err))
}

func (s *FirestoreStore) Increment(ctx context.Context, collection, id, field string, delta int) error {
	defer observe("firestore", "increment", time.Now())

	_, err := s.client.Collection(collection).Doc(id).Update(ctx, []firestore.Update{
		{Path: field, Value: firestore.Increment(delta)},
		{Path: FieldUpdatedAt, Value: firestore.ServerTimestamp},
	})
	return wrapErr("increment", collection, translateFirestoreErr(id, err))
}

func (s *FirestoreStore) Delete(ctx context.Context, collection, id string) error {
	defer observe("firestore", "delete", time.Now())

	_, err := s.client.Collection(collection).Doc(id).Delete(ctx)
	return wrapErr("delete", collection, err)
}

func (s *FirestoreStore) Query(ctx context.Context, q Query) ([]Document, error) {
	defer observe("firestore", "query", time.Now())

	if err := q.validate(); err != nil {
		return nil, wrapErr("query", q.Collection, err)
	}

	iter := s.buildQuery(q).Documents(ctx)
	defer iter.Stop()

	var docs []Document
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, wrapErr("query", q.Collection, err)
		}
		docs = append(docs, Document{ID: snap.Ref.ID, Data: fromFirestore(snap.Data())})
	}
	return docs, nil
}

func (s *FirestoreStore) Count(ctx context.Context, q Query) (int, error) {
	defer observe("firestore", "count", time.Now())

	if err := q.validate(); err != nil {
		return 0, wrapErr("count", q.Collection, err)
	}

	query := s.buildQuery(q)
	results, err := query.NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, wrapErr("count", q.Collection, err)
	}
	value, ok := results["all"].(*firestorepb.Value)
	if !ok {
		return 0, wrapErr("count", q.Collection, fmt.Errorf("unexpected count result %T", results["all"]))
	}
	return int(value.GetIntegerValue()), nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func (s *FirestoreStore) buildQuery(q Query) firestore.Query {
	query := s.client.Collection(q.Collection).Query
	for _, f := range q.Filters {
		value := f.Value
		if f.Op == OpIn {
			value, _ = toSlice(f.Value)
		}
		query = query.Where(f.Field, string(f.Op), value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Descending {
			dir = firestore.Desc
		}
		query = query.OrderBy(q.OrderBy, dir)
	}
	if q.Offset > 0 {
		query = query.Offset(q.Offset)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	return query
}

func translateFirestoreErr(id string, err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	case codes.AlreadyExists:
		return fmt.Errorf("%s: %w", id, ErrAlreadyExists)
	}
	return err
}

// fromFirestore normalizes Firestore values (int64, float64, time.Time,
// nested maps and slices) to the same shapes ToFields produces.
func fromFirestore(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = copyValue(v)
	}
	return out
}
