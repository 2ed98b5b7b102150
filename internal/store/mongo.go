package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore maps collections to MongoDB collections and document ids to _id.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
}

func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return &MongoStore{
		client: client,
		db:     client.Database(database),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *MongoStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	defer observe("mongo", "get", time.Now())

	var raw bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, wrapErr("get", collection, fmt.Errorf("%s: %w", id, ErrNotFound))
	}
	if err != nil {
		return nil, wrapErr("get", collection, err)
	}
	return mongoDocument(raw), nil
}

func (s *MongoStore) Create(ctx context.Context, collection, id string, data interface{}) (string, error) {
	defer observe("mongo", "create", time.Now())

	fields, err := ToFields(data)
	if err != nil {
		return "", wrapErr("create", collection, err)
	}
	if id == "" {
		id = uuid.New().String()
	}
	stampCreate(fields, s.now())
	fields["_id"] = id

	if _, err := s.db.Collection(collection).InsertOne(ctx, fields); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", wrapErr("create", collection, fmt.Errorf("%s: %w", id, ErrAlreadyExists))
		}
		return "", wrapErr("create", collection, err)
	}
	return id, nil
}

func (s *MongoStore) Set(ctx context.Context, collection, id string, data interface{}) error {
	defer observe("mongo", "set", time.Now())

	fields, err := ToFields(data)
	if err != nil {
		return wrapErr("set", collection, err)
	}
	now := s.now()
	stampUpdate(fields, now)
	delete(fields, "_id")

	update := bson.M{
		"$set":         fields,
		"$setOnInsert": bson.M{FieldCreatedAt: now},
	}
	_, err = s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, update, options.Update().SetUpsert(true))
	return wrapErr("set", collection, err)
}

func (s *MongoStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	defer observe("mongo", "update", time.Now())

	normalized, err := ToFields(fields)
	if err != nil {
		return wrapErr("update", collection, err)
	}
	stampUpdate(normalized, s.now())
	delete(normalized, "_id")

	res, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": normalized})
	if err != nil {
		return wrapErr("update", collection, err)
	}
	if res.MatchedCount == 0 {
		return wrapErr("update", collection, fmt.Errorf("%s: %w", id, ErrNotFound))
	}
	return nil
}

func (s *MongoStore) Increment(ctx context.Context, collection, id, field string, delta int) error {
	defer observe("mongo", "increment", time.Now())

	update := bson.M{
		"$inc": bson.M{field: delta},
		"$set": bson.M{FieldUpdatedAt: s.now()},
	}
	res, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return wrapErr("increment", collection, err)
	}
	if res.MatchedCount == 0 {
		return wrapErr("increment", collection, fmt.Errorf("%s: %w", id, ErrNotFound))
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	defer observe("mongo", "delete", time.Now())

	_, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	return wrapErr("delete", collection, err)
}

func (s *MongoStore) Query(ctx context.Context, q Query) ([]Document, error) {
	defer observe("mongo", "query", time.Now())

	if err := q.validate(); err != nil {
		return nil, wrapErr("query", q.Collection, err)
	}

	opts := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Descending {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: dir}})
	}
	if q.Offset > 0 {
		opts.SetSkip(int64(q.Offset))
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cur, err := s.db.Collection(q.Collection).Find(ctx, mongoFilter(q.Filters), opts)
	if err != nil {
		return nil, wrapErr("query", q.Collection, err)
	}
	defer cur.Close(ctx)

	var rows []bson.M
	if err := cur.All(ctx, &rows); err != nil {
		return nil, wrapErr("query", q.Collection, err)
	}
	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, *mongoDocument(row))
	}
	return docs, nil
}

func (s *MongoStore) Count(ctx context.Context, q Query) (int, error) {
	defer observe("mongo", "count", time.Now())

	if err := q.validate(); err != nil {
		return 0, wrapErr("count", q.Collection, err)
	}
	opts := options.Count()
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	n, err := s.db.Collection(q.Collection).CountDocuments(ctx, mongoFilter(q.Filters), opts)
	if err != nil {
		return 0, wrapErr("count", q.Collection, err)
	}
	return int(n), nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var mongoOps = map[Op]string{
	OpEqual:        "$eq",
	OpNotEqual:     "$ne",
	OpLess:         "$lt",
	OpLessEqual:    "$lte",
	OpGreater:      "$gt",
	OpGreaterEqual: "$gte",
	OpIn:           "$in",
}

func mongoFilter(filters []Filter) bson.M {
	if len(filters) == 0 {
		return bson.M{}
	}
	clauses := make(bson.A, 0, len(filters))
	for _, f := range filters {
		if f.Op == OpArrayContains {
			// Equality against an array field matches any element.
			clauses = append(clauses, bson.M{f.Field: f.Value})
			continue
		}
		value := f.Value
		if f.Op == OpIn {
			value, _ = toSlice(f.Value)
		}
		clause := bson.M{mongoOps[f.Op]: value}
		if f.Op == OpNotEqual {
			clause["$exists"] = true
		}
		clauses = append(clauses, bson.M{f.Field: clause})
	}
	return bson.M{"$and": clauses}
}

func mongoDocument(raw bson.M) *Document {
	id := fmt.Sprint(raw["_id"])
	if oid, ok := raw["_id"].(primitive.ObjectID); ok {
		id = oid.Hex()
	}
	data := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		if k == "_id" {
			continue
		}
		data[k] = fromBSON(v)
	}
	return &Document{ID: id, Data: data}
}

func fromBSON(v interface{}) interface{} {
	switch val := v.(type) {
	case bson.M:
		out := make(map[string]interface{}, len(val))
		for k, inner := range val {
			out[k] = fromBSON(inner)
		}
		return out
	case bson.D:
		out := make(map[string]interface{}, len(val))
		for _, e := range val {
			out[e.Key] = fromBSON(e.Value)
		}
		return out
	case bson.A:
		out := make([]interface{}, len(val))
		for i, inner := range val {
			out[i] = fromBSON(inner)
		}
		return out
	case primitive.DateTime:
		return val.Time().UTC()
	case int32:
		return int64(val)
	default:
		return val
	}
}
