package report

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultCollection is the collection records are stored in.
const DefaultCollection = "graphs"

// replacer is the part of *mongo.Collection that MongoSink uses.
type replacer interface {
	ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
}

// MongoSink upserts records into a MongoDB collection, one document per
// graph name. Re-running a batch updates documents in place.
type MongoSink struct {
	client *mongo.Client
	coll   replacer
}

// NewMongoSink connects to uri and stores records in database/collection.
// An empty collection selects [DefaultCollection].
func NewMongoSink(ctx context.Context, uri, database, collection string) (*MongoSink, error) {
	if collection == "" {
		collection = DefaultCollection
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return &MongoSink{
		client: client,
		coll:   client.Database(database).Collection(collection),
	}, nil
}

// Write upserts r keyed by its name.
func (s *MongoSink) Write(ctx context.Context, r Record) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"name": r.Name}, r, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert %s: %w", r.Name, err)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoSink) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

var _ Sink = (*MongoSink)(nil)
