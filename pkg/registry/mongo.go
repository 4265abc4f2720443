package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// DefaultDocumentName identifies the registry document in database-backed stores.
const DefaultDocumentName = "registry"

// MongoDocument stores the registry document as one MongoDB document
// {_id: name, body: <json>, updated_at: <time>}.
type MongoDocument struct {
	coll *mongo.Collection
	name string
}

type mongoDocument struct {
	ID        string    `bson:"_id"`
	Body      string    `bson:"body"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// NewMongoDocument creates a MongoDB-backed document store. An empty name uses DefaultDocumentName.
func NewMongoDocument(coll *mongo.Collection, name string) *MongoDocument {
	if name == "" {
		name = DefaultDocumentName
	}
	return &MongoDocument{coll: coll, name: name}
}

func (d *MongoDocument) Load(ctx context.Context) ([]byte, error) {
	var doc mongoDocument
	err := d.coll.FindOne(ctx, bson.D{{Key: "_id", Value: d.name}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo find %s: %w", d.name, err)
	}
	return []byte(doc.Body), nil
}

// Save upserts the document.
func (d *MongoDocument) Save(ctx context.Context, doc []byte) error {
	_, err := d.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: d.name}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "body", Value: string(doc)},
			{Key: "updated_at", Value: time.Now().UTC()},
		}}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo upsert %s: %w", d.name, err)
	}
	return nil
}
