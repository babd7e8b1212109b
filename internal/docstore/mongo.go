package docstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"memories-backend/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ Store = (*MongoStore)(nil)

// mongoDocument is the stored shape; user fields live under data so they
// never collide with bookkeeping keys
type mongoDocument struct {
	ID        string    `bson:"_id"`
	Data      bson.M    `bson:"data"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStore maps every collection onto a MongoDB collection
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
}

// NewMongoStore connects to MongoDB and selects the database
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	clientOptions.SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &MongoStore{
		client: client,
		db:     client.Database(database),
		now:    time.Now,
	}, nil
}

// Create inserts a new document
func (s *MongoStore) Create(ctx context.Context, collection, id string, fields map[string]any) (*Document, error) {
	if id == "" {
		id = uuid.New().String()
	}
	data, err := normalize(fields)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	doc := mongoDocument{ID: id, Data: bson.M(data), CreatedAt: now, UpdatedAt: now}
	if _, err := s.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("document %s/%s: %w", collection, id, models.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create document: %w: %w", models.ErrRemoteUnavailable, err)
	}
	return doc.toDocument(), nil
}

// Get fetches one document by id
func (s *MongoStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	var doc mongoDocument
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("document %s/%s: %w", collection, id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get document: %w: %w", models.ErrRemoteUnavailable, err)
	}
	return doc.toDocument(), nil
}

// List returns documents matching all filters, oldest first
func (s *MongoStore) List(ctx context.Context, collection string, filters ...Filter) ([]*Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.db.Collection(collection).Find(ctx, mongoFilter(filters), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w: %w", models.ErrRemoteUnavailable, err)
	}
	defer cursor.Close(ctx)

	var found []mongoDocument
	if err := cursor.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w: %w", models.ErrRemoteUnavailable, err)
	}

	docs := make([]*Document, 0, len(found))
	for i := range found {
		docs = append(docs, found[i].toDocument())
	}
	return docs, nil
}

// Update merges fields into a document matching the preconditions
func (s *MongoStore) Update(ctx context.Context, collection, id string, fields map[string]any, preconditions ...Filter) (*Document, error) {
	data, err := normalize(fields)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updated_at": s.now().UTC().Truncate(time.Millisecond)}
	for k, v := range data {
		set["data."+k] = v
	}

	filter := mongoFilter(preconditions)
	filter["_id"] = id

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc mongoDocument
	err = s.db.Collection(collection).FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("document %s/%s: %w", collection, id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update document: %w: %w", models.ErrRemoteUnavailable, err)
	}
	return doc.toDocument(), nil
}

// Close disconnects the client
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func mongoFilter(filters []Filter) bson.M {
	filter := bson.M{}
	for _, f := range filters {
		key := "data." + f.Field
		switch f.Op {
		case OpEqual:
			filter[key] = f.Value
		case OpSearch:
			filter[key] = primitive.Regex{Pattern: regexp.QuoteMeta(fmt.Sprint(f.Value)), Options: "i"}
		}
	}
	return filter
}

func (d *mongoDocument) toDocument() *Document {
	fields := make(map[string]any, len(d.Data))
	for k, v := range d.Data {
		fields[k] = v
	}
	return &Document{ID: d.ID, Fields: fields, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt}
}
