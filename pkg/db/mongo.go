package db

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"homeautomation-crosspost/pkg/domain"
	"homeautomation-crosspost/pkg/ledger"
)

// MongoClient wraps the MongoDB client and the crawl state collection
type MongoClient struct {
	mongoClient *mongo.Client
	database    *mongo.Database
	collection  *mongo.Collection
}

// NewMongoClient creates a new database client
func NewMongoClient(connectionString, databaseName, collectionName string) *MongoClient {
	clientOptions := options.Client().ApplyURI(connectionString)
	mongoClient, err := mongo.Connect(context.Background(), clientOptions)
	if err != nil {
		// Return client with nil - error will be caught during Connect()
		return &MongoClient{}
	}

	database := mongoClient.Database(databaseName)
	collection := database.Collection(collectionName)

	return &MongoClient{
		mongoClient: mongoClient,
		database:    database,
		collection:  collection,
	}
}

// Connect verifies the connection to MongoDB
func (c *MongoClient) Connect(ctx context.Context) error {
	if c.mongoClient == nil {
		return fmt.Errorf("mongo client not initialized")
	}
	return c.mongoClient.Ping(ctx, nil)
}

// Close closes the MongoDB connection
func (c *MongoClient) Close(ctx context.Context) error {
	if c.mongoClient == nil {
		return nil
	}
	return c.mongoClient.Disconnect(ctx)
}

// Store returns the crawl state store for key
func (c *MongoClient) Store(key string) *MongoStore {
	return NewMongoStore(c.collection, key)
}

// MongoStore keeps the crawl state as a single document whose _id is the state key
type MongoStore struct {
	collection *mongo.Collection
	key        string
}

type stateDocument struct {
	Key               string `bson:"_id"`
	domain.CrawlState `bson:",inline"`
}

// NewMongoStore creates a store on collection
func NewMongoStore(collection *mongo.Collection, key string) *MongoStore {
	return &MongoStore{collection: collection, key: key}
}

// Load fetches the state document
func (s *MongoStore) Load(ctx context.Context) (domain.CrawlState, error) {
	if s.collection == nil {
		return domain.CrawlState{}, fmt.Errorf("collection not initialized")
	}

	raw, err := s.collection.FindOne(ctx, bson.M{"_id": s.key}).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.CrawlState{}, ledger.ErrNotFound
	}
	if err != nil {
		return domain.CrawlState{}, fmt.Errorf("find state document: %w", err)
	}

	var doc stateDocument
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return domain.CrawlState{}, fmt.Errorf("%w: %w", ledger.ErrCorrupt, err)
	}

	return doc.CrawlState.Normalize(), nil
}

// Save replaces the state document, inserting it on first write
func (s *MongoStore) Save(ctx context.Context, state domain.CrawlState) error {
	if s.collection == nil {
		return fmt.Errorf("collection not initialized")
	}

	state = state.Normalize()
	state.SchemaVersion = domain.SchemaVersion
	doc := stateDocument{Key: s.key, CrawlState: state}

	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, bson.M{"_id": s.key}, doc, opts); err != nil {
		return fmt.Errorf("replace state document: %w", err)
	}
	return nil
}
