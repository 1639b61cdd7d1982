package cart

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const cartsCollection = "carts"

// ConnectMongo opens a client and verifies it with a ping
func ConnectMongo(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client.Database(database), nil
}

// MongoStore keeps one document per cart, keyed by the cart id
type MongoStore struct {
	collection *mongo.Collection
}

var _ Store = (*MongoStore)(nil)

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{collection: db.Collection(cartsCollection)}
}

// CreateIndexes adds the owner lookups and a 90 day expiry on idle carts
func (m *MongoStore) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "session_id", Value: 1}}},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60),
		},
	}
	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (m *MongoStore) Create(ctx context.Context, c *Cart) error {
	if _, err := m.collection.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("failed to create cart: %w", err)
	}
	return nil
}

func (m *MongoStore) Get(ctx context.Context, id string) (*Cart, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *MongoStore) FindByUser(ctx context.Context, userID string) (*Cart, error) {
	if userID == "" {
		return nil, ErrCartNotFound
	}
	return m.findOne(ctx, bson.M{"user_id": userID})
}

func (m *MongoStore) FindBySession(ctx context.Context, sessionID string) (*Cart, error) {
	if sessionID == "" {
		return nil, ErrCartNotFound
	}
	return m.findOne(ctx, bson.M{"session_id": sessionID})
}

func (m *MongoStore) findOne(ctx context.Context, filter bson.M) (*Cart, error) {
	var c Cart
	opts := options.FindOne().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	if err := m.collection.FindOne(ctx, filter, opts).Decode(&c); err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if c.Items == nil {
		c.Items = []Item{}
	}
	return &c, nil
}

// Save replaces the whole document. Concurrent writers from other processes
// are last-write-wins.
func (m *MongoStore) Save(ctx context.Context, c *Cart) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := m.collection.ReplaceOne(ctx, bson.M{"_id": c.ID}, c, opts); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (m *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := m.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}
