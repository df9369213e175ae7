package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ousmanedia/boutik/internal/repository"
)

const (
	transactionsColl = "transactions"
	productsColl     = "products"
	auditColl        = "inventory_audit"
	customersColl    = "customers"
	banksColl        = "bank_accounts"
	snapshotsColl    = "daily_snapshots"
)

// caseInsensitive is the collation used for every (owner_id, name) lookup and
// uniqueness constraint. Strength 2 ignores case but keeps accent distinctions.
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

// Store implements all repository interfaces on top of MongoDB. The engine
// never relies on multi-document transactions; consistency across collections
// comes from the orchestrator's reversal protocol.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var (
	_ repository.TransactionRepository = (*Store)(nil)
	_ repository.ProductRepository     = (*Store)(nil)
	_ repository.CustomerRepository    = (*Store)(nil)
	_ repository.BankRepository        = (*Store)(nil)
	_ repository.SnapshotRepository    = (*Store)(nil)
)

// NewStore connects to MongoDB and verifies the connection.
func NewStore(ctx context.Context, uri string, dbName string) (*Store, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Store{client: client, db: client.Database(dbName)}, nil
}

// EnsureIndexes creates the uniqueness constraints and scan indexes the
// engine depends on. Safe to call on every startup.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	uniqueOwnerName := mongo.IndexModel{
		Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true).SetCollation(caseInsensitive),
	}

	for _, coll := range []string{productsColl, customersColl, banksColl} {
		if _, err := s.db.Collection(coll).Indexes().CreateOne(ctx, uniqueOwnerName); err != nil {
			return fmt.Errorf("failed to create owner/name index on %s: %w", coll, err)
		}
	}

	byOwnerDate := mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "date", Value: 1}},
	}
	if _, err := s.db.Collection(transactionsColl).Indexes().CreateOne(ctx, byOwnerDate); err != nil {
		return fmt.Errorf("failed to create owner/date index on %s: %w", transactionsColl, err)
	}

	byOwnerProduct := mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "product_id", Value: 1}},
	}
	if _, err := s.db.Collection(auditColl).Indexes().CreateOne(ctx, byOwnerProduct); err != nil {
		return fmt.Errorf("failed to create owner/product index on %s: %w", auditColl, err)
	}

	return nil
}

// Close closes the MongoDB connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
