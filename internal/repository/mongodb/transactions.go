package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ousmanedia/boutik/internal/apperrors"
	"github.com/ousmanedia/boutik/internal/domain/models"
	"github.com/ousmanedia/boutik/internal/repository"
)

// Append assigns an id and creation timestamp, persists the transaction and
// returns the stored copy. Semantic validation is the orchestrator's job.
func (s *Store) Append(ctx context.Context, tx models.Transaction) (*models.Transaction, error) {
	tx.ID = uuid.NewString()
	tx.CreatedAt = time.Now().UTC()

	if _, err := s.db.Collection(transactionsColl).InsertOne(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}
	return &tx, nil
}

// Get returns the transaction by id, scoped to the owner.
func (s *Store) Get(ctx context.Context, ownerID, id string) (*models.Transaction, error) {
	var tx models.Transaction
	err := s.db.Collection(transactionsColl).
		FindOne(ctx, bson.M{"_id": id, "owner_id": ownerID}).
		Decode(&tx)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load transaction %s: %w", id, err)
	}
	return &tx, nil
}

// ListByRange scans the ledger for the owner, optionally filtered by type,
// sorted by date ascending.
func (s *Store) ListByRange(ctx context.Context, ownerID string, filter repository.TransactionFilter) ([]models.Transaction, error) {
	query := bson.M{"owner_id": ownerID}
	if filter.Type != nil {
		query["type"] = *filter.Type
	}

	dateBounds := bson.M{}
	if !filter.Start.IsZero() {
		dateBounds["$gte"] = filter.Start
	}
	if !filter.End.IsZero() {
		dateBounds["$lte"] = filter.End
	}
	if len(dateBounds) > 0 {
		query["date"] = dateBounds
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	cursor, err := s.db.Collection(transactionsColl).Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to scan transactions: %w", err)
	}

	var transactions []models.Transaction
	if err := cursor.All(ctx, &transactions); err != nil {
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}
	return transactions, nil
}

// Replace swaps the stored document for the given one, keeping id and
// creation timestamp, and returns the new stored copy.
func (s *Store) Replace(ctx context.Context, ownerID, id string, tx models.Transaction) (*models.Transaction, error) {
	tx.ID = id
	tx.OwnerID = ownerID

	opts := options.FindOneAndReplace().SetReturnDocument(options.After)
	var replaced models.Transaction
	err := s.db.Collection(transactionsColl).
		FindOneAndReplace(ctx, bson.M{"_id": id, "owner_id": ownerID}, tx, opts).
		Decode(&replaced)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to replace transaction %s: %w", id, err)
	}
	return &replaced, nil
}

// Delete removes the transaction. The caller must already have reversed its
// ledger effects.
func (s *Store) Delete(ctx context.Context, ownerID, id string) error {
	res, err := s.db.Collection(transactionsColl).DeleteOne(ctx, bson.M{"_id": id, "owner_id": ownerID})
	if err != nil {
		return fmt.Errorf("failed to delete transaction %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// DistinctOwners lists every owner present in the transaction ledger, used by
// the nightly snapshot job.
func (s *Store) DistinctOwners(ctx context.Context) ([]string, error) {
	values, err := s.db.Collection(transactionsColl).Distinct(ctx, "owner_id", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}

	owners := make([]string, 0, len(values))
	for _, v := range values {
		if owner, ok := v.(string); ok {
			owners = append(owners, owner)
		}
	}
	return owners, nil
}
