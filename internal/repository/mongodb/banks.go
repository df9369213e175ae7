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
)

// CreateBankAccount explicitly opens an account with an opening balance,
// failing with apperrors.ErrDuplicate when the name already exists for the
// owner (case-insensitive).
func (s *Store) CreateBankAccount(ctx context.Context, ownerID, name string, openingBalance float64) (*models.BankAccount, error) {
	now := time.Now().UTC()
	account := models.BankAccount{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		Balance:   openingBalance,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.db.Collection(banksColl).InsertOne(ctx, account); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperrors.ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create bank account %q: %w", name, err)
	}
	return &account, nil
}

// FindOrCreateBankAccount resolves an account by case-insensitive name,
// creating it with the given opening balance when absent. Used by workflows
// that reference accounts lazily.
func (s *Store) FindOrCreateBankAccount(ctx context.Context, ownerID, name string, openingBalance float64) (*models.BankAccount, error) {
	now := time.Now().UTC()
	filter := bson.M{"owner_id": ownerID, "name": name}
	update := bson.M{"$setOnInsert": bson.M{
		"_id":        uuid.NewString(),
		"owner_id":   ownerID,
		"name":       name,
		"balance":    openingBalance,
		"created_at": now,
		"updated_at": now,
	}}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After).
		SetCollation(caseInsensitive)

	var account models.BankAccount
	err := s.db.Collection(banksColl).FindOneAndUpdate(ctx, filter, update, opts).Decode(&account)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return s.findBankByName(ctx, ownerID, name)
		}
		return nil, fmt.Errorf("failed to find or create bank account %q: %w", name, err)
	}
	return &account, nil
}

func (s *Store) findBankByName(ctx context.Context, ownerID, name string) (*models.BankAccount, error) {
	opts := options.FindOne().SetCollation(caseInsensitive)
	var account models.BankAccount
	err := s.db.Collection(banksColl).
		FindOne(ctx, bson.M{"owner_id": ownerID, "name": name}, opts).
		Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find bank account %q: %w", name, err)
	}
	return &account, nil
}

// GetBankAccount returns the account by id, scoped to the owner.
func (s *Store) GetBankAccount(ctx context.Context, ownerID, id string) (*models.BankAccount, error) {
	var account models.BankAccount
	err := s.db.Collection(banksColl).
		FindOne(ctx, bson.M{"_id": id, "owner_id": ownerID}).
		Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load bank account %s: %w", id, err)
	}
	return &account, nil
}

// ApplyBankDelta increments the cash balance by amount and returns the
// updated account.
func (s *Store) ApplyBankDelta(ctx context.Context, ownerID, id string, amount float64) (*models.BankAccount, error) {
	update := bson.M{
		"$inc": bson.M{"balance": amount},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var account models.BankAccount
	err := s.db.Collection(banksColl).
		FindOneAndUpdate(ctx, bson.M{"_id": id, "owner_id": ownerID}, update, opts).
		Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to apply bank delta on %s: %w", id, err)
	}
	return &account, nil
}

// ListBankAccounts returns every account for the owner, sorted by name.
func (s *Store) ListBankAccounts(ctx context.Context, ownerID string) ([]models.BankAccount, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := s.db.Collection(banksColl).Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list bank accounts: %w", err)
	}

	var accounts []models.BankAccount
	if err := cursor.All(ctx, &accounts); err != nil {
		return nil, fmt.Errorf("failed to decode bank accounts: %w", err)
	}
	return accounts, nil
}

// SaveDailySnapshot persists one nightly report snapshot.
func (s *Store) SaveDailySnapshot(ctx context.Context, snapshot models.DailySnapshot) error {
	snapshot.ID = uuid.NewString()
	snapshot.CreatedAt = time.Now().UTC()

	if _, err := s.db.Collection(snapshotsColl).InsertOne(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to insert daily snapshot: %w", err)
	}
	return nil
}
