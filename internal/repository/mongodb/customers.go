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

// FindOrCreateCustomer resolves a customer by case-insensitive name, creating
// it with the given opening balance when absent.
func (s *Store) FindOrCreateCustomer(ctx context.Context, ownerID, name string, openingBalance float64) (*models.Customer, error) {
	now := time.Now().UTC()
	filter := bson.M{"owner_id": ownerID, "name": name}
	update := bson.M{"$setOnInsert": bson.M{
		"_id":          uuid.NewString(),
		"owner_id":     ownerID,
		"name":         name,
		"balance_owed": openingBalance,
		"created_at":   now,
		"updated_at":   now,
	}}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After).
		SetCollation(caseInsensitive)

	var customer models.Customer
	err := s.db.Collection(customersColl).FindOneAndUpdate(ctx, filter, update, opts).Decode(&customer)
	if err != nil {
		// A concurrent upsert can lose the race on the unique index; the
		// document exists now, so retry as a plain lookup.
		if mongo.IsDuplicateKeyError(err) {
			return s.findCustomerByName(ctx, ownerID, name)
		}
		return nil, fmt.Errorf("failed to find or create customer %q: %w", name, err)
	}
	return &customer, nil
}

func (s *Store) findCustomerByName(ctx context.Context, ownerID, name string) (*models.Customer, error) {
	opts := options.FindOne().SetCollation(caseInsensitive)
	var customer models.Customer
	err := s.db.Collection(customersColl).
		FindOne(ctx, bson.M{"owner_id": ownerID, "name": name}, opts).
		Decode(&customer)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find customer %q: %w", name, err)
	}
	return &customer, nil
}

// GetCustomer returns the customer by id, scoped to the owner.
func (s *Store) GetCustomer(ctx context.Context, ownerID, id string) (*models.Customer, error) {
	var customer models.Customer
	err := s.db.Collection(customersColl).
		FindOne(ctx, bson.M{"_id": id, "owner_id": ownerID}).
		Decode(&customer)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load customer %s: %w", id, err)
	}
	return &customer, nil
}

// ApplyCustomerDelta increments the receivable balance by amount and returns
// the updated customer.
func (s *Store) ApplyCustomerDelta(ctx context.Context, ownerID, id string, amount float64) (*models.Customer, error) {
	update := bson.M{
		"$inc": bson.M{"balance_owed": amount},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var customer models.Customer
	err := s.db.Collection(customersColl).
		FindOneAndUpdate(ctx, bson.M{"_id": id, "owner_id": ownerID}, update, opts).
		Decode(&customer)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to apply customer delta on %s: %w", id, err)
	}
	return &customer, nil
}

// ListCustomers returns every customer for the owner with their balances,
// sorted by name.
func (s *Store) ListCustomers(ctx context.Context, ownerID string) ([]models.Customer, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := s.db.Collection(customersColl).Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	var customers []models.Customer
	if err := cursor.All(ctx, &customers); err != nil {
		return nil, fmt.Errorf("failed to decode customers: %w", err)
	}
	return customers, nil
}
