package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ousmanedia/boutik/internal/apperrors"
	"github.com/ousmanedia/boutik/internal/domain/models"
)

// InsertProduct persists a new product. The unique (owner_id, name) index
// turns concurrent duplicate creates into apperrors.ErrDuplicate.
func (s *Store) InsertProduct(ctx context.Context, p models.Product) (*models.Product, error) {
	now := time.Now().UTC()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.db.Collection(productsColl).InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperrors.ErrDuplicate
		}
		return nil, fmt.Errorf("failed to insert product: %w", err)
	}
	return &p, nil
}

// GetProduct returns the product by id, scoped to the owner.
func (s *Store) GetProduct(ctx context.Context, ownerID, id string) (*models.Product, error) {
	var p models.Product
	err := s.db.Collection(productsColl).
		FindOne(ctx, bson.M{"_id": id, "owner_id": ownerID}).
		Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load product %s: %w", id, err)
	}
	return &p, nil
}

// UpdateProduct overwrites the mutable fields of the stored product.
func (s *Store) UpdateProduct(ctx context.Context, p models.Product) (*models.Product, error) {
	update := bson.M{"$set": bson.M{
		"quantity":          p.Quantity,
		"average_cost":      p.AverageCost,
		"selling_price":     p.SellingPrice,
		"reorder_threshold": p.ReorderThreshold,
		"updated_at":        time.Now().UTC(),
	}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Product
	err := s.db.Collection(productsColl).
		FindOneAndUpdate(ctx, bson.M{"_id": p.ID, "owner_id": p.OwnerID}, update, opts).
		Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update product %s: %w", p.ID, err)
	}
	return &updated, nil
}

// ApplyQuantityDelta increments the stored quantity by delta, negative
// allowed, and returns the updated product. Never fails for insufficient
// stock.
func (s *Store) ApplyQuantityDelta(ctx context.Context, ownerID, id string, delta float64) (*models.Product, error) {
	update := bson.M{
		"$inc": bson.M{"quantity": delta},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Product
	err := s.db.Collection(productsColl).
		FindOneAndUpdate(ctx, bson.M{"_id": id, "owner_id": ownerID}, update, opts).
		Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to adjust product %s: %w", id, err)
	}
	return &updated, nil
}

// FindProductByExactName resolves a product by case-insensitive exact name.
func (s *Store) FindProductByExactName(ctx context.Context, ownerID, name string) (*models.Product, error) {
	opts := options.FindOne().SetCollation(caseInsensitive)
	var p models.Product
	err := s.db.Collection(productsColl).
		FindOne(ctx, bson.M{"owner_id": ownerID, "name": name}, opts).
		Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find product %q: %w", name, err)
	}
	return &p, nil
}

// FindProductsByFuzzyName returns up to limit products whose name contains the
// given text, case-insensitive, used for disambiguation.
func (s *Store) FindProductsByFuzzyName(ctx context.Context, ownerID, text string, limit int) ([]models.Product, error) {
	query := bson.M{
		"owner_id": ownerID,
		"name":     bson.M{"$regex": regexp.QuoteMeta(text), "$options": "i"},
	}

	opts := options.Find().SetLimit(int64(limit)).SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := s.db.Collection(productsColl).Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search products for %q: %w", text, err)
	}

	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, nil
}

// ListProducts returns every product for the owner, sorted by name.
func (s *Store) ListProducts(ctx context.Context, ownerID string) ([]models.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := s.db.Collection(productsColl).Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, nil
}

// AppendAuditEntry writes one append-only inventory audit row.
func (s *Store) AppendAuditEntry(ctx context.Context, entry models.InventoryAuditEntry) error {
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now().UTC()

	if _, err := s.db.Collection(auditColl).InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// ListAuditEntries returns the most recent audit rows for a product, newest
// first.
func (s *Store) ListAuditEntries(ctx context.Context, ownerID, productID string, limit int) ([]models.InventoryAuditEntry, error) {
	query := bson.M{"owner_id": ownerID, "product_id": productID}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit))

	cursor, err := s.db.Collection(auditColl).Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}

	var entries []models.InventoryAuditEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode audit entries: %w", err)
	}
	return entries, nil
}
