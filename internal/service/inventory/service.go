package inventory

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/ousmanedia/boutik/internal/apperrors"
	"github.com/ousmanedia/boutik/internal/domain/models"
	"github.com/ousmanedia/boutik/internal/repository"
)

// Service maintains per-product running quantity and weighted-average cost,
// pairing every quantity change with an append-only audit entry that carries
// the cost in effect at that moment.
type Service struct {
	products repository.ProductRepository
	logger   *zap.Logger
}

// NewService wires a new inventory valuation service.
func NewService(products repository.ProductRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{products: products, logger: logger}
}

// ReceiveStockInput carries one stock purchase.
type ReceiveStockInput struct {
	Name             string  `json:"name"`
	Quantity         float64 `json:"quantity"`
	UnitCost         float64 `json:"unit_cost"`
	SellingPrice     float64 `json:"selling_price"`
	ReorderThreshold float64 `json:"reorder_threshold"`
}

// ReceiveStock records a purchase. A new product starts at averageCost =
// unitCost; an existing one gets its average cost recomputed as the
// quantity-weighted mean of the old stock and the new batch. Selling price
// and reorder threshold are always overwritten with the latest values.
func (s *Service) ReceiveStock(ctx context.Context, ownerID string, in ReceiveStockInput) (*models.Product, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: product name is required", apperrors.ErrInvalidInput)
	}
	if !isFinite(in.Quantity) || in.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be a positive number", apperrors.ErrInvalidInput)
	}
	if !isFinite(in.UnitCost) || in.UnitCost < 0 {
		return nil, fmt.Errorf("%w: unit cost must be a non-negative number", apperrors.ErrInvalidInput)
	}

	existing, err := s.products.FindProductByExactName(ctx, ownerID, in.Name)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	var product *models.Product
	if existing == nil {
		product, err = s.products.InsertProduct(ctx, models.Product{
			OwnerID:          ownerID,
			Name:             in.Name,
			Quantity:         in.Quantity,
			AverageCost:      in.UnitCost,
			SellingPrice:     in.SellingPrice,
			ReorderThreshold: in.ReorderThreshold,
		})
		if err != nil {
			return nil, err
		}
	} else {
		existing.AverageCost = weightedAverage(existing.Quantity, existing.AverageCost, in.Quantity, in.UnitCost)
		existing.Quantity += in.Quantity
		existing.SellingPrice = in.SellingPrice
		existing.ReorderThreshold = in.ReorderThreshold

		product, err = s.products.UpdateProduct(ctx, *existing)
		if err != nil {
			return nil, err
		}
	}

	entry := models.InventoryAuditEntry{
		OwnerID:    ownerID,
		ProductID:  product.ID,
		Delta:      in.Quantity,
		Reason:     models.StockReasonReceive,
		CostAtTime: product.AverageCost,
	}
	if err := s.products.AppendAuditEntry(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("stock received",
		zap.String("owner_id", ownerID),
		zap.String("product_id", product.ID),
		zap.Float64("quantity_added", in.Quantity),
		zap.Float64("average_cost", product.AverageCost))

	return product, nil
}

// AdjustStock applies delta to the product quantity unconditionally, negative
// stock allowed, and writes an audit entry carrying the current average cost.
// It never fails for insufficient stock.
func (s *Service) AdjustStock(ctx context.Context, ownerID, productID string, delta float64, reason, transactionID string) (*models.Product, error) {
	product, err := s.products.ApplyQuantityDelta(ctx, ownerID, productID, delta)
	if err != nil {
		return nil, err
	}

	entry := models.InventoryAuditEntry{
		OwnerID:       ownerID,
		ProductID:     productID,
		Delta:         delta,
		Reason:        reason,
		CostAtTime:    product.AverageCost,
		TransactionID: transactionID,
	}
	if err := s.products.AppendAuditEntry(ctx, entry); err != nil {
		return nil, err
	}

	if product.Quantity < 0 && delta < 0 {
		s.logger.Warn("product oversold into negative stock",
			zap.String("owner_id", ownerID),
			zap.String("product_id", productID),
			zap.Float64("quantity", product.Quantity))
	}

	return product, nil
}

// CreateUnstocked registers a product referenced by a sale before any stock
// was ever received: zero quantity, zero cost, selling price from the sale.
func (s *Service) CreateUnstocked(ctx context.Context, ownerID, name string, sellingPrice float64) (*models.Product, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: product name is required", apperrors.ErrInvalidInput)
	}
	return s.products.InsertProduct(ctx, models.Product{
		OwnerID:      ownerID,
		Name:         name,
		SellingPrice: sellingPrice,
	})
}

// Get returns a product by id.
func (s *Service) Get(ctx context.Context, ownerID, productID string) (*models.Product, error) {
	return s.products.GetProduct(ctx, ownerID, productID)
}

// FindByExactName resolves a product by case-insensitive exact name.
func (s *Service) FindByExactName(ctx context.Context, ownerID, name string) (*models.Product, error) {
	return s.products.FindProductByExactName(ctx, ownerID, name)
}

// FindByFuzzyName returns up to limit case-insensitive substring matches,
// used for disambiguation.
func (s *Service) FindByFuzzyName(ctx context.Context, ownerID, text string, limit int) ([]models.Product, error) {
	return s.products.FindProductsByFuzzyName(ctx, ownerID, text, limit)
}

// ListAudit returns the most recent audit rows for a product.
func (s *Service) ListAudit(ctx context.Context, ownerID, productID string, limit int) ([]models.InventoryAuditEntry, error) {
	return s.products.ListAuditEntries(ctx, ownerID, productID, limit)
}

// weightedAverage recomputes the average cost for a purchase. A zero combined
// quantity (prior negative stock exactly offset by the addition) falls back to
// the new batch's unit cost.
func weightedAverage(oldQty, oldCost, addedQty, unitCost float64) float64 {
	denominator := oldQty + addedQty
	if denominator == 0 {
		return unitCost
	}
	return (oldQty*oldCost + addedQty*unitCost) / denominator
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
