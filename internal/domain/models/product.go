package models

import "time"

// Product is an inventory item. Quantity may go negative: overselling is
// permitted and surfaced through the low-stock signal, never rejected.
// AverageCost is a weighted average recomputed only on net quantity increases.
type Product struct {
	ID               string    `bson:"_id,omitempty" json:"id"`
	OwnerID          string    `bson:"owner_id" json:"owner_id"`
	Name             string    `bson:"name" json:"name"`
	Quantity         float64   `bson:"quantity" json:"quantity"`
	AverageCost      float64   `bson:"average_cost" json:"average_cost"`
	SellingPrice     float64   `bson:"selling_price" json:"selling_price"`
	ReorderThreshold float64   `bson:"reorder_threshold" json:"reorder_threshold"`
	CreatedAt        time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time `bson:"updated_at" json:"updated_at"`
}

// LowStock reports whether the product sits at or below its reorder threshold.
func (p Product) LowStock() bool {
	return p.Quantity <= p.ReorderThreshold
}

// Audit reasons for inventory movements.
const (
	StockReasonReceive      = "RECEIVE"
	StockReasonSale         = "SALE"
	StockReasonSaleReversal = "SALE_REVERSAL"
)

// InventoryAuditEntry is one append-only row per quantity change, carrying the
// average cost in effect at that moment. Entries are never mutated; a reversal
// writes a compensating row instead.
type InventoryAuditEntry struct {
	ID            string    `bson:"_id,omitempty" json:"id"`
	OwnerID       string    `bson:"owner_id" json:"owner_id"`
	ProductID     string    `bson:"product_id" json:"product_id"`
	Delta         float64   `bson:"delta" json:"delta"`
	Reason        string    `bson:"reason" json:"reason"`
	CostAtTime    float64   `bson:"cost_at_time" json:"cost_at_time"`
	TransactionID string    `bson:"transaction_id,omitempty" json:"transaction_id,omitempty"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
}
