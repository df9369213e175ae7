package models

import (
	"fmt"
	"strings"
	"time"
)

// TransactionType enumerates the supported financial event categories.
type TransactionType string

const (
	TransactionSale            TransactionType = "SALE"
	TransactionExpense         TransactionType = "EXPENSE"
	TransactionCustomerPayment TransactionType = "CUSTOMER_PAYMENT"
)

// PaymentMethod describes how a sale was settled.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "CASH"
	PaymentCredit PaymentMethod = "CREDIT"
	PaymentBank   PaymentMethod = "BANK"
)

// SaleItem is one line of a sale. UnitCostSnapshot is fixed when the sale is
// recorded and is the sole source of historical cost-of-goods-sold truth; it
// is never recomputed from the product's current average cost.
type SaleItem struct {
	ProductID        string  `bson:"product_id,omitempty" json:"product_id,omitempty"`
	ProductName      string  `bson:"product_name" json:"product_name"`
	Quantity         float64 `bson:"quantity" json:"quantity"`
	UnitPrice        float64 `bson:"unit_price" json:"unit_price"`
	UnitCostSnapshot float64 `bson:"unit_cost_snapshot" json:"unit_cost_snapshot"`
	IsService        bool    `bson:"is_service" json:"is_service"`
}

// Subtotal returns the line amount.
func (i SaleItem) Subtotal() float64 {
	return i.Quantity * i.UnitPrice
}

// SaleDetails carries the fields specific to SALE transactions.
type SaleDetails struct {
	Items         []SaleItem    `bson:"items" json:"items"`
	CustomerID    string        `bson:"customer_id,omitempty" json:"customer_id,omitempty"`
	CustomerName  string        `bson:"customer_name,omitempty" json:"customer_name,omitempty"`
	PaymentMethod PaymentMethod `bson:"payment_method" json:"payment_method"`
	BankID        string        `bson:"bank_id,omitempty" json:"bank_id,omitempty"`
}

// ExpenseDetails carries the fields specific to EXPENSE transactions.
type ExpenseDetails struct {
	Category string `bson:"category" json:"category"`
	BankID   string `bson:"bank_id,omitempty" json:"bank_id,omitempty"`
}

// PaymentDetails carries the fields specific to CUSTOMER_PAYMENT transactions.
type PaymentDetails struct {
	CustomerID   string `bson:"customer_id" json:"customer_id"`
	CustomerName string `bson:"customer_name,omitempty" json:"customer_name,omitempty"`
	BankID       string `bson:"bank_id,omitempty" json:"bank_id,omitempty"`
}

// Transaction is the immutable-by-default record of one financial event. The
// envelope is shared; exactly one of the detail pointers matching Type is set.
// Amount is always positive, its sign implied by Type.
type Transaction struct {
	ID          string          `bson:"_id,omitempty" json:"id"`
	OwnerID     string          `bson:"owner_id" json:"owner_id"`
	Type        TransactionType `bson:"type" json:"type"`
	Amount      float64         `bson:"amount" json:"amount"`
	Date        time.Time       `bson:"date" json:"date"`
	Description string          `bson:"description" json:"description"`

	Sale    *SaleDetails    `bson:"sale,omitempty" json:"sale,omitempty"`
	Expense *ExpenseDetails `bson:"expense,omitempty" json:"expense,omitempty"`
	Payment *PaymentDetails `bson:"payment,omitempty" json:"payment,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// SaleAmount computes the sale total from its line items.
func SaleAmount(items []SaleItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Subtotal()
	}
	return total
}

// SaleDescription builds a human-readable summary line for a sale, used when
// the caller does not supply a description.
func SaleDescription(items []SaleItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%g x %s", item.Quantity, item.ProductName))
	}
	return "Sale: " + strings.Join(parts, ", ")
}
