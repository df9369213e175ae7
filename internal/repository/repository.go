package repository

import (
	"context"
	"time"

	"github.com/ousmanedia/boutik/internal/domain/models"
)

// TransactionFilter narrows a ledger scan. Type is optional; Start and End
// bound the transaction date inclusively.
type TransactionFilter struct {
	Type  *models.TransactionType
	Start time.Time
	End   time.Time
}

// TransactionRepository is the append-only ledger store. Every method takes
// the owner id explicitly; a query can never omit it.
type TransactionRepository interface {
	Append(ctx context.Context, tx models.Transaction) (*models.Transaction, error)
	Get(ctx context.Context, ownerID, id string) (*models.Transaction, error)
	ListByRange(ctx context.Context, ownerID string, filter TransactionFilter) ([]models.Transaction, error)
	Replace(ctx context.Context, ownerID, id string, tx models.Transaction) (*models.Transaction, error)
	Delete(ctx context.Context, ownerID, id string) error
	DistinctOwners(ctx context.Context) ([]string, error)
}

// ProductRepository persists products and their append-only audit trail.
// Name lookups are case-insensitive.
type ProductRepository interface {
	InsertProduct(ctx context.Context, p models.Product) (*models.Product, error)
	GetProduct(ctx context.Context, ownerID, id string) (*models.Product, error)
	UpdateProduct(ctx context.Context, p models.Product) (*models.Product, error)
	ApplyQuantityDelta(ctx context.Context, ownerID, id string, delta float64) (*models.Product, error)
	FindProductByExactName(ctx context.Context, ownerID, name string) (*models.Product, error)
	FindProductsByFuzzyName(ctx context.Context, ownerID, text string, limit int) ([]models.Product, error)
	ListProducts(ctx context.Context, ownerID string) ([]models.Product, error)
	AppendAuditEntry(ctx context.Context, entry models.InventoryAuditEntry) error
	ListAuditEntries(ctx context.Context, ownerID, productID string, limit int) ([]models.InventoryAuditEntry, error)
}

// CustomerRepository persists customers and their receivable balances.
type CustomerRepository interface {
	FindOrCreateCustomer(ctx context.Context, ownerID, name string, openingBalance float64) (*models.Customer, error)
	GetCustomer(ctx context.Context, ownerID, id string) (*models.Customer, error)
	ApplyCustomerDelta(ctx context.Context, ownerID, id string, amount float64) (*models.Customer, error)
	ListCustomers(ctx context.Context, ownerID string) ([]models.Customer, error)
}

// BankRepository persists bank accounts and their cash balances.
// CreateBankAccount fails with apperrors.ErrDuplicate when the name already
// exists for the owner; FindOrCreateBankAccount never does.
type BankRepository interface {
	CreateBankAccount(ctx context.Context, ownerID, name string, openingBalance float64) (*models.BankAccount, error)
	FindOrCreateBankAccount(ctx context.Context, ownerID, name string, openingBalance float64) (*models.BankAccount, error)
	GetBankAccount(ctx context.Context, ownerID, id string) (*models.BankAccount, error)
	ApplyBankDelta(ctx context.Context, ownerID, id string, amount float64) (*models.BankAccount, error)
	ListBankAccounts(ctx context.Context, ownerID string) ([]models.BankAccount, error)
}

// SnapshotRepository stores the nightly per-owner report snapshots.
type SnapshotRepository interface {
	SaveDailySnapshot(ctx context.Context, snapshot models.DailySnapshot) error
}
