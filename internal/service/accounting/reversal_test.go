package accounting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ousmanedia/boutik/internal/apperrors"
	"github.com/ousmanedia/boutik/internal/domain/models"
	"github.com/ousmanedia/boutik/internal/repository"
	"github.com/ousmanedia/boutik/internal/repository/memory"
	"github.com/ousmanedia/boutik/internal/service/balances"
	"github.com/ousmanedia/boutik/internal/service/inventory"
)

func ptr[T any](v T) *T { return &v }

func TestDeleteSaleRestoresStockAndReceivable(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	product := e.seedProduct(t, "Savon", 10, 50, 80)

	result, err := e.svc.LogSale(ctx, testOwner, SaleInput{
		Items:         []SaleItemInput{{ProductName: "Savon", Quantity: 3, UnitPrice: 80}},
		CustomerName:  "Awa",
		PaymentMethod: models.PaymentCredit,
	})
	require.NoError(t, err)
	tx := result.Transaction
	assert.Equal(t, 7.0, e.productQuantity(t, product.ID))

	require.NoError(t, e.svc.DeleteTransaction(ctx, testOwner, tx.ID))

	assert.Equal(t, 10.0, e.productQuantity(t, product.ID))
	customers, err := e.store.ListCustomers(ctx, testOwner)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, 0.0, customers[0].BalanceOwed)

	_, err = e.store.Get(ctx, testOwner, tx.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// The reversal left its own audit trail.
	entries, err := e.inventory.ListAudit(ctx, testOwner, product.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, models.StockReasonSaleReversal, entries[0].Reason)
	assert.Equal(t, 3.0, entries[0].Delta)
}

func TestDeleteExpenseRestoresBankBalance(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	bank, err := e.balances.OpenBankAccount(ctx, testOwner, "Wave", 1000)
	require.NoError(t, err)

	tx, err := e.svc.LogExpense(ctx, testOwner, ExpenseInput{Amount: 300, Category: "transport", BankName: "Wave"})
	require.NoError(t, err)

	require.NoError(t, e.svc.DeleteTransaction(ctx, testOwner, tx.ID))

	account, err := e.store.GetBankAccount(ctx, testOwner, bank.ID)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, account.Balance)
}

func TestDeletePaymentRestoresBothLedgers(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	e.seedProduct(t, "Savon", 10, 50, 80)

	_, err := e.svc.LogSale(ctx, testOwner, SaleInput{
		Items:         []SaleItemInput{{ProductName: "Savon", Quantity: 3, UnitPrice: 80}},
		CustomerName:  "Awa",
		PaymentMethod: models.PaymentCredit,
	})
	require.NoError(t, err)

	payment, err := e.svc.LogCustomerPayment(ctx, testOwner, PaymentInput{CustomerName: "Awa", Amount: 200, BankName: "Wave"})
	require.NoError(t, err)

	require.NoError(t, e.svc.DeleteTransaction(ctx, testOwner, payment.ID))

	customers, err := e.store.ListCustomers(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, 240.0, customers[0].BalanceOwed)

	accounts, err := e.store.ListBankAccounts(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, 0.0, accounts[0].Balance)
}

func TestDeleteUnknownTransaction(t *testing.T) {
	e := newTestEngine(t)
	err := e.svc.DeleteTransaction(context.Background(), testOwner, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeleteScopedByOwner(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	tx, err := e.svc.LogExpense(ctx, testOwner, ExpenseInput{Amount: 100, Category: "divers"})
	require.NoError(t, err)

	err = e.svc.DeleteTransaction(ctx, "owner-2", tx.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = e.store.Get(ctx, testOwner, tx.ID)
	assert.NoError(t, err)
}

func TestEditSaleItemsReappliesInventoryAndBank(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	product := e.seedProduct(t, "Savon", 10, 50, 80)

	result, err := e.svc.LogSale(ctx, testOwner, SaleInput{
		Items:         []SaleItemInput{{ProductName: "Savon", Quantity: 2, UnitPrice: 80}},
		PaymentMethod: models.PaymentBank,
		BankName:      "Wave",
	})
	require.NoError(t, err)
	tx := result.Transaction
	assert.Equal(t, 8.0, e.productQuantity(t, product.ID))

	edited, err := e.svc.EditTransaction(ctx, testOwner, tx.ID, TransactionChanges{
		Items: []SaleItemInput{{ProductName: "Savon", Quantity: 5, UnitPrice: 80}},
	})
	require.NoError(t, err)

	assert.Equal(t, 400.0, edited.Amount)
	assert.Equal(t, "Sale: 5 x Savon", edited.Description)
	assert.Equal(t, 5.0, e.productQuantity(t, product.ID))

	accounts, err := e.store.ListBankAccounts(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, 400.0, accounts[0].Balance)
}

func TestEditSaleItemsResnapshotsCurrentCost(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	e.seedProduct(t, "Savon", 10, 50, 80)

	result, err := e.svc.LogSale(ctx, testOwner, SaleInput{
		Items:         []SaleItemInput{{ProductName: "Savon", Quantity: 2, UnitPrice: 80}},
		PaymentMethod: models.PaymentCash,
	})
	require.NoError(t, err)
	assert.Equal(t, 50.0, result.Transaction.Sale.Items[0].UnitCostSnapshot)

	// Later receipt moves the average cost; a wholesale item replacement
	// snapshots the new cost, a metadata-only edit keeps the old one.
	_, err = e.svc.ReceiveStock(ctx, testOwner, inventory.ReceiveStockInput{
		Name: "Savon", Quantity: 8, UnitCost: 110, SellingPrice: 80,
	})
	require.NoError(t, err)

	edited, err := e.svc.EditTransaction(ctx, testOwner, result.Transaction.ID, TransactionChanges{
		Items: []SaleItemInput{{ProductName: "Savon", Quantity: 2, UnitPrice: 80}},
	})
	require.NoError(t, err)
	assert.Equal(t, 80.0, edited.Sale.Items[0].UnitCostSnapshot)

	edited, err = e.svc.EditTransaction(ctx, testOwner, result.Transaction.ID, TransactionChanges{
		Description: ptr("soldes"),
	})
	require.NoError(t, err)
	assert.Equal(t, "soldes", edited.Description)
	assert.Equal(t, 80.0, edited.Sale.Items[0].UnitCostSnapshot)
}

func TestEditSalePaymentMethodMovesBalanceBetweenLedgers(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	e.seedProduct(t, "Savon", 10, 50, 80)

	result, err := e.svc.LogSale(ctx, testOwner, SaleInput{
		Items:         []SaleItemInput{{ProductName: "Savon", Quantity: 3, UnitPrice: 80}},
		PaymentMethod: models.PaymentBank,
		BankName:      "Wave",
	})
	require.NoError(t, err)

	edited, err := e.svc.EditTransaction(ctx, testOwner, result.Transaction.ID, TransactionChanges{
		PaymentMethod: ptr(models.PaymentCredit),
		CustomerName:  ptr("Awa"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCredit, edited.Sale.PaymentMethod)

	accounts, err := e.store.ListBankAccounts(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, 0.0, accounts[0].Balance)

	customers, err := e.store.ListCustomers(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, 240.0, customers[0].BalanceOwed)
}

func TestEditSaleRejectsExplicitAmount(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	product := e.seedProduct(t, "Savon", 10, 50, 80)

	result, err := e.svc.LogSale(ctx, testOwner, SaleInput{
		Items:         []SaleItemInput{{ProductName: "Savon", Quantity: 3, UnitPrice: 80}},
		PaymentMethod: models.PaymentCash,
	})
	require.NoError(t, err)

	_, err = e.svc.EditTransaction(ctx, testOwner, result.Transaction.ID, TransactionChanges{Amount: ptr(999.0)})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	// Fail-fast: the invalid edit touched nothing.
	assert.Equal(t, 7.0, e.productQuantity(t, product.ID))
	stored, err := e.store.Get(ctx, testOwner, result.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, 240.0, stored.Amount)
}

func TestEditSaleUnknownProductFailsBeforeMutation(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	product := e.seedProduct(t, "Savon", 10, 50, 80)

	result, err := e.svc.LogSale(ctx, testOwner, SaleInput{
		Items:         []SaleItemInput{{ProductName: "Savon", Quantity: 3, UnitPrice: 80}},
		PaymentMethod: models.PaymentCash,
	})
	require.NoError(t, err)

	_, err = e.svc.EditTransaction(ctx, testOwner, result.Transaction.ID, TransactionChanges{
		Items: []SaleItemInput{{ProductName: "Inconnu", Quantity: 1, UnitPrice: 10}},
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Equal(t, 7.0, e.productQuantity(t, product.ID))
}

func TestEditSaleCreditWithoutCustomerRejected(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	e.seedProduct(t, "Savon", 10, 50, 80)

	result, err := e.svc.LogSale(ctx, testOwner, SaleInput{
		Items:         []SaleItemInput{{ProductName: "Savon", Quantity: 1, UnitPrice: 80}},
		PaymentMethod: models.PaymentCash,
	})
	require.NoError(t, err)

	_, err = e.svc.EditTransaction(ctx, testOwner, result.Transaction.ID, TransactionChanges{
		PaymentMethod: ptr(models.PaymentCredit),
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestEditExpenseAmountAndBankLink(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	bank, err := e.balances.OpenBankAccount(ctx, testOwner, "Wave", 1000)
	require.NoError(t, err)

	tx, err := e.svc.LogExpense(ctx, testOwner, ExpenseInput{Amount: 300, Category: "transport", BankName: "Wave"})
	require.NoError(t, err)

	edited, err := e.svc.EditTransaction(ctx, testOwner, tx.ID, TransactionChanges{
		Amount:   ptr(500.0),
		Category: ptr("carburant"),
	})
	require.NoError(t, err)
	assert.Equal(t, 500.0, edited.Amount)
	assert.Equal(t, "carburant", edited.Expense.Category)

	account, err := e.store.GetBankAccount(ctx, testOwner, bank.ID)
	require.NoError(t, err)
	assert.Equal(t, 500.0, account.Balance)

	// Clearing the bank link refunds the account.
	_, err = e.svc.EditTransaction(ctx, testOwner, tx.ID, TransactionChanges{BankName: ptr("")})
	require.NoError(t, err)

	account, err = e.store.GetBankAccount(ctx, testOwner, bank.ID)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, account.Balance)
}

func TestEditPaymentReassignsCustomer(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	awa, err := e.balances.ResolveCustomer(ctx, testOwner, "Awa")
	require.NoError(t, err)
	_, err = e.balances.ApplyCustomerDelta(ctx, testOwner, awa.ID, 500)
	require.NoError(t, err)

	tx, err := e.svc.LogCustomerPayment(ctx, testOwner, PaymentInput{CustomerName: "Awa", Amount: 200})
	require.NoError(t, err)

	edited, err := e.svc.EditTransaction(ctx, testOwner, tx.ID, TransactionChanges{
		CustomerName: ptr("Moussa"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Moussa", edited.Payment.CustomerName)

	customers, err := e.store.ListCustomers(ctx, testOwner)
	require.NoError(t, err)
	require.Len(t, customers, 2)
	assert.Equal(t, "Awa", customers[0].Name)
	assert.Equal(t, 500.0, customers[0].BalanceOwed)
	assert.Equal(t, "Moussa", customers[1].Name)
	assert.Equal(t, -200.0, customers[1].BalanceOwed)
}

func TestEditDateOnly(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	tx, err := e.svc.LogExpense(ctx, testOwner, ExpenseInput{Amount: 100, Category: "divers"})
	require.NoError(t, err)

	backdated := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	edited, err := e.svc.EditTransaction(ctx, testOwner, tx.ID, TransactionChanges{Date: ptr(backdated)})
	require.NoError(t, err)
	assert.Equal(t, backdated, edited.Date)
	assert.Equal(t, 100.0, edited.Amount)
}

// flakyProducts fails quantity deltas on demand, simulating a store outage
// mid-reversal.
type flakyProducts struct {
	*memory.Store
	failDeltas bool
}

func (f *flakyProducts) ApplyQuantityDelta(ctx context.Context, ownerID, id string, delta float64) (*models.Product, error) {
	if f.failDeltas {
		return nil, errors.New("write concern timeout")
	}
	return f.Store.ApplyQuantityDelta(ctx, ownerID, id, delta)
}

// flakyBanks fails balance deltas on demand.
type flakyBanks struct {
	*memory.Store
	failDeltas bool
}

func (f *flakyBanks) ApplyBankDelta(ctx context.Context, ownerID, id string, amount float64) (*models.BankAccount, error) {
	if f.failDeltas {
		return nil, errors.New("write concern timeout")
	}
	return f.Store.ApplyBankDelta(ctx, ownerID, id, amount)
}

// flakyCustomers fails customer resolution on demand.
type flakyCustomers struct {
	*memory.Store
	failResolve bool
}

func (f *flakyCustomers) FindOrCreateCustomer(ctx context.Context, ownerID, name string, openingBalance float64) (*models.Customer, error) {
	if f.failResolve {
		return nil, errors.New("write concern timeout")
	}
	return f.Store.FindOrCreateCustomer(ctx, ownerID, name, openingBalance)
}

func TestDeleteLeavesRecordWhenReversalStepFails(t *testing.T) {
	store := memory.NewStore()
	products := &flakyProducts{Store: store}
	inv := inventory.NewService(products, zap.NewNop())
	bal := balances.NewService(store, store, zap.NewNop())
	svc := NewService(store, inv, bal, zap.NewNop())
	ctx := context.Background()

	_, err := svc.ReceiveStock(ctx, testOwner, inventory.ReceiveStockInput{
		Name: "Savon", Quantity: 10, UnitCost: 50, SellingPrice: 80,
	})
	require.NoError(t, err)

	result, err := svc.LogSale(ctx, testOwner, SaleInput{
		Items:         []SaleItemInput{{ProductName: "Savon", Quantity: 3, UnitPrice: 80}},
		PaymentMethod: models.PaymentCash,
	})
	require.NoError(t, err)
	tx := result.Transaction

	products.failDeltas = true
	err = svc.DeleteTransaction(ctx, testOwner, tx.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrReversal)
	assert.Contains(t, err.Error(), tx.ID)
	assert.Contains(t, err.Error(), "step 1")

	// The record survives an aborted delete.
	stored, err := store.Get(ctx, testOwner, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, 240.0, stored.Amount)
}

func TestEditLeavesRecordWhenReversalStepFails(t *testing.T) {
	store := memory.NewStore()
	banks := &flakyBanks{Store: store}
	inv := inventory.NewService(store, zap.NewNop())
	bal := balances.NewService(store, banks, zap.NewNop())
	svc := NewService(store, inv, bal, zap.NewNop())
	ctx := context.Background()

	tx, err := svc.LogExpense(ctx, testOwner, ExpenseInput{Amount: 300, Category: "transport", BankName: "Wave"})
	require.NoError(t, err)

	banks.failDeltas = true
	_, err = svc.EditTransaction(ctx, testOwner, tx.ID, TransactionChanges{Amount: ptr(500.0)})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrReversal)
	assert.Contains(t, err.Error(), tx.ID)

	stored, err := store.Get(ctx, testOwner, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, 300.0, stored.Amount, "aborted edit keeps the original document")

	accounts, err := store.ListBankAccounts(ctx, testOwner)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, -300.0, accounts[0].Balance, "aborted reversal moved no money")
}

func TestFinishFailureAfterResumptionConsumesToken(t *testing.T) {
	store := memory.NewStore()
	customers := &flakyCustomers{Store: store}
	inv := inventory.NewService(store, zap.NewNop())
	bal := balances.NewService(customers, store, zap.NewNop())
	svc := NewService(store, inv, bal, zap.NewNop())
	ctx := context.Background()

	result, err := svc.LogSale(ctx, testOwner, SaleInput{
		Items:         []SaleItemInput{{ProductName: "Dentifrice", Quantity: 1, UnitPrice: 450}},
		CustomerName:  "Awa",
		PaymentMethod: models.PaymentCredit,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Suspension)

	customers.failResolve = true
	_, err = svc.ResolveSaleItem(ctx, result.Suspension.Token, SaleResolution{IsService: true})
	require.Error(t, err)

	// The token is gone; the sale has to be re-submitted.
	customers.failResolve = false
	_, err = svc.ResolveSaleItem(ctx, result.Suspension.Token, SaleResolution{IsService: true})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	transactions, err := store.ListByRange(ctx, testOwner, repository.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, transactions, "nothing was recorded by the failed finish")
}
