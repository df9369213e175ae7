package accounting

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/ousmanedia/boutik/internal/apperrors"
	"github.com/ousmanedia/boutik/internal/domain/models"
	"github.com/ousmanedia/boutik/internal/repository"
	"github.com/ousmanedia/boutik/internal/service/balances"
	"github.com/ousmanedia/boutik/internal/service/inventory"
)

// fuzzyCandidateLimit caps the disambiguation candidates surfaced per item.
const fuzzyCandidateLimit = 5

// Service is the accounting orchestrator: the transaction-type-specific
// workflows that compute amounts, snapshot costs and apply the correct
// combination of ledger mutations, plus the reversal protocol for edits and
// deletes. All mutating entry points serialize per owner.
type Service struct {
	transactions repository.TransactionRepository
	inventory    *inventory.Service
	balances     *balances.Service
	pending      *pendingSales
	locks        *ownerLocks
	logger       *zap.Logger
	now          func() time.Time
}

// NewService constructs the orchestrator.
func NewService(transactions repository.TransactionRepository, inv *inventory.Service, bal *balances.Service, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		transactions: transactions,
		inventory:    inv,
		balances:     bal,
		pending:      newPendingSales(),
		locks:        newOwnerLocks(),
		logger:       logger,
		now:          time.Now,
	}
}

// SaleItemInput is one line of a requested sale.
type SaleItemInput struct {
	ProductName string  `json:"product_name"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	IsService   bool    `json:"is_service"`
}

// SaleInput carries one requested sale with already-parsed structured values.
type SaleInput struct {
	Items         []SaleItemInput      `json:"items"`
	CustomerName  string               `json:"customer_name"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	BankName      string               `json:"bank_name"`
	Date          time.Time            `json:"date"`
	Description   string               `json:"description"`
}

// SaleResult is either a recorded transaction or a suspension awaiting
// disambiguation, never both.
type SaleResult struct {
	Transaction *models.Transaction `json:"transaction,omitempty"`
	Suspension  *Suspension         `json:"suspension,omitempty"`
}

// LogSale validates the sale, resolves every line item to a product or a
// service, and records it. When an item cannot be auto-resolved the workflow
// suspends: partial state is parked under a resumption token and a Suspension
// is returned instead of a transaction. Validation failures abort before any
// ledger mutation.
func (s *Service) LogSale(ctx context.Context, ownerID string, in SaleInput) (*SaleResult, error) {
	if err := validateSaleInput(in); err != nil {
		return nil, err
	}

	items := make([]models.SaleItem, len(in.Items))
	for i, item := range in.Items {
		items[i] = models.SaleItem{
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			IsService:   item.IsService,
		}
	}

	date := in.Date
	if date.IsZero() {
		date = s.now().UTC()
	}

	sale := &pendingSale{
		ownerID:      ownerID,
		items:        items,
		customerName: in.CustomerName,
		method:       in.PaymentMethod,
		bankName:     in.BankName,
		date:         date,
		description:  in.Description,
	}
	return s.continueSale(ctx, "", sale)
}

// ResolveSaleItem resumes a suspended sale with the caller's disambiguation
// choice for the current item. The result may be another suspension when a
// later item is also ambiguous. An invalid or failed choice keeps the token
// alive; a failure while recording the fully resolved sale does not, and the
// sale must be re-submitted.
func (s *Service) ResolveSaleItem(ctx context.Context, token string, choice SaleResolution) (*SaleResult, error) {
	sale, ok := s.pending.take(token)
	if !ok {
		return nil, fmt.Errorf("%w: no pending sale for token", apperrors.ErrNotFound)
	}

	item := &sale.items[sale.index]
	switch {
	case choice.ProductID != "":
		product, err := s.inventory.Get(ctx, sale.ownerID, choice.ProductID)
		if err != nil {
			s.pending.restore(token, sale)
			return nil, err
		}
		item.ProductID = product.ID
		item.ProductName = product.Name
	case choice.IsService:
		item.IsService = true
	case choice.CreateProduct:
		product, err := s.inventory.CreateUnstocked(ctx, sale.ownerID, item.ProductName, item.UnitPrice)
		if err != nil {
			s.pending.restore(token, sale)
			return nil, err
		}
		item.ProductID = product.ID
	default:
		s.pending.restore(token, sale)
		return nil, fmt.Errorf("%w: resolution must name a product, a service, or a new product", apperrors.ErrInvalidInput)
	}

	sale.index++
	return s.continueSale(ctx, token, sale)
}

// continueSale walks the unresolved items from the current index. Items are
// bound to product ids here; cost snapshots are taken later, under the owner
// lock, so they reflect the cost at the moment the sale is recorded.
func (s *Service) continueSale(ctx context.Context, token string, sale *pendingSale) (*SaleResult, error) {
	for sale.index < len(sale.items) {
		item := &sale.items[sale.index]
		if item.IsService || item.ProductID != "" {
			sale.index++
			continue
		}

		product, err := s.inventory.FindByExactName(ctx, sale.ownerID, item.ProductName)
		if err == nil {
			item.ProductID = product.ID
			item.ProductName = product.Name
			sale.index++
			continue
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			if token != "" {
				s.pending.restore(token, sale)
			}
			return nil, err
		}

		candidates, err := s.inventory.FindByFuzzyName(ctx, sale.ownerID, item.ProductName, fuzzyCandidateLimit)
		if err != nil {
			if token != "" {
				s.pending.restore(token, sale)
			}
			return nil, err
		}

		suspension := &Suspension{ItemIndex: sale.index, ProductName: item.ProductName}
		for _, c := range candidates {
			suspension.Candidates = append(suspension.Candidates, Candidate{ProductID: c.ID, Name: c.Name})
		}

		if token == "" {
			token = s.pending.put(sale)
		} else {
			s.pending.restore(token, sale)
		}
		suspension.Token = token

		s.logger.Info("sale suspended for product disambiguation",
			zap.String("owner_id", sale.ownerID),
			zap.String("token", token),
			zap.String("product_name", item.ProductName),
			zap.Int("candidates", len(suspension.Candidates)))
		return &SaleResult{Suspension: suspension}, nil
	}

	// Past this point the token, if any, stays consumed: finishSale may have
	// appended the transaction before failing, so restoring the pending sale
	// could record it twice. A finish failure means re-submitting the sale.
	tx, err := s.finishSale(ctx, sale)
	if err != nil {
		return nil, err
	}
	return &SaleResult{Transaction: tx}, nil
}

// finishSale runs once every item is resolved: snapshot costs, append the
// transaction, then apply the ledger effects.
func (s *Service) finishSale(ctx context.Context, sale *pendingSale) (*models.Transaction, error) {
	unlock := s.locks.acquire(sale.ownerID)
	defer unlock()

	for i := range sale.items {
		item := &sale.items[i]
		if item.IsService {
			item.ProductID = ""
			item.UnitCostSnapshot = 0
			continue
		}
		product, err := s.inventory.Get(ctx, sale.ownerID, item.ProductID)
		if err != nil {
			return nil, err
		}
		item.UnitCostSnapshot = product.AverageCost
	}

	details := &models.SaleDetails{
		Items:         sale.items,
		PaymentMethod: sale.method,
	}

	if sale.customerName != "" {
		customer, err := s.balances.ResolveCustomer(ctx, sale.ownerID, sale.customerName)
		if err != nil {
			return nil, err
		}
		details.CustomerID = customer.ID
		details.CustomerName = customer.Name
	}
	if sale.bankName != "" {
		bank, err := s.balances.ResolveBank(ctx, sale.ownerID, sale.bankName)
		if err != nil {
			return nil, err
		}
		details.BankID = bank.ID
	}

	description := sale.description
	if description == "" {
		description = models.SaleDescription(sale.items)
	}

	stored, err := s.transactions.Append(ctx, models.Transaction{
		OwnerID:     sale.ownerID,
		Type:        models.TransactionSale,
		Amount:      models.SaleAmount(sale.items),
		Date:        sale.date,
		Description: description,
		Sale:        details,
	})
	if err != nil {
		return nil, err
	}

	if err := s.applyEffects(ctx, stored); err != nil {
		s.logger.Error("sale recorded but effects incomplete, manual reconciliation required",
			zap.String("owner_id", sale.ownerID),
			zap.String("transaction_id", stored.ID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("sale recorded",
		zap.String("owner_id", sale.ownerID),
		zap.String("transaction_id", stored.ID),
		zap.Float64("amount", stored.Amount),
		zap.String("payment_method", string(sale.method)))
	return stored, nil
}

// ExpenseInput carries one requested expense.
type ExpenseInput struct {
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	BankName    string    `json:"bank_name"`
	Date        time.Time `json:"date"`
}

// LogExpense records an expense and, when a bank account is referenced,
// decreases its balance.
func (s *Service) LogExpense(ctx context.Context, ownerID string, in ExpenseInput) (*models.Transaction, error) {
	if !isFinite(in.Amount) || in.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be a positive number", apperrors.ErrInvalidInput)
	}
	if in.Category == "" {
		return nil, fmt.Errorf("%w: category is required", apperrors.ErrInvalidInput)
	}

	unlock := s.locks.acquire(ownerID)
	defer unlock()

	details := &models.ExpenseDetails{Category: in.Category}
	if in.BankName != "" {
		bank, err := s.balances.ResolveBank(ctx, ownerID, in.BankName)
		if err != nil {
			return nil, err
		}
		details.BankID = bank.ID
	}

	date := in.Date
	if date.IsZero() {
		date = s.now().UTC()
	}
	description := in.Description
	if description == "" {
		description = "Expense: " + in.Category
	}

	stored, err := s.transactions.Append(ctx, models.Transaction{
		OwnerID:     ownerID,
		Type:        models.TransactionExpense,
		Amount:      in.Amount,
		Date:        date,
		Description: description,
		Expense:     details,
	})
	if err != nil {
		return nil, err
	}

	if err := s.applyEffects(ctx, stored); err != nil {
		s.logger.Error("expense recorded but effects incomplete, manual reconciliation required",
			zap.String("owner_id", ownerID),
			zap.String("transaction_id", stored.ID),
			zap.Error(err))
		return nil, err
	}
	return stored, nil
}

// PaymentInput carries one customer payment against their receivable.
type PaymentInput struct {
	CustomerName string    `json:"customer_name"`
	Amount       float64   `json:"amount"`
	BankName     string    `json:"bank_name"`
	Date         time.Time `json:"date"`
	Description  string    `json:"description"`
}

// LogCustomerPayment records a payment: the customer's receivable decreases
// and, when a bank account is referenced, its balance increases.
func (s *Service) LogCustomerPayment(ctx context.Context, ownerID string, in PaymentInput) (*models.Transaction, error) {
	if !isFinite(in.Amount) || in.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be a positive number", apperrors.ErrInvalidInput)
	}
	if in.CustomerName == "" {
		return nil, fmt.Errorf("%w: customer name is required", apperrors.ErrInvalidInput)
	}

	unlock := s.locks.acquire(ownerID)
	defer unlock()

	customer, err := s.balances.ResolveCustomer(ctx, ownerID, in.CustomerName)
	if err != nil {
		return nil, err
	}

	details := &models.PaymentDetails{CustomerID: customer.ID, CustomerName: customer.Name}
	if in.BankName != "" {
		bank, err := s.balances.ResolveBank(ctx, ownerID, in.BankName)
		if err != nil {
			return nil, err
		}
		details.BankID = bank.ID
	}

	date := in.Date
	if date.IsZero() {
		date = s.now().UTC()
	}
	description := in.Description
	if description == "" {
		description = "Payment from " + customer.Name
	}

	stored, err := s.transactions.Append(ctx, models.Transaction{
		OwnerID:     ownerID,
		Type:        models.TransactionCustomerPayment,
		Amount:      in.Amount,
		Date:        date,
		Description: description,
		Payment:     details,
	})
	if err != nil {
		return nil, err
	}

	if err := s.applyEffects(ctx, stored); err != nil {
		s.logger.Error("payment recorded but effects incomplete, manual reconciliation required",
			zap.String("owner_id", ownerID),
			zap.String("transaction_id", stored.ID),
			zap.Error(err))
		return nil, err
	}
	return stored, nil
}

// ReceiveStock records a stock purchase under the owner lock.
func (s *Service) ReceiveStock(ctx context.Context, ownerID string, in inventory.ReceiveStockInput) (*models.Product, error) {
	unlock := s.locks.acquire(ownerID)
	defer unlock()

	return s.inventory.ReceiveStock(ctx, ownerID, in)
}

func validateSaleInput(in SaleInput) error {
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: a sale needs at least one item", apperrors.ErrInvalidInput)
	}
	for i, item := range in.Items {
		if item.ProductName == "" {
			return fmt.Errorf("%w: item %d has no name", apperrors.ErrInvalidInput, i)
		}
		if !isFinite(item.Quantity) || item.Quantity <= 0 {
			return fmt.Errorf("%w: item %d quantity must be a positive number", apperrors.ErrInvalidInput, i)
		}
		if !isFinite(item.UnitPrice) || item.UnitPrice < 0 {
			return fmt.Errorf("%w: item %d unit price must be a non-negative number", apperrors.ErrInvalidInput, i)
		}
	}

	switch in.PaymentMethod {
	case models.PaymentCash, models.PaymentBank:
	case models.PaymentCredit:
		if in.CustomerName == "" {
			return fmt.Errorf("%w: credit sales need a customer name", apperrors.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown payment method %q", apperrors.ErrInvalidInput, in.PaymentMethod)
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
