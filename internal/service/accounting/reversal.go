package accounting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ousmanedia/boutik/internal/apperrors"
	"github.com/ousmanedia/boutik/internal/domain/models"
)

// applyEffects applies the ledger mutations implied by a stored transaction.
// It is used both at creation time and when re-deriving effects after an
// edit; the mutations are the exact mirror of reverseEffects.
func (s *Service) applyEffects(ctx context.Context, tx *models.Transaction) error {
	step := 0
	fail := func(err error) error {
		return fmt.Errorf("apply transaction %s step %d: %w", tx.ID, step, err)
	}

	switch tx.Type {
	case models.TransactionSale:
		if tx.Sale == nil {
			return fail(fmt.Errorf("%w: sale transaction has no sale details", apperrors.ErrInvalidInput))
		}
		for _, item := range tx.Sale.Items {
			if item.IsService || item.ProductID == "" {
				continue
			}
			step++
			if _, err := s.inventory.AdjustStock(ctx, tx.OwnerID, item.ProductID, -item.Quantity, models.StockReasonSale, tx.ID); err != nil {
				return fail(err)
			}
		}
		if tx.Sale.PaymentMethod == models.PaymentCredit {
			step++
			if _, err := s.balances.ApplyCustomerDelta(ctx, tx.OwnerID, tx.Sale.CustomerID, tx.Amount); err != nil {
				return fail(err)
			}
		} else if tx.Sale.BankID != "" {
			step++
			if _, err := s.balances.ApplyBankDelta(ctx, tx.OwnerID, tx.Sale.BankID, tx.Amount); err != nil {
				return fail(err)
			}
		}

	case models.TransactionExpense:
		if tx.Expense == nil {
			return fail(fmt.Errorf("%w: expense transaction has no expense details", apperrors.ErrInvalidInput))
		}
		if tx.Expense.BankID != "" {
			step++
			if _, err := s.balances.ApplyBankDelta(ctx, tx.OwnerID, tx.Expense.BankID, -tx.Amount); err != nil {
				return fail(err)
			}
		}

	case models.TransactionCustomerPayment:
		if tx.Payment == nil {
			return fail(fmt.Errorf("%w: payment transaction has no payment details", apperrors.ErrInvalidInput))
		}
		step++
		if _, err := s.balances.ApplyCustomerDelta(ctx, tx.OwnerID, tx.Payment.CustomerID, -tx.Amount); err != nil {
			return fail(err)
		}
		if tx.Payment.BankID != "" {
			step++
			if _, err := s.balances.ApplyBankDelta(ctx, tx.OwnerID, tx.Payment.BankID, tx.Amount); err != nil {
				return fail(err)
			}
		}

	default:
		return fail(fmt.Errorf("%w: unknown transaction type %q", apperrors.ErrInvalidInput, tx.Type))
	}
	return nil
}

// reverseEffects undoes the ledger effects applied at creation time: stock
// restored, balance deltas inverted. A failure mid-way leaves the ledgers in
// a known-inconsistent state; the returned error carries the transaction id
// and step index for manual reconciliation and is never swallowed.
func (s *Service) reverseEffects(ctx context.Context, tx *models.Transaction) error {
	step := 0
	fail := func(err error) error {
		return fmt.Errorf("%w: transaction %s step %d: %v", apperrors.ErrReversal, tx.ID, step, err)
	}

	switch tx.Type {
	case models.TransactionSale:
		if tx.Sale == nil {
			return fail(errors.New("sale transaction has no sale details"))
		}
		for _, item := range tx.Sale.Items {
			if item.IsService || item.ProductID == "" {
				continue
			}
			step++
			if _, err := s.inventory.AdjustStock(ctx, tx.OwnerID, item.ProductID, item.Quantity, models.StockReasonSaleReversal, tx.ID); err != nil {
				return fail(err)
			}
		}
		if tx.Sale.PaymentMethod == models.PaymentCredit {
			step++
			if _, err := s.balances.ApplyCustomerDelta(ctx, tx.OwnerID, tx.Sale.CustomerID, -tx.Amount); err != nil {
				return fail(err)
			}
		} else if tx.Sale.BankID != "" {
			step++
			if _, err := s.balances.ApplyBankDelta(ctx, tx.OwnerID, tx.Sale.BankID, -tx.Amount); err != nil {
				return fail(err)
			}
		}

	case models.TransactionExpense:
		if tx.Expense == nil {
			return fail(errors.New("expense transaction has no expense details"))
		}
		if tx.Expense.BankID != "" {
			step++
			if _, err := s.balances.ApplyBankDelta(ctx, tx.OwnerID, tx.Expense.BankID, tx.Amount); err != nil {
				return fail(err)
			}
		}

	case models.TransactionCustomerPayment:
		if tx.Payment == nil {
			return fail(errors.New("payment transaction has no payment details"))
		}
		step++
		if _, err := s.balances.ApplyCustomerDelta(ctx, tx.OwnerID, tx.Payment.CustomerID, tx.Amount); err != nil {
			return fail(err)
		}
		if tx.Payment.BankID != "" {
			step++
			if _, err := s.balances.ApplyBankDelta(ctx, tx.OwnerID, tx.Payment.BankID, -tx.Amount); err != nil {
				return fail(err)
			}
		}

	default:
		return fail(fmt.Errorf("unknown transaction type %q", tx.Type))
	}
	return nil
}

// DeleteTransaction reverses the transaction's ledger effects, then removes
// the record. Ownership must already have been authorized by the caller.
func (s *Service) DeleteTransaction(ctx context.Context, ownerID, transactionID string) error {
	unlock := s.locks.acquire(ownerID)
	defer unlock()

	tx, err := s.transactions.Get(ctx, ownerID, transactionID)
	if err != nil {
		return err
	}

	if err := s.reverseEffects(ctx, tx); err != nil {
		s.logger.Error("delete aborted mid-reversal, manual reconciliation required",
			zap.String("owner_id", ownerID),
			zap.String("transaction_id", transactionID),
			zap.Error(err))
		return err
	}

	if err := s.transactions.Delete(ctx, ownerID, transactionID); err != nil {
		return err
	}

	s.logger.Info("transaction deleted",
		zap.String("owner_id", ownerID),
		zap.String("transaction_id", transactionID),
		zap.String("type", string(tx.Type)))
	return nil
}

// TransactionChanges is a partial update for an existing transaction; nil
// fields keep the stored value. Supplying Items replaces a sale's line items
// wholesale and re-snapshots their unit costs from the products' current
// average cost; edits that leave Items nil carry the stored snapshots over
// unchanged.
type TransactionChanges struct {
	Amount        *float64              `json:"amount,omitempty"`
	Date          *time.Time            `json:"date,omitempty"`
	Description   *string               `json:"description,omitempty"`
	Category      *string               `json:"category,omitempty"`
	PaymentMethod *models.PaymentMethod `json:"payment_method,omitempty"`
	CustomerName  *string               `json:"customer_name,omitempty"`
	BankName      *string               `json:"bank_name,omitempty"`
	Items         []SaleItemInput       `json:"items,omitempty"`
}

// EditTransaction rolls back the original's ledger effects, replaces the
// stored document with the merged one, and re-derives effects from the new
// document using the same per-type rules as the creation workflows. This
// rollback-then-reapply is the compensating-transaction substitute for a true
// multi-document transaction. The merge is validated before any mutation.
func (s *Service) EditTransaction(ctx context.Context, ownerID, transactionID string, changes TransactionChanges) (*models.Transaction, error) {
	unlock := s.locks.acquire(ownerID)
	defer unlock()

	original, err := s.transactions.Get(ctx, ownerID, transactionID)
	if err != nil {
		return nil, err
	}

	merged, err := s.mergeChanges(ctx, original, changes)
	if err != nil {
		return nil, err
	}

	if err := s.reverseEffects(ctx, original); err != nil {
		s.logger.Error("edit aborted mid-reversal, manual reconciliation required",
			zap.String("owner_id", ownerID),
			zap.String("transaction_id", transactionID),
			zap.Error(err))
		return nil, err
	}

	stored, err := s.transactions.Replace(ctx, ownerID, transactionID, *merged)
	if err != nil {
		return nil, err
	}

	if err := s.applyEffects(ctx, stored); err != nil {
		s.logger.Error("edit replaced record but reapply incomplete, manual reconciliation required",
			zap.String("owner_id", ownerID),
			zap.String("transaction_id", transactionID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("transaction edited",
		zap.String("owner_id", ownerID),
		zap.String("transaction_id", transactionID),
		zap.Float64("amount", stored.Amount))
	return stored, nil
}

// mergeChanges builds the replacement document. It never mutates a ledger
// balance: name references resolve via find-or-create, which can insert a
// zero-balance account record but nothing else. A validation failure here
// aborts the edit before any balance or stock change.
func (s *Service) mergeChanges(ctx context.Context, original *models.Transaction, changes TransactionChanges) (*models.Transaction, error) {
	merged := *original
	if changes.Date != nil {
		merged.Date = *changes.Date
	}
	if changes.Description != nil {
		merged.Description = *changes.Description
	}

	switch original.Type {
	case models.TransactionSale:
		if original.Sale == nil {
			return nil, fmt.Errorf("%w: sale transaction has no sale details", apperrors.ErrInvalidInput)
		}
		sale := *original.Sale
		merged.Sale = &sale

		if changes.Amount != nil {
			return nil, fmt.Errorf("%w: a sale's amount is derived from its items", apperrors.ErrInvalidInput)
		}
		if changes.Category != nil {
			return nil, fmt.Errorf("%w: sales have no expense category", apperrors.ErrInvalidInput)
		}
		if changes.PaymentMethod != nil {
			switch *changes.PaymentMethod {
			case models.PaymentCash, models.PaymentCredit, models.PaymentBank:
				sale.PaymentMethod = *changes.PaymentMethod
			default:
				return nil, fmt.Errorf("%w: unknown payment method %q", apperrors.ErrInvalidInput, *changes.PaymentMethod)
			}
		}
		if changes.CustomerName != nil {
			if *changes.CustomerName == "" {
				sale.CustomerID = ""
				sale.CustomerName = ""
			} else {
				customer, err := s.balances.ResolveCustomer(ctx, original.OwnerID, *changes.CustomerName)
				if err != nil {
					return nil, err
				}
				sale.CustomerID = customer.ID
				sale.CustomerName = customer.Name
			}
		}
		if sale.PaymentMethod == models.PaymentCredit && sale.CustomerID == "" {
			return nil, fmt.Errorf("%w: credit sales need a customer", apperrors.ErrInvalidInput)
		}
		if changes.BankName != nil {
			if *changes.BankName == "" {
				sale.BankID = ""
			} else {
				bank, err := s.balances.ResolveBank(ctx, original.OwnerID, *changes.BankName)
				if err != nil {
					return nil, err
				}
				sale.BankID = bank.ID
			}
		}
		if changes.Items != nil {
			items, err := s.resolveEditedItems(ctx, original.OwnerID, changes.Items)
			if err != nil {
				return nil, err
			}
			sale.Items = items
			merged.Amount = models.SaleAmount(items)
			if changes.Description == nil {
				merged.Description = models.SaleDescription(items)
			}
		}

	case models.TransactionExpense:
		if original.Expense == nil {
			return nil, fmt.Errorf("%w: expense transaction has no expense details", apperrors.ErrInvalidInput)
		}
		expense := *original.Expense
		merged.Expense = &expense

		if changes.Amount != nil {
			if !isFinite(*changes.Amount) || *changes.Amount <= 0 {
				return nil, fmt.Errorf("%w: amount must be a positive number", apperrors.ErrInvalidInput)
			}
			merged.Amount = *changes.Amount
		}
		if changes.Category != nil {
			if *changes.Category == "" {
				return nil, fmt.Errorf("%w: category must not be empty", apperrors.ErrInvalidInput)
			}
			expense.Category = *changes.Category
		}
		if changes.BankName != nil {
			if *changes.BankName == "" {
				expense.BankID = ""
			} else {
				bank, err := s.balances.ResolveBank(ctx, original.OwnerID, *changes.BankName)
				if err != nil {
					return nil, err
				}
				expense.BankID = bank.ID
			}
		}

	case models.TransactionCustomerPayment:
		if original.Payment == nil {
			return nil, fmt.Errorf("%w: payment transaction has no payment details", apperrors.ErrInvalidInput)
		}
		payment := *original.Payment
		merged.Payment = &payment

		if changes.Amount != nil {
			if !isFinite(*changes.Amount) || *changes.Amount <= 0 {
				return nil, fmt.Errorf("%w: amount must be a positive number", apperrors.ErrInvalidInput)
			}
			merged.Amount = *changes.Amount
		}
		if changes.CustomerName != nil {
			if *changes.CustomerName == "" {
				return nil, fmt.Errorf("%w: payments need a customer", apperrors.ErrInvalidInput)
			}
			customer, err := s.balances.ResolveCustomer(ctx, original.OwnerID, *changes.CustomerName)
			if err != nil {
				return nil, err
			}
			payment.CustomerID = customer.ID
			payment.CustomerName = customer.Name
		}
		if changes.BankName != nil {
			if *changes.BankName == "" {
				payment.BankID = ""
			} else {
				bank, err := s.balances.ResolveBank(ctx, original.OwnerID, *changes.BankName)
				if err != nil {
					return nil, err
				}
				payment.BankID = bank.ID
			}
		}
	}

	return &merged, nil
}

// resolveEditedItems validates and resolves replacement sale items. The edit
// path has no suspension point: a product name that does not exactly match
// is an input error, and product items snapshot the current average cost.
func (s *Service) resolveEditedItems(ctx context.Context, ownerID string, inputs []SaleItemInput) ([]models.SaleItem, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: a sale needs at least one item", apperrors.ErrInvalidInput)
	}

	items := make([]models.SaleItem, len(inputs))
	for i, in := range inputs {
		if in.ProductName == "" {
			return nil, fmt.Errorf("%w: item %d has no name", apperrors.ErrInvalidInput, i)
		}
		if !isFinite(in.Quantity) || in.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item %d quantity must be a positive number", apperrors.ErrInvalidInput, i)
		}
		if !isFinite(in.UnitPrice) || in.UnitPrice < 0 {
			return nil, fmt.Errorf("%w: item %d unit price must be a non-negative number", apperrors.ErrInvalidInput, i)
		}

		item := models.SaleItem{
			ProductName: in.ProductName,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			IsService:   in.IsService,
		}
		if !in.IsService {
			product, err := s.inventory.FindByExactName(ctx, ownerID, in.ProductName)
			if err != nil {
				if errors.Is(err, apperrors.ErrNotFound) {
					return nil, fmt.Errorf("%w: unknown product %q", apperrors.ErrInvalidInput, in.ProductName)
				}
				return nil, err
			}
			item.ProductID = product.ID
			item.ProductName = product.Name
			item.UnitCostSnapshot = product.AverageCost
		}
		items[i] = item
	}
	return items, nil
}
