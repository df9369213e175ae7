package balances

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/ousmanedia/boutik/internal/apperrors"
	"github.com/ousmanedia/boutik/internal/domain/models"
	"github.com/ousmanedia/boutik/internal/repository"
)

// Service owns the two running-number ledgers: customer receivables and bank
// cash. The two are structurally identical; each balance is mutated only by
// signed deltas. There is no transfer primitive; a transfer is two
// independent deltas issued by the orchestrator.
type Service struct {
	customers repository.CustomerRepository
	banks     repository.BankRepository
	logger    *zap.Logger
}

// NewService wires a new balance ledger service.
func NewService(customers repository.CustomerRepository, banks repository.BankRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{customers: customers, banks: banks, logger: logger}
}

// ResolveCustomer finds a customer by case-insensitive name, creating it with
// a zero balance when absent.
func (s *Service) ResolveCustomer(ctx context.Context, ownerID, name string) (*models.Customer, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: customer name is required", apperrors.ErrInvalidInput)
	}
	return s.customers.FindOrCreateCustomer(ctx, ownerID, name, 0)
}

// ApplyCustomerDelta increments the receivable balance by amount, positive or
// negative, and returns the updated balance.
func (s *Service) ApplyCustomerDelta(ctx context.Context, ownerID, customerID string, amount float64) (*models.Customer, error) {
	customer, err := s.customers.ApplyCustomerDelta(ctx, ownerID, customerID, amount)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("customer balance updated",
		zap.String("owner_id", ownerID),
		zap.String("customer_id", customerID),
		zap.Float64("delta", amount),
		zap.Float64("balance_owed", customer.BalanceOwed))
	return customer, nil
}

// ResolveBank finds a bank account by case-insensitive name, creating it with
// a zero balance when absent.
func (s *Service) ResolveBank(ctx context.Context, ownerID, name string) (*models.BankAccount, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: bank account name is required", apperrors.ErrInvalidInput)
	}
	return s.banks.FindOrCreateBankAccount(ctx, ownerID, name, 0)
}

// OpenBankAccount explicitly creates an account with an opening balance.
// Opening an account whose name already exists fails with ErrDuplicate.
func (s *Service) OpenBankAccount(ctx context.Context, ownerID, name string, openingBalance float64) (*models.BankAccount, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: bank account name is required", apperrors.ErrInvalidInput)
	}
	if math.IsNaN(openingBalance) || math.IsInf(openingBalance, 0) {
		return nil, fmt.Errorf("%w: opening balance must be a number", apperrors.ErrInvalidInput)
	}
	return s.banks.CreateBankAccount(ctx, ownerID, name, openingBalance)
}

// ApplyBankDelta increments the cash balance by amount, positive or negative,
// and returns the updated balance.
func (s *Service) ApplyBankDelta(ctx context.Context, ownerID, bankID string, amount float64) (*models.BankAccount, error) {
	account, err := s.banks.ApplyBankDelta(ctx, ownerID, bankID, amount)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("bank balance updated",
		zap.String("owner_id", ownerID),
		zap.String("bank_id", bankID),
		zap.Float64("delta", amount),
		zap.Float64("balance", account.Balance))
	return account, nil
}
