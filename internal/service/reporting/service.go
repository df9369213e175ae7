package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ousmanedia/boutik/internal/domain/models"
	"github.com/ousmanedia/boutik/internal/repository"
)

// defaultTopExpenseLimit caps the expense-by-category breakdown.
const defaultTopExpenseLimit = 5

// Service derives read-only report datasets from the ledger store. It never
// mutates state, and COGS always comes from the cost snapshots stored on sale
// items so historical reports stay stable under later cost changes.
type Service struct {
	transactions    repository.TransactionRepository
	products        repository.ProductRepository
	customers       repository.CustomerRepository
	banks           repository.BankRepository
	snapshots       repository.SnapshotRepository
	topExpenseLimit int
	logger          *zap.Logger
}

// NewService wires a new reporting service instance.
func NewService(
	transactions repository.TransactionRepository,
	products repository.ProductRepository,
	customers repository.CustomerRepository,
	banks repository.BankRepository,
	snapshots repository.SnapshotRepository,
	topExpenseLimit int,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if topExpenseLimit <= 0 {
		topExpenseLimit = defaultTopExpenseLimit
	}
	return &Service{
		transactions:    transactions,
		products:        products,
		customers:       customers,
		banks:           banks,
		snapshots:       snapshots,
		topExpenseLimit: topExpenseLimit,
		logger:          logger,
	}
}

// ComputeProfitAndLoss scans the ledger for the date range and derives the
// P&L statement: revenue, COGS from snapshotted costs, expenses grouped by
// category, gross and net profit.
func (s *Service) ComputeProfitAndLoss(ctx context.Context, ownerID string, start, end time.Time) (*models.ProfitAndLoss, error) {
	transactions, err := s.transactions.ListByRange(ctx, ownerID, repository.TransactionFilter{Start: start, End: end})
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	report := &models.ProfitAndLoss{OwnerID: ownerID, Start: start, End: end}
	byCategory := map[string]float64{}

	for _, tx := range transactions {
		switch tx.Type {
		case models.TransactionSale:
			report.TotalSales += tx.Amount
			if tx.Sale == nil {
				continue
			}
			for _, item := range tx.Sale.Items {
				if item.IsService {
					continue
				}
				report.TotalCOGS += item.Quantity * item.UnitCostSnapshot
			}
		case models.TransactionExpense:
			report.TotalExpenses += tx.Amount
			if tx.Expense != nil {
				byCategory[tx.Expense.Category] += tx.Amount
			}
		}
	}

	report.GrossProfit = report.TotalSales - report.TotalCOGS
	report.NetProfit = report.GrossProfit - report.TotalExpenses
	report.TopExpenses = topCategories(byCategory, s.topExpenseLimit)
	return report, nil
}

// ListTransactions scans the ledger for the owner, optionally filtered by
// type, sorted by date ascending.
func (s *Service) ListTransactions(ctx context.Context, ownerID string, txType *models.TransactionType, start, end time.Time) ([]models.Transaction, error) {
	return s.transactions.ListByRange(ctx, ownerID, repository.TransactionFilter{Type: txType, Start: start, End: end})
}

// ListProducts returns the owner's inventory with current quantities and
// valuation.
func (s *Service) ListProducts(ctx context.Context, ownerID string) ([]models.Product, error) {
	return s.products.ListProducts(ctx, ownerID)
}

// ListBankBalances returns the owner's bank accounts and cash balances.
func (s *Service) ListBankBalances(ctx context.Context, ownerID string) ([]models.BankAccount, error) {
	return s.banks.ListBankAccounts(ctx, ownerID)
}

// ListCustomersWithBalance returns the owner's customers and their
// receivable balances.
func (s *Service) ListCustomersWithBalance(ctx context.Context, ownerID string) ([]models.Customer, error) {
	return s.customers.ListCustomers(ctx, ownerID)
}

// SnapshotDay computes and persists the P&L snapshot covering one calendar
// day for one owner.
func (s *Service) SnapshotDay(ctx context.Context, ownerID string, day time.Time) (*models.DailySnapshot, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)

	report, err := s.ComputeProfitAndLoss(ctx, ownerID, start, end)
	if err != nil {
		return nil, err
	}

	snapshot := models.DailySnapshot{
		OwnerID: ownerID,
		Date:    start,
		Report:  *report,
	}
	if err := s.snapshots.SaveDailySnapshot(ctx, snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// SnapshotAllOwners runs SnapshotDay for every owner present in the ledger.
// Per-owner failures are logged and skipped so one bad owner does not starve
// the rest.
func (s *Service) SnapshotAllOwners(ctx context.Context, day time.Time) ([]models.DailySnapshot, error) {
	owners, err := s.transactions.DistinctOwners(ctx)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}

	var out []models.DailySnapshot
	for _, owner := range owners {
		snapshot, err := s.SnapshotDay(ctx, owner, day)
		if err != nil {
			s.logger.Error("daily snapshot failed", zap.String("owner_id", owner), zap.Error(err))
			continue
		}
		out = append(out, *snapshot)
	}
	return out, nil
}

func topCategories(byCategory map[string]float64, limit int) []models.CategoryTotal {
	totals := make([]models.CategoryTotal, 0, len(byCategory))
	for category, total := range byCategory {
		totals = append(totals, models.CategoryTotal{Category: category, Total: total})
	}

	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Total != totals[j].Total {
			return totals[i].Total > totals[j].Total
		}
		return totals[i].Category < totals[j].Category
	})

	if len(totals) > limit {
		totals = totals[:limit]
	}
	return totals
}
