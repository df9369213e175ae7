package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ousmanedia/boutik/internal/apperrors"
	"github.com/ousmanedia/boutik/internal/domain/models"
	"github.com/ousmanedia/boutik/internal/repository"
)

// Store is an in-memory implementation of the repository interfaces, used by
// tests and as a dev backend when no MongoDB URI is configured. It mirrors the
// MongoDB store's semantics: case-insensitive name uniqueness, owner scoping
// on every read and write, append-only audit rows.
type Store struct {
	mu           sync.RWMutex
	transactions map[string]models.Transaction
	products     map[string]models.Product
	auditEntries []models.InventoryAuditEntry
	customers    map[string]models.Customer
	banks        map[string]models.BankAccount
	snapshots    []models.DailySnapshot
}

var (
	_ repository.TransactionRepository = (*Store)(nil)
	_ repository.ProductRepository     = (*Store)(nil)
	_ repository.CustomerRepository    = (*Store)(nil)
	_ repository.BankRepository        = (*Store)(nil)
	_ repository.SnapshotRepository    = (*Store)(nil)
)

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{
		transactions: make(map[string]models.Transaction),
		products:     make(map[string]models.Product),
		customers:    make(map[string]models.Customer),
		banks:        make(map[string]models.BankAccount),
	}
}

func (s *Store) Append(ctx context.Context, tx models.Transaction) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx.ID = uuid.NewString()
	tx.CreatedAt = time.Now().UTC()
	s.transactions[tx.ID] = tx
	return &tx, nil
}

func (s *Store) Get(ctx context.Context, ownerID, id string) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[id]
	if !ok || tx.OwnerID != ownerID {
		return nil, apperrors.ErrNotFound
	}
	return &tx, nil
}

func (s *Store) ListByRange(ctx context.Context, ownerID string, filter repository.TransactionFilter) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Transaction
	for _, tx := range s.transactions {
		if tx.OwnerID != ownerID {
			continue
		}
		if filter.Type != nil && tx.Type != *filter.Type {
			continue
		}
		if !filter.Start.IsZero() && tx.Date.Before(filter.Start) {
			continue
		}
		if !filter.End.IsZero() && tx.Date.After(filter.End) {
			continue
		}
		out = append(out, tx)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) Replace(ctx context.Context, ownerID, id string, tx models.Transaction) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.transactions[id]
	if !ok || existing.OwnerID != ownerID {
		return nil, apperrors.ErrNotFound
	}

	tx.ID = id
	tx.OwnerID = ownerID
	tx.CreatedAt = existing.CreatedAt
	s.transactions[id] = tx
	return &tx, nil
}

func (s *Store) Delete(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok || tx.OwnerID != ownerID {
		return apperrors.ErrNotFound
	}
	delete(s.transactions, id)
	return nil
}

func (s *Store) DistinctOwners(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[string]bool{}
	var owners []string
	for _, tx := range s.transactions {
		if !seen[tx.OwnerID] {
			seen[tx.OwnerID] = true
			owners = append(owners, tx.OwnerID)
		}
	}
	sort.Strings(owners)
	return owners, nil
}

func (s *Store) InsertProduct(ctx context.Context, p models.Product) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.products {
		if existing.OwnerID == p.OwnerID && strings.EqualFold(existing.Name, p.Name) {
			return nil, apperrors.ErrDuplicate
		}
	}

	now := time.Now().UTC()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.products[p.ID] = p
	return &p, nil
}

func (s *Store) GetProduct(ctx context.Context, ownerID, id string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok || p.OwnerID != ownerID {
		return nil, apperrors.ErrNotFound
	}
	return &p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, p models.Product) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[p.ID]
	if !ok || existing.OwnerID != p.OwnerID {
		return nil, apperrors.ErrNotFound
	}

	existing.Quantity = p.Quantity
	existing.AverageCost = p.AverageCost
	existing.SellingPrice = p.SellingPrice
	existing.ReorderThreshold = p.ReorderThreshold
	existing.UpdatedAt = time.Now().UTC()
	s.products[p.ID] = existing
	return &existing, nil
}

func (s *Store) ApplyQuantityDelta(ctx context.Context, ownerID, id string, delta float64) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok || p.OwnerID != ownerID {
		return nil, apperrors.ErrNotFound
	}

	p.Quantity += delta
	p.UpdatedAt = time.Now().UTC()
	s.products[id] = p
	return &p, nil
}

func (s *Store) FindProductByExactName(ctx context.Context, ownerID, name string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.products {
		if p.OwnerID == ownerID && strings.EqualFold(p.Name, name) {
			return &p, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (s *Store) FindProductsByFuzzyName(ctx context.Context, ownerID, text string, limit int) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(text)
	var matches []models.Product
	for _, p := range s.products {
		if p.OwnerID != ownerID {
			continue
		}
		if strings.Contains(strings.ToLower(p.Name), needle) {
			matches = append(matches, p)
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Name < matches[j].Name })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *Store) ListProducts(ctx context.Context, ownerID string) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Product
	for _, p := range s.products {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) AppendAuditEntry(ctx context.Context, entry models.InventoryAuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now().UTC()
	s.auditEntries = append(s.auditEntries, entry)
	return nil
}

func (s *Store) ListAuditEntries(ctx context.Context, ownerID, productID string, limit int) ([]models.InventoryAuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.InventoryAuditEntry
	for i := len(s.auditEntries) - 1; i >= 0; i-- {
		entry := s.auditEntries[i]
		if entry.OwnerID != ownerID || entry.ProductID != productID {
			continue
		}
		out = append(out, entry)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) FindOrCreateCustomer(ctx context.Context, ownerID, name string, openingBalance float64) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.customers {
		if c.OwnerID == ownerID && strings.EqualFold(c.Name, name) {
			return &c, nil
		}
	}

	now := time.Now().UTC()
	customer := models.Customer{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        name,
		BalanceOwed: openingBalance,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.customers[customer.ID] = customer
	return &customer, nil
}

func (s *Store) GetCustomer(ctx context.Context, ownerID, id string) (*models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok || c.OwnerID != ownerID {
		return nil, apperrors.ErrNotFound
	}
	return &c, nil
}

func (s *Store) ApplyCustomerDelta(ctx context.Context, ownerID, id string, amount float64) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[id]
	if !ok || c.OwnerID != ownerID {
		return nil, apperrors.ErrNotFound
	}

	c.BalanceOwed += amount
	c.UpdatedAt = time.Now().UTC()
	s.customers[id] = c
	return &c, nil
}

func (s *Store) ListCustomers(ctx context.Context, ownerID string) ([]models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Customer
	for _, c := range s.customers {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateBankAccount(ctx context.Context, ownerID, name string, openingBalance float64) (*models.BankAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.banks {
		if b.OwnerID == ownerID && strings.EqualFold(b.Name, name) {
			return nil, apperrors.ErrDuplicate
		}
	}
	return s.insertBankLocked(ownerID, name, openingBalance), nil
}

func (s *Store) FindOrCreateBankAccount(ctx context.Context, ownerID, name string, openingBalance float64) (*models.BankAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.banks {
		if b.OwnerID == ownerID && strings.EqualFold(b.Name, name) {
			return &b, nil
		}
	}
	return s.insertBankLocked(ownerID, name, openingBalance), nil
}

func (s *Store) insertBankLocked(ownerID, name string, openingBalance float64) *models.BankAccount {
	now := time.Now().UTC()
	account := models.BankAccount{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		Balance:   openingBalance,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.banks[account.ID] = account
	return &account
}

func (s *Store) GetBankAccount(ctx context.Context, ownerID, id string) (*models.BankAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.banks[id]
	if !ok || b.OwnerID != ownerID {
		return nil, apperrors.ErrNotFound
	}
	return &b, nil
}

func (s *Store) ApplyBankDelta(ctx context.Context, ownerID, id string, amount float64) (*models.BankAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.banks[id]
	if !ok || b.OwnerID != ownerID {
		return nil, apperrors.ErrNotFound
	}

	b.Balance += amount
	b.UpdatedAt = time.Now().UTC()
	s.banks[id] = b
	return &b, nil
}

func (s *Store) ListBankAccounts(ctx context.Context, ownerID string) ([]models.BankAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.BankAccount
	for _, b := range s.banks {
		if b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) SaveDailySnapshot(ctx context.Context, snapshot models.DailySnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot.ID = uuid.NewString()
	snapshot.CreatedAt = time.Now().UTC()
	s.snapshots = append(s.snapshots, snapshot)
	return nil
}
