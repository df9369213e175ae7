package accounting

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ousmanedia/boutik/internal/domain/models"
)

// Candidate is one possible product match surfaced for disambiguation.
type Candidate struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
}

// Suspension is the structured result returned when a sale cannot proceed
// because a line item's product could not be auto-resolved. The caller must
// eventually call ResolveSaleItem with the token. An empty candidate list
// means the item's name matched nothing; the caller decides whether it is a
// product or a service.
type Suspension struct {
	Token       string      `json:"token"`
	ItemIndex   int         `json:"item_index"`
	ProductName string      `json:"product_name"`
	Candidates  []Candidate `json:"candidates"`
}

// SaleResolution is the caller's disambiguation choice for the suspended item:
// exactly one of the fields is used, checked in field order.
type SaleResolution struct {
	ProductID     string `json:"product_id,omitempty"`
	IsService     bool   `json:"is_service,omitempty"`
	CreateProduct bool   `json:"create_product,omitempty"`
}

// pendingSale is the persisted partial state of a suspended sale workflow:
// items resolved so far, the current index, and the settlement context.
type pendingSale struct {
	ownerID      string
	items        []models.SaleItem
	customerName string
	method       models.PaymentMethod
	bankName     string
	date         time.Time
	description  string
	index        int
	createdAt    time.Time
}

// pendingSaleTTL bounds how long a suspended sale waits for resolution.
// Expired entries are swept on the next put and rejected by take, so an
// abandoned suspension cannot pin its partial state forever.
const pendingSaleTTL = 30 * time.Minute

// pendingSales holds suspended sale workflows keyed by resumption token.
type pendingSales struct {
	mu      sync.Mutex
	byToken map[string]*pendingSale
}

func newPendingSales() *pendingSales {
	return &pendingSales{byToken: make(map[string]*pendingSale)}
}

// put stores the pending sale and returns a fresh resumption token.
func (p *pendingSales) put(sale *pendingSale) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.evictExpiredLocked()

	token := uuid.NewString()
	sale.createdAt = time.Now().UTC()
	p.byToken[token] = sale
	return token
}

func (p *pendingSales) evictExpiredLocked() {
	cutoff := time.Now().UTC().Add(-pendingSaleTTL)
	for token, sale := range p.byToken {
		if sale.createdAt.Before(cutoff) {
			delete(p.byToken, token)
		}
	}
}

// restore re-stores a pending sale under its existing token, used when a
// resumed workflow suspends again on a later item.
func (p *pendingSales) restore(token string, sale *pendingSale) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byToken[token] = sale
}

// take removes and returns the pending sale for the token. An expired entry
// is removed but not returned.
func (p *pendingSales) take(token string) (*pendingSale, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sale, ok := p.byToken[token]
	if !ok {
		return nil, false
	}
	delete(p.byToken, token)
	if time.Since(sale.createdAt) > pendingSaleTTL {
		return nil, false
	}
	return sale, true
}
