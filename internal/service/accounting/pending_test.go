package accounting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingSalesTakeRejectsExpired(t *testing.T) {
	p := newPendingSales()

	token := p.put(&pendingSale{ownerID: testOwner})
	p.byToken[token].createdAt = time.Now().UTC().Add(-pendingSaleTTL - time.Minute)

	_, ok := p.take(token)
	assert.False(t, ok)
	assert.Empty(t, p.byToken, "expired entry is removed on take")
}

func TestPendingSalesPutSweepsExpired(t *testing.T) {
	p := newPendingSales()

	stale := p.put(&pendingSale{ownerID: testOwner})
	p.byToken[stale].createdAt = time.Now().UTC().Add(-pendingSaleTTL - time.Minute)

	fresh := p.put(&pendingSale{ownerID: testOwner})

	_, ok := p.byToken[stale]
	assert.False(t, ok, "stale entry swept by the next put")

	sale, ok := p.take(fresh)
	require.True(t, ok)
	assert.Equal(t, testOwner, sale.ownerID)
}

func TestPendingSalesRestoreKeepsOriginalDeadline(t *testing.T) {
	p := newPendingSales()

	token := p.put(&pendingSale{ownerID: testOwner})
	sale, ok := p.take(token)
	require.True(t, ok)

	p.restore(token, sale)
	sale.createdAt = time.Now().UTC().Add(-pendingSaleTTL - time.Minute)

	_, ok = p.take(token)
	assert.False(t, ok, "restore does not extend the suspension's lifetime")
}
