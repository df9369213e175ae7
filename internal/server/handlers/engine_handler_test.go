package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ousmanedia/boutik/internal/domain/models"
	"github.com/ousmanedia/boutik/internal/repository/memory"
	"github.com/ousmanedia/boutik/internal/server/handlers"
	"github.com/ousmanedia/boutik/internal/server/router"
	"github.com/ousmanedia/boutik/internal/service/accounting"
	"github.com/ousmanedia/boutik/internal/service/balances"
	"github.com/ousmanedia/boutik/internal/service/inventory"
	"github.com/ousmanedia/boutik/internal/service/reporting"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	store := memory.NewStore()
	inv := inventory.NewService(store, zap.NewNop())
	bal := balances.NewService(store, store, zap.NewNop())
	acc := accounting.NewService(store, inv, bal, zap.NewNop())
	rep := reporting.NewService(store, store, store, store, store, 5, zap.NewNop())

	engine := handlers.NewEngineHandler(acc, bal, inv, zap.NewNop())
	reports := handlers.NewReportHandler(rep, zap.NewNop())
	return router.New(engine, reports, zap.NewNop())
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	out := map[string]json.RawMessage{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestSaleLifecycleOverHTTP(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/owners/owner-1/stock/receive", gin.H{
		"name": "Savon", "quantity": 10, "unit_cost": 50, "selling_price": 80,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/api/v1/owners/owner-1/sales", gin.H{
		"items":          []gin.H{{"product_name": "Savon", "quantity": 3, "unit_price": 80}},
		"payment_method": "CASH",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var tx struct {
		ID     string  `json:"id"`
		Amount float64 `json:"amount"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w)["transaction"], &tx))
	assert.Equal(t, 240.0, tx.Amount)

	w = doJSON(t, r, http.MethodGet, "/api/v1/owners/owner-1/reports/profit-loss", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report struct {
		TotalSales  float64 `json:"total_sales"`
		TotalCOGS   float64 `json:"total_cogs"`
		GrossProfit float64 `json:"gross_profit"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 240.0, report.TotalSales)
	assert.Equal(t, 150.0, report.TotalCOGS)
	assert.Equal(t, 90.0, report.GrossProfit)

	w = doJSON(t, r, http.MethodDelete, "/api/v1/owners/owner-1/transactions/"+tx.ID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/api/v1/owners/owner-1/transactions/"+tx.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSaleSuspensionOverHTTP(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/owners/owner-1/sales", gin.H{
		"items":          []gin.H{{"product_name": "Dentifrice", "quantity": 2, "unit_price": 450}},
		"payment_method": "CASH",
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var suspension struct {
		Token       string `json:"token"`
		ProductName string `json:"product_name"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w)["suspension"], &suspension))
	assert.NotEmpty(t, suspension.Token)
	assert.Equal(t, "Dentifrice", suspension.ProductName)

	w = doJSON(t, r, http.MethodPost, "/api/v1/sales/resolve", gin.H{
		"token": suspension.Token, "is_service": true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestErrorMapping(t *testing.T) {
	r := newTestRouter(t)

	// Malformed body.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/owners/owner-1/expenses", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Domain validation failure.
	w = doJSON(t, r, http.MethodPost, "/api/v1/owners/owner-1/sales", gin.H{
		"items":          []gin.H{{"product_name": "Savon", "quantity": -1, "unit_price": 80}},
		"payment_method": "CASH",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Unknown resumption token.
	w = doJSON(t, r, http.MethodPost, "/api/v1/sales/resolve", gin.H{
		"token": "missing", "is_service": true,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Duplicate bank account.
	body := gin.H{"name": "Wave", "opening_balance": 1000}
	w = doJSON(t, r, http.MethodPost, "/api/v1/owners/owner-1/bank-accounts", body)
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(t, r, http.MethodPost, "/api/v1/owners/owner-1/bank-accounts", body)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestEditTransactionOverHTTP(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/owners/owner-1/expenses", gin.H{
		"amount": 300, "category": "transport",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var tx struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w)["transaction"], &tx))

	w = doJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/v1/owners/owner-1/transactions/%s", tx.ID), gin.H{
		"amount": 500,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var edited struct {
		Amount float64 `json:"amount"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w)["transaction"], &edited))
	assert.Equal(t, 500.0, edited.Amount)
}

// failingProducts simulates a store outage for quantity deltas.
type failingProducts struct {
	*memory.Store
	fail bool
}

func (f *failingProducts) ApplyQuantityDelta(ctx context.Context, ownerID, id string, delta float64) (*models.Product, error) {
	if f.fail {
		return nil, errors.New("write concern timeout")
	}
	return f.Store.ApplyQuantityDelta(ctx, ownerID, id, delta)
}

func TestDeleteReversalFailureMapsTo500(t *testing.T) {
	store := memory.NewStore()
	products := &failingProducts{Store: store}
	inv := inventory.NewService(products, zap.NewNop())
	bal := balances.NewService(store, store, zap.NewNop())
	acc := accounting.NewService(store, inv, bal, zap.NewNop())
	rep := reporting.NewService(store, store, store, store, store, 5, zap.NewNop())

	engine := handlers.NewEngineHandler(acc, bal, inv, zap.NewNop())
	reports := handlers.NewReportHandler(rep, zap.NewNop())
	r := router.New(engine, reports, zap.NewNop())

	w := doJSON(t, r, http.MethodPost, "/api/v1/owners/owner-1/stock/receive", gin.H{
		"name": "Savon", "quantity": 10, "unit_cost": 50, "selling_price": 80,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/api/v1/owners/owner-1/sales", gin.H{
		"items":          []gin.H{{"product_name": "Savon", "quantity": 3, "unit_price": 80}},
		"payment_method": "CASH",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var tx struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w)["transaction"], &tx))

	products.fail = true
	w = doJSON(t, r, http.MethodDelete, "/api/v1/owners/owner-1/transactions/"+tx.ID, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	// The record is still there once the store recovers.
	products.fail = false
	w = doJSON(t, r, http.MethodDelete, "/api/v1/owners/owner-1/transactions/"+tx.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
