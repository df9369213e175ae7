package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ousmanedia/boutik/internal/apperrors"
	"github.com/ousmanedia/boutik/internal/domain/models"
	"github.com/ousmanedia/boutik/internal/service/accounting"
	"github.com/ousmanedia/boutik/internal/service/balances"
	"github.com/ousmanedia/boutik/internal/service/inventory"
)

// EngineHandler exposes the accounting engine's inbound operations over HTTP.
// Callers arrive with owner-scoped, already-parsed structured arguments;
// free-text understanding happens upstream of this surface.
type EngineHandler struct {
	accounting *accounting.Service
	balances   *balances.Service
	inventory  *inventory.Service
	logger     *zap.Logger
}

// NewEngineHandler constructs the HTTP handler adapter.
func NewEngineHandler(acc *accounting.Service, bal *balances.Service, inv *inventory.Service, logger *zap.Logger) *EngineHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EngineHandler{accounting: acc, balances: bal, inventory: inv, logger: logger}
}

type saleItemRequest struct {
	ProductName string  `json:"product_name" binding:"required"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	IsService   bool    `json:"is_service"`
}

type logSaleRequest struct {
	Items         []saleItemRequest `json:"items" binding:"required"`
	CustomerName  string            `json:"customer_name"`
	PaymentMethod string            `json:"payment_method" binding:"required"`
	BankName      string            `json:"bank_name"`
	Date          *time.Time        `json:"date"`
	Description   string            `json:"description"`
}

// LogSale records a sale, or returns 202 with a suspension payload when a
// line item needs disambiguation.
func (h *EngineHandler) LogSale(c *gin.Context) {
	var req logSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid sale payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	in := accounting.SaleInput{
		CustomerName:  req.CustomerName,
		PaymentMethod: models.PaymentMethod(req.PaymentMethod),
		BankName:      req.BankName,
		Description:   req.Description,
	}
	if req.Date != nil {
		in.Date = *req.Date
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, accounting.SaleItemInput{
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			IsService:   item.IsService,
		})
	}

	result, err := h.accounting.LogSale(c.Request.Context(), c.Param("owner_id"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondSaleResult(c, result)
}

type resolveItemRequest struct {
	Token         string `json:"token" binding:"required"`
	ProductID     string `json:"product_id"`
	IsService     bool   `json:"is_service"`
	CreateProduct bool   `json:"create_product"`
}

// ResolveSaleItem resumes a suspended sale with the caller's choice.
func (h *EngineHandler) ResolveSaleItem(c *gin.Context) {
	var req resolveItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid resolution payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.accounting.ResolveSaleItem(c.Request.Context(), req.Token, accounting.SaleResolution{
		ProductID:     req.ProductID,
		IsService:     req.IsService,
		CreateProduct: req.CreateProduct,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondSaleResult(c, result)
}

func (h *EngineHandler) respondSaleResult(c *gin.Context, result *accounting.SaleResult) {
	if result.Suspension != nil {
		c.JSON(http.StatusAccepted, gin.H{"suspension": result.Suspension})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction": result.Transaction})
}

type logExpenseRequest struct {
	Amount      float64    `json:"amount" binding:"required"`
	Category    string     `json:"category" binding:"required"`
	Description string     `json:"description"`
	BankName    string     `json:"bank_name"`
	Date        *time.Time `json:"date"`
}

// LogExpense records an expense.
func (h *EngineHandler) LogExpense(c *gin.Context) {
	var req logExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid expense payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	in := accounting.ExpenseInput{
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		BankName:    req.BankName,
	}
	if req.Date != nil {
		in.Date = *req.Date
	}

	tx, err := h.accounting.LogExpense(c.Request.Context(), c.Param("owner_id"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction": tx})
}

type logPaymentRequest struct {
	CustomerName string     `json:"customer_name" binding:"required"`
	Amount       float64    `json:"amount" binding:"required"`
	BankName     string     `json:"bank_name"`
	Date         *time.Time `json:"date"`
	Description  string     `json:"description"`
}

// LogCustomerPayment records a payment against a customer's receivable.
func (h *EngineHandler) LogCustomerPayment(c *gin.Context) {
	var req logPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid payment payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	in := accounting.PaymentInput{
		CustomerName: req.CustomerName,
		Amount:       req.Amount,
		BankName:     req.BankName,
		Description:  req.Description,
	}
	if req.Date != nil {
		in.Date = *req.Date
	}

	tx, err := h.accounting.LogCustomerPayment(c.Request.Context(), c.Param("owner_id"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction": tx})
}

// ReceiveStock records a stock purchase.
func (h *EngineHandler) ReceiveStock(c *gin.Context) {
	var req inventory.ReceiveStockInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid stock payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	product, err := h.accounting.ReceiveStock(c.Request.Context(), c.Param("owner_id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": product})
}

type openBankAccountRequest struct {
	Name           string  `json:"name" binding:"required"`
	OpeningBalance float64 `json:"opening_balance"`
}

// OpenBankAccount explicitly creates a bank account with an opening balance.
func (h *EngineHandler) OpenBankAccount(c *gin.Context) {
	var req openBankAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid bank account payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	account, err := h.balances.OpenBankAccount(c.Request.Context(), c.Param("owner_id"), req.Name, req.OpeningBalance)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"bank_account": account})
}

// EditTransaction applies a partial update through the reversal protocol.
func (h *EngineHandler) EditTransaction(c *gin.Context) {
	var changes accounting.TransactionChanges
	if err := c.ShouldBindJSON(&changes); err != nil {
		h.logger.Warn("invalid edit payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	tx, err := h.accounting.EditTransaction(c.Request.Context(), c.Param("owner_id"), c.Param("id"), changes)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

// DeleteTransaction reverses and removes a transaction.
func (h *EngineHandler) DeleteTransaction(c *gin.Context) {
	if err := h.accounting.DeleteTransaction(c.Request.Context(), c.Param("owner_id"), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListInventoryAudit returns the audit trail for one product.
func (h *EngineHandler) ListInventoryAudit(c *gin.Context) {
	entries, err := h.inventory.ListAudit(c.Request.Context(), c.Param("owner_id"), c.Param("product_id"), 100)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *EngineHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrReversal):
		// Ledgers are in a known-inconsistent state; surface loudly.
		h.logger.Error("reversal failure needs operator attention", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		h.logger.Error("operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
