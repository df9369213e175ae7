package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ousmanedia/boutik/internal/domain/models"
	"github.com/ousmanedia/boutik/internal/service/reporting"
)

const dateLayout = "2006-01-02"

// ReportHandler exposes the read-only report queries used by export and
// rendering layers owned outside this engine.
type ReportHandler struct {
	reporting *reporting.Service
	logger    *zap.Logger
}

// NewReportHandler constructs the report query adapter.
func NewReportHandler(svc *reporting.Service, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{reporting: svc, logger: logger}
}

// ProfitAndLoss derives the P&L statement for ?start=YYYY-MM-DD&end=YYYY-MM-DD.
func (h *ReportHandler) ProfitAndLoss(c *gin.Context) {
	start, end, ok := h.parseRange(c)
	if !ok {
		return
	}

	report, err := h.reporting.ComputeProfitAndLoss(c.Request.Context(), c.Param("owner_id"), start, end)
	if err != nil {
		h.logger.Error("failed computing profit and loss", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// ListTransactions scans the ledger, optionally filtered by ?type= and the
// date range.
func (h *ReportHandler) ListTransactions(c *gin.Context) {
	start, end, ok := h.parseRange(c)
	if !ok {
		return
	}

	var txType *models.TransactionType
	if raw := c.Query("type"); raw != "" {
		t := models.TransactionType(raw)
		switch t {
		case models.TransactionSale, models.TransactionExpense, models.TransactionCustomerPayment:
			txType = &t
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown transaction type"})
			return
		}
	}

	transactions, err := h.reporting.ListTransactions(c.Request.Context(), c.Param("owner_id"), txType, start, end)
	if err != nil {
		h.logger.Error("failed listing transactions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

// ListProducts returns current inventory with a low-stock marker per product.
func (h *ReportHandler) ListProducts(c *gin.Context) {
	products, err := h.reporting.ListProducts(c.Request.Context(), c.Param("owner_id"))
	if err != nil {
		h.logger.Error("failed listing products", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	type productStatus struct {
		models.Product
		LowStock bool `json:"low_stock"`
	}
	out := make([]productStatus, 0, len(products))
	for _, p := range products {
		out = append(out, productStatus{Product: p, LowStock: p.LowStock()})
	}
	c.JSON(http.StatusOK, gin.H{"products": out})
}

// ListBankBalances returns the owner's bank accounts.
func (h *ReportHandler) ListBankBalances(c *gin.Context) {
	accounts, err := h.reporting.ListBankBalances(c.Request.Context(), c.Param("owner_id"))
	if err != nil {
		h.logger.Error("failed listing bank accounts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bank_accounts": accounts})
}

// ListCustomers returns the owner's customers with receivable balances.
func (h *ReportHandler) ListCustomers(c *gin.Context) {
	customers, err := h.reporting.ListCustomersWithBalance(c.Request.Context(), c.Param("owner_id"))
	if err != nil {
		h.logger.Error("failed listing customers", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"customers": customers})
}

func (h *ReportHandler) parseRange(c *gin.Context) (time.Time, time.Time, bool) {
	var start, end time.Time
	var err error

	if raw := c.Query("start"); raw != "" {
		start, err = time.Parse(dateLayout, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start must be YYYY-MM-DD"})
			return start, end, false
		}
	}
	if raw := c.Query("end"); raw != "" {
		end, err = time.Parse(dateLayout, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end must be YYYY-MM-DD"})
			return start, end, false
		}
		// Make the end date inclusive of the whole day.
		end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return start, end, true
}
