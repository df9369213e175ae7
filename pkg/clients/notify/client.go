package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ousmanedia/boutik/internal/config"
)

// Client delivers end-of-day summaries to an external callback.
type Client interface {
	PostDailySummary(ctx context.Context, summary DailySummary) error
}

// DailySummary is the payload pushed to the configured webhook after the
// nightly snapshot job.
type DailySummary struct {
	OwnerID       string  `json:"owner_id"`
	Date          string  `json:"date"`
	TotalSales    float64 `json:"total_sales"`
	TotalExpenses float64 `json:"total_expenses"`
	NetProfit     float64 `json:"net_profit"`
	Message       string  `json:"message"`
}

// WebhookClient is a resty-backed implementation of Client.
type WebhookClient struct {
	httpClient *resty.Client
	url        string
}

// NewClient builds a webhook notifier from configuration. Returns nil when no
// webhook URL is configured; callers treat a nil client as delivery disabled.
func NewClient(cfg config.NotifyConfig) *WebhookClient {
	if cfg.WebhookURL == "" {
		return nil
	}

	restyClient := resty.New()
	restyClient.
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)
	if cfg.AuthToken != "" {
		restyClient.SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.AuthToken))
	}

	return &WebhookClient{httpClient: restyClient, url: cfg.WebhookURL}
}

// PostDailySummary delivers one summary payload.
func (c *WebhookClient) PostDailySummary(ctx context.Context, summary DailySummary) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(summary).
		Post(c.url)
	if err != nil {
		return fmt.Errorf("post daily summary: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("summary webhook error: status=%d body=%s", resp.StatusCode(), resp.String())
	}
	return nil
}
