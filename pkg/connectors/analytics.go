package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// AnalyticsClient fetches the aggregate views the order service computes
// over the dataset.
type AnalyticsClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewAnalyticsClient(baseURL string, timeout time.Duration) *AnalyticsClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AnalyticsClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *AnalyticsClient) SalesByCategory(ctx context.Context) ([]CategorySales, error) {
	var out []CategorySales
	if err := c.getJSON(ctx, "/data/total-sales-by-category", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AnalyticsClient) ProfitByGender(ctx context.Context) ([]GenderProfit, error) {
	var out []GenderProfit
	if err := c.getJSON(ctx, "/data/profit-by-gender", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AnalyticsClient) ShippingSummary(ctx context.Context) (ShippingSummary, error) {
	var out ShippingSummary
	if err := c.getJSON(ctx, "/data/shipping-cost-summary", &out); err != nil {
		return ShippingSummary{}, err
	}
	return out, nil
}

func (c *AnalyticsClient) HighProfitProducts(ctx context.Context) ([]Order, error) {
	var out []Order
	if err := c.getJSON(ctx, "/data/high-profit-products", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AnalyticsClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("analytics request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read analytics response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("analytics endpoint %s returned status %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode analytics response: %w", err)
	}
	return nil
}
