package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// OrdersClient talks to the order service's REST API.
type OrdersClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewOrdersClient(baseURL string, timeout time.Duration) *OrdersClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &OrdersClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ByCustomer fetches every order for a customer id. A 404 from the service
// maps to ErrNotFound; anything else non-2xx is a transport-level failure.
func (c *OrdersClient) ByCustomer(ctx context.Context, customerID string) ([]Order, error) {
	return c.getOrders(ctx, "/data/customer/"+url.PathEscape(customerID))
}

// ByPriority fetches orders with the given priority level (e.g. "High").
func (c *OrdersClient) ByPriority(ctx context.Context, level string) ([]Order, error) {
	return c.getOrders(ctx, "/data/order-priority/"+url.PathEscape(level))
}

func (c *OrdersClient) getOrders(ctx context.Context, path string) ([]Order, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("order service request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read order service response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("order service returned status %d: %s", resp.StatusCode, string(body))
	}

	var orders []Order
	if err := json.Unmarshal(body, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, nil
}
