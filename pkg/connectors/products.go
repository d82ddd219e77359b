package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ProductsClient talks to the product search service.
type ProductsClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewProductsClient(baseURL string, timeout time.Duration) *ProductsClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ProductsClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Search runs a semantic product search. minRating <= 0 leaves the service
// default in place.
func (c *ProductsClient) Search(ctx context.Context, query string, topK int, minRating float64) ([]Product, error) {
	payload := map[string]any{
		"query": query,
		"top_k": topK,
	}
	if minRating > 0 {
		payload["min_rating"] = minRating
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("product search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read product search response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("product service returned status %d: %s", resp.StatusCode, string(body))
	}

	var products []Product
	if err := json.Unmarshal(body, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, nil
}
