package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HTTPProductCatalog resolves product categories against the storefront
// catalog service. It implements application.ProductCatalog.
type HTTPProductCatalog struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPProductCatalog creates a catalog client for the given base URL.
func NewHTTPProductCatalog(baseURL string, logger *zap.Logger) *HTTPProductCatalog {
	return &HTTPProductCatalog{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		logger:  logger,
	}
}

// CategoryOf fetches the product from the catalog and returns its category.
func (c *HTTPProductCatalog) CategoryOf(ctx context.Context, productID string) (string, error) {
	url := fmt.Sprintf("%s/api/v1/products/%s", c.baseURL, productID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch product %s: %w", productID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("catalog returned %d for product %s", resp.StatusCode, productID)
	}

	var body struct {
		Data struct {
			CategoryID string `json:"category_id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode product %s: %w", productID, err)
	}
	return body.Data.CategoryID, nil
}

// StaticProductCatalog serves a fixed product-to-category mapping. Used in
// development and tests where no catalog service is running.
type StaticProductCatalog struct {
	categories map[string]string
}

// NewStaticProductCatalog creates a static catalog from the given mapping.
func NewStaticProductCatalog(categories map[string]string) *StaticProductCatalog {
	if categories == nil {
		categories = map[string]string{}
	}
	return &StaticProductCatalog{categories: categories}
}

// CategoryOf returns the mapped category; unknown products resolve to an
// empty category rather than an error, matching a catalog miss.
func (c *StaticProductCatalog) CategoryOf(_ context.Context, productID string) (string, error) {
	return c.categories[productID], nil
}
