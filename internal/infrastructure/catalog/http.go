package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cocopet/backend/internal/domain"
)

const maxAttempts = 3

// Client pulls the active-product list from the catalog service over HTTP.
// Transient failures are retried with a linear backoff.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	rateLimiter *rate.Limiter
	logger      *zap.Logger
}

// NewClient creates a catalog client. apiKey may be empty when the catalog
// endpoint is unauthenticated.
func NewClient(baseURL, apiKey string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:     baseURL,
		apiKey:      apiKey,
		rateLimiter: rate.NewLimiter(rate.Limit(1), 5),
		logger:      logger,
	}
}

type productsResponse struct {
	Products []domain.Product `json:"products"`
}

// ActiveProducts fetches the current active-product list
func (c *Client) ActiveProducts(ctx context.Context) ([]domain.Product, error) {
	reqURL := fmt.Sprintf("%s/products?active=true", c.baseURL)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		body, err := c.fetch(ctx, reqURL)
		if err != nil {
			c.logger.Warn("catalog fetch failed",
				zap.Int("attempt", attempt), zap.Error(err))
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-time.After(time.Duration(attempt*500) * time.Millisecond):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			continue
		}

		var parsed productsResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("failed to decode catalog response: %w", err)
		}

		c.logger.Debug("catalog fetched", zap.Int("products", len(parsed.Products)))
		return parsed.Products, nil
	}

	return nil, lastErr
}

func (c *Client) fetch(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "cocopet-backend/1.0")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogSourceFailure, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", domain.ErrCatalogSourceFailure, resp.StatusCode)
	}
	return body, nil
}
