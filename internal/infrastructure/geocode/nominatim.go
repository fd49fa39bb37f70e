package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cocopet/backend/internal/domain"
)

const defaultBaseURL = "https://nominatim.openstreetmap.org"

// Client reverse-geocodes coordinates against the Nominatim API. Nominatim's
// usage policy allows at most one request per second, enforced here with a
// rate limiter shared by all callers of the client.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rate.Limiter
	logger      *zap.Logger
}

// NewClient creates a Nominatim client. An empty baseURL uses the public
// openstreetmap.org instance.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:     strings.TrimRight(baseURL, "/"),
		rateLimiter: rate.NewLimiter(rate.Limit(1), 1),
		logger:      logger,
	}
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
}

// ReverseGeocode returns a short human-readable address for the coordinates
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGeocodingFailed, err)
	}

	params := url.Values{}
	params.Add("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Add("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	params.Add("format", "json")
	params.Add("addressdetails", "1")
	params.Add("zoom", "18")

	reqURL := fmt.Sprintf("%s/reverse?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "cocopet-backend/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGeocodingFailed, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("nominatim error",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return "", fmt.Errorf("%w: status %d", domain.ErrGeocodingFailed, resp.StatusCode)
	}

	var reverse reverseResponse
	if err := json.Unmarshal(body, &reverse); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGeocodingFailed, err)
	}
	if reverse.DisplayName == "" {
		return "", fmt.Errorf("%w: empty display name", domain.ErrGeocodingFailed)
	}

	return shortenAddress(reverse.DisplayName), nil
}

// shortenAddress keeps the first three comma-separated address parts, enough
// for a delivery driver without the full administrative chain.
func shortenAddress(displayName string) string {
	parts := strings.Split(displayName, ",")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return strings.Join(parts, ", ")
}
