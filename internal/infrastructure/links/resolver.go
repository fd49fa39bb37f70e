package links

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/cocopet/backend/internal/domain"
)

const defaultTimeout = 10 * time.Second

// HTTPResolver expands shortened map links by issuing a HEAD request and
// following redirects to the final URL. One network call per resolution;
// callers cache the result.
type HTTPResolver struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPResolver creates a resolver with the given per-request timeout.
// A non-positive timeout falls back to 10s.
func NewHTTPResolver(timeout time.Duration, logger *zap.Logger) *HTTPResolver {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPResolver{
		httpClient: &http.Client{
			Timeout: timeout,
			// Default CheckRedirect follows up to 10 redirects, which is
			// plenty for map shorteners.
		},
		logger: logger,
	}
}

// Resolve follows the redirect chain of shortURL and returns the final URL
func (r *HTTPResolver) Resolve(ctx context.Context, shortURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, shortURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrLinkResolutionFailed, err)
	}
	req.Header.Set("User-Agent", "cocopet-backend/1.0")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrLinkResolutionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("%w: status %d", domain.ErrLinkResolutionFailed, resp.StatusCode)
	}

	final := resp.Request.URL.String()
	r.logger.Debug("short link resolved",
		zap.String("short", shortURL),
		zap.String("resolved", final))
	return final, nil
}
