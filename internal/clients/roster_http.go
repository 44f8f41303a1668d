package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/necpgame/player-orders-core/internal/models"
)

// HTTPRosterClient resolves players against the identity service REST API.
type HTTPRosterClient struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewHTTPRosterClient constructs a roster client against baseURL.
func NewHTTPRosterClient(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPRosterClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPRosterClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// PlayerExists reports whether the player is known to the identity service.
func (c *HTTPRosterClient) PlayerExists(ctx context.Context, playerID string) (bool, error) {
	return c.head(ctx, fmt.Sprintf("/internal/players/%s", url.PathEscape(playerID)))
}

// EligibleForRole reports whether the player may act in the given role.
func (c *HTTPRosterClient) EligibleForRole(ctx context.Context, playerID string, role models.RatingRole) (bool, error) {
	return c.head(ctx, fmt.Sprintf("/internal/players/%s/roles/%s", url.PathEscape(playerID), url.PathEscape(string(role))))
}

// head treats 200 as yes and 404 as no; anything else is a transport error.
func (c *HTTPRosterClient) head(ctx context.Context, path string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return false, fmt.Errorf("build roster request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("roster call %s: %w", path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		c.logger.Warn("roster call failed", zap.String("path", path), zap.Int("status", resp.StatusCode))
		return false, fmt.Errorf("roster call %s: unexpected status %d", path, resp.StatusCode)
	}
}
