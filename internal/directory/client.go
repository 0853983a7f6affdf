// Package directory provides the external directory API collaborator used
// to fetch supplementary group memberships for a principal.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Client fetches group display names for an access token. Callers treat
// any error as a soft failure and degrade to an empty group list; group
// enrichment is best-effort.
type Client interface {
	Groups(ctx context.Context, accessToken string) ([]string, error)
}

// Config for the HTTP directory client
type Config struct {
	// BaseURL of the directory API, e.g. "https://directory.example.com"
	BaseURL string

	// Timeout bounds each request in addition to the caller's context
	Timeout time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{Timeout: 5 * time.Second}
}

// HTTPClient is the HTTP implementation of Client
type HTTPClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

type groupsResponse struct {
	Groups []struct {
		DisplayName string `json:"displayName"`
	} `json:"groups"`
}

// NewHTTPClient creates a directory client
func NewHTTPClient(cfg Config, logger *zap.Logger) *HTTPClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

// Groups returns the group display names for the token's subject. Failures
// (transport error, non-200, malformed body) are logged at Warn and
// returned as errors for the caller to absorb.
func (c *HTTPClient) Groups(ctx context.Context, accessToken string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/me/groups", nil)
	if err != nil {
		return nil, fmt.Errorf("build directory request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("directory request failed", zap.Error(err))
		return nil, fmt.Errorf("directory request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("directory returned non-200", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("directory returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.logger.Warn("directory response read failed", zap.Error(err))
		return nil, fmt.Errorf("read directory response: %w", err)
	}

	var parsed groupsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.logger.Warn("directory response malformed", zap.Error(err))
		return nil, fmt.Errorf("decode directory response: %w", err)
	}

	names := make([]string, 0, len(parsed.Groups))
	for _, g := range parsed.Groups {
		if g.DisplayName != "" {
			names = append(names, g.DisplayName)
		}
	}
	return names, nil
}

// Static is a fixed-answer Client for tests and air-gapped deployments
type Static struct {
	ByToken map[string][]string
}

// Groups returns the configured groups for the token
func (s *Static) Groups(_ context.Context, accessToken string) ([]string, error) {
	return s.ByToken[accessToken], nil
}

var _ Client = (*HTTPClient)(nil)
var _ Client = (*Static)(nil)
