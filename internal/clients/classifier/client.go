// Package classifier provides an HTTP client for the externally
// trained probability model sidecar.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/vantage/internal/domain"
)

// Client calls the classifier microservice. Model training and
// evaluation live entirely in that service; this side only posts
// engineered features and reads back a bounded probability.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// Compile-time check that Client implements the collaborator contract
var _ domain.ProbabilityProvider = (*Client)(nil)

// New creates a classifier client for the given base URL
func New(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log.With().Str("client", "classifier").Logger(),
	}
}

// predictResponse mirrors the sidecar's response format
type predictResponse struct {
	Probability float64 `json:"probability"`
	ModelID     string  `json:"model_id"`
}

// Probability posts features and returns the probability of favorable
// movement in [0, 1]. Transport or service failures surface as
// ErrModelUnavailable so callers can degrade to the neutral sub-score.
func (c *Client) Probability(ctx context.Context, features domain.Features) (float64, error) {
	body, err := json.Marshal(features)
	if err != nil {
		return 0, fmt.Errorf("failed to encode features: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to build predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("ticker", features.Ticker).Msg("Classifier unreachable")
		return 0, fmt.Errorf("classifier request failed: %w", domain.ErrModelUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn().Int("status", resp.StatusCode).Str("ticker", features.Ticker).Msg("Classifier returned error status")
		return 0, fmt.Errorf("classifier returned status %d: %w", resp.StatusCode, domain.ErrModelUnavailable)
	}

	var result predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to decode classifier response: %w", domain.ErrModelUnavailable)
	}

	// Defend the bound even if the sidecar misbehaves
	p := result.Probability
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}

	return p, nil
}
