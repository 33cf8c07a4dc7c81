package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/edupath/internal/domain"
)

// HTTPClientConfig holds configuration for the retrieval HTTP client.
type HTTPClientConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// DefaultHTTPClientConfig returns default configuration.
func DefaultHTTPClientConfig(baseURL string) HTTPClientConfig {
	return HTTPClientConfig{
		BaseURL:        baseURL,
		RequestTimeout: 5 * time.Second,
	}
}

// HTTPClient implements Searcher against a retrieval service exposing a JSON
// query endpoint (POST {base}/api/rag/query).
type HTTPClient struct {
	cfg    HTTPClientConfig
	client *http.Client
	logger *slog.Logger
}

// NewHTTPClient creates a retrieval client for the given service URL.
func NewHTTPClient(cfg HTTPClientConfig, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}
	return &HTTPClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.RequestTimeout},
		logger: logger,
	}
}

type queryRequest struct {
	Query      string `json:"query"`
	MatchCount int    `json:"match_count"`
}

type queryResponse struct {
	Results []struct {
		Content  string  `json:"content"`
		Score    float64 `json:"score"`
		Metadata struct {
			Source string `json:"source"`
		} `json:"metadata"`
	} `json:"results"`
}

// Search queries the retrieval service for up to limit supporting snippets.
func (c *HTTPClient) Search(ctx context.Context, query string, limit int) ([]domain.Citation, error) {
	body, err := json.Marshal(queryRequest{Query: query, MatchCount: limit})
	if err != nil {
		return nil, fmt.Errorf("marshal retrieval query: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.cfg.BaseURL+"/api/rag/query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build retrieval request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("retrieval request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close retrieval response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("retrieval service returned status %d", resp.StatusCode)
	}

	var qr queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return nil, fmt.Errorf("decode retrieval response: %w", err)
	}

	citations := make([]domain.Citation, 0, len(qr.Results))
	for _, r := range qr.Results {
		citations = append(citations, domain.Citation{
			Source:  r.Metadata.Source,
			Content: r.Content,
			Score:   r.Score,
		})
	}
	return citations, nil
}
