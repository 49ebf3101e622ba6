package enricher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/recalld/internal/domain"
)

const defaultTimeout = 5 * time.Second

// Config holds the entity-extraction service settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Labels  []string
	Logger  *zap.Logger
}

// Client is a thin wrapper over the external entity-extraction service.
//
// Extraction is fail-soft: any transport or server failure yields an empty
// term set wrapped with domain.ErrDegradedEnrichment so the caller can
// proceed without terms instead of aborting.
type Client struct {
	httpClient *http.Client
	baseURL    string
	labels     []string
	logger     *zap.Logger
}

// New creates an extraction client.
func New(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		labels:     cfg.Labels,
		logger:     logger,
	}
}

type extractRequest struct {
	Text   string   `json:"text"`
	Labels []string `json:"labels,omitempty"`
}

type extractResponse struct {
	Entities  []string `json:"entities"`
	Model     string   `json:"model"`
	RequestID string   `json:"request_id"`
}

// Extract returns the normalized (lowercased, de-duplicated, order-preserving)
// entity terms for text. On any failure it returns an empty set and an error
// wrapping domain.ErrDegradedEnrichment.
func (c *Client) Extract(ctx context.Context, text string) ([]string, error) {
	body, err := json.Marshal(extractRequest{Text: text, Labels: c.labels})
	if err != nil {
		return nil, fmt.Errorf("marshal extraction request: %w: %w", domain.ErrDegradedEnrichment, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ner", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build extraction request: %w: %w", domain.ErrDegradedEnrichment, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction request: %w: %w", domain.ErrDegradedEnrichment, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("extraction service status %d: %s: %w",
			resp.StatusCode, string(detail), domain.ErrDegradedEnrichment)
	}

	var parsed extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode extraction response: %w: %w", domain.ErrDegradedEnrichment, err)
	}

	return NormalizeTerms(parsed.Entities), nil
}

// HealthCheck verifies the extraction service is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("extraction health request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("extraction service unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// NormalizeTerms lowercases, trims and de-duplicates terms, preserving the
// first-seen order. Empty terms are dropped.
func NormalizeTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		k := strings.ToLower(strings.TrimSpace(t))
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
