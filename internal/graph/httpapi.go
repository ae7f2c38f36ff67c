package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/duplocloud/dcaf-sub001/internal/config"
	"github.com/duplocloud/dcaf-sub001/internal/types"
)

// HTTPProvider implements Provider over the transactional HTTP endpoint:
// one POST to /db/{database}/tx/commit per query, with a connection-pooled
// client and the same retry posture as the bolt implementation.
type HTTPProvider struct {
	cfg     config.GraphConfig
	baseURL string
	logger  *slog.Logger

	mu     sync.Mutex
	client *http.Client
}

// transactional endpoint request/response shapes
type txRequest struct {
	Statements []txStatement `json:"statements"`
}

type txStatement struct {
	Statement  string         `json:"statement"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type txResponse struct {
	Results []txResult `json:"results"`
	Errors  []txError  `json:"errors"`
}

type txResult struct {
	Columns []string `json:"columns"`
	Data    []txRow  `json:"data"`
}

type txRow struct {
	Row []any `json:"row"`
}

type txError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewHTTPProvider creates a transactional HTTP endpoint provider.
func NewHTTPProvider(cfg config.GraphConfig, logger *slog.Logger) (*HTTPProvider, error) {
	if cfg.URI == "" {
		return nil, types.NewError(types.GRAPH_INVALID_CONFIG, "graph uri is required")
	}
	return &HTTPProvider{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.URI, "/"),
		logger:  logger,
		client:  newHTTPClient(cfg),
	}, nil
}

func newHTTPClient(cfg config.GraphConfig) *http.Client {
	return &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.PoolSize,
			MaxIdleConnsPerHost: cfg.PoolSize,
			IdleConnTimeout:     cfg.ConnectionLifetime,
		},
	}
}

// reset replaces the HTTP client, discarding any pooled connections.
func (p *HTTPProvider) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.client.CloseIdleConnections()
	p.client = newHTTPClient(p.cfg)
}

func (p *HTTPProvider) currentClient() *http.Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client
}

// RunQuery executes a read-only query via a single-shot transactional commit.
// On a transient failure the pooled connections are discarded and the query
// retried exactly once.
func (p *HTTPProvider) RunQuery(ctx context.Context, query string, params map[string]any) ([]Row, error) {
	if err := CheckReadOnly(query); err != nil {
		return nil, err
	}

	rows, err := p.run(ctx, query, params)
	if err == nil {
		return rows, nil
	}
	if !IsTransient(err) {
		return nil, err
	}

	p.logger.Warn("transient graph failure, recreating http client and retrying once",
		"error", err)
	p.reset()

	rows, retryErr := p.run(ctx, query, params)
	if retryErr != nil {
		return nil, retryErr
	}
	return rows, nil
}

func (p *HTTPProvider) run(ctx context.Context, query string, params map[string]any) ([]Row, error) {
	payload, err := json.Marshal(txRequest{
		Statements: []txStatement{{Statement: query, Parameters: params}},
	})
	if err != nil {
		return nil, NewQueryError("failed to encode transactional request", err)
	}

	url := fmt.Sprintf("%s/db/%s/tx/commit", p.baseURL, p.cfg.Database)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, NewQueryError("failed to build transactional request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(p.cfg.Username, p.cfg.Password)

	resp, err := p.currentClient().Do(req)
	if err != nil {
		return nil, NewConnectionError("transactional request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewConnectionError("failed to read transactional response", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, types.WrapError(types.GRAPH_CONNECTION_FAILED,
			fmt.Sprintf("authentication failed (status %d)", resp.StatusCode), nil)
	case resp.StatusCode >= 500:
		return nil, types.WrapRetryableError(types.GRAPH_CONNECTION_FAILED,
			fmt.Sprintf("server unavailable (status %d)", resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated:
		return nil, NewQueryError(fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var decoded txResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, NewQueryError("failed to decode transactional response", err)
	}

	if len(decoded.Errors) > 0 {
		first := decoded.Errors[0]
		if strings.Contains(first.Code, "Transient") {
			return nil, types.WrapRetryableError(types.GRAPH_SESSION_EXPIRED,
				fmt.Sprintf("%s: %s", first.Code, first.Message), nil)
		}
		return nil, NewQueryError(fmt.Sprintf("%s: %s", first.Code, first.Message), nil)
	}

	if len(decoded.Results) == 0 {
		return []Row{}, nil
	}

	result := decoded.Results[0]
	rows := make([]Row, 0, len(result.Data))
	for _, data := range result.Data {
		row := make(Row, len(result.Columns))
		for i, col := range result.Columns {
			if i < len(data.Row) {
				row[col] = normalizeJSONValue(data.Row[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// SearchByName finds nodes whose name contains the given term.
func (p *HTTPProvider) SearchByName(ctx context.Context, term string, limit int) ([]NodeSummary, error) {
	return searchByName(ctx, p, term, limit)
}

// DependenciesOf returns names of nodes the given node depends on.
func (p *HTTPProvider) DependenciesOf(ctx context.Context, nodeID string, maxHops int) ([]string, error) {
	return dependenciesOf(ctx, p, nodeID, maxHops)
}

// Health checks the endpoint with a trivial query.
func (p *HTTPProvider) Health(ctx context.Context) types.HealthStatus {
	if _, err := p.run(ctx, "RETURN 1 AS ok", nil); err != nil {
		return types.Unhealthy(fmt.Sprintf("transactional endpoint check failed: %v", err))
	}
	return types.Healthy("connected over http")
}

// Close discards pooled connections.
func (p *HTTPProvider) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.client.CloseIdleConnections()
	return nil
}
