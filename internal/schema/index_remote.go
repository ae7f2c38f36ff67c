package schema

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/duplocloud/dcaf-sub001/internal/config"
	"github.com/duplocloud/dcaf-sub001/internal/types"
)

// RemoteIndex queries a remote vector collection service over its REST API.
// One POST per search against the collection's query endpoint; the service
// embeds the query text server-side and returns ranked hits with distances.
type RemoteIndex struct {
	baseURL    string
	collection string
	client     *http.Client
	logger     *slog.Logger
}

type remoteQueryRequest struct {
	QueryTexts []string `json:"query_texts"`
	NResults   int      `json:"n_results"`
	Include    []string `json:"include"`
}

type remoteQueryResponse struct {
	IDs       [][]string         `json:"ids"`
	Distances [][]float64        `json:"distances"`
	Metadatas [][]map[string]any `json:"metadatas"`
	Documents [][]string         `json:"documents"`
}

// NewRemoteIndex creates a remote collection client.
func NewRemoteIndex(cfg config.IndexConfig, logger *slog.Logger) (*RemoteIndex, error) {
	if cfg.URL == "" {
		return nil, types.NewError(types.INDEX_INVALID_CONFIG, "index url is required")
	}
	return &RemoteIndex{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		collection: cfg.Collection,
		client:     &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}, nil
}

// Search queries the collection and converts hits into schema elements.
func (r *RemoteIndex) Search(ctx context.Context, query string, topK int) ([]Element, error) {
	payload, err := json.Marshal(remoteQueryRequest{
		QueryTexts: []string{query},
		NResults:   topK,
		Include:    []string{"metadatas", "documents", "distances"},
	})
	if err != nil {
		return nil, types.WrapError(types.INDEX_SEARCH_FAILED, "failed to encode query", err)
	}

	url := fmt.Sprintf("%s/api/v1/collections/%s/query", r.baseURL, r.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, types.WrapError(types.INDEX_SEARCH_FAILED, "failed to build query request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, types.WrapRetryableError(types.INDEX_UNAVAILABLE, "index request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.WrapRetryableError(types.INDEX_UNAVAILABLE, "failed to read index response", err)
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, types.WrapRetryableError(types.INDEX_UNAVAILABLE,
			fmt.Sprintf("index unavailable (status %d)", resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		return nil, types.NewError(types.INDEX_SEARCH_FAILED,
			fmt.Sprintf("index query failed (status %d): %s", resp.StatusCode, truncate(string(body), 200)))
	}

	var decoded remoteQueryResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, types.WrapError(types.INDEX_SEARCH_FAILED, "failed to decode index response", err)
	}

	if len(decoded.IDs) == 0 {
		return []Element{}, nil
	}

	ids := decoded.IDs[0]
	elements := make([]Element, 0, len(ids))
	for i, id := range ids {
		elem := Element{ID: id, Kind: KindNode}

		if len(decoded.Metadatas) > 0 && i < len(decoded.Metadatas[0]) {
			applyMetadata(&elem, decoded.Metadatas[0][i])
		}
		if len(decoded.Documents) > 0 && i < len(decoded.Documents[0]) {
			elem.Description = decoded.Documents[0][i]
		}
		if len(decoded.Distances) > 0 && i < len(decoded.Distances[0]) {
			elem.Similarity = clampScore(1 - decoded.Distances[0][i])
		}

		elements = append(elements, elem)
	}
	return elements, nil
}

// applyMetadata fills element fields from a hit's metadata map.
func applyMetadata(elem *Element, meta map[string]any) {
	if v, ok := meta["kind"].(string); ok && v != "" {
		elem.Kind = ElementKind(v)
	}
	if v, ok := meta["label"].(string); ok {
		elem.Label = v
	}
	if v, ok := meta["relationship_type"].(string); ok {
		elem.RelationshipType = v
	}
	if v, ok := meta["start_label"].(string); ok {
		elem.StartLabel = v
	}
	if v, ok := meta["end_label"].(string); ok {
		elem.EndLabel = v
	}
	if v, ok := meta["properties"].(string); ok && v != "" {
		var props map[string]string
		if err := json.Unmarshal([]byte(v), &props); err == nil {
			elem.Properties = props
		}
	}
}

// clampScore bounds a similarity score to [0,1]. Some distance metrics can
// produce values slightly outside the unit range.
func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// Health probes the collection endpoint.
func (r *RemoteIndex) Health(ctx context.Context) types.HealthStatus {
	url := fmt.Sprintf("%s/api/v1/collections/%s", r.baseURL, r.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return types.Unhealthy(fmt.Sprintf("failed to build health request: %v", err))
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return types.Unhealthy(fmt.Sprintf("index unreachable: %v", err))
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return types.Unhealthy(fmt.Sprintf("collection check returned status %d", resp.StatusCode))
	}
	return types.Healthy("remote index reachable")
}

// Close releases pooled connections.
func (r *RemoteIndex) Close() error {
	r.client.CloseIdleConnections()
	return nil
}
