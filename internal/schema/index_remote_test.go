package schema

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duplocloud/dcaf-sub001/internal/config"
	"github.com/duplocloud/dcaf-sub001/internal/types"
)

func newTestRemoteIndex(t *testing.T, handler http.HandlerFunc) *RemoteIndex {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	idx, err := NewRemoteIndex(config.IndexConfig{
		URL:        server.URL,
		Collection: "graph_schema",
	}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return idx
}

func TestRemoteIndexSearch(t *testing.T) {
	var gotPath string
	var gotRequest remoteQueryRequest

	idx := newTestRemoteIndex(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))

		json.NewEncoder(w).Encode(remoteQueryResponse{
			IDs:       [][]string{{"node:Service", "rel:DEPENDS_ON"}},
			Distances: [][]float64{{0.2, 0.45}},
			Documents: [][]string{{"A deployed microservice", "Service depends on database"}},
			Metadatas: [][]map[string]any{{
				{"kind": "node", "label": "Service", "properties": `{"name":"string"}`},
				{
					"kind":              "relationship",
					"relationship_type": "DEPENDS_ON",
					"start_label":       "Service",
					"end_label":         "Database",
				},
			}},
		})
	})

	elements, err := idx.Search(context.Background(), "service dependencies", 5)
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/collections/graph_schema/query", gotPath)
	assert.Equal(t, []string{"service dependencies"}, gotRequest.QueryTexts)
	assert.Equal(t, 5, gotRequest.NResults)

	require.Len(t, elements, 2)
	assert.Equal(t, KindNode, elements[0].Kind)
	assert.Equal(t, "Service", elements[0].Label)
	assert.InDelta(t, 0.8, elements[0].Similarity, 1e-9)
	assert.Equal(t, map[string]string{"name": "string"}, elements[0].Properties)
	assert.Equal(t, "A deployed microservice", elements[0].Description)

	assert.Equal(t, KindRelationship, elements[1].Kind)
	assert.Equal(t, "DEPENDS_ON", elements[1].RelationshipType)
	assert.InDelta(t, 0.55, elements[1].Similarity, 1e-9)
}

func TestRemoteIndexSearchEmptyResponse(t *testing.T) {
	idx := newTestRemoteIndex(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(remoteQueryResponse{})
	})

	elements, err := idx.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, elements)
}

func TestRemoteIndexServerErrorIsRetryable(t *testing.T) {
	idx := newTestRemoteIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := idx.Search(context.Background(), "anything", 5)
	require.Error(t, err)
	assert.True(t, types.IsRetryable(err))
}

func TestRemoteIndexRateLimitIsRetryable(t *testing.T) {
	idx := newTestRemoteIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := idx.Search(context.Background(), "anything", 5)
	require.Error(t, err)
	assert.True(t, types.IsRetryable(err))
}

func TestRemoteIndexClientErrorIsTerminal(t *testing.T) {
	idx := newTestRemoteIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := idx.Search(context.Background(), "anything", 5)
	require.Error(t, err)
	assert.False(t, types.IsRetryable(err))
}

func TestRemoteIndexHealth(t *testing.T) {
	idx := newTestRemoteIndex(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/collections/graph_schema", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})

	status := idx.Health(context.Background())
	assert.True(t, status.IsHealthy())
}

func TestRemoteIndexHealthUnreachable(t *testing.T) {
	idx, err := NewRemoteIndex(config.IndexConfig{
		URL:        "http://127.0.0.1:1",
		Collection: "graph_schema",
	}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	status := idx.Health(context.Background())
	assert.False(t, status.IsHealthy())
}
