package graph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duplocloud/dcaf-sub001/internal/types"
)

func newHTTPProviderForTest(t *testing.T, handler http.Handler) (*HTTPProvider, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := NewHTTPProvider(testGraphConfig(server.URL), testLogger())
	require.NoError(t, err)
	return p, server
}

func TestHTTPProvider_RunQuery(t *testing.T) {
	var gotBody txRequest
	p, _ := newHTTPProviderForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/db/neo4j/tx/commit", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "neo4j", user)
		assert.Equal(t, "password", pass)

		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(txResponse{
			Results: []txResult{{
				Columns: []string{"name", "replicas"},
				Data: []txRow{
					{Row: []any{"checkout", float64(3)}},
					{Row: []any{"billing", float64(1)}},
				},
			}},
		})
	}))

	rows, err := p.RunQuery(context.Background(), "MATCH (n:Service) RETURN n.name AS name, n.replicas AS replicas", map[string]any{"x": 1})
	require.NoError(t, err)

	require.Len(t, gotBody.Statements, 1)
	assert.Equal(t, "MATCH (n:Service) RETURN n.name AS name, n.replicas AS replicas", gotBody.Statements[0].Statement)

	require.Len(t, rows, 2)
	assert.Equal(t, "checkout", rows[0]["name"])
	// integral JSON numbers fold back to int64
	assert.Equal(t, int64(3), rows[0]["replicas"])
}

func TestHTTPProvider_ReadOnlyGuardBeforeNetwork(t *testing.T) {
	var requests atomic.Int32
	p, _ := newHTTPProviderForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))

	_, err := p.RunQuery(context.Background(), "CREATE (n:Service {name: 'evil'})", nil)
	assert.ErrorIs(t, err, NewReadOnlyViolationError(""))
	assert.Equal(t, int32(0), requests.Load(), "no network call may be attempted")
}

func TestHTTPProvider_BackendErrorIsTerminal(t *testing.T) {
	var requests atomic.Int32
	p, _ := newHTTPProviderForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		json.NewEncoder(w).Encode(txResponse{
			Errors: []txError{{
				Code:    "Neo.ClientError.Statement.SyntaxError",
				Message: "Invalid input",
			}},
		})
	}))

	_, err := p.RunQuery(context.Background(), "MATCH (n RETURN n", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.NewError(types.GRAPH_QUERY_FAILED, ""))
	assert.Equal(t, int32(1), requests.Load(), "non-transient failures are not retried")
}

func TestHTTPProvider_TransientRetriedExactlyOnce(t *testing.T) {
	var requests atomic.Int32
	p, _ := newHTTPProviderForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(txResponse{
			Results: []txResult{{
				Columns: []string{"ok"},
				Data:    []txRow{{Row: []any{float64(1)}}},
			}},
		})
	}))

	rows, err := p.RunQuery(context.Background(), "RETURN 1 AS ok", nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0]["ok"])
	assert.Equal(t, int32(2), requests.Load())
}

func TestHTTPProvider_TransientTwiceFails(t *testing.T) {
	var requests atomic.Int32
	p, _ := newHTTPProviderForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := p.RunQuery(context.Background(), "RETURN 1", nil)
	require.Error(t, err)
	assert.Equal(t, int32(2), requests.Load(), "retried exactly once, then terminal")
}

func TestHTTPProvider_AuthFailureNotRetried(t *testing.T) {
	var requests atomic.Int32
	p, _ := newHTTPProviderForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := p.RunQuery(context.Background(), "RETURN 1", nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), requests.Load())
}

func TestHTTPProvider_SearchByName(t *testing.T) {
	p, _ := newHTTPProviderForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req txRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Statements, 1)
		assert.Contains(t, req.Statements[0].Statement, "CONTAINS toLower($term)")

		json.NewEncoder(w).Encode(txResponse{
			Results: []txResult{{
				Columns: []string{"id", "label", "name"},
				Data:    []txRow{{Row: []any{"4:abc:1", "Service", "checkout"}}},
			}},
		})
	}))

	summaries, err := p.SearchByName(context.Background(), "check", 10)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, NodeSummary{ID: "4:abc:1", Label: "Service", Name: "checkout"}, summaries[0])
}
