package graph

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duplocloud/dcaf-sub001/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testGraphConfig(uri string) config.GraphConfig {
	cfg := config.GraphConfig{
		URI:      uri,
		Username: "neo4j",
		Password: "password",
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestNewProvider_SchemeDispatch(t *testing.T) {
	tests := []struct {
		uri  string
		want any
	}{
		{"bolt://localhost:7687", &BoltProvider{}},
		{"bolt+s://graph.example.com:7687", &BoltProvider{}},
		{"neo4j://cluster.example.com", &BoltProvider{}},
		{"neo4j+s://cluster.example.com", &BoltProvider{}},
		{"http://localhost:7474", &HTTPProvider{}},
		{"https://graph.example.com", &HTTPProvider{}},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			p, err := NewProvider(testGraphConfig(tt.uri), testLogger())
			require.NoError(t, err)
			assert.IsType(t, tt.want, p)
		})
	}
}

func TestNewProvider_UnsupportedScheme(t *testing.T) {
	_, err := NewProvider(testGraphConfig("ftp://nope:21"), testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported graph uri scheme")
}

func TestBoltProvider_ReadOnlyGuardBeforeDial(t *testing.T) {
	// the URI points nowhere; the guard must fire before any dial attempt
	p, err := NewBoltProvider(testGraphConfig("bolt://127.0.0.1:1"), testLogger())
	require.NoError(t, err)

	for _, query := range []string{
		"CREATE (n:Service)",
		"MATCH (n) DELETE n",
		"MERGE (n:Tenant {id: 'x'})",
		"MATCH (n) SET n.owned = true",
	} {
		_, err := p.RunQuery(context.Background(), query, nil)
		assert.ErrorIs(t, err, NewReadOnlyViolationError(""), "query: %s", query)
	}
}
