// Package graph provides the protocol-abstracted client for the property
// graph database. Two implementations sit behind one interface: a binary
// session protocol client (bolt) and an HTTP transactional endpoint client.
// The configured endpoint's URI scheme selects the implementation once per
// process.
package graph

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/duplocloud/dcaf-sub001/internal/config"
	"github.com/duplocloud/dcaf-sub001/internal/types"
)

// Row is one flat result row: column name to normalized value. Backend-native
// composite values (nodes, relationships, paths) are translated into plain
// scalars, lists, and maps before rows reach callers.
type Row map[string]any

// NodeSummary is a lightweight node description returned by name search.
type NodeSummary struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Name  string `json:"name"`
}

// Provider executes read-only queries against the graph database.
// Implementations must be safe for concurrent use; their connection pools are
// shared across concurrent requests.
type Provider interface {
	// RunQuery executes a read-only query and returns normalized rows.
	// Queries containing mutating keywords are rejected before any network
	// call. Transient transport failures are retried exactly once after
	// recreating the underlying connection.
	RunQuery(ctx context.Context, query string, params map[string]any) ([]Row, error)

	// SearchByName finds nodes whose name contains the given term.
	SearchByName(ctx context.Context, term string, limit int) ([]NodeSummary, error)

	// DependenciesOf returns the names of nodes reachable from the given node
	// over dependency relationships, up to maxHops hops.
	DependenciesOf(ctx context.Context, nodeID string, maxHops int) ([]string, error)

	// Health reports connectivity to the backend.
	Health(ctx context.Context) types.HealthStatus

	// Close releases the underlying connections.
	Close(ctx context.Context) error
}

// NewProvider creates the Provider matching the configured URI scheme.
// bolt://, bolt+s://, bolt+ssc://, neo4j://, neo4j+s:// and neo4j+ssc:// use
// the binary session protocol; http:// and https:// use the transactional
// HTTP endpoint.
func NewProvider(cfg config.GraphConfig, logger *slog.Logger) (Provider, error) {
	u, err := url.Parse(cfg.URI)
	if err != nil {
		return nil, types.WrapError(types.GRAPH_INVALID_CONFIG, "invalid graph uri", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "bolt", "bolt+s", "bolt+ssc", "neo4j", "neo4j+s", "neo4j+ssc":
		return NewBoltProvider(cfg, logger)
	case "http", "https":
		return NewHTTPProvider(cfg, logger)
	default:
		return nil, types.NewError(types.GRAPH_INVALID_CONFIG,
			fmt.Sprintf("unsupported graph uri scheme: %s", u.Scheme))
	}
}

const searchByNameQuery = `MATCH (n)
WHERE n.name IS NOT NULL AND toLower(n.name) CONTAINS toLower($term)
RETURN elementId(n) AS id, head(labels(n)) AS label, n.name AS name
LIMIT $limit`

// searchByName implements SearchByName on top of RunQuery. Shared by both
// protocol implementations.
func searchByName(ctx context.Context, p Provider, term string, limit int) ([]NodeSummary, error) {
	if limit <= 0 {
		limit = 25
	}
	rows, err := p.RunQuery(ctx, searchByNameQuery, map[string]any{
		"term":  term,
		"limit": limit,
	})
	if err != nil {
		return nil, err
	}

	summaries := make([]NodeSummary, 0, len(rows))
	for _, row := range rows {
		s := NodeSummary{}
		if v, ok := row["id"].(string); ok {
			s.ID = v
		}
		if v, ok := row["label"].(string); ok {
			s.Label = v
		}
		if v, ok := row["name"].(string); ok {
			s.Name = v
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// dependenciesOf implements DependenciesOf on top of RunQuery. The hop bound
// cannot be a bound parameter in a variable-length pattern, so it is clamped
// and spliced numerically.
func dependenciesOf(ctx context.Context, p Provider, nodeID string, maxHops int) ([]string, error) {
	if maxHops < 1 {
		maxHops = 1
	}
	if maxHops > 10 {
		maxHops = 10
	}
	query := fmt.Sprintf(`MATCH (s)-[:DEPENDS_ON*1..%d]->(d)
WHERE elementId(s) = $id OR s.id = $id
RETURN DISTINCT coalesce(d.name, elementId(d)) AS name`, maxHops)

	rows, err := p.RunQuery(ctx, query, map[string]any{"id": nodeID})
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		if name, ok := row["name"].(string); ok {
			names = append(names, name)
		}
	}
	return names, nil
}
