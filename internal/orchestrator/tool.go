package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/duplocloud/dcaf-sub001/internal/agent"
	"github.com/duplocloud/dcaf-sub001/internal/platform"
)

// backendTimings accumulates graph call durations across the tool calls of
// one request.
type backendTimings struct {
	mu    sync.Mutex
	total time.Duration
}

func (b *backendTimings) add(d time.Duration) {
	b.mu.Lock()
	b.total += d
	b.mu.Unlock()
}

func (b *backendTimings) totalMS() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total.Milliseconds()
}

// graphQueryTool builds the single tool exposed to the agent: run a
// read-only graph query. Every invocation passes through the security guard
// before reaching the backend; guard rejections surface to the agent as
// tool-execution failures and are never retried on its behalf.
func (o *Orchestrator) graphQueryTool(pctx platform.Context, timings *backendTimings, logger *slog.Logger) agent.Tool {
	return agent.Tool{
		Name:        "graph_query",
		Description: "Run a read-only graph query against the platform graph. The query must bind its primary node as the variable n, e.g. MATCH (n:Service) RETURN n.name. Use $parameters for values.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The read-only graph query to execute.",
				},
				"params": map[string]any{
					"type":        "object",
					"description": "Optional query parameters.",
				},
			},
			"required": []string{"query"},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			query, _ := args["query"].(string)
			if query == "" {
				return "", fmt.Errorf("query argument is required")
			}
			params, _ := args["params"].(map[string]any)

			rewritten, err := o.guard.Enforce(query, params, pctx)
			if err != nil {
				return "", err
			}
			for _, hint := range rewritten.Hints {
				logger.Debug("query guard hint", "hint", hint)
			}

			start := time.Now()
			rows, err := o.provider.RunQuery(ctx, rewritten.Query, rewritten.Params)
			timings.add(time.Since(start))
			if err != nil {
				return "", err
			}

			encoded, err := json.Marshal(rows)
			if err != nil {
				return "", fmt.Errorf("failed to encode query results: %w", err)
			}
			logger.Debug("graph query executed", "rows", len(rows))
			return string(encoded), nil
		},
	}
}
