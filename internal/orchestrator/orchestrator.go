// Package orchestrator composes the per-request pipeline: extract the
// platform context and prior schema cache from the message history, select
// and merge relevant schema, splice it into the system prompt, expose the
// tenant-guarded graph query tool to the agent, and persist the updated
// cache into the response for the client to echo back next turn.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/duplocloud/dcaf-sub001/internal/agent"
	"github.com/duplocloud/dcaf-sub001/internal/graph"
	"github.com/duplocloud/dcaf-sub001/internal/guard"
	"github.com/duplocloud/dcaf-sub001/internal/platform"
	"github.com/duplocloud/dcaf-sub001/internal/schema"
	"github.com/duplocloud/dcaf-sub001/internal/types"
)

// Message is one item of the inbound conversation payload.
type Message struct {
	Role     string         `json:"role"`
	Content  string         `json:"content,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Request is the inbound chat request.
type Request struct {
	Messages []Message `json:"messages"`
}

// Response carries the rendered answer plus metadata: the schema cache for
// the next turn and debug timing fields.
type Response struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// Response metadata keys.
const (
	RequestIDKey         = "request_id"
	SchemaSelectionMSKey = "debug_schema_selection_ms"
	BackendMSKey         = "debug_backend_ms"
	ToolCallsKey         = "debug_tool_calls"
)

const basePrompt = `You are an infrastructure assistant with read-only access to a multi-tenant platform graph. Answer questions about services, workloads, hosts and their relationships using the graph_query tool. Queries must anchor their primary node on the variable n. Never attempt to modify data.`

// schemaSelector is the slice of the Selector the orchestrator needs.
type schemaSelector interface {
	SelectRelevant(ctx context.Context, query string) ([]schema.Element, error)
}

// Orchestrator wires the request pipeline. Stateless across requests; safe
// for concurrent use.
type Orchestrator struct {
	provider graph.Provider
	selector schemaSelector
	guard    *guard.Guard
	runner   agent.Runner
	logger   *slog.Logger
}

// New creates an Orchestrator.
func New(provider graph.Provider, selector schemaSelector, g *guard.Guard, runner agent.Runner, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		provider: provider,
		selector: selector,
		guard:    g,
		runner:   runner,
		logger:   logger,
	}
}

// Handle processes one chat request end to end.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (*Response, error) {
	requestID := uuid.New().String()
	logger := o.logger.With("request_id", requestID)

	pctx, err := extractPlatformContext(req.Messages)
	if err != nil {
		return nil, err
	}
	if err := pctx.Validate(); err != nil {
		logger.Warn("request rejected, invalid platform context",
			"role", pctx.ResolveRole(), "error", err)
		return nil, err
	}

	question, ok := latestUserMessage(req.Messages)
	if !ok {
		return nil, types.NewError(types.CONTEXT_EXTRACTION_FAILED,
			"request contains no user message")
	}

	prior := extractPriorCache(req.Messages, logger)

	selectionStart := time.Now()
	elements, selectErr := o.selector.SelectRelevant(ctx, question)
	selectionMS := time.Since(selectionStart).Milliseconds()

	merged := schema.Merge(prior, elements, pctx.TenantID)
	schemaText := o.schemaText(merged, selectErr, logger)

	timings := &backendTimings{}
	tool := o.graphQueryTool(pctx, timings, logger)

	result, err := o.runner.Run(ctx, agent.Request{
		System:   basePrompt + "\n\n" + schemaText,
		Messages: conversation(req.Messages),
		Tools:    []agent.Tool{tool},
	})
	if err != nil {
		return nil, err
	}

	logger.Info("request handled",
		"role", pctx.ResolveRole(),
		"tenant_id", pctx.TenantID,
		"cached_elements", merged.Size(),
		"tool_calls", result.ToolCalls,
		"schema_selection_ms", selectionMS)

	return &Response{
		Text: result.Text,
		Metadata: map[string]any{
			RequestIDKey:            requestID,
			schema.CacheMetadataKey: merged,
			SchemaSelectionMSKey:    selectionMS,
			BackendMSKey:            timings.totalMS(),
			ToolCallsKey:            result.ToolCalls,
		},
	}, nil
}

// schemaText renders the prompt schema section, degrading gracefully when
// fresh selection failed: cached elements still serve, and with nothing
// cached a placeholder goes in rather than failing the whole request.
func (o *Orchestrator) schemaText(merged *schema.Cache, selectErr error, logger *slog.Logger) string {
	if selectErr == nil {
		return schema.FormatMarkdown(merged.ElementList())
	}

	if merged.Size() > 0 {
		logger.Warn("schema selection unavailable, serving from cache alone", "error", selectErr)
		return schema.FormatMarkdown(merged.ElementList()) +
			"\n\n_Fresh schema selection is unavailable; the list above may be incomplete._"
	}

	logger.Warn("schema selection unavailable and no prior cache", "error", selectErr)
	return schema.FormatUnavailable
}

// conversation converts inbound messages to agent history, dropping items
// with no content (metadata-only carriers).
func conversation(messages []Message) []agent.Message {
	history := make([]agent.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Content == "" {
			continue
		}
		history = append(history, agent.Message{Role: msg.Role, Content: msg.Content})
	}
	return history
}

// extractPlatformContext scans messages newest-first for an embedded platform
// context.
func extractPlatformContext(messages []Message) (platform.Context, error) {
	for i := len(messages) - 1; i >= 0; i-- {
		meta := messages[i].Metadata
		if meta == nil {
			continue
		}
		if _, ok := meta[platform.MetadataKey]; !ok {
			continue
		}
		return platform.FromMetadata(meta)
	}
	return platform.Context{}, nil
}

// extractPriorCache finds the newest assistant message carrying a schema
// cache. A malformed cache is dropped with a warning so retrieval restarts
// from empty instead of failing the request.
func extractPriorCache(messages []Message, logger *slog.Logger) *schema.Cache {
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if msg.Role != "assistant" || msg.Metadata == nil {
			continue
		}
		if _, ok := msg.Metadata[schema.CacheMetadataKey]; !ok {
			continue
		}
		cache, err := schema.CacheFromMetadata(msg.Metadata)
		if err != nil {
			logger.Warn("discarding malformed schema cache", "error", err)
			return nil
		}
		return cache
	}
	return nil
}

// latestUserMessage returns the content of the newest user message.
func latestUserMessage(messages []Message) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" && messages[i].Content != "" {
			return messages[i].Content, true
		}
	}
	return "", false
}
