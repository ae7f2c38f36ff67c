package graph

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/duplocloud/dcaf-sub001/internal/types"
)

// TracedProvider wraps a Provider with OpenTelemetry spans for every
// operation. Thread-safety follows the inner provider.
type TracedProvider struct {
	inner  Provider
	tracer trace.Tracer
}

// NewTracedProvider wraps the given provider with tracing.
func NewTracedProvider(inner Provider, tracer trace.Tracer) *TracedProvider {
	return &TracedProvider{
		inner:  inner,
		tracer: tracer,
	}
}

// RunQuery traces the query execution, recording row count and error status.
func (p *TracedProvider) RunQuery(ctx context.Context, query string, params map[string]any) ([]Row, error) {
	ctx, span := p.tracer.Start(ctx, "dcaf.graph.run_query",
		trace.WithAttributes(
			attribute.Int("graph.query_length", len(query)),
			attribute.Int("graph.param_count", len(params)),
		))
	defer span.End()

	rows, err := p.inner.RunQuery(ctx, query, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("graph.row_count", len(rows)))
	span.SetStatus(codes.Ok, "")
	return rows, nil
}

// SearchByName traces the name search.
func (p *TracedProvider) SearchByName(ctx context.Context, term string, limit int) ([]NodeSummary, error) {
	ctx, span := p.tracer.Start(ctx, "dcaf.graph.search_by_name",
		trace.WithAttributes(attribute.Int("graph.limit", limit)))
	defer span.End()

	summaries, err := p.inner.SearchByName(ctx, term, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("graph.result_count", len(summaries)))
	return summaries, nil
}

// DependenciesOf traces the dependency traversal.
func (p *TracedProvider) DependenciesOf(ctx context.Context, nodeID string, maxHops int) ([]string, error) {
	ctx, span := p.tracer.Start(ctx, "dcaf.graph.dependencies_of",
		trace.WithAttributes(attribute.Int("graph.max_hops", maxHops)))
	defer span.End()

	names, err := p.inner.DependenciesOf(ctx, nodeID, maxHops)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("graph.result_count", len(names)))
	return names, nil
}

// Health delegates to the inner provider.
func (p *TracedProvider) Health(ctx context.Context) types.HealthStatus {
	return p.inner.Health(ctx)
}

// Close delegates to the inner provider.
func (p *TracedProvider) Close(ctx context.Context) error {
	return p.inner.Close(ctx)
}
