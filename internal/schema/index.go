package schema

import (
	"context"
	"log/slog"

	"github.com/duplocloud/dcaf-sub001/internal/config"
	"github.com/duplocloud/dcaf-sub001/internal/resilience"
	"github.com/duplocloud/dcaf-sub001/internal/types"
)

// VectorIndex turns a natural-language query into a ranked list of schema
// elements. Similarity scores are in [0,1], computed as 1 - distance.
// Implementations must be safe for concurrent use.
type VectorIndex interface {
	// Search returns up to topK elements ranked by similarity to the query.
	Search(ctx context.Context, query string, topK int) ([]Element, error)

	// Health reports availability of the underlying collection.
	Health(ctx context.Context) types.HealthStatus

	// Close releases index resources.
	Close() error
}

// NewVectorIndex creates the index backend selected by the configuration
// (remote collection service when url is set, local persistent index when
// path is set) and wraps it with the shared rate limiter and retry policy.
func NewVectorIndex(cfg config.IndexConfig, limiter *resilience.RateLimiter, retryer *resilience.Retryer, logger *slog.Logger) (VectorIndex, error) {
	var (
		inner VectorIndex
		err   error
	)

	switch {
	case cfg.URL != "":
		inner, err = NewRemoteIndex(cfg, logger)
	case cfg.Path != "":
		inner, err = NewLocalIndex(cfg, logger)
	default:
		return nil, types.NewError(types.INDEX_INVALID_CONFIG,
			"index requires either url (remote) or path (local)")
	}
	if err != nil {
		return nil, err
	}

	return &resilientIndex{
		inner:   inner,
		limiter: limiter,
		retryer: retryer,
	}, nil
}

// resilientIndex decorates a VectorIndex with rate limiting and retry.
// The limiter is shared process-wide across all concurrent index calls.
type resilientIndex struct {
	inner   VectorIndex
	limiter *resilience.RateLimiter
	retryer *resilience.Retryer
}

func (r *resilientIndex) Search(ctx context.Context, query string, topK int) ([]Element, error) {
	var elements []Element
	err := r.retryer.Do(ctx, "index.search", func(ctx context.Context) error {
		r.limiter.Wait()
		var searchErr error
		elements, searchErr = r.inner.Search(ctx, query, topK)
		return searchErr
	})
	if err != nil {
		return nil, err
	}
	return elements, nil
}

func (r *resilientIndex) Health(ctx context.Context) types.HealthStatus {
	return r.inner.Health(ctx)
}

func (r *resilientIndex) Close() error {
	return r.inner.Close()
}
