package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/duplocloud/dcaf-sub001/internal/config"
	"github.com/duplocloud/dcaf-sub001/internal/types"
)

// BoltProvider implements Provider over the binary session protocol using the
// official driver. The pool is intentionally small (default 1) and connections
// are recycled on a configured lifetime: idle sockets held across load
// balancer idle timeouts fail with resets on first reuse, and a short-lived
// pool avoids that entirely.
type BoltProvider struct {
	cfg    config.GraphConfig
	logger *slog.Logger

	mu     sync.Mutex
	driver neo4j.DriverWithContext
}

// NewBoltProvider creates a bolt-protocol provider. The driver is created
// lazily on first use so construction never dials.
func NewBoltProvider(cfg config.GraphConfig, logger *slog.Logger) (*BoltProvider, error) {
	if cfg.URI == "" {
		return nil, types.NewError(types.GRAPH_INVALID_CONFIG, "graph uri is required")
	}
	return &BoltProvider{
		cfg:    cfg,
		logger: logger,
	}, nil
}

// getDriver returns the current driver, creating it if needed.
func (p *BoltProvider) getDriver() (neo4j.DriverWithContext, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.driver != nil {
		return p.driver, nil
	}

	auth := neo4j.BasicAuth(p.cfg.Username, p.cfg.Password, "")
	driver, err := neo4j.NewDriverWithContext(p.cfg.URI, auth, func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = p.cfg.PoolSize
		c.MaxConnectionLifetime = p.cfg.ConnectionLifetime
		c.ConnectionAcquisitionTimeout = p.cfg.Timeout
	})
	if err != nil {
		return nil, NewConnectionError("failed to create driver", err)
	}

	p.driver = driver
	return driver, nil
}

// reset discards the current driver so the next call dials fresh.
func (p *BoltProvider) reset(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.driver != nil {
		if err := p.driver.Close(ctx); err != nil {
			p.logger.Warn("failed to close stale driver", "error", err)
		}
		p.driver = nil
	}
}

// RunQuery executes a read-only query. On a transient failure the driver is
// recreated and the query retried exactly once; a second failure propagates.
func (p *BoltProvider) RunQuery(ctx context.Context, query string, params map[string]any) ([]Row, error) {
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

	p.logger.Warn("transient graph failure, recreating connection and retrying once",
		"error", err)
	p.reset(ctx)

	rows, retryErr := p.run(ctx, query, params)
	if retryErr != nil {
		return nil, retryErr
	}
	return rows, nil
}

func (p *BoltProvider) run(ctx context.Context, query string, params map[string]any) ([]Row, error) {
	driver, err := p.getDriver()
	if err != nil {
		return nil, err
	}

	session := driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: p.cfg.Database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		return convertRecords(records), nil
	})
	if err != nil {
		if IsTransient(err) {
			return nil, NewSessionExpiredError(err)
		}
		return nil, NewQueryError("query execution failed", err)
	}

	return result.([]Row), nil
}

// SearchByName finds nodes whose name contains the given term.
func (p *BoltProvider) SearchByName(ctx context.Context, term string, limit int) ([]NodeSummary, error) {
	return searchByName(ctx, p, term, limit)
}

// DependenciesOf returns names of nodes the given node depends on.
func (p *BoltProvider) DependenciesOf(ctx context.Context, nodeID string, maxHops int) ([]string, error) {
	return dependenciesOf(ctx, p, nodeID, maxHops)
}

// Health verifies connectivity to the backend.
func (p *BoltProvider) Health(ctx context.Context) types.HealthStatus {
	driver, err := p.getDriver()
	if err != nil {
		return types.Unhealthy(fmt.Sprintf("driver creation failed: %v", err))
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return types.Unhealthy(fmt.Sprintf("connectivity check failed: %v", err))
	}
	return types.Healthy("connected over bolt")
}

// Close releases the driver and its pool.
func (p *BoltProvider) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.driver == nil {
		return nil
	}
	err := p.driver.Close(ctx)
	p.driver = nil
	if err != nil {
		return types.WrapError(types.GRAPH_CONNECTION_FAILED, "failed to close driver", err)
	}
	return nil
}
