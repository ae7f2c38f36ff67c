package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/duplocloud/dcaf-sub001/internal/graph"
	"github.com/duplocloud/dcaf-sub001/internal/resilience"
	"github.com/duplocloud/dcaf-sub001/internal/schema"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration and probe backend connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := buildLogger(cfg.Logging)
		cmd.Println("configuration: ok")

		provider, err := graph.NewProvider(cfg.Graph, logger)
		if err != nil {
			return err
		}
		defer provider.Close(ctx)

		graphStatus := provider.Health(ctx)
		cmd.Printf("graph backend:  %s (%s)\n", graphStatus.State, graphStatus.Message)

		limiter := resilience.NewRateLimiter(cfg.Index.RequestsPerSecond)
		retryer := resilience.NewRetryer(cfg.Index.MaxRetries, cfg.Index.RetryBaseDelay, cfg.Index.RetryMaxDelay, logger)
		index, err := schema.NewVectorIndex(cfg.Index, limiter, retryer, logger)
		if err != nil {
			return err
		}
		defer index.Close()

		indexStatus := index.Health(ctx)
		cmd.Printf("vector index:   %s (%s)\n", indexStatus.State, indexStatus.Message)

		// degraded still serves; only an unreachable backend fails the check
		if graphStatus.IsUnhealthy() || indexStatus.IsUnhealthy() {
			return fmt.Errorf("one or more backends are unhealthy")
		}
		return nil
	},
}
