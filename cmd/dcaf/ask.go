package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/duplocloud/dcaf-sub001/internal/agent"
	"github.com/duplocloud/dcaf-sub001/internal/graph"
	"github.com/duplocloud/dcaf-sub001/internal/guard"
	"github.com/duplocloud/dcaf-sub001/internal/orchestrator"
	"github.com/duplocloud/dcaf-sub001/internal/platform"
	"github.com/duplocloud/dcaf-sub001/internal/resilience"
	"github.com/duplocloud/dcaf-sub001/internal/schema"
)

var (
	askTenant string
	askRoles  []string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a one-shot question through the full request pipeline",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		question := strings.Join(args, " ")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := buildLogger(cfg.Logging)

		provider, err := graph.NewProvider(cfg.Graph, logger)
		if err != nil {
			return err
		}
		defer provider.Close(ctx)

		limiter := resilience.NewRateLimiter(cfg.Index.RequestsPerSecond)
		retryer := resilience.NewRetryer(cfg.Index.MaxRetries, cfg.Index.RetryBaseDelay, cfg.Index.RetryMaxDelay, logger)
		index, err := schema.NewVectorIndex(cfg.Index, limiter, retryer, logger)
		if err != nil {
			return err
		}
		defer index.Close()

		selector := schema.NewSelector(index, cfg.Index, logger)

		model, err := agent.NewModel(cfg.Agent)
		if err != nil {
			return err
		}
		runner := agent.NewLLMRunner(model, cfg.Agent.MaxToolCalls, logger)

		o := orchestrator.New(
			graph.NewTracedProvider(provider, otel.Tracer("dcaf")),
			selector,
			guard.NewGuard(cfg.Guard, logger),
			runner,
			logger,
		)

		resp, err := o.Handle(ctx, orchestrator.Request{
			Messages: []orchestrator.Message{{
				Role:    "user",
				Content: question,
				Metadata: map[string]any{
					platform.MetadataKey: map[string]any{
						"tenant_id": askTenant,
						"roles":     askRoles,
					},
				},
			}},
		})
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), resp.Text)
		return nil
	},
}

func init() {
	askCmd.Flags().StringVar(&askTenant, "tenant", "", "Tenant id to scope queries to")
	askCmd.Flags().StringSliceVar(&askRoles, "role", []string{"User"}, "Caller roles")
}
