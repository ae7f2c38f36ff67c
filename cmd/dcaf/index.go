package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/duplocloud/dcaf-sub001/internal/schema"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the local schema vector index",
}

var indexLoadCmd = &cobra.Command{
	Use:   "load [elements.yaml]",
	Short: "Load schema elements from a YAML file into the local index",
	Long: `Reads a YAML file describing graph schema elements (node types,
relationship types, patterns) and upserts them into the locally persisted
vector index. Only the local index backend supports loading; a remote
collection service is populated by its own ingestion pipeline.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Index.Path == "" {
			return fmt.Errorf("index load requires a local index (set index.path)")
		}
		logger := buildLogger(cfg.Logging)

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read elements file: %w", err)
		}

		var doc struct {
			Elements []schema.Element `yaml:"elements"`
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("failed to parse elements file: %w", err)
		}
		if len(doc.Elements) == 0 {
			return fmt.Errorf("elements file contains no elements")
		}

		index, err := schema.NewLocalIndex(cfg.Index, logger)
		if err != nil {
			return err
		}
		defer index.Close()

		if err := index.Upsert(ctx, doc.Elements); err != nil {
			return err
		}

		cmd.Printf("loaded %d schema elements into %s\n", len(doc.Elements), cfg.Index.Path)
		return nil
	},
}

func init() {
	indexCmd.AddCommand(indexLoadCmd)
}
