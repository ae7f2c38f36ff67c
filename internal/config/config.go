// Package config defines the configuration surface for the tenant-scoped
// graph gateway and a viper-based loader with environment interpolation.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the top-level configuration.
type Config struct {
	Graph   GraphConfig   `yaml:"graph" json:"graph" mapstructure:"graph"`
	Index   IndexConfig   `yaml:"index" json:"index" mapstructure:"index"`
	Guard   GuardConfig   `yaml:"guard" json:"guard" mapstructure:"guard"`
	Agent   AgentConfig   `yaml:"agent" json:"agent" mapstructure:"agent"`
	Logging LoggingConfig `yaml:"logging" json:"logging" mapstructure:"logging"`
}

// GraphConfig contains graph database connection configuration.
// The URI scheme selects the wire protocol: bolt://, bolt+s://, neo4j:// and
// neo4j+s:// use the binary session protocol; http:// and https:// use the
// transactional HTTP endpoint.
type GraphConfig struct {
	URI                string        `yaml:"uri" json:"uri" mapstructure:"uri"`
	Username           string        `yaml:"username" json:"username" mapstructure:"username"`
	Password           string        `yaml:"password" json:"password" mapstructure:"password"`
	Database           string        `yaml:"database" json:"database" mapstructure:"database"`
	PoolSize           int           `yaml:"pool_size" json:"pool_size" mapstructure:"pool_size"`
	ConnectionLifetime time.Duration `yaml:"connection_lifetime" json:"connection_lifetime" mapstructure:"connection_lifetime"`
	Timeout            time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout"`
}

// IndexConfig contains schema vector index configuration.
// Exactly one of URL (remote collection service) or Path (local persistence
// directory) selects the backend.
type IndexConfig struct {
	URL                 string        `yaml:"url" json:"url" mapstructure:"url"`
	Path                string        `yaml:"path" json:"path" mapstructure:"path"`
	Collection          string        `yaml:"collection" json:"collection" mapstructure:"collection"`
	TopK                int           `yaml:"top_k" json:"top_k" mapstructure:"top_k"`
	SimilarityThreshold float64       `yaml:"similarity_threshold" json:"similarity_threshold" mapstructure:"similarity_threshold"`
	ExpandRelationships bool          `yaml:"expand_relationships" json:"expand_relationships" mapstructure:"expand_relationships"`
	RequestsPerSecond   float64       `yaml:"requests_per_second" json:"requests_per_second" mapstructure:"requests_per_second"`
	MaxRetries          int           `yaml:"max_retries" json:"max_retries" mapstructure:"max_retries"`
	RetryBaseDelay      time.Duration `yaml:"retry_base_delay" json:"retry_base_delay" mapstructure:"retry_base_delay"`
	RetryMaxDelay       time.Duration `yaml:"retry_max_delay" json:"retry_max_delay" mapstructure:"retry_max_delay"`
}

// GuardConfig contains query security guard configuration. The structural
// rewrite is the default; disabling it falls back to the textual
// clause-boundary injection, which rejects more queries as unscopable.
type GuardConfig struct {
	ForbiddenLabels          []string `yaml:"forbidden_labels" json:"forbidden_labels" mapstructure:"forbidden_labels"`
	DisableStructuralRewrite bool     `yaml:"disable_structural_rewrite" json:"disable_structural_rewrite" mapstructure:"disable_structural_rewrite"`
}

// AgentConfig configures the default agent runner.
type AgentConfig struct {
	Provider     string `yaml:"provider" json:"provider" mapstructure:"provider"` // openai, anthropic, ollama
	Model        string `yaml:"model" json:"model" mapstructure:"model"`
	APIKey       string `yaml:"api_key" json:"api_key" mapstructure:"api_key"`
	MaxToolCalls int    `yaml:"max_tool_calls" json:"max_tool_calls" mapstructure:"max_tool_calls"`
}

// LoggingConfig configures structured logging output.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" json:"format" mapstructure:"format"` // text, json
}

// ApplyDefaults applies default values to the Config.
// Call this before Validate() to ensure sensible defaults.
func (c *Config) ApplyDefaults() {
	c.Graph.ApplyDefaults()
	c.Index.ApplyDefaults()
	c.Guard.ApplyDefaults()
	c.Agent.ApplyDefaults()
	c.Logging.ApplyDefaults()
}

// Validate validates the whole configuration tree.
func (c *Config) Validate() error {
	if err := c.Graph.Validate(); err != nil {
		return fmt.Errorf("graph config validation failed: %w", err)
	}
	if err := c.Index.Validate(); err != nil {
		return fmt.Errorf("index config validation failed: %w", err)
	}
	if err := c.Agent.Validate(); err != nil {
		return fmt.Errorf("agent config validation failed: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config validation failed: %w", err)
	}
	return nil
}

// ApplyDefaults applies default values to the GraphConfig.
// The pool defaults to a single connection: idle sockets reused across load
// balancer boundaries get silently dropped, and a pool of one combined with
// connection recycling avoids that class of failure.
func (g *GraphConfig) ApplyDefaults() {
	if g.Database == "" {
		g.Database = "neo4j"
	}
	if g.PoolSize == 0 {
		g.PoolSize = 1
	}
	if g.ConnectionLifetime == 0 {
		g.ConnectionLifetime = 5 * time.Minute
	}
	if g.Timeout == 0 {
		g.Timeout = 30 * time.Second
	}
}

// Validate validates the GraphConfig fields.
func (g *GraphConfig) Validate() error {
	if g.URI == "" {
		return fmt.Errorf("graph uri is required")
	}
	u, err := url.Parse(g.URI)
	if err != nil {
		return fmt.Errorf("graph uri is not a valid URI: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "bolt", "bolt+s", "bolt+ssc", "neo4j", "neo4j+s", "neo4j+ssc", "http", "https":
	default:
		return fmt.Errorf("unsupported graph uri scheme: %s", u.Scheme)
	}
	if g.Username == "" {
		return fmt.Errorf("graph username is required")
	}
	if g.Password == "" {
		return fmt.Errorf("graph password is required")
	}
	if g.PoolSize < 1 || g.PoolSize > 100 {
		return fmt.Errorf("graph pool_size must be between 1 and 100, got %d", g.PoolSize)
	}
	if g.Timeout <= 0 {
		return fmt.Errorf("graph timeout must be positive")
	}
	return nil
}

// ApplyDefaults applies default values to the IndexConfig.
func (i *IndexConfig) ApplyDefaults() {
	if i.Collection == "" {
		i.Collection = "graph_schema"
	}
	if i.TopK == 0 {
		i.TopK = 10
	}
	if i.SimilarityThreshold == 0 {
		i.SimilarityThreshold = 0.3
	}
	if i.RequestsPerSecond == 0 {
		i.RequestsPerSecond = 5
	}
	if i.MaxRetries == 0 {
		i.MaxRetries = 3
	}
	if i.RetryBaseDelay == 0 {
		i.RetryBaseDelay = 500 * time.Millisecond
	}
	if i.RetryMaxDelay == 0 {
		i.RetryMaxDelay = 8 * time.Second
	}
}

// Validate validates the IndexConfig fields.
func (i *IndexConfig) Validate() error {
	if i.URL == "" && i.Path == "" {
		return fmt.Errorf("index requires either url (remote) or path (local)")
	}
	if i.URL != "" && i.Path != "" {
		return fmt.Errorf("index url and path are mutually exclusive")
	}
	if i.URL != "" {
		if _, err := url.Parse(i.URL); err != nil {
			return fmt.Errorf("index url is not a valid URL: %w", err)
		}
	}
	if i.TopK < 1 || i.TopK > 100 {
		return fmt.Errorf("index top_k must be between 1 and 100, got %d", i.TopK)
	}
	if i.SimilarityThreshold < 0 || i.SimilarityThreshold > 1 {
		return fmt.Errorf("index similarity_threshold must be between 0 and 1, got %f", i.SimilarityThreshold)
	}
	if i.MaxRetries < 1 || i.MaxRetries > 10 {
		return fmt.Errorf("index max_retries must be between 1 and 10, got %d", i.MaxRetries)
	}
	return nil
}

// ApplyDefaults applies default values to the GuardConfig.
func (g *GuardConfig) ApplyDefaults() {
	if g.ForbiddenLabels == nil {
		g.ForbiddenLabels = []string{"Credential", "Secret"}
	}
}

// ApplyDefaults applies default values to the AgentConfig.
func (a *AgentConfig) ApplyDefaults() {
	if a.Provider == "" {
		a.Provider = "openai"
	}
	if a.MaxToolCalls == 0 {
		a.MaxToolCalls = 5
	}
}

// Validate validates the AgentConfig fields.
func (a *AgentConfig) Validate() error {
	switch strings.ToLower(a.Provider) {
	case "openai", "anthropic", "ollama":
	default:
		return fmt.Errorf("unsupported agent provider: %s", a.Provider)
	}
	if a.MaxToolCalls < 1 || a.MaxToolCalls > 25 {
		return fmt.Errorf("agent max_tool_calls must be between 1 and 25, got %d", a.MaxToolCalls)
	}
	return nil
}

// ApplyDefaults applies default values to the LoggingConfig.
func (l *LoggingConfig) ApplyDefaults() {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

// Validate validates the LoggingConfig fields.
func (l *LoggingConfig) Validate() error {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %s", l.Level)
	}
	switch strings.ToLower(l.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid logging format: %s", l.Format)
	}
	return nil
}

// DefaultConfig returns a Config populated with defaults. The graph and index
// sections still require endpoint settings before validation passes.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}
