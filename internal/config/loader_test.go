package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dcaf.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
graph:
  uri: bolt://graph.internal:7687
  username: neo4j
  password: s3cret
  pool_size: 1
  connection_lifetime: 4m
  timeout: 20s
index:
  url: http://index.internal:8000
  collection: platform_schema
  top_k: 15
  similarity_threshold: 0.35
  expand_relationships: true
  requests_per_second: 2
guard:
  forbidden_labels: [Credential]
  disable_structural_rewrite: true
agent:
  provider: openai
  model: gpt-4o
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "bolt://graph.internal:7687", cfg.Graph.URI)
	assert.Equal(t, 4*time.Minute, cfg.Graph.ConnectionLifetime)
	assert.Equal(t, 20*time.Second, cfg.Graph.Timeout)
	assert.Equal(t, "platform_schema", cfg.Index.Collection)
	assert.Equal(t, 15, cfg.Index.TopK)
	assert.InDelta(t, 0.35, cfg.Index.SimilarityThreshold, 1e-9)
	assert.True(t, cfg.Index.ExpandRelationships)
	assert.Equal(t, []string{"Credential"}, cfg.Guard.ForbiddenLabels)
	assert.True(t, cfg.Guard.DisableStructuralRewrite)

	// defaults applied where unset
	assert.Equal(t, "neo4j", cfg.Graph.Database)
	assert.Equal(t, 3, cfg.Index.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Index.RetryBaseDelay)
	assert.Equal(t, 5, cfg.Agent.MaxToolCalls)
}

func TestLoad_EnvInterpolation(t *testing.T) {
	t.Setenv("DCAF_GRAPH_PASSWORD", "from-env")

	path := writeConfig(t, `
graph:
  uri: bolt://localhost:7687
  username: neo4j
  password: ${DCAF_GRAPH_PASSWORD}
index:
  path: /var/lib/dcaf/index
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Graph.Password)
}

func TestLoad_UnsetEnvVarLeftVerbatim(t *testing.T) {
	path := writeConfig(t, `
graph:
  uri: bolt://localhost:7687
  username: neo4j
  password: ${DCAF_DOES_NOT_EXIST}
index:
  path: /var/lib/dcaf/index
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "${DCAF_DOES_NOT_EXIST}", cfg.Graph.Password)
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "missing graph uri",
			content: `
graph:
  username: neo4j
  password: pw
index:
  path: /tmp/idx
`,
		},
		{
			name: "bad uri scheme",
			content: `
graph:
  uri: ftp://nope:21
  username: neo4j
  password: pw
index:
  path: /tmp/idx
`,
		},
		{
			name: "index url and path both set",
			content: `
graph:
  uri: bolt://localhost:7687
  username: neo4j
  password: pw
index:
  url: http://index:8000
  path: /tmp/idx
`,
		},
		{
			name: "threshold out of range",
			content: `
graph:
  uri: bolt://localhost:7687
  username: neo4j
  password: pw
index:
  path: /tmp/idx
  similarity_threshold: 1.5
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithDefaults_MissingFile(t *testing.T) {
	cfg, err := LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Graph.PoolSize)
	assert.Equal(t, "graph_schema", cfg.Index.Collection)
}
