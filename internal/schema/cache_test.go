package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeSameTenantAccumulates(t *testing.T) {
	prior := NewCache("tenant-a")
	prior.Elements["node:Service"] = Element{Kind: KindNode, Label: "Service", Similarity: 0.8}
	prior.Elements["node:Database"] = Element{Kind: KindNode, Label: "Database", Similarity: 0.6}

	current := []Element{
		{Kind: KindNode, Label: "Pod", Similarity: 0.7},
	}

	merged := Merge(prior, current, "tenant-a")

	assert.Equal(t, 3, merged.Size())
	assert.Equal(t, "tenant-a", merged.TenantID)
	assert.Contains(t, merged.Elements, "node:Service")
	assert.Contains(t, merged.Elements, "node:Pod")
}

func TestMergeTenantMismatchDiscardsPrior(t *testing.T) {
	prior := NewCache("tenant-a")
	prior.Elements["node:Secret"] = Element{Kind: KindNode, Label: "Secret"}

	current := []Element{
		{Kind: KindNode, Label: "Service", Similarity: 0.9},
	}

	merged := Merge(prior, current, "tenant-b")

	assert.Equal(t, 1, merged.Size())
	assert.Equal(t, "tenant-b", merged.TenantID)
	assert.NotContains(t, merged.Elements, "node:Secret")
}

func TestMergeCurrentTurnWinsCollision(t *testing.T) {
	prior := NewCache("tenant-a")
	prior.Elements["node:Service"] = Element{Kind: KindNode, Label: "Service", Similarity: 0.4, Description: "stale"}

	current := []Element{
		{Kind: KindNode, Label: "Service", Similarity: 0.9, Description: "fresh"},
	}

	merged := Merge(prior, current, "tenant-a")

	require.Equal(t, 1, merged.Size())
	assert.Equal(t, 0.9, merged.Elements["node:Service"].Similarity)
	assert.Equal(t, "fresh", merged.Elements["node:Service"].Description)
}

func TestMergeEmptyPriorTenantAccepted(t *testing.T) {
	prior := NewCache("")
	prior.Elements["node:Service"] = Element{Kind: KindNode, Label: "Service"}

	merged := Merge(prior, nil, "tenant-a")

	assert.Equal(t, 1, merged.Size())
	assert.Equal(t, "tenant-a", merged.TenantID)
}

func TestMergeNilPrior(t *testing.T) {
	merged := Merge(nil, []Element{{Kind: KindNode, Label: "Service"}}, "tenant-a")
	assert.Equal(t, 1, merged.Size())
}

func TestCacheFromMetadata(t *testing.T) {
	t.Run("missing key yields nil", func(t *testing.T) {
		cache, err := CacheFromMetadata(map[string]any{"other": 1})
		require.NoError(t, err)
		assert.Nil(t, cache)
	})

	t.Run("nil metadata yields nil", func(t *testing.T) {
		cache, err := CacheFromMetadata(nil)
		require.NoError(t, err)
		assert.Nil(t, cache)
	})

	t.Run("round trip through map form", func(t *testing.T) {
		meta := map[string]any{
			CacheMetadataKey: map[string]any{
				"version":   1,
				"tenant_id": "tenant-a",
				"elements": map[string]any{
					"node:Service": map[string]any{
						"kind":       "node",
						"label":      "Service",
						"similarity": 0.8,
					},
				},
			},
		}

		cache, err := CacheFromMetadata(meta)
		require.NoError(t, err)
		require.NotNil(t, cache)
		assert.Equal(t, "tenant-a", cache.TenantID)
		assert.Equal(t, 1, cache.Size())
		assert.Equal(t, "Service", cache.Elements["node:Service"].Label)
	})

	t.Run("malformed cache is an error", func(t *testing.T) {
		meta := map[string]any{CacheMetadataKey: "not a cache"}
		_, err := CacheFromMetadata(meta)
		assert.Error(t, err)
	})
}
