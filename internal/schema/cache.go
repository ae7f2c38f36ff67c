package schema

import (
	"github.com/mitchellh/mapstructure"

	"github.com/duplocloud/dcaf-sub001/internal/types"
)

// CacheVersion is the current cache wire-format version, bumped on any
// incompatible change to the cache's own shape.
const CacheVersion = 1

// CacheMetadataKey is the message metadata field carrying the schema cache
// between turns. The server is stateless with respect to the cache: the
// client echoes it back verbatim on the next turn.
const CacheMetadataKey = "schema_cache"

// Cache is the conversation-scoped accumulation of schema elements already
// shown to the model, keyed by stable element key.
type Cache struct {
	Version  int                `json:"version" mapstructure:"version"`
	TenantID string             `json:"tenant_id" mapstructure:"tenant_id"`
	Elements map[string]Element `json:"elements" mapstructure:"elements"`
}

// NewCache creates an empty cache for the given tenant.
func NewCache(tenantID string) *Cache {
	return &Cache{
		Version:  CacheVersion,
		TenantID: tenantID,
		Elements: make(map[string]Element),
	}
}

// Merge combines a prior cache with the current turn's elements.
//
// If prior was built for a different tenant it is discarded entirely and the
// merge starts from empty: cross-tenant leakage prevention takes priority
// over retrieval continuity. On key collision the current turn's element
// always wins, since it carries a fresher similarity score. Merge never
// shrinks the cache otherwise.
func Merge(prior *Cache, current []Element, tenantID string) *Cache {
	merged := NewCache(tenantID)

	if prior != nil && (prior.TenantID == "" || prior.TenantID == tenantID) {
		for key, elem := range prior.Elements {
			merged.Elements[key] = elem
		}
	}

	for _, elem := range current {
		merged.Elements[elem.Key()] = elem
	}

	return merged
}

// ElementList returns the cached elements as a slice in unspecified order.
func (c *Cache) ElementList() []Element {
	if c == nil {
		return nil
	}
	list := make([]Element, 0, len(c.Elements))
	for _, elem := range c.Elements {
		list = append(list, elem)
	}
	return list
}

// Size returns the number of cached elements.
func (c *Cache) Size() int {
	if c == nil {
		return 0
	}
	return len(c.Elements)
}

// CacheFromMetadata decodes a Cache from a message metadata map. A missing
// field yields nil and no error; a malformed cache is an error so callers
// can decide to rebuild rather than silently drop history.
func CacheFromMetadata(meta map[string]any) (*Cache, error) {
	if meta == nil {
		return nil, nil
	}
	raw, ok := meta[CacheMetadataKey]
	if !ok || raw == nil {
		return nil, nil
	}

	var cache Cache
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cache,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, types.WrapError(types.CONTEXT_EXTRACTION_FAILED, "failed to build cache decoder", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, types.WrapError(types.CONTEXT_EXTRACTION_FAILED, "failed to decode schema cache", err)
	}

	if cache.Elements == nil {
		cache.Elements = make(map[string]Element)
	}
	return &cache, nil
}
