package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandQueryOriginalFirst(t *testing.T) {
	variants := ExpandQuery("what depends on the checkout service")
	require.NotEmpty(t, variants)
	assert.Equal(t, "what depends on the checkout service", variants[0])
}

func TestExpandQueryMatchesSubstrings(t *testing.T) {
	variants := ExpandQuery("show dependencies of checkout")

	found := false
	for _, v := range variants[1:] {
		if strings.Contains(v, "DEPENDS_ON") {
			found = true
		}
	}
	assert.True(t, found, "expected a DEPENDS_ON variant, got %v", variants)
}

func TestExpandQueryNoMatches(t *testing.T) {
	variants := ExpandQuery("hello there")
	assert.Equal(t, []string{"hello there"}, variants)
}

func TestExpandQueryBounded(t *testing.T) {
	// hits many keywords at once
	variants := ExpandQuery("service database pod node tenant volume network cache queue")
	assert.LessOrEqual(t, len(variants), maxQueryVariants)
}

func TestExpandQueryDeterministic(t *testing.T) {
	first := ExpandQuery("which pods depend on the payments database")
	second := ExpandQuery("which pods depend on the payments database")
	assert.Equal(t, first, second)
}

func TestExpandQueryDeduplicates(t *testing.T) {
	// "depend" and "dependency" share an expansion
	variants := ExpandQuery("dependency and depend")
	seen := map[string]bool{}
	for _, v := range variants {
		assert.False(t, seen[v], "duplicate variant %q", v)
		seen[v] = true
	}
}
