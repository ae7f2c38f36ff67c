package graph

import (
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeValue_Node(t *testing.T) {
	node := dbtype.Node{
		ElementId: "4:abc:42",
		Labels:    []string{"Service"},
		Props: map[string]any{
			"name":     "checkout",
			"replicas": int64(3),
		},
	}

	got := normalizeValue(node)
	want := map[string]any{
		"id":     "4:abc:42",
		"labels": []string{"Service"},
		"properties": map[string]any{
			"name":     "checkout",
			"replicas": int64(3),
		},
	}
	assert.Equal(t, want, got)
}

func TestNormalizeValue_Relationship(t *testing.T) {
	rel := dbtype.Relationship{
		ElementId:      "5:abc:7",
		StartElementId: "4:abc:1",
		EndElementId:   "4:abc:2",
		Type:           "DEPENDS_ON",
		Props:          map[string]any{"weight": 1.5},
	}

	got := normalizeValue(rel).(map[string]any)
	assert.Equal(t, "DEPENDS_ON", got["type"])
	assert.Equal(t, "4:abc:1", got["start"])
	assert.Equal(t, "4:abc:2", got["end"])
	assert.Equal(t, map[string]any{"weight": 1.5}, got["properties"])
}

func TestNormalizeValue_Path(t *testing.T) {
	path := dbtype.Path{
		Nodes: []dbtype.Node{
			{ElementId: "4:abc:1", Labels: []string{"Service"}, Props: map[string]any{}},
			{ElementId: "4:abc:2", Labels: []string{"Database"}, Props: map[string]any{}},
		},
		Relationships: []dbtype.Relationship{
			{ElementId: "5:abc:9", StartElementId: "4:abc:1", EndElementId: "4:abc:2", Type: "USES", Props: map[string]any{}},
		},
	}

	got := normalizeValue(path).(map[string]any)
	nodes := got["nodes"].([]any)
	rels := got["relationships"].([]any)
	require.Len(t, nodes, 2)
	require.Len(t, rels, 1)
	assert.Equal(t, "USES", rels[0].(map[string]any)["type"])
}

func TestNormalizeValue_NestedCollections(t *testing.T) {
	value := []any{
		dbtype.Node{ElementId: "4:abc:1", Labels: []string{"Pod"}, Props: map[string]any{"name": "web-0"}},
		map[string]any{"inner": []any{int64(1), int64(2)}},
		"plain",
	}

	got := normalizeValue(value).([]any)
	require.Len(t, got, 3)
	assert.Equal(t, "4:abc:1", got[0].(map[string]any)["id"])
	assert.Equal(t, []any{int64(1), int64(2)}, got[1].(map[string]any)["inner"])
	assert.Equal(t, "plain", got[2])
}

func TestConvertRecords(t *testing.T) {
	records := []*neo4j.Record{
		{
			Keys:   []string{"name", "count"},
			Values: []any{"checkout", int64(2)},
		},
	}

	rows := convertRecords(records)
	require.Len(t, rows, 1)
	assert.Equal(t, Row{"name": "checkout", "count": int64(2)}, rows[0])
}

func TestNormalizeJSONValue(t *testing.T) {
	got := normalizeJSONValue(map[string]any{
		"int":    float64(5),
		"float":  2.5,
		"nested": []any{float64(1), "x", map[string]any{"n": float64(7)}},
	}).(map[string]any)

	assert.Equal(t, int64(5), got["int"])
	assert.Equal(t, 2.5, got["float"])
	nested := got["nested"].([]any)
	assert.Equal(t, int64(1), nested[0])
	assert.Equal(t, int64(7), nested[2].(map[string]any)["n"])
}
