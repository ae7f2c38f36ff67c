package graph

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// convertRecords translates driver records into normalized rows.
func convertRecords(records []*neo4j.Record) []Row {
	rows := make([]Row, 0, len(records))
	for _, record := range records {
		row := make(Row, len(record.Keys))
		for i, key := range record.Keys {
			row[key] = normalizeValue(record.Values[i])
		}
		rows = append(rows, row)
	}
	return rows
}

// normalizeValue translates backend-native composite values into plain
// scalars, lists, and maps so both protocol implementations present results
// in one common shape.
func normalizeValue(value any) any {
	switch v := value.(type) {
	case dbtype.Node:
		return map[string]any{
			"id":         v.ElementId,
			"labels":     v.Labels,
			"properties": normalizeMap(v.Props),
		}
	case dbtype.Relationship:
		return map[string]any{
			"id":         v.ElementId,
			"type":       v.Type,
			"start":      v.StartElementId,
			"end":        v.EndElementId,
			"properties": normalizeMap(v.Props),
		}
	case dbtype.Path:
		nodes := make([]any, 0, len(v.Nodes))
		for _, n := range v.Nodes {
			nodes = append(nodes, normalizeValue(n))
		}
		rels := make([]any, 0, len(v.Relationships))
		for _, r := range v.Relationships {
			rels = append(rels, normalizeValue(r))
		}
		return map[string]any{
			"nodes":         nodes,
			"relationships": rels,
		}
	case dbtype.Date:
		return v.Time().Format("2006-01-02")
	case dbtype.LocalDateTime:
		return v.Time().Format(time.RFC3339)
	case time.Time:
		return v.Format(time.RFC3339)
	case []any:
		list := make([]any, len(v))
		for i, item := range v {
			list[i] = normalizeValue(item)
		}
		return list
	case map[string]any:
		return normalizeMap(v)
	default:
		return v
	}
}

func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

// normalizeJSONValue normalizes values decoded from the HTTP transactional
// endpoint's JSON payload. JSON numbers arrive as float64; integral values
// are folded back to int64 so both implementations agree on integer shape.
func normalizeJSONValue(value any) any {
	switch v := value.(type) {
	case float64:
		if v == float64(int64(v)) {
			return int64(v)
		}
		return v
	case []any:
		list := make([]any, len(v))
		for i, item := range v {
			list[i] = normalizeJSONValue(item)
		}
		return list
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = normalizeJSONValue(item)
		}
		return out
	default:
		return v
	}
}
