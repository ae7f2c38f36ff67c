// Package schema implements dynamic schema selection for prompt injection:
// a vector index over graph schema elements, a relevance selector with query
// expansion, and a conversation-scoped accumulation cache.
package schema

import (
	"fmt"
	"strings"
)

// ElementKind classifies a schema element.
type ElementKind string

const (
	KindNode         ElementKind = "node"
	KindRelationship ElementKind = "relationship"
	KindPattern      ElementKind = "pattern"
)

// Element is one retrievable unit of graph-schema knowledge. Elements are
// immutable after creation; a later retrieval that returns a higher-similarity
// version of the same identifier supersedes the earlier one wholesale.
type Element struct {
	ID               string            `json:"id" yaml:"id" mapstructure:"id"`
	Kind             ElementKind       `json:"kind" yaml:"kind" mapstructure:"kind"`
	Label            string            `json:"label,omitempty" yaml:"label" mapstructure:"label"`
	RelationshipType string            `json:"relationship_type,omitempty" yaml:"relationship_type" mapstructure:"relationship_type"`
	StartLabel       string            `json:"start_label,omitempty" yaml:"start_label" mapstructure:"start_label"`
	EndLabel         string            `json:"end_label,omitempty" yaml:"end_label" mapstructure:"end_label"`
	Properties       map[string]string `json:"properties,omitempty" yaml:"properties" mapstructure:"properties"`
	Description      string            `json:"description,omitempty" yaml:"description" mapstructure:"description"`
	Similarity       float64           `json:"similarity" yaml:"similarity" mapstructure:"similarity"`
}

// Key returns the stable identifier used for cache de-duplication. An
// explicit id wins; otherwise a composite of kind and label, or kind,
// relationship type and endpoints.
func (e Element) Key() string {
	if e.ID != "" {
		return e.ID
	}
	switch e.Kind {
	case KindRelationship:
		return fmt.Sprintf("%s:%s:%s:%s", e.Kind, e.RelationshipType, e.StartLabel, e.EndLabel)
	default:
		return fmt.Sprintf("%s:%s", e.Kind, e.Label)
	}
}

// DisplayName returns the human-facing name for prompt formatting.
func (e Element) DisplayName() string {
	if e.Kind == KindRelationship && e.RelationshipType != "" {
		if e.StartLabel != "" || e.EndLabel != "" {
			return fmt.Sprintf("(%s)-[:%s]->(%s)", e.StartLabel, e.RelationshipType, e.EndLabel)
		}
		return e.RelationshipType
	}
	if e.Label != "" {
		return e.Label
	}
	return e.ID
}

// MentionsLabel reports whether the element references the given node label
// as its own label or as a relationship endpoint.
func (e Element) MentionsLabel(label string) bool {
	return strings.EqualFold(e.Label, label) ||
		strings.EqualFold(e.StartLabel, label) ||
		strings.EqualFold(e.EndLabel, label)
}
