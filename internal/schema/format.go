package schema

import (
	"fmt"
	"sort"
	"strings"
)

// maxPropertiesPerElement bounds the property list rendered per element so
// wide types don't blow up the prompt.
const maxPropertiesPerElement = 12

// FormatUnavailable is injected into the prompt when no schema selection is
// possible (index down, no prior cache).
const FormatUnavailable = "_Schema selection is currently unavailable. Answer from general knowledge of the platform graph and say so when schema details are needed._"

// FormatMarkdown renders elements as structured markdown grouped by kind for
// prompt injection. Elements within a group are ordered by similarity, then
// name, so output is stable for identical inputs.
func FormatMarkdown(elements []Element) string {
	if len(elements) == 0 {
		return FormatUnavailable
	}

	groups := map[ElementKind][]Element{}
	for _, elem := range elements {
		groups[elem.Kind] = append(groups[elem.Kind], elem)
	}

	var b strings.Builder
	b.WriteString("## Relevant graph schema\n")

	writeGroup(&b, "### Node types", groups[KindNode])
	writeGroup(&b, "### Relationship types", groups[KindRelationship])
	writeGroup(&b, "### Patterns", groups[KindPattern])

	return strings.TrimRight(b.String(), "\n")
}

func writeGroup(b *strings.Builder, heading string, elements []Element) {
	if len(elements) == 0 {
		return
	}
	sort.Slice(elements, func(i, j int) bool {
		if elements[i].Similarity != elements[j].Similarity {
			return elements[i].Similarity > elements[j].Similarity
		}
		return elements[i].DisplayName() < elements[j].DisplayName()
	})

	b.WriteString("\n" + heading + "\n")
	for _, elem := range elements {
		b.WriteString(fmt.Sprintf("- **%s**", elem.DisplayName()))
		if elem.Description != "" {
			b.WriteString(": " + elem.Description)
		}
		b.WriteString("\n")
		if len(elem.Properties) > 0 {
			b.WriteString("  - properties: " + formatProperties(elem.Properties) + "\n")
		}
	}
}

// formatProperties renders "name type" pairs sorted by name, truncated to
// maxPropertiesPerElement with a remainder marker.
func formatProperties(props map[string]string) string {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	truncated := false
	if len(names) > maxPropertiesPerElement {
		names = names[:maxPropertiesPerElement]
		truncated = true
	}

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		if t := props[name]; t != "" {
			pairs = append(pairs, fmt.Sprintf("`%s` (%s)", name, t))
		} else {
			pairs = append(pairs, fmt.Sprintf("`%s`", name))
		}
	}
	out := strings.Join(pairs, ", ")
	if truncated {
		out += fmt.Sprintf(", … %d more", len(props)-maxPropertiesPerElement)
	}
	return out
}
