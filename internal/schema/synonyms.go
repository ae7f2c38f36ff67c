package schema

import (
	"sort"
	"strings"
)

// synonymTable maps conversational vocabulary to schema terminology. Query
// expansion prefixes the expansion terms onto the original query, which
// compensates for the vocabulary mismatch between how users talk and how the
// schema names things.
var synonymTable = map[string]string{
	"pod":        "Pod container workload",
	"container":  "Pod container image",
	"depend":     "DEPENDS_ON dependency relationship",
	"dependency": "DEPENDS_ON dependency relationship",
	"database":   "Database datastore RDS postgres mysql",
	"db":         "Database datastore",
	"service":    "Service microservice application",
	"deploy":     "Deployment ReplicaSet rollout",
	"host":       "Host Node instance infrastructure",
	"node":       "Host Node instance",
	"tenant":     "Tenant organization account",
	"namespace":  "Namespace tenant isolation",
	"storage":    "Volume PersistentVolume disk",
	"volume":     "Volume PersistentVolume disk",
	"network":    "Ingress LoadBalancer endpoint",
	"secret":     "ConfigMap environment configuration",
	"queue":      "Queue topic broker messaging",
	"cache":      "Cache Redis memcached",
}

// maxQueryVariants bounds expansion: the original query plus at most four
// expanded variants.
const maxQueryVariants = 5

// ExpandQuery generates query variants for retrieval. The original query is
// always first; each matched domain keyword contributes one variant with the
// expansion terms prefixed. Keywords are matched as substrings of the
// lowercased query, so "dependencies" matches "depend".
func ExpandQuery(query string) []string {
	variants := []string{query}
	seen := map[string]bool{}

	keywords := make([]string, 0, len(synonymTable))
	for keyword := range synonymTable {
		keywords = append(keywords, keyword)
	}
	sort.Strings(keywords)

	lowered := strings.ToLower(query)
	for _, keyword := range keywords {
		if len(variants) >= maxQueryVariants {
			break
		}
		if !strings.Contains(lowered, keyword) {
			continue
		}
		variant := synonymTable[keyword] + " " + query
		if seen[variant] {
			continue
		}
		seen[variant] = true
		variants = append(variants, variant)
	}
	return variants
}
