package graph

import (
	"regexp"
	"strings"
)

// mutatingKeywordPattern matches write-clause keywords anywhere in a query,
// case-insensitive. This guard runs in both protocol implementations before
// any network call, independent of the security guard's own checks.
var mutatingKeywordPattern = regexp.MustCompile(`(?i)\b(CREATE|MERGE|DELETE|SET|REMOVE|DETACH)\b`)

// CheckReadOnly rejects any query text containing a mutating keyword.
// Returns nil for read-only queries.
func CheckReadOnly(query string) error {
	if match := mutatingKeywordPattern.FindString(query); match != "" {
		return NewReadOnlyViolationError(strings.ToUpper(match))
	}
	return nil
}
