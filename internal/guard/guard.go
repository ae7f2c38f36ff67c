// Package guard validates and rewrites caller-supplied read-only graph
// queries so that non-administrator access is provably confined to the
// requesting tenant. Two rewrite strategies share one predicate builder: an
// authoritative structural rewrite over a nesting-aware clause scan, and a
// regex-based textual fallback that rejects anything it cannot place safely.
package guard

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/duplocloud/dcaf-sub001/internal/config"
	"github.com/duplocloud/dcaf-sub001/internal/platform"
	"github.com/duplocloud/dcaf-sub001/internal/types"
)

// RewrittenQuery is the result of enforcement: the possibly modified query
// text, the effective parameters (with the tenant id bound), and hints
// describing what was injected, for audit logging.
type RewrittenQuery struct {
	Query  string
	Params map[string]any
	Hints  []string
}

// forbiddenLabel pairs a configured label with its compiled whole-word,
// case-insensitive matcher.
type forbiddenLabel struct {
	label   string
	pattern *regexp.Regexp
}

// Guard enforces tenant scoping on queries before they reach the graph
// backend. Safe for concurrent use; all state is set at construction.
type Guard struct {
	forbiddenLabels []forbiddenLabel
	structural      bool
	logger          *slog.Logger
}

// NewGuard creates a Guard from configuration. Label patterns are compiled
// once here, not per enforcement call.
func NewGuard(cfg config.GuardConfig, logger *slog.Logger) *Guard {
	labels := make([]forbiddenLabel, 0, len(cfg.ForbiddenLabels))
	for _, label := range cfg.ForbiddenLabels {
		if label == "" {
			continue
		}
		labels = append(labels, forbiddenLabel{
			label:   label,
			pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(label) + `\b`),
		})
	}
	return &Guard{
		forbiddenLabels: labels,
		structural:      !cfg.DisableStructuralRewrite,
		logger:          logger,
	}
}

// Enforce validates the query against the caller's platform context and
// returns a tenant-scoped rewrite. Administrators pass through unchanged.
// All failures are terminal for the current tool invocation: the guard never
// proceeds with an unscoped query.
func (g *Guard) Enforce(query string, params map[string]any, pctx platform.Context) (*RewrittenQuery, error) {
	if pctx.IsAdministrator() {
		return &RewrittenQuery{
			Query:  query,
			Params: params,
			Hints:  []string{"administrator pass-through, no tenant scoping applied"},
		}, nil
	}

	tenantID := resolveTenantID(params, pctx)
	if tenantID == "" {
		g.logger.Warn("query rejected, no tenant id resolvable",
			"guard", "missing_tenant",
			"role", pctx.ResolveRole())
		return nil, types.NewError(types.GUARD_MISSING_TENANT,
			"no tenant id resolvable from parameters or platform context")
	}

	if label := g.referencedForbiddenLabel(query); label != "" {
		g.logger.Warn("query rejected, forbidden label referenced",
			"guard", "access_denied",
			"role", pctx.ResolveRole(),
			"tenant_id", tenantID,
			"label", label)
		return nil, types.NewError(types.GUARD_ACCESS_DENIED,
			fmt.Sprintf("query references forbidden label %q", label))
	}

	var hints []string

	normalized, changed := normalizeExistsPatterns(query)
	if changed {
		hints = append(hints, "normalized deprecated exists() pattern to subquery form")
	}

	rewritten, hint, err := g.rewrite(normalized)
	if err != nil {
		g.logger.Warn("query rejected, tenant predicate not injectable",
			"guard", "unscopable_query",
			"role", pctx.ResolveRole(),
			"tenant_id", tenantID,
			"error", err)
		return nil, err
	}
	hints = append(hints, hint)

	scoped := make(map[string]any, len(params)+1)
	for k, v := range params {
		scoped[k] = v
	}
	scoped[TenantParamName] = tenantID

	g.logger.Debug("query rewritten for tenant scoping",
		"role", pctx.ResolveRole(),
		"tenant_id", tenantID,
		"hints", hints)

	return &RewrittenQuery{Query: rewritten, Params: scoped, Hints: hints}, nil
}

// rewrite selects the configured strategy. The structural path is
// authoritative; textual is the fallback when structural rewriting is
// disabled.
func (g *Guard) rewrite(query string) (string, string, error) {
	if g.structural {
		return structuralRewrite(query)
	}
	return textualRewrite(query)
}

// resolveTenantID prefers an explicit query parameter over the context.
func resolveTenantID(params map[string]any, pctx platform.Context) string {
	if v, ok := params[TenantParamName].(string); ok && v != "" {
		return v
	}
	return pctx.TenantID
}

// referencedForbiddenLabel returns the first configured forbidden label the
// query mentions, or "" when none match. Matching is on whole words,
// case-insensitive, so a label list entry cannot fire on substrings of
// unrelated identifiers.
func (g *Guard) referencedForbiddenLabel(query string) string {
	for _, fl := range g.forbiddenLabels {
		if fl.pattern.MatchString(query) {
			return fl.label
		}
	}
	return ""
}

var deprecatedExistsPattern = regexp.MustCompile(`(?i)\bexists\s*\(`)

// propertyReference matches the argument of the deprecated property-existence
// form, e.g. "n.deleted_at".
var propertyReference = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)+$`)

// normalizeExistsPatterns converts deprecated inline existence checks to
// their modern forms: exists((n)-[:R]->(m)) becomes EXISTS { MATCH ... } and
// exists(n.prop) becomes n.prop IS NOT NULL. Keeping the predicate style
// uniform lets both rewrite strategies treat existence checks identically.
func normalizeExistsPatterns(query string) (string, bool) {
	changed := false
	offset := 0

	for {
		loc := deprecatedExistsPattern.FindStringIndex(query[offset:])
		if loc == nil {
			break
		}
		start := offset + loc[0]
		open := offset + loc[1] - 1

		close := matchingParen(query, open)
		if close == -1 {
			break
		}
		inner := strings.TrimSpace(query[open+1 : close])

		var replacement string
		switch {
		case strings.HasPrefix(inner, "("):
			replacement = "EXISTS { MATCH " + inner + " }"
		case propertyReference.MatchString(inner):
			replacement = inner + " IS NOT NULL"
		}
		if replacement == "" {
			// unrecognized argument form, leave it and keep scanning
			offset = open + 1
			continue
		}

		query = query[:start] + replacement + query[close+1:]
		changed = true
		offset = start + len(replacement)
	}

	return query, changed
}

// matchingParen returns the index of the parenthesis closing the one at open,
// or -1 when unbalanced. Quoted strings are skipped.
func matchingParen(s string, open int) int {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
