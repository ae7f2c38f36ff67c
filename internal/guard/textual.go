package guard

import (
	"regexp"
	"strings"

	"github.com/duplocloud/dcaf-sub001/internal/types"
)

// Regex machinery for the textual fallback strategy. Plain pattern matching
// with no nesting awareness, so any construct that could fool it into
// misplacing the predicate makes the query unscopable instead. Keywords must
// be preceded by whitespace or a closing bracket so property accesses like
// n.limit and parameters like $match never read as clauses.
var (
	firstMatchPattern   = regexp.MustCompile(`(?i)(?:^|[\s)\]}])((?:OPTIONAL\s+)?MATCH)\b`)
	clauseBoundary      = regexp.MustCompile(`(?i)(?:^|[\s)\]}])(WHERE|WITH|RETURN|UNWIND|ORDER\s+BY|SKIP|LIMIT|CALL|UNION|OPTIONAL\s+MATCH|MATCH)\b`)
	nestedClausePattern = regexp.MustCompile(`(?i)\b(CALL|EXISTS|COUNT|COLLECT)\s*\{|\bUNION\b`)
	withClausePattern   = regexp.MustCompile(`(?i)(?:^|[\s)\]}])WITH\b`)
	callClausePattern   = regexp.MustCompile(`(?i)(?:^|[\s)\]}])CALL\b`)
)

// textualRewrite injects the tenant membership predicate using clause-boundary
// regex matching. It handles the common linear MATCH...WHERE...RETURN shape;
// queries with subquery blocks or unions are rejected rather than rewritten on
// a guess, since the regexes cannot tell nested clauses from top-level ones.
func textualRewrite(query string) (string, string, error) {
	if nestedClausePattern.MatchString(query) {
		return "", "", types.NewError(types.GUARD_UNSCOPABLE_QUERY,
			"query contains nested clause blocks the textual rewrite cannot place a predicate around")
	}
	if callClausePattern.MatchString(query) {
		return "", "", types.NewError(types.GUARD_UNSCOPABLE_QUERY,
			"subquery and procedure call bodies are opaque to tenant scoping")
	}

	loc := firstMatchPattern.FindStringSubmatchIndex(query)
	if loc == nil {
		return "", "", types.NewError(types.GUARD_UNSCOPABLE_QUERY,
			"query has no match clause to anchor tenant scoping on")
	}
	matchEnd := loc[3]

	// the match pattern runs until the next clause keyword
	patternEnd := len(query)
	keyword := ""
	if next := clauseBoundary.FindStringSubmatchIndex(query[matchEnd:]); next != nil {
		patternEnd = matchEnd + next[2]
		keyword = strings.ToUpper(query[patternEnd : matchEnd+next[3]])
	}
	if !bindsPrimaryVariable(query[matchEnd:patternEnd]) {
		return "", "", types.NewError(types.GUARD_UNSCOPABLE_QUERY,
			"first match clause does not bind the primary variable '"+PrimaryVariable+"'")
	}
	if err := checkLaterMatchClauses(query); err != nil {
		return "", "", err
	}

	predicate := membershipPredicate()

	if keyword == "" {
		rewritten := strings.TrimRight(query, " \t\n") + " WHERE " + predicate
		return rewritten, "tenant scope added as new WHERE clause (textual)", nil
	}

	if keyword == "WHERE" {
		condStart := patternEnd + len("WHERE")
		condEnd := len(query)
		if after := clauseBoundary.FindStringSubmatchIndex(query[condStart:]); after != nil {
			condEnd = condStart + after[2]
		}
		condition := strings.TrimSpace(query[condStart:condEnd])

		rewritten := query[:condStart] + " " + predicate + " AND (" + condition + ")"
		if rest := query[condEnd:]; strings.TrimSpace(rest) != "" {
			rewritten += " " + strings.TrimLeft(rest, " \t\n")
		}
		return rewritten, "tenant scope AND-ed into existing WHERE clause (textual)", nil
	}

	rewritten := strings.TrimRight(query[:patternEnd], " \t\n") + " WHERE " + predicate +
		" " + strings.TrimLeft(query[patternEnd:], " \t\n")
	return rewritten, "tenant scope added as new WHERE clause (textual)", nil
}

// checkLaterMatchClauses applies the same horizon policy as the structural
// strategy: match clauses after a WITH are unscopable, and earlier ones must
// bind the primary variable so their rows join the scoped ones. Nested blocks
// were already rejected, so every match occurrence here is top-level.
func checkLaterMatchClauses(query string) error {
	matches := firstMatchPattern.FindAllStringSubmatchIndex(query, -1)
	if len(matches) < 2 {
		return nil
	}

	withStart := -1
	if w := withClausePattern.FindStringIndex(query); w != nil {
		withStart = w[0]
	}

	for _, m := range matches[1:] {
		if withStart >= 0 && withStart < m[2] {
			return types.NewError(types.GUARD_UNSCOPABLE_QUERY,
				"match clause after WITH starts a variable scope the tenant predicate does not cover")
		}
		patternStart := m[3]
		patternEnd := len(query)
		if next := clauseBoundary.FindStringSubmatchIndex(query[patternStart:]); next != nil {
			patternEnd = patternStart + next[2]
		}
		if !bindsPrimaryVariable(query[patternStart:patternEnd]) {
			return types.NewError(types.GUARD_UNSCOPABLE_QUERY,
				"later match clause does not bind the primary variable '"+PrimaryVariable+"'")
		}
	}
	return nil
}
