package guard

import (
	"strings"

	"github.com/duplocloud/dcaf-sub001/internal/types"
)

// structuralRewrite injects the tenant membership predicate by locating the
// query's first match clause through the clause scanner and attaching the
// predicate to that clause's WHERE, creating one when absent. This is the
// authoritative strategy: the scanner understands nesting, so subqueries and
// quoted strings cannot misplace the injection point.
//
// A single predicate can only cover one variable horizon. Union arms, CALL
// bodies, and match clauses after a WITH all introduce rows the first clause's
// predicate does not constrain, so queries containing them are unscopable.
// Later match clauses before any WITH must bind the primary variable, which
// joins their rows to the already scoped ones.
func structuralRewrite(query string) (string, string, error) {
	clauses := scanClauses(query)

	matchIdx := -1
	for i, c := range clauses {
		if c.Keyword == "MATCH" || c.Keyword == "OPTIONAL MATCH" {
			matchIdx = i
			break
		}
	}
	if matchIdx == -1 {
		return "", "", types.NewError(types.GUARD_UNSCOPABLE_QUERY,
			"query has no match clause to anchor tenant scoping on")
	}

	match := clauses[matchIdx]
	if !bindsPrimaryVariable(query[match.BodyStart:match.End]) {
		return "", "", types.NewError(types.GUARD_UNSCOPABLE_QUERY,
			"first match clause does not bind the primary variable '"+PrimaryVariable+"'")
	}

	sawWith := false
	for _, c := range clauses {
		switch c.Keyword {
		case "UNION":
			return "", "", types.NewError(types.GUARD_UNSCOPABLE_QUERY,
				"union arms cannot share one tenant predicate")
		case "CALL":
			return "", "", types.NewError(types.GUARD_UNSCOPABLE_QUERY,
				"subquery and procedure call bodies are opaque to tenant scoping")
		case "WITH":
			sawWith = true
		case "MATCH", "OPTIONAL MATCH":
			if c.KeywordStart == match.KeywordStart {
				continue
			}
			if sawWith {
				return "", "", types.NewError(types.GUARD_UNSCOPABLE_QUERY,
					"match clause after WITH starts a variable scope the tenant predicate does not cover")
			}
			if !bindsPrimaryVariable(query[c.BodyStart:c.End]) {
				return "", "", types.NewError(types.GUARD_UNSCOPABLE_QUERY,
					"later match clause does not bind the primary variable '"+PrimaryVariable+"'")
			}
		}
	}

	predicate := membershipPredicate()

	// extend an existing WHERE, wrapping the original condition so the
	// predicate conjunction survives any OR inside it
	if matchIdx+1 < len(clauses) && clauses[matchIdx+1].Keyword == "WHERE" {
		where := clauses[matchIdx+1]
		condition := strings.TrimSpace(query[where.BodyStart:where.End])
		rewritten := query[:where.BodyStart] + " " + predicate + " AND (" + condition + ")"
		if rest := query[where.End:]; strings.TrimSpace(rest) != "" {
			rewritten += " " + strings.TrimLeft(rest, " \t\n")
		}
		return rewritten, "tenant scope AND-ed into existing WHERE clause (structural)", nil
	}

	rewritten := strings.TrimRight(query[:match.End], " \t\n") + " WHERE " + predicate
	if rest := query[match.End:]; strings.TrimSpace(rest) != "" {
		rewritten += " " + strings.TrimLeft(rest, " \t\n")
	}
	return rewritten, "tenant scope added as new WHERE clause (structural)", nil
}
