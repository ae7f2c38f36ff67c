package guard

import (
	"strings"
	"unicode"
)

// clause is one top-level clause of a query as located by the scanner.
type clause struct {
	// Keyword is the upper-cased clause keyword, e.g. "MATCH", "WHERE".
	Keyword string

	// KeywordStart and BodyStart are byte offsets: where the keyword begins
	// and where the clause body after the keyword begins.
	KeywordStart int
	BodyStart    int

	// End is one past the clause's last byte (the next clause's KeywordStart,
	// or the end of the query).
	End int
}

// clauseKeywords are the keywords that open a top-level clause. Two-word
// keywords are listed before their one-word prefixes so the scanner matches
// longest-first.
var clauseKeywords = []string{
	"OPTIONAL MATCH",
	"ORDER BY",
	"MATCH",
	"WHERE",
	"WITH",
	"RETURN",
	"UNWIND",
	"CALL",
	"UNION",
	"SKIP",
	"LIMIT",
}

// scanClauses splits a query into its top-level clauses. The scanner tracks
// parenthesis, bracket and brace depth plus string literals, so keywords
// inside subquery bodies, patterns, or quoted strings do not open clauses.
// This is structural tokenization, not parsing: clause bodies stay opaque.
func scanClauses(query string) []clause {
	var clauses []clause

	depth := 0
	var quote byte

	for i := 0; i < len(query); {
		c := query[i]

		if quote != 0 {
			if c == '\\' && quote != '`' {
				i += 2
				continue
			}
			if c == quote {
				quote = 0
			}
			i++
			continue
		}

		switch c {
		case '\'', '"', '`':
			quote = c
			i++
			continue
		case '(', '[', '{':
			depth++
			i++
			continue
		case ')', ']', '}':
			depth--
			i++
			continue
		}

		if depth == 0 && isWordStart(query, i) {
			if kw, bodyStart := matchKeyword(query, i); kw != "" {
				if n := len(clauses); n > 0 {
					clauses[n-1].End = i
				}
				clauses = append(clauses, clause{
					Keyword:      kw,
					KeywordStart: i,
					BodyStart:    bodyStart,
					End:          len(query),
				})
				i = bodyStart
				continue
			}
		}
		i++
	}

	return clauses
}

// isWordStart reports whether position i begins a word. A preceding dot or
// dollar sign means the word is a property access or parameter reference, not
// a clause keyword.
func isWordStart(s string, i int) bool {
	if !isWordByte(s[i]) {
		return false
	}
	if i == 0 {
		return true
	}
	prev := s[i-1]
	return !isWordByte(prev) && prev != '.' && prev != '$'
}

func isWordByte(c byte) bool {
	return c == '_' || unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c))
}

// matchKeyword tries to match a clause keyword at position i, returning the
// canonical keyword and the offset just past it, or "" when nothing matches.
// Matching is case-insensitive; multi-word keywords tolerate any run of
// whitespace between the words.
func matchKeyword(query string, i int) (string, int) {
	for _, kw := range clauseKeywords {
		if end, ok := matchWords(query, i, strings.Fields(kw)); ok {
			return kw, end
		}
	}
	return "", 0
}

func matchWords(query string, i int, words []string) (int, bool) {
	pos := i
	for w, word := range words {
		if w > 0 {
			start := pos
			for pos < len(query) && unicode.IsSpace(rune(query[pos])) {
				pos++
			}
			if pos == start {
				return 0, false
			}
		}
		if pos+len(word) > len(query) || !strings.EqualFold(query[pos:pos+len(word)], word) {
			return 0, false
		}
		pos += len(word)
		if pos < len(query) && isWordByte(query[pos]) {
			return 0, false
		}
	}
	return pos, true
}
