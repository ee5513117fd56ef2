package dialect

import (
	"regexp"
	"strings"
)

var orderByPattern = regexp.MustCompile(`(?i)\border\s+by\b`)

// trailingOrderBy returns the offset of the last ORDER BY in sql when it
// belongs to the outermost query, i.e. no unmatched ')' follows it.
func trailingOrderBy(sql string) (int, bool) {
	matches := orderByPattern.FindAllStringIndex(sql, -1)
	if len(matches) == 0 {
		return 0, false
	}
	start := matches[len(matches)-1][0]

	depth := 0
	for _, r := range sql[start:] {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return 0, false
			}
		}
	}
	return start, true
}

func stripOrderBy(sql string) string {
	if i, ok := trailingOrderBy(sql); ok {
		return strings.TrimRight(sql[:i], " \t\r\n")
	}
	return sql
}
