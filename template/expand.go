package template

import (
	"errors"
	"fmt"
	"strings"
)

const (
	ifMarker   = "$if"
	sortMarker = "$sort"

	// Wrappers keep the surrounding boolean expression valid whether or not
	// the predicate applies; the database short-circuits on "0 = 0".
	ifPresent = "(0 = 1 or (%s))"
	ifAbsent  = "(0 = 0 or (%s))"

	defaultSortLabel = "default"
)

// sortCase is one "(label expr)" group of a $sort block.
type sortCase struct {
	label string
	expr  string
}

// Expand resolves the $if and $sort blocks of sql against src.
//
// The scan is flat: blocks are recognized at top level only and a block body
// ends at the first '}'. A $if inside a $sort body, or inside another $if,
// is not supported. Text that looks like a block but is not well formed is
// copied through unchanged.
func Expand(sql string, src Source) (string, error) {
	if !strings.Contains(sql, "$") {
		return sql, nil
	}
	if src == nil {
		src = Map{}
	}

	var b strings.Builder
	b.Grow(len(sql) + 32)

	for i := 0; i < len(sql); {
		p := strings.IndexByte(sql[i:], '$')
		if p < 0 {
			b.WriteString(sql[i:])
			break
		}
		b.WriteString(sql[i : i+p])
		i += p

		switch {
		case strings.HasPrefix(sql[i:], ifMarker):
			name, body, end, ok := readIf(sql, i+len(ifMarker))
			if !ok {
				break
			}
			out, err := expandIf(name, body, src)
			if err != nil {
				return "", err
			}
			b.WriteString(out)
			i = end
			continue

		case strings.HasPrefix(sql[i:], sortMarker):
			name, cases, end, ok := readSort(sql, i+len(sortMarker))
			if !ok {
				break
			}
			out, err := expandSort(name, cases, src)
			if err != nil {
				return "", err
			}
			b.WriteString(out)
			i = end
			continue
		}

		b.WriteByte('$')
		i++
	}
	return b.String(), nil
}

func expandIf(name, body string, src Source) (string, error) {
	v, err := src.Get(name)
	if err != nil {
		return "", err
	}
	if isEmpty(v) {
		return fmt.Sprintf(ifAbsent, body), nil
	}
	return fmt.Sprintf(ifPresent, body), nil
}

func expandSort(name string, cases []sortCase, src Source) (string, error) {
	v, err := src.Get(name)
	switch {
	case errors.Is(err, ErrPropertyAccess):
		// Record sources treat an unknown sort key as "no case matched".
		v = nil
	case err != nil:
		return "", err
	}

	if v != nil {
		key := fmt.Sprint(v)
		for _, c := range cases {
			if c.label == key {
				return "ORDER BY " + c.expr, nil
			}
		}
	}
	for _, c := range cases {
		if c.label == defaultSortLabel {
			return "ORDER BY " + c.expr, nil
		}
	}
	return "", nil
}

// readName parses "( name )" starting at i and returns the name and the
// index after ')'.
func readName(s string, i int) (string, int, bool) {
	i = skipSpace(s, i)
	if i >= len(s) || s[i] != '(' {
		return "", 0, false
	}
	i = skipSpace(s, i+1)
	start := i
	if i >= len(s) || !isIdentStart(s[i]) {
		return "", 0, false
	}
	for i < len(s) && isIdentPart(s[i]) {
		i++
	}
	name := s[start:i]
	i = skipSpace(s, i)
	if i >= len(s) || s[i] != ')' {
		return "", 0, false
	}
	return name, i + 1, true
}

// readBlock parses "{ ... }" starting at i, returning the body and the index
// after '}'. The body ends at the first '}'.
func readBlock(s string, i int) (string, int, bool) {
	i = skipSpace(s, i)
	if i >= len(s) || s[i] != '{' {
		return "", 0, false
	}
	end := strings.IndexByte(s[i+1:], '}')
	if end < 0 {
		return "", 0, false
	}
	return s[i+1 : i+1+end], i + 1 + end + 1, true
}

func readIf(s string, i int) (name, body string, end int, ok bool) {
	name, i, ok = readName(s, i)
	if !ok {
		return "", "", 0, false
	}
	body, end, ok = readBlock(s, i)
	return name, body, end, ok
}

func readSort(s string, i int) (name string, cases []sortCase, end int, ok bool) {
	name, i, ok = readName(s, i)
	if !ok {
		return "", nil, 0, false
	}
	body, end, ok := readBlock(s, i)
	if !ok {
		return "", nil, 0, false
	}
	cases, ok = parseSortCases(body)
	return name, cases, end, ok
}

// parseSortCases splits "(a x ASC)(b y DESC)" into cases. Parentheses inside
// an expression are balanced.
func parseSortCases(body string) ([]sortCase, bool) {
	var cases []sortCase
	for i := skipSpace(body, 0); i < len(body); i = skipSpace(body, i) {
		if body[i] != '(' {
			return nil, false
		}
		depth := 0
		j := i
		for ; j < len(body); j++ {
			if body[j] == '(' {
				depth++
			} else if body[j] == ')' {
				depth--
				if depth == 0 {
					break
				}
			}
		}
		if j >= len(body) {
			return nil, false
		}
		inner := strings.TrimSpace(body[i+1 : j])
		sep := strings.IndexAny(inner, " \t\r\n")
		if sep < 0 {
			return nil, false
		}
		cases = append(cases, sortCase{
			label: inner[:sep],
			expr:  strings.TrimSpace(inner[sep:]),
		})
		i = j + 1
	}
	return cases, len(cases) > 0
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\r' || s[i] == '\n') {
		i++
	}
	return i
}

// isIdentStart reports whether b is [A-Za-z_].
func isIdentStart(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || b == '_'
}

// isIdentPart reports whether b is [A-Za-z0-9_].
func isIdentPart(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}
