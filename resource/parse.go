package resource

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// parse reads the statements of one resource file. A statement starts with
// a "SQL_ID =" header, optionally followed by SQL on the same line, and runs
// until a line ending in ';' or a blank line. Lines starting with "--" are
// dropped.
func parse(name string, r io.Reader) (map[string]string, error) {
	out := make(map[string]string)

	var (
		id   string
		body []string
		line int
	)
	finish := func() error {
		if id == "" {
			return nil
		}
		sql := strings.TrimSpace(strings.Join(body, "\n"))
		if sql == "" {
			return fmt.Errorf("%w: %s:%d: %s has no SQL", ErrInvalidResource, name, line, id)
		}
		if _, dup := out[id]; dup {
			return fmt.Errorf("%w: %s in %s", ErrDuplicateSQLID, id, name)
		}
		out[id] = sql
		id, body = "", body[:0]
		return nil
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(text, "--") {
			continue
		}

		if id == "" {
			if text == "" {
				continue
			}
			hid, rest, ok := header(text)
			if !ok {
				return nil, fmt.Errorf("%w: %s:%d: expected \"SQL_ID =\"", ErrInvalidResource, name, line)
			}
			id, text = hid, rest
			if text == "" {
				continue
			}
		} else if text == "" {
			if err := finish(); err != nil {
				return nil, err
			}
			continue
		}

		if strings.HasSuffix(text, ";") {
			body = append(body, strings.TrimSuffix(text, ";"))
			if err := finish(); err != nil {
				return nil, err
			}
			continue
		}
		body = append(body, text)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if err := finish(); err != nil {
		return nil, err
	}
	return out, nil
}

// header splits "ID = rest". The id is an identifier that may contain dots.
func header(text string) (string, string, bool) {
	eq := strings.IndexByte(text, '=')
	if eq <= 0 {
		return "", "", false
	}
	id := strings.TrimSpace(text[:eq])
	if !validID(id) {
		return "", "", false
	}
	return id, strings.TrimSpace(text[eq+1:]), true
}

func validID(id string) bool {
	if id == "" {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && (c == '.' || c >= '0' && c <= '9'):
		default:
			return false
		}
	}
	return true
}
