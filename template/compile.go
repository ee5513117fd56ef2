package template

import (
	"fmt"
	"strconv"
	"strings"
)

// LikeAffix says where a LIKE parameter gets its '%' wildcards.
type LikeAffix uint8

const (
	LikeNone LikeAffix = iota
	LikePrefix
	LikeSuffix
	LikeBoth
)

func (a LikeAffix) String() string {
	switch a {
	case LikePrefix:
		return "prefix"
	case LikeSuffix:
		return "suffix"
	case LikeBoth:
		return "both"
	default:
		return "none"
	}
}

// DefaultLikeEscapeTargets are the characters escaped in LIKE values when an
// escape character is configured. Full-width wildcards are included because
// some engines treat them as wildcards too.
const DefaultLikeEscapeTargets = "%_％＿"

// Param describes the value bound to one placeholder.
type Param struct {
	Name    string
	Index   int
	Indexed bool
	Like    LikeAffix
}

func (p Param) String() string {
	s := p.Name
	if p.Indexed {
		s += "[" + strconv.Itoa(p.Index) + "]"
	}
	switch p.Like {
	case LikePrefix:
		s = "%" + s
	case LikeSuffix:
		s += "%"
	case LikeBoth:
		s = "%" + s + "%"
	}
	return s
}

// Compiled is placeholder SQL plus its parameter plan. len(Params) always
// equals the number of placeholders emitted.
type Compiled struct {
	SQL    string
	Params []Param

	// Static is true when the output does not depend on parameter values.
	Static bool

	escape  rune
	targets string
}

// Options configure a Compiler.
type Options struct {
	// LikeEscapeChar enables "escape '<c>'" clauses on LIKE parameters.
	// Zero disables escaping.
	LikeEscapeChar    rune
	LikeEscapeTargets string

	// Placeholder renders the n-th (1-based) placeholder. Nil means '?'.
	// Text already in the template is never renumbered.
	Placeholder func(n int) string
}

// Compiler turns template SQL into Compiled statements. It holds no mutable
// state and is safe for concurrent use.
type Compiler struct {
	opts Options
}

func NewCompiler(opts Options) *Compiler {
	if opts.LikeEscapeChar != 0 && opts.LikeEscapeTargets == "" {
		opts.LikeEscapeTargets = DefaultLikeEscapeTargets
	}
	return &Compiler{opts: opts}
}

func (c *Compiler) Options() Options {
	return c.opts
}

// Build runs Expand followed by Compile.
func (c *Compiler) Build(sql string, src Source) (*Compiled, error) {
	expanded, err := Expand(sql, src)
	if err != nil {
		return nil, err
	}
	out, err := c.Compile(expanded, src)
	if err != nil {
		return nil, err
	}
	if HasBlocks(sql) {
		out.Static = false
	}
	return out, nil
}

// HasBlocks reports whether sql may contain $if or $sort constructs.
func HasBlocks(sql string) bool {
	return strings.Contains(sql, ifMarker) || strings.Contains(sql, sortMarker)
}

const (
	stateDefault = iota
	stateLiteral
)

// Compile replaces named parameters in sql with placeholders. The source is
// consulted only for :name[] markers.
func (c *Compiler) Compile(sql string, src Source) (*Compiled, error) {
	if src == nil {
		src = Map{}
	}

	est := strings.Count(sql, ":") - 2*strings.Count(sql, "::")
	if est < 0 {
		est = 0
	}
	out := &Compiled{
		Params:  make([]Param, 0, est),
		Static:  true,
		escape:  c.opts.LikeEscapeChar,
		targets: c.opts.LikeEscapeTargets,
	}

	var likeClause string
	if c.opts.LikeEscapeChar != 0 {
		likeClause = " escape '" + string(c.opts.LikeEscapeChar) + "'"
	}

	var buf strings.Builder
	buf.Grow(len(sql) + est*len(likeClause))

	state := stateDefault
	for i := 0; i < len(sql); {
		ch := sql[i]

		if state == stateLiteral {
			buf.WriteByte(ch)
			i++
			if ch == '\'' {
				if i < len(sql) && sql[i] == '\'' {
					buf.WriteByte('\'')
					i++
				} else {
					state = stateDefault
				}
			}
			continue
		}

		if ch == '\'' {
			state = stateLiteral
			buf.WriteByte(ch)
			i++
			continue
		}

		if ch != ':' || (i > 0 && sql[i-1] == ':') || (i+1 < len(sql) && sql[i+1] == ':') {
			buf.WriteByte(ch)
			i++
			continue
		}

		tok, err := scanToken(sql, i)
		if err != nil {
			return nil, err
		}
		if tok == nil {
			buf.WriteByte(ch)
			i++
			continue
		}

		var suffix string
		if tok.like != LikeNone {
			suffix = likeClause
		}

		switch {
		case tok.expand:
			out.Static = false
			v, err := src.Get(tok.name)
			if err != nil {
				return nil, err
			}
			if v == nil {
				buf.WriteString(sql[i:tok.end])
				break
			}
			n, _, ok := collection(v)
			if !ok {
				return nil, fmt.Errorf("%w: %s (%T)", ErrInvalidArrayType, tok.name, v)
			}
			if n == 0 {
				buf.WriteString(sql[i:tok.end])
				break
			}
			for k := 0; k < n; k++ {
				if k > 0 {
					buf.WriteByte(',')
				}
				buf.WriteString(c.placeholder(len(out.Params)+1) + suffix)
				out.Params = append(out.Params, Param{Name: tok.name, Index: k, Indexed: true, Like: tok.like})
			}

		default:
			buf.WriteString(c.placeholder(len(out.Params)+1) + suffix)
			out.Params = append(out.Params, Param{Name: tok.name, Index: tok.index, Indexed: tok.indexed, Like: tok.like})
		}
		i = tok.end
	}

	out.SQL = buf.String()
	return out, nil
}

func (c *Compiler) placeholder(n int) string {
	if c.opts.Placeholder == nil {
		return "?"
	}
	return c.opts.Placeholder(n)
}

type token struct {
	name    string
	like    LikeAffix
	index   int
	indexed bool
	expand  bool
	end     int
}

// scanToken reads a parameter marker starting at the ':' at position i. It
// returns nil when the text after ':' is not an identifier.
func scanToken(sql string, i int) (*token, error) {
	j := i + 1
	prefix := false
	if j < len(sql) && sql[j] == '%' {
		prefix = true
		j++
	}
	if j >= len(sql) || !isIdentStart(sql[j]) {
		return nil, nil
	}
	k := j + 1
	for k < len(sql) && isIdentPart(sql[k]) {
		k++
	}
	tok := &token{name: sql[j:k]}

	suffix := false
	if k < len(sql) && sql[k] == '%' {
		suffix = true
		k++
	}
	switch {
	case prefix && suffix:
		tok.like = LikeBoth
	case prefix:
		tok.like = LikePrefix
	case suffix:
		tok.like = LikeSuffix
	}

	if k < len(sql) && sql[k] == '[' {
		end := strings.IndexByte(sql[k:], ']')
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated '[' after :%s in %q", ErrInvalidArraySyntax, tok.name, sql)
		}
		digits := sql[k+1 : k+end]
		switch {
		case digits == "":
			tok.expand = true
		case allDigits(digits):
			idx, err := strconv.Atoi(digits)
			if err != nil {
				return nil, fmt.Errorf("%w: :%s[%s] in %q", ErrInvalidArraySyntax, tok.name, digits, sql)
			}
			tok.index, tok.indexed = idx, true
		default:
			return nil, fmt.Errorf("%w: :%s[%s] in %q", ErrInvalidArraySyntax, tok.name, digits, sql)
		}
		k += end + 1
	}

	tok.end = k
	return tok, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
