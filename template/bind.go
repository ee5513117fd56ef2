package template

import (
	"fmt"
	"strings"
)

// Args resolves the parameter plan against src, in placeholder order.
func (c *Compiled) Args(src Source) ([]any, error) {
	if src == nil {
		src = Map{}
	}
	args := make([]any, len(c.Params))

	// Repeated names are common ("a = :x or b = :x", "in (:ids[])").
	seen := make(map[string]any, len(c.Params))

	for i, p := range c.Params {
		v, ok := seen[p.Name]
		if !ok {
			var err error
			if v, err = src.Get(p.Name); err != nil {
				return nil, err
			}
			seen[p.Name] = v
		}

		if p.Indexed {
			n, at, ok := collection(v)
			if !ok {
				return nil, fmt.Errorf("%w: %s (%T)", ErrInvalidArrayType, p.Name, v)
			}
			if p.Index >= n {
				return nil, fmt.Errorf("%w: %s[%d] of %d", ErrArrayIndexOutOfRange, p.Name, p.Index, n)
			}
			v = at(p.Index)
		}

		if p.Like != LikeNone {
			v = c.likeValue(v, p.Like)
		}
		args[i] = v
	}
	return args, nil
}

func (c *Compiled) likeValue(v any, affix LikeAffix) any {
	if v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	if c.escape != 0 {
		s = EscapeLike(s, c.escape, c.targets)
	}
	switch affix {
	case LikePrefix:
		return "%" + s
	case LikeSuffix:
		return s + "%"
	case LikeBoth:
		return "%" + s + "%"
	}
	return s
}

// EscapeLike prefixes every occurrence of esc and of the runes in targets
// with esc.
func EscapeLike(s string, esc rune, targets string) string {
	if !strings.ContainsRune(s, esc) && !strings.ContainsAny(s, targets) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for _, r := range s {
		if r == esc || strings.ContainsRune(targets, r) {
			b.WriteRune(esc)
		}
		b.WriteRune(r)
	}
	return b.String()
}
