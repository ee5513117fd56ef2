package cache

import (
	"sync"

	"github.com/Konsultn-Engineering/sqlkit/template"
	"github.com/Konsultn-Engineering/sqlkit/utils"
)

// CachedQuery is a compiled template whose output does not depend on
// parameter values.
type CachedQuery struct {
	Template string
	Variant  string
	Compiled *template.Compiled
}

// QueryCache holds compiled static templates keyed by fingerprint. The
// variant distinguishes rewrites of the same template (count, pagination).
type QueryCache interface {
	Get(tmpl, variant string) (*template.Compiled, bool)
	Set(tmpl, variant string, c *template.Compiled)
	Len() int
}

type memQueryCache struct {
	mu   sync.RWMutex
	data map[uint64]*CachedQuery
}

func NewQueryCache() QueryCache {
	return &memQueryCache{
		data: make(map[uint64]*CachedQuery, 1024),
	}
}

func fingerprint(tmpl, variant string) uint64 {
	return utils.Mix64(utils.FingerprintString(tmpl), utils.FingerprintString(variant))
}

func (c *memQueryCache) Get(tmpl, variant string) (*template.Compiled, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.data[fingerprint(tmpl, variant)]
	if !ok || q.Template != tmpl || q.Variant != variant {
		return nil, false
	}
	return q.Compiled, true
}

func (c *memQueryCache) Set(tmpl, variant string, compiled *template.Compiled) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[fingerprint(tmpl, variant)] = &CachedQuery{
		Template: tmpl,
		Variant:  variant,
		Compiled: compiled,
	}
}

func (c *memQueryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
