package idgen

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/Konsultn-Engineering/sqlkit/dialect"
)

var (
	ErrUnknownGenerator = errors.New("idgen: unknown generator")
	ErrClockBackwards   = errors.New("idgen: clock moved backwards")
	ErrSequenceName     = errors.New("idgen: invalid sequence name")
)

// Generator produces identifiers. Generators are safe for concurrent use.
type Generator interface {
	Generate(ctx context.Context) (any, error)
	Type() string
}

// UUID generates UUID v4 values
type UUID struct{}

func (UUID) Generate(context.Context) (any, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("idgen: failed to generate UUID: %w", err)
	}
	return id, nil
}

func (UUID) Type() string { return "uuid" }

// ULID generates monotonic ULID values
type ULID struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

func NewULID() *ULID {
	return &ULID{entropy: ulid.Monotonic(rand.Reader, 0), now: time.Now}
}

func (g *ULID) Generate(context.Context) (any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(g.now()), g.entropy)
	if err != nil {
		return nil, fmt.Errorf("idgen: failed to generate ULID: %w", err)
	}
	return id, nil
}

func (g *ULID) Type() string { return "ulid" }

// SnowflakeEpoch is 2023-01-01 00:00:00 UTC.
var SnowflakeEpoch = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

// Snowflake generates Twitter Snowflake-like IDs:
// 41 bits timestamp | 10 bits machine | 12 bits sequence.
type Snowflake struct {
	mu        sync.Mutex
	machineID uint64
	sequence  uint64
	lastTime  uint64
	epoch     uint64
	now       func() time.Time
}

func NewSnowflake(machineID uint64) *Snowflake {
	return &Snowflake{
		machineID: machineID & 0x3FF,
		epoch:     uint64(SnowflakeEpoch.UnixMilli()),
		now:       time.Now,
	}
}

func (g *Snowflake) Generate(context.Context) (any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := uint64(g.now().UnixMilli())
	if now < g.lastTime {
		return nil, fmt.Errorf("%w: %dms", ErrClockBackwards, g.lastTime-now)
	}

	if now == g.lastTime {
		g.sequence = (g.sequence + 1) & 0xFFF
		if g.sequence == 0 {
			// sequence exhausted, wait for the next millisecond
			for now <= g.lastTime {
				now = uint64(g.now().UnixMilli())
			}
		}
	} else {
		g.sequence = 0
	}
	g.lastTime = now

	return int64(((now - g.epoch) << 22) | (g.machineID << 12) | g.sequence), nil
}

func (g *Snowflake) Type() string { return "snowflake" }

// NanoID generates random strings over an alphabet
type NanoID struct {
	size     int
	alphabet string
}

func NewNanoID(size int, alphabet string) *NanoID {
	if size <= 0 {
		size = 21
	}
	if alphabet == "" {
		alphabet = "_-0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	}
	return &NanoID{size: size, alphabet: alphabet}
}

func (g *NanoID) Generate(context.Context) (any, error) {
	buf := make([]byte, g.size)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("idgen: failed to generate random bytes: %w", err)
	}
	for i := range buf {
		buf[i] = g.alphabet[int(buf[i])%len(g.alphabet)]
	}
	return string(buf), nil
}

func (g *NanoID) Type() string { return "nanoid" }

// Scalar runs a statement returning a single integer. engine.Session and
// engine.Tx implement it.
type Scalar interface {
	ScalarInt64(ctx context.Context, sql string, params any) (int64, error)
}

// Sequence draws values from a database sequence using the dialect's
// sequence SQL.
type Sequence struct {
	sql string
	q   Scalar
}

func NewSequence(d dialect.Dialect, q Scalar, name string) (*Sequence, error) {
	if !validSequenceName(name) {
		return nil, fmt.Errorf("%w: %q", ErrSequenceName, name)
	}
	sql, err := d.BuildSequenceGeneratorSQL(name)
	if err != nil {
		return nil, err
	}
	return &Sequence{sql: sql, q: q}, nil
}

func (g *Sequence) SQL() string { return g.sql }

func (g *Sequence) Generate(ctx context.Context) (any, error) {
	return g.q.ScalarInt64(ctx, g.sql, nil)
}

func (g *Sequence) Type() string { return "sequence" }

func validSequenceName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '_', c == '.', c == '$':
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// Registry manages generators by name.
type Registry struct {
	mu         sync.RWMutex
	generators map[string]Generator
}

// NewRegistry returns a registry holding uuid, ulid, snowflake (machine 1)
// and nanoid.
func NewRegistry() *Registry {
	r := &Registry{generators: make(map[string]Generator)}
	r.Register("uuid", UUID{})
	r.Register("ulid", NewULID())
	r.Register("snowflake", NewSnowflake(1))
	r.Register("nanoid", NewNanoID(21, ""))
	return r
}

func (r *Registry) Register(name string, g Generator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generators[name] = g
}

func (r *Registry) Get(name string) (Generator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.generators[name]
	return g, ok
}

func (r *Registry) Generate(ctx context.Context, name string) (any, error) {
	g, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGenerator, name)
	}
	return g.Generate(ctx)
}
