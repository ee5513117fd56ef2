package connector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Konsultn-Engineering/sqlkit/dialect"
)

var ErrUnknownProvider = errors.New("connector: provider not registered")

type standardConnector struct {
	provider Provider
	config   Config
}

var globalManager = &Manager{
	providers: make(map[string]Provider),
}

// Manager is the registry of driver providers.
type Manager struct {
	providers map[string]Provider
	mu        sync.RWMutex
}

func Register(name string, provider Provider) {
	globalManager.mu.Lock()
	defer globalManager.mu.Unlock()
	globalManager.providers[name] = provider
}

func Lookup(name string) (Provider, error) {
	globalManager.mu.RLock()
	provider, ok := globalManager.providers[name]
	globalManager.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return provider, nil
}

// Providers lists the registered provider names in sorted order.
func Providers() []string {
	globalManager.mu.RLock()
	defer globalManager.mu.RUnlock()

	names := make([]string, 0, len(globalManager.providers))
	for name := range globalManager.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func New(name string, config Config) (Connector, error) {
	provider, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return &standardConnector{provider: provider, config: config}, nil
}

// Connect opens a connection through the named provider, retrying when the
// config carries a retry policy.
func Connect(ctx context.Context, name string, config Config) (Connection, error) {
	c, err := New(name, config)
	if err != nil {
		return nil, err
	}
	if config.Retry != nil {
		return c.ConnectWithRetry(ctx, *config.Retry)
	}
	return c.Connect(ctx)
}

// DialectOf returns the dialect served by the named provider.
func DialectOf(name string) (dialect.Dialect, error) {
	p, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return p.Dialect(), nil
}

func (c *standardConnector) Connect(ctx context.Context) (Connection, error) {
	if c.config.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.ConnectTimeout)
		defer cancel()
	}
	return c.provider.Connect(ctx, c.config)
}

func (c *standardConnector) ConnectWithRetry(ctx context.Context, opts RetryConfig) (Connection, error) {
	conn, err := retryConnect(ctx, opts, c.Connect)
	if err != nil {
		return nil, fmt.Errorf("connector: failed to connect after %d attempts: %w", max(opts.MaxRetries, 1), err)
	}
	return conn, nil
}

func (c *standardConnector) Close() error {
	return nil
}
