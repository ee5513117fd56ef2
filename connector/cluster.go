package connector

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"go.uber.org/multierr"

	"github.com/Konsultn-Engineering/sqlkit/database"
	"github.com/Konsultn-Engineering/sqlkit/dialect"
)

// Read strategies for a Cluster.
const (
	ReadPrimary    = "primary"
	ReadRandom     = "random"
	ReadRoundRobin = "round_robin"
)

// Cluster routes writes to the primary and reads to replicas. It is itself a
// Connection; Acquire goes to the primary.
type Cluster struct {
	strategy string
	primary  Connection
	replicas []Connection
	mu       sync.Mutex
	readIdx  int
}

// ConnectCluster opens the primary and every replica through the named
// provider. Connections opened before a failure are closed.
func ConnectCluster(ctx context.Context, name string, cfg ClusterConfig) (*Cluster, error) {
	if err := cfg.ValidateCluster(); err != nil {
		return nil, err
	}
	primary, err := Connect(ctx, name, cfg.Primary)
	if err != nil {
		return nil, fmt.Errorf("connector: failed to connect to primary: %w", err)
	}

	replicas := make([]Connection, 0, len(cfg.Replicas))
	for i, rc := range cfg.Replicas {
		replica, err := Connect(ctx, name, rc)
		if err != nil {
			cerr := primary.Close()
			for _, r := range replicas {
				cerr = multierr.Append(cerr, r.Close())
			}
			return nil, multierr.Append(fmt.Errorf("connector: failed to connect to replica %d: %w", i, err), cerr)
		}
		replicas = append(replicas, replica)
	}
	return NewCluster(cfg.ReadStrategy, primary, replicas...), nil
}

func NewCluster(strategy string, primary Connection, replicas ...Connection) *Cluster {
	return &Cluster{strategy: strategy, primary: primary, replicas: replicas}
}

func (c *Cluster) Primary() Connection { return c.primary }

func (c *Cluster) Replicas() []Connection { return c.replicas }

// Read returns a connection for read operations based on the configured strategy.
func (c *Cluster) Read() Connection {
	if len(c.replicas) == 0 {
		return c.primary
	}

	switch c.strategy {
	case ReadRandom:
		return c.replicas[rand.IntN(len(c.replicas))]
	case ReadRoundRobin:
		c.mu.Lock()
		idx := c.readIdx % len(c.replicas)
		c.readIdx++
		c.mu.Unlock()
		return c.replicas[idx]
	default:
		return c.primary
	}
}

// Write returns a connection for write operations (always primary).
func (c *Cluster) Write() Connection {
	return c.primary
}

func (c *Cluster) Acquire(ctx context.Context) (database.Conn, error) {
	return c.primary.Acquire(ctx)
}

func (c *Cluster) Dialect() dialect.Dialect {
	return c.primary.Dialect()
}

// Health checks the health of all connections in the cluster.
func (c *Cluster) Health(ctx context.Context) error {
	if err := c.primary.Health(ctx); err != nil {
		return fmt.Errorf("primary health check failed: %w", err)
	}
	for i, replica := range c.replicas {
		if err := replica.Health(ctx); err != nil {
			return fmt.Errorf("replica %d health check failed: %w", i, err)
		}
	}
	return nil
}

// Stats returns aggregated statistics from all connections.
func (c *Cluster) Stats() ConnectionStats {
	stats := c.primary.Stats()
	for _, replica := range c.replicas {
		stats = stats.add(replica.Stats())
	}
	return stats
}

func (c *Cluster) Close() error {
	err := c.primary.Close()
	for _, replica := range c.replicas {
		err = multierr.Append(err, replica.Close())
	}
	return err
}
