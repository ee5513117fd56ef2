package connector

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidConfig = errors.New("connector: invalid configuration")

// Config represents database connection configuration.
type Config struct {
	Host           string            `json:"host" yaml:"host" mapstructure:"host"`
	Port           int               `json:"port" yaml:"port" mapstructure:"port"`
	Database       string            `json:"database" yaml:"database" mapstructure:"database"`
	Username       string            `json:"username" yaml:"username" mapstructure:"username"`
	Password       string            `json:"password" yaml:"password" mapstructure:"password"`
	SSLMode        string            `json:"ssl_mode" yaml:"ssl_mode" mapstructure:"ssl_mode"`
	Params         map[string]string `json:"params" yaml:"params" mapstructure:"params"`
	Pool           PoolConfig        `json:"pool" yaml:"pool" mapstructure:"pool"`
	ConnectTimeout time.Duration     `json:"connect_timeout" yaml:"connect_timeout" mapstructure:"connect_timeout"`
	Retry          *RetryConfig      `json:"retry,omitempty" yaml:"retry,omitempty" mapstructure:"retry"`

	// DSN, when set, is handed to the driver as is and the fields above
	// that make up an address are ignored.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty" mapstructure:"dsn"`
}

// PoolConfig defines connection pool settings.
type PoolConfig struct {
	MaxOpen         int           `json:"max_open" yaml:"max_open" mapstructure:"max_open"`
	MaxIdle         int           `json:"max_idle" yaml:"max_idle" mapstructure:"max_idle"`
	MaxLifetime     time.Duration `json:"max_lifetime" yaml:"max_lifetime" mapstructure:"max_lifetime"`
	MaxIdleTime     time.Duration `json:"max_idle_time" yaml:"max_idle_time" mapstructure:"max_idle_time"`
	HealthCheckFreq time.Duration `json:"health_check_freq" yaml:"health_check_freq" mapstructure:"health_check_freq"`
}

// WithDefaults fills unset pool limits.
func (p PoolConfig) WithDefaults() PoolConfig {
	if p.MaxOpen <= 0 {
		p.MaxOpen = 10
	}
	if p.MaxIdle <= 0 {
		p.MaxIdle = 5
	}
	if p.MaxIdle > p.MaxOpen {
		p.MaxIdle = p.MaxOpen
	}
	if p.MaxLifetime == 0 {
		p.MaxLifetime = time.Hour
	}
	if p.MaxIdleTime == 0 {
		p.MaxIdleTime = 30 * time.Minute
	}
	return p
}

// RetryConfig defines connection retry behavior.
type RetryConfig struct {
	MaxRetries int           `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
	BaseDelay  time.Duration `json:"base_delay" yaml:"base_delay" mapstructure:"base_delay"`
	MaxDelay   time.Duration `json:"max_delay" yaml:"max_delay" mapstructure:"max_delay"`
	Backoff    float64       `json:"backoff" yaml:"backoff" mapstructure:"backoff"`
}

// Validate checks the fields needed to reach a server. File-based and
// DSN-only configurations skip the address checks.
func (c *Config) Validate() error {
	if c.DSN != "" {
		return nil
	}
	if c.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidConfig)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port %d", ErrInvalidConfig, c.Port)
	}
	if c.Retry != nil && c.Retry.MaxRetries < 0 {
		return fmt.Errorf("%w: negative max_retries", ErrInvalidConfig)
	}
	return nil
}

// ClusterConfig defines primary-replica database cluster configuration.
type ClusterConfig struct {
	Primary       Config   `json:"primary" yaml:"primary" mapstructure:"primary"`
	Replicas      []Config `json:"replicas" yaml:"replicas" mapstructure:"replicas"`
	ReadStrategy  string   `json:"read_strategy" yaml:"read_strategy" mapstructure:"read_strategy"`
	WriteStrategy string   `json:"write_strategy" yaml:"write_strategy" mapstructure:"write_strategy"`
}

// ValidateCluster validates cluster configuration.
func (cc *ClusterConfig) ValidateCluster() error {
	if err := cc.Primary.Validate(); err != nil {
		return fmt.Errorf("primary: %w", err)
	}
	for i := range cc.Replicas {
		if err := cc.Replicas[i].Validate(); err != nil {
			return fmt.Errorf("replica %d: %w", i, err)
		}
	}

	switch cc.ReadStrategy {
	case "", ReadPrimary, ReadRandom, ReadRoundRobin:
	default:
		return fmt.Errorf("%w: read strategy %q", ErrInvalidConfig, cc.ReadStrategy)
	}
	if cc.WriteStrategy != "" && cc.WriteStrategy != ReadPrimary {
		return fmt.Errorf("%w: write strategy %q (only 'primary' supported)", ErrInvalidConfig, cc.WriteStrategy)
	}
	return nil
}
