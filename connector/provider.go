package connector

import (
	"context"

	"github.com/Konsultn-Engineering/sqlkit/dialect"
)

// Provider opens connections for one driver. Providers register themselves
// from init.
type Provider interface {
	Connect(ctx context.Context, config Config) (Connection, error)
	Dialect() dialect.Dialect
}
