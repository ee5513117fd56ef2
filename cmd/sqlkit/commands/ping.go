package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/Konsultn-Engineering/sqlkit/connector"
	"github.com/Konsultn-Engineering/sqlkit/engine"
)

func newPingCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Connect with the configured driver and run the dialect's ping statement",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := o.settings()
			if err != nil {
				return err
			}
			if s.Driver == "" {
				return errors.New("no driver configured (set driver or SQLKIT_DRIVER)")
			}
			logger, err := s.Logger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			conn, err := connector.Connect(ctx, s.Driver, s.Connection)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, conn.Close()) }()

			d := conn.Dialect()
			if s.Dialect != "" {
				if d, err = s.ResolveDialect(); err != nil {
					return err
				}
			}
			raw, err := conn.Acquire(ctx)
			if err != nil {
				return err
			}
			session := engine.New(d, s.EngineOptions(logger)).Session(raw)
			defer func() { err = multierr.Append(err, session.Close()) }()

			start := time.Now()
			if err := session.Ping(ctx); err != nil {
				return fmt.Errorf("ping failed: %w", err)
			}

			w := cmd.OutOrStdout()
			success.Fprintf(w, "✓ %s reachable", s.Driver)
			fmt.Fprintf(w, " in %s (%s)\n", time.Since(start).Round(time.Microsecond), d.PingSQL())
			stats := conn.Stats()
			faint.Fprintf(w, "pool: %d open, %d in use, %d idle\n", stats.OpenConnections, stats.InUse, stats.Idle)
			return nil
		},
	}
}
