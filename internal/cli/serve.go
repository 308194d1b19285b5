package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/koustreak/odatasql/internal/logger"
	"github.com/koustreak/odatasql/internal/server"
)

func newServeCommand(o *options) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the OData HTTP service",
		Long: `Start the OData HTTP service.

Every database on the configured SQL Server instance is published under
/odata/v4/{database}/. The service stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				o.cfg.Server.Addr = addr
			}
			return o.serve(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVar(&addr, "listen", "", "listen address, overrides server.addr")
	return cmd
}

func (o *options) serve(ctx context.Context, cmd *cobra.Command) error {
	log := o.logger(cmd.OutOrStdout())
	logger.SetGlobal(log)

	backend, release, err := o.newBackend(o.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := release(); err != nil {
			log.With().Err(err).Logger().Warn("failed to close database pools")
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = log.WithContext(ctx)
	if err := backend.Ping(ctx); err != nil {
		// The instance may come up later; requests report the failure.
		log.With().Err(err).Logger().Warn("database instance not reachable at startup")
	}

	log.With().
		Str("sql_server", o.cfg.Database.Server).
		Int("sql_port", o.cfg.Database.Port).
		Logger().Info("starting odatasql")

	return server.New(o.cfg.Server, backend, log).Run(ctx)
}
