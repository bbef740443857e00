package commands

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/celquery/internal/adapters/telemetry"
	"github.com/satishbabariya/celquery/internal/api"
	"github.com/satishbabariya/celquery/internal/ui"
)

// NewServeCommand creates the serve command.
func NewServeCommand(opts *Options) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve entity filters over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := opts.Config()
			if addr != "" {
				cfg.Server.Addr = addr
			}

			c, err := opts.container(ctx)
			if err != nil {
				return err
			}
			if err := c.Connect(ctx); err != nil {
				return err
			}
			defer c.Close(cmd.Context())

			var metrics http.Handler
			if p, ok := c.Telemetry().(*telemetry.PrometheusTelemetry); ok {
				metrics = p.Handler()
			}

			ui.PrintInfo("serving %v on %s", c.Services().Names(), cfg.Server.Addr)
			return api.NewServer(c.Services(), metrics).ListenAndServe(ctx, api.ServeConfig{
				Addr:         cfg.Server.Addr,
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr)")
	return cmd
}
