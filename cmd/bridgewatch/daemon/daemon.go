package daemoncmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"bridgewatch/cmd/bridgewatch/cmdutil"
	daemonruntime "bridgewatch/daemon"
	"bridgewatch/history"
	"bridgewatch/internal/telemetry"

	"github.com/spf13/cobra"
)

// Cmd returns the "bridgewatch daemon" command: run the multi-transfer
// tracking daemon in the foreground, serving the local API socket.
func Cmd(endpoint, contextName *string) *cobra.Command {
	var socketPath, dbPath string

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the tracking daemon in foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			shutdown, err := telemetry.Setup(ctx, "bridgewatchd")
			if err != nil {
				return err
			}
			defer func() { _ = shutdown(context.Background()) }()

			client, bctx, err := cmdutil.NewClient(*endpoint, *contextName)
			if err != nil {
				return err
			}

			store, err := history.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			m := daemonruntime.NewManager(client, client, store, bctx.PollInterval)
			return daemonruntime.Run(ctx, m, socketPath)
		},
	}

	cmd.Flags().StringVar(&socketPath, "socket", cmdutil.DefaultSocketPath(), "API unix socket path")
	cmd.Flags().StringVar(&dbPath, "db", cmdutil.DefaultDBPath(), "History database path")
	return cmd
}
