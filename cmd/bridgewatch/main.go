package main

import (
	"fmt"
	"os"

	contextcmd "bridgewatch/cmd/bridgewatch/context"
	daemoncmd "bridgewatch/cmd/bridgewatch/daemon"
	historycmd "bridgewatch/cmd/bridgewatch/history"
	statuscmd "bridgewatch/cmd/bridgewatch/status"
	trackcmd "bridgewatch/cmd/bridgewatch/track"
	"bridgewatch/cmd/bridgewatch/ui"
	"bridgewatch/internal/buildinfo"
	"bridgewatch/internal/logging"

	"github.com/spf13/cobra"
)

func main() {
	var (
		debug         bool
		endpoint      string
		contextName   string
		noInteraction bool
	)
	if err := logging.Configure(logging.LevelWarn); err != nil {
		_, _ = os.Stderr.WriteString("configure logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:           "bridgewatch",
		Short:         "Track cross-chain transfers through the bridge network",
		Version:       buildinfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logging.LevelWarn
			if debug {
				level = logging.LevelDebug
			}
			if err := logging.Configure(level); err != nil {
				return err
			}
			ui.ConfigureInteraction(noInteraction)
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&noInteraction, "no-interaction", false, "Disable prompts and live rendering")

	// Connection flags — available to all subcommands.
	root.PersistentFlags().StringVar(&endpoint, "endpoint", "", "Bridge API endpoint, overrides the current context")
	root.PersistentFlags().StringVar(&contextName, "context", "", "Context name to use")

	root.AddCommand(trackcmd.Cmd(&endpoint, &contextName))
	root.AddCommand(statuscmd.Cmd(&endpoint, &contextName))
	root.AddCommand(historycmd.Cmd())
	root.AddCommand(contextcmd.Cmd())

	dc := daemoncmd.Cmd(&endpoint, &contextName)
	dc.Hidden = true
	root.AddCommand(dc)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
