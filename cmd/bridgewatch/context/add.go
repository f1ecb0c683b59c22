package contextcmd

import (
	"fmt"
	"time"

	"bridgewatch/cmd/bridgewatch/ui"
	"bridgewatch/config"

	"github.com/spf13/cobra"
)

func addCmd() *cobra.Command {
	var endpoint string
	var pollInterval time.Duration

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add or update a context",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			name := args[0]

			if endpoint == "" {
				return fmt.Errorf("--endpoint is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			cfg.Set(name, config.Context{
				Endpoint:     endpoint,
				PollInterval: pollInterval,
			})
			if cfg.CurrentContext == "" {
				cfg.CurrentContext = name
			}

			if err := cfg.Save(); err != nil {
				return err
			}

			fmt.Println(ui.SuccessMsg("Context %s saved.", ui.Bold(name)))
			return nil
		},
	}

	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Bridge API endpoint (e.g. bridge.example.net)")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", 0, "Status poll interval override")
	return cmd
}
