package contextcmd

import (
	"fmt"
	"sort"

	"bridgewatch/cmd/bridgewatch/ui"
	"bridgewatch/config"
	"bridgewatch/tracker"

	"github.com/spf13/cobra"
)

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available contexts",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if len(cfg.Contexts) == 0 {
				fmt.Println(ui.InfoMsg("No contexts configured."))
				return nil
			}

			names := make([]string, 0, len(cfg.Contexts))
			for name := range cfg.Contexts {
				names = append(names, name)
			}
			sort.Strings(names)

			var rows [][]string
			for _, name := range names {
				c := cfg.Contexts[name]

				current := ""
				if name == cfg.CurrentContext {
					current = "*"
				}

				interval := tracker.DefaultInterval
				if c.PollInterval > 0 {
					interval = c.PollInterval
				}

				rows = append(rows, []string{current, name, c.Endpoint, interval.String()})
			}

			fmt.Println(ui.Table([]string{"", "NAME", "ENDPOINT", "POLL"}, rows))
			return nil
		},
	}
}
