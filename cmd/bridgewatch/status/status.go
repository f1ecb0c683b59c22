package statuscmd

import (
	"context"
	"fmt"

	"bridgewatch"
	"bridgewatch/cmd/bridgewatch/cmdutil"
	"bridgewatch/cmd/bridgewatch/ui"

	"github.com/spf13/cobra"
)

// Cmd returns the "bridgewatch status" command: a one-shot status query
// without starting a tracker.
func Cmd(endpoint, contextName *string) *cobra.Command {
	var sourceChain, destChain string

	cmd := &cobra.Command{
		Use:   "status <tx-ref>",
		Short: "Show the current status of a transfer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := cmdutil.NewClient(*endpoint, *contextName)
			if err != nil {
				return err
			}

			ref := bridgewatch.TransferRef{
				TxRef:       args[0],
				SourceChain: sourceChain,
				DestChain:   destChain,
			}

			var (
				report  bridgewatch.StatusReport
				details *bridgewatch.TransferDetails
			)
			err = ui.RunWithSpinner(cmd.Context(), "Querying bridge network...", func(ctx context.Context) error {
				report, err = client.TransferStatus(ctx, ref)
				if err != nil {
					return err
				}
				details, err = client.TransferDetails(ctx, ref.TxRef)
				return err
			})
			if err != nil {
				return err
			}

			pairs := []ui.Pair{
				ui.KV("transfer", ref.TxRef),
				ui.KV("route", ref.SourceChain+" → "+ref.DestChain),
				ui.KV("status", styledStatus(report.Status)),
			}
			if report.Message != "" {
				pairs = append(pairs, ui.KV("message", report.Message))
			}
			if details != nil {
				pairs = append(pairs,
					ui.KV("token", details.Token),
					ui.KV("amount", details.Amount),
					ui.KV("submitted", details.SubmittedAt.Local().Format("2006-01-02 15:04:05")),
				)
				if details.SourceTxHash != "" {
					pairs = append(pairs, ui.KV("source tx", ui.Muted(details.SourceTxHash)))
				}
				if details.DestTxHash != "" {
					pairs = append(pairs, ui.KV("dest tx", ui.Muted(details.DestTxHash)))
				}
			}

			fmt.Print(ui.KeyValues("  ", pairs...))
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceChain, "source", "ethereum", "Source chain")
	cmd.Flags().StringVar(&destChain, "dest", "base", "Destination chain")
	return cmd
}

func styledStatus(status bridgewatch.BridgeStatus) string {
	switch status {
	case bridgewatch.StatusCompleted, bridgewatch.StatusExecuted:
		return ui.Success(string(status))
	case bridgewatch.StatusError, bridgewatch.StatusFailed:
		return ui.ErrorStyle.Render(string(status))
	default:
		return ui.Accent(string(status))
	}
}
