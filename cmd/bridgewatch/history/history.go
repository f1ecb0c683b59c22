package historycmd

import (
	"fmt"
	"time"

	"bridgewatch/cmd/bridgewatch/cmdutil"
	"bridgewatch/cmd/bridgewatch/ui"
	"bridgewatch/history"

	"github.com/spf13/cobra"
)

// Cmd returns the "bridgewatch history" command: past transfers and their
// recovery attempts from the local database.
func Cmd() *cobra.Command {
	var dbPath string
	var limit int

	cmd := &cobra.Command{
		Use:   "history [tx-ref]",
		Short: "Show tracked transfer history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 1 {
				return showOne(cmd, store, args[0])
			}
			return showList(cmd, store, limit)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", cmdutil.DefaultDBPath(), "History database path")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum transfers to list")
	return cmd
}

func showList(cmd *cobra.Command, store *history.Store, limit int) error {
	records, err := store.List(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println(ui.InfoMsg("No transfers tracked yet."))
		return nil
	}

	var rows [][]string
	for _, rec := range records {
		rows = append(rows, []string{
			rec.Ref.TxRef,
			rec.Ref.SourceChain + " → " + rec.Ref.DestChain,
			styledOutcome(rec.Outcome),
			rec.StartedAt.Local().Format("2006-01-02 15:04"),
			duration(rec),
		})
	}
	fmt.Println(ui.Table([]string{"TRANSFER", "ROUTE", "OUTCOME", "STARTED", "DURATION"}, rows))
	return nil
}

func showOne(cmd *cobra.Command, store *history.Store, txRef string) error {
	rec, ok, err := store.Get(cmd.Context(), txRef)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("transfer %s not found in history", txRef)
	}

	pairs := []ui.Pair{
		ui.KV("transfer", rec.Ref.TxRef),
		ui.KV("route", rec.Ref.SourceChain+" → "+rec.Ref.DestChain),
		ui.KV("outcome", styledOutcome(rec.Outcome)),
		ui.KV("started", rec.StartedAt.Local().Format("2006-01-02 15:04:05")),
	}
	if !rec.FinishedAt.IsZero() {
		pairs = append(pairs, ui.KV("finished", rec.FinishedAt.Local().Format("2006-01-02 15:04:05")))
	}
	if rec.Error != "" {
		pairs = append(pairs, ui.KV("error", ui.ErrorStyle.Render(rec.Error)))
	}
	fmt.Print(ui.KeyValues("  ", pairs...))

	attempts, err := store.Recoveries(cmd.Context(), txRef)
	if err != nil {
		return err
	}
	if len(attempts) == 0 {
		return nil
	}

	fmt.Println()
	var rows [][]string
	for _, a := range attempts {
		rows = append(rows, []string{
			a.Option,
			a.AttemptedAt.Local().Format("2006-01-02 15:04:05"),
			a.Outcome,
		})
	}
	fmt.Println(ui.Table([]string{"RECOVERY", "AT", "OUTCOME"}, rows))
	return nil
}

func styledOutcome(outcome string) string {
	switch outcome {
	case history.OutcomeCompleted:
		return ui.Success(outcome)
	case history.OutcomeFailed:
		return ui.ErrorStyle.Render(outcome)
	default:
		return ui.Accent(outcome)
	}
}

func duration(rec history.Record) string {
	if rec.FinishedAt.IsZero() {
		return ui.Muted("—")
	}
	return rec.FinishedAt.Sub(rec.StartedAt).Round(time.Second).String()
}
