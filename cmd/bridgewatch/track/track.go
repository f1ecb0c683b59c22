package trackcmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"bridgewatch"
	"bridgewatch/cmd/bridgewatch/cmdutil"
	"bridgewatch/cmd/bridgewatch/ui"
	"bridgewatch/tracker"

	"github.com/spf13/cobra"
)

// Cmd returns the "bridgewatch track" command: follow one transfer live
// until it completes, offering recovery choices on failure.
func Cmd(endpoint, contextName *string) *cobra.Command {
	var sourceChain, destChain string

	cmd := &cobra.Command{
		Use:   "track <tx-ref>",
		Short: "Follow a transfer until it completes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := bridgewatch.TransferRef{
				TxRef:       args[0],
				SourceChain: sourceChain,
				DestChain:   destChain,
			}
			return run(cmd.Context(), *endpoint, *contextName, ref)
		},
	}

	cmd.Flags().StringVar(&sourceChain, "source", "ethereum", "Source chain")
	cmd.Flags().StringVar(&destChain, "dest", "base", "Destination chain")
	return cmd
}

// progressHolder lets tracker callbacks keep feeding whichever Progress
// block is currently on screen.
type progressHolder struct {
	mu sync.Mutex
	p  *ui.Progress
}

func (h *progressHolder) set(p *ui.Progress) {
	h.mu.Lock()
	h.p = p
	h.mu.Unlock()
}

func (h *progressHolder) update(snap tracker.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.p != nil {
		h.p.Update(snap)
	}
}

func (h *progressHolder) stop() {
	h.mu.Lock()
	p := h.p
	h.p = nil
	h.mu.Unlock()
	if p != nil {
		p.Stop()
	}
}

func run(ctx context.Context, endpoint, contextName string, ref bridgewatch.TransferRef) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client, bctx, err := cmdutil.NewClient(endpoint, contextName)
	if err != nil {
		return err
	}

	var (
		holder   progressHolder
		doneCh   = make(chan bool, 1)
		failedCh = make(chan struct{}, 1)
	)

	tr, err := tracker.New(tracker.Config{
		Ref:      ref,
		Source:   client,
		Recovery: client,
		Interval: bctx.PollInterval,
		// Failures are detected from updates rather than OnRecoveryNeeded:
		// that callback fires only for the first failure, and a transfer can
		// fail again after a recovery attempt.
		OnUpdate: func(snap tracker.Snapshot) {
			holder.update(snap)
			if snap.Failed() {
				select {
				case failedCh <- struct{}{}:
				default:
				}
			}
		},
		OnComplete: func(success bool) {
			doneCh <- success
		},
	})
	if err != nil {
		return err
	}

	fmt.Println(ui.InfoMsg("Tracking %s  %s → %s",
		ui.Bold(ref.TxRef), ref.SourceChain, ref.DestChain))
	fmt.Println()
	holder.set(ui.NewProgress(os.Stderr, tr.Snapshot()))

	if err := tr.Start(ctx); err != nil {
		return err
	}
	defer tr.Stop()

	for {
		select {
		case <-ctx.Done():
			holder.stop()
			return fmt.Errorf("interrupted")

		case success := <-doneCh:
			holder.stop()
			fmt.Println()
			if !success {
				return fmt.Errorf("transfer %s failed: %s", ref.TxRef, tr.Snapshot().Err)
			}
			fmt.Println(ui.SuccessMsg("Transfer %s completed.", ui.Bold(ref.TxRef)))
			return nil

		case <-failedCh:
			holder.stop()
			fmt.Println()
			if err := offerRecovery(ctx, tr); err != nil {
				return err
			}
			fmt.Println()
			holder.set(ui.NewProgress(os.Stderr, tr.Snapshot()))
		}
	}
}

// offerRecovery shows the recovery menu for the current failure and applies
// the chosen option. Cancelling the menu ends tracking with the failure.
func offerRecovery(ctx context.Context, tr *tracker.Tracker) error {
	snap := tr.Snapshot()
	fmt.Println(ui.ErrorMsg("Transfer failed: %s", snap.Err))

	opts := tr.RecoveryOptions()
	if len(opts) == 0 {
		return fmt.Errorf("transfer failed with no recovery available")
	}

	if ui.IsNoInteraction() {
		for _, opt := range opts {
			fmt.Println("  " + ui.Bold(opt.ID) + "  " + ui.Muted(opt.Description))
		}
		return fmt.Errorf("recovery requires an interactive terminal")
	}

	rows := make([][]string, len(opts))
	for i, opt := range opts {
		rows[i] = []string{opt.Title, opt.Severity.String(), opt.Description}
	}
	idx, err := ui.SelectRow([]string{"ACTION", "IMPACT", "DETAIL"}, rows)
	if err != nil {
		return err
	}
	if idx < 0 {
		return fmt.Errorf("recovery cancelled")
	}
	chosen := opts[idx]

	err = ui.RunWithSpinner(ctx, chosen.ButtonLabel+"...", func(ctx context.Context) error {
		return tr.Recover(ctx, chosen)
	})
	if err != nil {
		return fmt.Errorf("%s failed: %w", chosen.Title, err)
	}
	fmt.Println(ui.SuccessMsg("%s applied, resuming tracking.", chosen.Title))
	return nil
}
