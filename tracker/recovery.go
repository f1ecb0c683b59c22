package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bridgewatch"
)

// Severity ranks how drastic a recovery action is.
type Severity uint8

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	}
	return "unknown"
}

// Canonical recovery option IDs.
const (
	RecoverRetry      = "retry"
	RecoverAccelerate = "accelerate"
	RecoverRefund     = "refund"
)

// Option is one user-selectable remedial action for a failed transfer.
type Option struct {
	ID          string
	Title       string
	Description string
	ButtonLabel string
	Severity    Severity

	prepare func(ctx context.Context, ref bridgewatch.TransferRef) error
	reset   func(ref bridgewatch.TransferRef) Snapshot
}

// engine builds the recovery menu for a failed transfer and executes the
// chosen option. It keeps per-option busy state so a host can show a
// spinner on exactly the option being executed.
type engine struct {
	backend RecoveryBackend
	log     *slog.Logger

	mu   sync.Mutex
	busy map[string]bool
}

func newEngine(backend RecoveryBackend) *engine {
	return &engine{
		backend: backend,
		log:     slog.With("component", "recovery"),
		busy:    make(map[string]bool),
	}
}

// options returns the recovery menu. With a working backend the menu is the
// three canonical actions; when no recovery context is available the menu
// degrades to a single retry rather than offering nothing.
func (e *engine) options() []Option {
	if e.backend == nil {
		fallback := retryOption(nil)
		fallback.Description = "Resubmit the transfer and resume tracking"
		return []Option{fallback}
	}
	return []Option{
		retryOption(e.backend.PrepareRetry),
		{
			ID:          RecoverAccelerate,
			Title:       "Accelerate",
			Description: "Resubmit through the bridge with a higher fee",
			ButtonLabel: "Accelerate transfer",
			Severity:    SeverityLow,
			prepare:     e.backend.PrepareAccelerate,
			reset:       accelerateReset,
		},
		{
			ID:          RecoverRefund,
			Title:       "Refund",
			Description: "Abort the transfer and return funds to the source chain",
			ButtonLabel: "Request refund",
			Severity:    SeverityHigh,
			prepare:     e.backend.PrepareRefund,
			reset:       refundReset,
		},
	}
}

func retryOption(prepare func(context.Context, bridgewatch.TransferRef) error) Option {
	return Option{
		ID:          RecoverRetry,
		Title:       "Retry",
		Description: "Resubmit the bridge leg from the last confirmed point",
		ButtonLabel: "Retry transfer",
		Severity:    SeverityMedium,
		prepare:     prepare,
		reset:       retryReset,
	}
}

// execute runs the option's backend preparation and, on success, returns the
// reset snapshot the tracker should resume from. Backend errors are logged
// and returned; the caller's snapshot stays untouched so the menu remains
// usable.
func (e *engine) execute(ctx context.Context, ref bridgewatch.TransferRef, opt Option) (Snapshot, error) {
	e.mu.Lock()
	if e.busy[opt.ID] {
		e.mu.Unlock()
		return Snapshot{}, fmt.Errorf("recovery %s already running", opt.ID)
	}
	e.busy[opt.ID] = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.busy[opt.ID] = false
		e.mu.Unlock()
	}()

	if opt.prepare != nil {
		if err := opt.prepare(ctx, ref); err != nil {
			e.log.Error("recovery preparation failed", "option", opt.ID, "tx", ref.TxRef, "err", err)
			return Snapshot{}, fmt.Errorf("prepare %s: %w", opt.ID, err)
		}
	}
	if opt.reset == nil {
		return Snapshot{}, fmt.Errorf("recovery %s has no reset", opt.ID)
	}
	return opt.reset(ref), nil
}

// executing reports whether the given option is currently running.
func (e *engine) executing(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busy[id]
}

// retryReset rewinds tracking to "source confirmed, bridge pending": the
// initiation already happened, so the first step and the source node stay
// done and polling restarts from the source-confirmation wait.
func retryReset(ref bridgewatch.TransferRef) Snapshot {
	steps := forwardSteps(ref)
	steps[stepInitiate].Status = bridgewatch.StepCompleted
	steps[stepInitiate].Timestamp = time.Now()
	steps[stepSourceConfirm].Status = bridgewatch.StepActive

	nodes := forwardRoute(ref)
	nodes[routeSource].Status = bridgewatch.StepCompleted

	return Snapshot{
		Steps:       steps,
		RouteNodes:  nodes,
		CurrentStep: stepSourceConfirm,
		ActiveRoute: routeSource,
		Polling:     true,
	}
}

// accelerateReset is a retry with the bridge leg flagged as fee-bumped.
func accelerateReset(ref bridgewatch.TransferRef) Snapshot {
	snap := retryReset(ref)
	snap.Steps[stepBridgeProcess].Description += " (Accelerated)"
	return snap
}

// refundReset replaces the forward sequence with the two-step refund path
// and flips the route to point back at the source chain.
func refundReset(ref bridgewatch.TransferRef) Snapshot {
	now := time.Now()
	steps := []bridgewatch.Step{
		{
			ID:          "refund-initiate",
			Title:       "Refund initiated",
			Description: "Bridge network unwinding the transfer",
			Status:      bridgewatch.StepActive,
			Timestamp:   now,
			Estimated:   5 * time.Minute,
		},
		{
			ID:          "return-to-source",
			Title:       "Funds returned",
			Description: "Funds returning to " + ref.SourceChain,
			ChainID:     ref.SourceChain,
			Estimated:   2 * time.Minute,
		},
	}
	nodes := []bridgewatch.RouteNode{
		{Chain: ref.SourceChain, DisplayName: ref.SourceChain, Status: bridgewatch.StepCompleted},
		{Chain: "bridge", DisplayName: "Bridge network (refund)", Status: bridgewatch.StepActive},
		{Chain: ref.SourceChain, DisplayName: ref.SourceChain + " (return)"},
	}
	return Snapshot{
		Steps:       steps,
		RouteNodes:  nodes,
		CurrentStep: 0,
		ActiveRoute: routeBridge,
		Polling:     true,
	}
}
