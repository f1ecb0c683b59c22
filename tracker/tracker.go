package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"bridgewatch"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultInterval is the pause between status polls.
const DefaultInterval = 15 * time.Second

// Config wires a Tracker to its collaborators. Source is required; everything
// else is optional.
type Config struct {
	Ref    bridgewatch.TransferRef
	Source StatusSource

	// Recovery backs the recovery menu. When nil the menu degrades to a
	// single retry option.
	Recovery RecoveryBackend

	// Interval between polls. Zero means DefaultInterval.
	Interval time.Duration

	// OnComplete fires exactly once, when the transfer reaches its final
	// outcome: success, or a failure with no recovery path left.
	OnComplete func(success bool)

	// OnRecoveryNeeded fires exactly once, the first time the transfer
	// fails and a recovery menu becomes available.
	OnRecoveryNeeded func(txRef string)

	// OnUpdate receives every committed snapshot. Called from the poll
	// goroutine (or the recovery caller's goroutine), never concurrently.
	OnUpdate func(Snapshot)
}

// Tracker drives the tracking lifecycle of one transfer. It owns its poll
// goroutine via Start/Stop and is the only writer of its snapshot.
type Tracker struct {
	cfg    Config
	engine *engine
	log    *slog.Logger
	tracer trace.Tracer

	mu            sync.Mutex
	snap          Snapshot
	alive         bool
	completeFired bool
	recoveryFired bool

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a tracker with the initial snapshot committed but no polling
// started yet.
func New(cfg Config) (*Tracker, error) {
	if strings.TrimSpace(cfg.Ref.TxRef) == "" {
		return nil, errors.New("tracker: transfer reference is required")
	}
	if cfg.Source == nil {
		return nil, errors.New("tracker: status source is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}

	return &Tracker{
		cfg:    cfg,
		engine: newEngine(cfg.Recovery),
		log:    slog.With("component", "tracker", "tx", cfg.Ref.TxRef),
		tracer: otel.Tracer("bridgewatch/tracker"),
		snap:   NewSnapshot(cfg.Ref),
		alive:  true,
	}, nil
}

// Ref returns the transfer this tracker watches.
func (t *Tracker) Ref() bridgewatch.TransferRef { return t.cfg.Ref }

// Snapshot returns a copy of the current tracking state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap.Clone()
}

// Start launches the poll loop: one immediate query, then fixed-interval
// repeats. At most one query is in flight at a time.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	if !t.alive {
		t.mu.Unlock()
		return errors.New("tracker: already stopped")
	}
	if t.cancel != nil {
		t.mu.Unlock()
		return errors.New("tracker: already started")
	}
	ctx, t.cancel = context.WithCancel(ctx)
	t.done = make(chan struct{})
	t.mu.Unlock()

	go func() {
		defer close(t.done)
		t.run(ctx)
	}()
	return nil
}

// Stop tears the tracker down. It is idempotent and safe to call before
// Start. Queries already in flight may still resolve, but their commits are
// suppressed; no snapshot change or callback happens after Stop returns.
func (t *Tracker) Stop() {
	t.mu.Lock()
	t.alive = false
	cancel, done := t.cancel, t.done
	t.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (t *Tracker) run(ctx context.Context) {
	t.pollOnce(ctx)

	ticker := time.NewTicker(t.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := t.Snapshot()
			if snap.Completed() {
				return
			}
			if !snap.Polling {
				// Failed and waiting on a recovery choice. Keep the
				// loop alive so a reset resumes on the next tick.
				continue
			}
			t.pollOnce(ctx)
		}
	}
}

// pollOnce performs one status query and commits the outcome. A query
// failure is transient: it surfaces as a message on the snapshot and the
// next tick polls again.
func (t *Tracker) pollOnce(ctx context.Context) {
	ctx, span := t.tracer.Start(ctx, "tracker.poll",
		trace.WithAttributes(attribute.String("tx", t.cfg.Ref.TxRef)))
	defer span.End()

	report, err := t.cfg.Source.TransferStatus(ctx, t.cfg.Ref)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.log.Warn("status query failed", "err", err)

		t.commit(func(snap Snapshot) Snapshot {
			out := snap.Clone()
			out.Err = fmt.Sprintf("status query: %v", err)
			return out
		})
		return
	}

	span.SetAttributes(attribute.String("status", string(report.Status)))
	t.commit(func(snap Snapshot) Snapshot {
		// A successful poll clears any lingering transient message before
		// the transition; protocol failures set their own.
		if !snap.Terminal() && snap.Err != "" {
			snap = snap.Clone()
			snap.Err = ""
		}
		return Transition(snap, report)
	})
}

// commit applies fn to the current snapshot and installs the result, unless
// the tracker has been torn down in the meantime. Terminal callbacks fire
// outside the lock, each at most once per tracker lifetime.
func (t *Tracker) commit(fn func(Snapshot) Snapshot) {
	t.mu.Lock()
	if !t.alive {
		t.mu.Unlock()
		return
	}
	next := fn(t.snap)
	t.snap = next

	var (
		fireComplete bool
		success      bool
		fireRecovery bool
	)
	switch {
	case next.Completed() && !t.completeFired:
		t.completeFired = true
		fireComplete, success = true, true
	case next.Failed() && !t.recoveryFired:
		t.recoveryFired = true
		fireRecovery = true
		// Without a recovery backend there is nothing left to offer; the
		// failure is the final outcome.
		if t.cfg.Recovery == nil && !t.completeFired {
			t.completeFired = true
			fireComplete, success = true, false
		}
	}
	onComplete := t.cfg.OnComplete
	onRecovery := t.cfg.OnRecoveryNeeded
	onUpdate := t.cfg.OnUpdate
	t.mu.Unlock()

	if onUpdate != nil {
		onUpdate(next.Clone())
	}
	if fireRecovery {
		t.log.Warn("transfer failed, recovery available", "err", next.Err)
		if onRecovery != nil {
			onRecovery(t.cfg.Ref.TxRef)
		}
	}
	if fireComplete {
		t.log.Info("transfer finished", "success", success)
		if onComplete != nil {
			onComplete(success)
		}
	}
}

// RecoveryOptions returns the menu for the current failure. Empty unless the
// snapshot is in a failed state.
func (t *Tracker) RecoveryOptions() []Option {
	if !t.Snapshot().Failed() {
		return nil
	}
	return t.engine.options()
}

// Recovering reports whether the given option is currently executing, so a
// host can mark exactly the chosen option as busy.
func (t *Tracker) Recovering(optionID string) bool {
	return t.engine.executing(optionID)
}

// Recover executes a recovery option: it runs the backend preparation and,
// on success, resets the snapshot per the option and resumes polling.
// Errors leave the snapshot untouched so another option can be picked.
func (t *Tracker) Recover(ctx context.Context, opt Option) error {
	ctx, span := t.tracer.Start(ctx, "tracker.recover",
		trace.WithAttributes(attribute.String("option", opt.ID)))
	defer span.End()

	if !t.Snapshot().Failed() {
		return errors.New("tracker: no failure to recover from")
	}

	reset, err := t.engine.execute(ctx, t.cfg.Ref, opt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	t.commit(func(Snapshot) Snapshot { return reset })
	t.log.Info("recovery applied", "option", opt.ID)
	return nil
}
