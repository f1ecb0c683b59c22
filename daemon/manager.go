// Package daemon runs trackers for multiple transfers behind a local API.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bridgewatch"
	"bridgewatch/history"
	"bridgewatch/tracker"
)

// Manager supervises one tracker per active transfer.
type Manager struct {
	source   tracker.StatusSource
	recovery tracker.RecoveryBackend
	store    *history.Store // optional
	interval time.Duration
	log      *slog.Logger

	started chan struct{}

	mu       sync.Mutex
	ctx      context.Context
	trackers map[string]*tracker.Tracker
}

// NewManager creates a manager. store may be nil to disable history
// recording; interval zero means the tracker default.
func NewManager(source tracker.StatusSource, recovery tracker.RecoveryBackend, store *history.Store, interval time.Duration) *Manager {
	return &Manager{
		source:   source,
		recovery: recovery,
		store:    store,
		interval: interval,
		log:      slog.With("component", "manager"),
		started:  make(chan struct{}),
		trackers: make(map[string]*tracker.Tracker),
	}
}

// Started is closed once Run has begun and Track may be called.
func (m *Manager) Started() <-chan struct{} { return m.started }

// Run blocks until ctx is cancelled, then stops every tracker. Trackers
// started via Track live under this ctx.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	m.ctx = ctx
	m.mu.Unlock()
	close(m.started)

	<-ctx.Done()
	m.stopAll()
	return nil
}

// Track starts tracking a transfer. A transfer already being tracked is
// rejected.
func (m *Manager) Track(ref bridgewatch.TransferRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx == nil {
		return errors.New("manager not running")
	}
	if _, ok := m.trackers[ref.TxRef]; ok {
		return fmt.Errorf("transfer %s already tracked", ref.TxRef)
	}

	tr, err := tracker.New(tracker.Config{
		Ref:      ref,
		Source:   m.source,
		Recovery: m.recovery,
		Interval: m.interval,
		OnUpdate: func(snap tracker.Snapshot) { m.recordUpdate(ref, snap) },
		OnRecoveryNeeded: func(txRef string) {
			m.log.Warn("transfer needs recovery", "tx", txRef)
		},
	})
	if err != nil {
		return err
	}
	if err := tr.Start(m.ctx); err != nil {
		return err
	}

	m.trackers[ref.TxRef] = tr

	if m.store != nil {
		if err := m.store.Begin(context.Background(), ref); err != nil {
			m.log.Error("history write failed", "tx", ref.TxRef, "err", err)
		}
	}
	m.log.Info("tracking transfer", "tx", ref.TxRef,
		"source", ref.SourceChain, "dest", ref.DestChain)
	return nil
}

// recordUpdate mirrors terminal outcomes into the history store. The store
// observes; it never feeds state back.
func (m *Manager) recordUpdate(ref bridgewatch.TransferRef, snap tracker.Snapshot) {
	if m.store == nil || !snap.Terminal() {
		return
	}
	outcome := history.OutcomeCompleted
	if snap.Failed() {
		outcome = history.OutcomeFailed
	}
	if err := m.store.Finish(context.Background(), ref.TxRef, outcome, snap.Err); err != nil {
		m.log.Error("history write failed", "tx", ref.TxRef, "err", err)
	}
}

// StopTracking tears down the tracker for a transfer.
func (m *Manager) StopTracking(txRef string) error {
	m.mu.Lock()
	tr, ok := m.trackers[txRef]
	delete(m.trackers, txRef)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("transfer %s not tracked", txRef)
	}
	tr.Stop()
	m.log.Info("stopped tracking", "tx", txRef)
	return nil
}

// Snapshot returns the current state of one tracked transfer.
func (m *Manager) Snapshot(txRef string) (bridgewatch.TransferRef, tracker.Snapshot, bool) {
	m.mu.Lock()
	tr, ok := m.trackers[txRef]
	m.mu.Unlock()

	if !ok {
		return bridgewatch.TransferRef{}, tracker.Snapshot{}, false
	}
	return tr.Ref(), tr.Snapshot(), true
}

// Refs lists the transfers currently tracked.
func (m *Manager) Refs() []bridgewatch.TransferRef {
	m.mu.Lock()
	defer m.mu.Unlock()

	refs := make([]bridgewatch.TransferRef, 0, len(m.trackers))
	for _, tr := range m.trackers {
		refs = append(refs, tr.Ref())
	}
	return refs
}

// RecoveryOptions returns the recovery menu for a failed transfer, empty
// when the transfer is unknown or not failed.
func (m *Manager) RecoveryOptions(txRef string) []tracker.Option {
	m.mu.Lock()
	tr, ok := m.trackers[txRef]
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return tr.RecoveryOptions()
}

// Recover executes a recovery option by ID and records the attempt.
func (m *Manager) Recover(ctx context.Context, txRef, optionID string) error {
	m.mu.Lock()
	tr, ok := m.trackers[txRef]
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("transfer %s not tracked", txRef)
	}

	var chosen *tracker.Option
	for _, opt := range tr.RecoveryOptions() {
		if opt.ID == optionID {
			opt := opt
			chosen = &opt
			break
		}
	}
	if chosen == nil {
		return fmt.Errorf("unknown recovery option %q", optionID)
	}

	err := tr.Recover(ctx, *chosen)

	if m.store != nil {
		outcome := "applied"
		if err != nil {
			outcome = "failed"
		}
		if herr := m.store.AddRecovery(context.Background(), txRef, optionID, outcome); herr != nil {
			m.log.Error("history write failed", "tx", txRef, "err", herr)
		}
	}
	return err
}

func (m *Manager) stopAll() {
	m.mu.Lock()
	trackers := m.trackers
	m.trackers = make(map[string]*tracker.Tracker)
	m.mu.Unlock()

	for _, tr := range trackers {
		tr.Stop()
	}
}
