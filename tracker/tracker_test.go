package tracker

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bridgewatch"
)

// --- fakes ---

type sourceResult struct {
	report bridgewatch.StatusReport
	err    error
}

// fakeSource feeds scripted poll results to the tracker. Each query consumes
// one result; the channel blocks the poll loop until the test pushes more.
type fakeSource struct {
	results chan sourceResult
	calls   atomic.Int64
}

func newFakeSource() *fakeSource {
	return &fakeSource{results: make(chan sourceResult, 16)}
}

func (f *fakeSource) TransferStatus(ctx context.Context, _ bridgewatch.TransferRef) (bridgewatch.StatusReport, error) {
	f.calls.Add(1)
	select {
	case <-ctx.Done():
		return bridgewatch.StatusReport{}, ctx.Err()
	case r := <-f.results:
		return r.report, r.err
	}
}

func (f *fakeSource) push(status bridgewatch.BridgeStatus) {
	f.results <- sourceResult{report: bridgewatch.StatusReport{Status: status}}
}

func (f *fakeSource) pushErr(err error) {
	f.results <- sourceResult{err: err}
}

// blockingSource ignores context cancellation and resolves only when
// released, simulating a query still in flight during teardown.
type blockingSource struct {
	release chan struct{}
	report  bridgewatch.StatusReport
}

func (b *blockingSource) TransferStatus(context.Context, bridgewatch.TransferRef) (bridgewatch.StatusReport, error) {
	<-b.release
	return b.report, nil
}

type fakeBackend struct {
	mu         sync.Mutex
	retries    int
	accels     int
	refunds    int
	err        error
	block      chan struct{} // when set, calls wait here
}

func (f *fakeBackend) call(n *int) error {
	f.mu.Lock()
	block, err := f.block, f.err
	*n++
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return err
}

func (f *fakeBackend) PrepareRetry(context.Context, bridgewatch.TransferRef) error {
	return f.call(&f.retries)
}

func (f *fakeBackend) PrepareAccelerate(context.Context, bridgewatch.TransferRef) error {
	return f.call(&f.accels)
}

func (f *fakeBackend) PrepareRefund(context.Context, bridgewatch.TransferRef) error {
	return f.call(&f.refunds)
}

// --- helpers ---

func newTestTracker(t *testing.T, cfg Config) *Tracker {
	t.Helper()
	if cfg.Ref.TxRef == "" {
		cfg.Ref = testRef
	}
	if cfg.Interval == 0 {
		cfg.Interval = 5 * time.Millisecond
	}
	tr, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return tr
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal(msg)
}

// --- tests ---

func TestNewValidation(t *testing.T) {
	if _, err := New(Config{Source: newFakeSource()}); err == nil {
		t.Error("want error for missing transfer reference")
	}
	if _, err := New(Config{Ref: testRef}); err == nil {
		t.Error("want error for missing status source")
	}
}

func TestTrackerHappyPath(t *testing.T) {
	src := newFakeSource()
	src.push(bridgewatch.StatusPending)
	src.push(bridgewatch.StatusSourceConfirmed)
	src.push(bridgewatch.StatusBridgeConfirmed)
	src.push(bridgewatch.StatusDestinationExecuting)
	src.push(bridgewatch.StatusCompleted)

	var completions atomic.Int64
	var lastSuccess atomic.Bool
	tr := newTestTracker(t, Config{
		Source: src,
		OnComplete: func(success bool) {
			completions.Add(1)
			lastSuccess.Store(success)
		},
	})

	if err := tr.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer tr.Stop()

	waitFor(t, func() bool { return tr.Snapshot().Completed() }, "transfer never completed")

	snap := tr.Snapshot()
	if snap.Polling {
		t.Error("polling should be stopped")
	}
	if got := completions.Load(); got != 1 {
		t.Errorf("OnComplete fired %d times, want 1", got)
	}
	if !lastSuccess.Load() {
		t.Error("OnComplete reported failure for a completed transfer")
	}
}

func TestTrackerCompleteFiresOnce(t *testing.T) {
	var completions atomic.Int64
	tr := newTestTracker(t, Config{
		Source:     newFakeSource(),
		OnComplete: func(bool) { completions.Add(1) },
	})

	done := bridgewatch.StatusReport{Status: bridgewatch.StatusCompleted}
	tr.commit(func(s Snapshot) Snapshot { return Transition(s, done) })
	tr.commit(func(s Snapshot) Snapshot { return Transition(s, done) })

	if got := completions.Load(); got != 1 {
		t.Errorf("OnComplete fired %d times, want 1", got)
	}
}

func TestTrackerRecoveryNeededOnce(t *testing.T) {
	var recoveries atomic.Int64
	tr := newTestTracker(t, Config{
		Source:           newFakeSource(),
		Recovery:         &fakeBackend{},
		OnRecoveryNeeded: func(string) { recoveries.Add(1) },
	})

	failed := bridgewatch.StatusReport{Status: bridgewatch.StatusFailed, Message: "bridge halted"}
	tr.commit(func(s Snapshot) Snapshot { return Transition(s, failed) })
	tr.commit(func(s Snapshot) Snapshot { return Transition(s, failed) })

	if got := recoveries.Load(); got != 1 {
		t.Errorf("OnRecoveryNeeded fired %d times, want 1", got)
	}
	if got := len(tr.RecoveryOptions()); got != 3 {
		t.Errorf("recovery options = %d, want 3", got)
	}
}

func TestTrackerFailureWithoutBackendIsFinal(t *testing.T) {
	var completions atomic.Int64
	var success atomic.Bool
	tr := newTestTracker(t, Config{
		Source: newFakeSource(),
		OnComplete: func(ok bool) {
			completions.Add(1)
			success.Store(ok)
		},
	})

	tr.commit(func(s Snapshot) Snapshot {
		return Transition(s, bridgewatch.StatusReport{Status: bridgewatch.StatusError})
	})

	if got := completions.Load(); got != 1 {
		t.Fatalf("OnComplete fired %d times, want 1", got)
	}
	if success.Load() {
		t.Error("OnComplete should report failure")
	}
	if got := len(tr.RecoveryOptions()); got != 1 {
		t.Errorf("fallback options = %d, want 1", got)
	}
}

func TestTrackerTransientErrorKeepsPolling(t *testing.T) {
	src := newFakeSource()
	src.pushErr(errors.New("connection reset"))
	src.push(bridgewatch.StatusSourceConfirmed)

	tr := newTestTracker(t, Config{Source: src})
	if err := tr.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer tr.Stop()

	waitFor(t, func() bool {
		return tr.Snapshot().CurrentStep == stepBridgeProcess
	}, "tracker never advanced past the transient error")

	snap := tr.Snapshot()
	if !snap.Polling {
		t.Error("transient error must not stop polling")
	}
	if snap.Err != "" {
		t.Errorf("transient message should clear on a good poll, got %q", snap.Err)
	}
	if src.calls.Load() < 2 {
		t.Errorf("source polled %d times, want at least 2", src.calls.Load())
	}
}

func TestTrackerTransientErrorSurfacesMessage(t *testing.T) {
	src := newFakeSource()
	src.pushErr(errors.New("gateway timeout"))

	tr := newTestTracker(t, Config{Source: src, Interval: time.Hour})
	if err := tr.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer tr.Stop()

	waitFor(t, func() bool { return tr.Snapshot().Err != "" }, "error message never surfaced")

	snap := tr.Snapshot()
	if snap.Terminal() {
		t.Error("transient error must not terminate the attempt")
	}
	if !snap.Polling {
		t.Error("transient error must not clear the polling flag")
	}
}

func TestTrackerPostTeardownSilence(t *testing.T) {
	src := &blockingSource{
		release: make(chan struct{}),
		report:  bridgewatch.StatusReport{Status: bridgewatch.StatusBridgeConfirmed},
	}

	var updates atomic.Int64
	tr := newTestTracker(t, Config{
		Source:   src,
		Interval: time.Hour,
		OnUpdate: func(Snapshot) { updates.Add(1) },
	})
	before := tr.Snapshot()

	if err := tr.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Release the in-flight query only once Stop is already waiting on it.
	go func() {
		time.Sleep(10 * time.Millisecond)
		close(src.release)
	}()
	tr.Stop()

	after := tr.Snapshot()
	if !reflect.DeepEqual(before, after) {
		t.Error("snapshot changed after Stop despite in-flight query")
	}
	if updates.Load() != 0 {
		t.Errorf("OnUpdate fired %d times after teardown, want 0", updates.Load())
	}
}

func TestTrackerStopIdempotent(t *testing.T) {
	tr := newTestTracker(t, Config{Source: newFakeSource()})

	// Safe before Start and repeatedly after.
	tr.Stop()
	tr.Stop()

	if err := tr.Start(context.Background()); err == nil {
		t.Error("Start after Stop should fail")
	}
}

func TestTrackerRecoverResumesPolling(t *testing.T) {
	backend := &fakeBackend{}
	tr := newTestTracker(t, Config{Source: newFakeSource(), Recovery: backend})

	tr.commit(func(s Snapshot) Snapshot {
		return Transition(s, bridgewatch.StatusReport{Status: bridgewatch.StatusFailed, Message: "stuck"})
	})

	opts := tr.RecoveryOptions()
	var refund Option
	for _, o := range opts {
		if o.ID == RecoverRefund {
			refund = o
		}
	}
	if refund.ID == "" {
		t.Fatal("refund option missing")
	}

	if err := tr.Recover(context.Background(), refund); err != nil {
		t.Fatal(err)
	}

	snap := tr.Snapshot()
	if len(snap.Steps) != 2 {
		t.Fatalf("refund steps = %d, want 2", len(snap.Steps))
	}
	if !snap.Polling {
		t.Error("recovery must resume polling")
	}
	if snap.Err != "" {
		t.Errorf("recovery must clear the error, got %q", snap.Err)
	}
	if backend.refunds != 1 {
		t.Errorf("PrepareRefund called %d times, want 1", backend.refunds)
	}
}

func TestTrackerRecoverBackendErrorKeepsFailure(t *testing.T) {
	backend := &fakeBackend{err: errors.New("refund rejected")}
	tr := newTestTracker(t, Config{Source: newFakeSource(), Recovery: backend})

	tr.commit(func(s Snapshot) Snapshot {
		return Transition(s, bridgewatch.StatusReport{Status: bridgewatch.StatusFailed})
	})
	before := tr.Snapshot()

	opts := tr.RecoveryOptions()
	if err := tr.Recover(context.Background(), opts[0]); err == nil {
		t.Fatal("want error from failing backend")
	}

	after := tr.Snapshot()
	if !reflect.DeepEqual(before, after) {
		t.Error("failed recovery must leave the snapshot untouched")
	}
	if got := len(tr.RecoveryOptions()); got != 3 {
		t.Errorf("menu should stay open, got %d options", got)
	}
}

func TestTrackerRecoverWithoutFailure(t *testing.T) {
	tr := newTestTracker(t, Config{Source: newFakeSource(), Recovery: &fakeBackend{}})
	if err := tr.Recover(context.Background(), retryOption(nil)); err == nil {
		t.Error("recover on a healthy tracker should fail")
	}
}

func TestTrackerRecoveringBusyState(t *testing.T) {
	backend := &fakeBackend{block: make(chan struct{})}
	tr := newTestTracker(t, Config{Source: newFakeSource(), Recovery: backend})

	tr.commit(func(s Snapshot) Snapshot {
		return Transition(s, bridgewatch.StatusReport{Status: bridgewatch.StatusFailed})
	})

	var retry Option
	for _, o := range tr.RecoveryOptions() {
		if o.ID == RecoverRetry {
			retry = o
		}
	}

	errc := make(chan error, 1)
	go func() { errc <- tr.Recover(context.Background(), retry) }()

	waitFor(t, func() bool { return tr.Recovering(RecoverRetry) }, "retry never reported busy")
	if tr.Recovering(RecoverRefund) {
		t.Error("only the chosen option should report busy")
	}

	close(backend.block)
	if err := <-errc; err != nil {
		t.Fatal(err)
	}
	if tr.Recovering(RecoverRetry) {
		t.Error("busy state should clear after execution")
	}
}
