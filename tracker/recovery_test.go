package tracker

import (
	"strings"
	"testing"

	"bridgewatch"
)

func TestEngineOptionsCanonicalMenu(t *testing.T) {
	e := newEngine(&fakeBackend{})
	opts := e.options()
	if len(opts) != 3 {
		t.Fatalf("options = %d, want 3", len(opts))
	}

	want := []struct {
		id       string
		severity Severity
	}{
		{RecoverRetry, SeverityMedium},
		{RecoverAccelerate, SeverityLow},
		{RecoverRefund, SeverityHigh},
	}
	for i, w := range want {
		if opts[i].ID != w.id {
			t.Errorf("option %d = %s, want %s", i, opts[i].ID, w.id)
		}
		if opts[i].Severity != w.severity {
			t.Errorf("option %s severity = %s, want %s", opts[i].ID, opts[i].Severity, w.severity)
		}
		if opts[i].ButtonLabel == "" || opts[i].Description == "" {
			t.Errorf("option %s missing label or description", opts[i].ID)
		}
	}
}

func TestEngineOptionsFallback(t *testing.T) {
	e := newEngine(nil)
	opts := e.options()
	if len(opts) != 1 {
		t.Fatalf("fallback options = %d, want 1", len(opts))
	}
	if opts[0].ID != RecoverRetry {
		t.Errorf("fallback option = %s, want %s", opts[0].ID, RecoverRetry)
	}
}

func TestRetryReset(t *testing.T) {
	snap := retryReset(testRef)

	want := []bridgewatch.StepStatus{
		bridgewatch.StepCompleted,
		bridgewatch.StepActive,
		bridgewatch.StepPending,
		bridgewatch.StepPending,
		bridgewatch.StepPending,
	}
	for i, w := range want {
		if snap.Steps[i].Status != w {
			t.Errorf("step %d = %s, want %s", i, snap.Steps[i].Status, w)
		}
	}

	wantNodes := []bridgewatch.StepStatus{
		bridgewatch.StepCompleted,
		bridgewatch.StepPending,
		bridgewatch.StepPending,
	}
	for i, w := range wantNodes {
		if snap.RouteNodes[i].Status != w {
			t.Errorf("node %d = %s, want %s", i, snap.RouteNodes[i].Status, w)
		}
	}

	if !snap.Polling {
		t.Error("retry reset must resume polling")
	}
	if snap.Err != "" {
		t.Error("retry reset must clear the error")
	}
	if snap.CurrentStep != stepSourceConfirm {
		t.Errorf("CurrentStep = %d, want %d", snap.CurrentStep, stepSourceConfirm)
	}
}

func TestAccelerateResetAnnotatesBridgeStep(t *testing.T) {
	snap := accelerateReset(testRef)
	if !strings.HasSuffix(snap.Steps[stepBridgeProcess].Description, "(Accelerated)") {
		t.Errorf("bridge step description = %q, want (Accelerated) suffix", snap.Steps[stepBridgeProcess].Description)
	}

	// Otherwise identical in shape to a plain retry.
	plain := retryReset(testRef)
	if snap.CurrentStep != plain.CurrentStep || len(snap.Steps) != len(plain.Steps) {
		t.Error("accelerate reset diverged from retry reset shape")
	}
}

func TestRefundReset(t *testing.T) {
	snap := refundReset(testRef)

	if len(snap.Steps) != 2 {
		t.Fatalf("refund steps = %d, want 2", len(snap.Steps))
	}
	if snap.Steps[0].ID != "refund-initiate" || snap.Steps[1].ID != "return-to-source" {
		t.Errorf("refund step ids = %s, %s", snap.Steps[0].ID, snap.Steps[1].ID)
	}
	if snap.Steps[0].Status != bridgewatch.StepActive {
		t.Errorf("refund first step = %s, want active", snap.Steps[0].Status)
	}
	if len(snap.RouteNodes) != routeCount {
		t.Fatalf("refund nodes = %d, want %d", len(snap.RouteNodes), routeCount)
	}
	if snap.RouteNodes[routeBridge].Status != bridgewatch.StepActive {
		t.Error("bridge refund node should be active")
	}
	if !snap.Polling || snap.Err != "" {
		t.Error("refund reset must resume polling with a clear error")
	}
}
