package history

import (
	"context"
	"path/filepath"
	"testing"

	"bridgewatch"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var ref = bridgewatch.TransferRef{
	TxRef:       "0xdead",
	SourceChain: "ethereum",
	DestChain:   "base",
}

func TestBeginAndFinish(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Begin(ctx, ref); err != nil {
		t.Fatal(err)
	}

	rec, ok, err := s.Get(ctx, ref.TxRef)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("transfer not found after Begin")
	}
	if rec.Outcome != OutcomeTracking {
		t.Errorf("outcome = %s, want %s", rec.Outcome, OutcomeTracking)
	}
	if !rec.FinishedAt.IsZero() {
		t.Error("FinishedAt should be zero while tracking")
	}

	if err := s.Finish(ctx, ref.TxRef, OutcomeFailed, "bridge halted"); err != nil {
		t.Fatal(err)
	}

	rec, _, err = s.Get(ctx, ref.TxRef)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Outcome != OutcomeFailed || rec.Error != "bridge halted" {
		t.Errorf("record = %+v", rec)
	}
	if rec.FinishedAt.IsZero() {
		t.Error("FinishedAt should be set after Finish")
	}
}

func TestBeginResetsKnownTransfer(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Begin(ctx, ref); err != nil {
		t.Fatal(err)
	}
	if err := s.Finish(ctx, ref.TxRef, OutcomeFailed, "stuck"); err != nil {
		t.Fatal(err)
	}
	if err := s.Begin(ctx, ref); err != nil {
		t.Fatal(err)
	}

	rec, _, err := s.Get(ctx, ref.TxRef)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Outcome != OutcomeTracking || rec.Error != "" {
		t.Errorf("re-tracked record = %+v", rec)
	}
	if !rec.FinishedAt.IsZero() {
		t.Error("FinishedAt should reset on re-track")
	}
}

func TestGetUnknown(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.Get(context.Background(), "0xnope")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("unknown transfer reported as found")
	}
}

func TestListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	refs := []bridgewatch.TransferRef{
		{TxRef: "0x01", SourceChain: "ethereum", DestChain: "base"},
		{TxRef: "0x02", SourceChain: "base", DestChain: "optimism"},
	}
	for _, r := range refs {
		if err := s.Begin(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	records, err := s.List(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
}

func TestRecoveryAttempts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Begin(ctx, ref); err != nil {
		t.Fatal(err)
	}
	if err := s.AddRecovery(ctx, ref.TxRef, "retry", "failed"); err != nil {
		t.Fatal(err)
	}
	if err := s.AddRecovery(ctx, ref.TxRef, "refund", "applied"); err != nil {
		t.Fatal(err)
	}

	attempts, err := s.Recoveries(ctx, ref.TxRef)
	if err != nil {
		t.Fatal(err)
	}
	if len(attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(attempts))
	}
	if attempts[0].Option != "retry" || attempts[1].Option != "refund" {
		t.Errorf("attempts = %+v", attempts)
	}
	if attempts[0].ID == attempts[1].ID || attempts[0].ID == "" {
		t.Error("attempt ids should be distinct and non-empty")
	}
}
