package bridge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"bridgewatch"
)

var ref = bridgewatch.TransferRef{
	TxRef:       "0xfeed",
	SourceChain: "ethereum",
	DestChain:   "arbitrum",
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestTransferStatus(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/transfers/0xfeed/status" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("source"); got != "ethereum" {
			t.Errorf("source = %q", got)
		}
		if got := r.URL.Query().Get("dest"); got != "arbitrum" {
			t.Errorf("dest = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"bridge_confirmed","message":"3 of 5 validators"}`))
	}))

	report, err := c.TransferStatus(context.Background(), ref)
	if err != nil {
		t.Fatal(err)
	}
	if report.Status != bridgewatch.StatusBridgeConfirmed {
		t.Errorf("status = %s", report.Status)
	}
	if report.Message != "3 of 5 validators" {
		t.Errorf("message = %q", report.Message)
	}
}

func TestTransferStatusServerError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"message":"indexer lagging"}`))
	}))

	_, err := c.TransferStatus(context.Background(), ref)
	if err == nil {
		t.Fatal("want error for HTTP 502")
	}
	if got := err.Error(); got != "transfer status: indexer lagging (HTTP 502)" {
		t.Errorf("err = %q", got)
	}
}

func TestTransferDetails(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/transfers/0xfeed" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tx_ref":"0xfeed","token":"USDC","amount":"250.00"}`))
	}))

	details, err := c.TransferDetails(context.Background(), ref.TxRef)
	if err != nil {
		t.Fatal(err)
	}
	if details == nil {
		t.Fatal("details = nil")
	}
	if details.Token != "USDC" || details.Amount != "250.00" {
		t.Errorf("details = %+v", details)
	}
}

func TestTransferDetailsUnknown(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler())

	details, err := c.TransferDetails(context.Background(), "0xmissing")
	if err != nil {
		t.Fatal(err)
	}
	if details != nil {
		t.Errorf("details = %+v, want nil", details)
	}
}

func TestRecoveryPosts(t *testing.T) {
	var gotPath, gotMethod string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		w.WriteHeader(http.StatusAccepted)
	}))

	tests := []struct {
		name string
		call func(context.Context, bridgewatch.TransferRef) error
		path string
	}{
		{"retry", c.PrepareRetry, "/v1/transfers/0xfeed/retry"},
		{"accelerate", c.PrepareAccelerate, "/v1/transfers/0xfeed/accelerate"},
		{"refund", c.PrepareRefund, "/v1/transfers/0xfeed/refund"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(context.Background(), ref); err != nil {
				t.Fatal(err)
			}
			if gotPath != tt.path {
				t.Errorf("path = %s, want %s", gotPath, tt.path)
			}
			if gotMethod != http.MethodPost {
				t.Errorf("method = %s", gotMethod)
			}
		})
	}
}

func TestRecoveryPostRejected(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"refund window closed"}`))
	}))

	err := c.PrepareRefund(context.Background(), ref)
	if err == nil {
		t.Fatal("want error for HTTP 409")
	}
}
