package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"bridgewatch"
)

// TransferStatus polls the current status of a transfer. Chain names are
// passed along when known; some bridge deployments need them to route the
// lookup.
func (c *Client) TransferStatus(ctx context.Context, ref bridgewatch.TransferRef) (bridgewatch.StatusReport, error) {
	u := c.baseURL.JoinPath("/v1/transfers", ref.TxRef, "status")
	q := url.Values{}
	if ref.SourceChain != "" {
		q.Set("source", ref.SourceChain)
	}
	if ref.DestChain != "" {
		q.Set("dest", ref.DestChain)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return bridgewatch.StatusReport{}, fmt.Errorf("create status request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return bridgewatch.StatusReport{}, fmt.Errorf("query transfer status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return bridgewatch.StatusReport{}, apiError("transfer status", resp)
	}

	var report bridgewatch.StatusReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return bridgewatch.StatusReport{}, fmt.Errorf("decode status response: %w", err)
	}
	return report, nil
}

// TransferDetails fetches the supplementary record for a transfer. Unknown
// transfers return nil without error.
func (c *Client) TransferDetails(ctx context.Context, txRef string) (*bridgewatch.TransferDetails, error) {
	u := c.baseURL.JoinPath("/v1/transfers", txRef)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create details request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query transfer details: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, apiError("transfer details", resp)
	}

	var details bridgewatch.TransferDetails
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		return nil, fmt.Errorf("decode details response: %w", err)
	}
	return &details, nil
}

// PrepareRetry asks the bridge to resubmit the failed leg of a transfer.
func (c *Client) PrepareRetry(ctx context.Context, ref bridgewatch.TransferRef) error {
	return c.recoveryPost(ctx, ref, "retry")
}

// PrepareAccelerate asks the bridge to resubmit with a higher fee.
func (c *Client) PrepareAccelerate(ctx context.Context, ref bridgewatch.TransferRef) error {
	return c.recoveryPost(ctx, ref, "accelerate")
}

// PrepareRefund asks the bridge to unwind the transfer back to the source
// chain.
func (c *Client) PrepareRefund(ctx context.Context, ref bridgewatch.TransferRef) error {
	return c.recoveryPost(ctx, ref, "refund")
}

func (c *Client) recoveryPost(ctx context.Context, ref bridgewatch.TransferRef, action string) error {
	u := c.baseURL.JoinPath("/v1/transfers", ref.TxRef, action)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), nil)
	if err != nil {
		return fmt.Errorf("create %s request: %w", action, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s transfer: %w", action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return apiError(action, resp)
	}
	return nil
}

// apiError turns a non-2xx response into an error, preferring the server's
// own message when it sent one.
func apiError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return fmt.Errorf("%s: %s (HTTP %d)", op, payload.Message, resp.StatusCode)
		}
		if payload.Error != "" {
			return fmt.Errorf("%s: %s (HTTP %d)", op, payload.Error, resp.StatusCode)
		}
	}
	return fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
}
