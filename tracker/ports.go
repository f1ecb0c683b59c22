package tracker

import (
	"context"

	"bridgewatch"
)

// StatusSource answers status polls for a transfer. bridge.Client satisfies
// this interface.
type StatusSource interface {
	TransferStatus(ctx context.Context, ref bridgewatch.TransferRef) (bridgewatch.StatusReport, error)
}

// RecoveryBackend prepares remedial submissions for a failed transfer.
// Each call is an opaque asynchronous operation; the tracker only resets
// its snapshot once the preparation succeeded.
type RecoveryBackend interface {
	PrepareRetry(ctx context.Context, ref bridgewatch.TransferRef) error
	PrepareAccelerate(ctx context.Context, ref bridgewatch.TransferRef) error
	PrepareRefund(ctx context.Context, ref bridgewatch.TransferRef) error
}
