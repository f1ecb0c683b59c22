package bridgewatch

import "time"

// TransferRef identifies one cross-chain transfer being tracked.
type TransferRef struct {
	TxRef       string
	SourceChain string
	DestChain   string
}

// String returns the transaction reference, the form used in logs and APIs.
func (r TransferRef) String() string {
	return r.TxRef
}

// StepStatus describes the progress of a single lifecycle step.
type StepStatus uint8

const (
	StepPending StepStatus = iota
	StepActive
	StepCompleted
	StepFailed
)

func (s StepStatus) String() string {
	switch s {
	case StepPending:
		return "pending"
	case StepActive:
		return "active"
	case StepCompleted:
		return "completed"
	case StepFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Step is one fine-grained phase of a transfer's lifecycle. The step
// sequence is fixed when tracking begins; only statuses move.
type Step struct {
	ID          string
	Title       string
	Description string
	Status      StepStatus
	Timestamp   time.Time
	Estimated   time.Duration
	TxHash      string
	ChainID     string
}

// RouteNode is a coarse-grained view of the same progress, grouped by
// chain or network: source chain, bridge network, destination chain.
type RouteNode struct {
	Chain       string
	DisplayName string
	Status      StepStatus
}

// TransferDetails is the supplementary record the bridge network keeps for
// a transfer. It is merged into display state but never drives transitions.
type TransferDetails struct {
	TxRef        string    `json:"tx_ref"`
	SourceChain  string    `json:"source_chain"`
	DestChain    string    `json:"dest_chain"`
	Token        string    `json:"token"`
	Amount       string    `json:"amount"`
	SourceTxHash string    `json:"source_tx_hash"`
	DestTxHash   string    `json:"dest_tx_hash"`
	SubmittedAt  time.Time `json:"submitted_at"`
}
