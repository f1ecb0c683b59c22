package bridgewatch

// BridgeStatus is a status code reported by the bridging network. The set is
// open: codes not listed here may appear and must be ignored by consumers.
type BridgeStatus string

const (
	// StatusPending means the source transaction is still confirming.
	StatusPending BridgeStatus = "pending"

	// StatusSourceConfirmed means the source chain has confirmed the deposit.
	StatusSourceConfirmed BridgeStatus = "source_confirmed"

	// StatusBridgeConfirmed means the bridge network has validated the transfer.
	StatusBridgeConfirmed BridgeStatus = "bridge_confirmed"

	// StatusDestinationExecuting means the destination transaction is being executed.
	StatusDestinationExecuting BridgeStatus = "destination_executing"

	// StatusExecuted and StatusCompleted both mean the transfer finished
	// successfully. Different bridge versions report one or the other.
	StatusExecuted  BridgeStatus = "executed"
	StatusCompleted BridgeStatus = "completed"

	// StatusError and StatusFailed mean the current attempt failed and will
	// not progress without intervention.
	StatusError  BridgeStatus = "error"
	StatusFailed BridgeStatus = "failed"
)

// Terminal reports whether the status ends the current attempt.
func (s BridgeStatus) Terminal() bool {
	switch s {
	case StatusExecuted, StatusCompleted, StatusError, StatusFailed:
		return true
	}
	return false
}

// StatusReport is one poll result from the bridge network.
type StatusReport struct {
	Status  BridgeStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}
