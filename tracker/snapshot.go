// Package tracker derives a deterministic sequence of lifecycle steps for
// one cross-chain transfer by polling the bridge network, and synthesizes
// recovery actions when an attempt fails.
package tracker

import (
	"time"

	"bridgewatch"
)

// Step indices within a snapshot. The sequence is fixed at tracking start.
const (
	stepInitiate = iota
	stepSourceConfirm
	stepBridgeProcess
	stepDestPrepare
	stepDestConfirm
	stepCount
)

// Route node indices.
const (
	routeSource = iota
	routeBridge
	routeDest
	routeCount
)

// Snapshot is the complete tracking state of one transfer. It is replaced
// wholesale on every transition; callers always receive a copy.
type Snapshot struct {
	Steps       []bridgewatch.Step
	RouteNodes  []bridgewatch.RouteNode
	CurrentStep int
	ActiveRoute int
	Err         string
	Polling     bool
}

// NewSnapshot builds the initial state for a freshly submitted transfer:
// initiation is done, the source chain is confirming.
func NewSnapshot(ref bridgewatch.TransferRef) Snapshot {
	steps := forwardSteps(ref)
	steps[stepInitiate].Status = bridgewatch.StepCompleted
	steps[stepInitiate].Timestamp = time.Now()
	steps[stepSourceConfirm].Status = bridgewatch.StepActive

	nodes := forwardRoute(ref)
	nodes[routeSource].Status = bridgewatch.StepActive

	return Snapshot{
		Steps:       steps,
		RouteNodes:  nodes,
		CurrentStep: stepSourceConfirm,
		ActiveRoute: routeSource,
		Polling:     true,
	}
}

func forwardSteps(ref bridgewatch.TransferRef) []bridgewatch.Step {
	return []bridgewatch.Step{
		{
			ID:          "initiate",
			Title:       "Transfer initiated",
			Description: "Transaction submitted on " + ref.SourceChain,
			ChainID:     ref.SourceChain,
			Estimated:   30 * time.Second,
		},
		{
			ID:          "source-confirm",
			Title:       "Source confirmation",
			Description: "Waiting for confirmations on " + ref.SourceChain,
			ChainID:     ref.SourceChain,
			Estimated:   2 * time.Minute,
		},
		{
			ID:          "bridge-process",
			Title:       "Bridge processing",
			Description: "Bridge network validating the transfer",
			Estimated:   5 * time.Minute,
		},
		{
			ID:          "dest-prepare",
			Title:       "Destination preparation",
			Description: "Preparing execution on " + ref.DestChain,
			ChainID:     ref.DestChain,
			Estimated:   time.Minute,
		},
		{
			ID:          "dest-confirm",
			Title:       "Destination confirmation",
			Description: "Waiting for confirmations on " + ref.DestChain,
			ChainID:     ref.DestChain,
			Estimated:   2 * time.Minute,
		},
	}
}

func forwardRoute(ref bridgewatch.TransferRef) []bridgewatch.RouteNode {
	return []bridgewatch.RouteNode{
		{Chain: ref.SourceChain, DisplayName: ref.SourceChain},
		{Chain: "bridge", DisplayName: "Bridge network"},
		{Chain: ref.DestChain, DisplayName: ref.DestChain},
	}
}

// Clone returns a deep copy. Transitions never mutate their input.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Steps = make([]bridgewatch.Step, len(s.Steps))
	copy(out.Steps, s.Steps)
	out.RouteNodes = make([]bridgewatch.RouteNode, len(s.RouteNodes))
	copy(out.RouteNodes, s.RouteNodes)
	return out
}

// Completed reports whether every step finished successfully.
func (s Snapshot) Completed() bool {
	for _, st := range s.Steps {
		if st.Status != bridgewatch.StepCompleted {
			return false
		}
	}
	return len(s.Steps) > 0
}

// Failed reports whether the current attempt ended in failure.
func (s Snapshot) Failed() bool {
	for _, st := range s.Steps {
		if st.Status == bridgewatch.StepFailed {
			return true
		}
	}
	return false
}

// Terminal reports whether the snapshot reached an end state for the
// current attempt. Only an explicit recovery reset leaves this state.
func (s Snapshot) Terminal() bool {
	return s.Completed() || s.Failed()
}

// routeForStep maps a step index onto the route node it belongs to.
func routeForStep(step int) int {
	switch {
	case step <= stepSourceConfirm:
		return routeSource
	case step == stepBridgeProcess:
		return routeBridge
	default:
		return routeDest
	}
}

// routeFor resolves the route node for a step in this snapshot's sequence.
// The refund sequence is two steps long and runs the route in reverse.
func (s Snapshot) routeFor(step int) int {
	if len(s.Steps) == 2 {
		if step == 0 {
			return routeBridge
		}
		return routeDest
	}
	return routeForStep(step)
}
