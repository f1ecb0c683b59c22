package tracker

import (
	"time"

	"bridgewatch"
)

// confirmIndex maps a progress status onto the step index it confirms.
// A status only applies while CurrentStep has not passed that index; poll
// responses can arrive duplicated or stale, and a stale status must never
// move the snapshot backward.
func confirmIndex(status bridgewatch.BridgeStatus) (int, bool) {
	switch status {
	case bridgewatch.StatusSourceConfirmed:
		return stepSourceConfirm, true
	case bridgewatch.StatusBridgeConfirmed:
		return stepBridgeProcess, true
	case bridgewatch.StatusDestinationExecuting:
		return stepDestPrepare, true
	}
	return 0, false
}

// Transition applies one bridge status report to a snapshot and returns the
// resulting snapshot. It is pure: the input is never mutated, unrecognized
// statuses and guarded (stale) statuses return the input unchanged.
func Transition(snap Snapshot, report bridgewatch.StatusReport) Snapshot {
	switch report.Status {
	case bridgewatch.StatusExecuted, bridgewatch.StatusCompleted:
		return complete(snap)
	case bridgewatch.StatusError, bridgewatch.StatusFailed:
		return fail(snap, report.Message)
	}

	idx, ok := confirmIndex(report.Status)
	if !ok {
		// pending or a code this client does not know.
		return snap
	}
	return advance(snap, idx)
}

// advance marks every step up to confirmed as completed and activates the
// next one. Stale confirmations (already passed) are dropped.
func advance(snap Snapshot, confirmed int) Snapshot {
	if snap.Terminal() || snap.CurrentStep > confirmed {
		return snap
	}
	// Recovery may have swapped in a shorter (refund) sequence; forward
	// progress statuses do not apply to it.
	if confirmed+1 >= len(snap.Steps) {
		return snap
	}

	out := snap.Clone()
	now := time.Now()

	for i := 0; i <= confirmed; i++ {
		if out.Steps[i].Status != bridgewatch.StepCompleted {
			out.Steps[i].Status = bridgewatch.StepCompleted
			out.Steps[i].Timestamp = now
		}
	}
	next := confirmed + 1
	out.Steps[next].Status = bridgewatch.StepActive
	out.Steps[next].Timestamp = now
	out.CurrentStep = next
	out.ActiveRoute = routeForStep(next)

	syncRoute(&out)
	return out
}

// complete drives every remaining step and route node to completed and
// stops polling. Applying it to an already terminal snapshot is a no-op.
func complete(snap Snapshot) Snapshot {
	if snap.Terminal() {
		return snap
	}

	out := snap.Clone()
	now := time.Now()
	for i := range out.Steps {
		if out.Steps[i].Status != bridgewatch.StepCompleted {
			out.Steps[i].Status = bridgewatch.StepCompleted
			out.Steps[i].Timestamp = now
		}
	}
	for i := range out.RouteNodes {
		out.RouteNodes[i].Status = bridgewatch.StepCompleted
	}
	out.CurrentStep = len(out.Steps) - 1
	out.ActiveRoute = len(out.RouteNodes) - 1
	out.Err = ""
	out.Polling = false
	return out
}

// fail marks the step the transfer died on, and its route node, as failed.
// Duplicate failure reports after the first are dropped.
func fail(snap Snapshot, message string) Snapshot {
	if snap.Terminal() {
		return snap
	}

	out := snap.Clone()
	idx := out.CurrentStep
	// Never blame the initiation step; it succeeded or tracking would not
	// have started. The refund sequence has no such step.
	if len(out.Steps) == stepCount && idx < 1 {
		idx = 1
	}
	out.Steps[idx].Status = bridgewatch.StepFailed
	out.Steps[idx].Timestamp = time.Now()

	route := out.routeFor(idx)
	out.RouteNodes[route].Status = bridgewatch.StepFailed

	out.CurrentStep = idx
	out.ActiveRoute = route
	if message == "" {
		message = "transfer failed"
	}
	out.Err = message
	out.Polling = false
	return out
}

// syncRoute recomputes route-node progress from step progress: a node is
// completed once all of its steps are, and active while the node holding
// the bridge leg is being worked. Destination activation is reported
// explicitly by the bridge (destination_executing), so a node is only
// marked active here when one of its steps already is.
func syncRoute(s *Snapshot) {
	for node := range s.RouteNodes {
		if s.RouteNodes[node].Status == bridgewatch.StepFailed {
			continue
		}
		all := true
		for i := range s.Steps {
			if routeForStep(i) != node {
				continue
			}
			if s.Steps[i].Status != bridgewatch.StepCompleted {
				all = false
				break
			}
		}
		if all {
			s.RouteNodes[node].Status = bridgewatch.StepCompleted
		}
	}

	// Activate the node owning the current step, except the destination
	// node before its execution actually started (current step past
	// dest-prepare means the bridge reported destination_executing).
	node := routeForStep(s.CurrentStep)
	if s.RouteNodes[node].Status == bridgewatch.StepPending {
		if node != routeDest || s.CurrentStep > stepDestPrepare {
			s.RouteNodes[node].Status = bridgewatch.StepActive
		}
	}
}
