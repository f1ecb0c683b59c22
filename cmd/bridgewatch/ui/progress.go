package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"bridgewatch"
	"bridgewatch/tracker"
)

var progressFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Progress renders a live transfer checklist: the route summary line on top,
// one line per step below. Redraws in place on interactive terminals,
// prints nothing incrementally otherwise (callers print a final summary).
type Progress struct {
	w io.Writer

	mu            sync.Mutex
	snap          tracker.Snapshot
	frame         int
	renderedLines int
	stopSpin      chan struct{}
	spinDone      chan struct{}
}

// NewProgress starts a progress renderer writing to w. Call Stop when the
// transfer reaches a terminal state or the caller gives up.
func NewProgress(w io.Writer, snap tracker.Snapshot) *Progress {
	p := &Progress{
		w:        w,
		snap:     snap.Clone(),
		stopSpin: make(chan struct{}),
		spinDone: make(chan struct{}),
	}
	if IsInteractive() {
		p.render()
		go p.spin()
	} else {
		close(p.spinDone)
	}
	return p
}

// Update redraws with a new snapshot.
func (p *Progress) Update(snap tracker.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap = snap.Clone()
	if IsInteractive() {
		p.render()
	}
}

// Stop halts the spinner and leaves the final frame on screen.
func (p *Progress) Stop() {
	select {
	case <-p.stopSpin:
	default:
		close(p.stopSpin)
	}
	<-p.spinDone

	p.mu.Lock()
	defer p.mu.Unlock()
	if IsInteractive() {
		p.render()
	} else {
		p.renderFinal()
	}
}

func (p *Progress) spin() {
	defer close(p.spinDone)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopSpin:
			return
		case <-ticker.C:
			p.mu.Lock()
			p.frame = (p.frame + 1) % len(progressFrames)
			p.render()
			p.mu.Unlock()
		}
	}
}

// render repaints the block in place. Caller holds p.mu.
func (p *Progress) render() {
	var sb strings.Builder
	if p.renderedLines > 0 {
		fmt.Fprintf(&sb, "\033[%dA", p.renderedLines)
	}

	lines := p.lines()
	for _, line := range lines {
		sb.WriteString("\033[2K" + line + "\n")
	}
	fmt.Fprint(p.w, sb.String())
	p.renderedLines = len(lines)
}

// renderFinal prints the block once, for non-interactive output.
func (p *Progress) renderFinal() {
	for _, line := range p.lines() {
		fmt.Fprintln(p.w, line)
	}
}

func (p *Progress) lines() []string {
	lines := []string{p.routeLine(), ""}
	for _, step := range p.snap.Steps {
		lines = append(lines, p.stepLine(step))
	}
	if p.snap.Err != "" {
		lines = append(lines, "", ErrorMsg("%s", p.snap.Err))
	}
	return lines
}

func (p *Progress) routeLine() string {
	parts := make([]string, 0, len(p.snap.RouteNodes))
	for _, node := range p.snap.RouteNodes {
		label := node.DisplayName
		switch node.Status {
		case bridgewatch.StepCompleted:
			label = SuccessStyle.Render(label)
		case bridgewatch.StepActive:
			label = AccentStyle.Render(label)
		case bridgewatch.StepFailed:
			label = ErrorStyle.Render(label)
		default:
			label = MutedStyle.Render(label)
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, MutedStyle.Render(" → "))
}

func (p *Progress) stepLine(step bridgewatch.Step) string {
	var icon, title string
	switch step.Status {
	case bridgewatch.StepCompleted:
		icon = SuccessStyle.Render("✓")
		title = step.Title
	case bridgewatch.StepFailed:
		icon = ErrorStyle.Render("✗")
		title = ErrorStyle.Render(step.Title)
	case bridgewatch.StepActive:
		icon = AccentStyle.Render(progressFrames[p.frame])
		title = step.Title
		if step.Estimated > 0 {
			title += " " + MutedStyle.Render("(~"+step.Estimated.String()+")")
		}
	default:
		icon = MutedStyle.Render("○")
		title = MutedStyle.Render(step.Title)
	}
	return "  " + icon + " " + title
}
