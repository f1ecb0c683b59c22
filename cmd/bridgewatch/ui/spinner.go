package ui

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type spinnerDoneMsg struct{ err error }

type spinnerModel struct {
	spinner spinner.Model
	message string
	err     error
	done    bool
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinnerDoneMsg:
		m.err = msg.err
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.err = context.Canceled
			m.done = true
			return m, tea.Quit
		}
		return m, nil
	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
}

func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s %s", m.spinner.View(), m.message)
}

// RunWithSpinner runs fn while showing a spinner with the given message.
// Falls back to a plain log line when the terminal is not interactive.
func RunWithSpinner(ctx context.Context, message string, fn func(context.Context) error) error {
	if IsNoInteraction() {
		fmt.Fprintln(os.Stderr, InfoMsg("%s", message))
		return fn(ctx)
	}

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = AccentStyle

	model := spinnerModel{spinner: sp, message: message}
	prog := tea.NewProgram(model, tea.WithOutput(os.Stderr))

	fnCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		err := fn(fnCtx)
		prog.Send(spinnerDoneMsg{err: err})
	}()

	final, err := prog.Run()
	if err != nil {
		return fmt.Errorf("spinner: %w", err)
	}
	if m, ok := final.(spinnerModel); ok {
		if m.err == context.Canceled {
			cancel()
			return fmt.Errorf("interrupted")
		}
		return m.err
	}
	return nil
}
