package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type menuModel struct {
	table    table.Model
	selected int
}

func (m menuModel) Init() tea.Cmd { return nil }

func (m menuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.selected = -1
			return m, tea.Quit
		case "enter":
			m.selected = m.table.Cursor()
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m menuModel) View() string {
	help := MutedStyle.Render("↑/↓ move · enter select · q cancel")
	return m.table.View() + "\n" + help + "\n"
}

// SelectRow shows an interactive table and returns the index of the chosen
// row, or -1 when the user cancels. Requires an interactive terminal.
func SelectRow(headers []string, rows [][]string) (int, error) {
	if IsNoInteraction() {
		return -1, fmt.Errorf("interactive selection requires a terminal")
	}

	columns := make([]table.Column, len(headers))
	for i, h := range headers {
		width := len(h)
		for _, row := range rows {
			if i < len(row) && len(row[i]) > width {
				width = len(row[i])
			}
		}
		columns[i] = table.Column{Title: h, Width: width + 2}
	}

	tableRows := make([]table.Row, len(rows))
	for i, row := range rows {
		tableRows[i] = table.Row(row)
	}

	height := len(rows) + 1
	if height > 12 {
		height = 12
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(tableRows),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(faint).
		BorderBottom(true).
		Bold(true).
		Foreground(purple)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("231")).
		Background(purple).
		Bold(false)
	t.SetStyles(styles)

	prog := tea.NewProgram(menuModel{table: t}, tea.WithOutput(os.Stderr))
	final, err := prog.Run()
	if err != nil {
		return -1, fmt.Errorf("menu: %w", err)
	}
	m, ok := final.(menuModel)
	if !ok {
		return -1, fmt.Errorf("menu: unexpected model")
	}
	return m.selected, nil
}
