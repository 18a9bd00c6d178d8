package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// RenderTable renders rows with a header line. highlight is a row index to
// emphasise, or -1 for none.
func RenderTable(headers []string, rows [][]string, highlight int) string {
	if len(rows) == 0 {
		return StepPendingStyle.Render("  (none)")
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(MutedColor)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle.Padding(0, 1)
			case row == highlight:
				return TableHighlightStyle.Padding(0, 1)
			default:
				return TableCellStyle.Padding(0, 1)
			}
		})

	return t.Render()
}
