package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Confirm shows a warning box and reads one line from in. It returns true
// only if the line equals phrase.
func Confirm(in io.Reader, out io.Writer, title string, warnings []string, phrase string) bool {
	width := GetTerminalWidth()

	lines := []string{"", WarningTitleStyle.Render(fmt.Sprintf("   %s  WARNING  ─  %s", WarningMarker, title)), ""}
	for _, w := range warnings {
		lines = append(lines, lipgloss.NewStyle().Foreground(TextColor).Render("   • "+w))
	}
	lines = append(lines, "")

	_, _ = fmt.Fprintln(out, boxStyle(WarningColor, width).Render(strings.Join(lines, "\n")))
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprint(out, WarningTitleStyle.Render(fmt.Sprintf("To proceed, type %q and press Enter: ", phrase)))

	input, err := bufio.NewReader(in).ReadString('\n')
	_, _ = fmt.Fprintln(out)
	if err != nil && input == "" {
		return false
	}
	if strings.TrimSpace(input) == phrase {
		return true
	}

	_, _ = fmt.Fprintln(out, StepPendingStyle.Render("  Operation cancelled."))
	return false
}
