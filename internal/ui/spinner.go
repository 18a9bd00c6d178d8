package ui

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrInterrupted is returned when the user presses ctrl+c while a spinner
// is showing.
var ErrInterrupted = errors.New("interrupted")

type doneMsg struct{ err error }

type spinnerModel struct {
	spinner spinner.Model
	label   string
	err     error
	done    bool
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case doneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.done = true
			m.err = ErrInterrupted
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	return "  " + m.spinner.View() + " " + m.label + "\n"
}

// Spin runs fn while showing label next to a spinner. Without a terminal
// the label is printed once instead.
func Spin(out io.Writer, label string, fn func() error) error {
	if !IsTerminal() {
		_, _ = fmt.Fprintf(out, "  %s...\n", label)
		return fn()
	}

	m := spinnerModel{
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(StepRunningStyle)),
		label:   label,
	}
	p := tea.NewProgram(m, tea.WithOutput(out))
	go func() {
		p.Send(doneMsg{err: fn()})
	}()

	final, err := p.Run()
	if err != nil {
		return err
	}
	return final.(spinnerModel).err
}
