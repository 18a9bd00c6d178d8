package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// StepStatus represents the current state of a step
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepComplete
	StepFailed
	StepSkipped
)

// Step is one entry of a multi-step operation.
type Step struct {
	Number  int
	Name    string
	Status  StepStatus
	Message string // e.g. "2 attempts"
}

// Progress tracks a fixed list of steps and renders them with a bar.
type Progress struct {
	Steps   []Step
	Current int
	Percent float64
	Width   int
	bar     progress.Model
}

// NewProgress creates a progress tracker for the named steps.
func NewProgress(names []string) *Progress {
	steps := make([]Step, len(names))
	for i, name := range names {
		steps[i] = Step{Number: i + 1, Name: name}
	}
	p := &Progress{Steps: steps}
	return p.SetWidth(GetTerminalWidth())
}

// SetWidth sets the terminal width for responsive rendering
func (p *Progress) SetWidth(width int) *Progress {
	p.Width = width
	barWidth := width - 20
	if barWidth < 20 {
		barWidth = 20
	}
	if barWidth > 50 {
		barWidth = 50
	}
	p.bar = progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth))
	return p
}

// UpdateStep sets a step's status and note. Out-of-range steps are ignored.
func (p *Progress) UpdateStep(stepNumber int, status StepStatus, message string) {
	if stepNumber < 1 || stepNumber > len(p.Steps) {
		return
	}
	step := &p.Steps[stepNumber-1]
	step.Status = status
	step.Message = message

	if status == StepRunning {
		p.Current = stepNumber
		return
	}

	done := 0
	for _, s := range p.Steps {
		if s.Status == StepComplete || s.Status == StepSkipped {
			done++
		}
	}
	p.Percent = float64(done) / float64(len(p.Steps))
}

// Render returns the bar followed by the step list.
func (p *Progress) Render() string {
	var b strings.Builder

	bar := fmt.Sprintf("%s  %3.0f%%  [%d/%d]", p.bar.ViewAs(p.Percent), p.Percent*100, p.Current, len(p.Steps))
	b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(bar))
	b.WriteString("\n\n")

	lines := make([]string, 0, len(p.Steps))
	for _, step := range p.Steps {
		lines = append(lines, p.renderStep(step))
	}
	b.WriteString(strings.Join(lines, "\n"))
	return b.String()
}

func (p *Progress) renderStep(step Step) string {
	var (
		marker string
		style  lipgloss.Style
	)
	switch step.Status {
	case StepComplete:
		marker, style = StepMarkerComplete, StepCompleteStyle
	case StepRunning:
		marker, style = StepMarkerRunning, StepRunningStyle
	case StepFailed:
		marker, style = FailureMarker, ErrorTitleStyle
	case StepSkipped:
		marker, style = StepMarkerSkipped, StepPendingStyle
	default:
		marker, style = StepMarkerPending, StepPendingStyle
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("  [%d/%d] ", step.Number, len(p.Steps)))
	b.WriteString(style.Render(step.Name))

	padding := 40 - lipgloss.Width(step.Name)
	if padding < 1 {
		padding = 1
	}
	b.WriteString(strings.Repeat(" ", padding))
	b.WriteString(style.Render(marker))

	if step.Message != "" {
		b.WriteString("  ")
		b.WriteString(StepNoteStyle.Render("(" + step.Message + ")"))
	}
	return b.String()
}

// String implements fmt.Stringer
func (p *Progress) String() string {
	return p.Render()
}

// StepCallback reports progress from inside an operation.
type StepCallback func(stepNumber int, status StepStatus, message string)
