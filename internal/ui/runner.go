package ui

import (
	"fmt"
	"io"
	"os"
	"time"
)

// RunnerConfig describes a multi-step command.
type RunnerConfig struct {
	Title     string
	Command   string
	Params    map[string]string
	StepNames []string

	// Troubleshoot, when set, turns a failure into tips for the result box.
	Troubleshoot func(error) []string

	Output io.Writer
}

// Runner prints the header, one line per finished step, and the result.
type Runner struct {
	config   RunnerConfig
	header   *Header
	progress *Progress
	out      io.Writer
	width    int
}

// NewRunner creates a runner for config.
func NewRunner(config RunnerConfig) *Runner {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	width := GetTerminalWidth()

	return &Runner{
		config:   config,
		header:   NewHeader(config.Title, config.Command, config.Params).SetWidth(width),
		progress: NewProgress(config.StepNames).SetWidth(width),
		out:      config.Output,
		width:    width,
	}
}

// Operation is the work a Runner wraps. The returned details are shown in
// the success box.
type Operation func(onStep StepCallback) (map[string]string, error)

// Run executes op and prints its outcome. The operation's error is
// returned unchanged.
func (r *Runner) Run(op Operation) error {
	start := time.Now()

	_, _ = fmt.Fprintln(r.out, r.header.Render())
	_, _ = fmt.Fprintln(r.out)

	details, err := op(r.onStep)
	elapsed := time.Since(start).Round(time.Millisecond)
	_, _ = fmt.Fprintln(r.out)

	if err != nil {
		var tips []string
		if r.config.Troubleshoot != nil {
			tips = r.config.Troubleshoot(err)
		}
		res := NewFailureResult(r.config.Title+" failed", err, tips).SetWidth(r.width)
		res.AddDetail("Duration", elapsed.String())
		_, _ = fmt.Fprintln(r.out, res.Render())
		return err
	}

	res := NewSuccessResult(r.config.Title+" complete", details).SetWidth(r.width)
	res.AddDetail("Duration", elapsed.String())
	_, _ = fmt.Fprintln(r.out, res.Render())
	return nil
}

func (r *Runner) onStep(stepNumber int, status StepStatus, message string) {
	r.progress.UpdateStep(stepNumber, status, message)
	if stepNumber < 1 || stepNumber > len(r.progress.Steps) {
		return
	}

	line := r.progress.renderStep(r.progress.Steps[stepNumber-1])
	if status == StepRunning {
		// Overwritten when the step finishes.
		_, _ = fmt.Fprint(r.out, line+"\r")
		return
	}
	_, _ = fmt.Fprintln(r.out, line)
}
