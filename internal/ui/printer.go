package ui

import (
	"fmt"
	"io"
	"os"
)

// Printer writes UI components to a writer. Commands hold one per run.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{out: w, width: GetTerminalWidth()}
}

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer {
	return p.out
}

// Width returns the current terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Printf writes formatted content.
func (p *Printer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

func (p *Printer) PrintHeader(title, command string, params map[string]string) {
	p.Println(NewHeader(title, command, params).SetWidth(p.width).Render())
	p.Newline()
}

func (p *Printer) PrintSuccess(title string, details map[string]string) {
	p.Println(NewSuccessResult(title, details).SetWidth(p.width).Render())
}

func (p *Printer) PrintWarning(title string, details map[string]string) {
	p.Println(NewWarningResult(title, details).SetWidth(p.width).Render())
}

// PrintError prints a failure box with troubleshooting tips.
func (p *Printer) PrintError(title string, err error, troubleshooting []string) {
	p.Println(NewFailureResult(title, err, troubleshooting).SetWidth(p.width).Render())
}

// PrintTable prints rows under headers. highlight is a row index to
// emphasise, or -1.
func (p *Printer) PrintTable(headers []string, rows [][]string, highlight int) {
	p.Println(RenderTable(headers, rows, highlight))
}
