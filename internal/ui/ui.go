// Package ui renders command output. Styled text goes to terminals, plain
// text goes to pipes and CI.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Writer formats command output with the appropriate styles.
type Writer struct {
	out    io.Writer
	styles Styles
}

// New creates a Writer for out. Styling is disabled when out is not a
// terminal or NO_COLOR is set.
func New(out io.Writer) *Writer {
	noColor := DetectNoColor() || !IsTTY(out)
	return &Writer{out: out, styles: GetStyles(noColor)}
}

// NewPlain creates a Writer with styling disabled, for tests and pipes.
func NewPlain(out io.Writer) *Writer {
	return &Writer{out: out, styles: NoColorStyles()}
}

// Styles exposes the active styles for callers that compose their own rows.
func (w *Writer) Styles() Styles {
	return w.styles
}

// Header prints a bold section header.
func (w *Writer) Header(msg string) {
	_, _ = fmt.Fprintln(w.out, w.styles.Header.Render(msg))
}

// Headerf prints a formatted section header.
func (w *Writer) Headerf(format string, args ...any) {
	w.Header(fmt.Sprintf(format, args...))
}

// Line prints a plain line.
func (w *Writer) Line(msg string) {
	_, _ = fmt.Fprintln(w.out, msg)
}

// Linef prints a formatted line.
func (w *Writer) Linef(format string, args ...any) {
	w.Line(fmt.Sprintf(format, args...))
}

// Labelf prints a formatted line in the label style.
func (w *Writer) Labelf(format string, args ...any) {
	_, _ = fmt.Fprintln(w.out, w.styles.Label.Render(fmt.Sprintf(format, args...)))
}

// Warningf prints a formatted warning.
func (w *Writer) Warningf(format string, args ...any) {
	_, _ = fmt.Fprintln(w.out, w.styles.Warning.Render(fmt.Sprintf(format, args...)))
}

// Rule prints a dim horizontal separator.
func (w *Writer) Rule() {
	_, _ = fmt.Fprintln(w.out, w.styles.Dim.Render(strings.Repeat("─", 56)))
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if the NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}
