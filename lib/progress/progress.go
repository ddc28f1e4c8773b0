// Package progress narrates build stages to the user.
package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

const (
	colorStep = lipgloss.Color("#7C3AED")
	colorWarn = lipgloss.Color("#F59E0B")
)

// Reporter receives one line per build stage.
type Reporter interface {
	// Step announces a stage before it starts.
	Step(format string, args ...any)
	// Warn reports a recoverable problem, such as a busy umount being retried.
	Warn(format string, args ...any)
}

// Writer prints "++ step..." and "-- warning" lines to an io.Writer. Markers
// are colored only when the writer is a terminal.
type Writer struct {
	mu        sync.Mutex
	w         io.Writer
	stepStyle lipgloss.Style
	warnStyle lipgloss.Style
}

// New returns a Writer printing to w.
func New(w io.Writer) *Writer {
	r := lipgloss.NewRenderer(w)
	return &Writer{
		w:         w,
		stepStyle: r.NewStyle().Bold(true).Foreground(colorStep),
		warnStyle: r.NewStyle().Foreground(colorWarn),
	}
}

func (p *Writer) Step(format string, args ...any) {
	p.line(p.stepStyle.Render("++"), format, args...)
}

func (p *Writer) Warn(format string, args ...any) {
	p.line(p.warnStyle.Render("--"), format, args...)
}

func (p *Writer) line(marker, format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "%s %s\n", marker, fmt.Sprintf(format, args...))
}

// Discard is a Reporter that prints nothing.
var Discard Reporter = discard{}

type discard struct{}

func (discard) Step(string, ...any) {}
func (discard) Warn(string, ...any) {}
