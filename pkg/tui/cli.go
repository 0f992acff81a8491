// Package tui renders procmine results for a terminal: styled reports,
// progress bars and tables. Nothing here is needed to mine a log.
package tui

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// Colors (Swiss minimal)
var (
	accent  = lipgloss.Color("#FF0000")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	white   = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
)

// Printer writes styled report lines to an io.Writer.
type Printer struct {
	out   io.Writer
	color bool
}

// NewPrinter creates a printer. With color off every style renders as plain text.
func NewPrinter(out io.Writer, color bool) *Printer {
	return &Printer{out: out, color: color}
}

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer {
	return p.out
}

func (p *Printer) render(style lipgloss.Style, s string) string {
	if !p.color {
		return s
	}
	return style.Render(s)
}

// Header prints the report title for a source.
func (p *Printer) Header(title, source string) {
	fmt.Fprintln(p.out)
	fmt.Fprintf(p.out, "  %s %s\n", p.render(titleStyle, title), p.render(mutedStyle, source))
	fmt.Fprintln(p.out)
}

// Section starts a named block.
func (p *Printer) Section(name string) {
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, p.render(accentStyle, "▸ "+name))
}

// KeyValue prints one aligned field.
func (p *Printer) KeyValue(key string, value any) {
	fmt.Fprintf(p.out, "  %s %s\n", p.render(mutedStyle, fmt.Sprintf("%-20s", key+":")), p.render(titleStyle, fmt.Sprint(value)))
}

// Success prints a completion line.
func (p *Printer) Success(msg string) {
	fmt.Fprintln(p.out, p.render(successStyle, "  ✓ "+msg))
}

// Warn prints a warning line.
func (p *Printer) Warn(msg string) {
	fmt.Fprintln(p.out, p.render(accentStyle, "  ✗ "+msg))
}

// Muted prints a de-emphasized line.
func (p *Printer) Muted(msg string) {
	fmt.Fprintln(p.out, p.render(mutedStyle, "  "+msg))
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}

// FormatCount formats a count with thousands separators.
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}

// FormatRate formats a per-second rate, e.g. "1.2M records/sec".
func FormatRate(perSec float64, unit string) string {
	return fmt.Sprintf("%s %s/sec", humanize.SIWithDigits(perSec, 1, ""), unit)
}
