package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/logflow/procmine/pkg/progress"
)

// barWidth is the number of cells of the text bar.
const barWidth = 30

// NewProgressBar returns a progress.Func drawing a progress bar on w.
// The bar is created on the first report and resized if total grows.
func NewProgressBar(w io.Writer, description string) progress.Func {
	var bar *progressbar.ProgressBar
	return func(current, total int) {
		if bar == nil {
			bar = newBar(w, int64(total), description)
		}
		if int64(total) != bar.GetMax64() {
			bar.ChangeMax64(int64(total))
		}
		bar.Set64(int64(current))
	}
}

func newBar(w io.Writer, total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(false),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "",
			BarEnd:        "",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

// RenderBar draws "[#####     ] 42%" with a 30-cell bar. A zero total
// renders as complete.
func RenderBar(current, total int) string {
	pct := 100
	if total > 0 {
		pct = current * 100 / total
	}
	pct = min(max(pct, 0), 100)
	filled := pct * barWidth / 100
	return fmt.Sprintf("[%s%s] %d%%", strings.Repeat("#", filled), strings.Repeat(" ", barWidth-filled), pct)
}

// NewTextProgress returns a progress.Func redrawing RenderBar in place on w,
// ending the line once the run is complete. It suits terminals without
// unicode support and log files.
func NewTextProgress(w io.Writer) progress.Func {
	return func(current, total int) {
		line := RenderBar(current, total)
		if current >= total {
			fmt.Fprintf(w, "\r%s\n", line)
			return
		}
		fmt.Fprintf(w, "\r%s", line)
	}
}

// ClearConsole erases the terminal and moves the cursor home.
func ClearConsole(w io.Writer) {
	fmt.Fprint(w, "\033[H\033[2J")
}

// ClearLine clears the current line.
func ClearLine(w io.Writer) {
	fmt.Fprint(w, "\r\033[K")
}
