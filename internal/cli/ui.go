package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	styleBarDone = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	styleBarRest = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	styleDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

const barWidth = 30

// printProgress redraws a single-line progress bar on stderr.
func printProgress(label string, frac float64) {
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	filled := int(frac * barWidth)
	bar := styleBarDone.Render(strings.Repeat("█", filled)) +
		styleBarRest.Render(strings.Repeat("░", barWidth-filled))
	fmt.Fprintf(os.Stderr, "\r%s %s %s", styleDim.Render(label), bar, styleDim.Render(fmt.Sprintf("%3.0f%%", frac*100)))
}

// clearProgress ends the progress line.
func clearProgress() {
	fmt.Fprint(os.Stderr, "\n")
}
