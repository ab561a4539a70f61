package viz

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	road, header, label, value, muted lipgloss.Style
	good, warn, bad                   lipgloss.Style
	panel, help, graph                lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		road:   lipgloss.NewStyle().Foreground(t.Road).Padding(1, 2),
		header: lipgloss.NewStyle().Foreground(t.Accent).Bold(true).MarginBottom(1),
		label:  lipgloss.NewStyle().Foreground(t.Muted).Width(10),
		value:  lipgloss.NewStyle().Foreground(t.Text),
		muted:  lipgloss.NewStyle().Foreground(t.Muted),
		good:   lipgloss.NewStyle().Foreground(t.Good).Bold(true),
		warn:   lipgloss.NewStyle().Foreground(t.Warn).Bold(true),
		bad:    lipgloss.NewStyle().Foreground(t.Bad).Bold(true),
		panel:  lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(t.Muted).Padding(1, 2).Width(48),
		help:   lipgloss.NewStyle().Foreground(t.Muted).Italic(true).MarginTop(1),
		graph:  lipgloss.NewStyle().Foreground(t.Accent).Padding(1, 0),
	}
}

// Gauge renders v in [-limit, limit] as a bar growing left or right from
// the centre mark.
func Gauge(v, limit float64, width int) string {
	half := width / 2
	if half < 1 || limit <= 0 {
		return "|"
	}
	n := int(math.Round(math.Min(math.Abs(v)/limit, 1) * float64(half)))
	left, right := strings.Repeat("░", half), strings.Repeat("░", half)
	if v < 0 {
		left = strings.Repeat("░", half-n) + strings.Repeat("█", n)
	} else {
		right = strings.Repeat("█", n) + strings.Repeat("░", half-n)
	}
	return left + "|" + right
}
