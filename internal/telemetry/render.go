package telemetry

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Padding(0, 2)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")).MarginBottom(1)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
)

// Plot draws series as an ASCII line chart. An empty series gives "".
func Plot(series []float64, caption string) string {
	if len(series) == 0 {
		return ""
	}
	width := len(series)
	if width > 80 {
		width = 80
	}
	return asciigraph.Plot(series,
		asciigraph.Height(10),
		asciigraph.Width(width),
		asciigraph.Caption(caption))
}

// RenderSummary formats a sample as a bordered key/value panel.
func RenderSummary(title string, s Sample) string {
	rows := []struct {
		label string
		value string
	}{
		{"tick", fmt.Sprintf("%d", s.Tick)},
		{"agents", fmt.Sprintf("%d", s.Agents)},
		{"centroid", fmt.Sprintf("(%.3f, %.3f)", s.CentroidX, s.CentroidY)},
		{"mean speed", fmt.Sprintf("%.4f ± %.4f", s.MeanSpeed, s.SpeedStdDev)},
		{"max speed", fmt.Sprintf("%.4f", s.MaxSpeed)},
		{"polarization", fmt.Sprintf("%.3f", s.Polarization)},
		{"spread", fmt.Sprintf("%.3f", s.Spread)},
		{"out of bounds", fmt.Sprintf("%d", s.OutOfBounds)},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	for _, r := range rows {
		b.WriteString("\n")
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(r.label), valueStyle.Render(r.value)))
	}
	return panelStyle.Render(b.String())
}

// FormatLine is the compact one-line form used when listing many samples.
func FormatLine(s Sample) string {
	return fmt.Sprintf("tick %6d  centroid (%8.3f, %8.3f)  speed %.4f  polarization %.3f  spread %.3f  out %d",
		s.Tick, s.CentroidX, s.CentroidY, s.MeanSpeed, s.Polarization, s.Spread, s.OutOfBounds)
}
