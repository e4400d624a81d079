package tui

import (
	"fmt"

	"sart-go/internal/sart"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var resultHeaders = []string{"", "Trials", "Correct", "Commission", "Omission", "RT (ms)", "Accuracy"}

// ResultTable renders one row per labelled result.
func ResultTable(labels []string, results []sart.Result) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers(resultHeaders...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Bold(true).Foreground(ColorAccent)
			}
			if col > 0 {
				return s.Align(lipgloss.Right)
			}
			return s
		})
	for i, r := range results {
		t.Row(
			labels[i],
			fmt.Sprint(r.TotalTrials),
			fmt.Sprint(r.CorrectResponses),
			fmt.Sprint(r.CommissionErrors),
			fmt.Sprint(r.OmissionErrors),
			fmt.Sprintf("%.1f", r.AverageRT),
			fmt.Sprintf("%.1f%%", r.Accuracy),
		)
	}
	return t.Render()
}
