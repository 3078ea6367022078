package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/investlens/lenscore/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1).
			MarginBottom(1)

	stageStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6"))

	modelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981")).
		Bold(true)

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	reportStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#10B981")).
			Padding(1, 2).
			Width(80)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			MarginTop(1)
)

// RenderEvent prints one debate event as a progress line.
func RenderEvent(ev models.Event) {
	switch {
	case ev.Stage == models.StageDone:
		fmt.Println(okStyle.Render("✔ consensus reached"))
	case ev.Stage == models.StageFailed:
		fmt.Println(errStyle.Render("✘ " + ev.Message))
	case ev.Status == models.StatusError:
		fmt.Printf("%s %s %s\n", stageStyle.Render("["+string(ev.Stage)+"]"), modelStyle.Render(ev.Model), errStyle.Render(ev.Message))
	case ev.Model != "":
		fmt.Printf("%s %s answered\n", stageStyle.Render("["+string(ev.Stage)+"]"), modelStyle.Render(ev.Model))
	default:
		fmt.Printf("%s %s\n", stageStyle.Render("["+string(ev.Stage)+"]"), string(ev.Status))
	}
}

// RenderReport prints the final consensus report.
func RenderReport(report *models.ConsensusReport) {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("InvestLens Verdict — %s", report.Ticker)))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Executive Summary"))
	b.WriteString("\n" + report.Summary + "\n")

	b.WriteString(sectionStyle.Render("Bullish Case"))
	b.WriteString("\n" + report.BullishCase + "\n")

	b.WriteString(sectionStyle.Render("Bearish Case"))
	b.WriteString("\n" + report.BearishCase + "\n")

	b.WriteString(sectionStyle.Render("Sentiment / Plan"))
	b.WriteString("\n" + report.SentimentAnalysis + "\n")

	b.WriteString(sectionStyle.Render("Confidence"))
	b.WriteString(fmt.Sprintf("\n%d / 100\n", report.ConfidenceScore))

	fmt.Println(reportStyle.Render(b.String()))
}
