package habits

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/habitkeep/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	monthStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Width(8)
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	emptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

const (
	doneCell  = "■"
	emptyCell = "□"
)

// Heatmap renders the n days ending at end, one row per YYYY/MM month.
func Heatmap(h *models.Habit, end models.Day, n int) string {
	var (
		b     strings.Builder
		month string
	)
	b.WriteString(titleStyle.Render(h.Name()))
	for _, day := range models.LastDays(end, n) {
		if label := day.MonthLabel(); label != month {
			month = label
			b.WriteString("\n")
			b.WriteString(monthStyle.Render(label))
		}
		if h.IsDone(day) {
			b.WriteString(doneStyle.Render(doneCell))
		} else {
			b.WriteString(emptyStyle.Render(emptyCell))
		}
	}
	return b.String()
}

// strip renders the last n days as a single row, for list output.
func strip(h *models.Habit, end models.Day, n int) string {
	var b strings.Builder
	for _, day := range models.LastDays(end, n) {
		if h.IsDone(day) {
			b.WriteString(doneStyle.Render(doneCell))
		} else {
			b.WriteString(emptyStyle.Render(emptyCell))
		}
	}
	return b.String()
}

func statusTag(s models.Status) string {
	switch s {
	case models.StatusArchived:
		return " " + warnStyle.Render("["+s.Label()+"]")
	case models.StatusSoftDeleted:
		return " " + errorStyle.Render("["+s.Label()+"]")
	}
	return ""
}
