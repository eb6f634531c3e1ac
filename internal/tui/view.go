package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ridgelee/AI-Agent---Care-Plan/internal/model"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	busyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	noteStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
	activePanelStyle = panelStyle.BorderForeground(lipgloss.Color("#5B8DEF"))

	statusStyles = map[model.Status]lipgloss.Style{
		model.StatusPending:    lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC")).Bold(true),
		model.StatusProcessing: lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true),
		model.StatusCompleted:  lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true),
		model.StatusFailed:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
	}
)

const planPreviewLines = 12

// View implements tea.Model.
func (a *App) View() string {
	width := a.width
	if width == 0 {
		width = 100
	}
	half := max(30, width/2-2)

	left := a.panel(a.focus == focusOrder, half, a.orderView(half-4))
	right := a.panel(a.focus != focusOrder, half, a.searchView())
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Care Plan Orders"),
		body,
		a.footer(),
	)
}

func (a *App) panel(active bool, width int, content string) string {
	style := panelStyle
	if active {
		style = activePanelStyle
	}
	return style.Width(width).Render(content)
}

func (a *App) orderView(width int) string {
	rec, ok := a.tr.Store.Active()
	if !ok {
		return labelStyle.Render("No order yet. Submit one with `careplan submit` or search and select.")
	}
	var lines []string
	field := func(label, value string) {
		if value != "" {
			lines = append(lines, labelStyle.Render(label+": ")+value)
		}
	}
	field("Order", rec.OrderID)
	lines = append(lines, labelStyle.Render("Status: ")+StatusText(rec.Status))
	if rec.Patient != nil {
		patient := rec.Patient.DisplayName()
		if rec.Patient.MRN != "" {
			patient += " (MRN " + rec.Patient.MRN + ")"
		}
		field("Patient", patient)
	}
	if rec.Medication != nil {
		field("Medication", rec.Medication.Name)
	}
	field("Message", rec.Message)
	if rec.Error != nil {
		prefix := "Error: "
		if rec.Error.Transient {
			prefix = "Refresh failed: "
		}
		lines = append(lines, errorStyle.Render(prefix)+rec.Error.Message)
	}
	if rec.HasCarePlan() {
		lines = append(lines, "", titleStyle.Render("Care Plan"))
		lines = append(lines, preview(rec.CarePlan.Content, planPreviewLines, width)...)
		if a.saver != nil {
			lines = append(lines, "", noteStyle.Render("[d] download care plan"))
		}
	}
	return strings.Join(lines, "\n")
}

func (a *App) searchView() string {
	input := a.input.View()
	if len(a.results.Items()) == 0 {
		return input + "\n\n" + labelStyle.Render("Press / to search, enter to run.")
	}
	return input + "\n\n" + a.results.View()
}

func (a *App) footer() string {
	var parts []string
	if busy := a.busy(); len(busy) > 0 {
		parts = append(parts, a.spin.View()+busyStyle.Render(strings.Join(busy, ", ")))
	}
	if a.errMsg != "" {
		parts = append(parts, errorStyle.Render(a.errMsg))
	} else if a.notice != "" {
		parts = append(parts, noteStyle.Render(a.notice))
	}
	parts = append(parts, hintStyle.Render(a.hints()))
	return strings.Join(parts, "\n")
}

func (a *App) hints() string {
	switch a.focus {
	case focusSearch:
		return "enter search · tab results · esc back · ctrl+c quit"
	case focusResults:
		return "↑/↓ move · enter open · / search · esc back · ctrl+c quit"
	}
	return "r refresh · / search · tab results · d download · q quit"
}

// StatusText renders the status label with its color. Unknown statuses are
// left uncolored.
func StatusText(s model.Status) string {
	style, ok := statusStyles[s]
	if !ok {
		return s.Label()
	}
	return style.Render(s.Label())
}

func preview(content string, maxLines, width int) []string {
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	truncated := len(lines) > maxLines
	if truncated {
		lines = lines[:maxLines]
	}
	for i, l := range lines {
		if width > 1 && lipgloss.Width(l) > width {
			r := []rune(l)
			lines[i] = string(r[:min(len(r), max(1, width-1))]) + "…"
		}
	}
	if truncated {
		lines = append(lines, labelStyle.Render("… (download for the full plan)"))
	}
	return lines
}
