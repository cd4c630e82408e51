package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/hivetools/hive/pkg/classify"
	"github.com/hivetools/hive/pkg/engine"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	statusStyles = map[classify.Status]lipgloss.Style{
		classify.StatusStarting:   lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		classify.StatusRunning:    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		classify.StatusNeedsInput: lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
		classify.StatusIdle:       mutedStyle,
		classify.StatusDone:       accentStyle,
		classify.StatusUnknown:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	}
)

func renderStatus(status classify.Status, stale bool) string {
	style, ok := statusStyles[status]
	if !ok {
		style = mutedStyle
	}
	label := style.Render(status.Label())
	if stale {
		label += mutedStyle.Render(" (stale)")
	}
	return label
}

// renderSnapshot formats a snapshot as a human-readable session table
// followed by the pending task list.
func renderSnapshot(snap *engine.Snapshot) string {
	var b strings.Builder

	if snap.ManagerDown {
		b.WriteString(statusStyles[classify.StatusUnknown].Render("tmux server unreachable, showing last known state"))
		b.WriteString("\n\n")
	}

	if len(snap.Sessions) == 0 {
		b.WriteString(mutedStyle.Render("No active sessions. Start one with 'hive new'."))
		b.WriteString("\n")
	} else {
		rows := make([][]string, 0, len(snap.Sessions)+1)
		rows = append(rows, []string{"SESSION", "AGENT", "STATUS", "ACTIVITY", "TASK"})
		for _, rec := range snap.Sessions {
			agent := rec.Agent
			if rec.Privileged {
				agent += " ⚡"
			}
			rows = append(rows, []string{
				rec.Session,
				agent,
				renderStatus(rec.Status, rec.Stale),
				humanizeSince(rec.LastActivity, snap.TakenAt),
				rec.TaskTitle,
			})
		}
		b.WriteString(renderColumns(rows))
	}

	if len(snap.PendingTasks) > 0 {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render(fmt.Sprintf("Pending tasks (%d)", len(snap.PendingTasks))))
		b.WriteString("\n")
		for _, task := range snap.PendingTasks {
			due := ""
			if task.Due != nil {
				due = mutedStyle.Render(" due " + task.Due.Format("Jan 02"))
			}
			b.WriteString(fmt.Sprintf("  %s %s%s\n", mutedStyle.Render("•"), task.Title, due))
		}
	}

	return b.String()
}

// renderColumns lays out rows with padded columns. Widths are computed
// on the unstyled text so ANSI escape codes do not skew the alignment.
func renderColumns(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	for rowIdx, row := range rows {
		for i, cell := range row {
			text := cell
			if rowIdx == 0 {
				text = headerStyle.Render(cell)
			}
			b.WriteString(text)
			if i < len(row)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(cell)+2))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func humanizeSince(t time.Time, now time.Time) string {
	if t.IsZero() {
		return mutedStyle.Render("-")
	}
	d := now.Sub(t)
	switch {
	case d < time.Second:
		return "now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return t.Format("Jan 02")
	}
}
