package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"hermes/pkg/ui"
)

// View renders the entire TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	now := m.now()
	var sections []string

	sections = append(sections, m.renderHeader())

	width := (m.width - 4) / 2
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatsPanel(width, now),
		m.renderCountdownPanel(width, now),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.renderFindsPanel(width),
		m.renderLogsPanel(width),
	)
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right))

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help, q to quit"))
	}

	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

// renderHeader renders the title line with the spinner and current status
func (m *Model) renderHeader() string {
	title := logoStyle.Render(fmt.Sprintf("HERMES  %d-character TikTok username monitor", m.targetLength))
	status := fmt.Sprintf("%s %s", m.spinner.View(), statsValueStyle.Render(m.status))
	return lipgloss.JoinVertical(lipgloss.Left, title, status)
}

// renderStatsPanel renders the run counters
func (m *Model) renderStatsPanel(width int, now time.Time) string {
	title := titleStyle.Render(" RUN STATS ")

	source := m.source
	if source == "" {
		source = "-"
	}

	hits := statsValueStyle.Render(fmt.Sprintf("%d", m.stats.RateLimitHits))
	if m.stats.RateLimitHits > 0 {
		hits = warningStyle.Render(fmt.Sprintf("%d", m.stats.RateLimitHits))
	}

	stats := []string{
		statLine("Strategy:", statsValueStyle.Render(source)),
		statLine("Session Time:", statsValueStyle.Render(formatDuration(m.stats.Elapsed(now)))),
		statLine("Requests:", statsValueStyle.Render(fmt.Sprintf("%d", m.stats.RequestsSent))),
		statLine("Request Rate:", speedStyle.Render(fmt.Sprintf("%.1f req/min", m.stats.RequestsPerMinute(now)))),
		statLine("Checked:", statsValueStyle.Render(fmt.Sprintf("%d", m.stats.CandidatesExamined))),
		statLine("Found:", successStyle.Render(fmt.Sprintf("%d", m.totalFound))),
		statLine("Known:", statsValueStyle.Render(fmt.Sprintf("%d", m.stats.KnownCount))),
		statLine("Rate Limits:", hits),
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, stats...)),
	)
}

// renderCountdownPanel renders the wait before the next check
func (m *Model) renderCountdownPanel(width int, now time.Time) string {
	title := titleStyle.Render(" NEXT CHECK ")

	var content string
	if left := m.NextCheckIn(now); left > 0 {
		m.countdown.Width = width - 8
		content = lipgloss.JoinVertical(lipgloss.Left,
			statLine("In:", statsValueStyle.Render(formatDuration(left))),
			m.countdown.ViewAs(m.CountdownFraction(now)),
		)
	} else {
		content = lipgloss.NewStyle().Foreground(dimWhite).Render("Checking now...")
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

// renderFindsPanel renders the most recent discoveries
func (m *Model) renderFindsPanel(width int) string {
	title := titleStyle.Render(" RECENT FINDS ")

	if len(m.recent) == 0 {
		content := lipgloss.NewStyle().Foreground(dimWhite).Render("No usernames found yet")
		return panelStyle.Width(width).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, content),
		)
	}

	var items []string
	for _, a := range m.recent {
		handle := foundStyle.Render("@" + a.Username)
		if a.Verified {
			handle += " " + verifiedStyle.Render("✓")
		}
		detail := lipgloss.NewStyle().Foreground(dimWhite).Render(
			fmt.Sprintf("%s followers  %s", ui.FormatCount(a.Followers), a.DiscoveredAt.Format("15:04:05")))
		items = append(items, fmt.Sprintf("%s  %s", handle, detail))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, items...)),
	)
}

// renderLogsPanel renders the logs panel
func (m *Model) renderLogsPanel(width int) string {
	title := titleStyle.Render(" ACTIVITY ")

	start := len(m.logMessages) - 10
	if start < 0 {
		start = 0
	}

	maxMsgLen := width - 25
	var logs []string
	for i := start; i < len(m.logMessages); i++ {
		log := m.logMessages[i]
		timestamp := logTimestampStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level))

		// truncate before styling so escape codes are never cut
		text := log.Message
		if maxMsgLen > 3 && len(text) > maxMsgLen {
			text = text[:maxMsgLen-3] + "..."
		}
		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, logMessageStyle.Render(text)))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = lipgloss.NewStyle().Foreground(dimWhite).Render("No activity yet...")
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

// renderHelp renders the help panel
func (m *Model) renderHelp() string {
	help := `
  Keys:
    q/Q      - Stop monitoring and quit
    ctrl+l   - Clear the activity log
    ?        - Toggle this help

  Colors:
    ` + successStyle.Render("Green") + `    - New username found
    ` + warningStyle.Render("Orange") + `   - Rate limited
    ` + errorStyle.Render("Red") + `      - Error
`

	return panelStyle.Width(m.width).Render(help)
}

func statLine(label, value string) string {
	return fmt.Sprintf("%s %s", statsLabelStyle.Render(label), value)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
