package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"hermes/pkg/models"
	"hermes/pkg/scheduler"
)

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// Model is the dashboard state. It is only mutated from the bubbletea loop.
type Model struct {
	// UI components
	spinner   spinner.Model
	countdown progress.Model

	// Run state
	targetLength int
	source       string
	status       string
	stats        models.RunStatistics
	recent       []models.UserAccount
	maxRecent    int
	totalFound   int

	// Next check
	nextCheckAt time.Time
	waitTotal   time.Duration

	// UI state
	width          int
	height         int
	showHelp       bool
	quitting       bool
	logMessages    []LogMessage
	maxLogMessages int

	onQuit func()
	now    func() time.Time
}

// NewModel creates a dashboard for handles of targetLength. onQuit is called
// once when the user quits so the polling loop can be cancelled.
func NewModel(targetLength int, onQuit func()) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	p := progress.New(progress.WithDefaultGradient())
	p.Width = 40
	p.ShowPercentage = false

	return &Model{
		spinner:        s,
		countdown:      p,
		targetLength:   targetLength,
		status:         "Starting",
		maxRecent:      8,
		logMessages:    []LogMessage{},
		maxLogMessages: 50,
		onQuit:         onQuit,
		now:            time.Now,
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// ApplyReport folds one scheduler report into the dashboard
func (m *Model) ApplyReport(r scheduler.Report) {
	if r.Source != "" {
		m.source = r.Source
	}

	switch r.Kind {
	case scheduler.KindFound:
		m.totalFound += len(r.Accounts)
		for _, a := range r.Accounts {
			m.recent = append([]models.UserAccount{a}, m.recent...)
			m.AddLogMessage("SUCCESS", "Found @"+a.Username)
		}
		if len(m.recent) > m.maxRecent {
			m.recent = m.recent[:m.maxRecent]
		}
		m.stats = r.Stats

	case scheduler.KindStats:
		if r.Stats.RateLimitHits > m.stats.RateLimitHits {
			m.AddLogMessage("WARN", "Rate limited, identity rotated")
		}
		m.stats = r.Stats

	default:
		m.status = r.Message
		if r.NextIn > 0 {
			m.nextCheckAt = r.Time.Add(r.NextIn)
			m.waitTotal = r.NextIn
		} else {
			m.nextCheckAt = time.Time{}
			m.waitTotal = 0
		}
		if r.Message != "" {
			m.AddLogMessage("INFO", r.Message)
		}
	}
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	color := dimWhite
	switch level {
	case "ERROR":
		color = lipgloss.Color("#FF0000")
	case "WARN":
		color = neonOrange
	case "SUCCESS":
		color = neonGreen
	case "INFO":
		color = neonCyan
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    m.now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	// Keep only the last N messages
	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// CountdownFraction reports how much of the current wait has elapsed, 0 when idle
func (m *Model) CountdownFraction(now time.Time) float64 {
	if m.waitTotal <= 0 || m.nextCheckAt.IsZero() {
		return 0
	}
	remaining := m.nextCheckAt.Sub(now)
	if remaining <= 0 {
		return 1
	}
	return 1 - float64(remaining)/float64(m.waitTotal)
}

// NextCheckIn returns the time left before the next check
func (m *Model) NextCheckIn(now time.Time) time.Duration {
	if m.nextCheckAt.IsZero() {
		return 0
	}
	if d := m.nextCheckAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Recent returns the latest finds, newest first
func (m *Model) Recent() []models.UserAccount {
	out := make([]models.UserAccount, len(m.recent))
	copy(out, m.recent)
	return out
}

// Stats returns the last reported counters
func (m *Model) Stats() models.RunStatistics {
	return m.stats
}

// TotalFound returns the number of accounts found this session
func (m *Model) TotalFound() int {
	return m.totalFound
}
