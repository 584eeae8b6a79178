package tui

import (
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/pkg/models"
	"hermes/pkg/scheduler"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestModel(onQuit func()) *Model {
	m := NewModel(4, onQuit)
	m.now = func() time.Time { return fixedNow }
	return m
}

func TestApplyFoundReport(t *testing.T) {
	m := newTestModel(nil)

	m.ApplyReport(scheduler.Report{
		Kind:   scheduler.KindFound,
		Source: "trending",
		Time:   fixedNow,
		Accounts: []models.UserAccount{
			models.NewUserAccount("abcd", "A", 10, false, ""),
			models.NewUserAccount("wxyz", "W", 20, true, ""),
		},
		Stats: models.RunStatistics{KnownCount: 2},
	})

	assert.Equal(t, 2, m.TotalFound())
	recent := m.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "wxyz", recent[0].Username, "newest first")
	assert.Equal(t, 2, m.Stats().KnownCount)
	assert.Equal(t, "trending", m.source)
	require.Len(t, m.logMessages, 2)
	assert.Equal(t, "SUCCESS", m.logMessages[0].Level)
}

func TestRecentFindsAreCapped(t *testing.T) {
	m := newTestModel(nil)
	for i := 0; i < 12; i++ {
		m.ApplyReport(scheduler.Report{
			Kind:     scheduler.KindFound,
			Accounts: []models.UserAccount{models.NewUserAccount(fmt.Sprintf("u%03d", i), "", 0, false, "")},
		})
	}

	assert.Equal(t, 12, m.TotalFound())
	recent := m.Recent()
	assert.Len(t, recent, m.maxRecent)
	assert.Equal(t, "u011", recent[0].Username)
}

func TestStatusReportDrivesCountdown(t *testing.T) {
	m := newTestModel(nil)

	m.ApplyReport(scheduler.Report{Kind: scheduler.KindStatus, Time: fixedNow, Message: "Waiting 60.0 seconds before next check", NextIn: time.Minute})

	assert.Equal(t, "Waiting 60.0 seconds before next check", m.status)
	assert.Equal(t, time.Minute, m.NextCheckIn(fixedNow))
	assert.InDelta(t, 0.0, m.CountdownFraction(fixedNow), 1e-9)
	assert.InDelta(t, 0.5, m.CountdownFraction(fixedNow.Add(30*time.Second)), 1e-9)
	assert.InDelta(t, 1.0, m.CountdownFraction(fixedNow.Add(2*time.Minute)), 1e-9)
	assert.Equal(t, time.Duration(0), m.NextCheckIn(fixedNow.Add(2*time.Minute)))

	m.ApplyReport(scheduler.Report{Kind: scheduler.KindStatus, Time: fixedNow, Message: "Checking trending"})
	assert.Equal(t, time.Duration(0), m.NextCheckIn(fixedNow))
	assert.Equal(t, 0.0, m.CountdownFraction(fixedNow))
}

func TestStatsReportLogsNewRateLimits(t *testing.T) {
	m := newTestModel(nil)

	m.ApplyReport(scheduler.Report{Kind: scheduler.KindStats, Stats: models.RunStatistics{RequestsSent: 5}})
	assert.Empty(t, m.logMessages)

	m.ApplyReport(scheduler.Report{Kind: scheduler.KindStats, Stats: models.RunStatistics{RequestsSent: 9, RateLimitHits: 1}})
	require.Len(t, m.logMessages, 1)
	assert.Equal(t, "WARN", m.logMessages[0].Level)
	assert.Equal(t, int64(9), m.Stats().RequestsSent)
}

func TestLogMessagesAreBounded(t *testing.T) {
	m := newTestModel(nil)
	for i := 0; i < 60; i++ {
		m.AddLogMessage("INFO", fmt.Sprintf("line %d", i))
	}
	require.Len(t, m.logMessages, 50)
	assert.Equal(t, "line 59", m.logMessages[49].Message)
}

func TestQuitKeyCancelsOnce(t *testing.T) {
	calls := 0
	m := newTestModel(func() { calls++ })

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.Equal(t, 1, calls)
}

func TestKeysToggleHelpAndClearLogs(t *testing.T) {
	m := newTestModel(nil)
	m.AddLogMessage("INFO", "hello")

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	assert.True(t, m.showHelp)

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.Empty(t, m.logMessages)
}

func TestUpdateRoutesMessages(t *testing.T) {
	m := newTestModel(nil)

	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Equal(t, 120, m.width)

	m.Update(ReportMsg(scheduler.Report{Kind: scheduler.KindStatus, Message: "Checking suggested"}))
	assert.Equal(t, "Checking suggested", m.status)

	m.Update(SendLog("ERROR", "boom"))
	assert.Equal(t, "boom", m.logMessages[len(m.logMessages)-1].Message)
}

func TestView(t *testing.T) {
	m := newTestModel(nil)
	assert.Equal(t, "Initializing...", m.View())

	m.Update(tea.WindowSizeMsg{Width: 140, Height: 50})
	m.ApplyReport(scheduler.Report{
		Kind:     scheduler.KindFound,
		Accounts: []models.UserAccount{models.NewUserAccount("abcd", "A", 1500, true, "")},
	})

	view := m.View()
	assert.Contains(t, view, "RUN STATS")
	assert.Contains(t, view, "@abcd")
	assert.Contains(t, view, "1.5K")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:05", formatDuration(5*time.Second))
	assert.Equal(t, "02:03", formatDuration(2*time.Minute+3*time.Second))
	assert.Equal(t, "01:00:00", formatDuration(time.Hour))
	assert.Equal(t, "00:00", formatDuration(-time.Second))
}
