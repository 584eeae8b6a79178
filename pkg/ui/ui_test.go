package ui

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/pkg/config"
	"hermes/pkg/models"
	"hermes/pkg/scheduler"
)

func TestFormatCount(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1.0K"},
		{1234, "1.2K"},
		{999_999, "1000.0K"},
		{3_400_000, "3.4M"},
		{1_000_000_000, "1.0B"},
		{25_500_000_000, "25.5B"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatCount(tt.n), "FormatCount(%d)", tt.n)
	}
}

func sampleAccount() models.UserAccount {
	a := models.NewUserAccount("abcd", "Alpha", 15300, true, "https://www.tiktok.com/@abcd/video/1")
	a.DiscoveredAt = time.Date(2024, 6, 7, 8, 9, 10, 0, time.UTC)
	return a
}

func TestFormatAccount(t *testing.T) {
	out := FormatAccount(sampleAccount(), false)

	assert.Contains(t, out, "Username: @abcd [✓]")
	assert.Contains(t, out, "Nickname: Alpha")
	assert.Contains(t, out, "Followers: 15.3K")
	assert.Contains(t, out, "Profile: https://www.tiktok.com/@abcd")
	assert.Contains(t, out, "Video: https://www.tiktok.com/@abcd/video/1")
	assert.Contains(t, out, "Discovered: 2024-06-07 08:09:10")
	assert.NotContains(t, out, "\033[")

	unverified := sampleAccount()
	unverified.Verified = false
	unverified.VideoURL = ""
	out = FormatAccount(unverified, true)
	assert.NotContains(t, out, "[✓]")
	assert.NotContains(t, out, "Video:")
	assert.Contains(t, out, "\033[32m")
}

func TestFormatStats(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	stats := models.RunStatistics{StartedAt: start, RequestsSent: 30, CandidatesExamined: 90, KnownCount: 4}

	assert.Equal(t, "Stats: 90 usernames checked, 4 found, 10.0 req/min", FormatStats(stats, start.Add(3*time.Minute)))
}

func TestPlainDisplayConsume(t *testing.T) {
	var out bytes.Buffer
	notifications := &bytes.Buffer{}
	notifier := NewNotifier(config.NotificationConfig{Enabled: true, OnDiscovery: true, OnRateLimit: true, NotificationType: "terminal"})
	notifier.SetOutput(notifications)
	display := NewPlainDisplay(&out, notifier, false)

	now := time.Now()
	reports := make(chan scheduler.Report, 4)
	reports <- scheduler.Report{Kind: scheduler.KindStatus, Time: now, Message: "Checking trending"}
	reports <- scheduler.Report{Kind: scheduler.KindFound, Time: now, Source: "trending", Accounts: []models.UserAccount{sampleAccount()}}
	reports <- scheduler.Report{Kind: scheduler.KindStats, Time: now, Stats: models.RunStatistics{StartedAt: now, RateLimitHits: 1, KnownCount: 1}}
	close(reports)

	require.NoError(t, display.Consume(context.Background(), reports))

	text := out.String()
	assert.Contains(t, text, "Checking trending")
	assert.Contains(t, text, "Found 1 new target usernames! (trending)")
	assert.Contains(t, text, "@abcd")
	assert.Contains(t, text, "Rate limited 1 time(s) this run")
	assert.Contains(t, text, "Stats: 0 usernames checked, 1 found")

	assert.Contains(t, notifications.String(), "Found 1 new username(s)")
	assert.Contains(t, notifications.String(), "@abcd")
	assert.Contains(t, notifications.String(), "Rate limited")
}

func TestPlainDisplayQuiet(t *testing.T) {
	var out bytes.Buffer
	display := NewPlainDisplay(&out, nil, false)
	display.SetQuiet(true)

	display.Render(scheduler.Report{Kind: scheduler.KindStatus, Message: "Waiting 60.0 seconds"})
	display.Render(scheduler.Report{Kind: scheduler.KindStats})
	assert.Empty(t, out.String())

	display.Render(scheduler.Report{Kind: scheduler.KindFound, Accounts: []models.UserAccount{sampleAccount()}})
	assert.True(t, strings.Contains(out.String(), "@abcd"))
}

func TestNotifierDisabled(t *testing.T) {
	var out bytes.Buffer
	for _, cfg := range []config.NotificationConfig{
		{Enabled: false, OnDiscovery: true, NotificationType: "terminal"},
		{Enabled: true, OnDiscovery: true, NotificationType: "none"},
		{Enabled: true, OnDiscovery: false, NotificationType: "terminal"},
	} {
		n := NewNotifier(cfg)
		n.SetOutput(&out)
		n.NotifyDiscovery([]models.UserAccount{sampleAccount()})
	}
	assert.Empty(t, out.String())

	var nilNotifier *Notifier
	nilNotifier.NotifyRateLimit(3)
}

func captureConsole(t *testing.T, color bool) *bytes.Buffer {
	t.Helper()
	var out bytes.Buffer
	SetConsole(&out, color)
	t.Cleanup(func() { SetConsole(os.Stdout, true) })
	return &out
}

func TestPrintAccounts(t *testing.T) {
	out := captureConsole(t, false)

	second := models.NewUserAccount("wxyz", "Omega", 12, false, "")
	PrintAccounts([]models.UserAccount{sampleAccount(), second})

	text := out.String()
	assert.True(t, strings.HasPrefix(text, "Found usernames (2)\n"))
	assert.Less(t, strings.Index(text, "@abcd"), strings.Index(text, "@wxyz"))
	assert.Equal(t, 2, strings.Count(text, Separator))
	assert.NotContains(t, text, "\033[")
}

func TestPrintProxiesMasksPasswords(t *testing.T) {
	out := captureConsole(t, false)

	PrintProxies([]models.Proxy{
		{Host: "10.0.0.1", Port: 8080},
		{Host: "10.0.0.2", Port: 3128, Username: "alice", Password: "s3cret"},
	})

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "   1. 10.0.0.1:8080", lines[0])
	assert.Equal(t, "   2. alice@10.0.0.2:3128", lines[1])
	assert.NotContains(t, out.String(), "s3cret")
}

func TestPrintErrorJoinsDetail(t *testing.T) {
	out := captureConsole(t, true)

	PrintError("Configuration validation failed", "target length must be between 3 and 5")
	assert.Equal(t, Red("Configuration validation failed: target length must be between 3 and 5")+"\n", out.String())
}
