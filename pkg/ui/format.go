package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"hermes/pkg/models"
)

const (
	// Separator goes between account blocks
	Separator = "----------------------------------------"

	// TimestampLayout formats discovery times
	TimestampLayout = "2006-01-02 15:04:05"
)

// FormatCount abbreviates follower counts: 950, 1.2K, 3.4M, 1.0B
func FormatCount(n int64) string {
	switch {
	case n >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(n)/1_000_000_000)
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return strconv.FormatInt(n, 10)
	}
}

// FormatAccount renders the detail block shown when an account is found or listed
func FormatAccount(a models.UserAccount, color bool) string {
	label, badge := plain, plain
	if color {
		label, badge = Green, Cyan
	}

	var b strings.Builder
	fmt.Fprintf(&b, "  %s @%s", label("Username:"), a.Username)
	if a.Verified {
		fmt.Fprintf(&b, " %s", badge("[✓]"))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s %s\n", label("Nickname:"), a.Nickname)
	fmt.Fprintf(&b, "  %s %s\n", label("Followers:"), FormatCount(a.Followers))
	fmt.Fprintf(&b, "  %s %s\n", label("Profile:"), a.ProfileURL)
	if a.VideoURL != "" {
		fmt.Fprintf(&b, "  %s %s\n", label("Video:"), a.VideoURL)
	}
	fmt.Fprintf(&b, "  %s %s", label("Discovered:"), a.DiscoveredAt.Format(TimestampLayout))
	return b.String()
}

// FormatStats renders the per-round stats line
func FormatStats(s models.RunStatistics, now time.Time) string {
	return fmt.Sprintf("Stats: %d usernames checked, %d found, %.1f req/min",
		s.CandidatesExamined, s.KnownCount, s.RequestsPerMinute(now))
}

func plain(s string) string { return s }
