package ui

import (
	"context"
	"fmt"
	"io"
	"time"

	"hermes/pkg/scheduler"
)

// Sink renders scheduler reports until the channel is closed
type Sink interface {
	Consume(ctx context.Context, reports <-chan scheduler.Report) error
}

// PlainDisplay prints reports as colored lines. It is the sink used when
// stdout is not a terminal or the dashboard is disabled.
type PlainDisplay struct {
	out      io.Writer
	notifier *Notifier
	color    bool
	quiet    bool

	lastRateLimitHits int64
}

// NewPlainDisplay creates a line-oriented sink writing to out
func NewPlainDisplay(out io.Writer, notifier *Notifier, color bool) *PlainDisplay {
	return &PlainDisplay{out: out, notifier: notifier, color: color}
}

// SetQuiet suppresses status lines; discoveries are still printed
func (d *PlainDisplay) SetQuiet(quiet bool) {
	d.quiet = quiet
}

// Consume drains reports in emission order. It returns when the channel is
// closed so reports emitted during shutdown are not lost.
func (d *PlainDisplay) Consume(ctx context.Context, reports <-chan scheduler.Report) error {
	for r := range reports {
		d.Render(r)
	}
	return nil
}

// Render prints a single report
func (d *PlainDisplay) Render(r scheduler.Report) {
	switch r.Kind {
	case scheduler.KindFound:
		fmt.Fprintln(d.out, d.paint(Green, fmt.Sprintf("Found %d new target usernames! (%s)", len(r.Accounts), r.Source)))
		for _, a := range r.Accounts {
			fmt.Fprintln(d.out, FormatAccount(a, d.color))
		}
		d.notifier.NotifyDiscovery(r.Accounts)

	case scheduler.KindStats:
		if r.Stats.RateLimitHits > d.lastRateLimitHits {
			d.lastRateLimitHits = r.Stats.RateLimitHits
			fmt.Fprintln(d.out, d.paint(Yellow, fmt.Sprintf("Rate limited %d time(s) this run", r.Stats.RateLimitHits)))
			d.notifier.NotifyRateLimit(r.Stats.RateLimitHits)
		}
		if !d.quiet {
			fmt.Fprintln(d.out, d.stamp(r.Time)+d.paint(Cyan, FormatStats(r.Stats, r.Time)))
		}

	default:
		if !d.quiet && r.Message != "" {
			fmt.Fprintln(d.out, d.stamp(r.Time)+r.Message)
		}
	}
}

func (d *PlainDisplay) stamp(t time.Time) string {
	return d.paint(Dim, "["+t.Format("15:04:05")+"] ")
}

func (d *PlainDisplay) paint(fn func(string) string, s string) string {
	if !d.color {
		return s
	}
	return fn(s)
}
