package scheduler

import (
	"time"

	"hermes/pkg/models"
)

// ReportKind tells the display sink how to render a Report
type ReportKind int

const (
	// KindStatus carries a progress message
	KindStatus ReportKind = iota
	// KindFound carries newly recorded accounts
	KindFound
	// KindStats carries the counters after a round
	KindStats
)

func (k ReportKind) String() string {
	switch k {
	case KindFound:
		return "found"
	case KindStats:
		return "stats"
	default:
		return "status"
	}
}

// Report is one message from the polling loop to the display
type Report struct {
	Kind     ReportKind
	Source   string
	Time     time.Time
	Message  string
	Accounts []models.UserAccount
	Stats    models.RunStatistics
	NextIn   time.Duration
}

// RequestsPerMinute derives throughput at the report's time
func (r Report) RequestsPerMinute() float64 {
	return r.Stats.RequestsPerMinute(r.Time)
}
