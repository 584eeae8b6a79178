package models

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultProfileURLPattern builds a profile link from a handle
const DefaultProfileURLPattern = "https://www.tiktok.com/@%s"

// Proxy is one egress proxy. It is never modified after parsing.
type Proxy struct {
	Host     string
	Port     int
	Username string
	Password string
}

// HasAuth reports whether both credentials are present
func (p Proxy) HasAuth() bool {
	return p.Username != "" && p.Password != ""
}

// Address returns host:port
func (p Proxy) Address() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// URL returns the proxy as scheme://[user:pass@]host:port
func (p Proxy) URL(scheme string) *url.URL {
	u := &url.URL{Scheme: scheme, Host: p.Address()}
	if p.HasAuth() {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	return u
}

// String masks the password
func (p Proxy) String() string {
	if p.HasAuth() {
		return fmt.Sprintf("%s@%s", p.Username, p.Address())
	}
	return p.Address()
}

// UserAccount is a discovered account whose handle matched the target constraint
type UserAccount struct {
	Username     string    `json:"username"`
	Nickname     string    `json:"nickname"`
	Followers    int64     `json:"followers"`
	ProfileURL   string    `json:"profile_url"`
	VideoURL     string    `json:"video_url"`
	Verified     bool      `json:"verified"`
	DiscoveredAt time.Time `json:"discovery_time"`
}

// NewUserAccount normalizes the handle and fills in derived fields
func NewUserAccount(username, nickname string, followers int64, verified bool, videoURL string) UserAccount {
	username = NormalizeHandle(username)
	if followers < 0 {
		followers = 0
	}
	return UserAccount{
		Username:     username,
		Nickname:     nickname,
		Followers:    followers,
		ProfileURL:   fmt.Sprintf(DefaultProfileURLPattern, username),
		VideoURL:     videoURL,
		Verified:     verified,
		DiscoveredAt: time.Now(),
	}
}

// NormalizeHandle strips one leading '@'
func NormalizeHandle(handle string) string {
	return strings.TrimPrefix(handle, "@")
}

// Snapshot is the persisted form of the discovery ledger
type Snapshot struct {
	Accounts    []UserAccount
	LastUpdated time.Time
}

// Handles returns the handles in discovery order
func (s *Snapshot) Handles() []string {
	handles := make([]string, 0, len(s.Accounts))
	for _, a := range s.Accounts {
		handles = append(handles, a.Username)
	}
	return handles
}

// RunStatistics are the counters for one polling run
type RunStatistics struct {
	RunID              string    `json:"run_id"`
	Strategy           string    `json:"strategy"`
	StartedAt          time.Time `json:"started_at"`
	RequestsSent       int64     `json:"requests_sent"`
	CandidatesExamined int64     `json:"candidates_examined"`
	RateLimitHits      int64     `json:"rate_limit_hits"`
	KnownCount         int       `json:"known_count"`
	Found              int       `json:"found"`
}

// Elapsed returns the run duration at now
func (s RunStatistics) Elapsed(now time.Time) time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	return now.Sub(s.StartedAt)
}

// RequestsPerMinute returns requests sent divided by elapsed minutes
func (s RunStatistics) RequestsPerMinute(now time.Time) float64 {
	minutes := s.Elapsed(now).Minutes()
	if minutes <= 0 {
		return 0
	}
	return float64(s.RequestsSent) / minutes
}
