package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"hermes/pkg/logger"
	"hermes/pkg/models"
)

// timestamps written without a zone by older state files
var legacyTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// document is the on-disk shape of the state file
type document struct {
	Usernames   []string     `json:"usernames"`
	Users       []userRecord `json:"users"`
	LastUpdated string       `json:"last_updated"`
}

type userRecord struct {
	Username      string `json:"username"`
	Nickname      string `json:"nickname"`
	Followers     int64  `json:"followers"`
	ProfileURL    string `json:"profile_url"`
	VideoURL      string `json:"video_url"`
	Verified      bool   `json:"verified"`
	DiscoveryTime string `json:"discovery_time"`
}

// JSONBackend keeps the ledger in a single JSON document
type JSONBackend struct {
	path   string
	logger logger.Logger
	mu     sync.Mutex
}

// NewJSONBackend creates a backend for the document at path
func NewJSONBackend(path string, log logger.Logger) *JSONBackend {
	if log == nil {
		log = logger.WithComponent("storage")
	}
	return &JSONBackend{path: path, logger: log}
}

// Path returns the document location
func (b *JSONBackend) Path() string {
	return b.path
}

// Load reads the document. A missing file is an empty ledger.
func (b *JSONBackend) Load(ctx context.Context) (*models.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	file, err := os.Open(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &models.Snapshot{}, nil
		}
		return nil, fmt.Errorf("failed to open state file: %w", err)
	}
	defer file.Close()

	var doc document
	if err := json.NewDecoder(file).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode state file: %w", err)
	}

	snap := fromDocument(&doc)
	b.logger.InfoWithFields("State loaded", map[string]interface{}{
		"path":     b.path,
		"accounts": len(snap.Accounts),
	})
	return snap, nil
}

// Save writes the document atomically via a synced temp file and rename
func (b *JSONBackend) Save(ctx context.Context, snap *models.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(b.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tempPath := b.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary state file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(toDocument(snap)); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode state: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync state file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close state file: %w", err)
	}

	if err := os.Rename(tempPath, b.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename state file: %w", err)
	}

	b.logger.DebugWithFields("State saved", map[string]interface{}{
		"path":     b.path,
		"accounts": len(snap.Accounts),
	})
	return nil
}

// Close is a no-op
func (b *JSONBackend) Close() error {
	return nil
}

func toDocument(snap *models.Snapshot) *document {
	doc := &document{
		Usernames: make([]string, 0, len(snap.Accounts)),
		Users:     make([]userRecord, 0, len(snap.Accounts)),
	}
	for _, a := range snap.Accounts {
		doc.Usernames = append(doc.Usernames, a.Username)
		doc.Users = append(doc.Users, userRecord{
			Username:      a.Username,
			Nickname:      a.Nickname,
			Followers:     a.Followers,
			ProfileURL:    a.ProfileURL,
			VideoURL:      a.VideoURL,
			Verified:      a.Verified,
			DiscoveryTime: a.DiscoveredAt.Format(time.RFC3339Nano),
		})
	}

	updated := snap.LastUpdated
	if updated.IsZero() {
		updated = time.Now()
	}
	doc.LastUpdated = updated.Format(time.RFC3339Nano)
	return doc
}

// fromDocument rebuilds the ledger. Handles listed under usernames without a
// matching user record become bare accounts so the two lists cannot diverge.
func fromDocument(doc *document) *models.Snapshot {
	snap := &models.Snapshot{LastUpdated: parseTime(doc.LastUpdated)}

	seen := make(map[string]bool, len(doc.Users))
	for _, u := range doc.Users {
		a := models.NewUserAccount(u.Username, u.Nickname, u.Followers, u.Verified, u.VideoURL)
		if a.Username == "" || seen[a.Username] {
			continue
		}
		if u.ProfileURL != "" {
			a.ProfileURL = u.ProfileURL
		}
		a.DiscoveredAt = parseTime(u.DiscoveryTime)
		seen[a.Username] = true
		snap.Accounts = append(snap.Accounts, a)
	}

	for _, handle := range doc.Usernames {
		a := models.NewUserAccount(handle, "", 0, false, "")
		if a.Username == "" || seen[a.Username] {
			continue
		}
		a.DiscoveredAt = snap.LastUpdated
		seen[a.Username] = true
		snap.Accounts = append(snap.Accounts, a)
	}
	return snap
}

func parseTime(s string) time.Time {
	for _, layout := range legacyTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
