package discovery

import (
	"sort"
	"sync"
	"time"

	"hermes/pkg/models"
)

// Store is the dedup ledger: an insertion-ordered map from handle to account.
// Record is the only way in, so a handle is stored at most once.
type Store struct {
	mu       sync.RWMutex
	order    []string
	accounts map[string]models.UserAccount
	updated  time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{accounts: make(map[string]models.UserAccount)}
}

// IsKnown reports whether handle has already been recorded
func (s *Store) IsKnown(handle string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.accounts[models.NormalizeHandle(handle)]
	return ok
}

// Record appends account unless its handle is already known. It returns true
// only when the account was newly stored.
func (s *Store) Record(account models.UserAccount) bool {
	account.Username = models.NormalizeHandle(account.Username)
	if account.Username == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.Username]; ok {
		return false
	}
	s.accounts[account.Username] = account
	s.order = append(s.order, account.Username)
	s.updated = time.Now()
	return true
}

// All returns the accounts in discovery order
func (s *Store) All() []models.UserAccount {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.UserAccount, 0, len(s.order))
	for _, handle := range s.order {
		out = append(out, s.accounts[handle])
	}
	return out
}

// Ranked returns the accounts by follower count, highest first. Ties keep
// discovery order.
func (s *Store) Ranked() []models.UserAccount {
	out := s.All()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Followers > out[j].Followers
	})
	return out
}

// Len returns the number of known handles
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Clear forgets every account
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.accounts = make(map[string]models.UserAccount)
	s.updated = time.Now()
}

// Snapshot returns the persisted form of the store
func (s *Store) Snapshot() *models.Snapshot {
	accounts := s.All()

	s.mu.RLock()
	updated := s.updated
	s.mu.RUnlock()
	if updated.IsZero() {
		updated = time.Now()
	}

	return &models.Snapshot{Accounts: accounts, LastUpdated: updated}
}

// Restore replaces the store's contents with snap. Duplicate handles in snap
// keep their first occurrence.
func (s *Store) Restore(snap *models.Snapshot) int {
	s.mu.Lock()
	s.order = nil
	s.accounts = make(map[string]models.UserAccount)
	s.updated = time.Time{}
	s.mu.Unlock()

	if snap == nil {
		return 0
	}
	for _, account := range snap.Accounts {
		s.Record(account)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated = snap.LastUpdated
	return len(s.order)
}
