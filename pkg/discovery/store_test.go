package discovery

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/pkg/models"
)

func account(handle string, followers int64) models.UserAccount {
	return models.NewUserAccount(handle, "nick "+handle, followers, false, "")
}

func TestRecordIsIdempotent(t *testing.T) {
	store := NewStore()

	assert.True(t, store.Record(account("abcd", 10)))
	assert.False(t, store.Record(account("abcd", 99)))
	assert.False(t, store.Record(account("@abcd", 5)))

	require.Equal(t, 1, store.Len())
	assert.Equal(t, int64(10), store.All()[0].Followers)
	assert.True(t, store.IsKnown("abcd"))
	assert.True(t, store.IsKnown("@abcd"))
	assert.False(t, store.IsKnown("abce"))
}

func TestRecordRejectsEmptyHandle(t *testing.T) {
	store := NewStore()
	assert.False(t, store.Record(models.UserAccount{}))
	assert.False(t, store.Record(models.UserAccount{Username: "@"}))
	assert.Equal(t, 0, store.Len())
}

func TestAllKeepsDiscoveryOrder(t *testing.T) {
	store := NewStore()
	for _, h := range []string{"ccc", "aaa", "bbb"} {
		store.Record(account(h, 1))
	}

	var handles []string
	for _, a := range store.All() {
		handles = append(handles, a.Username)
	}
	assert.Equal(t, []string{"ccc", "aaa", "bbb"}, handles)
}

func TestRankedIsStable(t *testing.T) {
	store := NewStore()
	store.Record(account("aaa", 50))
	store.Record(account("bbb", 900))
	store.Record(account("ccc", 50))
	store.Record(account("ddd", 0))
	store.Record(account("eee", 50))

	var handles []string
	for _, a := range store.Ranked() {
		handles = append(handles, a.Username)
	}
	assert.Equal(t, []string{"bbb", "aaa", "ccc", "eee", "ddd"}, handles)

	// the ranked view does not reorder the ledger
	assert.Equal(t, "aaa", store.All()[0].Username)
}

func TestClear(t *testing.T) {
	store := NewStore()
	store.Record(account("abc", 1))
	store.Clear()

	assert.Equal(t, 0, store.Len())
	assert.False(t, store.IsKnown("abc"))
	assert.True(t, store.Record(account("abc", 1)))
}

func TestSnapshotRestore(t *testing.T) {
	store := NewStore()
	store.Record(account("zzz", 3))
	store.Record(account("aaa", 7))

	snap := store.Snapshot()
	require.Len(t, snap.Accounts, 2)
	assert.Equal(t, []string{"zzz", "aaa"}, snap.Handles())
	assert.False(t, snap.LastUpdated.IsZero())

	restored := NewStore()
	restored.Record(account("old", 1))
	n := restored.Restore(snap)

	assert.Equal(t, 2, n)
	assert.False(t, restored.IsKnown("old"))
	assert.Equal(t, store.All(), restored.All())
}

func TestRestoreDropsDuplicates(t *testing.T) {
	updated := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := &models.Snapshot{
		Accounts:    []models.UserAccount{account("abc", 1), account("abc", 2), account("xyz", 3)},
		LastUpdated: updated,
	}

	store := NewStore()
	assert.Equal(t, 2, store.Restore(snap))
	assert.Equal(t, int64(1), store.All()[0].Followers)
	assert.Equal(t, updated, store.Snapshot().LastUpdated)

	assert.Equal(t, 0, store.Restore(nil))
}

func TestConcurrentRecordStoresOnce(t *testing.T) {
	store := NewStore()

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if store.Record(account(fmt.Sprintf("h%02d", i%5), int64(i))) {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, accepted)
	assert.Equal(t, 5, store.Len())
}
