// Package discovery turns raw API payloads into newly confirmed accounts.
//
// A Strategy issues its query through a Fetcher, extracts one candidate per
// item, and keeps the candidates that pass the Filter and are new to the
// Store. Items are processed independently: a malformed item is logged and
// skipped without affecting the rest of the batch.
package discovery

import (
	"context"
	"fmt"
	"net/url"

	"hermes/pkg/errors"
	"hermes/pkg/gateway"
	"hermes/pkg/logger"
	"hermes/pkg/models"
)

// Fetcher performs one request; a failed request yields an empty payload
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string, params url.Values) gateway.Payload
}

// Round is the outcome of one strategy execution
type Round struct {
	Found    []models.UserAccount
	Examined int64
}

// Strategy is one query shape against the remote API
type Strategy interface {
	Name() string
	Discover(ctx context.Context) Round
}

// candidate is the subset of an item the reducer needs
type candidate struct {
	handle    string
	nickname  string
	followers int64
	verified  bool
	videoURL  string
}

type extractFunc func(item map[string]interface{}) candidate

// reducer holds what every strategy shares
type reducer struct {
	fetcher Fetcher
	filter  Filter
	store   *Store
	logger  logger.Logger

	profilePattern string
}

func newReducer(fetcher Fetcher, filter Filter, store *Store, log logger.Logger) reducer {
	if log == nil {
		log = logger.WithComponent("discovery")
	}
	return reducer{fetcher: fetcher, filter: filter, store: store, logger: log}
}

// SetProfileURLPattern overrides the profile link format. The pattern takes
// the handle as its single %s verb.
func (r *reducer) SetProfileURLPattern(pattern string) {
	r.profilePattern = pattern
}

// reduce examines every item and returns the accounts that were newly recorded
func (r reducer) reduce(kind string, items []interface{}, extract extractFunc) Round {
	var round Round
	for i, raw := range items {
		round.Examined++
		account, ok := r.processItem(kind, i, raw, extract)
		if ok {
			round.Found = append(round.Found, account)
		}
	}
	return round
}

func (r reducer) processItem(kind string, index int, raw interface{}, extract extractFunc) (account models.UserAccount, found bool) {
	defer func() {
		if rec := recover(); rec != nil {
			err := errors.New(errors.ErrorTypeItem, 0, fmt.Sprintf("%v", rec))
			r.logger.WithError(err).WarnWithFields("Skipping malformed item", map[string]interface{}{
				"kind":  kind,
				"index": index,
			})
			found = false
		}
	}()

	item, ok := raw.(map[string]interface{})
	if !ok {
		r.logger.WarnWithFields("Skipping malformed item", map[string]interface{}{
			"kind":  kind,
			"index": index,
			"type":  fmt.Sprintf("%T", raw),
		})
		return models.UserAccount{}, false
	}

	c := extract(item)
	if !r.filter.Matches(c.handle) || r.store.IsKnown(c.handle) {
		return models.UserAccount{}, false
	}

	account = models.NewUserAccount(c.handle, c.nickname, c.followers, c.verified, c.videoURL)
	if r.profilePattern != "" {
		account.ProfileURL = fmt.Sprintf(r.profilePattern, account.Username)
	}
	if !r.store.Record(account) {
		return models.UserAccount{}, false
	}

	r.logger.InfoWithFields("Found target username", map[string]interface{}{
		"username":  account.Username,
		"followers": account.Followers,
		"source":    kind,
	})
	return account, true
}
