package discovery

import (
	"context"

	"hermes/pkg/gateway"
	"hermes/pkg/logger"
)

// KeywordSearch reads users from the user search endpoint
type KeywordSearch struct {
	reducer
	keyword string
}

// NewKeywordSearch creates a search strategy for one keyword
func NewKeywordSearch(keyword string, fetcher Fetcher, filter Filter, store *Store, log logger.Logger) *KeywordSearch {
	return &KeywordSearch{reducer: newReducer(fetcher, filter, store, log), keyword: keyword}
}

// Name implements Strategy
func (k *KeywordSearch) Name() string { return "search:" + k.keyword }

// Keyword returns the search term
func (k *KeywordSearch) Keyword() string { return k.keyword }

// Discover implements Strategy
func (k *KeywordSearch) Discover(ctx context.Context) Round {
	payload := k.fetcher.Fetch(ctx, gateway.UserSearchEndpoint, gateway.UserSearchParams(k.keyword))
	return k.reduce(k.Name(), getSlice(payload, "userList"), extractSearchEntry)
}

func extractSearchEntry(entry map[string]interface{}) candidate {
	return extractUser(getMap(entry, "user"))
}

func extractUser(user map[string]interface{}) candidate {
	return candidate{
		handle:    getString(user, "uniqueId"),
		nickname:  getString(user, "nickname"),
		followers: getInt64(user, "followerCount"),
		verified:  getBool(user, "verified"),
	}
}
