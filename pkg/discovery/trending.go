package discovery

import (
	"context"
	"fmt"

	"hermes/pkg/gateway"
	"hermes/pkg/logger"
	"hermes/pkg/models"
)

// Trending reads authors from the recommended item feed
type Trending struct {
	reducer
}

// NewTrending creates the trending feed strategy
func NewTrending(fetcher Fetcher, filter Filter, store *Store, log logger.Logger) *Trending {
	return &Trending{reducer: newReducer(fetcher, filter, store, log)}
}

// Name implements Strategy
func (t *Trending) Name() string { return "trending" }

// Discover implements Strategy
func (t *Trending) Discover(ctx context.Context) Round {
	payload := t.fetcher.Fetch(ctx, gateway.TrendingEndpoint, gateway.TrendingParams())
	return t.reduce(t.Name(), getSlice(payload, "itemList"), extractTrendingItem)
}

func extractTrendingItem(item map[string]interface{}) candidate {
	author := getMap(item, "author")
	handle := getString(author, "uniqueId")

	var videoURL string
	if id := getID(item, "id"); id != "" && handle != "" {
		videoURL = fmt.Sprintf("%s/@%s/video/%s", gateway.BaseURL, models.NormalizeHandle(handle), id)
	}

	return candidate{
		handle:    handle,
		nickname:  getString(author, "nickname"),
		followers: getInt64(getMap(item, "authorStats"), "followerCount"),
		verified:  getBool(author, "verified"),
		videoURL:  videoURL,
	}
}
