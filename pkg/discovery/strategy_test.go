package discovery

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/pkg/gateway"
	"hermes/pkg/logger"
)

// fakeFetcher answers every request with a fixed JSON body
type fakeFetcher struct {
	body      string
	endpoints []string
	params    []url.Values
}

func (f *fakeFetcher) Fetch(ctx context.Context, endpoint string, params url.Values) gateway.Payload {
	f.endpoints = append(f.endpoints, endpoint)
	f.params = append(f.params, params)
	payload := gateway.Payload{}
	if f.body != "" {
		if err := json.Unmarshal([]byte(f.body), &payload); err != nil {
			panic(err)
		}
	}
	return payload
}

const trendingBody = `{
  "itemList": [
    {"id": "7001", "author": {"uniqueId": "abcd", "nickname": "First", "verified": true}, "authorStats": {"followerCount": 1200}},
    {"id": "7002", "author": {"uniqueId": "abcde", "nickname": "Long"}, "authorStats": {"followerCount": 5}},
    {"id": "7003", "author": {"uniqueId": "abcd", "nickname": "Again"}, "authorStats": {"followerCount": 9}}
  ]
}`

func TestTrendingEndToEnd(t *testing.T) {
	fetcher := &fakeFetcher{body: trendingBody}
	store := NewStore()
	strategy := NewTrending(fetcher, NewFilter(4), store, logger.NewNopLogger())

	round := strategy.Discover(context.Background())

	require.Len(t, round.Found, 1)
	found := round.Found[0]
	assert.Equal(t, "abcd", found.Username)
	assert.Equal(t, "First", found.Nickname)
	assert.Equal(t, int64(1200), found.Followers)
	assert.True(t, found.Verified)
	assert.Equal(t, "https://www.tiktok.com/@abcd/video/7001", found.VideoURL)
	assert.Equal(t, "https://www.tiktok.com/@abcd", found.ProfileURL)
	assert.Equal(t, int64(3), round.Examined)
	assert.Equal(t, 1, store.Len())

	assert.Equal(t, []string{gateway.TrendingEndpoint}, fetcher.endpoints)
	assert.Equal(t, "fyp", fetcher.params[0].Get("from_page"))

	// a second round over the same feed finds nothing new
	again := strategy.Discover(context.Background())
	assert.Empty(t, again.Found)
	assert.Equal(t, int64(3), again.Examined)
}

func TestKeywordSearch(t *testing.T) {
	fetcher := &fakeFetcher{body: `{"userList": [
		{"user": {"uniqueId": "cat", "nickname": "Cat", "followerCount": 77, "verified": false}},
		{"user": {"uniqueId": "cats!"}},
		{"user": {"uniqueId": "dog", "followerCount": "12"}}
	]}`}
	store := NewStore()
	strategy := NewKeywordSearch("pets", fetcher, NewFilter(3), store, logger.NewNopLogger())

	round := strategy.Discover(context.Background())

	require.Len(t, round.Found, 2)
	assert.Equal(t, "cat", round.Found[0].Username)
	assert.Equal(t, int64(77), round.Found[0].Followers)
	assert.Empty(t, round.Found[0].VideoURL)
	assert.Equal(t, "dog", round.Found[1].Username)
	assert.Equal(t, int64(12), round.Found[1].Followers)

	assert.Equal(t, "search:pets", strategy.Name())
	assert.Equal(t, gateway.UserSearchEndpoint, fetcher.endpoints[0])
	assert.Equal(t, "pets", fetcher.params[0].Get("keyword"))
}

func TestSuggestedUsers(t *testing.T) {
	fetcher := &fakeFetcher{body: `{"userList": [
		{"uniqueId": "@q1w2e", "nickname": "Q", "followerCount": 3, "verified": true},
		{"uniqueId": "toolong"}
	]}`}
	store := NewStore()
	strategy := NewSuggestedUsers(fetcher, NewFilter(5), store, logger.NewNopLogger())

	round := strategy.Discover(context.Background())

	require.Len(t, round.Found, 1)
	assert.Equal(t, "q1w2e", round.Found[0].Username)
	assert.True(t, round.Found[0].Verified)
	assert.Equal(t, int64(2), round.Examined)
	assert.Equal(t, gateway.SuggestedEndpoint, fetcher.endpoints[0])
}

func TestEmptyPayloadYieldsEmptyRound(t *testing.T) {
	fetcher := &fakeFetcher{}
	round := NewTrending(fetcher, NewFilter(4), NewStore(), logger.NewNopLogger()).Discover(context.Background())

	assert.Empty(t, round.Found)
	assert.Zero(t, round.Examined)
}

func TestMalformedItemsAreSkipped(t *testing.T) {
	fetcher := &fakeFetcher{body: `{"itemList": [
		"not an object",
		{"author": "wrong type", "authorStats": []},
		{"author": {"uniqueId": 12345}},
		{"author": {"uniqueId": "wxyz", "verified": "yes"}, "authorStats": {"followerCount": -4}},
		{"id": 42, "author": {"uniqueId": "good"}}
	]}`}
	log := logger.NewTestLogger()
	store := NewStore()

	round := NewTrending(fetcher, NewFilter(4), store, log).Discover(context.Background())

	// every item counts as examined, including the ones that could not be parsed
	assert.Equal(t, int64(5), round.Examined)
	require.Len(t, round.Found, 2)
	assert.Equal(t, "wxyz", round.Found[0].Username)
	assert.False(t, round.Found[0].Verified)
	assert.Equal(t, int64(0), round.Found[0].Followers)
	assert.Equal(t, "https://www.tiktok.com/@good/video/42", round.Found[1].VideoURL)
	assert.Len(t, log.GetMessagesByLevel("WARN"), 1)
}

func TestPanickingItemDoesNotAbortBatch(t *testing.T) {
	log := logger.NewTestLogger()
	store := NewStore()
	r := newReducer(&fakeFetcher{}, NewFilter(3), store, log)

	items := []interface{}{
		map[string]interface{}{"uniqueId": "one"},
		map[string]interface{}{"uniqueId": "boom"},
		map[string]interface{}{"uniqueId": "two"},
	}
	round := r.reduce("test", items, func(item map[string]interface{}) candidate {
		handle := getString(item, "uniqueId")
		if handle == "boom" {
			panic("unexpected shape")
		}
		return candidate{handle: handle}
	})

	assert.Equal(t, int64(3), round.Examined)
	require.Len(t, round.Found, 2)
	assert.Equal(t, "one", round.Found[0].Username)
	assert.Equal(t, "two", round.Found[1].Username)

	warns := log.GetMessagesByLevel("WARN")
	require.Len(t, warns, 1)
	assert.Equal(t, "Skipping malformed item", warns[0].Message)
	assert.Contains(t, warns[0].Error.Error(), "unexpected shape")
}

func TestExtractHelpers(t *testing.T) {
	m := map[string]interface{}{
		"s": "text", "f": float64(12), "n": json.Number("99"), "b": true, "str": "31",
		"m": map[string]interface{}{"k": "v"}, "l": []interface{}{1},
	}

	assert.Equal(t, "text", getString(m, "s"))
	assert.Equal(t, "", getString(m, "f"))
	assert.Equal(t, "", getString(m, "n"))
	assert.Equal(t, "", getString(m, "b"))
	assert.Equal(t, "12", getID(m, "f"))
	assert.Equal(t, "99", getID(m, "n"))
	assert.Equal(t, "text", getID(m, "s"))
	assert.Equal(t, "", getID(m, "b"))
	assert.Equal(t, int64(12), getInt64(m, "f"))
	assert.Equal(t, int64(99), getInt64(m, "n"))
	assert.Equal(t, int64(31), getInt64(m, "str"))
	assert.Equal(t, int64(0), getInt64(m, "missing"))
	assert.True(t, getBool(m, "b"))
	assert.False(t, getBool(m, "s"))
	assert.Equal(t, "v", getString(getMap(m, "m"), "k"))
	assert.Empty(t, getMap(m, "s"))
	assert.Len(t, getSlice(m, "l"), 1)
	assert.Nil(t, getSlice(m, "m"))
}

func TestNumericHandleIsNotAHandle(t *testing.T) {
	fetcher := &fakeFetcher{body: `{"userList": [
		{"uniqueId": 1234, "nickname": "num"},
		{"uniqueId": "abcd", "nickname": "text"}
	]}`}
	store := NewStore()
	strategy := NewSuggestedUsers(fetcher, NewFilter(4), store, logger.NewNopLogger())

	round := strategy.Discover(context.Background())

	assert.Equal(t, int64(2), round.Examined)
	require.Len(t, round.Found, 1)
	assert.Equal(t, "abcd", round.Found[0].Username)
	assert.False(t, store.IsKnown("1234"))
	assert.Equal(t, 1, store.Len())
}

func TestNumericAuthorHandleIsSkipped(t *testing.T) {
	fetcher := &fakeFetcher{body: `{"itemList": [
		{"id": "7001", "author": {"uniqueId": 1234}}
	]}`}
	store := NewStore()

	round := NewTrending(fetcher, NewFilter(4), store, logger.NewNopLogger()).Discover(context.Background())

	assert.Equal(t, int64(1), round.Examined)
	assert.Empty(t, round.Found)
	assert.Zero(t, store.Len())
}

func TestVideoURLUsesBareHandle(t *testing.T) {
	fetcher := &fakeFetcher{body: `{"itemList": [
		{"id": "7009", "author": {"uniqueId": "@abcd"}}
	]}`}

	round := NewTrending(fetcher, NewFilter(4), NewStore(), logger.NewNopLogger()).Discover(context.Background())

	require.Len(t, round.Found, 1)
	assert.Equal(t, "abcd", round.Found[0].Username)
	assert.Equal(t, "https://www.tiktok.com/@abcd/video/7009", round.Found[0].VideoURL)
}

func TestProfileURLPattern(t *testing.T) {
	fetcher := &fakeFetcher{body: `{"userList": [{"uniqueId": "abc"}]}`}
	strategy := NewSuggestedUsers(fetcher, NewFilter(3), NewStore(), logger.NewNopLogger())
	strategy.SetProfileURLPattern("https://m.tiktok.com/@%s")

	round := strategy.Discover(context.Background())

	require.Len(t, round.Found, 1)
	assert.Equal(t, "https://m.tiktok.com/@abc", round.Found[0].ProfileURL)
}
