package gateway

import (
	"net/url"
	"strconv"
)

// TikTok web API endpoints
const (
	BaseURL = "https://www.tiktok.com"

	TrendingEndpoint   = BaseURL + "/api/recommend/item_list/"
	UserSearchEndpoint = BaseURL + "/api/search/user/full/"
	SuggestedEndpoint  = BaseURL + "/api/recommend/user/list/"

	// AppID is the web client's application id
	AppID = "1988"

	// PageSize is the number of items requested per call
	PageSize = 30
)

// BaseParams returns the query parameters every endpoint expects
func BaseParams() url.Values {
	params := url.Values{}
	params.Set("aid", AppID)
	params.Set("app_language", "en")
	params.Set("count", strconv.Itoa(PageSize))
	return params
}

// TrendingParams returns the parameters for the recommended item feed
func TrendingParams() url.Values {
	params := BaseParams()
	params.Set("from_page", "fyp")
	return params
}

// UserSearchParams returns the parameters for a user search
func UserSearchParams(keyword string) url.Values {
	params := BaseParams()
	params.Set("keyword", keyword)
	return params
}

// SuggestedParams returns the parameters for the suggested user list
func SuggestedParams() url.Values {
	return BaseParams()
}

// BuildURL appends params to endpoint
func BuildURL(endpoint string, params url.Values) string {
	if len(params) == 0 {
		return endpoint
	}
	return endpoint + "?" + params.Encode()
}
