// Package ratelimit paces outbound requests on the client side.
//
// The remote service answers with 429 when it is unhappy; the gateway reacts
// to that by rotating and backing off. A Window adds an optional budget on
// top, so a long monitoring session never exceeds a fixed number of
// requests in any rolling window regardless of how the service behaves.
//
// Usage:
//
//	// at most 30 requests in any rolling minute
//	limiter := ratelimit.NewWindow(30, time.Minute)
//
//	if err := limiter.Wait(ctx); err != nil {
//	    return err // ctx cancelled while waiting
//	}
//	// proceed with request
package ratelimit
