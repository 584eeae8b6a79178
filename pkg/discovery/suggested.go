package discovery

import (
	"context"

	"hermes/pkg/gateway"
	"hermes/pkg/logger"
)

// SuggestedUsers reads the flat recommended user list
type SuggestedUsers struct {
	reducer
}

// NewSuggestedUsers creates the suggested users strategy
func NewSuggestedUsers(fetcher Fetcher, filter Filter, store *Store, log logger.Logger) *SuggestedUsers {
	return &SuggestedUsers{reducer: newReducer(fetcher, filter, store, log)}
}

// Name implements Strategy
func (s *SuggestedUsers) Name() string { return "suggested" }

// Discover implements Strategy
func (s *SuggestedUsers) Discover(ctx context.Context) Round {
	payload := s.fetcher.Fetch(ctx, gateway.SuggestedEndpoint, gateway.SuggestedParams())
	return s.reduce(s.Name(), getSlice(payload, "userList"), extractUser)
}
