package syncpass

import (
	"context"
	"fmt"

	"github.com/skeo/stocksync/internal/domain/channel"
	"github.com/skeo/stocksync/internal/domain/stock"
)

// AuthService drives the human-in-the-loop credential flow: an operator
// opens the channel's authorization URL, approves access, and exchanges the
// resulting code for a stored credential.
type AuthService struct {
	registry *channel.Registry
}

// NewAuthService wires an auth service
func NewAuthService(registry *channel.Registry) *AuthService {
	return &AuthService{registry: registry}
}

// AuthorizationURL returns the URL an operator must open for the channel
func (s *AuthService) AuthorizationURL(code stock.ChannelCode) (string, error) {
	az, err := s.authorizer(code)
	if err != nil {
		return "", err
	}
	return az.AuthorizationURL()
}

// Exchange turns an out-of-band approval code into a persisted credential
func (s *AuthService) Exchange(ctx context.Context, code stock.ChannelCode, authCode string) (*channel.Credential, error) {
	if authCode == "" {
		return nil, channel.ErrInvalidAuthCode
	}
	az, err := s.authorizer(code)
	if err != nil {
		return nil, err
	}
	return az.ExchangeAuthCode(ctx, authCode)
}

// Refresh forces a refresh-token exchange for the channel
func (s *AuthService) Refresh(ctx context.Context, code stock.ChannelCode) (*channel.Credential, error) {
	ch, err := s.registry.Get(code)
	if err != nil {
		return nil, err
	}
	return ch.RefreshAuth(ctx)
}

func (s *AuthService) authorizer(code stock.ChannelCode) (channel.Authorizer, error) {
	ch, err := s.registry.Get(code)
	if err != nil {
		return nil, err
	}
	az, ok := ch.(channel.Authorizer)
	if !ok {
		return nil, fmt.Errorf("%w: %s", channel.ErrAuthNotSupported, code)
	}
	return az, nil
}
