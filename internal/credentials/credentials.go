// Package credentials hands out short-lived access tokens for the identity the
// process runs as.
package credentials

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// CloudPlatformScope is requested for ambient credentials.
const CloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// Provider returns a freshly refreshed access token.
type Provider interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

type findFunc func(ctx context.Context, scopes ...string) (*google.Credentials, error)

// Ambient discovers Application Default Credentials on every call. On Cloud Run
// these come from the metadata server of the service's runtime identity.
type Ambient struct {
	scopes []string
	find   findFunc
}

// NewAmbient returns a provider for the platform identity. Without scopes it
// asks for CloudPlatformScope.
func NewAmbient(scopes ...string) *Ambient {
	if len(scopes) == 0 {
		scopes = []string{CloudPlatformScope}
	}
	return &Ambient{
		scopes: scopes,
		find:   google.FindDefaultCredentials,
	}
}

// Token re-derives the credentials and fetches a new token from them. Nothing is
// cached between calls, so a token is never reused from an earlier request.
func (a *Ambient) Token(ctx context.Context) (*oauth2.Token, error) {
	creds, err := a.find(ctx, a.scopes...)
	if err != nil {
		return nil, fmt.Errorf("finding default credentials: %w", err)
	}
	if creds == nil || creds.TokenSource == nil {
		return nil, errors.New("default credentials have no token source")
	}

	tok, err := creds.TokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing access token: %w", err)
	}
	if !tok.Valid() {
		return nil, errors.New("refreshed access token is not valid")
	}
	return tok, nil
}

// Static always returns the same access token.
type Static struct {
	AccessToken string
}

func (s Static) Token(context.Context) (*oauth2.Token, error) {
	if s.AccessToken == "" {
		return nil, errors.New("static access token is empty")
	}
	return &oauth2.Token{AccessToken: s.AccessToken, TokenType: "Bearer"}, nil
}
