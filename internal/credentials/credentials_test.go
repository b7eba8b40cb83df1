package credentials

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

type countingSource struct {
	calls int
	err   error
}

func (s *countingSource) Token() (*oauth2.Token, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &oauth2.Token{
		AccessToken: fmt.Sprintf("token-%d", s.calls),
		Expiry:      time.Now().Add(time.Hour),
	}, nil
}

func TestNewAmbientDefaultScope(t *testing.T) {
	a := NewAmbient()
	assert.Equal(t, []string{CloudPlatformScope}, a.scopes)

	a = NewAmbient("scope-a")
	assert.Equal(t, []string{"scope-a"}, a.scopes)
}

func TestAmbientTokenFetchesEveryCall(t *testing.T) {
	src := &countingSource{}
	finds := 0
	a := &Ambient{
		scopes: []string{CloudPlatformScope},
		find: func(_ context.Context, scopes ...string) (*google.Credentials, error) {
			finds++
			assert.Equal(t, []string{CloudPlatformScope}, scopes)
			return &google.Credentials{TokenSource: src}, nil
		},
	}

	first, err := a.Token(context.Background())
	require.NoError(t, err)
	second, err := a.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, finds)
	assert.Equal(t, 2, src.calls)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)
}

func TestAmbientTokenErrors(t *testing.T) {
	errNoIdentity := errors.New("no identity")
	errNetwork := errors.New("metadata server unreachable")

	tests := []struct {
		name    string
		find    findFunc
		wantErr error
	}{
		{
			name: "no ambient identity",
			find: func(context.Context, ...string) (*google.Credentials, error) {
				return nil, errNoIdentity
			},
			wantErr: errNoIdentity,
		},
		{
			name: "refresh fails",
			find: func(context.Context, ...string) (*google.Credentials, error) {
				return &google.Credentials{TokenSource: &countingSource{err: errNetwork}}, nil
			},
			wantErr: errNetwork,
		},
		{
			name: "missing token source",
			find: func(context.Context, ...string) (*google.Credentials, error) {
				return &google.Credentials{}, nil
			},
		},
		{
			name: "expired token",
			find: func(context.Context, ...string) (*google.Credentials, error) {
				return &google.Credentials{TokenSource: oauth2.StaticTokenSource(&oauth2.Token{
					AccessToken: "stale",
					Expiry:      time.Now().Add(-time.Minute),
				})}, nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Ambient{find: tt.find}
			tok, err := a.Token(context.Background())
			require.Error(t, err)
			assert.Nil(t, tok)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestStatic(t *testing.T) {
	tok, err := Static{AccessToken: "abc"}.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", tok.AccessToken)
	assert.True(t, tok.Valid())

	_, err = Static{}.Token(context.Background())
	assert.Error(t, err)
}
