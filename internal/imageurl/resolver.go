// Package imageurl decides which URL the page uses for its image.
//
// Locally the image is a file under the static directory. On Cloud Run it lives
// in a private bucket and every request gets a new V4 signed URL, produced with
// a freshly refreshed token of the runtime service account.
package imageurl

import (
	"context"
	"errors"
	"net/http"
	"time"

	"churrasco/internal/config"
	"churrasco/internal/credentials"
	"churrasco/internal/signing"
)

const (
	// StaticPrefix is where local images are served from.
	StaticPrefix = "/static/images/"
	// SignedURLExpiry is the lifetime of every signed URL.
	SignedURLExpiry = 15 * time.Minute
)

type Resolver interface {
	Resolve(ctx context.Context, imageName string) (string, error)
}

// Static resolves to a path under Prefix.
type Static struct {
	Prefix string
}

func (s Static) Resolve(_ context.Context, imageName string) (string, error) {
	return s.Prefix + imageName, nil
}

// Signed resolves to a GET-only signed URL for the object imageName in Bucket.
// Credentials are refreshed and a new URL is issued on every call.
type Signed struct {
	Bucket         string
	ServiceAccount string
	Credentials    credentials.Provider
	Signer         signing.Signer
}

func (s *Signed) Resolve(ctx context.Context, imageName string) (string, error) {
	switch {
	case s.Bucket == "":
		return "", &ConfigurationError{Field: config.KeyBucket}
	case s.ServiceAccount == "":
		return "", &ConfigurationError{Field: config.KeyServiceAccount}
	case imageName == "":
		return "", &ConfigurationError{Field: config.KeyImageName}
	}

	tok, err := s.Credentials.Token(ctx)
	if err != nil {
		return "", &CredentialError{Err: err}
	}

	u, err := s.Signer.SignedURL(ctx, signing.Request{
		Bucket:         s.Bucket,
		Object:         imageName,
		Method:         http.MethodGet,
		Expiry:         SignedURLExpiry,
		GoogleAccessID: s.ServiceAccount,
		Token:          tok,
	})
	if err == nil && u == "" {
		err = errors.New("empty signed url")
	}
	if err != nil {
		return "", &SigningError{Bucket: s.Bucket, Object: imageName, Err: err}
	}
	return u, nil
}

// New picks the resolver for cfg.Mode. Managed mode talks to the platform
// metadata server and the IAM Credentials API.
func New(cfg *config.Config) Resolver {
	if cfg.Mode != config.Managed {
		return Static{Prefix: StaticPrefix}
	}
	return &Signed{
		Bucket:         cfg.Bucket,
		ServiceAccount: cfg.ServiceAccount,
		Credentials:    credentials.NewAmbient(),
		Signer:         signing.NewIAMSigner(),
	}
}
