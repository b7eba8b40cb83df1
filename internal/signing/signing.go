// Package signing issues V4 signed Cloud Storage URLs without holding a private
// key: the signature is produced remotely by the IAM Credentials signBlob API
// on behalf of a service account.
package signing

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"golang.org/x/oauth2"
	"google.golang.org/api/iamcredentials/v1"
	"google.golang.org/api/option"
)

// Request describes one signed URL.
type Request struct {
	Bucket string
	Object string
	Method string
	Expiry time.Duration
	// GoogleAccessID is the service account email that signs the URL.
	GoogleAccessID string
	// Token authenticates the signBlob call.
	Token *oauth2.Token
}

func (r Request) validate() error {
	switch {
	case r.Bucket == "":
		return errors.New("bucket is required")
	case r.Object == "":
		return errors.New("object name is required")
	case r.GoogleAccessID == "":
		return errors.New("signer identity is required")
	case r.Token == nil || r.Token.AccessToken == "":
		return errors.New("access token is required")
	case r.Expiry <= 0:
		return fmt.Errorf("expiry must be positive, got %s", r.Expiry)
	}
	return nil
}

type Signer interface {
	SignedURL(ctx context.Context, req Request) (string, error)
}

// The storage package computes X-Goog-Expires by truncating the remaining
// lifetime to whole seconds at its own notion of now, which is a little later
// than ours.
const expirySlack = 500 * time.Millisecond

// IAMSigner signs through iamcredentials.projects.serviceAccounts.signBlob.
type IAMSigner struct {
	opts []option.ClientOption
	now  func() time.Time
}

// NewIAMSigner returns a signer. opts are appended after the per-request token
// source, e.g. to point the client at another endpoint.
func NewIAMSigner(opts ...option.ClientOption) *IAMSigner {
	return &IAMSigner{opts: opts, now: time.Now}
}

func (s *IAMSigner) SignedURL(ctx context.Context, req Request) (string, error) {
	if err := req.validate(); err != nil {
		return "", err
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	clientOpts := append([]option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(req.Token)),
	}, s.opts...)
	svc, err := iamcredentials.NewService(ctx, clientOpts...)
	if err != nil {
		return "", fmt.Errorf("creating iam credentials client: %w", err)
	}

	name := fmt.Sprintf("projects/-/serviceAccounts/%s", req.GoogleAccessID)
	signBytes := func(payload []byte) ([]byte, error) {
		resp, err := svc.Projects.ServiceAccounts.SignBlob(name, &iamcredentials.SignBlobRequest{
			Payload: base64.StdEncoding.EncodeToString(payload),
		}).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("signBlob as %s: %w", req.GoogleAccessID, err)
		}
		return base64.StdEncoding.DecodeString(resp.SignedBlob)
	}

	u, err := storage.SignedURL(req.Bucket, req.Object, &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         method,
		Expires:        s.now().Add(req.Expiry + expirySlack),
		GoogleAccessID: req.GoogleAccessID,
		SignBytes:      signBytes,
	})
	if err != nil {
		return "", err
	}
	return u, nil
}
