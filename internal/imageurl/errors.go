package imageurl

import (
	"errors"
	"fmt"
)

// ConfigurationError means a value needed to sign URLs was not configured.
type ConfigurationError struct {
	Field string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("image url: %s is not configured", e.Field)
}

// CredentialError means no usable access token could be obtained.
type CredentialError struct {
	Err error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("image url: credentials: %v", e.Err)
}

func (e *CredentialError) Unwrap() error { return e.Err }

// SigningError means the storage backend did not issue a signed URL.
type SigningError struct {
	Bucket string
	Object string
	Err    error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("image url: signing gs://%s/%s: %v", e.Bucket, e.Object, e.Err)
}

func (e *SigningError) Unwrap() error { return e.Err }

// Kind names the failure class of err for logs.
func Kind(err error) string {
	var (
		cfgErr  *ConfigurationError
		credErr *CredentialError
		signErr *SigningError
	)
	switch {
	case errors.As(err, &cfgErr):
		return "configuration"
	case errors.As(err, &credErr):
		return "credential"
	case errors.As(err, &signErr):
		return "signing"
	default:
		return "unknown"
	}
}
