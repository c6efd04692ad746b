package provider

import (
	"errors"
	"fmt"
)

// Backend SDK failures are normalized to these sentinels at the provider
// boundary, so callers branch on errors.Is instead of matching SDK error
// strings.
var (
	// ErrNotFound means the requested object key does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrBucketNotFound means the bucket itself does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrAccessDenied means the credentials lack permission.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidCredentials means authentication itself failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrThrottled means the backend rate limited the request.
	ErrThrottled = errors.New("request throttled")

	// ErrProviderUnavailable means the backend could not be reached
	// or answered with a server-side failure.
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// ProviderError carries the operation, backend, and location of a failure
// alongside the normalized cause.
type ProviderError struct {
	// Op names the failed operation, such as "List" or "Get".
	Op string

	// Provider is the backend type, such as "s3".
	Provider ProviderType

	// Bucket and Key locate the failure when known.
	Bucket string
	Key    string

	// Err is the normalized cause, one of the sentinels above or the
	// raw backend error when nothing matched.
	Err error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Key != "":
		return fmt.Sprintf("%s %s: %s/%s: %v", e.Provider, e.Op, e.Bucket, e.Key, e.Err)
	case e.Bucket != "":
		return fmt.Sprintf("%s %s: %s: %v", e.Provider, e.Op, e.Bucket, e.Err)
	default:
		return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
	}
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err means the object does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsBucketNotFound reports whether err means the bucket does not exist.
func IsBucketNotFound(err error) bool {
	return errors.Is(err, ErrBucketNotFound)
}

// IsAccessDenied reports whether err means permission was refused.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsInvalidCredentials reports whether err means authentication failed.
func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

// IsThrottled reports whether err means the backend rate limited us.
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}

// IsProviderUnavailable reports whether err means the backend was down
// or unreachable.
func IsProviderUnavailable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable)
}
