// Package s3 implements the provider interface for AWS S3 and
// S3-compatible services such as MinIO, Wasabi, and moto.
package s3

import "fmt"

// Config describes the bucket a Provider reads from and how to reach it.
//
// Credentials follow the SDK v2 default chain (environment, shared
// credentials file, shared config profile, then instance metadata) unless
// AccessKeyID and SecretAccessKey are both set, which short-circuits the
// chain with a static pair.
//
// For plain AWS the region resolves from Config, environment, or profile,
// falling back to us-east-1. When Endpoint points at an S3-compatible
// service no region fallback is applied, since most such services ignore
// it entirely.
type Config struct {
	// Bucket to read from. The only required field.
	Bucket string

	// Region overrides whatever the environment or profile would pick.
	Region string

	// Endpoint switches the client to an S3-compatible service,
	// e.g. http://localhost:9000 for a local MinIO. Empty means AWS.
	Endpoint string

	// ForcePathStyle puts the bucket in the URL path instead of the
	// hostname. Most S3-compatible services only answer path-style.
	ForcePathStyle bool

	// Profile selects a named profile from the shared AWS config.
	Profile string

	// AccessKeyID and SecretAccessKey form a static credential pair.
	// Set both or neither.
	AccessKeyID     string
	SecretAccessKey string

	// MaxKeys is the listing page size when the caller does not ask
	// for one. Zero means DefaultMaxKeys.
	MaxKeys int
}

const (
	// DefaultMaxKeys is the page size used when none is configured.
	DefaultMaxKeys = 1000

	// MaxAllowedKeys is the largest page S3 will return.
	MaxAllowedKeys = 1000

	// DefaultAWSRegion is the fallback when nothing else names a region.
	DefaultAWSRegion = "us-east-1"
)

// Validate reports configuration that can never produce a working client.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return &ConfigError{Field: "Bucket", Message: "a bucket is required"}
	}

	haveKey := c.AccessKeyID != ""
	haveSecret := c.SecretAccessKey != ""
	if haveKey != haveSecret {
		return &ConfigError{
			Field:   "AccessKeyID/SecretAccessKey",
			Message: "access key and secret must be set together",
		}
	}

	return nil
}

// ConfigError names the Config field that failed validation.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("s3 config: %s: %s", e.Field, e.Message)
}
