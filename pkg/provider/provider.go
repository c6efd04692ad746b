// Package provider defines the storage abstraction windlass pulls files
// through.
//
// A Provider covers the two read paths the tool needs: paginated listing
// and per-object metadata. Reading object content is an optional capability
// (see ObjectGetter) so that list-only callers never depend on it.
// Credentials are resolved before construction; a provider never prompts
// for or stores them itself.
package provider

import (
	"context"
	"time"
)

// Provider abstracts object storage read operations.
//
// Implementations are safe for concurrent use and page through results
// with continuation tokens. Credential resolution happens in the
// constructor, through whatever chain the backend's SDK offers.
type Provider interface {
	// List returns one page of objects under opts.Prefix. Pass the
	// returned ContinuationToken back in to fetch the next page.
	List(ctx context.Context, opts ListOptions) (*ListResult, error)

	// Head returns metadata for one object, or ErrNotFound when the
	// key does not exist.
	Head(ctx context.Context, key string) (*ObjectMeta, error)

	// Close releases any resources held by the provider.
	Close() error
}

// ListOptions configures a single List page.
type ListOptions struct {
	// Prefix restricts the listing to keys that start with it.
	// Empty lists the whole bucket.
	Prefix string

	// ContinuationToken resumes where a previous page left off.
	ContinuationToken string

	// MaxKeys caps the page size. Zero lets the backend choose,
	// which for S3 means 1000.
	MaxKeys int
}

// ListResult is one page of a listing.
type ListResult struct {
	Objects []ObjectSummary

	// ContinuationToken fetches the page after this one.
	// Empty means the listing is complete.
	ContinuationToken string

	// IsTruncated reports whether more pages remain.
	IsTruncated bool
}

// ObjectSummary is the listing-level view of an object. Selection filters
// and the download loop both operate on it.
type ObjectSummary struct {
	// Key is the full object key within the bucket.
	Key string

	// Size in bytes. Zero when the backend omits it.
	Size int64

	// ETag is the entity tag, usually an MD5 of the content.
	ETag string

	LastModified time.Time
}

// ObjectMeta is the Head-level view: everything a summary carries plus
// content type and user metadata.
type ObjectMeta struct {
	ObjectSummary

	ContentType string

	// Metadata holds the user-defined key-value pairs stored with
	// the object.
	Metadata map[string]string
}

// ProviderType identifies a storage backend.
type ProviderType string

const (
	// ProviderS3 is AWS S3 or any S3-compatible service.
	ProviderS3 ProviderType = "s3"

	// ProviderFile serves a local directory tree as if it were a bucket.
	ProviderFile ProviderType = "file"
)

func (p ProviderType) String() string {
	return string(p)
}
