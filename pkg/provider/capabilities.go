package provider

import (
	"context"
	"io"
)

// Optional capabilities, detected by type assertion so the core Provider
// interface stays list-and-head only. The download loop requires
// ObjectGetter on its source; listing never touches either of these.

// ObjectGetter streams an object's content.
//
// A contentLength of -1 means the backend did not report one.
type ObjectGetter interface {
	GetObject(ctx context.Context, key string) (body io.ReadCloser, contentLength int64, err error)
}

// ObjectPutter creates or overwrites an object.
//
// The filesystem provider implements this so fixtures can be seeded
// through the same interface the code under test reads back from.
type ObjectPutter interface {
	PutObject(ctx context.Context, key string, body io.Reader, contentLength int64) error
}
