// Package output provides JSONL output for listing and download runs.
//
// Output is structured as typed record envelopes containing objects,
// downloads, errors, and a final summary. Each line is a self-contained
// JSON object that can be parsed independently.
package output

import (
	"encoding/json"
	"errors"
	"time"
)

// Record type constants define the envelope types for JSONL output.
// These follow the pattern: windlass.<type>.v<version>
const (
	// TypeObject identifies object listing records.
	TypeObject = "windlass.object.v1"

	// TypeDownload identifies per-file download records.
	TypeDownload = "windlass.download.v1"

	// TypeError identifies error records.
	TypeError = "windlass.error.v1"

	// TypeSummary identifies final summary records.
	TypeSummary = "windlass.summary.v1"
)

// Record is the envelope for all JSONL output.
//
// Each line of JSONL output contains a Record with a type-specific
// payload in the Data field. The type field determines how to
// interpret the Data payload.
type Record struct {
	// Type identifies the record type (e.g., "windlass.object.v1").
	Type string `json:"type"`

	// TS is the timestamp when the record was created (RFC3339Nano).
	TS time.Time `json:"ts"`

	// RunID is the correlation ID for this run.
	RunID string `json:"run_id"`

	// Provider identifies the storage provider (e.g., "s3", "file").
	Provider string `json:"provider"`

	// Data contains the type-specific payload as raw JSON.
	Data json.RawMessage `json:"data"`
}

// ObjectRecord is the data payload for object listings.
//
// This contains the metadata for a single object that matched
// the selection criteria.
type ObjectRecord struct {
	// Key is the full object key (path) in the bucket.
	Key string `json:"key"`

	// Size is the object size in bytes.
	Size int64 `json:"size"`

	// ETag is the entity tag, typically an MD5 hash of the object.
	ETag string `json:"etag"`

	// LastModified is when the object was last modified.
	LastModified time.Time `json:"last_modified"`
}

// DownloadRecord is the data payload for a single download attempt.
//
// One record is emitted per object, whether the download succeeded or
// failed. A failed attempt carries the error message and does not stop
// the run.
type DownloadRecord struct {
	// Key is the object key that was downloaded.
	Key string `json:"key"`

	// LocalPath is the destination path on disk.
	LocalPath string `json:"local_path"`

	// Bytes is the number of bytes written.
	Bytes int64 `json:"bytes"`

	// Status is "ok" or "failed".
	Status string `json:"status"`

	// Error is the failure message, if Status is "failed".
	Error string `json:"error,omitempty"`
}

// Download status values.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// ErrorRecord is the data payload for errors.
//
// Errors during downloads are emitted as records rather than failing
// the entire run, allowing partial results when some operations fail.
type ErrorRecord struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// Key is the object key related to this error, if applicable.
	Key string `json:"key,omitempty"`
}

// Error codes for ErrorRecord.
const (
	// ErrCodeAccessDenied indicates permission failure.
	ErrCodeAccessDenied = "ACCESS_DENIED"

	// ErrCodeNotFound indicates the object or bucket was not found.
	ErrCodeNotFound = "NOT_FOUND"

	// ErrCodeThrottled indicates rate limiting.
	ErrCodeThrottled = "THROTTLED"

	// ErrCodeWriteFailed indicates a local filesystem write failure.
	ErrCodeWriteFailed = "WRITE_FAILED"

	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal = "INTERNAL"
)

// SummaryRecord is the data payload for final summaries.
//
// A summary record is emitted at the end of a run with aggregate
// statistics. List-only runs leave the download counters at zero.
type SummaryRecord struct {
	// ObjectsListed is the total number of objects seen.
	ObjectsListed int64 `json:"objects_listed"`

	// ObjectsMatched is the number of objects passing selection.
	ObjectsMatched int64 `json:"objects_matched"`

	// BytesMatched is the cumulative size of matched objects in bytes.
	BytesMatched int64 `json:"bytes_matched"`

	// Downloaded is the number of objects downloaded successfully.
	Downloaded int64 `json:"downloaded"`

	// Failed is the number of download attempts that failed.
	Failed int64 `json:"failed"`

	// BytesDownloaded is the total bytes written to disk.
	BytesDownloaded int64 `json:"bytes_downloaded"`

	// Duration is the total run duration.
	Duration time.Duration `json:"duration_ns"`

	// DurationHuman is a human-readable duration string.
	DurationHuman string `json:"duration"`
}

// Writer errors.
var (
	// ErrWriterClosed is returned when writing to a closed writer.
	ErrWriterClosed = errors.New("writer is closed")
)

// WriteError wraps errors that occur during write operations.
type WriteError struct {
	Op  string // Operation that failed (e.g., "marshal_data", "write")
	Err error  // Underlying error
}

func (e *WriteError) Error() string {
	return "output: " + e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
