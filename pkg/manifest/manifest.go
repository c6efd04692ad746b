// Package manifest loads and validates pull manifests.
//
// A pull manifest is a YAML or JSON file describing one complete pull job:
// the bucket to list, which objects to keep, and where downloads and
// records go. Running the same manifest twice runs the same job twice,
// with none of the interactive prompts.
//
// Every manifest is checked against a JSON Schema before use; the schema
// types each field strictly and rejects unknown keys.
//
// A small one:
//
//	version: "1.0"
//	connection:
//	  provider: s3
//	  bucket: my-data-bucket
//	  prefix: exports/monthly/
//	  region: us-east-1
//	selection:
//	  days: 7
//	  contains: report
//	download:
//	  dir: downloads
//	output:
//	  destination: stdout
package manifest

// Manifest is one decoded pull manifest. Version and Connection are
// required; the other sections default sensibly when absent.
type Manifest struct {
	// Schema optionally points editors at the published JSON Schema,
	// e.g. "https://schemas.windlass.dev/windlass/v1.0.0/pull-manifest.schema.json".
	Schema string `json:"$schema,omitempty" yaml:"$schema,omitempty"`

	// Version of the manifest format. Only "1.0" exists.
	Version string `json:"version" yaml:"version"`

	Connection ConnectionConfig `json:"connection" yaml:"connection"`

	// Selection narrows which listed objects the job keeps. Empty keeps
	// everything under the prefix.
	Selection SelectionConfig `json:"selection,omitempty" yaml:"selection,omitempty"`

	Download DownloadConfig `json:"download,omitempty" yaml:"download,omitempty"`
	Output   OutputConfig   `json:"output,omitempty" yaml:"output,omitempty"`
}

// ConnectionConfig names the bucket and how to reach it.
type ConnectionConfig struct {
	// Provider is "s3" or "file", defaulting to "s3".
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`

	// Bucket to list. The file provider reads this as a directory path.
	Bucket string `json:"bucket" yaml:"bucket"`

	// Prefix limits the listing to keys under it.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`

	Region string `json:"region,omitempty" yaml:"region,omitempty"`

	// Endpoint switches to an S3-compatible service,
	// e.g. "https://s3.wasabisys.com".
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// Profile names an AWS credential profile.
	Profile string `json:"profile,omitempty" yaml:"profile,omitempty"`
}

// SelectionConfig decides which listed objects a pull keeps. Fields
// compose with AND semantics. Days and Date are mutually exclusive: a job
// looks back over recent days or targets one calendar day, never both.
type SelectionConfig struct {
	// Days keeps objects modified within the last N days.
	Days int `json:"days,omitempty" yaml:"days,omitempty"`

	// Date keeps objects modified on one calendar day, written as
	// "DD-MM-YYYY" or "YYYY-MM-DD".
	Date string `json:"date,omitempty" yaml:"date,omitempty"`

	// Contains keeps keys containing this substring, case-insensitively.
	Contains string `json:"contains,omitempty" yaml:"contains,omitempty"`

	// Includes are glob patterns a key must match. Empty matches all.
	Includes []string `json:"includes,omitempty" yaml:"includes,omitempty"`

	// Excludes reject a key even when an include matched it.
	Excludes []string `json:"excludes,omitempty" yaml:"excludes,omitempty"`

	Size SizeConfig `json:"size,omitempty" yaml:"size,omitempty"`
}

// SizeConfig bounds object sizes, both ends inclusive. Values take raw
// bytes "1024", base-10 "1KB", or base-2 "1KiB".
type SizeConfig struct {
	Min string `json:"min,omitempty" yaml:"min,omitempty"`
	Max string `json:"max,omitempty" yaml:"max,omitempty"`
}

// DownloadConfig places the downloaded files.
type DownloadConfig struct {
	// Dir receives the downloads, created if absent.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// OutputConfig places the JSONL records and controls progress lines.
type OutputConfig struct {
	// Destination is "stdout", "stderr", or "file:/path/to/records.jsonl".
	Destination string `json:"destination,omitempty" yaml:"destination,omitempty"`

	// Progress toggles per-file progress lines on stderr, on by default.
	Progress *bool `json:"progress,omitempty" yaml:"progress,omitempty"`
}

// Defaults for the optional sections.
const (
	DefaultVersion     = "1.0"
	DefaultProvider    = "s3"
	DefaultDownloadDir = "downloads"
	DefaultDestination = "stdout"
	DefaultProgress    = true
)

// ApplyDefaults fills the optional sections in place, so callers after
// loading never reason about empty strings.
func (m *Manifest) ApplyDefaults() {
	if m.Connection.Provider == "" {
		m.Connection.Provider = DefaultProvider
	}
	if m.Download.Dir == "" {
		m.Download.Dir = DefaultDownloadDir
	}
	if m.Output.Destination == "" {
		m.Output.Destination = DefaultDestination
	}
	if m.Output.Progress == nil {
		on := DefaultProgress
		m.Output.Progress = &on
	}
}

// ProgressEnabled resolves the progress setting, defaulting when unset.
func (o *OutputConfig) ProgressEnabled() bool {
	if o.Progress == nil {
		return DefaultProgress
	}
	return *o.Progress
}
