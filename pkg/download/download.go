// Package download writes selected bucket objects to a local directory.
//
// Downloads run strictly sequentially in the order given, which for
// interactive runs is newest first. A failure on one object is recorded
// and the run moves on; only a broken output stream or a cancelled
// context stops the loop early.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/windlass-dev/windlass/pkg/output"
	"github.com/windlass-dev/windlass/pkg/provider"
)

type Config struct {
	// Dir is the destination directory. It is created if absent.
	Dir string
}

// Outcome records the result of a single download attempt.
type Outcome struct {
	Key       string
	LocalPath string
	Bytes     int64
	Err       error
}

// Summary contains aggregate statistics from a completed run.
type Summary struct {
	Attempted  int64
	Downloaded int64
	Failed     int64
	Bytes      int64
	Duration   time.Duration
}

// Downloader copies objects from a storage provider to local disk.
type Downloader struct {
	source provider.Provider
	writer output.Writer
	cfg    Config
}

// New creates a downloader. The writer receives one download record per
// attempted object and must not be nil.
func New(source provider.Provider, writer output.Writer, cfg Config) *Downloader {
	return &Downloader{source: source, writer: writer, cfg: cfg}
}

// LocalName derives the local filename for an object key: the part
// after the last "/", or the whole key with "/" replaced by "_" when
// the key ends in a slash.
func LocalName(key string) string {
	name := key
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		name = key[idx+1:]
	}
	if name == "" {
		name = strings.ReplaceAll(key, "/", "_")
	}
	return name
}

// DetectCollisions maps each local filename claimed by more than one
// key to the keys that claim it, in input order. Colliding keys
// overwrite each other in the destination directory, so callers should
// warn before downloading.
func DetectCollisions(objects []provider.ObjectSummary) map[string][]string {
	names := make(map[string][]string)
	for _, obj := range objects {
		name := LocalName(obj.Key)
		names[name] = append(names[name], obj.Key)
	}

	collisions := make(map[string][]string)
	for name, keys := range names {
		if len(keys) > 1 {
			collisions[name] = keys
		}
	}
	return collisions
}

// Run downloads the given objects one at a time.
//
// Per-object failures are recorded in the returned outcomes and as
// failed download records; they do not abort the run. Run returns an
// error only for conditions that invalidate the whole run: the
// destination directory cannot be created, the provider cannot serve
// object content, the output stream breaks, or the context is
// cancelled. Cancellation is honored between objects and returns the
// partial summary and outcomes accumulated so far.
func (d *Downloader) Run(ctx context.Context, objects []provider.ObjectSummary) (*Summary, []Outcome, error) {
	start := time.Now()
	summary := &Summary{}

	getter, ok := d.source.(provider.ObjectGetter)
	if !ok {
		return nil, nil, errors.New("provider does not support GetObject")
	}

	if err := os.MkdirAll(d.cfg.Dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create download dir: %w", err)
	}

	outcomes := make([]Outcome, 0, len(objects))
	for i := range objects {
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(start)
			return summary, outcomes, err
		}

		key := objects[i].Key
		localPath := filepath.Join(d.cfg.Dir, LocalName(key))
		summary.Attempted++

		n, err := d.downloadOne(ctx, getter, key, localPath)
		outcome := Outcome{Key: key, LocalPath: localPath, Bytes: n, Err: err}
		outcomes = append(outcomes, outcome)

		record := &output.DownloadRecord{
			Key:       key,
			LocalPath: localPath,
			Bytes:     n,
			Status:    output.StatusOK,
		}
		if err != nil {
			summary.Failed++
			record.Status = output.StatusFailed
			record.Error = err.Error()
		} else {
			summary.Downloaded++
			summary.Bytes += n
		}

		if werr := d.writer.WriteDownload(ctx, record); werr != nil {
			summary.Duration = time.Since(start)
			return summary, outcomes, werr
		}
	}

	summary.Duration = time.Since(start)
	return summary, outcomes, nil
}

// downloadOne streams a single object to localPath. The file is
// truncated if it already exists. On any failure the partial file is
// removed so a bad attempt never leaves a half-written file behind.
func (d *Downloader) downloadOne(ctx context.Context, getter provider.ObjectGetter, key, localPath string) (int64, error) {
	body, _, err := getter.GetObject(ctx, key)
	if err != nil {
		return 0, err
	}
	defer func() { _ = body.Close() }()

	f, err := os.Create(localPath)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", localPath, err)
	}

	n, err := io.Copy(f, body)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(localPath)
		return 0, fmt.Errorf("write %s: %w", localPath, err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(localPath)
		return 0, fmt.Errorf("close %s: %w", localPath, err)
	}

	return n, nil
}
