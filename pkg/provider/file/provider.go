// Package file serves a local directory tree through the provider
// interface, as if it were a bucket.
package file

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/windlass-dev/windlass/pkg/provider"
)

// Provider reads and writes objects under a base directory.
//
// Keys are slash-separated paths relative to the base, and Prefix is a
// plain string prefix over those keys, matching object-store semantics
// rather than directory semantics. A tree seeded through PutObject is an
// offline stand-in for a real bucket in tests and dry runs.
type Provider struct {
	baseDir string
}

var (
	_ provider.Provider     = (*Provider)(nil)
	_ provider.ObjectGetter = (*Provider)(nil)
	_ provider.ObjectPutter = (*Provider)(nil)
)

type Config struct {
	BaseDir string
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseDir) == "" {
		return errors.New("file provider: base dir is required")
	}
	return nil
}

func New(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Provider{baseDir: filepath.Clean(cfg.BaseDir)}, nil
}

func (p *Provider) Close() error { return nil }

// List walks the tree and returns one sorted page of matching files.
func (p *Provider) List(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, p.fail("List", "", err)
	}

	pageSize := opts.MaxKeys
	if pageSize <= 0 {
		pageSize = 1000
	}

	all, err := p.scan(strings.TrimPrefix(opts.Prefix, "/"))
	if err != nil {
		return nil, p.fail("List", opts.Prefix, err)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Key < all[j].Key })

	// The token is the last key of the previous page; resume strictly
	// after it.
	start := 0
	if opts.ContinuationToken != "" {
		start = sort.Search(len(all), func(i int) bool { return all[i].Key > opts.ContinuationToken })
	}
	end := min(start+pageSize, len(all))

	res := &provider.ListResult{Objects: all[start:end]}
	if end < len(all) {
		res.IsTruncated = true
		res.ContinuationToken = all[end-1].Key
	}
	return res, nil
}

// Head returns metadata for one file. Directories are not objects and
// report ErrNotFound, the same answer a bucket would give.
func (p *Provider) Head(ctx context.Context, key string) (*provider.ObjectMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, p.fail("Head", key, err)
	}

	full, err := p.resolve(key)
	if err != nil {
		return nil, p.fail("Head", key, err)
	}
	st, err := os.Stat(full)
	if err != nil {
		return nil, p.fail("Head", key, err)
	}
	if st.IsDir() {
		return nil, p.fail("Head", key, provider.ErrNotFound)
	}

	return &provider.ObjectMeta{
		ObjectSummary: provider.ObjectSummary{
			Key:          strings.TrimPrefix(key, "/"),
			Size:         st.Size(),
			LastModified: st.ModTime(),
		},
	}, nil
}

// GetObject opens one file for reading. The caller closes the body.
func (p *Provider) GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, p.fail("Get", key, err)
	}

	full, err := p.resolve(key)
	if err != nil {
		return nil, 0, p.fail("Get", key, err)
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, 0, p.fail("Get", key, err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, p.fail("Get", key, err)
	}
	return f, st.Size(), nil
}

// PutObject writes content to a temp file in the target directory, then
// renames it into place, so readers never observe a partial object. The
// size hint is unused; the copy runs to EOF.
func (p *Provider) PutObject(ctx context.Context, key string, body io.Reader, _ int64) error {
	if err := ctx.Err(); err != nil {
		return p.fail("Put", key, err)
	}

	full, err := p.resolve(key)
	if err != nil {
		return p.fail("Put", key, err)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return p.fail("Put", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), "windlass-put-*")
	if err != nil {
		return p.fail("Put", key, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := io.Copy(tmp, body); err != nil {
		return p.fail("Put", key, err)
	}
	if err := tmp.Close(); err != nil {
		return p.fail("Put", key, err)
	}
	return p.failIf("Put", key, os.Rename(tmpName, full))
}

// resolve maps a key onto a path under the base directory, rejecting keys
// whose cleaned form would climb out of it.
func (p *Provider) resolve(key string) (string, error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	clean := path.Clean(key)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", errors.New("key escapes the base directory")
	}
	return filepath.Join(p.baseDir, filepath.FromSlash(clean)), nil
}

// scan walks the narrowest directory that can contain prefix and returns
// a summary per regular file whose key matches it as a string prefix, so
// "logs/2024-0" matches "logs/2024-01.txt" the way a bucket would.
func (p *Provider) scan(prefix string) ([]provider.ObjectSummary, error) {
	walkRoot := ""
	if idx := strings.LastIndex(prefix, "/"); idx >= 0 {
		walkRoot = prefix[:idx]
	}

	root, err := p.resolve(walkRoot)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var found []provider.ObjectSummary
	_ = filepath.WalkDir(root, func(fp string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(p.baseDir, fp)
		if err != nil {
			return nil
		}
		key := filepath.ToSlash(rel)
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		found = append(found, provider.ObjectSummary{
			Key:          key,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	return found, nil
}

// fail wraps err with operation context, normalizing filesystem errors to
// the provider sentinels.
func (p *Provider) fail(op, key string, err error) error {
	switch {
	case err == nil:
		err = errors.New("unknown failure")
	case os.IsNotExist(err):
		err = provider.ErrNotFound
	case os.IsPermission(err):
		err = provider.ErrAccessDenied
	}
	return &provider.ProviderError{Op: op, Provider: provider.ProviderFile, Key: key, Err: err}
}

// failIf is fail for the tail position, passing nil through.
func (p *Provider) failIf(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return p.fail(op, key, err)
}
