// Package listing fetches complete object listings from a storage
// provider and narrows them with client-side selection criteria.
//
// Listing is strictly sequential: pages are fetched one at a time and
// every page is consumed before filtering completes. The result is
// sorted newest first, which is the order the download planner and the
// interactive console present to the operator.
package listing

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/windlass-dev/windlass/pkg/provider"
	"github.com/windlass-dev/windlass/pkg/selection"
)

// Config configures listing behavior.
type Config struct {
	// Prefix narrows the listing to keys under this prefix.
	// Empty lists the whole bucket.
	Prefix string

	// MaxKeys is the page size requested from the provider.
	// Zero lets the provider use its default.
	MaxKeys int

	// RateLimit is the maximum list requests per second.
	// Zero means unlimited.
	RateLimit float64
}

// Summary contains aggregate statistics from a completed listing.
type Summary struct {
	// Listed is the total number of objects seen from the provider.
	Listed int64

	// Matched is the number of objects that passed selection.
	Matched int64

	// BytesMatched is the cumulative size of matched objects.
	BytesMatched int64

	// Pages is the number of list requests made.
	Pages int

	// Duration is the total time spent listing.
	Duration time.Duration
}

// Listing is the outcome of a Run: the matched objects, newest first,
// plus aggregate statistics.
type Listing struct {
	Objects []provider.ObjectSummary
	Summary Summary
}

// Lister walks a bucket page by page and applies selection criteria.
//
// Lister is safe for single use only. Create a new Lister for each run.
type Lister struct {
	provider provider.Provider
	filter   *selection.CompositeFilter
	config   Config

	// Rate limiter (nil if unlimited)
	limiter *rate.Limiter
}

// New creates a new lister for the given provider.
//
// Use WithFilter to add selection criteria after creation.
func New(p provider.Provider, cfg Config) *Lister {
	l := &Lister{
		provider: p,
		config:   cfg,
	}

	if cfg.RateLimit > 0 {
		l.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return l
}

// WithFilter sets the selection filter. A nil filter matches everything.
// Returns the lister for method chaining.
func (l *Lister) WithFilter(f *selection.CompositeFilter) *Lister {
	l.filter = f
	return l
}

// Run fetches the complete listing and returns the matched objects
// sorted newest first.
//
// Run blocks until every page has been consumed, the context is
// cancelled, or a list request fails. A failed list request aborts the
// whole run: a partial listing would silently misreport what the
// bucket holds.
func (l *Lister) Run(ctx context.Context) (*Listing, error) {
	startTime := time.Now()

	var (
		objects []provider.ObjectSummary
		summary Summary
		token   string
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := l.waitForRateLimit(ctx); err != nil {
			return nil, err
		}

		result, err := l.provider.List(ctx, provider.ListOptions{
			Prefix:            l.config.Prefix,
			ContinuationToken: token,
			MaxKeys:           l.config.MaxKeys,
		})
		if err != nil {
			return nil, err
		}
		summary.Pages++

		for i := range result.Objects {
			summary.Listed++

			obj := result.Objects[i]
			if l.filter != nil && !l.filter.Match(&obj) {
				continue
			}
			summary.Matched++
			summary.BytesMatched += obj.Size
			objects = append(objects, obj)
		}

		if !result.IsTruncated || result.ContinuationToken == "" {
			break
		}
		token = result.ContinuationToken
	}

	selection.SortNewestFirst(objects)
	summary.Duration = time.Since(startTime)

	return &Listing{Objects: objects, Summary: summary}, nil
}

// waitForRateLimit blocks until the rate limiter allows a request.
// Returns immediately if rate limiting is disabled.
func (l *Lister) waitForRateLimit(ctx context.Context) error {
	if l.limiter == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}
