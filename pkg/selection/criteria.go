package selection

import (
	"errors"
	"fmt"
	"time"
)

// Criteria captures what the operator asked for, either interactively
// or through flags and manifests. Exactly one of the two time modes may
// be set: LookbackDays selects a rolling window ending now, OnDate
// selects a single calendar day.
type Criteria struct {
	// LookbackDays selects objects modified within the last N days.
	// Zero means unset.
	LookbackDays int

	// OnDate selects objects modified on this calendar day, from
	// 00:00:00 through 23:59:59 inclusive. The zero value means unset.
	OnDate time.Time

	// Contains keeps only keys containing this substring, ignoring case.
	Contains string

	// Includes are glob patterns keys must match (at least one).
	Includes []string

	// Excludes are glob patterns keys must not match (any).
	Excludes []string

	// MinSize and MaxSize bound object sizes, in human-readable form
	// ("1KB", "100MiB"). Empty means unbounded.
	MinSize string
	MaxSize string
}

// Criteria errors.
var (
	ErrConflictingWindow = errors.New("lookback days and calendar date are mutually exclusive")
	ErrNegativeLookback  = errors.New("lookback days must be positive")
)

// Validate checks the criteria for internal consistency.
func (c Criteria) Validate() error {
	if c.LookbackDays < 0 {
		return fmt.Errorf("%w: got %d", ErrNegativeLookback, c.LookbackDays)
	}
	if c.LookbackDays > 0 && !c.OnDate.IsZero() {
		return ErrConflictingWindow
	}
	return nil
}

// Window returns the half-open time window [start, end) the criteria
// select, evaluated against now. Lookback mode has an open end; an
// unset time mode returns two zero times.
func (c Criteria) Window(now time.Time) (start, end time.Time) {
	switch {
	case c.LookbackDays > 0:
		return now.AddDate(0, 0, -c.LookbackDays), time.Time{}
	case !c.OnDate.IsZero():
		return c.OnDate, c.OnDate.AddDate(0, 0, 1)
	default:
		return time.Time{}, time.Time{}
	}
}

// Filter compiles the criteria into a composite filter, evaluating the
// time window against now. Returns nil if no criteria are set.
func (c Criteria) Filter(now time.Time) (*CompositeFilter, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var filters []Filter

	start, end := c.Window(now)
	if w := NewWindowFilter(start, end); w != nil {
		filters = append(filters, w)
	}

	if cf := NewContainsFilter(c.Contains); cf != nil {
		filters = append(filters, cf)
	}

	globFilter, err := NewGlobFilter(c.Includes, c.Excludes)
	if err != nil {
		return nil, err
	}
	if globFilter != nil {
		filters = append(filters, globFilter)
	}

	sizeFilter, err := NewSizeFilter(c.MinSize, c.MaxSize)
	if err != nil {
		return nil, err
	}
	if sizeFilter != nil {
		filters = append(filters, sizeFilter)
	}

	if len(filters) == 0 {
		return nil, nil
	}

	return &CompositeFilter{filters: filters}, nil
}
