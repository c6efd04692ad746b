package selection

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/windlass-dev/windlass/pkg/provider"
)

// Filter evaluates whether an object passes selection criteria.
//
// Filters operate on ObjectSummary data available from List operations
// (key, size, lastModified). No additional HEAD calls are needed.
type Filter interface {
	// Match returns true if the object passes the filter.
	Match(obj *provider.ObjectSummary) bool

	// String returns a human-readable description of the filter.
	String() string
}

// Filter errors.
var (
	ErrInvalidSize    = errors.New("invalid size value")
	ErrInvalidDay     = errors.New("invalid day value")
	ErrInvalidPattern = errors.New("invalid glob pattern")
)

// PatternError wraps pattern-related errors with context.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return "pattern " + e.Pattern + ": " + e.Err.Error()
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// WindowFilter filters objects by modification time window.
//
// The window is half-open: [start, end). A zero start or end leaves
// that side of the window unbounded.
type WindowFilter struct {
	start time.Time
	end   time.Time
}

// NewWindowFilter creates a window filter.
// Returns nil if both bounds are zero.
func NewWindowFilter(start, end time.Time) *WindowFilter {
	if start.IsZero() && end.IsZero() {
		return nil
	}
	return &WindowFilter{start: start, end: end}
}

// Match returns true if the object's modification time falls in [start, end).
func (f *WindowFilter) Match(obj *provider.ObjectSummary) bool {
	if !f.start.IsZero() && obj.LastModified.Before(f.start) {
		return false
	}
	if !f.end.IsZero() && !obj.LastModified.Before(f.end) {
		return false
	}
	return true
}

// String returns a human-readable description.
func (f *WindowFilter) String() string {
	const layout = "2006-01-02 15:04:05"
	switch {
	case !f.start.IsZero() && !f.end.IsZero():
		return fmt.Sprintf("modified: %s to %s", f.start.Format(layout), f.end.Format(layout))
	case !f.start.IsZero():
		return fmt.Sprintf("modified: on/after %s", f.start.Format(layout))
	case !f.end.IsZero():
		return fmt.Sprintf("modified: before %s", f.end.Format(layout))
	default:
		return "modified: any"
	}
}

// ContainsFilter filters objects by case-insensitive substring match on the key.
type ContainsFilter struct {
	raw    string
	needle string
}

// NewContainsFilter creates a contains filter.
// Returns nil if the needle is empty.
func NewContainsFilter(needle string) *ContainsFilter {
	if needle == "" {
		return nil
	}
	return &ContainsFilter{raw: needle, needle: strings.ToLower(needle)}
}

// Match returns true if the key contains the needle, ignoring case.
func (f *ContainsFilter) Match(obj *provider.ObjectSummary) bool {
	return strings.Contains(strings.ToLower(obj.Key), f.needle)
}

// String returns a human-readable description.
func (f *ContainsFilter) String() string {
	return fmt.Sprintf("name contains %q", f.raw)
}

// GlobFilter filters objects by include/exclude glob patterns on the key.
//
// A key passes if it matches at least one include pattern (or includes
// are empty) and matches no exclude pattern. Patterns use doublestar
// syntax, so "**" crosses path separators.
type GlobFilter struct {
	includes []string
	excludes []string
}

// NewGlobFilter creates a glob filter from include and exclude patterns.
// Returns nil if both lists are empty. Returns an error for any pattern
// that does not compile.
func NewGlobFilter(includes, excludes []string) (*GlobFilter, error) {
	if len(includes) == 0 && len(excludes) == 0 {
		return nil, nil
	}
	for _, p := range includes {
		if !doublestar.ValidatePattern(p) {
			return nil, &PatternError{Pattern: p, Err: ErrInvalidPattern}
		}
	}
	for _, p := range excludes {
		if !doublestar.ValidatePattern(p) {
			return nil, &PatternError{Pattern: p, Err: ErrInvalidPattern}
		}
	}
	return &GlobFilter{includes: includes, excludes: excludes}, nil
}

// Match returns true if the key passes the include/exclude patterns.
func (f *GlobFilter) Match(obj *provider.ObjectSummary) bool {
	if len(f.includes) > 0 {
		matched := false
		for _, p := range f.includes {
			if matchPattern(p, obj.Key) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for _, p := range f.excludes {
		if matchPattern(p, obj.Key) {
			return false
		}
	}
	return true
}

// String returns a human-readable description.
func (f *GlobFilter) String() string {
	var parts []string
	if len(f.includes) > 0 {
		parts = append(parts, fmt.Sprintf("include: %s", strings.Join(f.includes, "|")))
	}
	if len(f.excludes) > 0 {
		parts = append(parts, fmt.Sprintf("exclude: %s", strings.Join(f.excludes, "|")))
	}
	return strings.Join(parts, ", ")
}

// matchPattern matches a key against a doublestar pattern.
func matchPattern(pattern, key string) bool {
	matched, err := doublestar.Match(pattern, key)
	if err != nil {
		// Pattern was validated at construction time, so this shouldn't happen
		return false
	}
	return matched
}

// SizeFilter filters objects by size range.
type SizeFilter struct {
	min int64 // -1 means no minimum
	max int64 // -1 means no maximum
}

// NewSizeFilter creates a size filter from human-readable min/max values
// ("1KB", "100MiB"). Returns nil if both are empty.
func NewSizeFilter(minSize, maxSize string) (*SizeFilter, error) {
	if minSize == "" && maxSize == "" {
		return nil, nil
	}

	f := &SizeFilter{min: -1, max: -1}

	if minSize != "" {
		size, err := ParseSize(minSize)
		if err != nil {
			return nil, fmt.Errorf("min size: %w", err)
		}
		f.min = size
	}

	if maxSize != "" {
		size, err := ParseSize(maxSize)
		if err != nil {
			return nil, fmt.Errorf("max size: %w", err)
		}
		f.max = size
	}

	if f.min >= 0 && f.max >= 0 && f.min > f.max {
		return nil, fmt.Errorf("%w: min (%d) > max (%d)", ErrInvalidSize, f.min, f.max)
	}

	return f, nil
}

// Match returns true if object size is within the configured range.
func (f *SizeFilter) Match(obj *provider.ObjectSummary) bool {
	if f.min >= 0 && obj.Size < f.min {
		return false
	}
	if f.max >= 0 && obj.Size > f.max {
		return false
	}
	return true
}

// String returns a human-readable description.
func (f *SizeFilter) String() string {
	switch {
	case f.min >= 0 && f.max >= 0:
		return fmt.Sprintf("size: %s - %s", FormatSize(f.min), FormatSize(f.max))
	case f.min >= 0:
		return fmt.Sprintf("size: >= %s", FormatSize(f.min))
	case f.max >= 0:
		return fmt.Sprintf("size: <= %s", FormatSize(f.max))
	default:
		return "size: any"
	}
}

// CompositeFilter combines multiple filters with AND semantics.
// All filters must pass for the object to match.
type CompositeFilter struct {
	filters []Filter
}

// NewCompositeFilter creates a composite filter from the given filters.
// Nil filters are ignored. Returns nil if no non-nil filters provided.
func NewCompositeFilter(filters ...Filter) *CompositeFilter {
	var nonNil []Filter
	for _, f := range filters {
		if f != nil {
			nonNil = append(nonNil, f)
		}
	}
	if len(nonNil) == 0 {
		return nil
	}
	return &CompositeFilter{filters: nonNil}
}

// Match returns true if all filters pass.
func (f *CompositeFilter) Match(obj *provider.ObjectSummary) bool {
	for _, filter := range f.filters {
		if !filter.Match(obj) {
			return false
		}
	}
	return true
}

// String returns a human-readable description.
func (f *CompositeFilter) String() string {
	if len(f.filters) == 0 {
		return "no filters"
	}
	parts := make([]string, len(f.filters))
	for i, filter := range f.filters {
		parts[i] = filter.String()
	}
	return strings.Join(parts, ", ")
}

// Filters returns the underlying filters.
func (f *CompositeFilter) Filters() []Filter {
	return f.filters
}
