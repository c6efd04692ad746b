package selection

import (
	"fmt"
	"strings"
	"time"
)

// dayLayouts are the accepted calendar day formats, tried in order.
// "15-01-2024" is what the interactive prompts ask for; "2024-01-15"
// is accepted from manifests and flags.
var dayLayouts = []string{
	"02-01-2006",
	"2006-01-02",
}

// ParseDay parses a calendar day in DD-MM-YYYY or YYYY-MM-DD form and
// returns midnight at the start of that day in loc. A nil loc means
// time.Local.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDay
	}
	if loc == nil {
		loc = time.Local
	}

	for _, layout := range dayLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q (want DD-MM-YYYY)", ErrInvalidDay, s)
}
