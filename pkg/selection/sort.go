package selection

import (
	"sort"

	"github.com/windlass-dev/windlass/pkg/provider"
)

// SortNewestFirst orders objects by modification time, newest first.
// The sort is stable, so objects sharing a timestamp keep their
// listing order.
func SortNewestFirst(objects []provider.ObjectSummary) {
	sort.SliceStable(objects, func(i, j int) bool {
		return objects[i].LastModified.After(objects[j].LastModified)
	})
}
