package poller

import (
	"slices"

	"github.com/rickgao/listing-watch/internal/model"
)

// NewSince returns the announcements in snapshot (newest first) that are newer
// than pointer, ordered oldest first for replay.
//
// If pointer is not in the snapshot the whole snapshot is treated as new,
// keeping at most max of the newest items (max <= 0 keeps all).
func NewSince(snapshot []model.Announcement, pointer string, max int) []model.Announcement {
	idx := slices.IndexFunc(snapshot, func(a model.Announcement) bool {
		return a.Href == pointer
	})

	var fresh []model.Announcement
	switch {
	case idx >= 0:
		fresh = slices.Clone(snapshot[:idx])
	case max > 0 && len(snapshot) > max:
		fresh = slices.Clone(snapshot[:max])
	default:
		fresh = slices.Clone(snapshot)
	}

	slices.Reverse(fresh)
	return fresh
}
