package listener

import (
	"strings"

	"github.com/samber/lo"

	"github.com/rickgao/listing-watch/internal/model"
)

// DefaultMarkers are the phrases that mark a message as a listing announcement.
var DefaultMarkers = []string{"will list", "new listing", "available for trading"}

// Classifier matches messages against marker phrases, case-insensitively.
type Classifier struct {
	markers []string // normalized, non-empty
}

// NewClassifier builds a Classifier. Blank markers are dropped; an empty set
// falls back to DefaultMarkers.
func NewClassifier(markers []string) Classifier {
	norm := lo.Uniq(lo.Compact(lo.Map(markers, func(m string, _ int) string {
		return model.Normalize(m)
	})))
	if len(norm) == 0 {
		return NewClassifier(DefaultMarkers)
	}
	return Classifier{markers: norm}
}

// Match returns the first marker contained in text.
func (c Classifier) Match(text string) (string, bool) {
	norm := model.Normalize(text)
	return lo.Find(c.markers, func(m string) bool {
		return strings.Contains(norm, m)
	})
}

// Markers returns the normalized marker phrases.
func (c Classifier) Markers() []string {
	return append([]string(nil), c.markers...)
}
