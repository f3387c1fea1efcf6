package poller

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rickgao/listing-watch/internal/model"
)

func anns(hrefs ...string) []model.Announcement {
	out := make([]model.Announcement, len(hrefs))
	for i, h := range hrefs {
		out[i] = model.NewAnnouncement("title "+h, h)
	}
	return out
}

func hrefs(list []model.Announcement) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.Href
	}
	return out
}

func TestNewSince(t *testing.T) {
	tests := []struct {
		name     string
		snapshot []model.Announcement
		pointer  string
		max      int
		want     []string
	}{
		{
			name:     "pointer at head",
			snapshot: anns("C", "B", "A"),
			pointer:  "C",
			want:     []string{},
		},
		{
			name:     "two new items replayed oldest first",
			snapshot: anns("E", "D", "C", "B", "A"),
			pointer:  "C",
			want:     []string{"D", "E"},
		},
		{
			name:     "pointer at tail",
			snapshot: anns("E", "D", "C", "B", "A"),
			pointer:  "A",
			want:     []string{"B", "C", "D", "E"},
		},
		{
			name:     "pointer missing keeps everything",
			snapshot: anns("C", "B", "A"),
			pointer:  "Z",
			want:     []string{"A", "B", "C"},
		},
		{
			name:     "pointer missing capped to newest",
			snapshot: anns("E", "D", "C", "B", "A"),
			pointer:  "Z",
			max:      2,
			want:     []string{"D", "E"},
		},
		{
			name:     "cap ignored when pointer found",
			snapshot: anns("E", "D", "C", "B", "A"),
			pointer:  "A",
			max:      2,
			want:     []string{"B", "C", "D", "E"},
		},
		{
			name:     "empty snapshot",
			snapshot: nil,
			pointer:  "A",
			want:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewSince(tt.snapshot, tt.pointer, tt.max)
			assert.Equal(t, tt.want, hrefs(got))
		})
	}
}

func TestNewSince_DoesNotMutateSnapshot(t *testing.T) {
	snapshot := anns("C", "B", "A")
	NewSince(snapshot, "A", 0)
	assert.Equal(t, []string{"C", "B", "A"}, hrefs(snapshot))
}
