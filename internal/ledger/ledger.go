package ledger

import (
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/rickgao/listing-watch/internal/model"
)

// Ledger is the process-wide set of Streams. Create one per process (or per test).
type Ledger struct {
	mu      sync.RWMutex // guards the streams map, not stream contents
	streams map[string]*Stream
}

// New creates an empty Ledger.
func New() *Ledger {
	return &Ledger{
		streams: make(map[string]*Stream),
	}
}

// Stream returns the named stream, creating it on first use.
func (l *Ledger) Stream(name string) *Stream {
	l.mu.RLock()
	s, ok := l.streams[name]
	l.mu.RUnlock()
	if ok {
		return s
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.streams[name]; ok {
		return s
	}
	s = newStream(name)
	l.streams[name] = s
	return s
}

// Seen reports whether fingerprint is present in any of the named streams.
func (l *Ledger) Seen(fingerprint string, names ...string) bool {
	for _, s := range l.lookup(names) {
		if s.Contains(fingerprint) {
			return true
		}
	}
	return false
}

// ClaimAll atomically inserts fingerprint into every named stream if it is
// absent from all of them. Returns false (and changes nothing) if any stream
// already holds it.
//
// Streams are locked in name order so concurrent ClaimAll calls over
// overlapping stream sets cannot deadlock.
func (l *Ledger) ClaimAll(fingerprint string, names ...string) bool {
	streams := l.lookup(names)
	if len(streams) == 0 {
		return false
	}

	for _, s := range streams {
		s.mu.Lock()
	}
	defer func() {
		for i := len(streams) - 1; i >= 0; i-- {
			streams[i].mu.Unlock()
		}
	}()

	for _, s := range streams {
		if _, ok := s.fingerprints[fingerprint]; ok {
			return false
		}
	}
	for _, s := range streams {
		s.fingerprints[fingerprint] = struct{}{}
	}
	return true
}

// Stats returns a point-in-time view of every stream, sorted by name.
func (l *Ledger) Stats() []StreamStats {
	l.mu.RLock()
	names := lo.Keys(l.streams)
	l.mu.RUnlock()
	slices.Sort(names)

	return lo.Map(l.lookup(names), func(s *Stream, _ int) StreamStats {
		return s.Stats()
	})
}

// lookup resolves names to streams, deduplicated and sorted by name.
func (l *Ledger) lookup(names []string) []*Stream {
	names = lo.Uniq(names)
	slices.Sort(names)
	return lo.Map(names, func(name string, _ int) *Stream {
		return l.Stream(name)
	})
}

// Stream is the per-source dedup state: processed fingerprints and the
// last-seen pointer.
type Stream struct {
	name string

	mu           sync.Mutex
	fingerprints map[string]struct{}
	lastSeenHref string // empty until the first successful poll
}

// StreamStats is a snapshot of a Stream.
type StreamStats struct {
	Name         string
	Fingerprints int
	LastSeenHref string
}

func newStream(name string) *Stream {
	return &Stream{
		name:         name,
		fingerprints: make(map[string]struct{}),
	}
}

// Name returns the stream name.
func (s *Stream) Name() string {
	return s.name
}

// Pointer returns the last-seen href and whether it has been set.
func (s *Stream) Pointer() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeenHref, s.lastSeenHref != ""
}

// Seed registers a cold-start snapshot (newest first): every fingerprint is
// recorded and the pointer is set to the head. Returns false without changes
// if the pointer was already set or the snapshot is empty.
func (s *Stream) Seed(snapshot []model.Announcement) bool {
	if len(snapshot) == 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastSeenHref != "" {
		return false
	}
	for _, ann := range snapshot {
		s.fingerprints[ann.NormalizedText] = struct{}{}
	}
	s.lastSeenHref = snapshot[0].Href
	return true
}

// Advance moves the pointer to href. An empty href is ignored so a set
// pointer never reverts to "never polled".
func (s *Stream) Advance(href string) {
	if href == "" {
		return
	}
	s.mu.Lock()
	s.lastSeenHref = href
	s.mu.Unlock()
}

// Claim inserts fingerprint and reports whether it was absent.
func (s *Stream) Claim(fingerprint string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.fingerprints[fingerprint]; ok {
		return false
	}
	s.fingerprints[fingerprint] = struct{}{}
	return true
}

// Contains reports whether fingerprint has been recorded.
func (s *Stream) Contains(fingerprint string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.fingerprints[fingerprint]
	return ok
}

// Stats returns a snapshot of the stream.
func (s *Stream) Stats() StreamStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StreamStats{
		Name:         s.name,
		Fingerprints: len(s.fingerprints),
		LastSeenHref: s.lastSeenHref,
	}
}
