package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Ingestion Types
// -----------------------------------------------------------------------------

// Announcement is one listing notice reported by a source.
type Announcement struct {
	Title          string // Title as published
	Href           string // Source-native ordering key, only compared within one source
	NormalizedText string // Cross-source dedup key, see Normalize
}

// NewAnnouncement builds an Announcement and fills in its fingerprint.
func NewAnnouncement(title, href string) Announcement {
	return Announcement{
		Title:          title,
		Href:           href,
		NormalizedText: Normalize(title),
	}
}

// Message is one inbound push message.
type Message struct {
	Text       string
	Channel    string    // Channel or chat the message arrived on (may be empty)
	ReceivedAt time.Time // Local timestamp when the message was read
}

// Detection records an accepted new announcement and the symbols derived from it.
type Detection struct {
	ID         uuid.UUID
	Source     string // Source name, or the listener name for push messages
	Title      string
	Href       string // Empty for push messages
	Symbols    []string
	DetectedAt time.Time
}

// NewDetection stamps a detection with a fresh ID and the current time.
func NewDetection(source string, ann Announcement, symbols []string) Detection {
	return Detection{
		ID:         uuid.New(),
		Source:     source,
		Title:      ann.Title,
		Href:       ann.Href,
		Symbols:    symbols,
		DetectedAt: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Execution Types
// -----------------------------------------------------------------------------

// OrderResult describes an order accepted by an execution backend.
type OrderResult struct {
	OrderID     string
	Symbol      string          // Base asset, e.g. "ABC"
	Market      string          // Exchange market, e.g. "ABCUSDT"
	QuoteSpent  decimal.Decimal // Quote asset actually spent (requested amount if unknown)
	ExecutedQty decimal.Decimal // Base asset received (zero if unknown)
	Status      string
	PlacedAt    time.Time
}

// OutcomeKind classifies a dispatch attempt.
type OutcomeKind string

const (
	OutcomeExecuted OutcomeKind = "executed"
	OutcomeSkipped  OutcomeKind = "skipped"
	OutcomeFailed   OutcomeKind = "failed"
)

// Outcome is the result of triggering the action for one symbol.
type Outcome struct {
	Kind   OutcomeKind
	Symbol string
	Order  *OrderResult // Set only when Kind == OutcomeExecuted
	Reason string       // Why the attempt was skipped or failed
}

// Executed reports whether the backend accepted the order.
func (o Outcome) Executed() bool {
	return o.Kind == OutcomeExecuted
}
