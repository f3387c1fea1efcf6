// Package extract derives asset symbols from announcement text.
//
// Each Grammar is a pure function of its input. Sources pick one grammar in
// configuration; free-form push messages are run through a Chain.
package extract

import (
	"fmt"
	"regexp"
	"strings"
)

// Grammar identifies a symbol extraction strategy.
type Grammar string

const (
	// Parenthetical matches tickers in parentheses: "XYZ Labs (ABC) Lists".
	Parenthetical Grammar = "parenthetical"

	// Enumeration matches comma/"and" separated lists followed by the
	// availability marker: "AIXBT, ODOS and TOSHI are available for trading!".
	Enumeration Grammar = "enumeration"
)

// AvailabilityMarker gates the Enumeration grammar.
const AvailabilityMarker = "available for trading"

var (
	parenRe  = regexp.MustCompile(`\(([A-Z0-9]+)\)`)
	markerRe = regexp.MustCompile(`(?i)\s*(?:(?:are|is)\s+)?available\s+for\s+trading[!.]*`)
)

// AllGrammars returns every grammar in default priority order.
func AllGrammars() []Grammar {
	return []Grammar{Parenthetical, Enumeration}
}

// ParseGrammar maps a configuration value to a Grammar.
func ParseGrammar(s string) (Grammar, error) {
	g := Grammar(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllGrammars() {
		if g == known {
			return g, nil
		}
	}
	return "", fmt.Errorf("unknown grammar %q (valid: %s, %s)", s, Parenthetical, Enumeration)
}

// Extract returns the symbols found in text, possibly none.
func (g Grammar) Extract(text string) []string {
	switch g {
	case Parenthetical:
		return extractParenthetical(text)
	case Enumeration:
		return extractEnumeration(text)
	default:
		return nil
	}
}

func (g Grammar) String() string {
	return string(g)
}

// extractParenthetical keeps duplicates; the dispatcher ledger dedupes.
func extractParenthetical(text string) []string {
	matches := parenRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	symbols := make([]string, 0, len(matches))
	for _, m := range matches {
		symbols = append(symbols, m[1])
	}
	return symbols
}

func extractEnumeration(text string) []string {
	if !strings.Contains(strings.ToLower(text), AvailabilityMarker) {
		return nil
	}

	cleaned := markerRe.ReplaceAllString(text, "")

	var symbols []string
	for _, part := range strings.Split(cleaned, ",") {
		for _, sub := range strings.Split(part, " and ") {
			token := strings.TrimSpace(sub)
			if token == "" {
				continue
			}
			symbols = append(symbols, strings.ToUpper(token))
		}
	}
	return symbols
}

// Chain tries grammars in order and keeps the first non-empty result.
type Chain []Grammar

// DefaultChain is the priority order used for free-form messages.
func DefaultChain() Chain {
	return Chain(AllGrammars())
}

// Extract returns the symbols of the first grammar that yields any, and that grammar.
func (c Chain) Extract(text string) ([]string, Grammar) {
	for _, g := range c {
		if symbols := g.Extract(text); len(symbols) > 0 {
			return symbols, g
		}
	}
	return nil, ""
}
