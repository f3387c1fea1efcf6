package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	origVersion, origCommit := Version, Commit
	defer func() {
		Version, Commit = origVersion, origCommit
	}()

	Version = "1.2.3"
	Commit = "abc1234"

	if got, want := String(), "1.2.3 (abc1234)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestString_DefaultCommit(t *testing.T) {
	result := String()
	if !strings.HasPrefix(result, Version+" (") || !strings.HasSuffix(result, ")") {
		t.Errorf("String() = %q, want %q prefix and parenthesised commit", result, Version)
	}
}

func TestUserAgent(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	Version = "0.4.0"
	if got := UserAgent(); got != "listing-watch/0.4.0" {
		t.Errorf("UserAgent() = %q", got)
	}
}
