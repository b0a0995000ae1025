package agent

import (
	"strings"
	"testing"
)

func TestSentinelAllowsBenignInstructions(t *testing.T) {
	s := NewSentinel()
	for _, in := range []string{
		"Open example.com and read the title",
		"Search for the weather in Oslo",
		"Summarize the top story on the front page",
	} {
		if got := s.Inspect(in); got.Decision != DecisionAllow {
			t.Errorf("Inspect(%q) = %q, want allow", in, got.Decision)
		}
	}
}

func TestSentinelFlagsDestructiveInstructions(t *testing.T) {
	s := NewSentinel()
	for _, in := range []string{
		"Delete my account",
		"Pay the outstanding invoice",
		"remove all saved addresses",
		"Please close my account on this site",
		"transfer money to this iban",
	} {
		got := s.Inspect(in)
		if got.Decision != DecisionRequireConfirmation {
			t.Errorf("Inspect(%q) = %q, want require_confirmation", in, got.Decision)
			continue
		}
		if strings.TrimSpace(got.Reason) == "" {
			t.Errorf("Inspect(%q) returned empty reason", in)
		}
	}
}

func TestSentinelCustomKeywords(t *testing.T) {
	s := NewSentinel("format disk")
	if got := s.Inspect("please FORMAT DISK now"); got.Decision != DecisionRequireConfirmation {
		t.Fatalf("custom keyword not flagged: %q", got.Decision)
	}
}
