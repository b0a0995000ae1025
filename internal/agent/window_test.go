package agent

import (
	"strings"
	"testing"
)

func TestWindowEvictsOldest(t *testing.T) {
	w := NewWindow(3)
	for _, text := range []string{"one", "two", "three", "four"} {
		w.Add(text, nil)
	}
	if w.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", w.Len())
	}
	prompt := w.AsPrompt()
	if strings.Contains(prompt, "one") {
		t.Fatalf("oldest observation not evicted: %q", prompt)
	}
	if !strings.Contains(prompt, "four") {
		t.Fatalf("newest observation missing: %q", prompt)
	}
}

func TestWindowPromptIncludesMetadata(t *testing.T) {
	w := NewWindow(5)
	w.Add("plan ready", map[string]string{"stage": "planner", "empty": "  "})
	prompt := w.AsPrompt()
	if !strings.Contains(prompt, "stage=planner") {
		t.Fatalf("metadata missing from prompt: %q", prompt)
	}
	if strings.Contains(prompt, "empty=") {
		t.Fatalf("blank metadata should be dropped: %q", prompt)
	}
}
