package agent

import (
	"sort"
	"strings"
	"time"
)

type observation struct {
	at       time.Time
	text     string
	metadata map[string]string
}

// Window is a bounded rolling buffer of observations rendered into prompts.
// Once full, the oldest observation is evicted.
type Window struct {
	maxItems int
	buf      []observation
}

func NewWindow(maxItems int) *Window {
	if maxItems <= 0 {
		maxItems = 10
	}
	return &Window{maxItems: maxItems}
}

func (w *Window) Add(text string, metadata map[string]string) {
	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		if strings.TrimSpace(v) != "" {
			meta[k] = v
		}
	}
	w.buf = append(w.buf, observation{
		at:       time.Now().UTC(),
		text:     strings.TrimSpace(text),
		metadata: meta,
	})
	if len(w.buf) > w.maxItems {
		w.buf = append([]observation(nil), w.buf[len(w.buf)-w.maxItems:]...)
	}
}

func (w *Window) Len() int { return len(w.buf) }

// AsPrompt serializes the window oldest-first for inclusion in LLM prompts.
func (w *Window) AsPrompt() string {
	if len(w.buf) == 0 {
		return ""
	}
	lines := make([]string, 0, len(w.buf))
	for _, obs := range w.buf {
		keys := make([]string, 0, len(obs.metadata))
		for k := range obs.metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+"="+obs.metadata[k])
		}
		line := "[" + obs.at.Format("15:04:05") + "]"
		if len(parts) > 0 {
			line += " " + strings.Join(parts, ", ")
		}
		lines = append(lines, strings.TrimSpace(line+" | "+obs.text))
	}
	return strings.Join(lines, "\n")
}
