package agent

import (
	"fmt"
	"regexp"
	"strings"
)

type Decision string

const (
	DecisionAllow               Decision = "allow"
	DecisionRequireConfirmation Decision = "require_confirmation"
)

type SafetyResult struct {
	Decision Decision
	Reason   string
}

// Sentinel inspects task instructions before execution and flags the ones
// that may trigger destructive or irreversible browser actions.
type Sentinel struct {
	keywords []string
	patterns []*regexp.Regexp
}

var destructiveKeywords = []string{
	"delete", "remove", "erase", "trash", "wipe",
	"checkout", "pay", "transfer", "purchase", "unsubscribe",
}

var destructivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(close|deactivate|terminate)\b.*\baccount\b`),
	regexp.MustCompile(`(?i)\b(submit|place|confirm)\b.*\border\b`),
	regexp.MustCompile(`(?i)\bsend\b.*\b(money|payment|funds)\b`),
}

func NewSentinel(extraKeywords ...string) *Sentinel {
	keywords := make([]string, 0, len(destructiveKeywords)+len(extraKeywords))
	for _, kw := range destructiveKeywords {
		keywords = append(keywords, strings.ToLower(kw))
	}
	for _, kw := range extraKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return &Sentinel{keywords: keywords, patterns: destructivePatterns}
}

func (s *Sentinel) Inspect(text string) SafetyResult {
	lower := strings.ToLower(text)
	for _, kw := range s.keywords {
		if strings.Contains(lower, kw) {
			return SafetyResult{
				Decision: DecisionRequireConfirmation,
				Reason:   fmt.Sprintf("potentially destructive action detected (%q)", kw),
			}
		}
	}
	for _, re := range s.patterns {
		if re.MatchString(text) {
			return SafetyResult{
				Decision: DecisionRequireConfirmation,
				Reason:   "instruction matches a destructive action pattern",
			}
		}
	}
	return SafetyResult{Decision: DecisionAllow}
}
