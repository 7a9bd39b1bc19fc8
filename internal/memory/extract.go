package memory

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	filePathPattern = regexp.MustCompile(`[./\\]?[\w./\\-]+\.\w+`)
	funcDefPattern  = regexp.MustCompile(`func\s+(\w+)`)
	typeDefPattern  = regexp.MustCompile(`type\s+(\w+)\s+struct`)
)

// extractFacts upserts long-term facts derived from one interaction:
// file mentions, function/type definitions, and error sightings.
func (s *Store) extractFacts(in Interaction) {
	content := in.Content

	if strings.ContainsAny(content, `/\`) {
		for _, path := range filePathPattern.FindAllString(content, -1) {
			s.facts["file_"+path] = Fact{
				"last_mentioned": in.Timestamp,
				"context":        snippet(content, 100),
			}
		}
	}

	if strings.Contains(content, "func ") || strings.Contains(content, "type ") {
		for _, m := range funcDefPattern.FindAllStringSubmatch(content, -1) {
			s.facts["function_"+m[1]] = Fact{
				"defined_at": in.Timestamp,
				"type":       "function",
			}
		}
		for _, m := range typeDefPattern.FindAllStringSubmatch(content, -1) {
			s.facts["class_"+m[1]] = Fact{
				"defined_at": in.Timestamp,
				"type":       "class",
			}
		}
	}

	lower := strings.ToLower(content)
	if strings.Contains(lower, "error") || strings.Contains(lower, "exception") {
		// The key index is the count of existing error_* keys at insertion
		// time, not a monotonic counter. A collision after external fact
		// deletion would silently overwrite; kept as specified.
		count := 0
		for key := range s.facts {
			if strings.HasPrefix(key, "error_") {
				count++
			}
		}
		s.facts[fmt.Sprintf("error_%d", count)] = Fact{
			"timestamp": in.Timestamp,
			"content":   snippet(content, 200),
		}
	}
}

func snippet(content string, max int) string {
	if len(content) <= max {
		return content
	}
	return content[:max]
}
