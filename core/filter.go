package core

import (
	"path"
	"strings"

	"github.com/smarty/repofiles/contracts"
)

// Filter keeps the entries whose filename matches any of the patterns
// (path.Match syntax, case-insensitive). No patterns keeps everything.
func Filter(original []contracts.ManifestEntry, patterns []string) (filtered []contracts.ManifestEntry) {
	if len(patterns) == 0 {
		return original
	}
	for _, entry := range original {
		if matchesAny(patterns, entry.Filename) {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

func matchesAny(patterns []string, filename string) bool {
	name := strings.ToLower(filename)
	for _, pattern := range patterns {
		pattern = strings.ToLower(pattern)
		if pattern == name {
			return true
		}
		if matched, err := path.Match(pattern, name); err == nil && matched {
			return true
		}
	}
	return false
}
