package sync

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// shouldExclude checks if a path should be excluded based on the given patterns.
// Patterns support:
//   - Simple glob patterns: *.tmp, *.lbl
//   - Directory patterns: .git/, old/
//   - Path patterns: ck/*.bc, **/former_versions/**
func shouldExclude(relativePath string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}

	normalizedPath := strings.TrimPrefix(filepath.ToSlash(relativePath), "/")
	baseName := path.Base(normalizedPath)

	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		normalizedPattern := filepath.ToSlash(pattern)

		if dir, ok := strings.CutSuffix(normalizedPattern, "/"); ok {
			if normalizedPath == dir ||
				strings.HasPrefix(normalizedPath, dir+"/") ||
				strings.Contains(normalizedPath, "/"+dir+"/") {
				return true
			}
			continue
		}

		if !strings.Contains(normalizedPattern, "/") {
			if matched, _ := doublestar.Match(normalizedPattern, baseName); matched {
				return true
			}
			continue
		}

		if matched, _ := doublestar.Match(normalizedPattern, normalizedPath); matched {
			return true
		}
		// Unanchored path patterns also match below any directory
		if !strings.HasPrefix(normalizedPattern, "**/") {
			if matched, _ := doublestar.Match("**/"+normalizedPattern, normalizedPath); matched {
				return true
			}
		}
	}

	return false
}

// validatePatterns rejects malformed glob patterns up front
func validatePatterns(patterns ...string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(filepath.ToSlash(p)) {
			return &PatternError{Pattern: p}
		}
	}
	return nil
}

// PatternError reports an invalid glob pattern
type PatternError struct {
	Pattern string
}

func (e *PatternError) Error() string {
	return "invalid glob pattern: " + e.Pattern
}
