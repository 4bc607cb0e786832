package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldExclude(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		patterns []string
		expected bool
	}{
		{"NoPatterns", "ck/a.bc", nil, false},
		{"EmptyPattern", "ck/a.bc", []string{""}, false},
		{"BaseNameGlob", "ck/a.lbl", []string{"*.lbl"}, true},
		{"BaseNameNoMatch", "ck/a.bc", []string{"*.lbl"}, false},
		{"DirPattern", "old/ck/a.bc", []string{"old/"}, true},
		{"NestedDirPattern", "ck/old/a.bc", []string{"old/"}, true},
		{"DirPatternExact", "old", []string{"old/"}, true},
		{"DirPatternPrefixOnly", "older/a.bc", []string{"old/"}, false},
		{"PathPattern", "ck/a.bc", []string{"ck/*.bc"}, true},
		{"PathPatternBelowDir", "mvn/ck/a.bc", []string{"ck/*.bc"}, true},
		{"DoubleStar", "a/b/former_versions/c.bc", []string{"**/former_versions/**"}, true},
		{"LeadingSlash", "/ck/a.lbl", []string{"*.lbl"}, true},
		{"SecondPatternMatches", "ck/a.tmp", []string{"*.lbl", "*.tmp"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, shouldExclude(tt.path, tt.patterns))
		})
	}
}

func TestValidatePatterns(t *testing.T) {
	assert.NoError(t, validatePatterns("*.fits*", "**/old/**"))

	err := validatePatterns("*.fits", "[")
	assert.EqualError(t, err, "invalid glob pattern: [")
}
