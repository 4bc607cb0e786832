package platform

import (
	"path/filepath"
	"runtime"
	"strings"
)

// NormalizePath cleans path and makes it absolute
func NormalizePath(path string) (string, error) {
	if err := ValidatePath(path); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &PathError{Path: path, Message: err.Error()}
	}
	return filepath.Clean(abs), nil
}

// IsWithin reports whether target is base or lies below it
func IsWithin(base, target string) bool {
	if pathsEqual(base, target) {
		return true
	}
	prefix := base
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	if runtime.GOOS == "windows" {
		return strings.HasPrefix(strings.ToLower(target), strings.ToLower(prefix))
	}
	return strings.HasPrefix(target, prefix)
}

// CheckDistinct verifies that no two named directories are the same or
// nested. Empty entries are ignored.
func CheckDistinct(dirs map[string]string) error {
	type entry struct{ name, path string }
	var entries []entry
	for name, dir := range dirs {
		if dir == "" {
			continue
		}
		abs, err := NormalizePath(dir)
		if err != nil {
			return err
		}
		entries = append(entries, entry{name, abs})
	}

	for i := range entries {
		for j := range entries {
			if i == j {
				continue
			}
			a, b := entries[i], entries[j]
			if IsWithin(a.path, b.path) {
				msg := b.name + " is inside " + a.name
				if pathsEqual(a.path, b.path) {
					msg = b.name + " and " + a.name + " are the same directory"
				}
				return &PathError{Path: b.path, Message: msg}
			}
		}
	}
	return nil
}

// ValidatePath checks if a path is valid for the current platform
func ValidatePath(path string) error {
	if path == "" {
		return &PathError{Path: path, Message: "path is empty"}
	}

	if runtime.GOOS == "windows" {
		invalidChars := []string{"<", ">", "\"", "|", "?", "*"}
		for _, char := range invalidChars {
			if strings.Contains(path, char) {
				return &PathError{Path: path, Message: "path contains invalid character: " + char}
			}
		}
	}

	return nil
}

func pathsEqual(a, b string) bool {
	if runtime.GOOS == "windows" {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// PathError represents a path validation error
type PathError struct {
	Path    string
	Message string
}

func (e *PathError) Error() string {
	return "invalid path '" + e.Path + "': " + e.Message
}
