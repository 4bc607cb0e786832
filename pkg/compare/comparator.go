package compare

import (
	"fmt"
	"path"
	"strings"

	"github.com/sdejongh/versync/pkg/models"
	"github.com/sdejongh/versync/pkg/storage"
)

// Result represents the outcome of comparing two files
type Result string

const (
	// Same indicates files are identical
	Same Result = "same"
	// Different indicates files differ
	Different Result = "different"
	// SourceOnly indicates file exists only in source
	SourceOnly Result = "source_only"
	// DestOnly indicates file exists only in destination
	DestOnly Result = "dest_only"
)

// Comparison holds the result of comparing two files
type Comparison struct {
	SourcePath string
	DestPath   string
	Result     Result
	Reason     string
}

// Comparator decides whether a listed source file must be copied over the
// listed destination file. Either side may be nil when the file is absent.
// Both listings are already known, so comparators never touch a backend.
type Comparator interface {
	Compare(source, dest *storage.FileInfo) *Comparison

	// Name returns the name of the comparison method
	Name() string
}

// New returns the comparator for a method
func New(method models.ComparisonMethod) (Comparator, error) {
	switch method {
	case models.CompareNameSize, "":
		return NewNameSizeComparator(), nil
	case models.CompareTimestamp:
		return NewTimestampComparator(), nil
	default:
		return nil, fmt.Errorf("unknown comparison method: %s", method)
	}
}

// presence handles missing sides and differing names shared by all comparators
func presence(source, dest *storage.FileInfo) *Comparison {
	c := &Comparison{}
	if source != nil {
		c.SourcePath = source.Path
	}
	if dest != nil {
		c.DestPath = dest.Path
	}

	switch {
	case source == nil && dest == nil:
		c.Result = Same
		c.Reason = "file exists on neither side"
	case dest == nil:
		c.Result = SourceOnly
		c.Reason = "file exists only in source"
	case source == nil:
		c.Result = DestOnly
		c.Reason = "file exists only in destination"
	case baseName(source.Path) != baseName(dest.Path):
		c.Result = Different
		c.Reason = "file names differ"
	default:
		return c
	}
	return c
}

// baseName handles both POSIX remote paths and local OS paths
func baseName(p string) string {
	return path.Base(strings.ReplaceAll(p, "\\", "/"))
}
