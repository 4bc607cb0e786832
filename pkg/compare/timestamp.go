package compare

import (
	"fmt"
	"time"

	"github.com/sdejongh/versync/pkg/storage"
)

// mtimeTolerance absorbs timestamp precision differences between filesystems
const mtimeTolerance = time.Second

// TimestampComparator compares files by name, size, and modification time
type TimestampComparator struct{}

// NewTimestampComparator creates a new timestamp comparator
func NewTimestampComparator() *TimestampComparator {
	return &TimestampComparator{}
}

// Compare compares two files by name, size, and modification time.
// Files are the same if name and size match and the source is not newer
// than the destination.
func (c *TimestampComparator) Compare(source, dest *storage.FileInfo) *Comparison {
	result := NewNameSizeComparator().Compare(source, dest)
	if result.Result != Same {
		return result
	}

	if source.ModTime.Sub(dest.ModTime) > mtimeTolerance {
		result.Result = Different
		result.Reason = fmt.Sprintf("source is newer (source: %s, dest: %s)",
			source.ModTime.Format("2006-01-02 15:04:05"), dest.ModTime.Format("2006-01-02 15:04:05"))
		return result
	}

	result.Reason = "name, size, and timestamp match"
	return result
}

// Name returns the comparator name
func (c *TimestampComparator) Name() string {
	return "timestamp"
}
