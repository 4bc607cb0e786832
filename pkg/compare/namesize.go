package compare

import (
	"fmt"

	"github.com/sdejongh/versync/pkg/storage"
)

// NameSizeComparator compares files by name and size only
type NameSizeComparator struct{}

// NewNameSizeComparator creates a new name/size comparator
func NewNameSizeComparator() *NameSizeComparator {
	return &NameSizeComparator{}
}

// Compare compares two files by name and size
func (c *NameSizeComparator) Compare(source, dest *storage.FileInfo) *Comparison {
	result := presence(source, dest)
	if result.Result != "" {
		return result
	}

	if source.Size != dest.Size {
		result.Result = Different
		result.Reason = fmt.Sprintf("file sizes differ (source: %d, dest: %d)", source.Size, dest.Size)
		return result
	}

	result.Result = Same
	result.Reason = "name and size match"
	return result
}

// Name returns the comparator name
func (c *NameSizeComparator) Name() string {
	return "namesize"
}
