// Package reconcile decides which version of each data product is the
// latest across a local mirror and any number of remote roots, and computes
// the transfers and deletions that converge the mirror onto that set.
//
// Everything in this package is pure: no I/O, no shared state.
package reconcile

import (
	"github.com/sdejongh/versync/pkg/fileversion"
)

// LocalRoot is the root id of records enumerated from the local mirror
const LocalRoot = "local"

// FileRecord is one file path known to the system
type FileRecord struct {
	// Path is the full local path or remote path, opaque beyond parsing
	Path string

	// Root is the source root the record was enumerated from
	Root string
}

// IsLocal reports whether the record belongs to the local mirror
func (r FileRecord) IsLocal() bool {
	return r.Root == LocalRoot
}

// Name returns the base name of the record's path
func (r FileRecord) Name() string {
	return fileversion.BaseName(r.Path)
}

// Inventory is an ordered sequence of records. Duplicates across roots are
// expected.
type Inventory []FileRecord

// NewInventory builds an inventory of paths enumerated from root
func NewInventory(root string, paths ...string) Inventory {
	inv := make(Inventory, 0, len(paths))
	for _, p := range paths {
		inv = append(inv, FileRecord{Path: p, Root: root})
	}
	return inv
}

// Paths returns the record paths in order
func (inv Inventory) Paths() []string {
	paths := make([]string, 0, len(inv))
	for _, r := range inv {
		paths = append(paths, r.Path)
	}
	return paths
}

// RemoteRoot identifies a remote source directory
type RemoteRoot struct {
	// ID is the root name used for attribution and reporting
	ID string `yaml:"id"`

	// BaseDir is stripped from paths before they are handed to a transfer
	BaseDir string `yaml:"base_dir"`
}

// RemoteInventory is the raw listing of one remote root
type RemoteInventory struct {
	Root    RemoteRoot
	Records Inventory
}

// Inventories returns the record lists of remotes in order
func Inventories(remotes []RemoteInventory) []Inventory {
	out := make([]Inventory, 0, len(remotes))
	for _, r := range remotes {
		out = append(out, r.Records)
	}
	return out
}
