package reconcile

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

var (
	// ErrUnknownSource is returned when a path to fetch is absent from
	// every remote listing. It indicates a programming error.
	ErrUnknownSource = errors.New("path not found in any remote root")

	// ErrDuplicateRoot is returned when two remotes share a root id
	ErrDuplicateRoot = errors.New("duplicate remote root")
)

// Ambiguity records a path listed by more than one remote root
type Ambiguity struct {
	Path string

	// Roots lists every root that reported the path, in caller order. The
	// first one is the root the path was attributed to.
	Roots []string
}

// Attribution is the per-root split of a fetch set
type Attribution struct {
	// Order lists root ids in caller order
	Order []string

	// Files maps a root id to root-relative paths, in fetch order
	Files map[string][]string

	// Ambiguities lists paths found under more than one root
	Ambiguities []Ambiguity
}

// Count returns the total number of attributed paths
func (a *Attribution) Count() int {
	n := 0
	for _, files := range a.Files {
		n += len(files)
	}
	return n
}

// Attribute assigns each path of toFetch to the remote root whose listing
// contains it and strips that root's base directory. A path listed by several
// roots goes to the first one and is reported as an ambiguity.
func Attribute(toFetch []string, remotes []RemoteInventory) (*Attribution, error) {
	a := &Attribution{
		Order: make([]string, 0, len(remotes)),
		Files: make(map[string][]string, len(remotes)),
	}

	owners := make(map[string][]int)
	for i, remote := range remotes {
		if _, dup := a.Files[remote.Root.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRoot, remote.Root.ID)
		}
		a.Order = append(a.Order, remote.Root.ID)
		a.Files[remote.Root.ID] = []string{}

		for _, rec := range remote.Records {
			roots := owners[rec.Path]
			if len(roots) > 0 && roots[len(roots)-1] == i {
				continue
			}
			owners[rec.Path] = append(roots, i)
		}
	}

	for _, p := range toFetch {
		roots, ok := owners[p]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSource, p)
		}

		if len(roots) > 1 {
			amb := Ambiguity{Path: p, Roots: make([]string, 0, len(roots))}
			for _, i := range roots {
				amb.Roots = append(amb.Roots, remotes[i].Root.ID)
			}
			a.Ambiguities = append(a.Ambiguities, amb)
		}

		root := remotes[roots[0]].Root
		a.Files[root.ID] = append(a.Files[root.ID], RelativeTo(p, root.BaseDir))
	}

	return a, nil
}

// RelativeTo strips baseDir from a remote path. baseDir is cleaned first so
// "/a/./b/" and "/a/b" strip the same prefix. Paths outside baseDir are
// returned unchanged.
func RelativeTo(p, baseDir string) string {
	if baseDir == "" {
		return p
	}
	prefix := strings.TrimSuffix(path.Clean(baseDir), "/") + "/"
	if strings.HasPrefix(p, prefix) {
		return p[len(prefix):]
	}
	return p
}
