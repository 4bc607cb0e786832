package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/sdejongh/versync/pkg/fileversion"
	"github.com/sdejongh/versync/pkg/reconcile"
	"github.com/sdejongh/versync/pkg/storage"
)

// DefaultPattern matches every FITS product, compressed or not
const DefaultPattern = "*.fits*"

// Orbit folder layout
const (
	OrbitStep    = 100
	CruiseFolder = "cruise"
	orbitPrefix  = "orbit"
)

// FolderFilter selects the product folders directly below a root
type FolderFilter interface {
	Match(name string) bool
}

// OrbitFilter selects orbitNNNNN folders for orbit blocks in
// [MinOrbit, MaxOrbit) stepping by OrbitStep, plus the cruise folder
type OrbitFilter struct {
	MinOrbit      int
	MaxOrbit      int
	IncludeCruise bool
}

// Folders lists the folder names the filter selects, cruise first
func (f OrbitFilter) Folders() []string {
	var names []string
	if f.IncludeCruise {
		names = append(names, CruiseFolder)
	}
	for n := f.MinOrbit; n < f.MaxOrbit; n += OrbitStep {
		names = append(names, OrbitFolder(n))
	}
	return names
}

// Match reports whether name is one of the selected folders
func (f OrbitFilter) Match(name string) bool {
	if name == CruiseFolder {
		return f.IncludeCruise
	}

	digits, ok := strings.CutPrefix(name, orbitPrefix)
	if !ok {
		return false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || OrbitFolder(n) != name {
		return false
	}
	return n >= f.MinOrbit && n < f.MaxOrbit && (n-f.MinOrbit)%OrbitStep == 0
}

// OrbitFolder returns the folder name of an orbit block
func OrbitFolder(orbit int) string {
	return fmt.Sprintf("%s%05d", orbitPrefix, orbit)
}

type allFolders struct{}

func (allFolders) Match(name string) bool {
	return !strings.HasPrefix(name, ".")
}

// AllFolders selects every visible folder
var AllFolders FolderFilter = allFolders{}

// Enumerate lists the files matching pattern in the selected folders of
// baseDir on src. Folders that disappear while listing are skipped; any
// other listing error aborts the enumeration.
func Enumerate(ctx context.Context, src storage.Source, root, baseDir string, filter FolderFilter, pattern string) (reconcile.Inventory, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if err := validatePatterns(pattern); err != nil {
		return nil, err
	}

	folders, err := src.ReadDir(ctx, baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s root %s: %w", root, baseDir, err)
	}

	inv := reconcile.Inventory{}
	for _, folder := range folders {
		if !folder.IsDir || !filter.Match(fileversion.BaseName(folder.Path)) {
			continue
		}

		files, err := src.ReadDir(ctx, folder.Path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list %s folder %s: %w", root, folder.Path, err)
		}

		for _, f := range files {
			if f.IsDir {
				continue
			}
			if ok, _ := doublestar.Match(pattern, fileversion.BaseName(f.Path)); ok {
				inv = append(inv, reconcile.FileRecord{Path: f.Path, Root: root})
			}
		}
	}

	return inv, nil
}

// RemoteSource pairs a remote root with the source it is listed from
type RemoteSource struct {
	Root   reconcile.RemoteRoot
	Source storage.Source
}

// EnumerateRoots enumerates every remote root concurrently. The first
// failure cancels the others and is returned.
func EnumerateRoots(ctx context.Context, remotes []RemoteSource, filter FolderFilter, pattern string) ([]reconcile.RemoteInventory, error) {
	results := make([]reconcile.RemoteInventory, len(remotes))

	g, gctx := errgroup.WithContext(ctx)
	for i, remote := range remotes {
		i, remote := i, remote
		g.Go(func() error {
			inv, err := Enumerate(gctx, remote.Source, remote.Root.ID, remote.Root.BaseDir, filter, pattern)
			if err != nil {
				return err
			}
			results[i] = reconcile.RemoteInventory{Root: remote.Root, Records: inv}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
