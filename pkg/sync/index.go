package sync

import (
	"bufio"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sdejongh/versync/pkg/reconcile"
	"github.com/sdejongh/versync/pkg/storage"
)

// IndexFileName is the index file kept at the mirror root
const IndexFileName = "filenames.txt"

// WriteIndex replaces the mirror index with the sorted paths, one per line
func WriteIndex(ctx context.Context, backend storage.Backend, paths []string) error {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	var b strings.Builder
	for _, p := range sorted {
		b.WriteString(p)
		b.WriteByte('\n')
	}

	content := b.String()
	if err := backend.Write(ctx, IndexFileName, strings.NewReader(content), int64(len(content)), nil); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	return nil
}

// LoadIndex reads the mirror index
func LoadIndex(ctx context.Context, backend storage.Source) ([]string, error) {
	rc, err := backend.Read(ctx, IndexFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	defer rc.Close()

	var paths []string
	scanner := bufio.NewScanner(rc)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			paths = append(paths, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse index: %w", err)
	}
	return paths, nil
}

// RebuildIndex enumerates the mirror and rewrites its index
func RebuildIndex(ctx context.Context, local *storage.Local, pattern string) ([]string, error) {
	inv, err := Enumerate(ctx, local, reconcile.LocalRoot, local.Root(), AllFolders, pattern)
	if err != nil {
		return nil, err
	}
	paths := inv.Paths()
	if err := WriteIndex(ctx, local, paths); err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}
