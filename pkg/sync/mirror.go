package sync

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/sdejongh/versync/pkg/compare"
	"github.com/sdejongh/versync/pkg/logging"
	"github.com/sdejongh/versync/pkg/models"
	"github.com/sdejongh/versync/pkg/output"
	"github.com/sdejongh/versync/pkg/ratelimit"
	"github.com/sdejongh/versync/pkg/reconcile"
	"github.com/sdejongh/versync/pkg/storage"
)

// Mirror copies a remote directory tree one way into a local directory.
// Files missing locally or reported different by the comparator are
// fetched; local files absent remotely are deleted when DeleteOrphans is set.
type Mirror struct {
	source     storage.Source
	remoteDir  string
	local      *storage.Local
	comparator compare.Comparator
	formatter  output.Formatter
	logger     logging.Logger
	operation  *models.SyncOperation
	lockPath   string
	writer     io.Writer
}

// NewMirror creates a mirror of remoteDir on source into local
func NewMirror(
	source storage.Source,
	remoteDir string,
	local *storage.Local,
	comparator compare.Comparator,
	formatter output.Formatter,
	logger logging.Logger,
	operation *models.SyncOperation,
) *Mirror {
	if formatter == nil {
		formatter = output.NopFormatter{}
	}
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	if comparator == nil {
		comparator = compare.NewNameSizeComparator()
	}
	return &Mirror{
		source:     source,
		remoteDir:  remoteDir,
		local:      local,
		comparator: comparator,
		formatter:  formatter,
		logger:     logger,
		operation:  operation,
		writer:     os.Stdout,
	}
}

// WithLock makes the mirror hold the lock file at path while it runs
func (m *Mirror) WithLock(path string) *Mirror {
	m.lockPath = path
	return m
}

// WithWriter sets where formatters write
func (m *Mirror) WithWriter(w io.Writer) *Mirror {
	m.writer = w
	return m
}

// Run performs one mirror pass
func (m *Mirror) Run(ctx context.Context) (*models.SyncReport, error) {
	if err := m.operation.Validate(); err != nil {
		return nil, err
	}
	if err := validatePatterns(m.operation.ExcludePatterns...); err != nil {
		return nil, err
	}
	if !path.IsAbs(m.remoteDir) {
		return nil, &models.ValidationError{Field: "remote.spice_dir", Message: fmt.Sprintf("%q must be an absolute path", m.remoteDir)}
	}

	report := &models.SyncReport{
		OperationID: m.operation.ID,
		Kind:        models.KindSPICE,
		LocalDir:    m.local.Root(),
		DryRun:      m.operation.DryRun,
		StartTime:   time.Now(),
	}

	if m.lockPath != "" {
		lock, err := AcquireLock(m.lockPath)
		if err != nil {
			return nil, err
		}
		defer lock.Unlock()
	}

	remoteFiles, err := m.source.List(ctx, m.remoteDir)
	if err != nil {
		return nil, fmt.Errorf("list remote %s: %w", m.remoteDir, err)
	}
	localFiles, err := m.local.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list local mirror: %w", err)
	}

	remote := make(map[string]*storage.FileInfo, len(remoteFiles))
	for i := range remoteFiles {
		f := &remoteFiles[i]
		if f.IsDir {
			continue
		}
		rel := reconcile.RelativeTo(f.Path, m.remoteDir)
		if !isBelow(rel) {
			return nil, fmt.Errorf("%s is not below %s: %w", f.Path, m.remoteDir, ErrOutsideRoot)
		}
		if shouldExclude(rel, m.operation.ExcludePatterns) {
			continue
		}
		remote[rel] = f
	}

	local := make(map[string]*storage.FileInfo, len(localFiles))
	for i := range localFiles {
		f := &localFiles[i]
		rel := filepath.ToSlash(f.RelativePath)
		if f.IsDir || rel == IndexFileName || shouldExclude(rel, m.operation.ExcludePatterns) {
			continue
		}
		local[rel] = f
	}

	report.Stats.RemoteFilesScanned = len(remote)
	report.Stats.LocalFilesScanned = len(local)

	var fetches []models.FileOperation
	for _, rel := range sortedKeys(remote) {
		src := remote[rel]
		cmp := m.comparator.Compare(src, local[rel])
		if cmp.Result == compare.Same {
			report.Stats.FilesUnchanged++
			continue
		}
		fetches = append(fetches, models.FileOperation{
			Path:   filepath.FromSlash(rel),
			Source: src.Path,
			Action: models.ActionFetch,
			Reason: cmp.Reason,
		})
	}

	var orphans []string
	if m.operation.DeleteOrphans {
		for _, rel := range sortedKeys(local) {
			if _, ok := remote[rel]; !ok {
				orphans = append(orphans, local[rel].Path)
			}
		}
	}

	report.Stats.FilesToFetch = len(fetches)
	report.Stats.FilesToDelete = len(orphans)
	m.formatter.Plan(report)

	m.logger.Info(ctx, "mirror planned", logging.Fields{
		"remote_dir": m.remoteDir,
		"fetch":      len(fetches),
		"delete":     len(orphans),
		"comparator": m.comparator.Name(),
	})

	if m.operation.DryRun {
		report.Operations = append(report.Operations, fetches...)
		if err := NewDeleter(m.local, nil, true, m.logger).Execute(ctx, orphans, report, m.formatter); err != nil {
			return nil, err
		}
		report.Finish()
		m.formatter.Complete(report)
		return report, nil
	}

	if len(fetches) > 0 {
		m.formatter.Start(m.writer, len(fetches), 0, m.operation.MaxWorkers)
		worker := NewWorker(m.source, m.local, m.operation.MaxWorkers, ratelimit.NewLimiter(m.operation.BandwidthLimit))
		err := worker.Execute(ctx, fetches, report, m.formatter)
		report.Operations = append(report.Operations, fetches...)
		if ctx.Err() != nil {
			report.Status = models.StatusCancelled
			report.Finish()
			m.formatter.Complete(report)
			return report, ctx.Err()
		}
		if err != nil {
			m.logger.Warn(ctx, "some files failed to transfer", logging.Fields{"error": err.Error()})
		}
	}

	// Orphans are removed without asking, as with rsync --delete
	if err := NewDeleter(m.local, AssumeYes, false, m.logger).Execute(ctx, orphans, report, m.formatter); err != nil {
		report.Finish()
		return report, err
	}

	report.Finish()
	m.formatter.Complete(report)
	return report, nil
}

func sortedKeys(m map[string]*storage.FileInfo) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
