package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/sdejongh/versync/pkg/fileversion"
	"github.com/sdejongh/versync/pkg/logging"
	"github.com/sdejongh/versync/pkg/models"
	"github.com/sdejongh/versync/pkg/output"
	"github.com/sdejongh/versync/pkg/ratelimit"
	"github.com/sdejongh/versync/pkg/reconcile"
	"github.com/sdejongh/versync/pkg/storage"
)

// ErrOutsideRoot is returned when a remote file is not below the directory
// it was listed from
var ErrOutsideRoot = errors.New("remote path outside its root")

// Engine keeps a local mirror at the latest version of every product
// published under a set of remote roots
type Engine struct {
	local     *storage.Local
	remotes   []RemoteSource
	filter    FolderFilter
	resolver  *reconcile.Resolver
	formatter output.Formatter
	logger    logging.Logger
	operation *models.SyncOperation
	confirm   ConfirmFunc
	limiter   *ratelimit.Limiter
	lockPath  string
	writer    io.Writer
}

// NewEngine creates a new sync engine. Remote roots are consulted in the
// given order; earlier roots win ties and ambiguous listings.
func NewEngine(
	local *storage.Local,
	remotes []RemoteSource,
	filter FolderFilter,
	formatter output.Formatter,
	logger logging.Logger,
	operation *models.SyncOperation,
) *Engine {
	if formatter == nil {
		formatter = output.NopFormatter{}
	}
	if logger == nil {
		logger = logging.NewNullLogger()
	}

	e := &Engine{
		local:     local,
		remotes:   remotes,
		filter:    filter,
		resolver:  reconcile.NewResolver(nil),
		formatter: formatter,
		logger:    logger,
		operation: operation,
		limiter:   ratelimit.NewLimiter(operation.BandwidthLimit),
		writer:    os.Stdout,
	}
	if operation.AssumeYes {
		e.confirm = AssumeYes
	}
	return e
}

// WithScheme sets the file naming scheme
func (e *Engine) WithScheme(scheme *fileversion.Scheme) *Engine {
	e.resolver = reconcile.NewResolver(scheme)
	return e
}

// WithConfirm sets the deletion policy. It is ignored when the operation
// already assumes yes.
func (e *Engine) WithConfirm(confirm ConfirmFunc) *Engine {
	if !e.operation.AssumeYes {
		e.confirm = confirm
	}
	return e
}

// WithLock makes the engine hold the lock file at path while it runs
func (e *Engine) WithLock(path string) *Engine {
	e.lockPath = path
	return e
}

// WithWriter sets where formatters write
func (e *Engine) WithWriter(w io.Writer) *Engine {
	e.writer = w
	return e
}

// Run enumerates, plans and, unless dry-running, executes one sync pass.
// Enumeration failures abort the run before anything is planned.
func (e *Engine) Run(ctx context.Context) (*models.SyncReport, error) {
	if err := e.operation.Validate(); err != nil {
		return nil, err
	}
	for _, r := range e.remotes {
		if !path.IsAbs(r.Root.BaseDir) {
			return nil, &models.ValidationError{
				Field:   "remote.roots",
				Message: fmt.Sprintf("base dir %q of root %q must be an absolute path", r.Root.BaseDir, r.Root.ID),
			}
		}
	}

	started := time.Now()
	e.operation.StartedAt = &started
	defer func() {
		done := time.Now()
		e.operation.CompletedAt = &done
	}()

	report := &models.SyncReport{
		OperationID: e.operation.ID,
		Kind:        models.KindL1B,
		LocalDir:    e.local.Root(),
		DryRun:      e.operation.DryRun,
		StartTime:   started,
	}

	if e.lockPath != "" {
		lock, err := AcquireLock(e.lockPath)
		if err != nil {
			return nil, err
		}
		defer lock.Unlock()
	}

	pattern := e.operation.Pattern

	e.logger.Info(ctx, "enumerating local mirror", logging.Fields{"dir": e.local.Root()})
	local, err := Enumerate(ctx, e.local, reconcile.LocalRoot, e.local.Root(), AllFolders, pattern)
	if err != nil {
		return nil, fmt.Errorf("enumerate local mirror: %w", err)
	}

	e.logger.Info(ctx, "enumerating remote roots", logging.Fields{"roots": len(e.remotes)})
	remotes, err := EnumerateRoots(ctx, e.remotes, e.filter, pattern)
	if err != nil {
		return nil, fmt.Errorf("enumerate remote roots: %w", err)
	}

	report.Stats.LocalFilesScanned = len(local)
	for _, r := range remotes {
		report.Stats.RemoteFilesScanned += len(r.Records)
		e.logger.Debug(ctx, "remote root listed", logging.Fields{"root": r.Root.ID, "files": len(r.Records)})
	}

	if report.Stats.RemoteFilesScanned == 0 {
		e.logger.Warn(ctx, "no matching files on remote roots", logging.Fields{"pattern": pattern})
		report.Finish()
		return report, nil
	}

	plan := e.resolver.Plan(local, reconcile.Inventories(remotes))
	attribution, err := reconcile.Attribute(plan.ToFetch.Paths(), remotes)
	if err != nil {
		e.logger.Error(ctx, "fetch set does not match remote listings", err, nil)
		return nil, err
	}
	fetches, err := e.fetchPlan(attribution)
	if err != nil {
		e.logger.Error(ctx, "fetch set does not fit the local mirror", err, nil)
		return nil, err
	}

	e.recordPlan(ctx, report, plan, attribution)
	e.formatter.Plan(report)

	if e.operation.DryRun {
		e.planOperations(report, plan, attribution, fetches)
		report.Finish()
		e.formatter.Complete(report)
		return report, nil
	}

	failed, err := e.transfer(ctx, report, attribution, fetches)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		report.Status = models.StatusCancelled
		report.Finish()
		e.formatter.Complete(report)
		return report, err
	}

	var toDelete []string
	for _, rec := range plan.ToDeleteLocal {
		if winner, ok := plan.SupersededBy(rec); ok && failed.Contains(winner.Path) {
			report.Stats.DeletionsSkipped++
			report.Operations = append(report.Operations, models.FileOperation{
				Path:   rec.Path,
				Action: models.ActionSkip,
				Reason: "replacement failed to transfer",
			})
			e.logger.Warn(ctx, "keeping superseded file, replacement failed", logging.Fields{
				"path": rec.Path, "replacement": winner.Path,
			})
			continue
		}
		toDelete = append(toDelete, rec.Path)
	}

	deleter := NewDeleter(e.local, e.confirm, false, e.logger)
	if err := deleter.Execute(ctx, toDelete, report, e.formatter); err != nil {
		if ctx.Err() != nil {
			report.Status = models.StatusCancelled
		}
		report.Finish()
		e.formatter.Complete(report)
		return report, err
	}

	if _, err := RebuildIndex(ctx, e.local, pattern); err != nil {
		e.logger.Error(ctx, "failed to rewrite index", err, nil)
		report.AddError(IndexFileName, models.ActionIndex, err)
	}

	report.Finish()
	e.formatter.Complete(report)

	e.logger.Info(ctx, "sync finished", logging.Fields{
		"status":  report.Status,
		"fetched": report.Stats.FilesFetched,
		"deleted": report.Stats.FilesDeleted,
		"errors":  report.Stats.FilesErrored,
	})
	return report, nil
}

// recordPlan copies the plan counts and warnings into the report
func (e *Engine) recordPlan(ctx context.Context, report *models.SyncReport, plan *reconcile.ReconciliationPlan, attribution *reconcile.Attribution) {
	summary := plan.Summary()
	report.Stats.FilesToFetch = summary.Fetch
	report.Stats.FilesToDelete = summary.Delete
	report.Stats.FilesUnchanged = summary.Unchanged
	report.Stats.Anomalies = summary.Anomalies
	report.Stats.Ambiguities = len(attribution.Ambiguities)

	for _, amb := range attribution.Ambiguities {
		msg := fmt.Sprintf("listed by %s, fetching from %s", strings.Join(amb.Roots, ", "), amb.Roots[0])
		report.Warnings = append(report.Warnings, models.Warning{Kind: models.WarnAmbiguousSource, Path: amb.Path, Message: msg})
		e.logger.Warn(ctx, "file listed by several roots", logging.Fields{"path": amb.Path, "roots": amb.Roots})
	}
	for _, rec := range plan.Anomalies {
		report.Warnings = append(report.Warnings, models.Warning{
			Kind:    models.WarnParseAnomaly,
			Path:    rec.Path,
			Message: "name does not match the version scheme",
		})
		e.logger.Warn(ctx, "unparseable file name", logging.Fields{"path": rec.Path, "root": rec.Root})
	}

	e.logger.Info(ctx, "plan computed", logging.Fields{
		"fetch":     summary.Fetch,
		"delete":    summary.Delete,
		"unchanged": summary.Unchanged,
		"anomalies": summary.Anomalies,
	})
}

// planOperations lists the planned operations for a dry run
func (e *Engine) planOperations(report *models.SyncReport, plan *reconcile.ReconciliationPlan, attribution *reconcile.Attribution, fetches map[string][]models.FileOperation) {
	for _, root := range attribution.Order {
		report.Operations = append(report.Operations, fetches[root]...)
	}
	for _, rec := range plan.ToDeleteLocal {
		report.Operations = append(report.Operations, models.FileOperation{
			Path:   rec.Path,
			Action: models.ActionDelete,
			Reason: "superseded",
		})
	}
}

// transfer fetches every attributed file root by root. It returns the
// remote paths that failed.
func (e *Engine) transfer(ctx context.Context, report *models.SyncReport, attribution *reconcile.Attribution, fetches map[string][]models.FileOperation) (mapset.Set[string], error) {
	failed := mapset.NewThreadUnsafeSet[string]()

	for _, root := range attribution.Order {
		ops := fetches[root]
		if len(ops) == 0 {
			continue
		}
		src := e.remoteSource(root)

		e.logger.Info(ctx, "fetching files", logging.Fields{"root": root, "files": len(ops)})
		e.formatter.Start(e.writer, len(ops), 0, e.operation.MaxWorkers)

		worker := NewWorker(src, e.local, e.operation.MaxWorkers, e.limiter)
		err := worker.Execute(ctx, ops, report, e.formatter)

		for _, op := range ops {
			if op.Failed() {
				failed.Add(op.Source)
			}
		}
		report.Operations = append(report.Operations, ops...)

		if ctx.Err() != nil {
			return failed, ctx.Err()
		}
		if err != nil {
			e.logger.Warn(ctx, "some files failed to transfer", logging.Fields{"root": root, "error": err.Error()})
		}
	}

	return failed, nil
}

// fetchPlan builds the fetch operations of every attributed root
func (e *Engine) fetchPlan(attribution *reconcile.Attribution) (map[string][]models.FileOperation, error) {
	plan := make(map[string][]models.FileOperation, len(attribution.Order))
	for _, root := range attribution.Order {
		ops, err := e.fetchOperations(root, attribution.Files[root])
		if err != nil {
			return nil, err
		}
		plan[root] = ops
	}
	return plan, nil
}

// fetchOperations maps root-relative paths to remote sources and local
// targets. Every path must stay below the root's base dir.
func (e *Engine) fetchOperations(root string, files []string) ([]models.FileOperation, error) {
	var baseDir string
	for _, r := range e.remotes {
		if r.Root.ID == root {
			baseDir = r.Root.BaseDir
			break
		}
	}

	ops := make([]models.FileOperation, 0, len(files))
	for _, rel := range files {
		if !isBelow(rel) {
			return nil, fmt.Errorf("%s is not below base dir %s of root %s: %w", rel, baseDir, root, ErrOutsideRoot)
		}
		ops = append(ops, models.FileOperation{
			Path:   rel,
			Source: path.Join(baseDir, rel),
			Root:   root,
			Action: models.ActionFetch,
			Reason: "newer version",
		})
	}
	return ops, nil
}

// isBelow reports whether rel is a relative POSIX path that stays inside
// its base directory
func isBelow(rel string) bool {
	if rel == "" || path.IsAbs(rel) {
		return false
	}
	clean := path.Clean(rel)
	return clean != "." && clean != ".." && !strings.HasPrefix(clean, "../")
}

func (e *Engine) remoteSource(root string) storage.Source {
	for _, r := range e.remotes {
		if r.Root.ID == root {
			return r.Source
		}
	}
	return nil
}
