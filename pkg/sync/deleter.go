package sync

import (
	"context"
	"fmt"

	"github.com/sdejongh/versync/pkg/logging"
	"github.com/sdejongh/versync/pkg/models"
	"github.com/sdejongh/versync/pkg/output"
	"github.com/sdejongh/versync/pkg/storage"
)

// ConfirmFunc decides whether the listed local files may be deleted
type ConfirmFunc func(ctx context.Context, paths []string) (bool, error)

// AssumeYes approves every deletion
func AssumeYes(ctx context.Context, paths []string) (bool, error) {
	return true, nil
}

// Deleter removes superseded files from the local mirror
type Deleter struct {
	backend storage.Backend
	confirm ConfirmFunc
	dryRun  bool
	logger  logging.Logger
}

// NewDeleter creates a deleter. A nil confirm policy declines every deletion.
func NewDeleter(backend storage.Backend, confirm ConfirmFunc, dryRun bool, logger logging.Logger) *Deleter {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Deleter{backend: backend, confirm: confirm, dryRun: dryRun, logger: logger}
}

// Execute asks the confirmation policy once for the whole batch and then
// deletes each path. Per-file failures are recorded in the report.
func (d *Deleter) Execute(ctx context.Context, paths []string, report *models.SyncReport, formatter output.Formatter) error {
	if len(paths) == 0 {
		return nil
	}
	if formatter == nil {
		formatter = output.NopFormatter{}
	}

	if d.dryRun {
		for _, p := range paths {
			report.Operations = append(report.Operations, models.FileOperation{
				Path:   p,
				Action: models.ActionDelete,
				Reason: "dry run",
			})
		}
		return nil
	}

	approved := false
	if d.confirm != nil {
		ok, err := d.confirm(ctx, paths)
		if err != nil {
			return fmt.Errorf("deletion confirmation failed: %w", err)
		}
		approved = ok
	}

	if !approved {
		d.logger.Info(ctx, "deletion declined", logging.Fields{"files": len(paths)})
		report.Stats.DeletionsSkipped += len(paths)
		for _, p := range paths {
			report.Operations = append(report.Operations, models.FileOperation{
				Path:   p,
				Action: models.ActionSkip,
				Reason: "deletion declined",
			})
		}
		return nil
	}

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}

		op := models.FileOperation{Path: p, Action: models.ActionDelete, Reason: "superseded"}
		if err := d.backend.Delete(ctx, p); err != nil {
			op.Error = err
			report.AddError(p, models.ActionDelete, err)
			d.logger.Error(ctx, "failed to delete file", err, logging.Fields{"path": p})
		} else {
			report.Stats.FilesDeleted++
			d.logger.Debug(ctx, "deleted file", logging.Fields{"path": p})
			formatter.Progress(output.ProgressUpdate{Type: output.UpdateFileDeleted, FilePath: p})
		}
		report.Operations = append(report.Operations, op)
	}

	return nil
}
