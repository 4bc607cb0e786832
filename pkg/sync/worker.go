package sync

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sdejongh/versync/pkg/models"
	"github.com/sdejongh/versync/pkg/output"
	"github.com/sdejongh/versync/pkg/ratelimit"
	"github.com/sdejongh/versync/pkg/storage"
)

// Progress reporting thresholds
const (
	progressReportInterval = 50 * time.Millisecond
	progressReportBytes    = 64 * 1024
)

// progressReader wraps an io.Reader to report progress
type progressReader struct {
	reader         io.Reader
	read           int64
	lastReported   int64
	lastReportTime time.Time
	onProgress     func(bytesRead int64)
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.read += int64(n)

		// Report after enough bytes, enough time, or on the final read
		if pr.onProgress != nil {
			if pr.read-pr.lastReported >= progressReportBytes ||
				time.Since(pr.lastReportTime) >= progressReportInterval ||
				err != nil {
				pr.onProgress(pr.read)
				pr.lastReported = pr.read
				pr.lastReportTime = time.Now()
			}
		}
	}
	return n, err
}

// Worker copies remote files into the local mirror in parallel
type Worker struct {
	source     storage.Source
	dest       storage.Backend
	limiter    *ratelimit.Limiter
	maxWorkers int
	semaphore  chan struct{}
}

// NewWorker creates a new worker pool. A nil limiter disables bandwidth limiting.
func NewWorker(source storage.Source, dest storage.Backend, maxWorkers int, limiter *ratelimit.Limiter) *Worker {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Worker{
		source:     source,
		dest:       dest,
		limiter:    limiter,
		maxWorkers: maxWorkers,
		semaphore:  make(chan struct{}, maxWorkers),
	}
}

// Execute fetches every ActionFetch operation. Each operation reads
// op.Source and writes op.Path. Failures are recorded on the operation and
// the report; they do not stop the other transfers. The returned error is
// the first failure, or the context error if the run was cancelled.
func (w *Worker) Execute(ctx context.Context, operations []models.FileOperation, report *models.SyncReport, formatter output.Formatter) error {
	if formatter == nil {
		formatter = output.NopFormatter{}
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	total := 0
	for i := range operations {
		if operations[i].Action == models.ActionFetch {
			total++
		}
	}

	currentFile := 0

schedule:
	for i := range operations {
		op := &operations[i]
		if op.Action != models.ActionFetch {
			continue
		}

		if ctx.Err() != nil {
			break schedule
		}

		// Acquire semaphore slot
		select {
		case w.semaphore <- struct{}{}:
		case <-ctx.Done():
			break schedule
		}
		wg.Add(1)

		currentFile++
		fileIndex := currentFile

		go func() {
			defer wg.Done()
			defer func() { <-w.semaphore }()

			formatter.Progress(output.ProgressUpdate{
				Type:        output.UpdateFileStart,
				FilePath:    op.Path,
				Root:        op.Root,
				CurrentFile: fileIndex,
				TotalFiles:  total,
			})

			start := time.Now()
			written, err := w.fetch(ctx, op, formatter, fileIndex, total)
			op.Duration = time.Since(start)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				op.Error = err
				report.AddError(op.Path, op.Action, err)
				if firstErr == nil {
					firstErr = err
				}
				formatter.Progress(output.ProgressUpdate{
					Type:        output.UpdateFileError,
					FilePath:    op.Path,
					Root:        op.Root,
					CurrentFile: fileIndex,
					TotalFiles:  total,
					Error:       err,
				})
				return
			}

			op.BytesCopied = written
			report.Stats.FilesFetched++
			report.Stats.BytesTransferred += written
			formatter.Progress(output.ProgressUpdate{
				Type:         output.UpdateFileComplete,
				FilePath:     op.Path,
				Root:         op.Root,
				BytesWritten: written,
				TotalBytes:   written,
				CurrentFile:  fileIndex,
				TotalFiles:   total,
			})
		}()
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	return firstErr
}

// fetch copies a single file, preserving its modification time
func (w *Worker) fetch(ctx context.Context, op *models.FileOperation, formatter output.Formatter, fileIndex, total int) (int64, error) {
	info, err := w.source.Stat(ctx, op.Source)
	if err != nil {
		return 0, fmt.Errorf("failed to get source metadata: %w", err)
	}

	rc, err := w.source.Read(ctx, op.Source)
	if err != nil {
		return 0, fmt.Errorf("failed to read source: %w", err)
	}
	reader := ratelimit.NewReadCloser(ctx, rc, w.limiter)
	defer reader.Close()

	pr := &progressReader{
		reader:         reader,
		lastReportTime: time.Now(),
		onProgress: func(bytesRead int64) {
			formatter.Progress(output.ProgressUpdate{
				Type:         output.UpdateFileProgress,
				FilePath:     op.Path,
				Root:         op.Root,
				BytesWritten: bytesRead,
				TotalBytes:   info.Size,
				CurrentFile:  fileIndex,
				TotalFiles:   total,
			})
		},
	}

	meta := &storage.FileInfo{ModTime: info.ModTime}
	if err := w.dest.Write(ctx, op.Path, pr, info.Size, meta); err != nil {
		return 0, fmt.Errorf("failed to write destination: %w", err)
	}

	return pr.read, nil
}
