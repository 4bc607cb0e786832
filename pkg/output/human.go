package output

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sdejongh/versync/pkg/models"
)

// HumanFormatter formats output in human-readable format
type HumanFormatter struct {
	mu         sync.Mutex
	writer     io.Writer
	totalFiles int
	totalBytes int64
}

// NewHumanFormatter creates a new human-readable formatter
func NewHumanFormatter() *HumanFormatter {
	return &HumanFormatter{writer: os.Stdout}
}

// Start initializes the formatter
func (f *HumanFormatter) Start(writer io.Writer, totalFiles int, totalBytes int64, maxWorkers int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if writer != nil {
		f.writer = writer
	}
	f.totalFiles = totalFiles
	f.totalBytes = totalBytes

	if totalBytes > 0 {
		fmt.Fprintf(f.writer, "Transferring %d files, %s total (%d workers)\n",
			totalFiles, humanize.IBytes(uint64(totalBytes)), maxWorkers)
	} else {
		fmt.Fprintf(f.writer, "Transferring %d files (%d workers)\n", totalFiles, maxWorkers)
	}

	return nil
}

// Plan prints what the run is about to do
func (f *HumanFormatter) Plan(report *models.SyncReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := report.Stats
	fmt.Fprintf(f.writer, "Scanned %d local and %d remote files\n", s.LocalFilesScanned, s.RemoteFilesScanned)
	fmt.Fprintf(f.writer, "Plan:\n")
	fmt.Fprintf(f.writer, "  To fetch:   %d\n", s.FilesToFetch)
	fmt.Fprintf(f.writer, "  To delete:  %d\n", s.FilesToDelete)
	fmt.Fprintf(f.writer, "  Unchanged:  %d\n", s.FilesUnchanged)
	if s.Anomalies > 0 {
		fmt.Fprintf(f.writer, "  Anomalies:  %d\n", s.Anomalies)
	}
	if s.Ambiguities > 0 {
		fmt.Fprintf(f.writer, "  Ambiguous:  %d\n", s.Ambiguities)
	}

	for _, w := range report.Warnings {
		fmt.Fprintf(f.writer, "  warning: %s: %s\n", w.Path, w.Message)
	}

	if report.DryRun {
		fmt.Fprintf(f.writer, "Dry run: nothing was changed\n")
	}
	return nil
}

// Progress reports progress during sync
func (f *HumanFormatter) Progress(update ProgressUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch update.Type {
	case UpdateFileStart:
		fmt.Fprintf(f.writer, "[%d/%d] Fetching %s from %s\n",
			update.CurrentFile, f.totalFiles, update.FilePath, update.Root)

	case UpdateFileComplete:
		fmt.Fprintf(f.writer, "[%d/%d] ✓ %s (%s)\n",
			update.CurrentFile, f.totalFiles,
			update.FilePath, humanize.IBytes(uint64(update.BytesWritten)))

	case UpdateFileError:
		fmt.Fprintf(f.writer, "[%d/%d] ✗ %s: %v\n",
			update.CurrentFile, f.totalFiles, update.FilePath, update.Error)

	case UpdateFileDeleted:
		fmt.Fprintf(f.writer, "Deleted %s\n", update.FilePath)
	}

	return nil
}

// Complete finalizes output and displays summary
func (f *HumanFormatter) Complete(report *models.SyncReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	w := f.writer
	s := report.Stats

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "%s sync completed in %s\n", report.Kind, report.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Summary:\n")
	fmt.Fprintf(w, "  Files fetched:      %d\n", s.FilesFetched)
	fmt.Fprintf(w, "  Files deleted:      %d\n", s.FilesDeleted)
	fmt.Fprintf(w, "  Files unchanged:    %d\n", s.FilesUnchanged)
	fmt.Fprintf(w, "  Deletions skipped:  %d\n", s.DeletionsSkipped)
	fmt.Fprintf(w, "  Files errored:      %d\n", s.FilesErrored)
	fmt.Fprintf(w, "  Data:               %s\n", humanize.IBytes(uint64(s.BytesTransferred)))

	if report.Duration.Seconds() > 0 && s.BytesTransferred > 0 {
		avg := float64(s.BytesTransferred) / report.Duration.Seconds()
		fmt.Fprintf(w, "  Average speed:      %s/s\n", humanize.IBytes(uint64(avg)))
	}

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Status: %s\n", report.Status)

	if len(report.Errors) > 0 {
		fmt.Fprintf(w, "\nErrors:\n")
		for _, err := range report.Errors {
			fmt.Fprintf(w, "  %s %s: %s\n", err.Operation, err.FilePath, err.Error)
		}
	}

	return nil
}

// Error reports an error
func (f *HumanFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	fmt.Fprintf(f.writer, "Error: %v\n", err)
	return nil
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}
