package output

import (
	"fmt"
	"io"

	"github.com/sdejongh/versync/pkg/models"
)

// Progress update types
const (
	UpdateFileStart    = "file_start"
	UpdateFileProgress = "file_progress"
	UpdateFileComplete = "file_complete"
	UpdateFileError    = "file_error"
	UpdateFileDeleted  = "file_deleted"
)

// ProgressUpdate represents a progress notification during sync
type ProgressUpdate struct {
	Type         string
	FilePath     string
	Root         string
	BytesWritten int64
	TotalBytes   int64
	CurrentFile  int
	TotalFiles   int
	Error        error
}

// Formatter defines the interface for output formatting.
// Implementations include human-readable, JSON and progress bar formatters.
// Progress may be called from several workers at once.
type Formatter interface {
	// Start initializes the formatter for a transfer phase.
	// maxWorkers indicates the number of parallel workers for display purposes.
	Start(writer io.Writer, totalFiles int, totalBytes int64, maxWorkers int) error

	// Plan reports the planned counts and warnings before anything is changed
	Plan(report *models.SyncReport) error

	// Progress reports progress during sync
	Progress(update ProgressUpdate) error

	// Complete finalizes output and displays summary
	Complete(report *models.SyncReport) error

	// Error reports an error during sync
	Error(err error) error

	// Name returns the formatter name
	Name() string
}

// New returns the formatter registered under name
func New(name string) (Formatter, error) {
	switch name {
	case "human", "":
		return NewHumanFormatter(), nil
	case "json":
		return NewJSONFormatter(), nil
	case "progress":
		return NewProgressFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown output format: %s", name)
	}
}

// NopFormatter discards everything
type NopFormatter struct{}

func (NopFormatter) Start(io.Writer, int, int64, int) error { return nil }
func (NopFormatter) Plan(*models.SyncReport) error { return nil }
func (NopFormatter) Progress(ProgressUpdate) error { return nil }
func (NopFormatter) Complete(*models.SyncReport) error { return nil }
func (NopFormatter) Error(error) error { return nil }
func (NopFormatter) Name() string { return "nop" }
