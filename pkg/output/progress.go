package output

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"

	"github.com/sdejongh/versync/pkg/models"
)

const progressTemplate = `{{string . "phase"}} {{counters . }} {{bar . }} {{percent . }} {{string . "file"}}`

// ProgressFormatter renders a progress bar of transferred files and
// falls back to the human formatter for plans and summaries
type ProgressFormatter struct {
	mu     sync.Mutex
	writer io.Writer
	bar    *pb.ProgressBar
	human  *HumanFormatter
	bytes  int64
}

// NewProgressFormatter creates a new progress bar formatter
func NewProgressFormatter() *ProgressFormatter {
	return &ProgressFormatter{
		writer: os.Stdout,
		human:  NewHumanFormatter(),
	}
}

// Start begins a new bar for a transfer phase
func (f *ProgressFormatter) Start(writer io.Writer, totalFiles int, totalBytes int64, maxWorkers int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if writer != nil {
		f.writer = writer
	}
	f.human.writer = f.writer
	f.finishBar()

	bar := pb.ProgressBarTemplate(progressTemplate).New(totalFiles)
	bar.SetWriter(f.writer)
	bar.Set("phase", fmt.Sprintf("fetch x%d", maxWorkers))
	bar.Set("file", "")

	// Fit the bar to the terminal when there is one
	if file, ok := f.writer.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		if width, _, err := term.GetSize(int(file.Fd())); err == nil && width > 0 {
			bar.SetWidth(width)
		}
	} else {
		bar.SetWidth(100)
	}

	f.bar = bar.Start()
	f.bytes = 0
	return nil
}

// Plan prints the plan in human form
func (f *ProgressFormatter) Plan(report *models.SyncReport) error {
	f.human.writer = f.writer
	return f.human.Plan(report)
}

// Progress advances the bar
func (f *ProgressFormatter) Progress(update ProgressUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.bar == nil {
		return nil
	}

	switch update.Type {
	case UpdateFileStart:
		f.bar.Set("file", update.FilePath)
	case UpdateFileComplete:
		f.bytes += update.BytesWritten
		f.bar.Increment()
	case UpdateFileError:
		f.bar.Increment()
	}
	return nil
}

// Complete stops the bar and prints the summary
func (f *ProgressFormatter) Complete(report *models.SyncReport) error {
	f.mu.Lock()
	f.finishBar()
	f.mu.Unlock()

	f.human.writer = f.writer
	return f.human.Complete(report)
}

// Error reports an error below the bar
func (f *ProgressFormatter) Error(err error) error {
	f.human.writer = f.writer
	return f.human.Error(err)
}

// Name returns the formatter name
func (f *ProgressFormatter) Name() string {
	return "progress"
}

func (f *ProgressFormatter) finishBar() {
	if f.bar != nil {
		f.bar.Finish()
		f.bar = nil
	}
}
