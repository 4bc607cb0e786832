package output

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sdejongh/versync/pkg/models"
)

// JSONFormatter formats output as JSON for automation and scripting.
// Only the final report is written, so the output stays a single document.
type JSONFormatter struct {
	mu     sync.Mutex
	writer io.Writer
	errors []string
}

// JSONReportData represents the final report data
type JSONReportData struct {
	OperationID string          `json:"operation_id,omitempty"`
	Kind        string          `json:"kind"`
	Status      string          `json:"status"`
	DryRun      bool            `json:"dry_run"`
	Duration    string          `json:"duration"`
	DurationMs  int64           `json:"duration_ms"`
	Plan        JSONPlanData    `json:"plan"`
	Result      JSONResultData  `json:"result"`
	Transfer    JSONTransfer    `json:"transfer"`
	Warnings    []JSONWarning   `json:"warnings,omitempty"`
	Errors      []JSONErrorData `json:"errors,omitempty"`
	Messages    []string        `json:"messages,omitempty"`
}

// JSONPlanData holds the planned counts
type JSONPlanData struct {
	LocalScanned  int `json:"local_scanned"`
	RemoteScanned int `json:"remote_scanned"`
	Fetch         int `json:"fetch"`
	Delete        int `json:"delete"`
	Unchanged     int `json:"unchanged"`
	Ambiguities   int `json:"ambiguities"`
	Anomalies     int `json:"anomalies"`
}

// JSONResultData holds the executed counts
type JSONResultData struct {
	Fetched          int `json:"fetched"`
	Deleted          int `json:"deleted"`
	Errored          int `json:"errored"`
	DeletionsSkipped int `json:"deletions_skipped"`
}

// JSONTransfer represents transfer statistics
type JSONTransfer struct {
	BytesTransferred int64  `json:"bytes_transferred"`
	Bytes            string `json:"bytes"`
	AverageSpeed     string `json:"average_speed,omitempty"`
}

// JSONWarning represents a non-fatal condition
type JSONWarning struct {
	Kind    string `json:"kind"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

// JSONErrorData represents an error entry
type JSONErrorData struct {
	Path      string `json:"path"`
	Operation string `json:"operation"`
	Error     string `json:"error"`
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{writer: os.Stdout}
}

// Start initializes the formatter
func (f *JSONFormatter) Start(writer io.Writer, totalFiles int, totalBytes int64, maxWorkers int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if writer != nil {
		f.writer = writer
	}
	return nil
}

// Plan is folded into the final report
func (f *JSONFormatter) Plan(report *models.SyncReport) error {
	return nil
}

// Progress is not streamed, to keep the output parseable
func (f *JSONFormatter) Progress(update ProgressUpdate) error {
	return nil
}

// Complete writes the report as one JSON document
func (f *JSONFormatter) Complete(report *models.SyncReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := report.Stats
	data := JSONReportData{
		OperationID: report.OperationID,
		Kind:        string(report.Kind),
		Status:      string(report.Status),
		DryRun:      report.DryRun,
		Duration:    report.Duration.Round(time.Millisecond).String(),
		DurationMs:  report.Duration.Milliseconds(),
		Plan: JSONPlanData{
			LocalScanned:  s.LocalFilesScanned,
			RemoteScanned: s.RemoteFilesScanned,
			Fetch:         s.FilesToFetch,
			Delete:        s.FilesToDelete,
			Unchanged:     s.FilesUnchanged,
			Ambiguities:   s.Ambiguities,
			Anomalies:     s.Anomalies,
		},
		Result: JSONResultData{
			Fetched:          s.FilesFetched,
			Deleted:          s.FilesDeleted,
			Errored:          s.FilesErrored,
			DeletionsSkipped: s.DeletionsSkipped,
		},
		Transfer: JSONTransfer{
			BytesTransferred: s.BytesTransferred,
			Bytes:            humanize.IBytes(uint64(s.BytesTransferred)),
		},
		Messages: f.errors,
	}

	if report.Duration.Seconds() > 0 && s.BytesTransferred > 0 {
		data.Transfer.AverageSpeed = humanize.IBytes(uint64(float64(s.BytesTransferred)/report.Duration.Seconds())) + "/s"
	}

	for _, w := range report.Warnings {
		data.Warnings = append(data.Warnings, JSONWarning{Kind: string(w.Kind), Path: w.Path, Message: w.Message})
	}
	for _, e := range report.Errors {
		data.Errors = append(data.Errors, JSONErrorData{Path: e.FilePath, Operation: string(e.Operation), Error: e.Error})
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Error records an error for the final report
func (f *JSONFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, err.Error())
	return nil
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}
