package models

import (
	"time"
)

// SyncReport represents the results of a sync run
type SyncReport struct {
	// Operation details
	OperationID string
	Kind        SyncKind
	LocalDir    string
	DryRun      bool

	// Timing
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	Stats Statistics

	// Operations holds the fetches and deletions, planned or performed
	Operations []FileOperation

	// Warnings holds ambiguous sources and parse anomalies
	Warnings []Warning

	Errors []SyncError

	Status SyncStatus
}

// Statistics holds sync run metrics
type Statistics struct {
	// Inventories
	LocalFilesScanned  int
	RemoteFilesScanned int

	// Plan
	FilesToFetch   int
	FilesToDelete  int
	FilesUnchanged int
	Ambiguities    int
	Anomalies      int

	// Execution
	FilesFetched     int
	FilesDeleted     int
	FilesErrored     int
	DeletionsSkipped int // kept because the replacement did not arrive or deletion was declined

	BytesTransferred int64
}

// WarningKind categorizes non-fatal conditions
type WarningKind string

const (
	// WarnAmbiguousSource: the same path was listed by several remote roots
	WarnAmbiguousSource WarningKind = "ambiguous_source"
	// WarnParseAnomaly: a file name did not match the version scheme
	WarnParseAnomaly WarningKind = "parse_anomaly"
)

// Warning is a non-fatal condition reported with the run
type Warning struct {
	Kind    WarningKind
	Path    string
	Message string
}

// SyncStatus represents the overall result
type SyncStatus string

const (
	// StatusSuccess indicates all operations completed successfully
	StatusSuccess SyncStatus = "success"
	// StatusPartial indicates some operations failed
	StatusPartial SyncStatus = "partial"
	// StatusFailed indicates the sync operation failed
	StatusFailed SyncStatus = "failed"
	// StatusCancelled indicates the operation was cancelled
	StatusCancelled SyncStatus = "cancelled"
)

// SyncError represents an error during sync
type SyncError struct {
	FilePath  string
	Operation Action
	Error     string
	Timestamp time.Time
}

// AddError records a failed file operation
func (r *SyncReport) AddError(path string, action Action, err error) {
	r.Stats.FilesErrored++
	r.Errors = append(r.Errors, SyncError{
		FilePath:  path,
		Operation: action,
		Error:     err.Error(),
		Timestamp: time.Now(),
	})
}

// Finish stamps the end time and derives the status from the errors
func (r *SyncReport) Finish() {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)

	if r.Status == StatusCancelled || r.Status == StatusFailed {
		return
	}
	switch {
	case len(r.Errors) == 0:
		r.Status = StatusSuccess
	case r.Stats.FilesFetched+r.Stats.FilesDeleted > 0:
		r.Status = StatusPartial
	default:
		r.Status = StatusFailed
	}
}

// ExitCode returns the appropriate exit code for the sync status
func (s SyncStatus) ExitCode() int {
	switch s {
	case StatusSuccess:
		return 0
	case StatusPartial:
		return 1
	case StatusFailed:
		return 2
	case StatusCancelled:
		return 3
	default:
		return 2
	}
}
