package models

import (
	"time"
)

// SyncKind identifies the product family a run synchronizes
type SyncKind string

const (
	// KindL1B synchronizes versioned level 1B products
	KindL1B SyncKind = "l1b"
	// KindSPICE mirrors the SPICE kernel tree
	KindSPICE SyncKind = "spice"
	// KindEUVM fetches the newest EUVM L2B save file from the portal
	KindEUVM SyncKind = "euvm"
	// KindReports fetches integrated reports from the portal
	KindReports SyncKind = "reports"
)

// ComparisonMethod defines how mirrored files are compared
type ComparisonMethod string

const (
	// CompareNameSize compares by name and size only
	CompareNameSize ComparisonMethod = "namesize"
	// CompareTimestamp also treats a newer remote modification time as a change
	CompareTimestamp ComparisonMethod = "timestamp"
)

// SyncOperation represents one sync run
type SyncOperation struct {
	ID       string
	Kind     SyncKind
	LocalDir string

	// Pattern is the glob matched against file names
	Pattern string

	DryRun bool

	// AssumeYes skips the deletion confirmation
	AssumeYes bool

	// DeleteOrphans lets a mirror remove local files absent remotely
	DeleteOrphans bool

	ComparisonMethod ComparisonMethod
	ExcludePatterns  []string
	MaxWorkers       int
	BandwidthLimit   int64 // bytes per second, 0 = unlimited
	BufferSize       int
	CreatedAt        time.Time
	StartedAt        *time.Time
	CompletedAt      *time.Time
}

// Validate checks if the operation configuration is valid
func (op *SyncOperation) Validate() error {
	if op.LocalDir == "" {
		return &ValidationError{Field: "LocalDir", Message: "local directory is required"}
	}
	if op.MaxWorkers < 1 {
		return &ValidationError{Field: "MaxWorkers", Message: "max workers must be at least 1"}
	}
	if op.BufferSize < 1024 {
		return &ValidationError{Field: "BufferSize", Message: "buffer size must be at least 1024 bytes"}
	}
	if op.BandwidthLimit < 0 {
		return &ValidationError{Field: "BandwidthLimit", Message: "bandwidth limit cannot be negative"}
	}
	return nil
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
