package models

import (
	"time"
)

// Action represents what should be done with a file
type Action string

const (
	// ActionFetch copies a remote file into the local mirror
	ActionFetch Action = "fetch"
	// ActionDelete removes a superseded local file
	ActionDelete Action = "delete"
	// ActionSkip leaves the file untouched
	ActionSkip Action = "skip"
	// ActionIndex rewrites the mirror index
	ActionIndex Action = "index"
)

// FileOperation represents a planned or executed operation on a file
type FileOperation struct {
	// Path is the local path the operation writes or removes
	Path string

	// Source is the remote path for fetches
	Source string

	// Root is the remote root id for fetches
	Root string

	Action      Action
	Reason      string
	Error       error
	BytesCopied int64
	Duration    time.Duration
}

// Failed reports whether the operation ended with an error
func (op *FileOperation) Failed() bool {
	return op.Error != nil
}
