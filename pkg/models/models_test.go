package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============== SyncOperation Tests ==============

func TestSyncOperationValidate(t *testing.T) {
	valid := func() *SyncOperation {
		return &SyncOperation{
			LocalDir:   "/data/l1b",
			MaxWorkers: 5,
			BufferSize: 4096,
		}
	}

	t.Run("ValidOperation", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	tests := []struct {
		name   string
		mutate func(op *SyncOperation)
		field  string
	}{
		{"EmptyLocalDir", func(op *SyncOperation) { op.LocalDir = "" }, "LocalDir"},
		{"ZeroWorkers", func(op *SyncOperation) { op.MaxWorkers = 0 }, "MaxWorkers"},
		{"SmallBufferSize", func(op *SyncOperation) { op.BufferSize = 512 }, "BufferSize"},
		{"NegativeBandwidth", func(op *SyncOperation) { op.BandwidthLimit = -1 }, "BandwidthLimit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := valid()
			tt.mutate(op)

			err := op.Validate()
			require.Error(t, err)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Field: "TestField", Message: "test message"}
	assert.Equal(t, "TestField: test message", err.Error())
}

// ============== SyncReport Tests ==============

func TestSyncReportFinish(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r := &SyncReport{StartTime: time.Now()}
		r.Stats.FilesFetched = 3
		r.Finish()

		assert.Equal(t, StatusSuccess, r.Status)
		assert.False(t, r.EndTime.Before(r.StartTime))
	})

	t.Run("Partial", func(t *testing.T) {
		r := &SyncReport{StartTime: time.Now()}
		r.Stats.FilesFetched = 1
		r.AddError("/data/a_v1.dat", ActionFetch, errors.New("connection reset"))
		r.Finish()

		assert.Equal(t, StatusPartial, r.Status)
		assert.Equal(t, 1, r.Stats.FilesErrored)
		require.Len(t, r.Errors, 1)
		assert.Equal(t, "connection reset", r.Errors[0].Error)
		assert.Equal(t, ActionFetch, r.Errors[0].Operation)
	})

	t.Run("Failed", func(t *testing.T) {
		r := &SyncReport{StartTime: time.Now()}
		r.AddError("/data/a_v1.dat", ActionDelete, errors.New("permission denied"))
		r.Finish()

		assert.Equal(t, StatusFailed, r.Status)
	})

	t.Run("CancelledIsKept", func(t *testing.T) {
		r := &SyncReport{StartTime: time.Now(), Status: StatusCancelled}
		r.Finish()

		assert.Equal(t, StatusCancelled, r.Status)
	})
}

func TestSyncStatusExitCode(t *testing.T) {
	tests := []struct {
		status   SyncStatus
		expected int
	}{
		{StatusSuccess, 0},
		{StatusPartial, 1},
		{StatusFailed, 2},
		{StatusCancelled, 3},
		{SyncStatus("unknown"), 2},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.ExitCode())
		})
	}
}

// ============== FileOperation Tests ==============

func TestFileOperationFailed(t *testing.T) {
	op := &FileOperation{Path: "/data/a_v2.dat", Action: ActionFetch}
	assert.False(t, op.Failed())

	op.Error = errors.New("boom")
	assert.True(t, op.Failed())
}
