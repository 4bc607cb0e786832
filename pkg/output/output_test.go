package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/versync/pkg/models"
)

func sampleReport() *models.SyncReport {
	r := &models.SyncReport{
		OperationID: "run-1",
		Kind:        models.KindL1B,
		LocalDir:    "/data/l1b",
		Duration:    2 * time.Second,
		Status:      models.StatusPartial,
	}
	r.Stats.LocalFilesScanned = 4
	r.Stats.RemoteFilesScanned = 9
	r.Stats.FilesToFetch = 3
	r.Stats.FilesToDelete = 2
	r.Stats.FilesUnchanged = 1
	r.Stats.Anomalies = 1
	r.Stats.FilesFetched = 2
	r.Stats.BytesTransferred = 4 * 1024 * 1024
	r.Warnings = []models.Warning{
		{Kind: models.WarnParseAnomaly, Path: "/prod/orbit00100/readme.txt", Message: "name does not match the version scheme"},
	}
	r.Errors = []models.SyncError{
		{FilePath: "orbit00100/b_v02.fits", Operation: models.ActionFetch, Error: "connection reset"},
	}
	return r
}

// ============== Factory Tests ==============

func TestNew(t *testing.T) {
	for _, name := range []string{"human", "json", "progress"} {
		f, err := New(name)
		require.NoError(t, err)
		assert.Equal(t, name, f.Name())
	}

	_, err := New("xml")
	assert.Error(t, err)
}

// ============== Human Tests ==============

func TestHumanFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewHumanFormatter()
	report := sampleReport()

	require.NoError(t, f.Start(&buf, 3, 0, 4))
	require.NoError(t, f.Plan(report))
	require.NoError(t, f.Progress(ProgressUpdate{Type: UpdateFileStart, FilePath: "orbit00100/a_v02.fits", Root: "production", CurrentFile: 1}))
	require.NoError(t, f.Progress(ProgressUpdate{Type: UpdateFileComplete, FilePath: "orbit00100/a_v02.fits", BytesWritten: 2048, CurrentFile: 1}))
	require.NoError(t, f.Progress(ProgressUpdate{Type: UpdateFileError, FilePath: "orbit00100/b_v02.fits", Error: errors.New("connection reset"), CurrentFile: 2}))
	require.NoError(t, f.Complete(report))

	out := buf.String()
	assert.Contains(t, out, "Transferring 3 files (4 workers)")
	assert.Contains(t, out, "To fetch:   3")
	assert.Contains(t, out, "To delete:  2")
	assert.Contains(t, out, "readme.txt")
	assert.Contains(t, out, "[1/3] Fetching orbit00100/a_v02.fits from production")
	assert.Contains(t, out, "2.0 KiB")
	assert.Contains(t, out, "connection reset")
	assert.Contains(t, out, "Status: partial")
	assert.Contains(t, out, "4.0 MiB")
}

func TestHumanFormatterDryRun(t *testing.T) {
	var buf bytes.Buffer
	f := NewHumanFormatter()
	require.NoError(t, f.Start(&buf, 0, 0, 1))

	report := sampleReport()
	report.DryRun = true
	require.NoError(t, f.Plan(report))

	assert.Contains(t, buf.String(), "Dry run")
}

// ============== JSON Tests ==============

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter()

	require.NoError(t, f.Start(&buf, 3, 0, 4))
	require.NoError(t, f.Plan(sampleReport()))
	require.NoError(t, f.Progress(ProgressUpdate{Type: UpdateFileStart}))
	require.NoError(t, f.Error(errors.New("stage root unreachable")))
	require.NoError(t, f.Complete(sampleReport()))

	var data JSONReportData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &data))

	assert.Equal(t, "partial", data.Status)
	assert.Equal(t, "l1b", data.Kind)
	assert.Equal(t, 3, data.Plan.Fetch)
	assert.Equal(t, 2, data.Result.Fetched)
	assert.Equal(t, int64(4*1024*1024), data.Transfer.BytesTransferred)
	assert.Equal(t, "2.0 MiB/s", data.Transfer.AverageSpeed)
	require.Len(t, data.Warnings, 1)
	assert.Equal(t, "parse_anomaly", data.Warnings[0].Kind)
	require.Len(t, data.Errors, 1)
	assert.Equal(t, "fetch", data.Errors[0].Operation)
	assert.Equal(t, []string{"stage root unreachable"}, data.Messages)
}

// ============== Progress Tests ==============

func TestProgressFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewProgressFormatter()

	require.NoError(t, f.Start(&buf, 2, 0, 2))
	require.NoError(t, f.Progress(ProgressUpdate{Type: UpdateFileStart, FilePath: "a"}))
	require.NoError(t, f.Progress(ProgressUpdate{Type: UpdateFileComplete, FilePath: "a", BytesWritten: 10}))
	require.NoError(t, f.Progress(ProgressUpdate{Type: UpdateFileError, FilePath: "b"}))
	assert.Equal(t, int64(10), f.bytes)

	require.NoError(t, f.Complete(sampleReport()))
	assert.Nil(t, f.bar)
	assert.Contains(t, buf.String(), "Status: partial")
}

func TestProgressFormatterWithoutStart(t *testing.T) {
	f := NewProgressFormatter()
	assert.NoError(t, f.Progress(ProgressUpdate{Type: UpdateFileComplete}))
}

// ============== Report File Tests ==============

func TestWriteReportFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("CleanRunWritesNothing", func(t *testing.T) {
		path := filepath.Join(dir, "clean.txt")
		require.NoError(t, WriteReportFile(&models.SyncReport{}, path, "human"))
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("Human", func(t *testing.T) {
		path := filepath.Join(dir, "report.txt")
		require.NoError(t, WriteReportFile(sampleReport(), path, "human"))

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(content), "Sync Report"))
		assert.Contains(t, string(content), "parse_anomaly (1)")
		assert.Contains(t, string(content), "errors (1)")
	})

	t.Run("JSON", func(t *testing.T) {
		path := filepath.Join(dir, "report.json")
		require.NoError(t, WriteReportFile(sampleReport(), path, "json"))

		content, err := os.ReadFile(path)
		require.NoError(t, err)

		var data map[string]any
		require.NoError(t, json.Unmarshal(content, &data))
		assert.Equal(t, "run-1", data["operation_id"])
		assert.Len(t, data["warnings"], 1)
	})
}
