package sync

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/versync/pkg/models"
	"github.com/sdejongh/versync/pkg/output"
	"github.com/sdejongh/versync/pkg/reconcile"
	"github.com/sdejongh/versync/pkg/storage"
)

const (
	mirrorDir     = "/mirror"
	productionDir = "/remote/production"
	stageDir      = "/remote/stage"
)

// fixture holds a local mirror and two remote roots on one in-memory filesystem
type fixture struct {
	t      *testing.T
	fs     afero.Fs
	local  *storage.Local
	remote *storage.Local
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := afero.NewMemMapFs()
	for _, dir := range []string{mirrorDir, productionDir, stageDir} {
		require.NoError(t, mem.MkdirAll(dir, 0755))
	}

	local, err := storage.NewLocalFs(mem, mirrorDir)
	require.NoError(t, err)
	remote, err := storage.NewLocalFs(mem, "/remote")
	require.NoError(t, err)

	return &fixture{t: t, fs: mem, local: local, remote: remote}
}

func (f *fixture) put(path, content string) {
	f.t.Helper()
	require.NoError(f.t, afero.WriteFile(f.fs, path, []byte(content), 0644))
}

func (f *fixture) exists(path string) bool {
	f.t.Helper()
	ok, err := afero.Exists(f.fs, path)
	require.NoError(f.t, err)
	return ok
}

func (f *fixture) remotes() []RemoteSource {
	return []RemoteSource{
		{Root: reconcile.RemoteRoot{ID: "production", BaseDir: productionDir}, Source: f.remote},
		{Root: reconcile.RemoteRoot{ID: "stage", BaseDir: stageDir}, Source: f.remote},
	}
}

func newOperation() *models.SyncOperation {
	return &models.SyncOperation{
		ID:         "test-run",
		Kind:       models.KindL1B,
		LocalDir:   mirrorDir,
		Pattern:    DefaultPattern,
		MaxWorkers: 2,
		BufferSize: 4096,
	}
}

// failingSource fails reads of selected paths
type failingSource struct {
	storage.Source
	fail map[string]bool
}

func (s *failingSource) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	if s.fail[filepath.ToSlash(path)] {
		return nil, errors.New("connection reset by peer")
	}
	return s.Source.Read(ctx, path)
}

// recordingFormatter counts the updates it receives
type recordingFormatter struct {
	mu        sync.Mutex
	updates   map[string]int
	plans     int
	completes int
}

func newRecordingFormatter() *recordingFormatter {
	return &recordingFormatter{updates: make(map[string]int)}
}

func (r *recordingFormatter) Start(io.Writer, int, int64, int) error { return nil }

func (r *recordingFormatter) Plan(*models.SyncReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans++
	return nil
}

func (r *recordingFormatter) Progress(update output.ProgressUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates[update.Type]++
	return nil
}

func (r *recordingFormatter) Complete(*models.SyncReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completes++
	return nil
}

func (r *recordingFormatter) Error(error) error { return nil }

func (r *recordingFormatter) Name() string { return "recording" }

func (r *recordingFormatter) count(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates[kind]
}
