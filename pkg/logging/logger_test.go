package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(content)), "\n")
}

// ============== Constructor Tests ==============

func TestNew(t *testing.T) {
	t.Run("CreatesDirectory", func(t *testing.T) {
		logPath := filepath.Join(t.TempDir(), "nested", "dir", "versync.log")

		logger, err := New(Config{File: logPath, Format: FormatText})
		require.NoError(t, err)
		defer logger.Close()

		_, err = os.Stat(logPath)
		assert.NoError(t, err)
	})

	t.Run("NoOutputs", func(t *testing.T) {
		logger, err := New(Config{})
		require.NoError(t, err)
		logger.Info(context.Background(), "dropped", nil)
		assert.NoError(t, logger.Close())
	})

	t.Run("UnwritablePath", func(t *testing.T) {
		dir := t.TempDir()
		blocker := filepath.Join(dir, "file")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

		_, err := New(Config{File: filepath.Join(blocker, "versync.log")})
		assert.Error(t, err)
	})
}

// ============== Level Tests ==============

func TestLoggerLevels(t *testing.T) {
	ctx := context.Background()

	t.Run("InfoFiltersDebug", func(t *testing.T) {
		logPath := filepath.Join(t.TempDir(), "versync.log")
		logger, err := New(Config{Level: InfoLevel, File: logPath, Format: FormatText})
		require.NoError(t, err)

		logger.Debug(ctx, "debug message", nil)
		logger.Info(ctx, "info message", nil)
		logger.Warn(ctx, "warn message", nil)
		logger.Error(ctx, "error message", nil, nil)
		require.NoError(t, logger.Close())

		content, err := os.ReadFile(logPath)
		require.NoError(t, err)
		assert.NotContains(t, string(content), "debug message")
		assert.Contains(t, string(content), "info message")
		assert.Contains(t, string(content), "warn message")
		assert.Contains(t, string(content), "error message")
	})

	t.Run("Debug", func(t *testing.T) {
		logPath := filepath.Join(t.TempDir(), "versync.log")
		logger, err := New(Config{Level: DebugLevel, File: logPath})
		require.NoError(t, err)

		logger.Debug(ctx, "debug message", nil)
		require.NoError(t, logger.Close())

		assert.Contains(t, readLines(t, logPath)[0], "debug message")
	})
}

// ============== Format Tests ==============

func TestLoggerJSONFormat(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "versync.log")
	logger, err := New(Config{File: logPath, Format: FormatJSON})
	require.NoError(t, err)

	logger.Error(context.Background(), "transfer failed", errors.New("connection reset"), Fields{
		"path": "orbit00100/a_v02.fits",
		"root": "production",
	})
	require.NoError(t, logger.Close())

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(readLines(t, logPath)[0]), &entry))

	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "transfer failed", entry["msg"])
	assert.Equal(t, "connection reset", entry["err"])
	assert.Equal(t, "orbit00100/a_v02.fits", entry["path"])
	assert.Equal(t, "production", entry["root"])
	assert.Contains(t, entry, "time")
}

func TestLoggerTextFormat(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "versync.log")
	logger, err := New(Config{File: logPath, Format: FormatText})
	require.NoError(t, err)

	logger.Info(context.Background(), "plan computed", Fields{"fetch": 3, "delete": 1})
	require.NoError(t, logger.Close())

	line := readLines(t, logPath)[0]
	assert.Contains(t, line, "level=INFO")
	assert.Contains(t, line, `msg="plan computed"`)
	assert.Less(t, strings.Index(line, "delete=1"), strings.Index(line, "fetch=3"))
}

func TestLoggerConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Console: &buf})
	require.NoError(t, err)

	logger.Warn(context.Background(), "file listed by several roots", Fields{"path": "b_v01.fits"})

	out := buf.String()
	assert.Contains(t, out, "WRN")
	assert.Contains(t, out, "file listed by several roots")
	assert.Contains(t, out, "path=b_v01.fits")
	assert.NotContains(t, out, "\x1b[", "non-terminal writers get no color")
}

func TestLoggerWithFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "versync.log")
	logger, err := New(Config{File: logPath, Format: FormatJSON})
	require.NoError(t, err)

	child := logger.WithFields(Fields{"run": "abc"})
	child.Info(context.Background(), "started", Fields{"kind": "l1b"})
	require.NoError(t, child.Close())
	logger.Info(context.Background(), "parent", nil)
	require.NoError(t, logger.Close())

	lines := readLines(t, logPath)
	require.Len(t, lines, 2)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "abc", entry["run"])
	assert.Equal(t, "l1b", entry["kind"])

	entry = nil
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &entry))
	assert.NotContains(t, entry, "run")
}

func TestLoggerConcurrentWrites(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "versync.log")
	logger, err := New(Config{File: logPath})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				logger.Info(context.Background(), "concurrent message", Fields{"goroutine": id, "iteration": j})
			}
		}(i)
	}
	wg.Wait()
	require.NoError(t, logger.Close())

	assert.Len(t, readLines(t, logPath), 1000)
}

// ============== Rotation Tests ==============

func TestRotatingFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "versync.log")
	rf, err := OpenRotatingFile(logPath, 100, 2)
	require.NoError(t, err)

	line := []byte(strings.Repeat("x", 60) + "\n")
	for i := 0; i < 10; i++ {
		_, err := rf.Write(line)
		require.NoError(t, err)
	}
	require.NoError(t, rf.Close())

	for _, p := range []string{logPath, logPath + ".1", logPath + ".2"} {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}
	_, err = os.Stat(logPath + ".3")
	assert.True(t, os.IsNotExist(err))

	_, err = rf.Write(line)
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestRotatingFileAppends(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "versync.log")
	require.NoError(t, os.WriteFile(logPath, []byte("earlier\n"), 0644))

	rf, err := OpenRotatingFile(logPath, 0, 0)
	require.NoError(t, err)
	_, err = rf.Write([]byte("later\n"))
	require.NoError(t, err)
	require.NoError(t, rf.Close())

	assert.Equal(t, []string{"earlier", "later"}, readLines(t, logPath))
}

// ============== Misc Tests ==============

func TestNullLogger(t *testing.T) {
	var logger Logger = NewNullLogger()
	ctx := context.Background()

	logger.Debug(ctx, "debug", nil)
	logger.Info(ctx, "info", nil)
	logger.Warn(ctx, "warn", nil)
	logger.Error(ctx, "error", nil, nil)

	assert.Equal(t, Discard, logger.WithFields(Fields{"key": "value"}))
	assert.NoError(t, logger.Close())
	assert.NoError(t, logger.Close(), "closing twice is harmless")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", DebugLevel},
		{"DEBUG", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"WARNING", WarnLevel},
		{"error", ErrorLevel},
		{"unknown", InfoLevel},
		{"", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", DebugLevel.String())
	assert.Equal(t, "ERROR", ErrorLevel.String())
	assert.Equal(t, "UNKNOWN", Level(99).String())
}
