package compare

import (
	"testing"
	"time"

	"github.com/sdejongh/versync/pkg/models"
	"github.com/sdejongh/versync/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func info(path string, size int64, mtime time.Time) *storage.FileInfo {
	return &storage.FileInfo{Path: path, Size: size, ModTime: mtime}
}

// ============== Factory Tests ==============

func TestNew(t *testing.T) {
	c, err := New(models.CompareNameSize)
	require.NoError(t, err)
	assert.Equal(t, "namesize", c.Name())

	c, err = New("")
	require.NoError(t, err)
	assert.Equal(t, "namesize", c.Name())

	c, err = New(models.CompareTimestamp)
	require.NoError(t, err)
	assert.Equal(t, "timestamp", c.Name())

	_, err = New("sha256")
	assert.Error(t, err)
}

// ============== NameSize Tests ==============

func TestNameSizeComparator(t *testing.T) {
	c := NewNameSizeComparator()

	tests := []struct {
		name     string
		source   *storage.FileInfo
		dest     *storage.FileInfo
		expected Result
	}{
		{"Identical", info("/anc/spice/ck/a.bc", 10, base), info("/mirror/ck/a.bc", 10, base), Same},
		{"DifferentSize", info("/anc/spice/ck/a.bc", 10, base), info("/mirror/ck/a.bc", 11, base), Different},
		{"DifferentName", info("/anc/spice/ck/a.bc", 10, base), info("/mirror/ck/b.bc", 10, base), Different},
		{"SourceOnly", info("/anc/spice/ck/a.bc", 10, base), nil, SourceOnly},
		{"DestOnly", nil, info("/mirror/ck/a.bc", 10, base), DestOnly},
		{"NewerSourceIgnored", info("/anc/spice/ck/a.bc", 10, base.Add(time.Hour)), info("/mirror/ck/a.bc", 10, base), Same},
		{"WindowsDestPath", info("/anc/spice/ck/a.bc", 10, base), info(`C:\mirror\ck\a.bc`, 10, base), Same},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Compare(tt.source, tt.dest)
			assert.Equal(t, tt.expected, got.Result, got.Reason)
			assert.NotEmpty(t, got.Reason)
		})
	}
}

// ============== Timestamp Tests ==============

func TestTimestampComparator(t *testing.T) {
	c := NewTimestampComparator()

	tests := []struct {
		name     string
		source   *storage.FileInfo
		dest     *storage.FileInfo
		expected Result
	}{
		{"Identical", info("/s/a", 5, base), info("/d/a", 5, base), Same},
		{"SourceNewer", info("/s/a", 5, base.Add(time.Minute)), info("/d/a", 5, base), Different},
		{"WithinTolerance", info("/s/a", 5, base.Add(500*time.Millisecond)), info("/d/a", 5, base), Same},
		{"DestNewer", info("/s/a", 5, base), info("/d/a", 5, base.Add(time.Hour)), Same},
		{"DifferentSize", info("/s/a", 5, base), info("/d/a", 6, base), Different},
		{"SourceOnly", info("/s/a", 5, base), nil, SourceOnly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, c.Compare(tt.source, tt.dest).Result)
		})
	}
}

func TestComparatorInterface(t *testing.T) {
	var _ Comparator = (*NameSizeComparator)(nil)
	var _ Comparator = (*TimestampComparator)(nil)
}
