package fileversion

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		key     string
		ordinal int
		ok      bool
	}{
		{"simple", "a_v1.dat", "a.dat", 1000, true},
		{"version only newer", "a_v2.dat", "a.dat", 2000, true},
		{"iuvs product", "/maven_iuvs/production/products/level1b/orbit03400/mvn_iuv_l1b_apoapse-orbit03456-muv_20160607T082307_v13_r01.fits.gz",
			"mvn_iuv_l1b_apoapse-orbit03456-muv_20160607T082307.fits.gz", 13001, true},
		{"no extension", "kernel_v05", "kernel", 5000, true},
		{"last version block wins", "foo_v2x_v3.dat", "foo_v2x.dat", 3000, true},
		{"malformed", "c_unparsable.xyz", "!c_unparsable.xyz", 0, false},
		{"malformed keeps directory out of key", "/data/orbit00100/c_unparsable.xyz", "!c_unparsable.xyz", 0, false},
		{"revision too large", "a_v1_r1000.dat", "!a_v1_r1000.dat", 0, false},
		{"empty", "", "!", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := Parse(tt.path)
			assert.Equal(t, tt.key, id.Key)
			assert.Equal(t, tt.ordinal, id.Ordinal)
			assert.Equal(t, tt.ok, id.OK)
		})
	}
}

func TestParse_RevisionOrdering(t *testing.T) {
	base := "mvn_iuv_l1b_periapse-orbit01234-fuv_20150505T010203"

	older := Parse(base + "_v13_r01.fits.gz")
	newerRev := Parse(base + "_v13_r02.fits.gz")
	newerVer := Parse(base + "_v14_r01.fits.gz")

	require.Equal(t, older.Key, newerRev.Key)
	require.Equal(t, older.Key, newerVer.Key)
	assert.Less(t, older.Ordinal, newerRev.Ordinal)
	assert.Less(t, newerRev.Ordinal, newerVer.Ordinal)
}

func TestParse_ExtensionIsPartOfKey(t *testing.T) {
	assert.NotEqual(t, Parse("a_v1.dat").Key, Parse("a_v1.fits").Key)
}

func TestParse_VersionOverflow(t *testing.T) {
	huge := strings.Repeat("9", len(strconv.Itoa(int(^uint(0)>>1)))+1)
	id := Parse("a_v" + huge + ".dat")
	assert.False(t, id.OK)
	assert.Equal(t, 0, id.Ordinal)
}

func TestParse_MalformedNeverCollidesWithParsed(t *testing.T) {
	// A file literally named like a parsed key must not join that group.
	parsed := Parse("a_v1.dat")
	odd := Parse("a.dat")
	assert.True(t, parsed.OK)
	assert.False(t, odd.OK)
	assert.NotEqual(t, parsed.Key, odd.Key)
}

func TestNewScheme(t *testing.T) {
	t.Run("MissingGroups", func(t *testing.T) {
		_, err := NewScheme(`^(?P<key>.+)\.dat$`)
		assert.Error(t, err)
	})

	t.Run("InvalidExpression", func(t *testing.T) {
		_, err := NewScheme(`(`)
		assert.Error(t, err)
	})

	t.Run("CustomScheme", func(t *testing.T) {
		s, err := NewScheme(`^(?P<key>[a-z]+)(?P<version>\d{4})\.tls$`)
		require.NoError(t, err)

		id := s.Parse("naif0012.tls")
		assert.True(t, id.OK)
		assert.Equal(t, "naif", id.Key)
		assert.Equal(t, 12*RevisionSpan, id.Ordinal)
	})
}

func TestMustScheme_Panics(t *testing.T) {
	assert.Panics(t, func() { MustScheme(`^(?P<key>.+)$`) })
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "f.dat", BaseName("/a/b/f.dat"))
	assert.Equal(t, "f.dat", BaseName("f.dat"))
	assert.Equal(t, "", BaseName("/a/b/"))
}
