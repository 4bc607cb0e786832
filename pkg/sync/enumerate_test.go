package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/versync/pkg/reconcile"
)

// ============== Folder Filter Tests ==============

func TestOrbitFilterFolders(t *testing.T) {
	f := OrbitFilter{MinOrbit: 100, MaxOrbit: 400, IncludeCruise: true}
	assert.Equal(t, []string{"cruise", "orbit00100", "orbit00200", "orbit00300"}, f.Folders())

	assert.Empty(t, OrbitFilter{MinOrbit: 500, MaxOrbit: 500}.Folders())
}

func TestOrbitFilterMatch(t *testing.T) {
	f := OrbitFilter{MinOrbit: 100, MaxOrbit: 100000}

	tests := []struct {
		name  string
		match bool
	}{
		{"orbit00100", true},
		{"orbit09900", true},
		{"orbit99900", true},
		{"orbit00000", false},
		{"orbit00150", false},
		{"orbit100000", false},
		{"orbit0100", false},
		{"orbit+0100", false},
		{"cruise", false},
		{"misc", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.match, f.Match(tt.name))
		})
	}

	assert.True(t, OrbitFilter{IncludeCruise: true}.Match("cruise"))
}

func TestAllFolders(t *testing.T) {
	assert.True(t, AllFolders.Match("orbit00100"))
	assert.True(t, AllFolders.Match("misc"))
	assert.False(t, AllFolders.Match(".versync"))
}

// ============== Enumeration Tests ==============

func TestEnumerate(t *testing.T) {
	f := newFixture(t)
	f.put(productionDir+"/orbit00100/a_v01.fits", "")
	f.put(productionDir+"/orbit00100/a_v01.fits.gz", "")
	f.put(productionDir+"/orbit00100/a_v01.txt", "")
	f.put(productionDir+"/orbit00200/b_v01.fits", "")
	f.put(productionDir+"/orbit00300/c_v01.fits", "")
	f.put(productionDir+"/cruise/d_v01.fits", "")
	f.put(productionDir+"/loose_v01.fits", "")
	require.NoError(t, f.fs.MkdirAll(productionDir+"/orbit00100/nested_v01.fits", 0755))

	ctx := context.Background()

	t.Run("OrbitRange", func(t *testing.T) {
		inv, err := Enumerate(ctx, f.remote, "production", productionDir, orbits, "")
		require.NoError(t, err)
		assert.Equal(t, reconcile.NewInventory("production",
			productionDir+"/orbit00100/a_v01.fits",
			productionDir+"/orbit00100/a_v01.fits.gz",
			productionDir+"/orbit00200/b_v01.fits",
		), inv)
	})

	t.Run("Cruise", func(t *testing.T) {
		filter := OrbitFilter{MinOrbit: 100, MaxOrbit: 200, IncludeCruise: true}
		inv, err := Enumerate(ctx, f.remote, "production", productionDir, filter, "*.fits")
		require.NoError(t, err)
		assert.Equal(t, []string{
			productionDir + "/cruise/d_v01.fits",
			productionDir + "/orbit00100/a_v01.fits",
		}, inv.Paths())
	})

	t.Run("Pattern", func(t *testing.T) {
		inv, err := Enumerate(ctx, f.remote, "production", productionDir, AllFolders, "*.txt")
		require.NoError(t, err)
		assert.Equal(t, []string{productionDir + "/orbit00100/a_v01.txt"}, inv.Paths())
	})

	t.Run("InvalidPattern", func(t *testing.T) {
		_, err := Enumerate(ctx, f.remote, "production", productionDir, AllFolders, "[")
		var pe *PatternError
		assert.True(t, errors.As(err, &pe))
	})

	t.Run("MissingRoot", func(t *testing.T) {
		_, err := Enumerate(ctx, f.remote, "production", "/remote/missing", AllFolders, "")
		assert.Error(t, err)
	})

	t.Run("EmptyRoot", func(t *testing.T) {
		inv, err := Enumerate(ctx, f.remote, "stage", stageDir, AllFolders, "")
		require.NoError(t, err)
		assert.Empty(t, inv)
	})
}

func TestEnumerateRoots(t *testing.T) {
	f := newFixture(t)
	f.put(productionDir+"/orbit00100/a_v01.fits", "")
	f.put(stageDir+"/orbit00100/a_v02.fits", "")
	ctx := context.Background()

	t.Run("PreservesRootOrder", func(t *testing.T) {
		invs, err := EnumerateRoots(ctx, f.remotes(), orbits, "")
		require.NoError(t, err)
		require.Len(t, invs, 2)
		assert.Equal(t, "production", invs[0].Root.ID)
		assert.Equal(t, []string{productionDir + "/orbit00100/a_v01.fits"}, invs[0].Records.Paths())
		assert.Equal(t, "stage", invs[1].Root.ID)
		assert.Equal(t, "stage", invs[1].Records[0].Root)
	})

	t.Run("OneFailureFailsAll", func(t *testing.T) {
		remotes := f.remotes()
		remotes[0].Root.BaseDir = "/remote/missing"
		_, err := EnumerateRoots(ctx, remotes, orbits, "")
		assert.Error(t, err)
	})
}
