package reconcile

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/sdejongh/versync/pkg/fileversion"
)

// Resolver selects the latest version of each logical product
type Resolver struct {
	scheme *fileversion.Scheme
}

// NewResolver creates a resolver for the given naming scheme. A nil scheme
// selects fileversion.DefaultScheme.
func NewResolver(scheme *fileversion.Scheme) *Resolver {
	if scheme == nil {
		scheme = fileversion.DefaultScheme
	}
	return &Resolver{scheme: scheme}
}

var defaultResolver = NewResolver(nil)

// ResolveLatest resolves inv with the default naming scheme
func ResolveLatest(inv Inventory) Inventory {
	return defaultResolver.ResolveLatest(inv)
}

// ResolveLatest groups inv by logical key and returns the record with the
// highest version ordinal of each group. On equal ordinals the record that
// appears first in inv wins, so callers control tie-breaks through input
// order (local records first avoids refetching what is already present).
//
// Records whose names do not parse are not considered. Winners are
// returned in the order their group was first seen.
func (r *Resolver) ResolveLatest(inv Inventory) Inventory {
	winners, _ := r.resolve(inv)
	return winners
}

// resolve returns the winners and, parallel to them, their logical keys
func (r *Resolver) resolve(inv Inventory) (Inventory, []string) {
	index := make(map[string]int, len(inv))
	var winners Inventory
	var keys []string
	var ordinals []int

	for _, rec := range inv {
		id := r.scheme.Parse(rec.Path)
		if !id.OK {
			continue
		}

		i, seen := index[id.Key]
		if !seen {
			index[id.Key] = len(winners)
			winners = append(winners, rec)
			keys = append(keys, id.Key)
			ordinals = append(ordinals, id.Ordinal)
			continue
		}

		// strictly greater: ties keep the earlier record
		if id.Ordinal > ordinals[i] {
			winners[i] = rec
			ordinals[i] = id.Ordinal
		}
	}

	return winners, keys
}

// Paths returns the paths of inv as a set
func Paths(inv Inventory) mapset.Set[string] {
	return mapset.NewThreadUnsafeSet(inv.Paths()...)
}
