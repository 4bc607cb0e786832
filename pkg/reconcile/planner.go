package reconcile

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// ReconciliationPlan is the set of actions that converge the local mirror
// onto the latest records. It is computed fresh for every run and must not
// be modified once returned.
type ReconciliationPlan struct {
	// ToFetch holds remote records with no equal-or-newer local copy
	ToFetch Inventory

	// ToDeleteLocal holds local records superseded by a newer version
	ToDeleteLocal Inventory

	// Unchanged holds local records already at their latest version, plus
	// local records whose names could not be parsed
	Unchanged Inventory

	// Anomalies holds every record whose name could not be parsed
	Anomalies Inventory

	supersededBy map[FileRecord]FileRecord
}

// PlanSummary holds the counts reported before any destructive action
type PlanSummary struct {
	Fetch     int `json:"fetch"`
	Delete    int `json:"delete"`
	Unchanged int `json:"unchanged"`
	Anomalies int `json:"anomalies"`
}

// Plan plans with the default naming scheme
func Plan(local Inventory, remotes []Inventory) *ReconciliationPlan {
	return defaultResolver.Plan(local, remotes)
}

// Plan compares the local inventory against the remote inventories.
//
// The latest set is resolved over local followed by remotes in the given
// order, so a local copy wins every tie. Local records outside the latest
// set are scheduled for deletion. Unparseable local records are always kept;
// unparseable remote records are fetched unless a local file or an earlier
// scheduled remote file already has the same name.
func (r *Resolver) Plan(local Inventory, remotes []Inventory) *ReconciliationPlan {
	size := len(local)
	for _, inv := range remotes {
		size += len(inv)
	}
	combined := make(Inventory, 0, size)
	combined = append(combined, local...)
	for _, inv := range remotes {
		combined = append(combined, inv...)
	}

	winners, keys := r.resolve(combined)

	plan := &ReconciliationPlan{
		supersededBy: make(map[FileRecord]FileRecord),
	}

	latest := mapset.NewThreadUnsafeSetWithSize[FileRecord](len(winners))
	winnerByKey := make(map[string]FileRecord, len(winners))
	for i, w := range winners {
		latest.Add(w)
		winnerByKey[keys[i]] = w
		if w.IsLocal() {
			plan.Unchanged = append(plan.Unchanged, w)
		} else {
			plan.ToFetch = append(plan.ToFetch, w)
		}
	}

	localNames := mapset.NewThreadUnsafeSetWithSize[string](len(local))
	for _, rec := range local {
		localNames.Add(rec.Name())

		id := r.scheme.Parse(rec.Path)
		if !id.OK {
			plan.Anomalies = append(plan.Anomalies, rec)
			plan.Unchanged = append(plan.Unchanged, rec)
			continue
		}
		if !latest.Contains(rec) {
			plan.ToDeleteLocal = append(plan.ToDeleteLocal, rec)
			plan.supersededBy[rec] = winnerByKey[id.Key]
		}
	}

	for _, inv := range remotes {
		for _, rec := range inv {
			if r.scheme.Parse(rec.Path).OK {
				continue
			}
			plan.Anomalies = append(plan.Anomalies, rec)
			if localNames.Contains(rec.Name()) {
				continue
			}
			localNames.Add(rec.Name())
			plan.ToFetch = append(plan.ToFetch, rec)
		}
	}

	return plan
}

// SupersededBy returns the record that made a deleted local record obsolete
func (p *ReconciliationPlan) SupersededBy(rec FileRecord) (FileRecord, bool) {
	w, ok := p.supersededBy[rec]
	return w, ok
}

// IsEmpty reports whether the plan requires no action
func (p *ReconciliationPlan) IsEmpty() bool {
	return len(p.ToFetch) == 0 && len(p.ToDeleteLocal) == 0
}

// Summary returns the plan counts
func (p *ReconciliationPlan) Summary() PlanSummary {
	return PlanSummary{
		Fetch:     len(p.ToFetch),
		Delete:    len(p.ToDeleteLocal),
		Unchanged: len(p.Unchanged),
		Anomalies: len(p.Anomalies),
	}
}
