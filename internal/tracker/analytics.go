package tracker

import "fmt"

// Memory-heaviness thresholds. A session past any of them is a candidate
// for teardown or repair.
const (
	heavyCells     = 100
	heavyBindings  = 1000
	heavyGlobals   = 2000
	heavySnapshots = 50
)

// Report is a point-in-time census of a session's tracked state.
type Report struct {
	Cells     int `json:"cells"`
	Bindings  int `json:"bindings"`
	Imports   int `json:"imports"`
	Widgets   int `json:"widgets"`
	Snapshots int `json:"snapshots"`
	Globals   int `json:"globals"`

	MemoryHeavy bool `json:"memory_heavy"`
}

// Report counts tracked state. globals is the live namespace size.
func (t *Tracker) Report(globals int) Report {
	r := Report{
		Cells:     len(t.cells),
		Snapshots: len(t.snapshots),
		Globals:   globals,
	}
	for _, rec := range t.cells {
		r.Bindings += len(rec.Bindings)
		r.Imports += len(rec.Imports)
		r.Widgets += len(rec.Widgets)
	}
	r.MemoryHeavy = r.Cells > heavyCells ||
		r.Bindings > heavyBindings ||
		r.Globals > heavyGlobals ||
		r.Snapshots > heavySnapshots
	return r
}

// CheckIntegrity flags inconsistencies between records, snapshots, and the
// live namespace: orphaned snapshots, missing snapshots, and tracked
// bindings no longer present in the view.
func (t *Tracker) CheckIntegrity(ns Namespace) []string {
	var issues []string

	for cellID := range t.snapshots {
		rec, ok := t.cells[cellID]
		if !ok || len(rec.Bindings) == 0 {
			issues = append(issues, fmt.Sprintf("orphaned snapshot for cell %s", cellID))
		}
	}

	for cellID, rec := range t.cells {
		if len(rec.Bindings) > 0 {
			if _, ok := t.snapshots[cellID]; !ok {
				issues = append(issues, fmt.Sprintf("missing snapshot for cell %s", cellID))
			}
		}
		for name := range rec.Bindings {
			if !ns.Has(name) {
				issues = append(issues, fmt.Sprintf("cell %s tracks binding %q absent from namespace", cellID, name))
			}
		}
	}

	return issues
}

// Repair drops orphaned snapshots and empty records, returning a line per
// action taken.
func (t *Tracker) Repair(ns Namespace) []string {
	var actions []string

	for cellID := range t.snapshots {
		rec, ok := t.cells[cellID]
		if !ok || len(rec.Bindings) == 0 {
			delete(t.snapshots, cellID)
			actions = append(actions, fmt.Sprintf("dropped orphaned snapshot for cell %s", cellID))
		}
	}

	for cellID, rec := range t.cells {
		if rec.empty() {
			delete(t.cells, cellID)
			actions = append(actions, fmt.Sprintf("dropped empty record for cell %s", cellID))
		}
	}

	return actions
}
