// Package tracker is the session's accounting of what each cell introduced:
// namespace bindings, import roots, and widget ids, plus the pre-execution
// snapshot change detection runs against. Cleanup before a re-execution
// retracts a cell's prior state while preserving anything another cell
// still owns.
package tracker

import (
	"fmt"
	"reflect"
	"strings"

	"cellexec/internal/cellparse"
	"cellexec/internal/interp"
	"cellexec/internal/widget"
)

// InitializationCell is the reserved cell id the session's notebook source
// runs under.
const InitializationCell = "initialization"

// Namespace is the view the tracker retracts bindings from.
type Namespace interface {
	Snapshot() map[string]reflect.Value
	Drop(name string)
	Has(name string) bool
	Len() int
}

// Record is one cell's tracked state.
type Record struct {
	Bindings map[string]bool
	Imports  map[string]bool
	Widgets  map[string]bool
}

func newRecord() *Record {
	return &Record{
		Bindings: make(map[string]bool),
		Imports:  make(map[string]bool),
		Widgets:  make(map[string]bool),
	}
}

func (r *Record) empty() bool {
	return len(r.Bindings) == 0 && len(r.Imports) == 0 && len(r.Widgets) == 0
}

// Tracker holds the per-cell records of one session.
type Tracker struct {
	cells     map[string]*Record
	snapshots map[string]map[string]reflect.Value

	protectedNames   map[string]bool
	protectedImports map[string]bool

	// aliasLike are names that look like import aliases: declared aliases,
	// plus bindings introduced by a cell that also imported. The cleanup
	// heuristic keeps them alive while any other cell has outstanding
	// imports. Deliberately conservative.
	aliasLike map[string]bool
}

// New creates a tracker with the given protected names and import roots.
func New(protectedNames, protectedImports []string) *Tracker {
	t := &Tracker{
		cells:            make(map[string]*Record),
		snapshots:        make(map[string]map[string]reflect.Value),
		protectedNames:   make(map[string]bool),
		protectedImports: make(map[string]bool),
		aliasLike:        make(map[string]bool),
	}
	for _, n := range protectedNames {
		t.protectedNames[n] = true
	}
	for _, m := range protectedImports {
		t.protectedImports[m] = true
	}
	return t
}

// Protect marks name as an injected root the cleanup paths must never touch.
func (t *Tracker) Protect(name string) {
	t.protectedNames[name] = true
}

// IsProtected reports whether name may never be cleaned or tracked.
func (t *Tracker) IsProtected(name string) bool {
	return t.protectedNames[name] || strings.HasPrefix(name, "_")
}

// SetSnapshot stores the pre-execution snapshot for cellID.
func (t *Tracker) SetSnapshot(cellID string, snap map[string]reflect.Value) {
	t.snapshots[cellID] = snap
}

// SnapshotFor returns the stored pre-execution snapshot for cellID.
func (t *Tracker) SnapshotFor(cellID string) (map[string]reflect.Value, bool) {
	s, ok := t.snapshots[cellID]
	return s, ok
}

// Cell returns cellID's record.
func (t *Tracker) Cell(cellID string) (*Record, bool) {
	r, ok := t.cells[cellID]
	return r, ok
}

// CellIDs returns the tracked cell ids, unordered.
func (t *Tracker) CellIDs() []string {
	out := make([]string, 0, len(t.cells))
	for id := range t.cells {
		out = append(out, id)
	}
	return out
}

// Owners returns the cells whose records list name as a binding.
func (t *Tracker) Owners(name string) []string {
	var out []string
	for id, rec := range t.cells {
		if rec.Bindings[name] {
			out = append(out, id)
		}
	}
	return out
}

// ownedElsewhere reports whether any cell other than cellID lists the
// binding, import, or widget.
func (t *Tracker) ownedElsewhere(cellID string, pick func(*Record) map[string]bool, key string) bool {
	for id, rec := range t.cells {
		if id != cellID && pick(rec)[key] {
			return true
		}
	}
	return false
}

func (t *Tracker) otherCellHasImports(cellID string) bool {
	for id, rec := range t.cells {
		if id != cellID && len(rec.Imports) > 0 {
			return true
		}
	}
	return false
}

// CleanupForRerun retracts cellID's previously tracked state before the cell
// runs again. A binding, import, or widget is removed only when no other
// cell lists it and it is not protected; the import-alias heuristic
// additionally keeps alias-looking bindings alive while other cells hold
// imports.
func (t *Tracker) CleanupForRerun(cellID string, ns Namespace, reg *widget.Registry) {
	rec, ok := t.cells[cellID]
	if !ok {
		delete(t.snapshots, cellID)
		return
	}

	for name := range rec.Bindings {
		if t.IsProtected(name) {
			continue
		}
		if t.ownedElsewhere(cellID, bindingsOf, name) {
			continue
		}
		if t.aliasLike[name] && t.otherCellHasImports(cellID) {
			continue
		}
		ns.Drop(name)
	}

	for id := range rec.Widgets {
		if !t.ownedElsewhere(cellID, widgetsOf, id) {
			reg.Release(id)
		}
	}

	delete(t.cells, cellID)
	delete(t.snapshots, cellID)
}

// InitConflict eagerly retracts initialization-owned bindings and imports
// the incoming cell is about to redefine, so the new definition never
// coexists with the stale one.
func (t *Tracker) InitConflict(analysis *cellparse.Analysis, ns Namespace) {
	init, ok := t.cells[InitializationCell]
	if !ok {
		return
	}

	for _, name := range analysis.AssignedNames {
		if init.Bindings[name] && !t.IsProtected(name) {
			ns.Drop(name)
			delete(init.Bindings, name)
		}
	}
	for _, root := range analysis.ImportRoots {
		if init.Imports[root] && !t.protectedImports[root] {
			delete(init.Imports, root)
		}
	}

	if init.empty() {
		delete(t.cells, InitializationCell)
		delete(t.snapshots, InitializationCell)
	} else if len(init.Bindings) == 0 {
		delete(t.snapshots, InitializationCell)
	}
}

// Track attributes an execution's effects to cellID: new bindings, bindings
// whose identity changed, import roots from the cell's analysis, and widgets
// reachable from the tracked bindings. Runs on success and on failure.
func (t *Tracker) Track(cellID string, before, after map[string]reflect.Value, analysis *cellparse.Analysis, reg *widget.Registry) error {
	rec := newRecord()

	for name, val := range after {
		if t.IsProtected(name) {
			continue
		}
		prev, existed := before[name]
		if !existed || !interp.SameIdentity(prev, val) {
			rec.Bindings[name] = true
		}
	}

	if analysis != nil {
		for _, root := range analysis.ImportRoots {
			if !t.protectedImports[root] {
				rec.Imports[root] = true
			}
		}
		for _, alias := range analysis.AliasNames {
			t.aliasLike[alias] = true
		}
	}

	for name := range rec.Bindings {
		val, ok := after[name]
		if !ok || !val.IsValid() || !val.CanInterface() {
			continue
		}
		if w, isWidget := val.Interface().(widget.Widget); isWidget {
			rec.Widgets[reg.Register(w)] = true
		}
	}

	// Bindings born in an importing cell are treated as alias-like.
	if len(rec.Imports) > 0 {
		for name := range rec.Bindings {
			t.aliasLike[name] = true
		}
	}

	// Ownership transfer: a binding this execution re-introduced now belongs
	// here, not to whichever cell defined it earlier. Keeps every live
	// binding attributed to exactly one cell.
	for name := range rec.Bindings {
		for id, other := range t.cells {
			if id == cellID || !other.Bindings[name] {
				continue
			}
			delete(other.Bindings, name)
			if len(other.Bindings) == 0 {
				delete(t.snapshots, id)
			}
			if other.empty() {
				delete(t.cells, id)
			}
		}
	}

	if rec.empty() {
		delete(t.cells, cellID)
		delete(t.snapshots, cellID)
		return nil
	}
	t.cells[cellID] = rec

	// The snapshot is only kept while the cell has tracked bindings.
	if len(rec.Bindings) == 0 {
		delete(t.snapshots, cellID)
	}
	return nil
}

// ForceCleanup drops every binding cellID introduced regardless of
// cross-cell ownership and protection. Names starting with an underscore
// are still never touched. Session-reset path only.
func (t *Tracker) ForceCleanup(cellID string, ns Namespace, reg *widget.Registry) error {
	rec, ok := t.cells[cellID]
	if !ok {
		return fmt.Errorf("cell %s is not tracked", cellID)
	}

	for name := range rec.Bindings {
		if strings.HasPrefix(name, "_") {
			continue
		}
		ns.Drop(name)
	}
	for id := range rec.Widgets {
		if !t.ownedElsewhere(cellID, widgetsOf, id) {
			reg.Release(id)
		}
	}

	delete(t.cells, cellID)
	delete(t.snapshots, cellID)
	return nil
}

func bindingsOf(r *Record) map[string]bool { return r.Bindings }
func widgetsOf(r *Record) map[string]bool  { return r.Widgets }
