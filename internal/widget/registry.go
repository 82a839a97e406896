// Package widget tracks the interactive widgets a session has produced.
// Widgets are recognised by shape, not by concrete type: anything exposing
// kind, properties, value, and a value setter is a widget. Identifiers are
// content hashes over that shape, so re-executing a cell that builds the
// same widget lands on the same id.
package widget

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Widget is the shape the runtime recognises. The SDK constructors in pkg/ui
// satisfy it implicitly.
type Widget interface {
	Kind() string
	Properties() map[string]any
	Value() any
	SetValue(any) error
}

// Entry is the registry's record of one widget.
type Entry struct {
	ID          string
	Kind        string
	Properties  map[string]any
	Value       any
	Object      Widget
	DependsOn   []string
	Dependents  []string
	NeedsUpdate bool
}

// Registry holds a session's widgets. It is not internally locked; the
// owning session serialises access.
type Registry struct {
	entries map[string]*Entry
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Register assigns w its stable id, inserting a new entry or refreshing the
// object reference of an existing one.
func (r *Registry) Register(w Widget) string {
	kind := w.Kind()
	props := w.Properties()
	value := w.Value()
	if value == nil {
		value = DefaultValue(kind)
	}

	id := hashID(kind, props, value)
	if e, ok := r.entries[id]; ok {
		e.Object = w
		return id
	}

	r.entries[id] = &Entry{
		ID:         id,
		Kind:       kind,
		Properties: props,
		Value:      value,
		Object:     w,
	}
	r.order = append(r.order, id)
	return id
}

// Get returns the entry for id.
func (r *Registry) Get(id string) (*Entry, bool) {
	e, ok := r.entries[id]
	return e, ok
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.entries[id]
	return ok
}

// Release removes id and detaches it from the dependency graph.
func (r *Registry) Release(id string) {
	e, ok := r.entries[id]
	if !ok {
		return
	}
	for _, dep := range e.DependsOn {
		if d, ok := r.entries[dep]; ok {
			d.Dependents = removeString(d.Dependents, id)
		}
	}
	for _, dep := range e.Dependents {
		if d, ok := r.entries[dep]; ok {
			d.DependsOn = removeString(d.DependsOn, id)
		}
	}
	delete(r.entries, id)
	r.order = removeString(r.order, id)
}

// Declare records explicit dependency edges: id re-evaluates when any of
// dependsOn changes.
func (r *Registry) Declare(id string, dependsOn ...string) error {
	e, ok := r.entries[id]
	if !ok {
		return fmt.Errorf("widget %s not found", id)
	}
	for _, dep := range dependsOn {
		d, ok := r.entries[dep]
		if !ok {
			return fmt.Errorf("widget %s not found", dep)
		}
		if !containsString(e.DependsOn, dep) {
			e.DependsOn = append(e.DependsOn, dep)
		}
		if !containsString(d.Dependents, id) {
			d.Dependents = append(d.Dependents, id)
		}
	}
	return nil
}

// MarkUpdated clears the needs-update flag after a dependent cell re-ran.
func (r *Registry) MarkUpdated(id string) {
	if e, ok := r.entries[id]; ok {
		e.NeedsUpdate = false
	}
}

// markDependents flags every transitive dependent of id for re-evaluation.
func (r *Registry) markDependents(id string) {
	visited := map[string]bool{id: true}
	queue := append([]string(nil), r.entries[id].Dependents...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if visited[next] {
			continue
		}
		visited[next] = true
		if e, ok := r.entries[next]; ok {
			e.NeedsUpdate = true
			queue = append(queue, e.Dependents...)
		}
	}
}

// descriptor is the wire form of a widget.
type descriptor struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Value       any            `json:"value"`
	Properties  map[string]any `json:"properties"`
	NeedsUpdate bool           `json:"needs_update,omitempty"`
}

// Descriptor returns the JSON descriptor for id.
func (r *Registry) Descriptor(id string) (string, error) {
	e, ok := r.entries[id]
	if !ok {
		return "", fmt.Errorf("widget %s not found", id)
	}
	b, err := json.Marshal(descriptor{
		ID:          e.ID,
		Type:        e.Kind,
		Value:       e.Value,
		Properties:  e.Properties,
		NeedsUpdate: e.NeedsUpdate,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode widget %s: %w", id, err)
	}
	return string(b), nil
}

// Snapshot returns every widget's descriptor, keyed by id, in registration
// order under the hood (map iteration order is the caller's concern).
func (r *Registry) Snapshot() map[string]string {
	out := make(map[string]string, len(r.order))
	for _, id := range r.order {
		if desc, err := r.Descriptor(id); err == nil {
			out[id] = desc
		}
	}
	return out
}

// IDs returns the registered ids in registration order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// Len returns the number of registered widgets.
func (r *Registry) Len() int { return len(r.entries) }

// DefaultValue is the per-kind value used when a widget carries none.
func DefaultValue(kind string) any {
	switch kind {
	case "slider", "number":
		return float64(0)
	case "range_slider":
		return []any{float64(0), float64(100)}
	case "text":
		return ""
	case "checkbox":
		return false
	case "multiselect":
		return []any{}
	default:
		// dropdown, select, radio, button
		return nil
	}
}

// hashID canonicalises (kind, properties, value) and hashes it. Map keys are
// sorted by the JSON encoder, which is what makes the id stable.
func hashID(kind string, props map[string]any, value any) string {
	payload, err := json.Marshal([]any{kind, props, value})
	if err != nil {
		// Unencodable widget shapes still deserve a stable-ish id.
		payload = []byte(fmt.Sprintf("%s|%v|%v", kind, props, value))
	}
	sum := sha256.Sum256(payload)
	return "widget_" + hex.EncodeToString(sum[:])[:8]
}

func removeString(ss []string, s string) []string {
	out := ss[:0]
	for _, v := range ss {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
