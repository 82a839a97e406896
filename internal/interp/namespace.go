package interp

import "reflect"

// Namespace is the session's authoritative view of its global bindings. The
// interpreter cannot drop a binding from its own scope, so retraction is
// modelled here: a dropped name is hidden while its interpreter-side value
// keeps the identity it had at drop time, and resurfaces the moment a cell
// rebinds it. Every externally visible namespace operation reads this view,
// never the interpreter scope directly.
type Namespace struct {
	it     *Interp
	view   map[string]reflect.Value
	hidden map[string]reflect.Value
}

// NewNamespace creates the view over it.
func NewNamespace(it *Interp) *Namespace {
	return &Namespace{
		it:     it,
		view:   make(map[string]reflect.Value),
		hidden: make(map[string]reflect.Value),
	}
}

// Refresh rebuilds the view from the interpreter globals, keeping dropped
// names hidden until their value identity changes.
func (n *Namespace) Refresh() {
	globals := n.it.Globals()
	view := make(map[string]reflect.Value, len(globals))
	for name, val := range globals {
		if old, dropped := n.hidden[name]; dropped {
			if SameIdentity(old, val) {
				continue
			}
			delete(n.hidden, name)
		}
		view[name] = val
	}
	n.view = view
}

// Snapshot returns a shallow reference copy of the view. Values are never
// deep-copied; identity is all change detection needs.
func (n *Namespace) Snapshot() map[string]reflect.Value {
	out := make(map[string]reflect.Value, len(n.view))
	for name, val := range n.view {
		out[name] = val
	}
	return out
}

// Drop hides name from the view at its current identity.
func (n *Namespace) Drop(name string) {
	val, ok := n.view[name]
	if !ok {
		return
	}
	n.hidden[name] = val
	delete(n.view, name)
}

// Unhide forgets the drop for the given names. The executor calls it for a
// cell's assigned names after a successful run: a rebound scalar can carry
// the same identity as the dropped value, which identity comparison alone
// cannot tell from a stale one.
func (n *Namespace) Unhide(names ...string) {
	for _, name := range names {
		delete(n.hidden, name)
	}
}

// Get returns the value bound to name in the view.
func (n *Namespace) Get(name string) (reflect.Value, bool) {
	v, ok := n.view[name]
	return v, ok
}

// Has reports whether name is live in the view.
func (n *Namespace) Has(name string) bool {
	_, ok := n.view[name]
	return ok
}

// Names returns the live binding names, unordered.
func (n *Namespace) Names() []string {
	out := make([]string, 0, len(n.view))
	for name := range n.view {
		out = append(out, name)
	}
	return out
}

// Len returns the number of live bindings.
func (n *Namespace) Len() int { return len(n.view) }

// SameIdentity reports whether two values are the same binding target.
// Reference kinds compare by pointer, comparable scalars by equality;
// incomparable values are treated as changed. Cyclic values are safe: there
// is no traversal.
func SameIdentity(a, b reflect.Value) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()

	if a.Kind() == reflect.Interface {
		a = a.Elem()
	}
	if b.Kind() == reflect.Interface {
		b = b.Elem()
	}
	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid()
	}
	if a.Kind() != b.Kind() || a.Type() != b.Type() {
		return false
	}

	switch a.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return a.Pointer() == b.Pointer()
	case reflect.Slice:
		return a.Pointer() == b.Pointer() && a.Len() == b.Len()
	default:
		if a.Comparable() && b.Comparable() {
			return a.Interface() == b.Interface()
		}
		return false
	}
}
