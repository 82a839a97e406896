// Package interp embeds the yaegi Go interpreter as the per-session
// evaluation engine. Each session owns one Interp: bindings persist across
// Eval calls and may be redeclared, which is what cell re-execution needs.
// Only symbols for allowed stdlib packages are loaded, so an import that
// slips past the validator still resolves to nothing.
package interp

import (
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// SwitchWriter forwards writes to a swappable target. The session's stream
// writers are created once with the interpreter; the executor swaps capture
// buffers in per execution and always restores the previous target.
type SwitchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewSwitchWriter creates a writer that discards until a target is swapped
// in.
func NewSwitchWriter() *SwitchWriter {
	return &SwitchWriter{w: io.Discard}
}

// Swap installs w as the target and returns the previous one.
func (s *SwitchWriter) Swap(w io.Writer) io.Writer {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.w
	s.w = w
	return prev
}

func (s *SwitchWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	w := s.w
	s.mu.Unlock()
	return w.Write(p)
}

// Interp is one session's interpreter.
type Interp struct {
	eng    *interp.Interpreter
	stdout *SwitchWriter
	stderr *SwitchWriter

	// imported records which import specs this interpreter has already
	// evaluated. The engine rejects a repeated import of the same path as a
	// redeclaration, so re-executed cells must not resubmit their preludes.
	imported map[string]bool
}

// New creates an interpreter with symbols loaded for exactly the allowed
// stdlib import paths and the given SDK exports.
func New(allowedImports []string, exports Exports) (*Interp, error) {
	it := &Interp{
		stdout:   NewSwitchWriter(),
		stderr:   NewSwitchWriter(),
		imported: make(map[string]bool),
	}
	it.eng = interp.New(interp.Options{
		Stdout: it.stdout,
		Stderr: it.stderr,
	})

	if err := it.eng.Use(filterStdlib(allowedImports)); err != nil {
		return nil, fmt.Errorf("failed to load stdlib symbols: %w", err)
	}
	if len(exports) > 0 {
		if err := it.eng.Use(interp.Exports(exports)); err != nil {
			return nil, fmt.Errorf("failed to load SDK symbols: %w", err)
		}
	}
	return it, nil
}

// Eval evaluates src in the persistent session scope and returns the value
// of its final statement. Panics raised by interpreted code are recovered
// into errors.
func (it *Interp) Eval(src string) (v reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return it.eng.Eval(src)
}

// Import evaluates one import declaration per spec, skipping specs already
// seen in this session. Each declaration is evaluated on its own: the
// engine parses import-leading source as a declarations-only file, so an
// import can never share an Eval with statements. A redeclaration error
// from the engine means the path is already loaded and counts as success.
func (it *Interp) Import(specs []string) error {
	for _, spec := range specs {
		if it.imported[spec] {
			continue
		}
		if _, err := it.Eval("import " + spec); err != nil {
			if !strings.Contains(err.Error(), "redeclared") {
				return err
			}
		}
		it.imported[spec] = true
	}
	return nil
}

// Bootstrap binds the notebook handle as the namespace root `nb`. Runs
// before any cell.
func (it *Interp) Bootstrap() error {
	if err := it.Import([]string{`"nbsdk"`}); err != nil {
		return err
	}
	_, err := it.Eval("nb := nbsdk.Session\n_ = nb\n")
	return err
}

// Globals returns the interpreter's current global bindings.
func (it *Interp) Globals() map[string]reflect.Value {
	return it.eng.Globals()
}

// Stdout returns the switchable standard output writer.
func (it *Interp) Stdout() *SwitchWriter { return it.stdout }

// Stderr returns the switchable standard error writer.
func (it *Interp) Stderr() *SwitchWriter { return it.stderr }

// filterStdlib narrows yaegi's stdlib symbol table to the allowed import
// paths. Symbol keys are "path/basename" ("encoding/json/json").
func filterStdlib(allowed []string) interp.Exports {
	want := make(map[string]bool, len(allowed))
	for _, p := range allowed {
		base := p
		if i := strings.LastIndexByte(p, '/'); i >= 0 {
			base = p[i+1:]
		}
		want[p+"/"+base] = true
	}

	out := make(interp.Exports)
	for key, symbols := range stdlib.Symbols {
		if want[key] {
			out[key] = symbols
		}
	}
	return out
}
