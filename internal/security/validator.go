// Package security is the static policy gate for submitted cells. It rejects
// obviously disallowed programs before they reach the interpreter: oversized
// sources, unparseable sources, imports outside the allowlist, and dynamic
// evaluation primitives. It inspects import paths and direct call callees
// only; the interpreter's restricted symbol table is the second fence.
package security

import (
	"fmt"
	"strings"
	"sync/atomic"

	"cellexec/internal/cellparse"
	"cellexec/internal/config"
)

// Validator checks cell source against the configured policy. One validator
// serves every session; the length cap is atomic so config reloads can
// adjust it live.
type Validator struct {
	maxCodeLength atomic.Int64
	allowed       map[string]bool
	blockedRoots  map[string]bool
}

// NewValidator builds a validator from the security configuration.
func NewValidator(cfg config.SecurityConfig) *Validator {
	v := &Validator{
		allowed:      make(map[string]bool, len(cfg.AllowedImports)),
		blockedRoots: make(map[string]bool, len(cfg.BlockedImports)),
	}
	v.maxCodeLength.Store(int64(cfg.MaxCodeLength))
	for _, p := range cfg.AllowedImports {
		v.allowed[p] = true
	}
	for _, p := range cfg.BlockedImports {
		v.blockedRoots[rootOf(p)] = true
	}
	return v
}

// Validate checks source and returns its analysis for reuse. A non-nil error
// is the user-facing rejection reason; checks run in a fixed order and the
// first hit wins.
func (v *Validator) Validate(source string) (*cellparse.Analysis, error) {
	if max := int(v.maxCodeLength.Load()); len(source) > max {
		return nil, fmt.Errorf("code exceeds maximum length of %d characters", max)
	}

	analysis, err := cellparse.Analyze(source)
	if err != nil {
		return nil, err
	}

	for _, path := range analysis.ImportPaths {
		if v.blockedRoots[rootOf(path)] {
			return nil, fmt.Errorf("disallowed import: %s", path)
		}
	}
	for _, path := range analysis.ImportPaths {
		if !v.allowed[path] {
			return nil, fmt.Errorf("import not permitted: %s", path)
		}
	}

	for _, callee := range []string{"eval", "exec"} {
		if analysis.HasBareCall(callee) {
			return nil, fmt.Errorf("dynamic evaluation is not permitted: %s", callee)
		}
	}

	return analysis, nil
}

// SetMaxCodeLength adjusts the length cap; config reload hook.
func (v *Validator) SetMaxCodeLength(n int) {
	v.maxCodeLength.Store(int64(n))
}

// AllowedImports returns the allowlist, for the interpreter symbol loader.
func (v *Validator) AllowedImports() []string {
	out := make([]string, 0, len(v.allowed))
	for p := range v.allowed {
		out = append(out, p)
	}
	return out
}

func rootOf(path string) string {
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}
