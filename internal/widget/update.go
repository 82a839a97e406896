package widget

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrNotFound is returned when an update names a widget the registry does
// not hold.
var ErrNotFound = errors.New("widget not found")

// UpdateValue applies a raw client value to the widget. The raw payload is
// parsed as JSON when possible, coerced to the widget's declared kind, and
// repaired into its declared constraints. repaired reports whether the
// stored value differs from what the client sent; the stored value is
// always the repaired one.
func (r *Registry) UpdateValue(id string, raw string) (repaired bool, err error) {
	e, ok := r.entries[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	var parsed any
	if jerr := json.Unmarshal([]byte(raw), &parsed); jerr != nil {
		parsed = raw
	}

	value, coerceRepaired := coerceValue(e.Kind, parsed, e.Value)
	value, constraintRepaired := repairValue(e.Kind, e.Properties, value)
	repaired = coerceRepaired || constraintRepaired

	if e.Object != nil {
		if serr := e.Object.SetValue(value); serr != nil {
			return repaired, fmt.Errorf("failed to apply value to widget %s: %w", id, serr)
		}
	}
	e.Value = value
	r.markDependents(id)
	return repaired, nil
}

// coerceValue forces v into the value shape the widget kind declares.
// Unconvertible payloads fall back to the previous value.
func coerceValue(kind string, v, previous any) (any, bool) {
	switch kind {
	case "number", "slider":
		if f, ok := asFloat(v); ok {
			return f, false
		}
		return previous, true

	case "checkbox":
		if b, ok := asBool(v); ok {
			return b, false
		}
		return previous, true

	case "dropdown", "radio", "select":
		if s, ok := v.(string); ok {
			return s, false
		}
		if v == nil {
			return nil, false
		}
		return fmt.Sprintf("%v", v), true

	case "multiselect":
		if list, ok := v.([]any); ok {
			return list, false
		}
		if v == nil {
			return []any{}, true
		}
		// Singletons are wrapped rather than rejected.
		return []any{v}, true

	case "range_slider":
		if list, ok := v.([]any); ok && len(list) == 2 {
			lo, okLo := asFloat(list[0])
			hi, okHi := asFloat(list[1])
			if okLo && okHi {
				if lo > hi {
					lo, hi = hi, lo
					return []any{lo, hi}, true
				}
				return []any{lo, hi}, false
			}
		}
		return []any{float64(0), float64(100)}, true

	default:
		// text, button
		if s, ok := v.(string); ok {
			return s, false
		}
		return fmt.Sprintf("%v", v), true
	}
}

// repairValue clamps, snaps, and substitutes until the value satisfies the
// widget's declared constraints.
func repairValue(kind string, props map[string]any, v any) (any, bool) {
	switch kind {
	case "number", "slider":
		f, ok := asFloat(v)
		if !ok {
			return v, false
		}
		snapped, changed := snapNumeric(props, f)
		return snapped, changed

	case "range_slider":
		pair, ok := v.([]any)
		if !ok || len(pair) != 2 {
			return v, false
		}
		lo, _ := asFloat(pair[0])
		hi, _ := asFloat(pair[1])
		newLo, changedLo := snapNumeric(props, lo)
		newHi, changedHi := snapNumeric(props, hi)
		return []any{newLo, newHi}, changedLo || changedHi

	case "dropdown", "radio", "select":
		opts := propOptions(props)
		if len(opts) == 0 || v == nil {
			return v, false
		}
		for _, opt := range opts {
			if opt == v {
				return v, false
			}
		}
		return opts[0], true

	case "multiselect":
		list, ok := v.([]any)
		if !ok {
			return v, false
		}
		opts := propOptions(props)
		if len(opts) == 0 {
			return list, false
		}
		kept := make([]any, 0, len(list))
		for _, item := range list {
			for _, opt := range opts {
				if opt == item {
					kept = append(kept, item)
					break
				}
			}
		}
		return kept, len(kept) != len(list)

	case "text":
		s, ok := v.(string)
		if !ok {
			return v, false
		}
		if max, has := propInt(props, "max_length"); has && max > 0 && len(s) > max {
			return s[:max], true
		}
		return s, false

	default:
		return v, false
	}
}

// snapNumeric clamps f into [min, max] and snaps it onto the step grid
// anchored at min.
func snapNumeric(props map[string]any, f float64) (float64, bool) {
	orig := f
	min, hasMin := propFloat(props, "min")
	max, hasMax := propFloat(props, "max")
	step, hasStep := propFloat(props, "step")

	if hasStep && step > 0 {
		anchor := 0.0
		if hasMin {
			anchor = min
		}
		steps := (f - anchor) / step
		f = anchor + float64(int64(steps+0.5*sign(steps)))*step
	}
	if hasMin && f < min {
		f = min
	}
	if hasMax && f > max {
		f = max
	}
	return f, f != orig
}

func sign(f float64) float64 {
	if f < 0 {
		return -1
	}
	return 1
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func asBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch b {
		case "true", "True", "1":
			return true, true
		case "false", "False", "0":
			return false, true
		}
	case float64:
		return b != 0, true
	}
	return false, false
}

func propFloat(props map[string]any, key string) (float64, bool) {
	v, ok := props[key]
	if !ok {
		return 0, false
	}
	return asFloat(v)
}

func propInt(props map[string]any, key string) (int, bool) {
	f, ok := propFloat(props, key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func propOptions(props map[string]any) []any {
	v, ok := props["options"]
	if !ok {
		return nil
	}
	opts, ok := v.([]any)
	if !ok {
		return nil
	}
	return opts
}
