// Package ui provides the interactive widget constructors available inside
// notebook cells. Every widget exposes its kind, properties, and current
// value, and accepts value writes; the runtime recognises widgets through
// exactly that shape, so the constructors return plain structs with no
// registration side effects.
package ui

import "fmt"

// element carries the shape every widget shares.
type element struct {
	kind  string
	props map[string]any
	value any
}

func (e *element) Kind() string               { return e.kind }
func (e *element) Properties() map[string]any { return e.props }
func (e *element) Value() any                 { return e.value }
func (e *element) setLabel(text string)       { e.props["label"] = text }
func (e *element) String() string             { return fmt.Sprintf("<%s widget>", e.kind) }

// Slider selects one number from an inclusive range.
type Slider struct{ element }

// NewSlider is the factory behind ui.Slider inside cells.
func NewSlider(min, max, step float64) *Slider {
	return &Slider{element{
		kind:  "slider",
		props: map[string]any{"min": min, "max": max, "step": step},
		value: min,
	}}
}

// Label sets the widget label and returns the widget for chaining.
func (s *Slider) Label(text string) *Slider { s.setLabel(text); return s }

func (s *Slider) SetValue(v any) error {
	f, ok := toFloat(v)
	if !ok {
		return fmt.Errorf("slider value must be numeric, got %T", v)
	}
	s.value = f
	return nil
}

// RangeSlider selects a [low, high] pair from an inclusive range.
type RangeSlider struct{ element }

func NewRangeSlider(min, max, step float64) *RangeSlider {
	return &RangeSlider{element{
		kind:  "range_slider",
		props: map[string]any{"min": min, "max": max, "step": step},
		value: []any{min, max},
	}}
}

func (r *RangeSlider) Label(text string) *RangeSlider { r.setLabel(text); return r }

func (r *RangeSlider) SetValue(v any) error {
	pair, ok := v.([]any)
	if !ok || len(pair) != 2 {
		return fmt.Errorf("range_slider value must be a 2-element list, got %T", v)
	}
	lo, okLo := toFloat(pair[0])
	hi, okHi := toFloat(pair[1])
	if !okLo || !okHi {
		return fmt.Errorf("range_slider bounds must be numeric")
	}
	r.value = []any{lo, hi}
	return nil
}

// Number is a free numeric input with optional bounds.
type Number struct{ element }

func NewNumber(min, max, step float64) *Number {
	return &Number{element{
		kind:  "number",
		props: map[string]any{"min": min, "max": max, "step": step},
		value: min,
	}}
}

func (n *Number) Label(text string) *Number { n.setLabel(text); return n }

func (n *Number) SetValue(v any) error {
	f, ok := toFloat(v)
	if !ok {
		return fmt.Errorf("number value must be numeric, got %T", v)
	}
	n.value = f
	return nil
}

// Text is a single-line text input.
type Text struct{ element }

func NewText(placeholder string, maxLength int) *Text {
	return &Text{element{
		kind:  "text",
		props: map[string]any{"placeholder": placeholder, "max_length": maxLength},
		value: "",
	}}
}

func (t *Text) Label(text string) *Text { t.setLabel(text); return t }

func (t *Text) SetValue(v any) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("text value must be a string, got %T", v)
	}
	t.value = s
	return nil
}

// Checkbox is a boolean toggle.
type Checkbox struct{ element }

func NewCheckbox(label string) *Checkbox {
	return &Checkbox{element{
		kind:  "checkbox",
		props: map[string]any{"label": label},
		value: false,
	}}
}

func (c *Checkbox) SetValue(v any) error {
	b, ok := v.(bool)
	if !ok {
		return fmt.Errorf("checkbox value must be a bool, got %T", v)
	}
	c.value = b
	return nil
}

// Dropdown picks one option from a list.
type Dropdown struct{ element }

func NewDropdown(options ...string) *Dropdown {
	return &Dropdown{element{
		kind:  "dropdown",
		props: map[string]any{"options": toAnySlice(options)},
		value: nil,
	}}
}

func (d *Dropdown) Label(text string) *Dropdown { d.setLabel(text); return d }

func (d *Dropdown) SetValue(v any) error { return setEnumValue(&d.element, v) }

// Select is a dropdown rendered as a list box.
type Select struct{ element }

func NewSelect(options ...string) *Select {
	return &Select{element{
		kind:  "select",
		props: map[string]any{"options": toAnySlice(options)},
		value: nil,
	}}
}

func (s *Select) SetValue(v any) error { return setEnumValue(&s.element, v) }

// Radio picks one option via radio buttons.
type Radio struct{ element }

func NewRadio(options ...string) *Radio {
	return &Radio{element{
		kind:  "radio",
		props: map[string]any{"options": toAnySlice(options)},
		value: nil,
	}}
}

func (r *Radio) SetValue(v any) error { return setEnumValue(&r.element, v) }

// Multiselect picks any subset of the options.
type Multiselect struct{ element }

func NewMultiselect(options ...string) *Multiselect {
	return &Multiselect{element{
		kind:  "multiselect",
		props: map[string]any{"options": toAnySlice(options)},
		value: []any{},
	}}
}

func (m *Multiselect) SetValue(v any) error {
	list, ok := v.([]any)
	if !ok {
		return fmt.Errorf("multiselect value must be a list, got %T", v)
	}
	m.value = list
	return nil
}

// Button is a click trigger; its value is the click payload, if any.
type Button struct{ element }

func NewButton(label string) *Button {
	return &Button{element{
		kind:  "button",
		props: map[string]any{"label": label},
		value: nil,
	}}
}

func (b *Button) SetValue(v any) error {
	b.value = v
	return nil
}

func setEnumValue(e *element, v any) error {
	if v == nil {
		e.value = nil
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("%s value must be a string, got %T", e.kind, v)
	}
	e.value = s
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
