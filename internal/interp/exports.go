package interp

import (
	"reflect"

	"cellexec/pkg/charts"
	"cellexec/pkg/frames"
	"cellexec/pkg/nbsdk"
	"cellexec/pkg/ui"
)

// Exports maps import paths (keyed "path/basename", yaegi convention) to
// the symbols cells may reach under them.
type Exports map[string]map[string]reflect.Value

// SDKExports builds the per-session symbol table for the cell-visible SDK
// packages. The notebook handle and the figure constructors close over
// session state, so the table is rebuilt for every session.
func SDKExports(handle *nbsdk.Handle, figures *charts.Registry) Exports {
	return Exports{
		"ui/ui": {
			"Slider":      reflect.ValueOf(ui.NewSlider),
			"RangeSlider": reflect.ValueOf(ui.NewRangeSlider),
			"Number":      reflect.ValueOf(ui.NewNumber),
			"Text":        reflect.ValueOf(ui.NewText),
			"Checkbox":    reflect.ValueOf(ui.NewCheckbox),
			"Dropdown":    reflect.ValueOf(ui.NewDropdown),
			"Select":      reflect.ValueOf(ui.NewSelect),
			"Radio":       reflect.ValueOf(ui.NewRadio),
			"Multiselect": reflect.ValueOf(ui.NewMultiselect),
			"Button":      reflect.ValueOf(ui.NewButton),
		},
		"charts/charts": {
			// New is bound to the session figure registry so every figure a
			// cell creates is tracked for the post-execution scan.
			"New":    reflect.ValueOf(figures.New),
			"Figure": reflect.ValueOf((*charts.Figure)(nil)),
		},
		"frames/frames": {
			"New":      reflect.ValueOf(frames.New),
			"NewArray": reflect.ValueOf(frames.NewArray),
			"Zeros":    reflect.ValueOf(frames.Zeros),
			"Linspace": reflect.ValueOf(frames.Linspace),
			"Frame":    reflect.ValueOf((*frames.Frame)(nil)),
			"Array":    reflect.ValueOf((*frames.Array)(nil)),
		},
		"nbsdk/nbsdk": {
			"Session":   reflect.ValueOf(handle),
			"HTML":      reflect.ValueOf(nbsdk.HTML),
			"Md":        reflect.ValueOf(nbsdk.Md),
			"Handle":    reflect.ValueOf((*nbsdk.Handle)(nil)),
			"HTMLValue": reflect.ValueOf((*nbsdk.HTMLValue)(nil)),
		},
	}
}
