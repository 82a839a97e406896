package output

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"

	"cellexec/internal/config"
	"cellexec/internal/widget"
)

// HTMLRenderer is any value with a rich HTML representation.
type HTMLRenderer interface {
	RenderHTML() string
}

// Tabular is a table-shaped value without its own HTML rendering; it is
// shown as text.
type Tabular interface {
	Shape() (rows, cols int)
	String() string
}

// NumericArray is a numeric vector or matrix with shape metadata.
type NumericArray interface {
	Shape() []int
	DType() string
	Elements() []float64
}

// Figure is a renderable plot.
type Figure interface {
	HasContent() bool
	WritePNG(io.Writer) error
	Close()
}

// CellContext carries per-invocation marshalling state: which widget objects
// and ids this cell already emitted, and whether the expression result was a
// figure (so the post-execution scan skips it).
type CellContext struct {
	Registry *widget.Registry

	seenObjects   map[widget.Widget]bool
	EmittedIDs    map[string]bool
	EmittedFigure Figure
}

// NewCellContext starts marshalling state for one cell invocation.
func NewCellContext(reg *widget.Registry) *CellContext {
	return &CellContext{
		Registry:    reg,
		seenObjects: make(map[widget.Widget]bool),
		EmittedIDs:  make(map[string]bool),
	}
}

// Marshaller converts execution results into outputs.
type Marshaller struct {
	maxBytes         int
	summaryThreshold int
}

// NewMarshaller builds a marshaller from the output configuration.
func NewMarshaller(cfg config.OutputConfig) *Marshaller {
	return &Marshaller{
		maxBytes:         cfg.MaxOutputBytes,
		summaryThreshold: cfg.ArraySummaryThreshold,
	}
}

// Marshal walks the capability ladder and returns the output for v.
func (m *Marshaller) Marshal(v any, cell *CellContext) Output {
	if isNil(v) {
		return Text(ExpressionResult, "None")
	}

	if w, ok := v.(widget.Widget); ok {
		return m.marshalWidget(w, cell)
	}

	if h, ok := v.(HTMLRenderer); ok {
		return m.truncate(Output{
			Kind:     ExpressionResult,
			Content:  h.RenderHTML(),
			MimeType: "text/html",
			DataType: HTMLData,
		})
	}

	if t, ok := v.(Tabular); ok {
		rows, cols := t.Shape()
		out := Text(ExpressionResult, t.String())
		out.Metadata = map[string]string{"shape": fmt.Sprintf("%dx%d", rows, cols)}
		return m.truncate(out)
	}

	if f, ok := v.(Figure); ok {
		return m.marshalFigure(f, cell)
	}

	if a, ok := v.(NumericArray); ok {
		return m.truncate(Text(ExpressionResult, m.renderArray(a)))
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct:
		if content, ok := renderJSON(v); ok {
			return m.truncate(Output{
				Kind:     ExpressionResult,
				Content:  content,
				MimeType: "application/json",
				DataType: JSONData,
			})
		}
	}

	return m.truncate(Text(ExpressionResult, fmt.Sprintf("%v", v)))
}

func (m *Marshaller) marshalWidget(w widget.Widget, cell *CellContext) Output {
	if cell.seenObjects[w] {
		id := cell.Registry.Register(w)
		return Text(ExpressionResult, fmt.Sprintf("<widget %s>", id))
	}
	cell.seenObjects[w] = true

	id := cell.Registry.Register(w)
	cell.EmittedIDs[id] = true

	desc, err := cell.Registry.Descriptor(id)
	if err != nil {
		return Errorf(fmt.Sprintf("failed to describe widget: %v", err))
	}
	return Output{
		Kind:     Widget,
		Content:  desc,
		MimeType: "application/json",
		Metadata: map[string]string{"widget_id": id},
		DataType: WidgetData,
	}
}

func (m *Marshaller) marshalFigure(f Figure, cell *CellContext) Output {
	cell.EmittedFigure = f
	out, err := m.renderFigure(ExpressionResult, f)
	if err != nil {
		return Errorf(fmt.Sprintf("failed to render figure: %v", err))
	}
	return out
}

// renderFigure rasterises f into a PNG data URL output of the given kind.
func (m *Marshaller) renderFigure(kind Kind, f Figure) (Output, error) {
	var buf bytes.Buffer
	if err := f.WritePNG(&buf); err != nil {
		return Output{}, err
	}
	raw := buf.Bytes()
	return m.truncate(Output{
		Kind:     kind,
		Content:  "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw),
		Data:     raw,
		MimeType: "image/png",
		DataType: ImageData,
	}), nil
}

// renderArray formats a numeric array: a shape/dtype header, then the full
// element list or a head/tail summary past the threshold.
func (m *Marshaller) renderArray(a NumericArray) string {
	elems := a.Elements()
	var b strings.Builder
	fmt.Fprintf(&b, "shape=%v dtype=%s\n", a.Shape(), a.DType())

	if len(elems) <= m.summaryThreshold {
		b.WriteString(formatElems(elems))
		return b.String()
	}

	// A low threshold can put summarised arrays below the ten elements the
	// default window assumes; shrink the window so head and tail never
	// overlap.
	edge := 5
	if len(elems) < 2*edge {
		edge = len(elems) / 2
	}
	b.WriteString("[")
	for i := 0; i < edge; i++ {
		fmt.Fprintf(&b, "%g ", elems[i])
	}
	fmt.Fprintf(&b, "... (%d elements) ... ", len(elems)-2*edge)
	for i := len(elems) - edge; i < len(elems); i++ {
		fmt.Fprintf(&b, "%g", elems[i])
		if i < len(elems)-1 {
			b.WriteString(" ")
		}
	}
	b.WriteString("]")
	return b.String()
}

func formatElems(elems []float64) string {
	parts := make([]string, len(elems))
	for i, v := range elems {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// renderJSON encodes v as two-space indented JSON, sanitising leaves JSON
// cannot encode into their %v text.
func renderJSON(v any) (string, bool) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err == nil {
		return string(b), true
	}
	b, err = json.MarshalIndent(sanitize(reflect.ValueOf(v)), "", "  ")
	if err != nil {
		return "", false
	}
	return string(b), true
}

// sanitize rebuilds a container with every non-encodable leaf replaced by
// its text form. Depth is bounded; user containers are shallow in practice
// and cyclic values must not recurse forever.
func sanitize(v reflect.Value) any {
	return sanitizeDepth(v, 0)
}

func sanitizeDepth(v reflect.Value, depth int) any {
	if depth > 8 || !v.IsValid() {
		return fmt.Sprintf("%v", v)
	}
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		return sanitizeDepth(v.Elem(), depth+1)
	case reflect.Slice, reflect.Array:
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			out[i] = sanitizeDepth(v.Index(i), depth+1)
		}
		return out
	case reflect.Map:
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[fmt.Sprintf("%v", iter.Key().Interface())] = sanitizeDepth(iter.Value(), depth+1)
		}
		return out
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return v.Interface()
	case reflect.Func, reflect.Chan:
		return fmt.Sprintf("<%T>", v.Interface())
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}

// truncate caps oversized content with a marker.
func (m *Marshaller) truncate(out Output) Output {
	if m.maxBytes <= 0 {
		return out
	}
	truncated := false
	if len(out.Content) > m.maxBytes {
		out.Content = out.Content[:m.maxBytes] + "... [truncated]"
		truncated = true
	}
	if len(out.Data) > m.maxBytes {
		out.Data = out.Data[:m.maxBytes]
		truncated = true
	}
	if truncated {
		if out.Metadata == nil {
			out.Metadata = make(map[string]string)
		}
		out.Metadata["truncated"] = "true"
	}
	return out
}

// isNil reports whether v is nil, including typed nils behind interfaces.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
