package output

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cellexec/internal/config"
	"cellexec/internal/widget"
	"cellexec/pkg/charts"
	"cellexec/pkg/frames"
	"cellexec/pkg/nbsdk"
	"cellexec/pkg/ui"
)

func newTestMarshaller() (*Marshaller, *CellContext) {
	m := NewMarshaller(config.DefaultConfig().Output)
	return m, NewCellContext(widget.NewRegistry())
}

func TestMarshal_Nil(t *testing.T) {
	m, cell := newTestMarshaller()

	out := m.Marshal(nil, cell)
	assert.Equal(t, ExpressionResult, out.Kind)
	assert.Equal(t, "None", out.Content)
	assert.Equal(t, "text/plain", out.MimeType)

	var typedNil *frames.Frame
	out = m.Marshal(typedNil, cell)
	assert.Equal(t, "None", out.Content)
}

func TestMarshal_Scalar(t *testing.T) {
	m, cell := newTestMarshaller()

	out := m.Marshal(3, cell)
	assert.Equal(t, ExpressionResult, out.Kind)
	assert.Equal(t, "3", out.Content)
	assert.Equal(t, "text/plain", out.MimeType)
	assert.Equal(t, TextData, out.DataType)
}

func TestMarshal_SliceAsJSON(t *testing.T) {
	m, cell := newTestMarshaller()

	out := m.Marshal([]any{1, 2, 3}, cell)
	assert.Equal(t, ExpressionResult, out.Kind)
	assert.Equal(t, "application/json", out.MimeType)
	assert.Equal(t, JSONData, out.DataType)
	assert.Equal(t, "[\n  1,\n  2,\n  3\n]", out.Content)
}

func TestMarshal_MapWithUnencodableLeaf(t *testing.T) {
	m, cell := newTestMarshaller()

	out := m.Marshal(map[string]any{"fn": func() {}, "n": 1}, cell)
	assert.Equal(t, "application/json", out.MimeType)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out.Content), &got))
	assert.Equal(t, float64(1), got["n"])
	assert.Contains(t, got["fn"], "func")
}

func TestMarshal_Widget(t *testing.T) {
	m, cell := newTestMarshaller()
	w := ui.NewSlider(0, 100, 1)

	out := m.Marshal(w, cell)
	require.Equal(t, Widget, out.Kind)
	assert.Equal(t, WidgetData, out.DataType)

	var desc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out.Content), &desc))
	assert.Equal(t, "slider", desc["type"])
	assert.Equal(t, out.Metadata["widget_id"], desc["id"])
	assert.True(t, cell.EmittedIDs[out.Metadata["widget_id"]])
}

func TestMarshal_WidgetDoubleRenderSuppressed(t *testing.T) {
	m, cell := newTestMarshaller()
	w := ui.NewSlider(0, 100, 1)

	first := m.Marshal(w, cell)
	second := m.Marshal(w, cell)

	assert.Equal(t, Widget, first.Kind)
	assert.Equal(t, ExpressionResult, second.Kind)
	assert.Contains(t, second.Content, first.Metadata["widget_id"])
}

func TestMarshal_HTMLRenderer(t *testing.T) {
	m, cell := newTestMarshaller()

	out := m.Marshal(nbsdk.HTML("<b>hi</b>"), cell)
	assert.Equal(t, ExpressionResult, out.Kind)
	assert.Equal(t, "text/html", out.MimeType)
	assert.Equal(t, HTMLData, out.DataType)
	assert.Equal(t, "<b>hi</b>", out.Content)
}

func TestMarshal_FrameRendersHTML(t *testing.T) {
	m, cell := newTestMarshaller()
	f := frames.New("a", "b").Append(1, 2).Append(3, 4)

	out := m.Marshal(f, cell)
	assert.Equal(t, "text/html", out.MimeType)
	assert.Contains(t, out.Content, "<table")
	assert.Contains(t, out.Content, "<th>a</th>")
}

func TestMarshal_NumericArray(t *testing.T) {
	m, cell := newTestMarshaller()

	t.Run("small arrays in full", func(t *testing.T) {
		out := m.Marshal(frames.NewArray(1, 2, 3), cell)
		assert.Contains(t, out.Content, "shape=[3] dtype=float64")
		assert.Contains(t, out.Content, "[1 2 3]")
	})

	t.Run("large arrays summarised", func(t *testing.T) {
		out := m.Marshal(frames.Linspace(0, 1, 500), cell)
		assert.Contains(t, out.Content, "shape=[500]")
		assert.Contains(t, out.Content, "...")
		assert.Less(t, len(out.Content), 500)
	})
}

func TestMarshal_ArraySummaryLowThreshold(t *testing.T) {
	cfg := config.DefaultConfig().Output
	cfg.ArraySummaryThreshold = 3
	m := NewMarshaller(cfg)
	cell := NewCellContext(widget.NewRegistry())

	// Arrays just past a low threshold are shorter than the default summary
	// window; the edges shrink to fit.
	out := m.Marshal(frames.NewArray(1, 2, 3, 4), cell)
	assert.Contains(t, out.Content, "shape=[4]")
	assert.Contains(t, out.Content, "1 2")
	assert.Contains(t, out.Content, "3 4")

	out = m.Marshal(frames.NewArray(1, 2, 3, 4, 5), cell)
	assert.Contains(t, out.Content, "shape=[5]")
	assert.Contains(t, out.Content, "(1 elements)")
}

func TestMarshal_Figure(t *testing.T) {
	m, cell := newTestMarshaller()
	reg := charts.NewRegistry(64, 48)
	fig := reg.New().Line([]float64{0, 1, 2}, []float64{0, 1, 4})

	out := m.Marshal(fig, cell)
	assert.Equal(t, ExpressionResult, out.Kind)
	assert.Equal(t, "image/png", out.MimeType)
	assert.Equal(t, ImageData, out.DataType)
	assert.True(t, strings.HasPrefix(out.Content, "data:image/png;base64,"))
	assert.NotEmpty(t, out.Data)
	assert.Equal(t, Figure(fig), cell.EmittedFigure)
}

func TestFigureScan_EmitsAndCloses(t *testing.T) {
	m, cell := newTestMarshaller()
	reg := charts.NewRegistry(64, 48)

	plotted := reg.New().Line([]float64{0, 1}, []float64{1, 0})
	empty := reg.New()

	outs := m.FigureScan(reg, cell)
	require.Len(t, outs, 1)
	assert.Equal(t, Plot, outs[0].Kind)
	assert.False(t, plotted.HasContent(), "figure closed after capture")
	assert.False(t, empty.HasContent())
	assert.Empty(t, reg.Open())
}

func TestFigureScan_SkipsEmittedResultFigure(t *testing.T) {
	m, cell := newTestMarshaller()
	reg := charts.NewRegistry(64, 48)
	fig := reg.New().Line([]float64{0, 1}, []float64{1, 0})

	m.Marshal(fig, cell)
	outs := m.FigureScan(reg, cell)
	assert.Empty(t, outs, "result figure must not be emitted twice")
}

func TestTruncate_CapsOversizedContent(t *testing.T) {
	cfg := config.DefaultConfig().Output
	cfg.MaxOutputBytes = 16
	m := NewMarshaller(cfg)
	cell := NewCellContext(widget.NewRegistry())

	out := m.Marshal(strings.Repeat("x", 100), cell)
	assert.Contains(t, out.Content, "[truncated]")
	assert.Equal(t, "true", out.Metadata["truncated"])
}
