package frames

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame_ShapeAndColumns(t *testing.T) {
	f := New("name", "score").
		Append("ada", 95).
		Append("grace", 98)

	rows, cols := f.Shape()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 2, cols)
	assert.Equal(t, []string{"name", "score"}, f.Columns())
	assert.Equal(t, []any{95, 98}, f.Column("score"))
	assert.Nil(t, f.Column("missing"))
}

func TestFrame_AppendArityPanics(t *testing.T) {
	f := New("a", "b")
	assert.Panics(t, func() { f.Append(1) })
}

func TestFrame_Head(t *testing.T) {
	f := New("n")
	for i := 0; i < 5; i++ {
		f.Append(i)
	}

	h := f.Head(2)
	rows, _ := h.Shape()
	assert.Equal(t, 2, rows)

	h = f.Head(100)
	rows, _ = h.Shape()
	assert.Equal(t, 5, rows, "head clamps to row count")
}

func TestFrame_RenderHTMLEscapes(t *testing.T) {
	f := New("col<1>").Append("<script>")
	out := f.RenderHTML()
	assert.Contains(t, out, "col&lt;1&gt;")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.NotContains(t, out, "<script>")
}

func TestArray_Construction(t *testing.T) {
	a := NewArray(1, 2, 3)
	assert.Equal(t, []int{3}, a.Shape())
	assert.Equal(t, "float64", a.DType())
	assert.Equal(t, []float64{1, 2, 3}, a.Elements())

	z := Zeros(2, 3)
	assert.Equal(t, []int{2, 3}, z.Shape())
	assert.Equal(t, 6, z.Len())
}

func TestArray_Linspace(t *testing.T) {
	a := Linspace(0, 1, 5)
	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75, 1}, a.Elements())

	single := Linspace(3, 9, 1)
	assert.Equal(t, []float64{3}, single.Elements())
}

func TestArray_Reshape(t *testing.T) {
	a := NewArray(1, 2, 3, 4)
	m := a.Reshape(2, 2)
	assert.Equal(t, []int{2, 2}, m.Shape())
	assert.Panics(t, func() { a.Reshape(3, 3) })
}

func TestArray_Math(t *testing.T) {
	a := NewArray(1, 2, 3)

	assert.Equal(t, 6.0, a.Sum())
	assert.Equal(t, 2.0, a.Mean())
	assert.Equal(t, 3.0, a.Max())
	assert.Equal(t, 1.0, a.Min())
	assert.Equal(t, []float64{2, 4, 6}, a.Scale(2).Elements())
	assert.Equal(t, []float64{2, 3, 4}, a.Add(1).Elements())
	assert.Equal(t, []float64{1, 2, 3}, a.Elements(), "operations do not mutate")

	require.True(t, math.IsNaN(NewArray().Mean()))
}
