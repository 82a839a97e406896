package frames

import (
	"fmt"
	"math"
	"strings"
)

// Array is a float64 vector or matrix with shape metadata.
type Array struct {
	shape []int
	data  []float64
}

// NewArray creates a one-dimensional array from the given values.
func NewArray(values ...float64) *Array {
	data := make([]float64, len(values))
	copy(data, values)
	return &Array{shape: []int{len(values)}, data: data}
}

// Zeros creates an array of the given shape filled with zeros.
func Zeros(shape ...int) *Array {
	n := 1
	for _, d := range shape {
		if d < 0 {
			panic("frames: negative dimension")
		}
		n *= d
	}
	s := make([]int, len(shape))
	copy(s, shape)
	return &Array{shape: s, data: make([]float64, n)}
}

// Linspace creates n evenly spaced values from start to stop inclusive.
func Linspace(start, stop float64, n int) *Array {
	if n < 2 {
		return NewArray(start)
	}
	data := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range data {
		data[i] = start + float64(i)*step
	}
	return &Array{shape: []int{n}, data: data}
}

// Reshape returns the same data under a new shape; the element count must
// match.
func (a *Array) Reshape(shape ...int) *Array {
	n := 1
	for _, d := range shape {
		n *= d
	}
	if n != len(a.data) {
		panic(fmt.Sprintf("frames: cannot reshape %d elements into %v", len(a.data), shape))
	}
	s := make([]int, len(shape))
	copy(s, shape)
	return &Array{shape: s, data: a.data}
}

// Shape returns the array dimensions.
func (a *Array) Shape() []int {
	out := make([]int, len(a.shape))
	copy(out, a.shape)
	return out
}

// DType names the element type.
func (a *Array) DType() string { return "float64" }

// Elements returns the flat element slice.
func (a *Array) Elements() []float64 {
	out := make([]float64, len(a.data))
	copy(out, a.data)
	return out
}

// Len returns the element count.
func (a *Array) Len() int { return len(a.data) }

// Apply returns a new array with fn applied element-wise.
func (a *Array) Apply(fn func(float64) float64) *Array {
	out := make([]float64, len(a.data))
	for i, v := range a.data {
		out[i] = fn(v)
	}
	s := make([]int, len(a.shape))
	copy(s, a.shape)
	return &Array{shape: s, data: out}
}

// Scale multiplies every element by k.
func (a *Array) Scale(k float64) *Array {
	return a.Apply(func(v float64) float64 { return v * k })
}

// Add adds k to every element.
func (a *Array) Add(k float64) *Array {
	return a.Apply(func(v float64) float64 { return v + k })
}

// Sum returns the element sum.
func (a *Array) Sum() float64 {
	var s float64
	for _, v := range a.data {
		s += v
	}
	return s
}

// Mean returns the element mean, NaN when empty.
func (a *Array) Mean() float64 {
	if len(a.data) == 0 {
		return math.NaN()
	}
	return a.Sum() / float64(len(a.data))
}

// Max returns the largest element, -Inf when empty.
func (a *Array) Max() float64 {
	m := math.Inf(-1)
	for _, v := range a.data {
		m = math.Max(m, v)
	}
	return m
}

// Min returns the smallest element, +Inf when empty.
func (a *Array) Min() float64 {
	m := math.Inf(1)
	for _, v := range a.data {
		m = math.Min(m, v)
	}
	return m
}

func (a *Array) String() string {
	parts := make([]string, len(a.data))
	for i, v := range a.data {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return fmt.Sprintf("array(shape=%v, [%s])", a.shape, strings.Join(parts, ", "))
}
