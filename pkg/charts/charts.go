// Package charts provides the plotting surface available inside notebook
// cells. Figures accumulate series and render to PNG on demand; a per-session
// Registry tracks every figure a cell created so the runtime can emit the
// ones user code never explicitly returned.
package charts

import (
	"fmt"
	"sync"
)

type seriesKind int

const (
	lineSeries seriesKind = iota
	scatterSeries
	barSeries
)

type series struct {
	kind  seriesKind
	xs    []float64
	ys    []float64
	label string
}

// Figure is one plot: series plus titles. Methods return the figure so cells
// can chain configuration.
type Figure struct {
	title  string
	xlabel string
	ylabel string
	series []series
	width  int
	height int
	closed bool
}

// Line appends a line series.
func (f *Figure) Line(xs, ys []float64) *Figure {
	f.series = append(f.series, series{kind: lineSeries, xs: xs, ys: ys})
	return f
}

// Scatter appends a point series.
func (f *Figure) Scatter(xs, ys []float64) *Figure {
	f.series = append(f.series, series{kind: scatterSeries, xs: xs, ys: ys})
	return f
}

// Bars appends a bar series; bars are centred on the x values.
func (f *Figure) Bars(xs, ys []float64) *Figure {
	f.series = append(f.series, series{kind: barSeries, xs: xs, ys: ys})
	return f
}

// Title sets the figure title.
func (f *Figure) Title(s string) *Figure { f.title = s; return f }

// XLabel sets the x-axis label.
func (f *Figure) XLabel(s string) *Figure { f.xlabel = s; return f }

// YLabel sets the y-axis label.
func (f *Figure) YLabel(s string) *Figure { f.ylabel = s; return f }

// HasContent reports whether the figure has anything worth rendering.
func (f *Figure) HasContent() bool {
	if f.closed {
		return false
	}
	for _, s := range f.series {
		if len(s.xs) > 0 && len(s.ys) > 0 {
			return true
		}
	}
	return false
}

// Close releases the figure; a closed figure renders nothing and is skipped
// by the post-execution scan.
func (f *Figure) Close() {
	f.closed = true
	f.series = nil
}

func (f *Figure) String() string {
	return fmt.Sprintf("<figure series=%d title=%q>", len(f.series), f.title)
}

// Registry tracks the figures created during a session. Constructors handed
// to the interpreter are bound to one Registry, so everything a cell plots
// lands here.
type Registry struct {
	mu      sync.Mutex
	width   int
	height  int
	figures []*Figure
}

// NewRegistry creates a figure registry with the given default render size.
func NewRegistry(width, height int) *Registry {
	if width <= 0 {
		width = 640
	}
	if height <= 0 {
		height = 480
	}
	return &Registry{width: width, height: height}
}

// New creates a figure with the registry's default size and tracks it.
func (r *Registry) New() *Figure {
	f := &Figure{width: r.width, height: r.height}
	r.mu.Lock()
	r.figures = append(r.figures, f)
	r.mu.Unlock()
	return f
}

// Open returns the tracked figures that are still open, in creation order,
// and forgets closed ones.
func (r *Registry) Open() []*Figure {
	r.mu.Lock()
	defer r.mu.Unlock()

	live := r.figures[:0]
	var open []*Figure
	for _, f := range r.figures {
		if f.closed {
			continue
		}
		live = append(live, f)
		open = append(open, f)
	}
	r.figures = live
	return open
}

// CloseAll closes every tracked figure. Called at session teardown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.figures {
		f.Close()
	}
	r.figures = nil
}
