package charts

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
)

var palette = []color.RGBA{
	{R: 31, G: 119, B: 180, A: 255},
	{R: 255, G: 127, B: 14, A: 255},
	{R: 44, G: 160, B: 44, A: 255},
	{R: 214, G: 39, B: 40, A: 255},
	{R: 148, G: 103, B: 189, A: 255},
	{R: 140, G: 86, B: 75, A: 255},
}

var (
	axisColor = color.RGBA{R: 60, G: 60, B: 60, A: 255}
	gridColor = color.RGBA{R: 225, G: 225, B: 225, A: 255}
	bgColor   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

const plotMargin = 40

// WritePNG renders the figure to PNG. Closed or empty figures are an error;
// callers gate on HasContent.
func (f *Figure) WritePNG(w io.Writer) error {
	if !f.HasContent() {
		return errors.New("figure has no content")
	}

	width, height := f.width, f.height
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	fill(img, bgColor)

	// Plot rectangle inside the margins.
	x0, y0 := plotMargin, plotMargin
	x1, y1 := width-plotMargin, height-plotMargin

	minX, maxX, minY, maxY := f.bounds()

	// Horizontal grid lines at quarter intervals, then the axes frame.
	for i := 1; i < 4; i++ {
		gy := y0 + (y1-y0)*i/4
		drawHLine(img, x0, x1, gy, gridColor)
	}
	drawHLine(img, x0, x1, y1, axisColor)
	drawVLine(img, x0, y0, y1, axisColor)

	toPx := func(x, y float64) (int, int) {
		px := x0 + int(math.Round((x-minX)/(maxX-minX)*float64(x1-x0)))
		py := y1 - int(math.Round((y-minY)/(maxY-minY)*float64(y1-y0)))
		return px, py
	}

	for si, s := range f.series {
		col := palette[si%len(palette)]
		n := len(s.xs)
		if len(s.ys) < n {
			n = len(s.ys)
		}
		switch s.kind {
		case lineSeries:
			for i := 1; i < n; i++ {
				ax, ay := toPx(s.xs[i-1], s.ys[i-1])
				bx, by := toPx(s.xs[i], s.ys[i])
				drawLine(img, ax, ay, bx, by, col)
			}
		case scatterSeries:
			for i := 0; i < n; i++ {
				px, py := toPx(s.xs[i], s.ys[i])
				drawDot(img, px, py, col)
			}
		case barSeries:
			barW := 3
			if n > 0 {
				if w := (x1 - x0) / (2 * n); w > barW {
					barW = w
				}
			}
			for i := 0; i < n; i++ {
				px, py := toPx(s.xs[i], s.ys[i])
				_, base := toPx(s.xs[i], math.Max(minY, 0))
				drawBar(img, px, py, base, barW, col)
			}
		}
	}

	return png.Encode(w, img)
}

// bounds computes the data extent across all series, padding degenerate
// ranges so scaling never divides by zero.
func (f *Figure) bounds() (minX, maxX, minY, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, s := range f.series {
		n := len(s.xs)
		if len(s.ys) < n {
			n = len(s.ys)
		}
		for i := 0; i < n; i++ {
			minX = math.Min(minX, s.xs[i])
			maxX = math.Max(maxX, s.xs[i])
			minY = math.Min(minY, s.ys[i])
			maxY = math.Max(maxY, s.ys[i])
		}
	}
	if minX == maxX {
		minX, maxX = minX-1, maxX+1
	}
	if minY == maxY {
		minY, maxY = minY-1, maxY+1
	}
	return minX, maxX, minY, maxY
}

func fill(img *image.RGBA, c color.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func drawHLine(img *image.RGBA, x0, x1, y int, c color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y, c)
	}
}

func drawVLine(img *image.RGBA, x, y0, y1 int, c color.RGBA) {
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x, y, c)
	}
}

func drawDot(img *image.RGBA, x, y int, c color.RGBA) {
	for dy := -2; dy <= 2; dy++ {
		for dx := -2; dx <= 2; dx++ {
			if dx*dx+dy*dy <= 4 {
				img.SetRGBA(x+dx, y+dy, c)
			}
		}
	}
}

func drawBar(img *image.RGBA, x, top, base, halfWidth int, c color.RGBA) {
	if top > base {
		top, base = base, top
	}
	for y := top; y <= base; y++ {
		for dx := -halfWidth; dx <= halfWidth; dx++ {
			img.SetRGBA(x+dx, y, c)
		}
	}
}

// drawLine is Bresenham's algorithm.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		img.SetRGBA(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
