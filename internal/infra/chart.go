package infra

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/vector"
)

// Chart defaults
const (
	DefaultChartWidth  = 640
	DefaultChartHeight = 320

	chartPadding   = 16
	chartGridLines = 4
	chartGridWidth = 1
	chartLineWidth = 2
)

var (
	chartBackground = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	chartGrid       = color.NRGBA{R: 226, G: 232, B: 240, A: 255}
	chartFallback   = color.NRGBA{R: 100, G: 116, B: 139, A: 255}

	// ErrNoSeries is returned when there is nothing to plot.
	ErrNoSeries = errors.New("no chart data")
)

// Series is one venue's price line.
type Series struct {
	Name   string
	Color  string // #RRGGBB
	Values []float64
}

// ChartRenderer draws price history as PNG line charts.
type ChartRenderer struct {
	Width  int
	Height int
}

// NewChartRenderer creates a renderer with the default size.
func NewChartRenderer() *ChartRenderer {
	return &ChartRenderer{Width: DefaultChartWidth, Height: DefaultChartHeight}
}

// Render writes a PNG chart of series to w.
func (r *ChartRenderer) Render(w io.Writer, series []Series) error {
	img, err := r.Draw(series)
	if err != nil {
		return err
	}
	return imaging.Encode(w, img, imaging.PNG)
}

// Save renders series into dir as <pair>.png and returns the file path.
func (r *ChartRenderer) Save(dir, pair string, series []Series) (string, error) {
	// Security: Sanitize pair to prevent path traversal
	safe := sanitizeSymbol(pair)
	if safe == "" {
		return "", fmt.Errorf("invalid pair: %s", pair)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create chart directory: %w", err)
	}

	img, err := r.Draw(series)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, strings.ToLower(safe)+".png")
	if err := imaging.Save(img, path); err != nil {
		return "", fmt.Errorf("failed to save chart: %w", err)
	}
	return path, nil
}

// Draw rasterises series at the renderer's size.
func (r *ChartRenderer) Draw(series []Series) (*image.NRGBA, error) {
	lo, hi, n := seriesBounds(series)
	if n == 0 {
		return nil, ErrNoSeries
	}

	width, height := r.Width, r.Height
	if width <= 0 || height <= 0 {
		width, height = DefaultChartWidth, DefaultChartHeight
	}
	pad := float32(chartPadding)
	w, h := float32(width), float32(height)

	canvas := imaging.New(width, height, chartBackground)

	grid := newStroke(width, height, chartGridWidth)
	for i := 0; i <= chartGridLines; i++ {
		y := pad + (h-2*pad)*float32(i)/chartGridLines
		grid.segment(pad, y, w-pad, y)
	}
	grid.draw(canvas, chartGrid)

	if hi == lo {
		hi, lo = hi+1, lo-1
	}
	margin := (hi - lo) * 0.05
	lo, hi = lo-margin, hi+margin

	project := func(i int, v float64) (float32, float32) {
		x := pad
		if n > 1 {
			x = pad + (w-2*pad)*float32(i)/float32(n-1)
		}
		y := pad + (h-2*pad)*float32((hi-v)/(hi-lo))
		return x, y
	}

	for _, s := range series {
		line := newStroke(width, height, chartLineWidth)
		for i := 1; i < len(s.Values); i++ {
			x0, y0 := project(i-1, s.Values[i-1])
			x1, y1 := project(i, s.Values[i])
			line.segment(x0, y0, x1, y1)
		}
		if len(s.Values) == 1 {
			x, y := project(0, s.Values[0])
			line.dot(x, y)
		}
		line.draw(canvas, parseHexColor(s.Color))
	}

	return canvas, nil
}

// seriesBounds returns the value range and the longest series length.
func seriesBounds(series []Series) (lo, hi float64, n int) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, s := range series {
		n = max(n, len(s.Values))
		for _, v := range s.Values {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	return lo, hi, n
}

// stroke accumulates line segments as thin quads on an anti-aliasing
// rasterizer. Every quad winds the same way so overlaps never cancel.
type stroke struct {
	z    *vector.Rasterizer
	half float32
}

func newStroke(width, height int, lineWidth float32) *stroke {
	return &stroke{z: vector.NewRasterizer(width, height), half: lineWidth / 2}
}

func (s *stroke) segment(x0, y0, x1, y1 float32) {
	dx, dy := x1-x0, y1-y0
	l := float32(math.Hypot(float64(dx), float64(dy)))
	if l == 0 {
		s.dot(x0, y0)
		return
	}
	nx, ny := -dy/l*s.half, dx/l*s.half

	s.z.MoveTo(x0+nx, y0+ny)
	s.z.LineTo(x1+nx, y1+ny)
	s.z.LineTo(x1-nx, y1-ny)
	s.z.LineTo(x0-nx, y0-ny)
	s.z.ClosePath()
}

func (s *stroke) dot(x, y float32) {
	r := s.half * 2
	s.z.MoveTo(x-r, y-r)
	s.z.LineTo(x+r, y-r)
	s.z.LineTo(x+r, y+r)
	s.z.LineTo(x-r, y+r)
	s.z.ClosePath()
}

func (s *stroke) draw(dst *image.NRGBA, c color.NRGBA) {
	s.z.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{})
}

func parseHexColor(s string) color.NRGBA {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return chartFallback
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return chartFallback
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}

func sanitizeSymbol(symbol string) string {
	res := make([]rune, 0, len(symbol))
	for _, r := range symbol {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			res = append(res, r)
		}
	}
	return string(res)
}
