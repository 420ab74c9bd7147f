package infra

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func testSeries() []Series {
	return []Series{
		{Name: "UniswapV3", Color: "#FF007A", Values: []float64{2000, 2004, 2001, 2010}},
		{Name: "SushiSwap", Color: "#0E4F99", Values: []float64{2002, 2003, 2007, 2006}},
	}
}

func TestChartRenderer_Render(t *testing.T) {
	r := &ChartRenderer{Width: 200, Height: 100}

	var buf bytes.Buffer
	if err := r.Render(&buf, testSeries()); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("Output is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 100 {
		t.Errorf("Expected 200x100, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestChartRenderer_DrawsSomething(t *testing.T) {
	r := &ChartRenderer{Width: 120, Height: 60}
	img, err := r.Draw(testSeries())
	if err != nil {
		t.Fatalf("Draw failed: %v", err)
	}

	colored := 0
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 255 || img.Pix[i+1] != 255 || img.Pix[i+2] != 255 {
			colored++
		}
	}
	if colored == 0 {
		t.Error("Expected non-background pixels")
	}
}

func TestChartRenderer_AntiAliasedLines(t *testing.T) {
	r := &ChartRenderer{Width: 120, Height: 60}
	img, err := r.Draw([]Series{{Name: "A", Color: "#FF0000", Values: []float64{1, 3, 2}}})
	if err != nil {
		t.Fatalf("Draw failed: %v", err)
	}

	// Red over white: full coverage is (255,0,0), edges blend toward white.
	solid, partial := 0, 0
	for i := 0; i < len(img.Pix); i += 4 {
		red, g, b := img.Pix[i], img.Pix[i+1], img.Pix[i+2]
		if red != 255 || g != b {
			continue
		}
		switch {
		case g == 0:
			solid++
		case g < 255:
			partial++
		}
	}
	if solid == 0 {
		t.Error("Expected fully covered line pixels")
	}
	if partial == 0 {
		t.Error("Expected partially covered edge pixels")
	}
}

func TestChartRenderer_FlatAndSingle(t *testing.T) {
	r := NewChartRenderer()
	if _, err := r.Draw([]Series{{Name: "A", Values: []float64{5, 5, 5}}}); err != nil {
		t.Errorf("Flat series should render: %v", err)
	}
	if _, err := r.Draw([]Series{{Name: "A", Color: "bad", Values: []float64{5}}}); err != nil {
		t.Errorf("Single point should render: %v", err)
	}
}

func TestChartRenderer_NoData(t *testing.T) {
	r := NewChartRenderer()
	if _, err := r.Draw(nil); !errors.Is(err, ErrNoSeries) {
		t.Errorf("Expected ErrNoSeries, got %v", err)
	}
	if _, err := r.Draw([]Series{{Name: "A"}}); !errors.Is(err, ErrNoSeries) {
		t.Errorf("Expected ErrNoSeries for empty values, got %v", err)
	}
}

func TestChartRenderer_Save(t *testing.T) {
	r := &ChartRenderer{Width: 100, Height: 50}
	dir := t.TempDir()

	path, err := r.Save(dir, "ETH/USDC", testSeries())
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if path != filepath.Join(dir, "ethusdc.png") {
		t.Errorf("Unexpected path %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Chart file missing: %v", err)
	}

	if _, err := r.Save(dir, "../", testSeries()); err == nil {
		t.Error("Expected error for unsafe pair")
	}
}

func TestParseHexColor(t *testing.T) {
	c := parseHexColor("#FF007A")
	if c.R != 0xFF || c.G != 0x00 || c.B != 0x7A {
		t.Errorf("Unexpected color %+v", c)
	}
	if parseHexColor("nope") != chartFallback {
		t.Error("Expected fallback color")
	}
}
