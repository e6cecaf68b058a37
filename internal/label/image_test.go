package label

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"go.uber.org/zap"

	"evidence-stamp/internal/config"
)

func newTestRenderer(t *testing.T, scale int) *Renderer {
	t.Helper()
	cfg := &config.Config{}
	cfg.Font.Path = "/nonexistent/font.ttf"
	cfg.Stamp.RenderScale = scale
	r := NewRenderer(cfg, zap.NewNop())
	// Pin the search to the bundled face so results do not depend on the host.
	r.candidates = []string{"/nonexistent/font.ttf"}
	return r
}

func TestRenderFallsBackToBundledFont(t *testing.T) {
	r := newTestRenderer(t, 1)

	img, err := r.Render("Exhibit 12", 22, 0, color.NRGBA{R: 255, A: 255})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if r.FontName() != "goregular" {
		t.Fatalf("expected bundled font, got %q", r.FontName())
	}
	b := img.Bounds()
	if b.Dx() <= 2*minPadding || b.Dy() <= 2*minPadding {
		t.Fatalf("canvas too small: %v", b)
	}
}

func TestRenderTransparentBackgroundAndOpaqueGlyphs(t *testing.T) {
	r := newTestRenderer(t, 1)
	red := color.NRGBA{R: 255, A: 255}

	img, err := r.Render("12", 40, 0, red)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if a := img.NRGBAAt(0, 0).A; a != 0 {
		t.Fatalf("corner pixel alpha = %d, want 0", a)
	}

	var opaque int
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			px := img.NRGBAAt(x, y)
			if px.A == 255 {
				opaque++
				if px.R != 255 || px.G != 0 || px.B != 0 {
					t.Fatalf("glyph pixel has wrong color: %+v", px)
				}
			}
		}
	}
	if opaque == 0 {
		t.Fatal("expected some fully opaque glyph pixels")
	}
}

func TestRenderRotationSwapsDimensions(t *testing.T) {
	r := newTestRenderer(t, 1)
	c := color.NRGBA{B: 255, A: 255}

	flat, err := r.Render("Label 1", 22, 0, c)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for _, rot := range []int{90, 270} {
		img, err := r.Render("Label 1", 22, rot, c)
		if err != nil {
			t.Fatalf("render %d: %v", rot, err)
		}
		if img.Bounds().Dx() != flat.Bounds().Dy() || img.Bounds().Dy() != flat.Bounds().Dx() {
			t.Fatalf("rotation %d: got %v, flat %v", rot, img.Bounds(), flat.Bounds())
		}
	}

	upside, err := r.Render("Label 1", 22, 180, c)
	if err != nil {
		t.Fatalf("render 180: %v", err)
	}
	if upside.Bounds().Size() != flat.Bounds().Size() {
		t.Fatalf("rotation 180 changed size: %v vs %v", upside.Bounds(), flat.Bounds())
	}
}

func TestRenderScaleAndPadding(t *testing.T) {
	one := newTestRenderer(t, 1)
	two := newTestRenderer(t, 2)
	c := color.NRGBA{A: 255}

	a, err := one.Render("7", 100, 0, c)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	b, err := two.Render("7", 100, 0, c)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if b.Bounds().Dx() <= a.Bounds().Dx() {
		t.Fatalf("scaled render not larger: %v vs %v", b.Bounds(), a.Bounds())
	}
	if two.Scale() != 2 {
		t.Fatalf("scale = %d", two.Scale())
	}
}

func TestRenderRejectsNonPositiveSize(t *testing.T) {
	r := newTestRenderer(t, 1)
	if _, err := r.Render("x", 0, 0, color.NRGBA{}); err == nil {
		t.Fatal("expected error for zero font size")
	}
}

func TestRenderPNG(t *testing.T) {
	r := newTestRenderer(t, 1)
	data, bounds, err := r.RenderPNG("A1", 22, 90, color.NRGBA{G: 128, A: 255})
	if err != nil {
		t.Fatalf("render png: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Bounds().Size() != bounds.Size() {
		t.Fatalf("decoded size %v, want %v", decoded.Bounds(), bounds)
	}
}

func TestPaddingIsAtLeastFivePointsAtAnyScale(t *testing.T) {
	tests := []struct {
		fontSize, scale, want int
	}{
		{12, 1, 5},
		{12, 2, 10},
		{22, 2, 10},
		{80, 1, 8},
		{80, 2, 16},
		{40, 3, 15},
	}
	for _, tt := range tests {
		if got := padding(tt.fontSize, tt.scale); got != tt.want {
			t.Errorf("padding(%d, %d) = %d, want %d", tt.fontSize, tt.scale, got, tt.want)
		}
	}
}

func TestRenderKeepsTransparentMarginWhenSupersampled(t *testing.T) {
	r := newTestRenderer(t, 2)

	img, err := r.Render("12", 12, 0, color.NRGBA{B: 255, A: 255})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	margin := minPadding * 2
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			inside := x >= margin && x < b.Max.X-margin && y >= margin && y < b.Max.Y-margin
			if !inside && img.NRGBAAt(x, y).A != 0 {
				t.Fatalf("pixel (%d,%d) inside the %dpx margin is not transparent", x, y, margin)
			}
		}
	}
}
