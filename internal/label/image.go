package label

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"evidence-stamp/internal/config"
)

const minPadding = 5

// Renderer rasterises label text onto transparent canvases.
// It is safe for concurrent use.
type Renderer struct {
	logger     *zap.Logger
	candidates []string
	scale      int

	once     sync.Once
	font     *opentype.Font
	fontName string
}

func NewRenderer(cfg *config.Config, logger *zap.Logger) *Renderer {
	var candidates []string
	if cfg.Font.Path != "" {
		candidates = append(candidates, cfg.Font.Path)
	}
	candidates = append(candidates, cfg.Font.Candidates...)
	candidates = append(candidates, platformFonts()...)

	return &Renderer{
		logger:     logger,
		candidates: candidates,
		scale:      cfg.Stamp.RenderScale,
	}
}

// Scale is the number of raster pixels per PDF point.
func (r *Renderer) Scale() int {
	if r.scale < 1 {
		return 1
	}
	return r.scale
}

// FontName returns the resolved font file, or "goregular" for the bundled face.
func (r *Renderer) FontName() string {
	r.once.Do(r.loadFont)
	return r.fontName
}

// Render draws text at fontSize points, scaled by Scale, and rotates the
// result counter-clockwise by rotation degrees (0, 90, 180 or 270).
func (r *Renderer) Render(text string, fontSize, rotation int, c color.NRGBA) (*image.NRGBA, error) {
	r.once.Do(r.loadFont)

	if fontSize <= 0 {
		return nil, fmt.Errorf("font size must be positive, got %d", fontSize)
	}
	size := fontSize * r.Scale()

	face, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	defer face.Close()

	bounds, _ := font.BoundString(face, text)
	pad := padding(fontSize, r.Scale())

	width := (bounds.Max.X - bounds.Min.X).Ceil() + 2*pad
	height := (bounds.Max.Y - bounds.Min.Y).Ceil() + 2*pad
	canvas := image.NewNRGBA(image.Rect(0, 0, width, height))

	c.A = 255
	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(c),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(pad) - bounds.Min.X,
			Y: fixed.I(pad) - bounds.Min.Y,
		},
	}
	d.DrawString(text)

	switch rotation {
	case 90:
		return imaging.Rotate90(canvas), nil
	case 180:
		return imaging.Rotate180(canvas), nil
	case 270:
		return imaging.Rotate270(canvas), nil
	}
	return canvas, nil
}

// padding is the transparent margin in raster pixels: a tenth of the font
// size but never under minPadding points once scaled back down.
func padding(fontSize, scale int) int {
	return max(minPadding*scale, fontSize*scale/10)
}

// RenderPNG renders the label and encodes it as PNG.
func (r *Renderer) RenderPNG(text string, fontSize, rotation int, c color.NRGBA) ([]byte, image.Rectangle, error) {
	img, err := r.Render(text, fontSize, rotation, c)
	if err != nil {
		return nil, image.Rectangle{}, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, image.Rectangle{}, fmt.Errorf("failed to encode label image: %w", err)
	}
	return buf.Bytes(), img.Bounds(), nil
}

func (r *Renderer) loadFont() {
	for _, path := range r.candidates {
		f, err := parseFontFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				r.logger.Debug("Font candidate rejected", zap.String("path", path), zap.Error(err))
			}
			continue
		}
		r.font = f
		r.fontName = path
		r.logger.Info("Label font loaded", zap.String("path", path))
		return
	}

	// goregular has no CJK glyphs; labels still render, with missing-glyph boxes.
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		panic(fmt.Sprintf("bundled font is invalid: %v", err))
	}
	r.font = f
	r.fontName = "goregular"
	r.logger.Warn("No CJK font found, falling back to bundled face",
		zap.Strings("searched", r.candidates),
	)
}

func parseFontFile(path string) (*opentype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(path), ".ttc") {
		coll, err := opentype.ParseCollection(data)
		if err != nil {
			return nil, err
		}
		if coll.NumFonts() == 0 {
			return nil, fmt.Errorf("font collection %s is empty", path)
		}
		return coll.Font(0)
	}
	return opentype.Parse(data)
}

func platformFonts() []string {
	switch runtime.GOOS {
	case "windows":
		dir := filepath.Join(os.Getenv("WINDIR"), "Fonts")
		if os.Getenv("WINDIR") == "" {
			dir = `C:\Windows\Fonts`
		}
		return []string{
			filepath.Join(dir, "ipaexg.ttf"),
			filepath.Join(dir, "meiryo.ttc"),
			filepath.Join(dir, "msgothic.ttc"),
			filepath.Join(dir, "YuGothM.ttc"),
			filepath.Join(dir, "YuGothR.ttc"),
		}
	case "darwin":
		return []string{
			"/Library/Fonts/ipaexg.ttf",
			"/System/Library/Fonts/ヒラギノ角ゴシック W3.ttc",
			"/System/Library/Fonts/Hiragino Sans GB.ttc",
			"/Library/Fonts/Arial Unicode.ttf",
		}
	default:
		return []string{
			"/usr/share/fonts/opentype/ipaexfont-gothic/ipaexg.ttf",
			"/usr/share/fonts/truetype/fonts-japanese-gothic.ttf",
			"/usr/share/fonts/opentype/noto/NotoSansCJK-Regular.ttc",
			"/usr/share/fonts/noto-cjk/NotoSansCJK-Regular.ttc",
			"/usr/share/fonts/google-noto-cjk/NotoSansCJK-Regular.ttc",
			"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		}
	}
}
