// Package atlas packs rasterized glyphs into a single texture.
//
// Glyphs are drawn into a CPU side image on the goroutine that adds
// them and reach the texture as sub-rectangle uploads. When the shelf
// packer runs out of room the atlas doubles in size and the whole
// image is supplied again.
package atlas

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/braheezy/gltex/batch"
	"github.com/braheezy/gltex/geom"
	"github.com/braheezy/gltex/gpu"
	"github.com/braheezy/gltex/texture"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// padding between glyphs, so linear filtering does not bleed
const padding = 1

// ErrFull is returned when a glyph does not fit even at the largest
// texture size the context supports.
var ErrFull = errors.New("atlas: full")

// Glyph locates a rasterized rune inside the atlas.
type Glyph struct {
	// Bounds is the source rectangle in atlas pixels. Empty for
	// glyphs without ink, such as space.
	Bounds geom.RectF
	// Bearing is the offset from the dot to the top-left corner of
	// Bounds, Y growing downwards.
	Bearing mgl32.Vec2
	Advance float32
}

// Atlas is a growable glyph texture for one font face.
//
// Add may be called from any goroutine. Draw and Close must be
// called from the render thread.
type Atlas struct {
	tex  *texture.Texture
	pool texture.BufferPool
	max  int

	mu      sync.Mutex
	face    font.Face
	metrics font.Metrics
	img     *image.NRGBA
	glyphs  map[rune]Glyph
	// shelf cursor
	x, y, rowH int
}

// New creates an empty size×size atlas for face on dev. The atlas
// takes ownership of face.
func New(dev *gpu.Device, face font.Face, size int) *Atlas {
	size = max(size, 1)
	a := &Atlas{
		tex:     texture.New(dev, size, size),
		max:     dev.Context.MaxTextureSize(),
		face:    face,
		metrics: face.Metrics(),
		img:     image.NewNRGBA(image.Rect(0, 0, size, size)),
		glyphs:  make(map[rune]Glyph),
		x:       padding,
		y:       padding,
	}
	a.supplyAll()
	return a
}

// NewGoRegular creates an atlas of the Go Regular font at the given
// point size, preloaded with printable ASCII.
func NewGoRegular(dev *gpu.Device, points float64, size int) (*Atlas, error) {
	ttf, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("atlas: parse font: %w", err)
	}
	face, err := opentype.NewFace(ttf, &opentype.FaceOptions{
		Size:    points,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("atlas: create face: %w", err)
	}
	a := New(dev, face, size)
	if err := a.AddRange(32, 127); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Texture returns the texture backing the atlas.
func (a *Atlas) Texture() *texture.Texture { return a.tex }

// Metrics returns the metrics of the atlas font.
func (a *Atlas) Metrics() font.Metrics { return a.metrics }

// Glyph returns the glyph for r, if it has been added.
func (a *Atlas) Glyph(r rune) (Glyph, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	g, ok := a.glyphs[r]
	return g, ok
}

// Len returns the number of glyphs in the atlas.
func (a *Atlas) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.glyphs)
}

// AddRange adds every rune in [lo, hi).
func (a *Atlas) AddRange(lo, hi rune) error {
	rs := make([]rune, 0, max(hi-lo, 0))
	for r := lo; r < hi; r++ {
		rs = append(rs, r)
	}
	return a.Add(rs...)
}

// Add rasterizes the given runes. Runes already present and runes
// missing from the font are skipped.
func (a *Atlas) Add(runes ...rune) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var dirty []image.Rectangle
	grown := false
	for _, r := range runes {
		if _, ok := a.glyphs[r]; ok {
			continue
		}
		bounds, advance, ok := a.face.GlyphBounds(r)
		if !ok {
			logger().Debug("glyph missing from font", zap.String("rune", string(r)))
			continue
		}
		minX, minY := bounds.Min.X.Floor(), bounds.Min.Y.Floor()
		w, h := bounds.Max.X.Ceil()-minX, bounds.Max.Y.Ceil()-minY
		g := Glyph{
			Bearing: mgl32.Vec2{float32(minX), float32(minY)},
			Advance: float32(advance) / 64,
		}
		if w <= 0 || h <= 0 {
			a.glyphs[r] = g
			continue
		}

		p, ok := a.place(w, h)
		for !ok {
			if err := a.grow(); err != nil {
				a.flush(dirty, grown)
				return fmt.Errorf("%w: rune %q is %dx%d", err, r, w, h)
			}
			grown = true
			p, ok = a.place(w, h)
		}

		d := font.Drawer{
			Dst:  a.img,
			Src:  image.White,
			Face: a.face,
			Dot:  fixed.P(p.X-minX, p.Y-minY),
		}
		d.DrawString(string(r))

		g.Bounds = geom.RectF{X: float32(p.X), Y: float32(p.Y), W: float32(w), H: float32(h)}
		a.glyphs[r] = g
		dirty = append(dirty, image.Rect(p.X, p.Y, p.X+w, p.Y+h))
	}
	a.flush(dirty, grown)
	return nil
}

// place reserves a w×h cell on the current shelf, opening a new shelf
// when the current one is full.
func (a *Atlas) place(w, h int) (image.Point, bool) {
	size := a.img.Rect.Dx()
	if a.x+w+padding > size {
		a.x = padding
		a.y += a.rowH + padding
		a.rowH = 0
	}
	if a.x+w+padding > size || a.y+h+padding > size {
		return image.Point{}, false
	}
	p := image.Pt(a.x, a.y)
	a.x += w + padding
	a.rowH = max(a.rowH, h)
	return p, true
}

// grow doubles the CPU image. Placed glyphs keep their position.
func (a *Atlas) grow() error {
	size := a.img.Rect.Dx() * 2
	if size > a.max {
		return ErrFull
	}
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, a.img.Rect, a.img, image.Point{}, draw.Src)
	a.img = img
	logger().Debug("atlas grown", zap.Int("size", size))
	return nil
}

// flush queues the pixels changed by an Add. Caller holds a.mu.
func (a *Atlas) flush(dirty []image.Rectangle, grown bool) {
	if grown {
		size := a.img.Rect.Dx()
		a.tex.SetSize(size, size)
		a.supplyAll()
		return
	}
	for _, r := range dirty {
		u := a.pool.NewUpload(r.Dx(), r.Dy())
		a.copyRect(u.Data, r)
		u.Bounds = r
		a.tex.SetData(u)
	}
}

// supplyAll queues the whole CPU image. Caller holds a.mu.
func (a *Atlas) supplyAll() {
	u := a.pool.NewUpload(a.img.Rect.Dx(), a.img.Rect.Dy())
	copy(u.Data, a.img.Pix)
	a.tex.SetData(u)
}

func (a *Atlas) copyRect(dst []byte, r image.Rectangle) {
	stride := r.Dx() * 4
	for y := 0; y < r.Dy(); y++ {
		off := a.img.PixOffset(r.Min.X, r.Min.Y+y)
		copy(dst[y*stride:(y+1)*stride], a.img.Pix[off:off+stride])
	}
}

// Draw adds a quad per glyph of text to b, starting with the dot at
// (x, y) on the baseline, and returns the x position after the last
// glyph. Runes not in the atlas are skipped.
func (a *Atlas) Draw(text string, x, y, scale float32, colour mgl32.Vec4, b batch.Batch) float32 {
	for _, r := range text {
		g, ok := a.Glyph(r)
		if !ok {
			continue
		}
		if g.Bounds.W > 0 {
			dst := geom.RectF{
				X: x + g.Bearing.X()*scale,
				Y: y + g.Bearing.Y()*scale,
				W: g.Bounds.W * scale,
				H: g.Bounds.H * scale,
			}
			src := g.Bounds
			a.tex.Draw(geom.QuadFromRect(dst), &src, colour, b)
		}
		x += g.Advance * scale
	}
	return x
}

// Close disposes the texture and releases the font face.
func (a *Atlas) Close() error {
	a.tex.Dispose()
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.face.Close()
}
