// Package soft implements gpu.Context in memory.
//
// Textures are stored as image.NRGBA levels so that their contents
// can be read back. The package is used for tests and headless
// rendering; it panics where a real driver would raise an error.
package soft

import (
	"fmt"
	"image"
	"sync"

	"github.com/braheezy/gltex/gpu"
	"golang.org/x/image/draw"
)

// DefaultMaxTextureSize is used by New when max is not positive.
const DefaultMaxTextureSize = 4096

// Stats counts the calls made on a Context.
type Stats struct {
	Creates    int
	Deletes    int
	Binds      int
	Uploads    int
	SubUploads int
	Mipmaps    int
	WrapSets   int
	FilterSets int
}

// Calls returns the total number of calls recorded in s.
func (s Stats) Calls() int {
	return s.Creates + s.Deletes + s.Binds + s.Uploads + s.SubUploads + s.Mipmaps + s.WrapSets + s.FilterSets
}

type texture struct {
	levels []*image.NRGBA
	wrap   [2]gpu.WrapMode
	min    gpu.Filter
	mag    gpu.Filter
}

// Context is an in-memory gpu.Context.
// It is safe for concurrent use, although texture code only ever
// calls it from the render thread.
type Context struct {
	mu       sync.Mutex
	max      int
	next     uint32
	bound    uint32
	textures map[uint32]*texture
	stats    Stats
	lost     bool
}

var _ gpu.Context = (*Context)(nil)

// New creates a Context accepting textures up to max×max.
func New(max int) *Context {
	if max <= 0 {
		max = DefaultMaxTextureSize
	}
	return &Context{max: max, textures: make(map[uint32]*texture)}
}

func (c *Context) MaxTextureSize() int { return c.max }

func (c *Context) CreateTexture() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkLost()
	c.next++
	c.textures[c.next] = &texture{min: gpu.LinearMipmapLinear, mag: gpu.Linear, wrap: [2]gpu.WrapMode{gpu.Repeat, gpu.Repeat}}
	c.stats.Creates++
	return c.next
}

func (c *Context) DeleteTexture(id uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkLost()
	if _, ok := c.textures[id]; !ok {
		panic(fmt.Sprintf("soft: delete of unknown texture %d", id))
	}
	delete(c.textures, id)
	if c.bound == id {
		c.bound = 0
	}
	c.stats.Deletes++
}

func (c *Context) BindTexture(id uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkLost()
	if _, ok := c.textures[id]; !ok && id != 0 {
		panic(fmt.Sprintf("soft: bind of unknown texture %d", id))
	}
	c.bound = id
	c.stats.Binds++
}

func (c *Context) UploadImage(level, w, h int, f gpu.PixelFormat, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.current()
	switch {
	case level < 0:
		panic("soft: negative level")
	case w < 1, h < 1:
		panic(fmt.Sprintf("soft: invalid size %dx%d", w, h))
	case w > c.max, h > c.max:
		panic(fmt.Sprintf("soft: size %dx%d exceeds %d", w, h, c.max))
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	if len(data) > 0 {
		copyPixels(img, img.Rect, f, data)
	}
	for len(t.levels) <= level {
		t.levels = append(t.levels, nil)
	}
	t.levels[level] = img
	c.stats.Uploads++
}

func (c *Context) UploadSubImage(level, x, y, w, h int, f gpu.PixelFormat, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.current()
	if level < 0 || level >= len(t.levels) || t.levels[level] == nil {
		panic(fmt.Sprintf("soft: level %d not allocated", level))
	}
	img := t.levels[level]
	r := image.Rect(x, y, x+w, y+h)
	if !r.In(img.Rect) {
		panic(fmt.Sprintf("soft: sub-image %v outside %v", r, img.Rect))
	}
	if len(data) > 0 {
		copyPixels(img, r, f, data)
	}
	c.stats.SubUploads++
}

func (c *Context) SetWrapMode(a gpu.Axis, m gpu.WrapMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current().wrap[a] = m
	c.stats.WrapSets++
}

func (c *Context) SetFilter(min, mag gpu.Filter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.current()
	t.min, t.mag = min, mag
	c.stats.FilterSets++
}

// GenerateMipmaps rebuilds every level from level 0 with a
// bilinear downscale, down to 1×1.
func (c *Context) GenerateMipmaps() {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.current()
	if len(t.levels) == 0 || t.levels[0] == nil {
		panic("soft: mipmap generation without level 0")
	}
	base := t.levels[0]
	t.levels = t.levels[:1]
	w, h := base.Rect.Dx(), base.Rect.Dy()
	prev := base
	for w > 1 || h > 1 {
		w, h = max(w/2, 1), max(h/2, 1)
		img := image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.BiLinear.Scale(img, img.Rect, prev, prev.Rect, draw.Src, nil)
		t.levels = append(t.levels, img)
		prev = img
	}
	c.stats.Mipmaps++
}

// Stats returns a snapshot of the call counters.
func (c *Context) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Live returns the number of textures not yet deleted.
func (c *Context) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.textures)
}

// Levels returns the number of allocated levels of id.
func (c *Context) Levels(id uint32) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.textures[id]; ok {
		return len(t.levels)
	}
	return 0
}

// Pixels returns a copy of the given level of id, or nil if the
// level does not exist.
func (c *Context) Pixels(id uint32, level int) *image.NRGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.textures[id]
	if !ok || level < 0 || level >= len(t.levels) || t.levels[level] == nil {
		return nil
	}
	src := t.levels[level]
	dst := image.NewNRGBA(src.Rect)
	copy(dst.Pix, src.Pix)
	return dst
}

// WrapMode returns the wrap mode of id along a.
func (c *Context) WrapMode(id uint32, a gpu.Axis) gpu.WrapMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.textures[id]; ok {
		return t.wrap[a]
	}
	return 0
}

// Lose simulates the loss of the underlying context: every later
// call other than the accessors panics.
func (c *Context) Lose() {
	c.mu.Lock()
	c.lost = true
	c.mu.Unlock()
}

func (c *Context) checkLost() {
	if c.lost {
		panic("soft: context lost")
	}
}

// current returns the bound texture. Caller holds c.mu.
func (c *Context) current() *texture {
	c.checkLost()
	t, ok := c.textures[c.bound]
	if !ok {
		panic("soft: no texture bound")
	}
	return t
}

// copyPixels writes tightly packed data of format f into r of img.
func copyPixels(img *image.NRGBA, r image.Rectangle, f gpu.PixelFormat, data []byte) {
	stride := r.Dx() * 4
	if len(data) < stride*r.Dy() {
		panic(fmt.Sprintf("soft: %d bytes for %dx%d region", len(data), r.Dx(), r.Dy()))
	}
	for y := 0; y < r.Dy(); y++ {
		row := data[y*stride : (y+1)*stride]
		off := img.PixOffset(r.Min.X, r.Min.Y+y)
		dst := img.Pix[off : off+stride]
		if f == gpu.BGRA8 {
			for i := 0; i < stride; i += 4 {
				dst[i], dst[i+1], dst[i+2], dst[i+3] = row[i+2], row[i+1], row[i], row[i+3]
			}
			continue
		}
		copy(dst, row)
	}
}
