package texture

import (
	"image"
	"sync"

	"github.com/braheezy/gltex/gpu"
	"golang.org/x/image/draw"
)

// Upload is a block of pixel data destined for one rectangle of one
// mip level of a Texture.
//
// After it is passed to Texture.SetData the Upload belongs to the
// texture and must not be modified by the producer.
type Upload struct {
	// Data holds tightly packed pixels. Empty Data only allocates.
	Data []byte
	// Bounds is the target rectangle in level 0 coordinates.
	// The zero Rectangle means the whole texture.
	Bounds image.Rectangle
	// Level is the mip level, 0 being the largest.
	Level  int
	Format gpu.PixelFormat

	release  func([]byte)
	released bool
}

// NewUpload creates an RGBA8 Upload of data covering the whole texture.
func NewUpload(data []byte) *Upload {
	return &Upload{Data: data, Format: gpu.RGBA8}
}

// NewUploadFunc is like NewUpload, but calls release with the data
// once the upload has been consumed or discarded.
func NewUploadFunc(data []byte, release func([]byte)) *Upload {
	return &Upload{Data: data, Format: gpu.RGBA8, release: release}
}

// Release drops the pixel data. It is called by the texture right
// after the data reached the GPU, or when the texture is disposed
// with the upload still queued. Later calls do nothing.
func (u *Upload) Release() {
	if u.released {
		return
	}
	u.released = true
	data := u.Data
	u.Data = nil
	if u.release != nil {
		u.release(data)
	}
}

// Released reports whether Release has been called.
func (u *Upload) Released() bool { return u.released }

// UploadFromImage converts img to RGBA8 with straight alpha and
// returns an Upload placing it at the origin of the texture.
func UploadFromImage(img image.Image) *Upload {
	b := img.Bounds()
	var pix []byte
	if m, ok := img.(*image.NRGBA); ok && m.Stride == 4*b.Dx() {
		pix = m.Pix[:4*b.Dx()*b.Dy()]
	} else {
		m := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(m, m.Rect, img, b.Min, draw.Src)
		pix = m.Pix
	}
	return &Upload{Data: pix, Bounds: image.Rect(0, 0, b.Dx(), b.Dy()), Format: gpu.RGBA8}
}

// BufferPool recycles upload buffers between producers and the
// render thread.
type BufferPool struct {
	pool sync.Pool
}

// Get returns a buffer of length n. Its contents are undefined.
func (p *BufferPool) Get(n int) []byte {
	if v, ok := p.pool.Get().(*[]byte); ok && cap(*v) >= n {
		return (*v)[:n]
	}
	return make([]byte, n)
}

// Put makes b available to later Get calls.
func (p *BufferPool) Put(b []byte) {
	if cap(b) == 0 {
		return
	}
	p.pool.Put(&b)
}

// NewUpload returns an RGBA8 Upload of a w×h rectangle at the
// origin, backed by a pooled buffer that is returned on Release.
func (p *BufferPool) NewUpload(w, h int) *Upload {
	return &Upload{
		Data:    p.Get(w * h * 4),
		Bounds:  image.Rect(0, 0, w, h),
		Format:  gpu.RGBA8,
		release: p.Put,
	}
}
