// Package texture manages 2D textures whose pixels are produced on
// any goroutine but reach the GPU only on the render thread.
//
// Producers hand pixel data to a Texture with SetData. The texture
// queues it and marks itself dirty on the device's gpu.Scheduler;
// the render thread later drains the queue with Upload (usually
// through Scheduler.Flush), creating, resizing or updating the GPU
// texture as needed.
package texture

import (
	"fmt"
	"image"
	"sync/atomic"

	"github.com/braheezy/gltex/batch"
	"github.com/braheezy/gltex/geom"
	"github.com/braheezy/gltex/gpu"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

const prefix = "texture: "

// Texture is a 2D texture realized lazily on the render thread.
//
// SetData, SetWidth, SetHeight, SetWrapMode, Loaded and Dispose may be
// called from any goroutine. Upload, Bind, Draw and Handle must be
// called from the render thread. Using a Texture after Dispose panics.
type Texture struct {
	ctx      gpu.Context
	affinity gpu.Affinity
	sched    *gpu.Scheduler

	queue uploadQueue

	// logical size in pixels
	width, height atomic.Int32
	// requested wrapping mode on both axes
	wrap atomic.Uint32
	// set by SetData, cleared once pixel data reaches the GPU
	transparent atomic.Bool
	disposed    atomic.Bool
	// GPU texture name, 0 until realized
	handle atomic.Uint32

	// Render thread only.
	// size of the storage behind handle
	internalWidth, internalHeight int
	// wrapping mode last sent to the GPU
	appliedWrap gpu.WrapMode
	// levels above 0 are supplied by uploads, not generated
	manualMipmaps bool
}

var _ gpu.Uploader = (*Texture)(nil)

// New creates an unrealized width×height texture on dev.
// No GPU call is made until the first upload.
func New(dev *gpu.Device, width, height int) *Texture {
	switch {
	case dev == nil:
		panic(prefix + "nil device")
	case dev.Context == nil, dev.Scheduler == nil:
		panic(prefix + "incomplete device")
	case width < 1, height < 1:
		panic(fmt.Sprintf(prefix+"invalid size %dx%d", width, height))
	}
	a := dev.Affinity
	if a == nil {
		a = gpu.NoAffinity{}
	}
	t := &Texture{ctx: dev.Context, affinity: a, sched: dev.Scheduler}
	t.width.Store(int32(width))
	t.height.Store(int32(height))
	t.wrap.Store(uint32(gpu.ClampToEdge))
	t.appliedWrap = gpu.ClampToEdge
	return t
}

func (t *Texture) assertAlive() {
	if t.disposed.Load() {
		panic(prefix + "use of disposed texture")
	}
}

// Width returns the logical width.
func (t *Texture) Width() int {
	t.assertAlive()
	return int(t.width.Load())
}

// Height returns the logical height.
func (t *Texture) Height() int {
	t.assertAlive()
	return int(t.height.Load())
}

// SetWidth changes the logical width. The GPU storage follows on
// the next upload.
func (t *Texture) SetWidth(w int) {
	t.assertAlive()
	t.width.Store(int32(w))
}

// SetHeight changes the logical height. The GPU storage follows on
// the next upload.
func (t *Texture) SetHeight(h int) {
	t.assertAlive()
	t.height.Store(int32(h))
}

// SetSize changes the logical size. Draw adds nothing while the GPU
// storage still has another size, so producers should follow a
// resize with data covering the new extent.
func (t *Texture) SetSize(w, h int) {
	t.assertAlive()
	t.width.Store(int32(w))
	t.height.Store(int32(h))
}

// WrapMode returns the requested wrap mode.
func (t *Texture) WrapMode() gpu.WrapMode {
	return gpu.WrapMode(t.wrap.Load())
}

// SetWrapMode requests a wrap mode. It is applied on the next Bind.
func (t *Texture) SetWrapMode(m gpu.WrapMode) {
	t.assertAlive()
	t.wrap.Store(uint32(m))
}

// IsTransparent reports whether data was set that has not been
// uploaded yet. A transparent texture never binds.
func (t *Texture) IsTransparent() bool { return t.transparent.Load() }

// IsDisposed reports whether Dispose has been called.
func (t *Texture) IsDisposed() bool { return t.disposed.Load() }

// Loaded reports whether t has GPU storage or is about to get it.
// A disposed texture is never loaded.
func (t *Texture) Loaded() bool {
	if t.disposed.Load() {
		return false
	}
	return t.handle.Load() != 0 || t.queue.len() > 0
}

// Pending returns the number of queued uploads.
func (t *Texture) Pending() int { return t.queue.len() }

// Handle returns the GPU texture name, uploading queued data first.
// It returns 0 while t is unrealized.
func (t *Texture) Handle() uint32 {
	t.assertAlive()
	t.affinity.AssertRenderThread()
	if t.queue.len() > 0 {
		t.Upload()
	}
	return t.handle.Load()
}

// SetData queues u for the render thread. An empty u.Bounds is
// replaced by the whole texture. Ownership of u passes to t.
// No GPU call is made; SetData may be called from any goroutine.
func (t *Texture) SetData(u *Upload) {
	t.assertAlive()
	switch {
	case u == nil:
		panic(prefix + "nil upload")
	case u.Level < 0:
		panic(prefix + "negative mip level")
	case u.released:
		panic(prefix + "upload already released")
	}
	if u.Bounds.Empty() {
		u.Bounds = image.Rect(0, 0, int(t.width.Load()), int(t.height.Load()))
	}
	t.transparent.Store(true)
	t.queue.enqueue(u)
	t.sched.EnqueueTextureUpload(t)
}

// Upload drains the queue, applying every Upload in order. It
// reports whether any of them carried pixel data. Upload returns
// false for a disposed texture, since the scheduler may still hold
// a reference to it.
func (t *Texture) Upload() bool {
	t.affinity.AssertRenderThread()
	if t.disposed.Load() {
		// SetData calls that raced with Dispose may have queued
		// after the deferred release ran.
		t.unloadPending()
		return false
	}

	var n, didUpload int
	for u := t.queue.tryDequeue(); u != nil; u = t.queue.tryDequeue() {
		if t.apply(u) {
			didUpload++
		}
		n++
	}
	if didUpload == 0 {
		return false
	}
	if !t.manualMipmaps {
		t.ctx.GenerateMipmaps()
	}
	t.transparent.Store(false)
	logger().Debug("texture upload",
		zap.Uint32("handle", t.handle.Load()),
		zap.Int("units", n),
		zap.Int("data", didUpload))
	return true
}

// apply performs the GPU calls for one Upload and releases it.
// It reports whether u carried pixel data.
func (t *Texture) apply(u *Upload) bool {
	defer u.Release()

	hasData := len(u.Data) > 0
	w, h := int(t.width.Load()), int(t.height.Load())

	if t.handle.Load() == 0 || t.internalWidth != w || t.internalHeight != h {
		t.realize(u, w, h)
		return hasData
	}
	if !hasData {
		return false
	}

	t.ctx.BindTexture(t.handle.Load())
	if !t.manualMipmaps && u.Level > 0 {
		t.allocateMipmaps(w, h)
		t.manualMipmaps = true
	}
	div := 1 << u.Level
	r := u.Bounds
	t.ctx.UploadSubImage(u.Level, r.Min.X/div, r.Min.Y/div, r.Dx()/div, r.Dy()/div, u.Format, u.Data)
	return true
}

// realize creates or reallocates the storage at w×h and writes u.
// Previous contents are discarded.
func (t *Texture) realize(u *Upload, w, h int) {
	id := t.handle.Load()
	if id == 0 {
		id = t.ctx.CreateTexture()
		t.ctx.BindTexture(id)
		t.ctx.SetFilter(gpu.LinearMipmapLinear, gpu.Linear)
		t.applyWrap()
		t.handle.Store(id)
		logger().Debug("texture created", zap.Uint32("handle", id), zap.Int("width", w), zap.Int("height", h))
	} else {
		t.ctx.BindTexture(id)
		logger().Debug("texture resized",
			zap.Uint32("handle", id),
			zap.Int("from_width", t.internalWidth), zap.Int("from_height", t.internalHeight),
			zap.Int("width", w), zap.Int("height", h))
	}
	t.internalWidth, t.internalHeight = w, h
	// Coarser levels of the old storage no longer match level 0.
	t.manualMipmaps = false

	r := u.Bounds
	if len(u.Data) == 0 || (r.Dx() == w && r.Dy() == h) {
		t.ctx.UploadImage(u.Level, w, h, u.Format, u.Data)
		return
	}
	fillOpaque(t.ctx, u.Level, w, h)
	t.ctx.UploadSubImage(u.Level, r.Min.X, r.Min.Y, r.Dx(), r.Dy(), u.Format, u.Data)
}

// allocateMipmaps specifies every level above 0 down to 1×1 as
// opaque white, so that uploads may target any of them.
func (t *Texture) allocateMipmaps(w, h int) {
	level := 1
	for d := 2; w/d > 0 || h/d > 0; d *= 2 {
		fillOpaque(t.ctx, level, max(w/d, 1), max(h/d, 1))
		level++
	}
}

func (t *Texture) applyWrap() {
	m := gpu.WrapMode(t.wrap.Load())
	t.ctx.SetWrapMode(gpu.AxisS, m)
	t.ctx.SetWrapMode(gpu.AxisT, m)
	t.appliedWrap = m
}

// Bind uploads queued data and binds t for sampling. It returns
// false, without error, while t has no storage or its latest data
// has not been uploaded.
func (t *Texture) Bind() bool {
	t.assertAlive()
	t.Upload()

	id := t.handle.Load()
	if id == 0 || t.transparent.Load() {
		return false
	}
	t.ctx.BindTexture(id)
	if t.appliedWrap != gpu.WrapMode(t.wrap.Load()) {
		t.applyWrap()
	}
	return true
}

// Draw adds a quad sampling src of t to b. A nil src selects the
// whole texture and a nil b selects batch.Default(). Drawing a
// texture that cannot be bound yet, or whose storage has not caught
// up with a resize, adds nothing.
func (t *Texture) Draw(q geom.Quad, src *geom.RectF, colour mgl32.Vec4, b batch.Batch) {
	t.assertAlive()
	if !t.Bind() {
		return
	}

	wi, hi := int(t.width.Load()), int(t.height.Load())
	if wi != t.internalWidth || hi != t.internalHeight {
		// resized since the last upload, UVs would not match the storage
		return
	}
	w, h := float32(wi), float32(hi)
	r := geom.RectF{W: w, H: h}
	if src != nil {
		r = *src
	}
	r = r.Scale(w, h)

	if b == nil {
		b = batch.Default()
	}
	b.Add(batch.Vertex{Position: q.BottomLeft, TexCoord: mgl32.Vec2{r.Left(), r.Bottom()}, Colour: colour})
	b.Add(batch.Vertex{Position: q.BottomRight, TexCoord: mgl32.Vec2{r.Right(), r.Bottom()}, Colour: colour})
	b.Add(batch.Vertex{Position: q.TopRight, TexCoord: mgl32.Vec2{r.Right(), r.Top()}, Colour: colour})
	b.Add(batch.Vertex{Position: q.TopLeft, TexCoord: mgl32.Vec2{r.Left(), r.Top()}, Colour: colour})
}

// Dispose releases t. Queued uploads are released without reaching
// the GPU, and the GPU texture is deleted on the next scheduler
// flush. Dispose may be called from any goroutine; calls after the
// first do nothing.
func (t *Texture) Dispose() {
	if t.disposed.Swap(true) {
		return
	}
	if n := t.unloadPending(); n > 0 {
		logger().Debug("texture disposed with pending uploads", zap.Int("units", n))
	}
	t.sched.ScheduleDisposal(t.release)
}

// unloadPending releases every queued upload.
func (t *Texture) unloadPending() int {
	var n int
	for u := t.queue.tryDequeue(); u != nil; u = t.queue.tryDequeue() {
		u.Release()
		n++
	}
	return n
}

// release deletes the GPU texture. It runs on the render thread.
// Failures of the context are logged, not propagated.
func (t *Texture) release() {
	t.affinity.AssertRenderThread()
	// A SetData racing with Dispose may have queued after the drain.
	t.unloadPending()

	id := t.handle.Swap(0)
	if id == 0 {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger().Warn("texture release failed", zap.Uint32("handle", id), zap.Any("panic", r))
		}
	}()
	t.ctx.DeleteTexture(id)
	logger().Debug("texture deleted", zap.Uint32("handle", id))
}

func (t *Texture) String() string {
	status := "active"
	if t.disposed.Load() {
		status = "disposed"
	}
	return fmt.Sprintf("Texture[%d %dx%d %s]", t.handle.Load(), t.width.Load(), t.height.Load(), status)
}
