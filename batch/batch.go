// Package batch collects textured vertices for submission to the GPU.
//
// Batches are used from the render thread only and are not safe for
// concurrent use.
package batch

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// Vertex is a 2D position with texture coordinates and a colour.
type Vertex struct {
	Position mgl32.Vec2
	TexCoord mgl32.Vec2
	Colour   mgl32.Vec4
}

// Batch receives vertices four at a time, one quad per group.
type Batch interface {
	Add(v Vertex)
}

// FlushFunc submits vertices. The slice is reused after it returns.
type FlushFunc func(vertices []Vertex)

// QuadBatch buffers up to size quads and flushes them when full.
// Without a FlushFunc the batch grows instead of flushing.
type QuadBatch struct {
	size     int
	vertices []Vertex
	flush    FlushFunc
	flushes  int
}

// NewQuadBatch creates a batch of size quads. size is clamped to 1.
func NewQuadBatch(size int, flush FlushFunc) *QuadBatch {
	size = max(size, 1)
	return &QuadBatch{size: size, vertices: make([]Vertex, 0, size*4), flush: flush}
}

func (b *QuadBatch) Add(v Vertex) {
	b.vertices = append(b.vertices, v)
	if b.flush != nil && len(b.vertices) >= b.size*4 {
		b.Draw()
	}
}

// Draw flushes the buffered vertices and returns how many there were.
func (b *QuadBatch) Draw() int {
	n := len(b.vertices)
	if n == 0 {
		return 0
	}
	if b.flush != nil {
		b.flush(b.vertices)
		b.flushes++
	}
	b.vertices = b.vertices[:0]
	return n
}

// SetFlush replaces the FlushFunc.
func (b *QuadBatch) SetFlush(fn FlushFunc) { b.flush = fn }

// Vertices returns the buffered vertices.
func (b *QuadBatch) Vertices() []Vertex { return b.vertices }

// Quads returns the number of complete quads buffered.
func (b *QuadBatch) Quads() int { return len(b.vertices) / 4 }

// Flushes returns how many times the FlushFunc ran.
func (b *QuadBatch) Flushes() int { return b.flushes }

// Reset drops the buffered vertices without flushing.
func (b *QuadBatch) Reset() { b.vertices = b.vertices[:0] }

// Indices returns triangle-list indices for n quads laid out as
// bottom-left, bottom-right, top-right, top-left.
func Indices(n int) []uint32 {
	idx := make([]uint32, 0, n*6)
	for i := 0; i < n; i++ {
		o := uint32(i * 4)
		idx = append(idx, o, o+1, o+2, o+2, o+3, o)
	}
	return idx
}

var (
	defaultOnce  sync.Once
	defaultBatch *QuadBatch
)

// Default returns the batch shared by draws that do not supply one.
// It has no FlushFunc until the renderer installs one with SetFlush;
// until then it only accumulates.
func Default() *QuadBatch {
	defaultOnce.Do(func() { defaultBatch = NewQuadBatch(100, nil) })
	return defaultBatch
}
