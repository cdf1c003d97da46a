package main

import (
	"unsafe"

	"github.com/braheezy/gltex/batch"
	"github.com/braheezy/gltex/geom"
	"github.com/braheezy/gltex/texture"
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

const batchQuads = 256

// QuadRenderer draws batched textured quads with one shader.
// Each Draw flushes its quads, so the texture bound by the draw is
// the one they sample.
type QuadRenderer struct {
	shader        *Shader
	vao, vbo, ebo uint32
	batch         *batch.QuadBatch
}

func NewQuadRenderer(width, height int) (*QuadRenderer, error) {
	shader, err := NewShader(quadVertexShader, quadFragmentShader)
	if err != nil {
		return nil, err
	}
	shader.use()
	shader.setInt("image", 0)
	shader.setMat4("projection", mgl32.Ortho(0.0, float32(width), float32(height), 0.0, -1.0, 1.0))

	r := &QuadRenderer{shader: shader}
	r.batch = batch.NewQuadBatch(batchQuads, r.flush)

	vertexSize := int32(unsafe.Sizeof(batch.Vertex{}))
	floatSize := int(unsafe.Sizeof(float32(0)))
	indices := batch.Indices(batchQuads)

	gl.GenVertexArrays(1, &r.vao)
	gl.GenBuffers(1, &r.vbo)
	gl.GenBuffers(1, &r.ebo)

	gl.BindVertexArray(r.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, batchQuads*4*int(vertexSize), nil, gl.DYNAMIC_DRAW)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, r.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, gl.Ptr(indices), gl.STATIC_DRAW)

	// position, texCoord, colour
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 2, gl.FLOAT, false, vertexSize, 0)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(1, 2, gl.FLOAT, false, vertexSize, uintptr(2*floatSize))
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointerWithOffset(2, 4, gl.FLOAT, false, vertexSize, uintptr(4*floatSize))

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return r, nil
}

func (r *QuadRenderer) flush(vertices []batch.Vertex) {
	if len(vertices) == 0 {
		return
	}
	r.shader.use()
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindVertexArray(r.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.vbo)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(vertices)*int(unsafe.Sizeof(vertices[0])), gl.Ptr(vertices))
	gl.DrawElements(gl.TRIANGLES, int32(len(vertices)/4*6), gl.UNSIGNED_INT, nil)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)
}

// Draw draws tex stretched over dst, rotated by rotate degrees around
// its centre.
func (r *QuadRenderer) Draw(tex *texture.Texture, dst geom.RectF, rotate float32, colour mgl32.Vec4) {
	cx, cy := dst.X+dst.W/2, dst.Y+dst.H/2
	m := mgl32.Translate2D(cx, cy).
		Mul3(mgl32.HomogRotate2D(mgl32.DegToRad(rotate))).
		Mul3(mgl32.Translate2D(-cx, -cy))
	tex.Draw(geom.QuadFromRect(dst).Transform(m), nil, colour, r.batch)
	r.batch.Draw()
}

// UseAsDefault makes the renderer submit batch.Default(), so draws
// given a nil batch reach the screen. Callers must draw the default
// batch before binding another texture.
func (r *QuadRenderer) UseAsDefault() { batch.Default().SetFlush(r.flush) }

func (r *QuadRenderer) Delete() {
	gl.DeleteVertexArrays(1, &r.vao)
	gl.DeleteBuffers(1, &r.vbo)
	gl.DeleteBuffers(1, &r.ebo)
	r.shader.delete()
}
