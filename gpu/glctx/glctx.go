// Package glctx implements gpu.Context on top of OpenGL 4.1 core.
//
// A Context must be created on the goroutine that made the GL
// context current (after gl.Init) and used only from there.
package glctx

import (
	"fmt"
	"unsafe"

	"github.com/braheezy/gltex/gpu"
	"github.com/go-gl/gl/v4.1-core/gl"
)

// Context issues texture calls to the current OpenGL context.
type Context struct {
	maxSize int
	bound   uint32
}

var _ gpu.Context = (*Context)(nil)

// New queries the context limits. gl.Init must have been called.
func New() *Context {
	var max int32
	gl.GetIntegerv(gl.MAX_TEXTURE_SIZE, &max)
	// Textures are uploaded tightly packed.
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	return &Context{maxSize: int(max)}
}

func (c *Context) MaxTextureSize() int { return c.maxSize }

func (c *Context) CreateTexture() uint32 {
	var id uint32
	gl.GenTextures(1, &id)
	return id
}

func (c *Context) DeleteTexture(id uint32) {
	if c.bound == id {
		c.bound = 0
	}
	gl.DeleteTextures(1, &id)
}

// BindTexture skips redundant binds of the same texture.
func (c *Context) BindTexture(id uint32) {
	if c.bound == id {
		return
	}
	gl.BindTexture(gl.TEXTURE_2D, id)
	c.bound = id
}

func (c *Context) UploadImage(level, w, h int, f gpu.PixelFormat, data []byte) {
	gl.TexImage2D(gl.TEXTURE_2D, int32(level), gl.RGBA8, int32(w), int32(h), 0, glFormat(f), gl.UNSIGNED_BYTE, ptr(data))
}

func (c *Context) UploadSubImage(level, x, y, w, h int, f gpu.PixelFormat, data []byte) {
	gl.TexSubImage2D(gl.TEXTURE_2D, int32(level), int32(x), int32(y), int32(w), int32(h), glFormat(f), gl.UNSIGNED_BYTE, ptr(data))
}

func (c *Context) SetWrapMode(a gpu.Axis, m gpu.WrapMode) {
	pname := uint32(gl.TEXTURE_WRAP_S)
	if a == gpu.AxisT {
		pname = gl.TEXTURE_WRAP_T
	}
	gl.TexParameteri(gl.TEXTURE_2D, pname, glWrap(m))
}

func (c *Context) SetFilter(min, mag gpu.Filter) {
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, glFilter(min))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, glFilter(mag))
}

func (c *Context) GenerateMipmaps() {
	gl.GenerateMipmap(gl.TEXTURE_2D)
}

// CheckError drains the GL error queue and returns the first error.
func (c *Context) CheckError(op string) error {
	var first uint32
	for code := gl.GetError(); code != gl.NO_ERROR; code = gl.GetError() {
		if first == 0 {
			first = code
		}
	}
	if first == 0 {
		return nil
	}
	return fmt.Errorf("glctx: %s: %s", op, errorName(first))
}

func ptr(data []byte) unsafe.Pointer {
	if len(data) == 0 {
		return nil
	}
	return gl.Ptr(data)
}

func glFormat(f gpu.PixelFormat) uint32 {
	if f == gpu.BGRA8 {
		return gl.BGRA
	}
	return gl.RGBA
}

func glWrap(m gpu.WrapMode) int32 {
	switch m {
	case gpu.Repeat:
		return gl.REPEAT
	case gpu.MirroredRepeat:
		return gl.MIRRORED_REPEAT
	default:
		return gl.CLAMP_TO_EDGE
	}
}

func glFilter(f gpu.Filter) int32 {
	switch f {
	case gpu.Nearest:
		return gl.NEAREST
	case gpu.LinearMipmapLinear:
		return gl.LINEAR_MIPMAP_LINEAR
	default:
		return gl.LINEAR
	}
}

func errorName(code uint32) string {
	switch code {
	case gl.INVALID_ENUM:
		return "GL_INVALID_ENUM"
	case gl.INVALID_VALUE:
		return "GL_INVALID_VALUE"
	case gl.INVALID_OPERATION:
		return "GL_INVALID_OPERATION"
	case gl.OUT_OF_MEMORY:
		return "GL_OUT_OF_MEMORY"
	case gl.INVALID_FRAMEBUFFER_OPERATION:
		return "GL_INVALID_FRAMEBUFFER_OPERATION"
	default:
		return fmt.Sprintf("GL error 0x%x", code)
	}
}
