// Package gpu defines the narrow view of a graphics context that
// texture resources need, along with the render thread guard and
// the per-frame scheduler of pending texture work.
package gpu

import "fmt"

// Context wraps the graphics context owned by the render thread.
// Every method except MaxTextureSize must be called from that thread.
//
// Upload methods operate on the texture most recently passed to
// BindTexture.
type Context interface {
	// CreateTexture returns a new texture name. Zero is never returned.
	CreateTexture() uint32
	// DeleteTexture releases the texture name id.
	DeleteTexture(id uint32)
	// BindTexture makes id the current 2D texture.
	BindTexture(id uint32)
	// UploadImage (re)allocates the given level with size w×h.
	// A nil data leaves the contents undefined.
	UploadImage(level, w, h int, f PixelFormat, data []byte)
	// UploadSubImage writes data into the rectangle (x, y, w, h)
	// of the given level.
	UploadSubImage(level, x, y, w, h int, f PixelFormat, data []byte)
	SetWrapMode(a Axis, m WrapMode)
	SetFilter(min, mag Filter)
	// GenerateMipmaps regenerates every level above 0 from level 0.
	GenerateMipmaps()
	// MaxTextureSize is the largest width or height accepted.
	MaxTextureSize() int
}

// PixelFormat is the layout of client-side pixel data.
type PixelFormat uint8

const (
	RGBA8 PixelFormat = iota
	BGRA8
)

func (f PixelFormat) String() string {
	switch f {
	case RGBA8:
		return "RGBA8"
	case BGRA8:
		return "BGRA8"
	default:
		return fmt.Sprintf("PixelFormat(%d)", f)
	}
}

// BytesPerPixel returns the size of one pixel in f.
func (f PixelFormat) BytesPerPixel() int { return 4 }

// WrapMode describes how coordinates outside [0, 1] are sampled.
type WrapMode uint8

const (
	ClampToEdge WrapMode = iota
	Repeat
	MirroredRepeat
)

func (m WrapMode) String() string {
	switch m {
	case ClampToEdge:
		return "clamp"
	case Repeat:
		return "repeat"
	case MirroredRepeat:
		return "mirror"
	default:
		return fmt.Sprintf("WrapMode(%d)", m)
	}
}

// ParseWrapMode parses the names returned by WrapMode.String.
func ParseWrapMode(s string) (WrapMode, error) {
	switch s {
	case "", "clamp":
		return ClampToEdge, nil
	case "repeat":
		return Repeat, nil
	case "mirror":
		return MirroredRepeat, nil
	}
	return 0, fmt.Errorf("gpu: unknown wrap mode %q", s)
}

// Axis selects a texture coordinate.
type Axis uint8

const (
	AxisS Axis = iota
	AxisT
)

// Filter is a texture sampling filter.
type Filter uint8

const (
	Nearest Filter = iota
	Linear
	LinearMipmapLinear
)

// Device bundles the render thread state a texture depends on.
type Device struct {
	Context   Context
	Affinity  Affinity
	Scheduler *Scheduler
}

// NewDevice creates a Device with a fresh Scheduler guarded by a.
// A nil a disables the render thread check.
func NewDevice(ctx Context, a Affinity) *Device {
	if a == nil {
		a = NoAffinity{}
	}
	return &Device{Context: ctx, Affinity: a, Scheduler: NewScheduler(a)}
}
