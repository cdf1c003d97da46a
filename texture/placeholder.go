package texture

import (
	"sync"

	"github.com/braheezy/gltex/gpu"
)

// DefaultPlaceholderSize bounds the side of the placeholder when it
// is created lazily.
const DefaultPlaceholderSize = 2048

// The placeholder is opaque white. It fills the parts of a level
// that an upload does not cover, so that filtering near the edges
// of the supplied data never blends against undefined alpha.
// It is written once and only read afterwards.
var placeholder struct {
	once sync.Once
	size int
	buf  []byte
}

// InitPlaceholder creates the placeholder with room for a size×size
// RGBA8 region. Only the first call has an effect; it reports
// whether this call created it. Call it at startup to control the
// memory spent on padding; otherwise the first upload that needs it
// picks min(MaxTextureSize, DefaultPlaceholderSize).
func InitPlaceholder(size int) bool {
	var created bool
	placeholder.once.Do(func() {
		size = max(size, 1)
		buf := make([]byte, size*size*4)
		for i := range buf {
			buf[i] = 0xff
		}
		placeholder.size = size
		placeholder.buf = buf
		created = true
	})
	return created
}

// PlaceholderSize returns the side of the placeholder, or 0 if it
// has not been created.
func PlaceholderSize() int { return placeholder.size }

// fillOpaque specifies level as w×h of opaque white. Levels larger
// than the placeholder are allocated empty and tiled.
func fillOpaque(ctx gpu.Context, level, w, h int) {
	InitPlaceholder(min(ctx.MaxTextureSize(), DefaultPlaceholderSize))
	buf, size := placeholder.buf, placeholder.size

	if n := w * h * 4; n <= len(buf) {
		ctx.UploadImage(level, w, h, gpu.RGBA8, buf[:n])
		return
	}
	ctx.UploadImage(level, w, h, gpu.RGBA8, nil)
	for y := 0; y < h; y += size {
		th := min(size, h-y)
		for x := 0; x < w; x += size {
			tw := min(size, w-x)
			ctx.UploadSubImage(level, x, y, tw, th, gpu.RGBA8, buf[:tw*th*4])
		}
	}
}
