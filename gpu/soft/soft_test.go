package soft

import (
	"image"
	"image/color"
	"testing"

	"github.com/braheezy/gltex/gpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadAndReadBack(t *testing.T) {
	c := New(16)
	id := c.CreateTexture()
	require.NotZero(t, id)
	c.BindTexture(id)

	c.UploadImage(0, 2, 2, gpu.RGBA8, []byte{
		1, 2, 3, 4, 5, 6, 7, 8,
		9, 10, 11, 12, 13, 14, 15, 16,
	})
	px := c.Pixels(id, 0)
	require.NotNil(t, px)
	assert.Equal(t, color.NRGBA{5, 6, 7, 8}, px.NRGBAAt(1, 0))
	assert.Equal(t, color.NRGBA{9, 10, 11, 12}, px.NRGBAAt(0, 1))

	c.UploadSubImage(0, 1, 1, 1, 1, gpu.BGRA8, []byte{30, 20, 10, 40})
	assert.Equal(t, color.NRGBA{10, 20, 30, 40}, c.Pixels(id, 0).NRGBAAt(1, 1))

	// Readback is a copy.
	px.Pix[0] = 99
	assert.Equal(t, uint8(1), c.Pixels(id, 0).Pix[0])
}

func TestGenerateMipmaps(t *testing.T) {
	c := New(64)
	id := c.CreateTexture()
	c.BindTexture(id)
	data := make([]byte, 8*4*4)
	for i := range data {
		data[i] = 255
	}
	c.UploadImage(0, 8, 4, gpu.RGBA8, data)
	c.GenerateMipmaps()

	require.Equal(t, 4, c.Levels(id))
	assert.Equal(t, image.Rect(0, 0, 4, 2), c.Pixels(id, 1).Rect)
	assert.Equal(t, image.Rect(0, 0, 2, 1), c.Pixels(id, 2).Rect)
	assert.Equal(t, image.Rect(0, 0, 1, 1), c.Pixels(id, 3).Rect)
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, c.Pixels(id, 3).NRGBAAt(0, 0))
}

func TestContractViolations(t *testing.T) {
	c := New(8)
	assert.Panics(t, func() { c.UploadImage(0, 1, 1, gpu.RGBA8, nil) }, "nothing bound")

	id := c.CreateTexture()
	c.BindTexture(id)
	assert.Panics(t, func() { c.UploadImage(0, 9, 1, gpu.RGBA8, nil) }, "too large")
	assert.Panics(t, func() { c.UploadSubImage(0, 0, 0, 1, 1, gpu.RGBA8, nil) }, "level missing")

	c.UploadImage(0, 4, 4, gpu.RGBA8, nil)
	assert.Panics(t, func() { c.UploadSubImage(0, 3, 3, 2, 2, gpu.RGBA8, make([]byte, 16)) }, "out of bounds")
	assert.Panics(t, func() { c.DeleteTexture(id + 1) })
	assert.Panics(t, func() { c.BindTexture(id + 1) })

	c.DeleteTexture(id)
	assert.Zero(t, c.Live())
	assert.Nil(t, c.Pixels(id, 0))

	c.Lose()
	assert.Panics(t, func() { c.CreateTexture() })
}

func TestStats(t *testing.T) {
	c := New(0)
	assert.Equal(t, DefaultMaxTextureSize, c.MaxTextureSize())

	id := c.CreateTexture()
	c.BindTexture(id)
	c.SetFilter(gpu.LinearMipmapLinear, gpu.Linear)
	c.SetWrapMode(gpu.AxisS, gpu.MirroredRepeat)
	c.UploadImage(0, 1, 1, gpu.RGBA8, nil)
	c.DeleteTexture(id)

	s := c.Stats()
	assert.Equal(t, Stats{Creates: 1, Deletes: 1, Binds: 1, Uploads: 1, WrapSets: 1, FilterSets: 1}, s)
	assert.Equal(t, 6, s.Calls())
}
