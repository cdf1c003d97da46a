package atlas

import (
	"os"
	"testing"

	"github.com/braheezy/gltex/batch"
	"github.com/braheezy/gltex/gpu"
	"github.com/braheezy/gltex/gpu/soft"
	"github.com/braheezy/gltex/texture"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

func TestMain(m *testing.M) {
	texture.InitPlaceholder(64)
	os.Exit(m.Run())
}

func newDevice(max int) (*gpu.Device, *soft.Context) {
	ctx := soft.New(max)
	return gpu.NewDevice(ctx, gpu.NoAffinity{}), ctx
}

func goRegularFace(t *testing.T, points float64) font.Face {
	t.Helper()
	ttf, err := opentype.Parse(goregular.TTF)
	require.NoError(t, err)
	face, err := opentype.NewFace(ttf, &opentype.FaceOptions{Size: points, DPI: 72})
	require.NoError(t, err)
	return face
}

func TestGoRegular(t *testing.T) {
	dev, ctx := newDevice(1024)
	a, err := NewGoRegular(dev, 16, 64)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, 95, a.Len())
	// 95 glyphs at 16pt do not fit in 64×64.
	size := a.Texture().Width()
	assert.Greater(t, size, 64)
	assert.Equal(t, size, a.Texture().Height())

	space, ok := a.Glyph(' ')
	require.True(t, ok)
	assert.Zero(t, space.Bounds.W)
	assert.Greater(t, space.Advance, float32(0))

	_, ok = a.Glyph('世')
	assert.False(t, ok)

	assert.Equal(t, 1, dev.Scheduler.Flush())
	require.True(t, a.Texture().Bind())
	px := ctx.Pixels(a.Texture().Handle(), 0)
	require.NotNil(t, px)
	assert.Equal(t, size, px.Rect.Dx())

	// Some ink inside the glyph cell, none outside it.
	h, ok := a.Glyph('H')
	require.True(t, ok)
	var ink int
	for y := int(h.Bounds.Top()); y < int(h.Bounds.Bottom()); y++ {
		for x := int(h.Bounds.Left()); x < int(h.Bounds.Right()); x++ {
			c := px.NRGBAAt(x, y)
			if c.A > 0 {
				assert.Equal(t, uint8(0xff), c.R)
				ink++
			}
		}
	}
	assert.Greater(t, ink, 0)
	assert.Zero(t, px.NRGBAAt(0, 0).A)
}

func TestAddUsesSubUploads(t *testing.T) {
	dev, ctx := newDevice(1024)
	a, err := NewGoRegular(dev, 12, 512)
	require.NoError(t, err)
	dev.Scheduler.Flush()
	before := ctx.Stats()

	require.NoError(t, a.Add('é', 'ß'))
	assert.Equal(t, 97, a.Len())
	assert.Equal(t, 2, a.Texture().Pending())
	dev.Scheduler.Flush()

	after := ctx.Stats()
	assert.Equal(t, before.Uploads, after.Uploads)
	assert.Equal(t, before.SubUploads+2, after.SubUploads)
	assert.Equal(t, 512, a.Texture().Width())

	// Already present.
	require.NoError(t, a.Add('é'))
	assert.Zero(t, a.Texture().Pending())
}

func TestFull(t *testing.T) {
	dev, _ := newDevice(32)
	a, err := NewGoRegular(dev, 48, 16)
	assert.ErrorIs(t, err, ErrFull)
	assert.Nil(t, a)
}

func TestDraw(t *testing.T) {
	dev, _ := newDevice(1024)
	a, err := NewGoRegular(dev, 16, 256)
	require.NoError(t, err)
	dev.Scheduler.Flush()

	b := batch.NewQuadBatch(16, nil)
	white := mgl32.Vec4{1, 1, 1, 1}
	end := a.Draw("a b", 10, 20, 1, white, b)

	ga, _ := a.Glyph('a')
	gb, _ := a.Glyph('b')
	gs, _ := a.Glyph(' ')
	assert.InDelta(t, 10+ga.Advance+gs.Advance+gb.Advance, end, 1e-4)
	assert.Equal(t, 2, b.Quads())

	// Bottom-left vertex of 'a' sits at its bearing below the dot.
	v := b.Vertices()[0]
	assert.InDelta(t, 10+ga.Bearing.X(), v.Position.X(), 1e-4)
	assert.InDelta(t, 20+ga.Bearing.Y()+ga.Bounds.H, v.Position.Y(), 1e-4)
	assert.InDelta(t, ga.Bounds.Left()/256, v.TexCoord.X(), 1e-6)
	assert.Equal(t, white, v.Colour)
}

func TestCloseBeforeUpload(t *testing.T) {
	dev, ctx := newDevice(1024)
	face := goRegularFace(t, 12)
	a := New(dev, face, 64)
	require.NoError(t, a.Add('x', '世'))
	assert.Equal(t, 1, a.Len())

	// Close before the render thread ever saw the atlas.
	require.NoError(t, a.Close())
	assert.Zero(t, a.Texture().Pending())
	dev.Scheduler.Flush()
	assert.Zero(t, ctx.Live())
}
