package store

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/braheezy/gltex/gpu"
	"github.com/braheezy/gltex/gpu/soft"
	"github.com/braheezy/gltex/texture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func TestMain(m *testing.M) {
	texture.InitPlaceholder(64)
	os.Exit(m.Run())
}

func newDevice() (*gpu.Device, *soft.Context) {
	ctx := soft.New(256)
	return gpu.NewDevice(ctx, gpu.NoAffinity{}), ctx
}

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func writePNG(t *testing.T, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestLoad(t *testing.T) {
	dev, ctx := newDevice()
	s := New(dev, 2)
	red := color.NRGBA{255, 0, 0, 255}
	path := writePNG(t, "red.png", solid(16, 8, red))

	tex, err := s.Load("red", path, gpu.Repeat)
	require.NoError(t, err)
	assert.Equal(t, 16, tex.Width())
	assert.Equal(t, 8, tex.Height())
	assert.Equal(t, gpu.Repeat, tex.WrapMode())

	require.NoError(t, s.Wait())
	assert.Equal(t, 1, dev.Scheduler.Flush())
	require.True(t, tex.Bind())
	assert.Equal(t, red, ctx.Pixels(tex.Handle(), 0).NRGBAAt(15, 7))
	assert.Equal(t, gpu.Repeat, ctx.WrapMode(tex.Handle(), gpu.AxisT))

	got, ok := s.Get("red")
	assert.True(t, ok)
	assert.Same(t, tex, got)
	assert.Equal(t, 1, s.Len())
}

func TestLoadBMP(t *testing.T) {
	dev, ctx := newDevice()
	s := New(dev, 0)
	blue := color.NRGBA{0, 0, 255, 255}

	path := filepath.Join(t.TempDir(), "blue.bmp")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, bmp.Encode(f, solid(4, 4, blue)))
	require.NoError(t, f.Close())

	tex, err := s.Load("blue", path, gpu.ClampToEdge)
	require.NoError(t, err)
	require.NoError(t, s.Wait())
	dev.Scheduler.Flush()
	assert.Equal(t, blue, ctx.Pixels(tex.Handle(), 0).NRGBAAt(2, 2))
}

func TestLoadErrors(t *testing.T) {
	dev, _ := newDevice()
	s := New(dev, 1)

	_, err := s.Load("missing", filepath.Join(t.TempDir(), "nope.png"), gpu.ClampToEdge)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = s.Load("huge", writePNG(t, "huge.png", image.NewNRGBA(image.Rect(0, 0, 300, 1))), gpu.ClampToEdge)
	assert.ErrorIs(t, err, ErrTooLarge)

	path := writePNG(t, "a.png", solid(2, 2, color.NRGBA{A: 255}))
	_, err = s.Load("a", path, gpu.ClampToEdge)
	require.NoError(t, err)
	_, err = s.Load("a", path, gpu.ClampToEdge)
	assert.ErrorIs(t, err, ErrExists)
	assert.NoError(t, s.Wait())

	assert.ErrorIs(t, s.Remove("b"), ErrNotFound)

	// A GIF whose logical screen is 0x0.
	empty := filepath.Join(t.TempDir(), "empty.gif")
	require.NoError(t, os.WriteFile(empty, []byte("GIF89a\x00\x00\x00\x00\x00\x00\x00;"), 0o644))
	_, err = s.Load("empty", empty, gpu.ClampToEdge)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = s.LoadImage("none", image.NewNRGBA(image.Rectangle{}), gpu.ClampToEdge)
	assert.ErrorIs(t, err, ErrEmpty)
	_, ok := s.Get("empty")
	assert.False(t, ok)
}

func TestDecodeFailure(t *testing.T) {
	dev, ctx := newDevice()
	s := New(dev, 1)

	// Keep the signature and header chunk only.
	path := writePNG(t, "cut.png", solid(8, 8, color.NRGBA{A: 255}))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw[:33], 0o644))

	tex, err := s.Load("cut", path, gpu.ClampToEdge)
	require.NoError(t, err)
	assert.Error(t, s.Wait())

	assert.Zero(t, dev.Scheduler.Flush())
	assert.False(t, tex.Bind())
	assert.Zero(t, ctx.Live())
}

func TestLoadImageAndRemove(t *testing.T) {
	dev, ctx := newDevice()
	s := New(dev, 1)

	tex, err := s.LoadImage("img", solid(4, 4, color.NRGBA{0, 255, 0, 255}), gpu.MirroredRepeat)
	require.NoError(t, err)
	dev.Scheduler.Flush()
	require.True(t, tex.Loaded())
	assert.Equal(t, 1, ctx.Live())

	require.NoError(t, s.Remove("img"))
	assert.True(t, tex.IsDisposed())
	_, ok := s.Get("img")
	assert.False(t, ok)

	dev.Scheduler.Flush()
	assert.Zero(t, ctx.Live())
}

func TestClose(t *testing.T) {
	dev, ctx := newDevice()
	s := New(dev, 2)
	for _, name := range []string{"a", "b", "c"} {
		_, err := s.Load(name, writePNG(t, name+".png", solid(4, 4, color.NRGBA{A: 255})), gpu.ClampToEdge)
		require.NoError(t, err)
	}
	require.NoError(t, s.Wait())
	assert.Equal(t, 3, dev.Scheduler.Flush())
	assert.Equal(t, 3, ctx.Live())

	require.NoError(t, s.Close())
	assert.Zero(t, s.Len())
	_, err := s.LoadImage("d", solid(1, 1, color.NRGBA{}), gpu.ClampToEdge)
	assert.ErrorIs(t, err, ErrClosed)

	dev.Scheduler.Flush()
	assert.Zero(t, ctx.Live())
}
