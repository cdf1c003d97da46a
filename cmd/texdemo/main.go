// Command texdemo opens a window and draws textures that are decoded
// and updated on background goroutines.
//
// Usage:
//
//	texdemo [-config texdemo.toml]
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"log"
	"runtime"
	"time"

	"github.com/braheezy/gltex/atlas"
	"github.com/braheezy/gltex/batch"
	"github.com/braheezy/gltex/geom"
	"github.com/braheezy/gltex/gpu"
	"github.com/braheezy/gltex/gpu/glctx"
	"github.com/braheezy/gltex/store"
	"github.com/braheezy/gltex/texture"
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

const (
	tileSize  = 160
	tileGap   = 16
	plasmaDim = 128
)

func init() {
	// This is needed to arrange that main() runs on main thread.
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()
	gpu.SetLogger(logger.Named("gpu"))
	texture.SetLogger(logger.Named("texture"))
	store.SetLogger(logger.Named("store"))
	atlas.SetLogger(logger.Named("atlas"))

	if err := run(cfg, logger); err != nil {
		logger.Fatal("texdemo failed", zap.Error(err))
	}
}

func run(cfg *Config, logger *zap.Logger) error {
	//* GLFW init and configure
	if err := glfw.Init(); err != nil {
		return err
	}
	defer glfw.Terminate()
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.False)

	//* GLFW window creation
	window, err := glfw.CreateWindow(cfg.Window.Width, cfg.Window.Height, cfg.Window.Title, nil, nil)
	if err != nil {
		return err
	}
	window.MakeContextCurrent()
	window.SetFramebufferSizeCallback(framebufferSizeCallback)
	window.SetKeyCallback(keyCallback)

	//* Load OS-specific OpenGL function pointers
	if err := gl.Init(); err != nil {
		return err
	}
	logger.Info("OpenGL ready", zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))))

	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)

	ctx := glctx.New()
	dev := gpu.NewDevice(ctx, gpu.NewThreadGuard())
	texture.InitPlaceholder(min(cfg.PlaceholderSize, ctx.MaxTextureSize()))

	renderer, err := NewQuadRenderer(cfg.Window.Width, cfg.Window.Height)
	if err != nil {
		return err
	}
	defer renderer.Delete()
	renderer.UseAsDefault()
	defer batch.Default().SetFlush(nil)

	st := store.New(dev, cfg.Workers)
	var tiles []*texture.Texture
	for _, tc := range cfg.Textures {
		wrap, _ := gpu.ParseWrapMode(tc.Wrap)
		tex, err := st.Load(tc.Name, tc.Path, wrap)
		if err != nil {
			logger.Warn("skipping texture", zap.String("name", tc.Name), zap.Error(err))
			continue
		}
		tiles = append(tiles, tex)
	}
	go func() {
		if err := st.Wait(); err != nil {
			logger.Warn("some textures failed to load", zap.Error(err))
		}
	}()

	text, err := atlas.NewGoRegular(dev, cfg.FontSize, 256)
	if err != nil {
		return err
	}

	// A texture fed by its own goroutine, one sub-rectangle at a time.
	plasma := texture.New(dev, plasmaDim, plasmaDim)
	plasma.SetWrapMode(gpu.Repeat)
	animCtx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		animate(animCtx, plasma)
	}()

	white := mgl32.Vec4{1, 1, 1, 1}
	lastFrame := glfw.GetTime()
	frames, fps := 0, 0
	for !window.ShouldClose() {
		glfw.PollEvents()

		gl.ClearColor(0.1, 0.1, 0.1, 1.0)
		gl.Clear(gl.COLOR_BUFFER_BIT)

		uploaded := dev.Scheduler.Flush()

		t := float32(glfw.GetTime())
		x, y := float32(tileGap), float32(tileGap)
		for _, tex := range append([]*texture.Texture{plasma}, tiles...) {
			renderer.Draw(tex, geom.RectF{X: x, Y: y, W: tileSize, H: tileSize}, 10*t, white)
			x += tileSize + tileGap
			if x+tileSize > float32(cfg.Window.Width) {
				x, y = tileGap, y+tileSize+tileGap
			}
		}

		status := fmt.Sprintf("%d fps  %d textures  %d uploaded", fps, len(tiles)+1, uploaded)
		baseline := float32(cfg.Window.Height) - float32(text.Metrics().Descent.Ceil()) - tileGap
		text.Draw(status, tileGap, baseline, 1, white, nil)
		batch.Default().Draw()

		if err := ctx.CheckError("frame"); err != nil {
			logger.Warn("GL error", zap.Error(err))
		}
		window.SwapBuffers()

		frames++
		if now := glfw.GetTime(); now-lastFrame >= 1 {
			fps, frames, lastFrame = frames, 0, now
		}
	}

	stop()
	<-done
	plasma.Dispose()
	text.Close()
	if err := st.Close(); err != nil {
		logger.Warn("closing store", zap.Error(err))
	}
	// Run the deferred deletions while the context is still current.
	dev.Scheduler.Flush()
	return nil
}

// animate writes a moving pattern into tex, one horizontal band per
// tick, until ctx is done.
func animate(ctx context.Context, tex *texture.Texture) {
	var pool texture.BufferPool
	const band = plasmaDim / 8
	ticker := time.NewTicker(16 * time.Millisecond)
	defer ticker.Stop()
	for frame := 0; ; frame++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		row := (frame % 8) * band
		u := pool.NewUpload(plasmaDim, band)
		for y := 0; y < band; y++ {
			for x := 0; x < plasmaDim; x++ {
				i := (y*plasmaDim + x) * 4
				u.Data[i] = byte(x*2 + frame)
				u.Data[i+1] = byte((row+y)*2 - frame)
				u.Data[i+2] = byte(x ^ (row + y) + frame/2)
				u.Data[i+3] = 0xff
			}
		}
		u.Bounds = u.Bounds.Add(image.Pt(0, row))
		tex.SetData(u)
	}
}

func framebufferSizeCallback(w *glfw.Window, width int, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
}

func keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if key == glfw.KeyEscape && action == glfw.Press {
		w.SetShouldClose(true)
	}
}
