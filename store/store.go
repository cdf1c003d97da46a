// Package store loads image files into named textures.
//
// Headers are read on the calling goroutine so the texture can be
// created at its final size right away; pixel decoding runs on a
// bounded pool of worker goroutines which hand the result to the
// texture with SetData. The render thread picks it up on its next
// scheduler flush.
package store

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"

	"github.com/braheezy/gltex/gpu"
	"github.com/braheezy/gltex/texture"
	"github.com/mdouchement/hdr"
	_ "github.com/mdouchement/hdr/codec/rgbe"
	"github.com/mdouchement/hdr/tmo"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the number of concurrent decodes used when New is
// given a non-positive limit.
const DefaultWorkers = 4

var (
	ErrExists   = errors.New("store: texture already loaded")
	ErrNotFound = errors.New("store: no such texture")
	ErrClosed   = errors.New("store: closed")
	ErrTooLarge = errors.New("store: image exceeds maximum texture size")
	ErrEmpty    = errors.New("store: image has no pixels")
)

// Store is a concurrent name to texture cache.
type Store struct {
	dev *gpu.Device
	g   errgroup.Group

	mu       sync.Mutex
	textures map[string]*texture.Texture
	closed   bool
}

// New creates a Store on dev that decodes at most workers images at
// a time.
func New(dev *gpu.Device, workers int) *Store {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	s := &Store{dev: dev, textures: make(map[string]*texture.Texture)}
	s.g.SetLimit(workers)
	return s
}

// Load registers the image file at path under name and returns its
// texture. The texture is sized from the file header and stays
// transparent until the background decode finishes. Load blocks
// while every worker is busy.
//
// Decode failures are reported by Wait.
func (s *Store) Load(name, path string, wrap gpu.WrapMode) (*texture.Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("store: load %q: %w", name, err)
	}
	cfg, format, err := image.DecodeConfig(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("store: load %q: %w", name, err)
	}
	if cfg.Width < 1 || cfg.Height < 1 {
		return nil, fmt.Errorf("%w: %q is %dx%d", ErrEmpty, path, cfg.Width, cfg.Height)
	}
	if limit := s.dev.Context.MaxTextureSize(); cfg.Width > limit || cfg.Height > limit {
		return nil, fmt.Errorf("%w: %q is %dx%d, limit %d", ErrTooLarge, path, cfg.Width, cfg.Height, limit)
	}

	t, err := s.add(name, cfg.Width, cfg.Height, wrap)
	if err != nil {
		return nil, err
	}
	logger().Debug("loading texture",
		zap.String("name", name),
		zap.String("path", path),
		zap.String("format", format),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height))

	s.g.Go(func() error {
		img, err := decode(path)
		if err != nil {
			logger().Warn("texture decode failed", zap.String("name", name), zap.Error(err))
			return fmt.Errorf("store: decode %q: %w", name, err)
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.textures[name] != t {
			// removed while decoding
			return nil
		}
		t.SetData(texture.UploadFromImage(img))
		return nil
	})
	return t, nil
}

// LoadImage registers an already decoded image under name. The pixels
// are queued immediately on the calling goroutine.
func (s *Store) LoadImage(name string, img image.Image, wrap gpu.WrapMode) (*texture.Texture, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: %q is %dx%d", ErrEmpty, name, b.Dx(), b.Dy())
	}
	t, err := s.add(name, b.Dx(), b.Dy(), wrap)
	if err != nil {
		return nil, err
	}
	t.SetData(texture.UploadFromImage(img))
	return t, nil
}

func (s *Store) add(name string, w, h int, wrap gpu.WrapMode) (*texture.Texture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if _, ok := s.textures[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrExists, name)
	}
	t := texture.New(s.dev, w, h)
	t.SetWrapMode(wrap)
	s.textures[name] = t
	return t, nil
}

// Get returns the texture registered under name.
func (s *Store) Get(name string) (*texture.Texture, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.textures[name]
	return t, ok
}

// Len returns the number of registered textures.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.textures)
}

// Remove disposes the texture registered under name and forgets it.
// A decode still running for it is discarded.
func (s *Store) Remove(name string) error {
	s.mu.Lock()
	t, ok := s.textures[name]
	delete(s.textures, name)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	t.Dispose()
	return nil
}

// Wait blocks until every pending decode has finished and returns the
// first decode error.
func (s *Store) Wait() error {
	return s.g.Wait()
}

// Close waits for pending decodes, then disposes every texture. The
// GPU handles are released on the next scheduler flush. Later loads
// fail with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	err := s.g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	for name, t := range s.textures {
		t.Dispose()
		delete(s.textures, name)
	}
	return err
}

// decode reads the image at path. High dynamic range images are
// tone mapped to 8 bits per channel.
func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	if m, ok := img.(hdr.Image); ok {
		img = tmo.NewDefaultReinhard05(m).Perform()
	}
	return img, nil
}
