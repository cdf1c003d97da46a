package gpu

import (
	"fmt"
	"sync/atomic"

	"github.com/petermattis/goid"
)

// Affinity checks that the caller runs on the render thread.
// AssertRenderThread panics otherwise; being off the render
// thread is a programming error, not a recoverable condition.
type Affinity interface {
	AssertRenderThread()
}

// ThreadGuard is an Affinity bound to one goroutine.
// That goroutine is expected to have called runtime.LockOSThread
// before creating the graphics context.
type ThreadGuard struct {
	owner atomic.Int64
}

// NewThreadGuard returns a ThreadGuard owned by the calling goroutine.
func NewThreadGuard() *ThreadGuard {
	g := &ThreadGuard{}
	g.owner.Store(goid.Get())
	return g
}

// Rebind moves ownership to the calling goroutine.
func (g *ThreadGuard) Rebind() { g.owner.Store(goid.Get()) }

// OnRenderThread reports whether the caller owns g.
func (g *ThreadGuard) OnRenderThread() bool { return goid.Get() == g.owner.Load() }

func (g *ThreadGuard) AssertRenderThread() {
	if id := goid.Get(); id != g.owner.Load() {
		panic(fmt.Sprintf("gpu: render thread call from goroutine %d (owner %d)", id, g.owner.Load()))
	}
}

// NoAffinity accepts calls from any goroutine.
// It is meant for tests and for contexts without thread state.
type NoAffinity struct{}

func (NoAffinity) AssertRenderThread() {}
