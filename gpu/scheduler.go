package gpu

import (
	"sync"

	"go.uber.org/zap"
)

// Uploader is a resource with GPU work pending for the render thread.
type Uploader interface {
	// Upload performs the pending work and reports whether any
	// pixel data reached the GPU.
	Upload() bool
}

// Scheduler collects resources that became dirty on arbitrary
// goroutines and hands them to the render thread once per frame.
//
// EnqueueTextureUpload and ScheduleDisposal may be called from any
// goroutine; Flush must be called from the render thread.
type Scheduler struct {
	affinity Affinity

	mu        sync.Mutex
	pending   []Uploader
	queued    map[Uploader]struct{}
	disposals []func()
}

// NewScheduler creates a Scheduler whose Flush is guarded by a.
func NewScheduler(a Affinity) *Scheduler {
	if a == nil {
		a = NoAffinity{}
	}
	return &Scheduler{affinity: a, queued: make(map[Uploader]struct{})}
}

// EnqueueTextureUpload marks u as dirty. Enqueuing a resource that
// is already pending is a no-op.
func (s *Scheduler) EnqueueTextureUpload(u Uploader) {
	s.mu.Lock()
	if _, ok := s.queued[u]; !ok {
		s.queued[u] = struct{}{}
		s.pending = append(s.pending, u)
	}
	s.mu.Unlock()
}

// ScheduleDisposal defers fn to the next Flush.
func (s *Scheduler) ScheduleDisposal(fn func()) {
	s.mu.Lock()
	s.disposals = append(s.disposals, fn)
	s.mu.Unlock()
}

// Pending returns the number of dirty resources and queued disposals.
func (s *Scheduler) Pending() (uploads, disposals int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending), len(s.disposals)
}

// Flush uploads every dirty resource in the order it was first
// marked, then runs the queued disposals. It returns how many
// resources uploaded pixel data.
// Resources marked dirty while Flush runs are kept for the next call.
func (s *Scheduler) Flush() int {
	s.affinity.AssertRenderThread()

	s.mu.Lock()
	pending := s.pending
	disposals := s.disposals
	s.pending = nil
	s.disposals = nil
	clear(s.queued)
	s.mu.Unlock()

	var n int
	for _, u := range pending {
		if u.Upload() {
			n++
		}
	}
	for _, fn := range disposals {
		fn()
	}
	if len(pending) > 0 || len(disposals) > 0 {
		logger().Debug("scheduler flush",
			zap.Int("dirty", len(pending)),
			zap.Int("uploaded", n),
			zap.Int("disposed", len(disposals)))
	}
	return n
}
