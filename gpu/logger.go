package gpu

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// loggerPtr stores the package logger. Accessed atomically so that
// SetLogger may race with logging from any goroutine.
var loggerPtr atomic.Pointer[zap.Logger]

func init() {
	loggerPtr.Store(zap.NewNop())
}

// SetLogger sets the logger used by gpu. Passing nil disables logging.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	loggerPtr.Store(l)
}

func logger() *zap.Logger { return loggerPtr.Load() }
