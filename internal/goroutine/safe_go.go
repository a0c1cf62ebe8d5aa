package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/gigboard/gig-backend/internal/logger"
)

// SafeGo запускает горутину с обработкой panic.
// Паника логируется вместе со stack trace и не роняет процесс.
func SafeGo(fn func()) {
	go func() {
		defer recoverAndLog()
		fn()
	}()
}

// SafeGoWithContext запускает горутину с контекстом и обработкой panic.
func SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	go func() {
		defer recoverAndLog()
		fn(ctx)
	}()
}

func recoverAndLog() {
	if r := recover(); r != nil && logger.Log != nil {
		logger.Log.Errorf("goroutine: паника: %v\n%s", r, debug.Stack())
	}
}
