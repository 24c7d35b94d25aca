package safe

import (
	"GVChat/logger"
	"GVChat/tools/errs"

	"go.uber.org/zap"
)

// Go starts f in a goroutine that logs and swallows panics, so one bad
// connection cannot take the gateway down.
func Go(name string, f func()) {
	go func() {
		defer Recover(name)
		f()
	}()
}

// Recover is meant to be deferred; it logs a recovered panic with its stack.
func Recover(name string) {
	if r := recover(); r != nil {
		logger.Error("panic recovered", zap.String("where", name), zap.Error(errs.ErrPanic(r)), zap.Stack("stack"))
	}
}
