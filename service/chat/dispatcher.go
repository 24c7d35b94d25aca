package chat

import (
	"GVChat/logger"
	"GVChat/tools/errs"

	"go.uber.org/zap"
)

type Dispatcher struct {
	handlers map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

func (d *Dispatcher) Register(h Handler) { d.handlers[h.Event()] = h }

func (d *Dispatcher) GetHandler(event string) Handler {
	return d.handlers[event]
}

// Dispatch runs the handler for event. Unknown events are invalid; a
// panicking handler counts as failed and does not kill the read loop.
func (d *Dispatcher) Dispatch(ctx *Context, c *Conn, event string, data []byte) (out Outcome) {
	h, ok := d.handlers[event]
	if !ok {
		logger.Debug("no handler", zap.String("event", event), zap.String("conn", c.ID()))
		return OutcomeInvalid
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("handler panic", zap.String("event", event), zap.String("conn", c.ID()),
				zap.Error(errs.ErrPanic(r)), zap.Stack("stack"))
			out = OutcomeFailed
		}
	}()
	return h.Handle(ctx, c, data)
}
