package kafka

import (
	"context"
	"reflect"
	"sort"
	"sync"

	"GVChat/tools/errs"
)

type MessageHandler func(ctx context.Context, topic string, key, value []byte) error

// Router maps topics to their handler.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]MessageHandler
}

func NewRouter() *Router {
	return &Router{handlers: make(map[string]MessageHandler)}
}

// Register is idempotent for the same function; a different handler for a
// taken topic is rejected and the old one kept.
func (r *Router) Register(topic string, h MessageHandler) (ok bool, duplicated bool) {
	if h == nil || topic == "" {
		return false, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, exists := r.handlers[topic]; exists {
		return reflect.ValueOf(old).Pointer() == reflect.ValueOf(h).Pointer(), true
	}
	r.handlers[topic] = h
	return true, false
}

func (r *Router) Get(topic string) (MessageHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if h, ok := r.handlers[topic]; ok {
		return h, nil
	}
	return nil, errs.ErrRecordNotFound.WrapMsg("no handler for topic", "topic", topic)
}

func (r *Router) Topics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (r *Router) dispatch(ctx context.Context, topic string, key, value []byte) error {
	h, err := r.Get(topic)
	if err != nil {
		return err
	}
	return h(ctx, topic, key, value)
}
