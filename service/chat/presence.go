package chat

import (
	"context"
	"sync"
	"time"

	"GVChat/logger"
	"GVChat/tools/errs"

	"go.uber.org/zap"
)

// PresencePolicy decides when a disconnect flips a user offline.
type PresencePolicy string

const (
	// PresenceAny goes offline on any disconnect, even with other
	// connections still open.
	PresenceAny PresencePolicy = "any"
	// PresenceLast goes offline when the user's last connection closes.
	PresenceLast PresencePolicy = "last"
)

func ParsePresencePolicy(s string) (PresencePolicy, error) {
	switch PresencePolicy(s) {
	case "", PresenceAny:
		return PresenceAny, nil
	case PresenceLast:
		return PresenceLast, nil
	}
	return "", errs.ErrArgs.WrapMsg("unknown presence policy", "policy", s)
}

// ConnCounter counts live connections per user. Decr never goes below zero.
type ConnCounter interface {
	Incr(ctx context.Context, userID int64) (int64, error)
	Decr(ctx context.Context, userID int64) (int64, error)
}

// MemoryCounter is the single-node ConnCounter.
type MemoryCounter struct {
	mu sync.Mutex
	n  map[int64]int64
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{n: make(map[int64]int64)}
}

func (m *MemoryCounter) Incr(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n[userID]++
	return m.n[userID], nil
}

func (m *MemoryCounter) Decr(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.n[userID] - 1
	if v <= 0 {
		delete(m.n, userID)
		return 0, nil
	}
	m.n[userID] = v
	return v, nil
}

func (m *MemoryCounter) Count(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.n[userID], nil
}

// Tracker ties presence to the connection lifecycle. Mutations for one user
// are serialized; different users proceed in parallel.
type Tracker struct {
	dir     Directory
	reg     *Registry
	policy  PresencePolicy
	counter ConnCounter
	locks   userLocks
	now     func() time.Time
}

func NewTracker(dir Directory, reg *Registry, policy PresencePolicy, counter ConnCounter) *Tracker {
	if counter == nil {
		counter = NewMemoryCounter()
	}
	if policy == "" {
		policy = PresenceAny
	}
	return &Tracker{
		dir:     dir,
		reg:     reg,
		policy:  policy,
		counter: counter,
		locks:   userLocks{m: make(map[int64]*userLock)},
		now:     time.Now,
	}
}

func (t *Tracker) Policy() PresencePolicy { return t.policy }

// OnConnect marks the user online and joins the connection to the user's
// personal room.
func (t *Tracker) OnConnect(ctx context.Context, c *Conn) error {
	uid, ok := c.UserID()
	if !ok {
		return errs.ErrUnauthorized.WrapMsg("connect without user", "conn", c.ID())
	}
	unlock := t.locks.lock(uid)
	defer unlock()

	if err := t.dir.SetOnline(ctx, uid, true, t.now().UTC()); err != nil {
		return err
	}
	if _, err := t.counter.Incr(ctx, uid); err != nil {
		logger.Warn("presence counter incr", zap.Int64("user", uid), zap.Error(err))
	}
	c.present.Store(true)
	t.reg.Join(c, UserRoom(uid))
	return nil
}

// OnDisconnect marks the user offline according to the policy. Connections
// that never completed OnConnect are ignored.
func (t *Tracker) OnDisconnect(ctx context.Context, c *Conn) error {
	uid, ok := c.UserID()
	if !ok || !c.present.Swap(false) {
		return nil
	}
	unlock := t.locks.lock(uid)
	defer unlock()

	left, err := t.counter.Decr(ctx, uid)
	if err != nil {
		logger.Warn("presence counter decr", zap.Int64("user", uid), zap.Error(err))
		left = 0
	}
	if t.policy == PresenceLast && left > 0 {
		return nil
	}
	return t.dir.SetOnline(ctx, uid, false, t.now().UTC())
}

type userLock struct {
	sync.Mutex
	refs int
}

// userLocks hands out one mutex per user id, freed when nobody holds it.
type userLocks struct {
	mu sync.Mutex
	m  map[int64]*userLock
}

func (l *userLocks) lock(id int64) func() {
	l.mu.Lock()
	ul := l.m[id]
	if ul == nil {
		ul = &userLock{}
		l.m[id] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.Lock()
	return func() {
		ul.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.m, id)
		}
		l.mu.Unlock()
	}
}
