package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	usermodel "GVChat/module/user/model"
	"GVChat/tools/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memDir is an in-memory Directory.
type memDir struct {
	mu      sync.Mutex
	users   map[int64]*usermodel.User
	members map[[2]int64]bool
	events  map[[2]int64]bool
	calls   []bool
}

func newMemDir(users ...*usermodel.User) *memDir {
	d := &memDir{
		users:   make(map[int64]*usermodel.User),
		members: make(map[[2]int64]bool),
		events:  make(map[[2]int64]bool),
	}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *memDir) Get(_ context.Context, id int64) (*usermodel.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return nil, errs.ErrRecordNotFound.WrapMsg("user", "id", id)
	}
	cp := *u
	return &cp, nil
}

func (d *memDir) SetOnline(_ context.Context, id int64, online bool, at time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return errs.ErrRecordNotFound.WrapMsg("user", "id", id)
	}
	u.IsOnline, u.LastSeen = online, at
	d.calls = append(d.calls, online)
	return nil
}

func (d *memDir) IsCommunityMember(_ context.Context, userID, communityID int64) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.members[[2]int64{userID, communityID}], nil
}

func (d *memDir) IsEventParticipant(_ context.Context, userID, eventID int64) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.events[[2]int64{userID, eventID}], nil
}

func (d *memDir) online(id int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.users[id].IsOnline
}

func authedConn(uid int64) *Conn {
	c := NewConn(16, "")
	c.Authenticate(uid)
	return c
}

func TestPresenceAnyPolicy(t *testing.T) {
	dir := newMemDir(&usermodel.User{ID: 1, Username: "alice"})
	reg := NewRegistry()
	tr := NewTracker(dir, reg, PresenceAny, nil)
	ctx := context.Background()

	c1, c2 := authedConn(1), authedConn(1)
	require.NoError(t, tr.OnConnect(ctx, c1))
	require.NoError(t, tr.OnConnect(ctx, c2))
	assert.True(t, dir.online(1))
	assert.Equal(t, 2, reg.Members("user_1"))

	require.NoError(t, tr.OnDisconnect(ctx, c1))
	assert.False(t, dir.online(1), "any disconnect flips offline")
}

func TestPresenceLastPolicy(t *testing.T) {
	dir := newMemDir(&usermodel.User{ID: 1, Username: "alice"})
	tr := NewTracker(dir, NewRegistry(), PresenceLast, NewMemoryCounter())
	ctx := context.Background()

	c1, c2 := authedConn(1), authedConn(1)
	require.NoError(t, tr.OnConnect(ctx, c1))
	require.NoError(t, tr.OnConnect(ctx, c2))

	require.NoError(t, tr.OnDisconnect(ctx, c1))
	assert.True(t, dir.online(1))
	require.NoError(t, tr.OnDisconnect(ctx, c2))
	assert.False(t, dir.online(1))

	// a second disconnect of the same connection is ignored
	require.NoError(t, tr.OnDisconnect(ctx, c2))
	assert.Equal(t, []bool{true, true, false}, dir.calls)
}

func TestPresenceLastSeenAdvances(t *testing.T) {
	dir := newMemDir(&usermodel.User{ID: 1})
	tr := NewTracker(dir, NewRegistry(), PresenceAny, nil)
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return t0 }
	c := authedConn(1)
	require.NoError(t, tr.OnConnect(context.Background(), c))

	tr.now = func() time.Time { return t0.Add(time.Minute) }
	require.NoError(t, tr.OnDisconnect(context.Background(), c))
	u, _ := dir.Get(context.Background(), 1)
	assert.Equal(t, t0.Add(time.Minute), u.LastSeen)
}

func TestPresenceRejectsAnonymousAndUnknown(t *testing.T) {
	dir := newMemDir()
	reg := NewRegistry()
	tr := NewTracker(dir, reg, PresenceAny, nil)
	ctx := context.Background()

	err := tr.OnConnect(ctx, NewConn(1, ""))
	assert.True(t, errs.ErrUnauthorized.Is(err))

	ghost := authedConn(99)
	err = tr.OnConnect(ctx, ghost)
	assert.True(t, errs.ErrRecordNotFound.Is(err))
	assert.Zero(t, reg.Members("user_99"))
	assert.NoError(t, tr.OnDisconnect(ctx, ghost))
}

func TestPresenceConcurrentSameUser(t *testing.T) {
	dir := newMemDir(&usermodel.User{ID: 1})
	tr := NewTracker(dir, NewRegistry(), PresenceLast, NewMemoryCounter())
	ctx := context.Background()

	conns := make([]*Conn, 20)
	for i := range conns {
		conns[i] = authedConn(1)
	}
	var wg sync.WaitGroup
	for _, c := range conns {
		wg.Add(1)
		go func(c *Conn) {
			defer wg.Done()
			_ = tr.OnConnect(ctx, c)
		}(c)
	}
	wg.Wait()
	for _, c := range conns {
		wg.Add(1)
		go func(c *Conn) {
			defer wg.Done()
			_ = tr.OnDisconnect(ctx, c)
		}(c)
	}
	wg.Wait()
	assert.False(t, dir.online(1))
	assert.Empty(t, tr.locks.m)
}

func TestMemoryCounterFloorsAtZero(t *testing.T) {
	m := NewMemoryCounter()
	ctx := context.Background()
	n, _ := m.Decr(ctx, 1)
	assert.Zero(t, n)
	n, _ = m.Incr(ctx, 1)
	assert.Equal(t, int64(1), n)
	n, _ = m.Count(ctx, 1)
	assert.Equal(t, int64(1), n)
}

func TestParsePolicies(t *testing.T) {
	p, err := ParsePresencePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PresenceAny, p)
	_, err = ParsePresencePolicy("sometimes")
	assert.Error(t, err)

	j, err := ParseJoinPolicy("membership")
	require.NoError(t, err)
	assert.Equal(t, JoinMembership, j)
	_, err = ParseJoinPolicy("closed")
	assert.Error(t, err)
}
