package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"GVChat/data/database"
	"GVChat/data/database/sqlstore"
	"GVChat/tools/errs"
	jwtlib "GVChat/tools/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixedCounter struct {
	n   int64
	err error
}

func (c fixedCounter) Count(context.Context, int64) (int64, error) { return c.n, c.err }

func newService(t *testing.T, conns ConnCounter) (*UserService, *database.Store) {
	t.Helper()
	st, err := sqlstore.Open(":memory:", true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close(context.Background()) })
	svc := NewUserService(st.Users, jwtlib.DefaultOptions([]byte("test-secret")), conns)
	svc.cost = bcrypt.MinCost
	return svc, st
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()

	sess, err := svc.Register(ctx, RegisterParams{Username: " alice ", Email: "a@x.io", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "alice", sess.User.Username)
	assert.Equal(t, "alice", sess.User.DisplayName)
	assert.NotEmpty(t, sess.Token)

	uid, err := svc.VerifyToken(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, uid)

	_, err = svc.Register(ctx, RegisterParams{Username: "alice", Email: "other@x.io", Password: "pw"})
	assert.True(t, errs.ErrRecordExist.Is(err))
	_, err = svc.Register(ctx, RegisterParams{Username: "al2", Email: "a@x.io", Password: "pw"})
	assert.True(t, errs.ErrRecordExist.Is(err))
	_, err = svc.Register(ctx, RegisterParams{Username: "bob"})
	assert.True(t, errs.ErrArgs.Is(err))

	for _, login := range []string{"alice", "a@x.io"} {
		got, err := svc.Login(ctx, LoginParams{Username: login, Password: "pw"})
		require.NoError(t, err, login)
		assert.True(t, got.User.IsOnline)
	}
	me, err := svc.Me(ctx, uid)
	require.NoError(t, err)
	assert.True(t, me.IsOnline)

	_, err = svc.Login(ctx, LoginParams{Username: "alice", Password: "nope"})
	assert.True(t, errs.ErrUnauthorized.Is(err))
	_, err = svc.Login(ctx, LoginParams{Username: "nobody", Password: "pw"})
	assert.True(t, errs.ErrUnauthorized.Is(err))
	_, err = svc.Login(ctx, LoginParams{})
	assert.True(t, errs.ErrArgs.Is(err))

	require.NoError(t, svc.Logout(ctx, uid))
	me, err = svc.Me(ctx, uid)
	require.NoError(t, err)
	assert.False(t, me.IsOnline)

	_, err = svc.VerifyToken("garbage")
	assert.True(t, errs.ErrUnauthorized.Is(err))
}

func TestPresence(t *testing.T) {
	ctx := context.Background()

	svc, _ := newService(t, fixedCounter{n: 3})
	sess, err := svc.Register(ctx, RegisterParams{Username: "a", Email: "a@x", Password: "pw"})
	require.NoError(t, err)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return at }
	_, err = svc.Login(ctx, LoginParams{Username: "a", Password: "pw"})
	require.NoError(t, err)

	p, err := svc.Presence(ctx, sess.User.ID)
	require.NoError(t, err)
	assert.True(t, p.IsOnline)
	assert.True(t, at.Equal(p.LastSeen))
	require.NotNil(t, p.Connections)
	assert.Equal(t, int64(3), *p.Connections)

	svc.conns = fixedCounter{err: errors.New("redis down")}
	p, err = svc.Presence(ctx, sess.User.ID)
	require.NoError(t, err)
	assert.Nil(t, p.Connections)

	_, err = svc.Presence(ctx, 999)
	assert.True(t, errs.ErrRecordNotFound.Is(err))
}
