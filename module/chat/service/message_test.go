package service

import (
	"context"
	"testing"
	"time"

	"GVChat/data/database"
	"GVChat/data/database/sqlstore"
	chatmodel "GVChat/module/chat/model"
	usermodel "GVChat/module/user/model"
	"GVChat/service/chat"
	"GVChat/tools/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

func newService(t *testing.T, policy chat.JoinPolicy) (*MessageService, *database.Store) {
	t.Helper()
	st, err := sqlstore.Open(":memory:", true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close(context.Background()) })

	ctx := context.Background()
	require.NoError(t, st.Users.Create(ctx, &usermodel.User{ID: 1, Username: "alice", Email: "a@x", DisplayName: "Alice"}))
	require.NoError(t, st.Users.Create(ctx, &usermodel.User{ID: 2, Username: "bob", Email: "b@x", AvatarURL: "/b.png"}))
	require.NoError(t, st.Users.Create(ctx, &usermodel.User{ID: 3, Username: "carol", Email: "c@x"}))

	srv := chat.NewServer(chat.Config{NodeID: "test", JoinPolicy: policy}, chat.Deps{Directory: st.Users, Messages: st.Messages})
	return NewMessageService(st.Messages, st.Users, srv, 0), st
}

// seed writes messages with increasing timestamps so ordering is stable.
func seed(t *testing.T, st *database.Store, msgs ...*chatmodel.ChatMessage) {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, m := range msgs {
		m.ID = int64(100 + i)
		m.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, st.Messages.Create(context.Background(), m))
	}
}

func direct(from, to int64, content string) *chatmodel.ChatMessage {
	return &chatmodel.ChatMessage{Content: content, SenderID: from, ReceiverID: ptr(to), MessageType: chatmodel.KindDirect}
}

func TestHistory(t *testing.T) {
	svc, st := newService(t, chat.JoinOpen)
	seed(t, st,
		direct(1, 2, "a->b"),
		direct(2, 1, "b->a"),
		direct(3, 1, "c->a"),
		&chatmodel.ChatMessage{Content: "room", SenderID: 2, CommunityID: ptr(5), MessageType: chatmodel.KindCommunity},
	)
	ctx := context.Background()

	pair, err := svc.History(ctx, 1, "direct", ptr(2))
	require.NoError(t, err)
	require.Len(t, pair, 2)
	assert.Equal(t, "b->a", pair[0].Content)
	require.NotNil(t, pair[0].Sender)
	assert.Equal(t, "bob", pair[0].Sender.Username)
	require.NotNil(t, pair[0].Receiver)
	assert.Equal(t, "Alice", pair[0].Receiver.DisplayName)

	all, err := svc.History(ctx, 1, "", nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	room, err := svc.History(ctx, 3, "community", ptr(5))
	require.NoError(t, err)
	require.Len(t, room, 1)
	assert.Equal(t, "room", room[0].Content)

	_, err = svc.History(ctx, 1, "community", nil)
	assert.True(t, errs.ErrArgs.Is(err))
	_, err = svc.History(ctx, 1, "group", nil)
	assert.True(t, errs.ErrArgs.Is(err))
}

func TestHistoryRespectsMembership(t *testing.T) {
	svc, st := newService(t, chat.JoinMembership)
	ctx := context.Background()
	require.NoError(t, st.Users.AddCommunityMember(ctx, &usermodel.CommunityMember{CommunityID: 5, UserID: 1, Role: usermodel.RoleMember}))

	_, err := svc.History(ctx, 1, "community", ptr(5))
	require.NoError(t, err)
	_, err = svc.History(ctx, 2, "community", ptr(5))
	assert.True(t, errs.ErrForbidden.Is(err))
}

func TestHistoryLimit(t *testing.T) {
	svc, st := newService(t, chat.JoinOpen)
	msgs := make([]*chatmodel.ChatMessage, 0, chatmodel.HistoryLimit+5)
	for i := 0; i < chatmodel.HistoryLimit+5; i++ {
		msgs = append(msgs, direct(1, 2, "m"))
	}
	seed(t, st, msgs...)
	list, err := svc.History(context.Background(), 2, "direct", ptr(1))
	require.NoError(t, err)
	assert.Len(t, list, chatmodel.HistoryLimit)
	assert.Equal(t, int64(100+chatmodel.HistoryLimit+4), list[0].ID)
}

func TestMarkRead(t *testing.T) {
	svc, st := newService(t, chat.JoinOpen)
	seed(t, st, direct(1, 2, "hi"))
	ctx := context.Background()

	assert.True(t, errs.ErrForbidden.Is(svc.MarkRead(ctx, 1, 100)))
	assert.True(t, errs.ErrRecordNotFound.Is(svc.MarkRead(ctx, 2, 999)))
	require.NoError(t, svc.MarkRead(ctx, 2, 100))
	require.NoError(t, svc.MarkRead(ctx, 2, 100))

	m, err := st.Messages.Get(ctx, 100)
	require.NoError(t, err)
	assert.True(t, m.IsRead)
}

func TestConversations(t *testing.T) {
	svc, st := newService(t, chat.JoinOpen)
	seed(t, st,
		direct(2, 1, "b1"),
		direct(2, 1, "b2"),
		direct(3, 1, "c1"),
		direct(1, 2, "a-reply"),
	)
	ctx := context.Background()

	convs, err := svc.Conversations(ctx, 1)
	require.NoError(t, err)
	require.Len(t, convs, 2)

	assert.Equal(t, int64(2), convs[0].ID)
	assert.Equal(t, "bob", convs[0].Name)
	assert.Equal(t, "/b.png", convs[0].Avatar)
	assert.Equal(t, "a-reply", convs[0].LastMessage.Content)
	assert.Equal(t, int64(2), convs[0].UnreadCount)
	require.NotNil(t, convs[0].LastMessage.Sender)

	assert.Equal(t, int64(3), convs[1].ID)
	assert.Equal(t, "c1", convs[1].LastMessage.Content)
	assert.Equal(t, int64(1), convs[1].UnreadCount)

	empty, err := svc.Conversations(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
