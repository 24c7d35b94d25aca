package natsx

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"GVChat/service/chat"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainOrder(t *testing.T) {
	var trace []string
	mw := func(name string) NatsxMiddleware {
		return func(next NatsxHandler) NatsxHandler {
			return func(ctx context.Context, m NatsxMessage) error {
				trace = append(trace, name)
				return next(ctx, m)
			}
		}
	}
	h := NatsxChain(func(context.Context, NatsxMessage) error {
		trace = append(trace, "handler")
		return nil
	}, mw("outer"), mw("inner"))
	require.NoError(t, h(context.Background(), NatsxMessage{}))
	assert.Equal(t, []string{"outer", "inner", "handler"}, trace)
}

func TestRecoverMiddleware(t *testing.T) {
	h := NatsxChain(func(context.Context, NatsxMessage) error { panic("boom") }, Recover(), LogErrors(0))
	err := h(context.Background(), NatsxMessage{Subject: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	h = NatsxChain(func(context.Context, NatsxMessage) error { return errors.New("nope") }, LogErrors(time.Second))
	assert.Error(t, h(context.Background(), NatsxMessage{}))
}

func TestRelayHandler(t *testing.T) {
	var got []*chat.RelayEnvelope
	h := relayHandler("node-a", func(env *chat.RelayEnvelope) int {
		got = append(got, env)
		return 1
	})

	env := chat.RelayEnvelope{Origin: "node-b", Room: "user_2", Frame: json.RawMessage(`{"event":"new_message"}`)}
	data, _ := json.Marshal(env)

	require.NoError(t, h(context.Background(), NatsxMessage{Data: data, Header: map[string]string{headerOrigin: "node-b"}}))
	require.NoError(t, h(context.Background(), NatsxMessage{Data: data, Header: map[string]string{headerOrigin: "node-a"}}))
	assert.Error(t, h(context.Background(), NatsxMessage{Data: []byte("{")}))

	require.Len(t, got, 1)
	assert.Equal(t, "user_2", got[0].Room)
	assert.JSONEq(t, `{"event":"new_message"}`, string(got[0].Frame))
}

// Runs against a live server when NATS_SERVERS is set.
func TestRelayRoundTrip(t *testing.T) {
	servers := os.Getenv("NATS_SERVERS")
	if servers == "" {
		t.Skip("NATS_SERVERS not set")
	}
	cfg := NatsxConfig{Servers: strings.Split(servers, ",")}
	pub, err := NewNatsxClient(cfg)
	require.NoError(t, err)
	defer pub.Close()
	sub, err := NewNatsxClient(cfg)
	require.NoError(t, err)
	defer sub.Close()

	out, err := NewRoomRelay(pub)
	require.NoError(t, err)
	in, err := NewRoomRelay(sub)
	require.NoError(t, err)

	got := make(chan *chat.RelayEnvelope, 1)
	require.NoError(t, in.c.Subscribe(BizRoomRelay, relayHandler("node-b", func(env *chat.RelayEnvelope) int {
		got <- env
		return 1
	})))
	require.NoError(t, sub.nc.Flush())

	require.NoError(t, out.Publish(context.Background(), &chat.RelayEnvelope{Origin: "node-a", Room: "community_5", Frame: json.RawMessage(`{}`)}))
	select {
	case env := <-got:
		assert.Equal(t, "community_5", env.Room)
	case <-time.After(2 * time.Second):
		t.Fatal("relay frame not received")
	}
}
