package chat

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drain returns every frame queued on c without blocking.
func drain(c *Conn) []*Frame {
	var out []*Frame
	for {
		select {
		case raw := <-c.Outbound():
			f, err := ParseFrame(raw)
			if err != nil {
				panic(err)
			}
			out = append(out, f)
		default:
			return out
		}
	}
}

func TestJoinIsIdempotentAndBroadcastDeliversOnce(t *testing.T) {
	r := NewRegistry()
	a, b := NewConn(8, ""), NewConn(8, "")
	r.Join(a, "community_5")
	r.Join(a, "community_5")
	r.Join(b, "community_5")

	assert.Equal(t, 2, r.Broadcast("community_5", EventNewMessage, map[string]string{"content": "hi"}))

	fa, fb := drain(a), drain(b)
	require.Len(t, fa, 1)
	require.Len(t, fb, 1)
	assert.Equal(t, EventNewMessage, fa[0].Event)
	assert.JSONEq(t, `{"content":"hi"}`, string(fa[0].Data))
}

func TestBroadcastToEmptyRoomIsNoop(t *testing.T) {
	r := NewRegistry()
	assert.Zero(t, r.Broadcast("event_1", EventNewMessage, 1))
	assert.Zero(t, r.RoomCount())
}

func TestLeaveRestoresState(t *testing.T) {
	r := NewRegistry()
	a := NewConn(8, "")
	r.Join(a, "user_1")

	r.Join(a, "community_5")
	r.Leave(a, "community_5")
	r.Leave(a, "community_5")
	r.Leave(a, "never_joined")

	assert.Equal(t, []string{"user_1"}, r.Rooms(a))
	assert.Zero(t, r.Members("community_5"))
	assert.Zero(t, r.Broadcast("community_5", EventNewMessage, 1))
	assert.Empty(t, drain(a))
}

func TestBroadcastExceptSkipsOneConnection(t *testing.T) {
	r := NewRegistry()
	a, b := NewConn(8, ""), NewConn(8, "")
	r.Join(a, "event_3")
	r.Join(b, "event_3")

	assert.Equal(t, 1, r.BroadcastExcept("event_3", EventUserTyping, TypingPayload{UserID: 1}, a))
	assert.Empty(t, drain(a))
	assert.Len(t, drain(b), 1)
}

func TestRemoveConnLeavesEveryRoom(t *testing.T) {
	r := NewRegistry()
	a, b := NewConn(8, ""), NewConn(8, "")
	for _, room := range []string{"user_1", "community_5", "event_3"} {
		r.Join(a, room)
	}
	r.Join(b, "community_5")

	assert.Equal(t, []string{"community_5", "event_3", "user_1"}, r.RemoveConn(a))
	assert.Empty(t, r.Rooms(a))
	assert.Equal(t, 1, r.Members("community_5"))
	assert.Zero(t, r.Members("user_1"))
	assert.Equal(t, 1, r.RoomCount())

	r.Broadcast("community_5", EventNewMessage, 1)
	assert.Empty(t, drain(a))
}

func TestSlowReceiverDoesNotBlockOthers(t *testing.T) {
	r := NewRegistry()
	slow, fast := NewConn(1, ""), NewConn(8, "")
	r.Join(slow, "community_1")
	r.Join(fast, "community_1")

	for i := 0; i < 3; i++ {
		r.Broadcast("community_1", EventNewMessage, i)
	}
	assert.Len(t, drain(slow), 1)
	assert.Len(t, drain(fast), 3)
}

func TestClosedConnReceivesNothing(t *testing.T) {
	r := NewRegistry()
	a := NewConn(8, "")
	r.Join(a, "user_1")
	a.Close()
	a.Close()
	assert.Zero(t, r.Broadcast("user_1", EventNewMessage, 1))
}

func TestConcurrentJoinBroadcast(t *testing.T) {
	r := NewRegistry()
	conns := make([]*Conn, 50)
	var wg sync.WaitGroup
	for i := range conns {
		conns[i] = NewConn(64, "")
		wg.Add(1)
		go func(c *Conn, i int) {
			defer wg.Done()
			r.Join(c, "community_9")
			r.Join(c, fmt.Sprintf("user_%d", i))
			r.Broadcast("community_9", EventNewMessage, i)
		}(conns[i], i)
	}
	wg.Wait()
	assert.Equal(t, 50, r.Members("community_9"))
	for _, c := range conns {
		r.RemoveConn(c)
	}
	assert.Zero(t, r.RoomCount())
}

func TestEncodeFrameShape(t *testing.T) {
	raw, err := EncodeFrame(EventConnected, ConnectedPayload{Message: "ok"})
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "connected", m["event"])
	assert.Equal(t, map[string]any{"message": "ok"}, m["data"])

	_, err = ParseFrame([]byte(`{"data":{}}`))
	assert.Error(t, err)
	_, err = ParseFrame([]byte(`not json`))
	assert.Error(t, err)
}
