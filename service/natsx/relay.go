package natsx

import (
	"context"
	"encoding/json"

	"GVChat/service/chat"
	"GVChat/tools/errs"
)

const (
	BizRoomRelay     = "room_relay"
	roomRelaySubject = "gvchat.rooms"
	headerOrigin     = "X-Gvchat-Origin"
)

// RoomRelay publishes room frames to every other gateway node and feeds
// theirs into the local registry.
type RoomRelay struct {
	c *NatsxClient
}

func NewRoomRelay(c *NatsxClient) (*RoomRelay, error) {
	// no queue group: every node needs every frame
	if err := c.RegisterRoute(NatsxRoute{Biz: BizRoomRelay, Subject: roomRelaySubject}); err != nil {
		return nil, err
	}
	return &RoomRelay{c: c}, nil
}

func (r *RoomRelay) Publish(ctx context.Context, env *chat.RelayEnvelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return errs.WrapMsg(err, "encode relay envelope", "room", env.Room)
	}
	return r.c.Publish(ctx, BizRoomRelay, data, map[string]string{headerOrigin: env.Origin})
}

// Start subscribes s to frames from the other nodes.
func (r *RoomRelay) Start(s *chat.Server) error {
	return r.c.Subscribe(BizRoomRelay, relayHandler(s.Config().NodeID, s.DeliverRemote))
}

func relayHandler(self string, deliver func(*chat.RelayEnvelope) int) NatsxHandler {
	return func(_ context.Context, msg NatsxMessage) error {
		if msg.Header[headerOrigin] == self {
			return nil
		}
		var env chat.RelayEnvelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			return errs.ErrArgs.WrapMsg("bad relay envelope: " + err.Error())
		}
		deliver(&env)
		return nil
	}
}
