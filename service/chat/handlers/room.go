package handlers

import (
	chatmodel "GVChat/module/chat/model"
	"GVChat/service/chat"
	"GVChat/tools/decode"
	"GVChat/tools/errs"
)

func parseRef(data []byte) (*chat.ChatRef, chatmodel.Kind, error) {
	ref, err := decode.Decode[chat.ChatRef](data)
	if err != nil {
		return nil, "", errs.ErrArgs.WrapMsg(err.Error())
	}
	// an empty type is not direct here, unlike message_type
	if ref.Type == "" {
		return nil, "", errs.ErrArgs.WrapMsg("missing type")
	}
	kind, ok := chatmodel.ParseKind(ref.Type)
	if !ok {
		return nil, "", errs.ErrArgs.WrapMsg("unknown chat type", "type", ref.Type)
	}
	if ref.ID == nil {
		return nil, "", errs.ErrArgs.WrapMsg("missing id", "type", ref.Type)
	}
	return ref, kind, nil
}

type JoinHandler struct{}

func NewJoinHandler() chat.Handler { return &JoinHandler{} }

func (h *JoinHandler) Event() string { return chat.EventJoinChat }

func (h *JoinHandler) Handle(ctx *chat.Context, c *chat.Conn, data []byte) chat.Outcome {
	uid, ok := c.UserID()
	if !ok {
		return chat.OutcomeUnauthorized
	}
	ref, kind, err := parseRef(data)
	if err != nil {
		return chat.OutcomeOf(err)
	}
	if err := ctx.S.Authorize(ctx.Ctx, uid, kind, *ref.ID); err != nil {
		return chat.OutcomeOf(err)
	}
	ctx.S.Registry().Join(c, chat.ChatRoom(kind, *ref.ID))
	return chat.OutcomeHandled
}

// LeaveHandler does not require authentication; leaving is always safe.
type LeaveHandler struct{}

func NewLeaveHandler() chat.Handler { return &LeaveHandler{} }

func (h *LeaveHandler) Event() string { return chat.EventLeaveChat }

func (h *LeaveHandler) Handle(ctx *chat.Context, c *chat.Conn, data []byte) chat.Outcome {
	ref, kind, err := parseRef(data)
	if err != nil {
		return chat.OutcomeOf(err)
	}
	ctx.S.Registry().Leave(c, chat.ChatRoom(kind, *ref.ID))
	return chat.OutcomeHandled
}
