package handlers

import (
	"GVChat/service/chat"
)

type TypingHandler struct{}

func NewTypingHandler() chat.Handler { return &TypingHandler{} }

func (h *TypingHandler) Event() string { return chat.EventTyping }

// Handle tells everyone else in the conversation that the user started or
// stopped typing. The sender's own connection is skipped.
func (h *TypingHandler) Handle(ctx *chat.Context, c *chat.Conn, data []byte) chat.Outcome {
	uid, ok := c.UserID()
	if !ok {
		return chat.OutcomeUnauthorized
	}
	ref, kind, err := parseRef(data)
	if err != nil {
		return chat.OutcomeOf(err)
	}
	u, err := ctx.S.Directory().Get(ctx.Ctx, uid)
	if err != nil {
		return chat.OutcomeOf(err)
	}
	payload := &chat.TypingPayload{UserID: uid, Username: u.Username, Typing: ref.Typing}
	ctx.S.Emit(ctx.Ctx, chat.TypingRoom(kind, *ref.ID), chat.EventUserTyping, payload, c)
	return chat.OutcomeHandled
}
