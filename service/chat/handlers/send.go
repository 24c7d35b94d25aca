package handlers

import (
	"GVChat/logger"
	"GVChat/service/chat"
	"GVChat/tools/decode"
	"GVChat/tools/errs"

	"go.uber.org/zap"
)

type SendHandler struct{}

func NewSendHandler() chat.Handler { return &SendHandler{} }

func (h *SendHandler) Event() string { return chat.EventSendMessage }

func (h *SendHandler) Handle(ctx *chat.Context, c *chat.Conn, data []byte) chat.Outcome {
	uid, ok := c.UserID()
	if !ok {
		return chat.OutcomeUnauthorized
	}
	req, err := decode.Decode[chat.SendRequest](data)
	if err != nil {
		return chat.OutcomeOf(errs.ErrArgs.WrapMsg(err.Error()))
	}
	m, err := ctx.S.Send(ctx.Ctx, uid, req)
	if err != nil {
		out := chat.OutcomeOf(err)
		if out == chat.OutcomeFailed {
			logger.Error("send message", zap.Int64("user", uid), zap.String("conn", c.ID()), zap.Error(err))
		}
		return out
	}
	logger.Debug("message sent", zap.Int64("id", m.ID), zap.Int64("user", uid), zap.String("type", string(m.MessageType)))
	return chat.OutcomeHandled
}
