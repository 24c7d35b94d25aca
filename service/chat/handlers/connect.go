package handlers

import (
	"GVChat/logger"
	"GVChat/service/chat"

	"go.uber.org/zap"
)

const connectedMessage = "Connected to chat"

type ConnectHandler struct{}

func NewConnectHandler() chat.Handler { return &ConnectHandler{} }

func (h *ConnectHandler) Event() string { return chat.EventConnect }

// Handle marks an authenticated connection online, joins its personal room
// and acks it. Anonymous connections stay open but get nothing.
func (h *ConnectHandler) Handle(ctx *chat.Context, c *chat.Conn, _ []byte) chat.Outcome {
	uid, ok := c.UserID()
	if !ok {
		return chat.OutcomeUnauthorized
	}
	if err := ctx.S.Presence().OnConnect(ctx.Ctx, c); err != nil {
		logger.Warn("connect", zap.Int64("user", uid), zap.String("conn", c.ID()), zap.Error(err))
		return chat.OutcomeOf(err)
	}
	ctx.S.Registry().Send(c, chat.EventConnected, &chat.ConnectedPayload{Message: connectedMessage})
	logger.Info("user connected", zap.Int64("user", uid), zap.String("conn", c.ID()))
	return chat.OutcomeHandled
}

type DisconnectHandler struct{}

func NewDisconnectHandler() chat.Handler { return &DisconnectHandler{} }

func (h *DisconnectHandler) Event() string { return chat.EventDisconnect }

// Handle closes the connection's queue, drops it from every room, then
// updates presence. A broadcast that already copied the member list finds
// the queue closed.
func (h *DisconnectHandler) Handle(ctx *chat.Context, c *chat.Conn, _ []byte) chat.Outcome {
	c.Close()
	ctx.S.Registry().RemoveConn(c)
	uid, ok := c.UserID()
	if !ok {
		return chat.OutcomeUnauthorized
	}
	if err := ctx.S.Presence().OnDisconnect(ctx.Ctx, c); err != nil {
		logger.Warn("disconnect", zap.Int64("user", uid), zap.String("conn", c.ID()), zap.Error(err))
		return chat.OutcomeOf(err)
	}
	logger.Info("user disconnected", zap.Int64("user", uid), zap.String("conn", c.ID()))
	return chat.OutcomeHandled
}
