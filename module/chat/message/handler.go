package message

import (
	"net/http"
	"strconv"

	"GVChat/middleware"
	"GVChat/middleware/security"
	"GVChat/module/chat/service"
	chatsvc "GVChat/service/chat"
	"GVChat/tools/decode"
	"GVChat/tools/errs"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *service.MessageService
}

func NewHandler(svc *service.MessageService) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the handlers on the /api group.
func (h *Handler) Register(rt *middleware.Routes) {
	auth := middleware.RouteOpt{IsAuth: true}
	rt.GET("/messages", h.History, auth)
	rt.POST("/messages", h.Send, auth)
	rt.PUT("/messages/:id/read", h.MarkRead, auth)
	rt.GET("/conversations", h.Conversations, auth)
}

func (h *Handler) History(c *gin.Context) error {
	uid, _ := security.CurrentUserID(c)
	kind := c.DefaultQuery("type", "direct")
	var chatID *int64
	if raw := c.Query("chat_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return errs.ErrArgs.WrapMsg("bad chat_id", "chat_id", raw)
		}
		chatID = &id
	}
	list, err := h.svc.History(c.Request.Context(), uid, kind, chatID)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, list)
	return nil
}

// Send takes the same body as the send_message event.
func (h *Handler) Send(c *gin.Context) error {
	uid, _ := security.CurrentUserID(c)
	raw, err := c.GetRawData()
	if err != nil {
		return errs.ErrArgs.WrapMsg("read body: " + err.Error())
	}
	req, err := decode.Decode[chatsvc.SendRequest](raw)
	if err != nil {
		return errs.ErrArgs.WrapMsg(err.Error())
	}
	m, err := h.svc.Send(c.Request.Context(), uid, req)
	if err != nil {
		return err
	}
	c.JSON(http.StatusCreated, m)
	return nil
}

func (h *Handler) MarkRead(c *gin.Context) error {
	uid, _ := security.CurrentUserID(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errs.ErrArgs.WrapMsg("bad message id", "id", c.Param("id"))
	}
	if err := h.svc.MarkRead(c.Request.Context(), uid, id); err != nil {
		return err
	}
	c.JSON(http.StatusOK, gin.H{"message": "message marked as read"})
	return nil
}

func (h *Handler) Conversations(c *gin.Context) error {
	uid, _ := security.CurrentUserID(c)
	list, err := h.svc.Conversations(c.Request.Context(), uid)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, list)
	return nil
}
