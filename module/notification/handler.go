package notification

import (
	"net/http"
	"strconv"

	"GVChat/middleware"
	"GVChat/middleware/security"
	"GVChat/module/notification/service"
	"GVChat/tools/errs"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *service.NotificationService
}

func NewHandler(svc *service.NotificationService) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the handlers on the /api/notifications group.
func (h *Handler) Register(rt *middleware.Routes) {
	auth := middleware.RouteOpt{IsAuth: true}
	rt.GET("", h.List, auth)
	rt.GET("/unread-count", h.UnreadCount, auth)
	rt.PUT("/read-all", h.MarkAllRead, auth)
	rt.PUT("/:id/read", h.MarkRead, auth)
}

func (h *Handler) List(c *gin.Context) error {
	uid, _ := security.CurrentUserID(c)
	unreadOnly, _ := strconv.ParseBool(c.Query("unread_only"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.svc.List(c.Request.Context(), uid, unreadOnly, limit)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
	return nil
}

func (h *Handler) MarkRead(c *gin.Context) error {
	uid, _ := security.CurrentUserID(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errs.ErrArgs.WrapMsg("bad notification id", "id", c.Param("id"))
	}
	if err := h.svc.MarkRead(c.Request.Context(), uid, id); err != nil {
		return err
	}
	c.JSON(http.StatusOK, gin.H{"message": "notification marked as read"})
	return nil
}

func (h *Handler) MarkAllRead(c *gin.Context) error {
	uid, _ := security.CurrentUserID(c)
	n, err := h.svc.MarkAllRead(c.Request.Context(), uid)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, gin.H{"message": "all notifications marked as read", "updated": n})
	return nil
}

func (h *Handler) UnreadCount(c *gin.Context) error {
	uid, _ := security.CurrentUserID(c)
	n, err := h.svc.UnreadCount(c.Request.Context(), uid)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": n})
	return nil
}
