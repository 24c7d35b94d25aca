package user

import (
	"net/http"
	"strconv"
	"time"

	"GVChat/middleware"
	"GVChat/middleware/security"
	"GVChat/module/user/service"
	"GVChat/tools/errs"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc  *service.UserService
	auth *security.Options
	// SecureCookie marks the session cookie Secure; on behind TLS.
	SecureCookie bool
}

func NewHandler(svc *service.UserService, auth *security.Options) *Handler {
	return &Handler{svc: svc, auth: auth}
}

// Register mounts the handlers on the /api group.
func (h *Handler) Register(rt *middleware.Routes) {
	rt.POST("/auth/register", h.SignUp, middleware.RouteOpt{})
	rt.POST("/auth/login", h.Login, middleware.RouteOpt{})
	rt.POST("/auth/logout", h.Logout, middleware.RouteOpt{})
	rt.GET("/auth/me", h.Me, middleware.RouteOpt{IsAuth: true})
	rt.GET("/users/:id/presence", h.Presence, middleware.RouteOpt{IsAuth: true})
}

func (h *Handler) SignUp(c *gin.Context) error {
	var in service.RegisterParams
	if err := c.ShouldBindJSON(&in); err != nil {
		return errs.ErrArgs.WrapMsg(err.Error())
	}
	sess, err := h.svc.Register(c.Request.Context(), in)
	if err != nil {
		return err
	}
	h.setCookie(c, sess.Token, sess.ExpireAt)
	c.JSON(http.StatusCreated, sess)
	return nil
}

func (h *Handler) Login(c *gin.Context) error {
	var in service.LoginParams
	if err := c.ShouldBindJSON(&in); err != nil {
		return errs.ErrArgs.WrapMsg(err.Error())
	}
	sess, err := h.svc.Login(c.Request.Context(), in)
	if err != nil {
		return err
	}
	h.setCookie(c, sess.Token, sess.ExpireAt)
	c.JSON(http.StatusOK, sess)
	return nil
}

// Logout always clears the cookie; a valid session is also marked offline.
func (h *Handler) Logout(c *gin.Context) error {
	if uid, ok := security.Authenticate(c.Request, h.auth); ok {
		if err := h.svc.Logout(c.Request.Context(), uid); err != nil && !errs.ErrRecordNotFound.Is(err) {
			return err
		}
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName(), "", -1, "/", "", h.SecureCookie, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
	return nil
}

func (h *Handler) Me(c *gin.Context) error {
	uid, _ := security.CurrentUserID(c)
	u, err := h.svc.Me(c.Request.Context(), uid)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, u)
	return nil
}

func (h *Handler) Presence(c *gin.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errs.ErrArgs.WrapMsg("bad user id", "id", c.Param("id"))
	}
	p, err := h.svc.Presence(c.Request.Context(), id)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, p)
	return nil
}

func (h *Handler) setCookie(c *gin.Context, token string, exp time.Time) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName(), token, int(time.Until(exp).Seconds()), "/", "", h.SecureCookie, true)
}

func (h *Handler) cookieName() string {
	if h.auth != nil && h.auth.CookieName != "" {
		return h.auth.CookieName
	}
	return security.SessionCookie
}
