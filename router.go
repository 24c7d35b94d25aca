package main

import (
	"net/http"

	"GVChat/data/database"
	"GVChat/global"
	"GVChat/middleware"
	"GVChat/middleware/security"
	"GVChat/module/chat/message"
	chatservice "GVChat/module/chat/service"
	"GVChat/module/notification"
	notiservice "GVChat/module/notification/service"
	"GVChat/module/user"
	userservice "GVChat/module/user/service"
	"GVChat/service/chat"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type routerDeps struct {
	cfg           *global.AppConfig
	auth          *security.Options
	ws            *chat.WSServer
	srv           *chat.Server
	store         *database.Store
	users         *userservice.UserService
	notifications *notiservice.NotificationService
	storeHealthy  func() bool
}

func originCheck(allowed []string) func(string) bool {
	return func(origin string) bool { return middleware.OriginAllowed(allowed, origin) }
}

func newRouter(d routerDeps) *gin.Engine {
	if d.cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	middleware.Manager().Add(middleware.Origin(d.cfg.AllowedOrigins))
	r.Use(gin.Recovery(), middleware.AccessLog(), middleware.Manager().Use())

	r.GET("/ws", d.ws.HandleWS)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	authMw := security.Middleware(d.auth)
	rt := middleware.NewRoutes(api, authMw)
	rt.GET("/health", health(d), middleware.RouteOpt{})

	uh := user.NewHandler(d.users, d.auth)
	uh.SecureCookie = d.cfg.SecureCookie
	uh.Register(rt)

	msgs := chatservice.NewMessageService(d.store.Messages, d.store.Users, d.srv, d.cfg.Chat.HistoryLimit)
	message.NewHandler(msgs).Register(rt)

	notification.NewHandler(d.notifications).Register(middleware.NewRoutes(api.Group("/notifications"), authMw))
	return r
}

func health(d routerDeps) middleware.HandlerFunc {
	return func(c *gin.Context) error {
		status, code := "ok", http.StatusOK
		if !d.storeHealthy() {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":      status,
			"node":        d.cfg.NodeID,
			"connections": d.ws.Count(),
			"rooms":       d.srv.Registry().RoomCount(),
		})
		return nil
	}
}
