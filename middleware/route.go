package middleware

import (
	"GVChat/logger"
	"GVChat/tools/errs"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HandlerFunc is a gin handler that reports failure by returning an error.
type HandlerFunc func(c *gin.Context) error

// Handle adapts fn, rendering a returned error as {code,msg,detail} with
// the status its code maps to.
func Handle(fn HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := fn(c); err != nil {
			Fail(c, err)
		}
	}
}

func Fail(c *gin.Context, err error) {
	ce := errs.Code(err)
	status := errs.HTTPStatus(ce.Code)
	if status >= 500 {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, ce)
}

type RouteOpt struct {
	IsAuth bool
}

// Routes registers handlers on a group, inserting the auth middleware for
// routes that ask for it.
type Routes struct {
	r    gin.IRoutes
	auth gin.HandlerFunc
}

func NewRoutes(r gin.IRoutes, auth gin.HandlerFunc) *Routes {
	return &Routes{r: r, auth: auth}
}

func (rt *Routes) chain(h HandlerFunc, opt RouteOpt) []gin.HandlerFunc {
	if opt.IsAuth && rt.auth != nil {
		return []gin.HandlerFunc{rt.auth, Handle(h)}
	}
	return []gin.HandlerFunc{Handle(h)}
}

func (rt *Routes) GET(path string, h HandlerFunc, opt RouteOpt) {
	rt.r.GET(path, rt.chain(h, opt)...)
}

func (rt *Routes) POST(path string, h HandlerFunc, opt RouteOpt) {
	rt.r.POST(path, rt.chain(h, opt)...)
}

func (rt *Routes) PUT(path string, h HandlerFunc, opt RouteOpt) {
	rt.r.PUT(path, rt.chain(h, opt)...)
}
