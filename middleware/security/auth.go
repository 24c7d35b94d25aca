package security

import (
	"net/http"
	"strings"

	"GVChat/tools/errs"

	"github.com/gin-gonic/gin"
)

// CtxUserIDKey holds the authenticated user id (int64) in the gin context.
const CtxUserIDKey = "current_user_id"

// SessionCookie carries the login token for browser clients.
const SessionCookie = "gv_session"

// Verifier turns a session token into a user id.
type Verifier func(token string) (int64, error)

type Options struct {
	Verify     Verifier
	CookieName string // default SessionCookie
	AllowQuery bool   // accept ?token=, for WebSocket clients that cannot set headers
}

func DefaultOptions(verify Verifier) *Options {
	return &Options{Verify: verify, CookieName: SessionCookie, AllowQuery: true}
}

// TokenFromRequest looks at the Authorization bearer header, then the
// session cookie, then the query string.
func TokenFromRequest(r *http.Request, opts *Options) string {
	if authz := strings.TrimSpace(r.Header.Get("Authorization")); authz != "" {
		if len(authz) > 7 && strings.EqualFold(authz[:7], "bearer ") {
			return strings.TrimSpace(authz[7:])
		}
	}
	name := opts.CookieName
	if name == "" {
		name = SessionCookie
	}
	if ck, err := r.Cookie(name); err == nil && ck.Value != "" {
		return ck.Value
	}
	if opts.AllowQuery {
		return strings.TrimSpace(r.URL.Query().Get("token"))
	}
	return ""
}

// Authenticate resolves the request's user; ok is false for anonymous or
// invalid tokens.
func Authenticate(r *http.Request, opts *Options) (int64, bool) {
	token := TokenFromRequest(r, opts)
	if token == "" || opts.Verify == nil {
		return 0, false
	}
	uid, err := opts.Verify(token)
	if err != nil {
		return 0, false
	}
	return uid, true
}

// Middleware rejects requests without a valid session with 401.
func Middleware(opts *Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := Authenticate(c.Request, opts)
		if !ok {
			ce := errs.ErrUnauthorized
			c.AbortWithStatusJSON(errs.HTTPStatus(ce.Code), ce)
			return
		}
		c.Set(CtxUserIDKey, uid)
		c.Next()
	}
}

// CurrentUserID reads what Middleware stored.
func CurrentUserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(CtxUserIDKey)
	if !ok {
		return 0, false
	}
	uid, ok := v.(int64)
	return uid, ok
}
