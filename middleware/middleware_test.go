package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"GVChat/middleware/security"
	"GVChat/tools/errs"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() { gin.SetMode(gin.TestMode) }

func TestHandleRendersCodeError(t *testing.T) {
	r := gin.New()
	r.GET("/missing", Handle(func(c *gin.Context) error {
		return errs.ErrRecordNotFound.WrapMsg("message", "id", 9)
	}))
	r.GET("/boom", Handle(func(c *gin.Context) error { return errors.New("boom") }))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"code":1004`)
	assert.Contains(t, w.Body.String(), `id=9`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRoutesInsertAuth(t *testing.T) {
	verify := func(tok string) (int64, error) {
		if tok == "good" {
			return 42, nil
		}
		return 0, errors.New("bad token")
	}
	r := gin.New()
	rt := NewRoutes(r, security.Middleware(security.DefaultOptions(verify)))
	rt.GET("/me", func(c *gin.Context) error {
		uid, _ := security.CurrentUserID(c)
		c.JSON(http.StatusOK, gin.H{"id": uid})
		return nil
	}, RouteOpt{IsAuth: true})
	rt.GET("/open", func(c *gin.Context) error {
		c.Status(http.StatusNoContent)
		return nil
	}, RouteOpt{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":42}`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: security.SessionCookie, Value: "good"})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/open", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestOrigin(t *testing.T) {
	assert.True(t, OriginAllowed(nil, "https://evil.example"))
	assert.True(t, OriginAllowed([]string{"https://app.example"}, ""))
	assert.False(t, OriginAllowed([]string{"https://app.example"}, "https://evil.example"))

	m := NewManager()
	m.Add(Origin([]string{"https://app.example"}))
	r := gin.New()
	r.Use(m.Use())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
