package message

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"GVChat/data/database"
	"GVChat/data/database/sqlstore"
	"GVChat/middleware"
	"GVChat/middleware/security"
	chatmodel "GVChat/module/chat/model"
	"GVChat/module/chat/service"
	usermodel "GVChat/module/user/model"
	"GVChat/service/chat"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func verifyID(tok string) (int64, error) { return strconv.ParseInt(tok, 10, 64) }

func newRouter(t *testing.T) (*gin.Engine, *chat.Server, *database.Store) {
	t.Helper()
	st, err := sqlstore.Open(":memory:", true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close(context.Background()) })
	ctx := context.Background()
	require.NoError(t, st.Users.Create(ctx, &usermodel.User{ID: 1, Username: "alice", Email: "a@x"}))
	require.NoError(t, st.Users.Create(ctx, &usermodel.User{ID: 2, Username: "bob", Email: "b@x"}))

	srv := chat.NewServer(chat.Config{NodeID: "test"}, chat.Deps{Directory: st.Users, Messages: st.Messages})
	svc := service.NewMessageService(st.Messages, st.Users, srv, 0)

	r := gin.New()
	NewHandler(svc).Register(middleware.NewRoutes(r.Group("/api"), security.Middleware(security.DefaultOptions(verifyID))))
	return r, srv, st
}

func do(r http.Handler, method, path string, uid int64, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if uid != 0 {
		req.Header.Set("Authorization", "Bearer "+strconv.FormatInt(uid, 10))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPostMessageBroadcasts(t *testing.T) {
	r, srv, _ := newRouter(t)
	bob := srv.NewConn("")
	bob.Authenticate(2)
	require.NoError(t, srv.Presence().OnConnect(context.Background(), bob))

	w := do(r, http.MethodPost, "/api/messages", 1, `{"content":"hello","message_type":"direct","receiver_id":"2"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var m chatmodel.ChatMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.Equal(t, "hello", m.Content)
	require.NotNil(t, m.ReceiverID)
	assert.Equal(t, int64(2), *m.ReceiverID)

	select {
	case raw := <-bob.Outbound():
		f, err := chat.ParseFrame(raw)
		require.NoError(t, err)
		assert.Equal(t, chat.EventNewMessage, f.Event)
	default:
		t.Fatal("receiver got no frame")
	}

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/messages", 1, `{"content":"  ","message_type":"direct"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/messages", 1, `not json`).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/api/messages", 0, `{"content":"x"}`).Code)
}

func TestHistoryReadAndConversations(t *testing.T) {
	r, _, _ := newRouter(t)
	w := do(r, http.MethodPost, "/api/messages", 2, `{"content":"ping","receiver_id":1}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var sent chatmodel.ChatMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sent))

	w = do(r, http.MethodGet, "/api/messages?type=direct&chat_id=2", 1, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []*chatmodel.ChatMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, sent.ID, list[0].ID)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/messages?type=community", 1, "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/messages?chat_id=x", 1, "").Code)

	w = do(r, http.MethodGet, "/api/conversations", 1, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"unread_count":1`)

	read := "/api/messages/" + strconv.FormatInt(sent.ID, 10) + "/read"
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPut, read, 2, "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPut, "/api/messages/1/read", 1, "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPut, read, 1, "").Code)

	w = do(r, http.MethodGet, "/api/conversations", 1, "")
	assert.Contains(t, w.Body.String(), `"unread_count":0`)
}
