package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws/chats/*slug", handlers...)
	return r
}

func TestWSCredentialMiddleware(t *testing.T) {
	var got string
	var exists bool
	r := newRouter(WSCredentialMiddleware("accessToken"), func(c *gin.Context) {
		var v any
		v, exists = c.Get(CredentialKey)
		got, _ = v.(string)
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws/chats/a", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: "from-cookie"})
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.True(t, exists)
	require.Equal(t, "from-cookie", got)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws/chats/a", nil))
	require.Equal(t, http.StatusNoContent, w.Code)
	require.False(t, exists)
}

func TestRequireUpgrade(t *testing.T) {
	r := newRouter(RequireUpgrade(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws/chats/a", nil))
	require.Equal(t, http.StatusUpgradeRequired, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws/chats/a", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
}
