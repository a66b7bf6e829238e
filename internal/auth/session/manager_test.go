package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/checkvibe/gatekeeper/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRequestToken(t *testing.T) {
	m := NewManager(config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := m.ReadRequestToken(req)
	assert.False(t, ok)

	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "  "})
	_, ok = m.ReadRequestToken(req)
	assert.False(t, ok)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "tok"})
	token, ok := m.ReadRequestToken(req)
	require.True(t, ok)
	assert.Equal(t, "tok", token)
}

func TestSetAndClearCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewManager(config.Config{AuthCookieSecure: true})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	m.Set(c, "tok", time.Now().Add(time.Hour))

	header := w.Header().Get("Set-Cookie")
	assert.True(t, strings.HasPrefix(header, "_sid=tok"))
	assert.Contains(t, header, "HttpOnly")
	assert.Contains(t, header, "Secure")
	assert.Contains(t, header, "SameSite=Lax")

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	m.Clear(c)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")
}
