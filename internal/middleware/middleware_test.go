package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weiwangfds/reelfolio/config"
	authservice "github.com/weiwangfds/reelfolio/internal/service/auth"
	"github.com/weiwangfds/reelfolio/internal/security"
)

const testSecret = "middleware-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newProtectedEngine() *gin.Engine {
	m := NewLoggerMiddleware()
	engine := gin.New()
	engine.Use(m.RequestID(), m.Logger())
	// 令牌校验不访问数据库
	auth := authservice.NewAuthService(nil, config.AuthConfig{JWTSecret: testSecret, TokenTTL: time.Hour})
	engine.GET("/protected", RequireAdmin(auth), func(c *gin.Context) {
		identity, ok := CurrentAdmin(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"username": identity.Username})
	})
	return engine
}

func TestRequireAdmin(t *testing.T) {
	engine := newProtectedEngine()
	valid, err := security.GenerateAdminToken([]byte(testSecret), 1, "alice", time.Hour)
	require.NoError(t, err)
	expired, err := security.GenerateAdminToken([]byte(testSecret), 1, "alice", -time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"未携带令牌", "", http.StatusUnauthorized},
		{"非Bearer方案", "Basic " + valid, http.StatusUnauthorized},
		{"Bearer后为空", "Bearer ", http.StatusUnauthorized},
		{"令牌无效", "Bearer abc.def.ghi", http.StatusForbidden},
		{"令牌过期", "Bearer " + expired, http.StatusForbidden},
		{"有效令牌", "Bearer " + valid, http.StatusOK},
		{"方案大小写不敏感", "bearer " + valid, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
		})
	}
}

func TestRequestIDPropagation(t *testing.T) {
	engine := newProtectedEngine()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(RequestIDHeader, "client-id")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, "client-id", w.Header().Get(RequestIDHeader))
}

func TestRequestLoggerRestoresBody(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestLogger(DefaultRequestLoggerConfig(true)))
	engine.POST("/echo", func(c *gin.Context) {
		data, err := io.ReadAll(c.Request.Body)
		require.NoError(t, err)
		c.Data(http.StatusOK, "application/json", data)
	})

	payload := []byte(`{"username":"alice","password":"secret"}`)
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, payload, w.Body.Bytes())
}

func TestRedact(t *testing.T) {
	var v interface{}
	require.NoError(t, json.Unmarshal([]byte(`{"username":"alice","password":"x","nested":{"secretPath":"door"}}`), &v))
	out := redact(v).(map[string]interface{})
	assert.Equal(t, "alice", out["username"])
	assert.NotEqual(t, "x", out["password"])
	assert.NotEqual(t, "door", out["nested"].(map[string]interface{})["secretPath"])
}
