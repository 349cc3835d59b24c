package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	apperrors "github.com/weiwangfds/reelfolio/internal/errors"
	"github.com/weiwangfds/reelfolio/internal/response"
	authservice "github.com/weiwangfds/reelfolio/internal/service/auth"
)

// AdminContextKey gin上下文中保存管理员身份的键
const AdminContextKey = "admin"

// BearerToken 从 Authorization 头中取出Bearer令牌, 格式不正确时返回空串
func BearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireAdmin 要求请求携带有效的管理员令牌
// 未携带令牌返回401, 令牌无效或过期返回403
func RequireAdmin(auth authservice.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			response.Abort(c, apperrors.New(apperrors.ErrTokenMissing, ""))
			return
		}

		identity, err := auth.Verify(token)
		if err != nil {
			response.Abort(c, err)
			return
		}

		c.Set(AdminContextKey, identity)
		c.Next()
	}
}

// CurrentAdmin 获取当前请求的管理员身份
func CurrentAdmin(c *gin.Context) (*authservice.Identity, bool) {
	v, exists := c.Get(AdminContextKey)
	if !exists {
		return nil, false
	}
	identity, ok := v.(*authservice.Identity)
	return identity, ok
}
