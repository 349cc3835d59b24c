package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/weiwangfds/reelfolio/internal/errors"
	"github.com/weiwangfds/reelfolio/internal/middleware"
	"github.com/weiwangfds/reelfolio/internal/response"
	authservice "github.com/weiwangfds/reelfolio/internal/service/auth"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	authService authservice.AuthService
}

// NewAuthHandler 创建认证处理器实例
func NewAuthHandler(authService authservice.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// LoginRequest 登录请求体
type LoginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	SecretPath string `json:"secretPath"`
}

// VerifyPath 检查秘密路径
// @Summary 检查管理后台秘密路径
// @Tags 认证
// @Produce json
// @Param secretPath path string true "秘密路径"
// @Success 200 {object} map[string]interface{} "路径有效"
// @Failure 404 {object} map[string]interface{} "路径无效"
// @Router /api/auth/verify-path/{secretPath} [get]
func (h *AuthHandler) VerifyPath(c *gin.Context) {
	ok, err := h.authService.PathExists(c.Request.Context(), c.Param("secretPath"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"valid": false,
			"error": apperrors.GetErrorMessage(apperrors.ErrSecretPathInvalid),
		})
		return
	}
	response.Success(c, gin.H{"valid": true})
}

// Login 管理员登录
// @Summary 管理员登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body LoginRequest true "登录信息"
// @Success 200 {object} map[string]interface{} "登录成功"
// @Failure 400 {object} map[string]interface{} "缺少字段"
// @Failure 401 {object} map[string]interface{} "凭据无效"
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// 请求体无法解析时按缺少字段处理
		response.Error(c, apperrors.New(apperrors.ErrFieldsRequired, ""))
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Username, req.Password, req.SecretPath)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{
		"message": "Login successful",
		"token":   result.Token,
		"admin":   result.Admin,
	})
}

// Verify 校验令牌
// @Summary 校验管理员令牌
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "令牌有效"
// @Failure 401 {object} map[string]interface{} "未提供令牌"
// @Failure 403 {object} map[string]interface{} "令牌无效或已过期"
// @Router /api/auth/verify [post]
func (h *AuthHandler) Verify(c *gin.Context) {
	token := middleware.BearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"valid": false})
		return
	}

	identity, err := h.authService.Verify(token)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"valid": false})
		return
	}
	response.Success(c, gin.H{"valid": true, "admin": identity})
}
