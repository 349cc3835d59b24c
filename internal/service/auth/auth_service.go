// Package service 实现管理后台的访问门禁与认证
// 秘密路径检查与登录相互独立: 前者只决定是否展示登录页, 后者签发无状态的Bearer令牌
package service

import (
	"context"
	"strings"
	"time"

	"github.com/weiwangfds/reelfolio/config"
	"github.com/weiwangfds/reelfolio/internal/database"
	apperrors "github.com/weiwangfds/reelfolio/internal/errors"
	"github.com/weiwangfds/reelfolio/internal/logger"
	"github.com/weiwangfds/reelfolio/internal/security"
	"gorm.io/gorm"
)

// DefaultTokenTTL 令牌默认有效期
const DefaultTokenTTL = 24 * time.Hour

// Identity 令牌中携带的管理员身份
type Identity struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// LoginResult 登录结果
type LoginResult struct {
	Token     string    `json:"token"`
	Admin     Identity  `json:"admin"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthService 认证服务接口
type AuthService interface {
	// PathExists 判断秘密路径是否恰好对应一个管理员, 无副作用
	PathExists(ctx context.Context, secretPath string) (bool, error)

	// Login 校验 (用户名, 密码, 秘密路径) 三元组并签发令牌
	// 任一字段错误都返回相同的 ErrInvalidCredentials
	Login(ctx context.Context, username, password, secretPath string) (*LoginResult, error)

	// Verify 校验令牌签名与有效期, 不访问数据库
	Verify(token string) (*Identity, error)
}

// authService 认证服务实现
type authService struct {
	db       *gorm.DB
	secret   []byte
	tokenTTL time.Duration
}

// NewAuthService 创建认证服务
// 未配置签名密钥时生成随机密钥, 此时重启后已签发的令牌全部失效
func NewAuthService(db *gorm.DB, cfg config.AuthConfig) AuthService {
	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		random, err := security.GenerateRandomBytes(32)
		if err != nil {
			logger.Fatalf("生成JWT签名密钥失败: %v", err)
		}
		secret = random
		logger.Warn("未配置 auth.jwt_secret (JWT_SECRET), 使用随机密钥; 重启后需要重新登录")
	}

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &authService{db: db, secret: secret, tokenTTL: ttl}
}

// PathExists 判断秘密路径是否存在
// 空串和超过列宽的字符串直接返回 false, 不查询数据库
func (s *authService) PathExists(ctx context.Context, secretPath string) (bool, error) {
	if secretPath == "" || len(secretPath) > database.SecretPathMaxLen {
		return false, nil
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&database.Admin{}).
		Where("secret_path = ?", secretPath).
		Count(&count).Error
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrDatabaseQuery, "", err)
	}
	return count == 1, nil
}

// Login 登录
func (s *authService) Login(ctx context.Context, username, password, secretPath string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	secretPath = strings.TrimSpace(secretPath)
	if username == "" || password == "" || secretPath == "" {
		return nil, apperrors.New(apperrors.ErrFieldsRequired, "")
	}

	var admins []database.Admin
	err := s.db.WithContext(ctx).
		Where("username = ? AND secret_path = ?", username, secretPath).
		Limit(1).
		Find(&admins).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "", err)
	}

	if len(admins) == 0 {
		// 保持与密码错误相同的耗时
		security.BurnPasswordCheck(password)
		logger.Warnf("登录失败: 用户名与秘密路径不匹配, username=%s", username)
		return nil, apperrors.New(apperrors.ErrInvalidCredentials, "")
	}

	admin := admins[0]
	if !security.CheckPassword(admin.Password, password) {
		logger.Warnf("登录失败: 密码错误, username=%s", username)
		return nil, apperrors.New(apperrors.ErrInvalidCredentials, "")
	}

	token, err := security.GenerateAdminToken(s.secret, admin.ID, admin.Username, s.tokenTTL)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, "", err)
	}

	logger.Infof("管理员登录成功: id=%d, username=%s", admin.ID, admin.Username)
	return &LoginResult{
		Token:     token,
		Admin:     Identity{ID: admin.ID, Username: admin.Username},
		ExpiresAt: time.Now().Add(s.tokenTTL),
	}, nil
}

// Verify 校验令牌
func (s *authService) Verify(token string) (*Identity, error) {
	claims, err := security.ParseAdminToken(s.secret, token)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrTokenInvalid, "", err)
	}
	return &Identity{ID: claims.AdminID, Username: claims.Username}, nil
}
