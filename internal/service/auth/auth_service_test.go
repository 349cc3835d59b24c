package service

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weiwangfds/reelfolio/config"
	"github.com/weiwangfds/reelfolio/internal/database"
	apperrors "github.com/weiwangfds/reelfolio/internal/errors"
	"github.com/weiwangfds/reelfolio/internal/security"
	"gorm.io/gorm"
)

func setupAuth(t *testing.T) (AuthService, *gorm.DB) {
	t.Helper()
	db, err := database.Init(config.DatabaseConfig{
		DSN:      filepath.Join(t.TempDir(), "portfolio.db"),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	hash, err := security.HashPassword("s3cret")
	require.NoError(t, err)
	require.NoError(t, db.Create(&database.Admin{
		Username:   "alice",
		Password:   hash,
		SecretPath: "studio-door",
	}).Error)

	return NewAuthService(db, config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour}), db
}

func TestPathExists(t *testing.T) {
	svc, _ := setupAuth(t)
	ctx := context.Background()

	cases := []struct {
		name string
		path string
		want bool
	}{
		{"已存在", "studio-door", true},
		{"其它字符串", "studio-door2", false},
		{"空串", "", false},
		{"超长字符串", strings.Repeat("x", 10000), false},
		{"大小写不同", "Studio-Door", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := svc.PathExists(ctx, tc.path)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestLogin(t *testing.T) {
	svc, _ := setupAuth(t)
	ctx := context.Background()

	result, err := svc.Login(ctx, " alice ", "s3cret", "studio-door")
	require.NoError(t, err)
	assert.Equal(t, "alice", result.Admin.Username)
	assert.NotEmpty(t, result.Token)
	assert.True(t, result.ExpiresAt.After(time.Now()))

	identity, err := svc.Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.Admin, *identity)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _ := setupAuth(t)
	ctx := context.Background()

	attempts := [][3]string{
		{"bob", "s3cret", "studio-door"},
		{"alice", "wrong", "studio-door"},
		{"alice", "s3cret", "other-door"},
		{"bob", "wrong", "other-door"},
	}
	var messages []string
	for _, a := range attempts {
		_, err := svc.Login(ctx, a[0], a[1], a[2])
		require.Error(t, err)
		appErr, ok := apperrors.GetAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrInvalidCredentials, appErr.Code)
		messages = append(messages, appErr.Error())
	}
	for _, m := range messages[1:] {
		assert.Equal(t, messages[0], m)
	}
}

func TestLoginRequiresAllFields(t *testing.T) {
	svc, _ := setupAuth(t)
	for _, a := range [][3]string{{"", "s3cret", "studio-door"}, {"alice", "", "studio-door"}, {"alice", "s3cret", "  "}} {
		_, err := svc.Login(context.Background(), a[0], a[1], a[2])
		assert.True(t, apperrors.HasCode(err, apperrors.ErrFieldsRequired))
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	svc, _ := setupAuth(t)

	_, err := svc.Verify("garbage")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrTokenInvalid))

	other := NewAuthService(nil, config.AuthConfig{})
	token, err := security.GenerateAdminToken([]byte("test-secret"), 1, "alice", time.Hour)
	require.NoError(t, err)
	_, err = other.Verify(token)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrTokenInvalid), "random secret must not accept tokens signed elsewhere")
}
