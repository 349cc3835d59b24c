package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("unit-test-secret")

func TestAdminTokenRoundTrip(t *testing.T) {
	token, err := GenerateAdminToken(testSecret, 7, "alice", time.Hour)
	require.NoError(t, err)

	claims, err := ParseAdminToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.AdminID)
	assert.Equal(t, "alice", claims.Username)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestAdminTokenRejectsAnyMutation(t *testing.T) {
	token, err := GenerateAdminToken(testSecret, 1, "alice", time.Hour)
	require.NoError(t, err)

	for i := 0; i < len(token); i++ {
		b := []byte(token)
		if b[i] == 'A' {
			b[i] = 'B'
		} else {
			b[i] = 'A'
		}
		_, err := ParseAdminToken(testSecret, string(b))
		assert.ErrorIs(t, err, ErrInvalidToken, "mutation at %d", i)
	}
}

func TestAdminTokenFailures(t *testing.T) {
	t.Run("过期", func(t *testing.T) {
		token, err := GenerateAdminToken(testSecret, 1, "alice", -time.Minute)
		require.NoError(t, err)
		_, err = ParseAdminToken(testSecret, token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("密钥不同", func(t *testing.T) {
		token, err := GenerateAdminToken(testSecret, 1, "alice", time.Hour)
		require.NoError(t, err)
		_, err = ParseAdminToken([]byte("other"), token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("格式错误", func(t *testing.T) {
		for _, s := range []string{"", "abc", "a.b.c"} {
			_, err := ParseAdminToken(testSecret, s)
			assert.ErrorIs(t, err, ErrInvalidToken, s)
		}
	})
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)
	assert.True(t, CheckPassword(hash, "hunter2"))
	assert.False(t, CheckPassword(hash, "hunter3"))
	assert.False(t, CheckPassword("not-a-hash", "hunter2"))

	// 只需保证不会panic
	BurnPasswordCheck("anything")
}

func TestRandom(t *testing.T) {
	a := GenerateSecretPath()
	b := GenerateSecretPath()
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "-")

	raw, err := GenerateRandomBytes(16)
	require.NoError(t, err)
	assert.Len(t, raw, 16)
}
