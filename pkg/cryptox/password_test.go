package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{"simple password", "password123"},
		{"complex password", "P@ssw0rd!#$%^&*()"},
		{"unicode password", "пароль🔒密码"},
		{"whitespace password", "   spaces   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(hash, "$2a$10$"), "bcrypt cost 10 expected, got %s", hash)

			require.NoError(t, VerifyPassword(tt.password, hash))
			require.ErrorIs(t, VerifyPassword(tt.password+"x", hash), ErrPasswordMismatch)
		})
	}
}

func TestHashPassword_Salted(t *testing.T) {
	a, err := HashPassword("password123")
	require.NoError(t, err)
	b, err := HashPassword("password123")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestHashPassword_TooLong(t *testing.T) {
	_, err := HashPassword(strings.Repeat("a", 73))
	require.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	err := VerifyPassword("password123", "not-a-hash")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrPasswordMismatch)
}

func TestBurnPasswordCheck(t *testing.T) {
	require.NotPanics(t, func() { BurnPasswordCheck("whatever") })
}
