package cryptox

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSessionToken(t *testing.T) {
	token, err := NewSessionToken()
	require.NoError(t, err)
	require.Len(t, token, 2*SessionTokenBytes)

	raw, err := hex.DecodeString(token)
	require.NoError(t, err)
	require.Len(t, raw, SessionTokenBytes)

	const count = 100
	seen := make(map[string]struct{}, count)
	for range count {
		token, err := NewSessionToken()
		require.NoError(t, err)
		require.NotContains(t, seen, token, "duplicate token generated")
		seen[token] = struct{}{}
	}
}

func TestFingerprintToken(t *testing.T) {
	fp1a := FingerprintToken("test-token-1")
	fp1b := FingerprintToken("test-token-1")
	fp2 := FingerprintToken("test-token-2")

	require.Equal(t, fp1a, fp1b, "fingerprint should be deterministic")
	require.NotEqual(t, fp1a, fp2)
	require.Len(t, fp1a, 11)
	require.NotContains(t, fp1a, "test-token")
}
