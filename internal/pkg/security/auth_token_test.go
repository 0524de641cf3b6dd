package security

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthTokenRoundTrip(t *testing.T) {
	token, err := GenerateAuthToken("user-123", time.Hour, "secret")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := VerifyAuthToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Greater(t, claims.ExpiresAt, time.Now().Unix())
}

func TestGenerateAuthToken_RequiresInputs(t *testing.T) {
	_, err := GenerateAuthToken("user-123", time.Hour, "")
	assert.Error(t, err)

	_, err = GenerateAuthToken("  ", time.Hour, "secret")
	assert.Error(t, err)
}

func TestVerifyAuthToken_WrongSecret(t *testing.T) {
	token, err := GenerateAuthToken("user-123", time.Hour, "secret")
	require.NoError(t, err)

	_, err = VerifyAuthToken(token, "other-secret")
	assert.Error(t, err)
}

func TestVerifyAuthToken_TamperedPayload(t *testing.T) {
	token, err := GenerateAuthToken("user-123", time.Hour, "secret")
	require.NoError(t, err)

	parts := strings.SplitN(token, ".", 2)
	require.Len(t, parts, 2)

	// Swap in a different payload while keeping the original signature.
	forged, err := GenerateAuthToken("user-456", time.Hour, "secret")
	require.NoError(t, err)
	forgedPayload := strings.SplitN(forged, ".", 2)[0]

	_, err = VerifyAuthToken(forgedPayload+"."+parts[1], "secret")
	assert.Error(t, err)
}

func TestVerifyAuthToken_Expired(t *testing.T) {
	token, err := GenerateAuthToken("user-123", -time.Minute, "secret")
	require.NoError(t, err)

	_, err = VerifyAuthToken(token, "secret")
	assert.Error(t, err)
}

func TestVerifyAuthToken_MalformedToken(t *testing.T) {
	for _, tok := range []string{"", "nodot", "a.b.c!!", "!!!.###"} {
		if _, err := VerifyAuthToken(tok, "secret"); err == nil {
			t.Fatalf("expected malformed token %q to be rejected", tok)
		}
	}
}
