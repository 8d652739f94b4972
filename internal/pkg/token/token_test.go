package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServiceRequiresSecret(t *testing.T) {
	_, err := NewService(Config{Secret: ""})
	require.Error(t, err)

	svc, err := NewService(Config{Secret: "test-secret"})
	require.NoError(t, err)
	require.NotNil(t, svc)
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	svc, err := NewService(Config{Secret: "test-secret"})
	require.NoError(t, err)

	tok, err := svc.Issue("user-42")
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	userID, err := svc.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer, err := NewService(Config{Secret: "secret-a"})
	require.NoError(t, err)
	verifier, err := NewService(Config{Secret: "secret-b"})
	require.NoError(t, err)

	tok, err := issuer.Issue("user-42")
	require.NoError(t, err)

	_, err = verifier.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsMalformedToken(t *testing.T) {
	svc, err := NewService(Config{Secret: "test-secret"})
	require.NoError(t, err)

	for _, tok := range []string{"", "garbage", "a.b.c"} {
		_, err := svc.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc, err := NewService(Config{Secret: "test-secret", TTL: time.Millisecond})
	require.NoError(t, err)

	tok, err := svc.Issue("user-42")
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	_, err = svc.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsUnsignedAlgorithm(t *testing.T) {
	svc, err := NewService(Config{Secret: "test-secret"})
	require.NoError(t, err)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	tok, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssueUsesConfiguredTTL(t *testing.T) {
	svc, err := NewService(Config{Secret: "test-secret", TTL: time.Hour})
	require.NoError(t, err)

	tok, err := svc.Issue("user-42")
	require.NoError(t, err)

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)

	remaining := time.Until(claims.ExpiresAt.Time)
	assert.Greater(t, remaining, 55*time.Minute)
	assert.LessOrEqual(t, remaining, time.Hour)
}
