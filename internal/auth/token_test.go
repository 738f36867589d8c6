package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	iss := NewIssuer("test-secret", time.Hour)

	token, err := iss.Issue("65f0c0ffee0000000000abcd", "ana@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := iss.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "65f0c0ffee0000000000abcd", claims.UserID)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.Equal(t, "65f0c0ffee0000000000abcd", claims.Subject)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := NewIssuer("test-secret", time.Hour).Parse("not-a-valid-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := NewIssuer("correct-secret", time.Hour).Issue("u1", "a@b.co")
	require.NoError(t, err)

	_, err = NewIssuer("wrong-secret", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpired(t *testing.T) {
	iss := NewIssuer("test-secret", time.Hour)
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	iss.now = func() time.Time { return start }

	token, err := iss.Issue("u1", "a@b.co")
	require.NoError(t, err)

	iss.now = func() time.Time { return start.Add(2 * time.Hour) }
	_, err = iss.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsWrongAudience(t *testing.T) {
	secret := "test-secret"
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{"someone-else"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UserID: "u1",
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = NewIssuer(secret, time.Hour).Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsMissingUserID(t *testing.T) {
	iss := NewIssuer("test-secret", time.Hour)
	token, err := iss.Issue("", "a@b.co")
	require.NoError(t, err)

	_, err = iss.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewResetToken(t *testing.T) {
	token, hash := NewResetToken()
	other, otherHash := NewResetToken()

	assert.NotEqual(t, token, other)
	assert.NotEqual(t, hash, otherHash)
	assert.Equal(t, hash, HashResetToken(token))
	assert.Len(t, hash, 64)
	assert.NotContains(t, hash, token)
}
