package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/lab-review/internal/model"
)

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestParser_Parse(t *testing.T) {
	token := signToken(t, "secret", Claims{
		Role: "Director",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-7",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	principal, err := NewParser("secret").Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-7", principal.UserID)
	assert.Equal(t, model.RoleDirector, principal.Role)
	assert.Equal(t, token, principal.Token)
	assert.True(t, principal.CanDecide())
	assert.False(t, principal.CanUpload())
}

func TestParser_UserIDClaimWins(t *testing.T) {
	token := signToken(t, "secret", Claims{UserID: "42", Role: "lab", RegisteredClaims: jwt.RegisteredClaims{Subject: "other"}})

	principal, err := NewParser("secret").Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "42", principal.UserID)
	assert.Equal(t, model.RoleLaboratory, principal.Role)
	assert.True(t, principal.CanUpload())
}

func TestParser_Rejects(t *testing.T) {
	parser := NewParser("secret")

	tests := map[string]string{
		"wrong secret": signToken(t, "other", Claims{Role: "admin"}),
		"expired": signToken(t, "secret", Claims{Role: "admin", RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		}}),
		"unknown role": signToken(t, "secret", Claims{Role: "driver"}),
		"garbage":      "not-a-token",
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parser.Parse(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
