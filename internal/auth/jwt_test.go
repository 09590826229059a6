package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, claims Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-only"))
	require.NoError(t, err)
	return tok
}

func TestInspect(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name    string
		token   func(t *testing.T) string
		wantErr bool
		check   func(t *testing.T, c *Claims)
	}{
		{
			name: "reads name and uid without the key",
			token: func(t *testing.T) string {
				return sign(t, Claims{UserID: "u1", DisplayName: "Alice", RegisteredClaims: jwt.RegisteredClaims{
					ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
				}})
			},
			check: func(t *testing.T, c *Claims) {
				assert.Equal(t, "u1", c.UserID)
				assert.Equal(t, "Alice", c.DisplayName)
				assert.NoError(t, c.CheckExpiry(now))
			},
		},
		{
			name: "expired token is decoded but flagged",
			token: func(t *testing.T) string {
				return sign(t, Claims{UserID: "u1", RegisteredClaims: jwt.RegisteredClaims{
					ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
				}})
			},
			check: func(t *testing.T, c *Claims) {
				assert.ErrorIs(t, c.CheckExpiry(now), ErrTokenExpired)
			},
		},
		{
			name: "no exp never expires",
			token: func(t *testing.T) string {
				return sign(t, Claims{UserID: "u1"})
			},
			check: func(t *testing.T, c *Claims) {
				assert.NoError(t, c.CheckExpiry(now.Add(100*365*24*time.Hour)))
			},
		},
		{
			name:    "garbage",
			token:   func(*testing.T) string { return "not-a-token" },
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := Inspect(tc.token(t))
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tc.check(t, c)
		})
	}
}
