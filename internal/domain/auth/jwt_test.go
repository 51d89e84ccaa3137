package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "cannapos/internal/core/context"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService("secret", "cannapos")
	user := appctx.UserContext{UserID: 7, DispensaryID: 2, Name: "Budtender", Roles: []string{appctx.RoleUser}}

	token, err := svc.GenerateAccessToken(user, time.Hour)
	require.NoError(t, err)

	got, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user, *got)
}

func TestJWTService_Rejects(t *testing.T) {
	svc := NewJWTService("secret", "cannapos")
	valid := appctx.UserContext{UserID: 7, DispensaryID: 2, Roles: []string{appctx.RoleUser}}

	expired := NewJWTService("secret", "cannapos")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, err := expired.GenerateAccessToken(valid, time.Hour)
	require.NoError(t, err)

	wrongKey, err := NewJWTService("other", "cannapos").GenerateAccessToken(valid, time.Hour)
	require.NoError(t, err)

	wrongIssuer, err := NewJWTService("secret", "someone-else").GenerateAccessToken(valid, time.Hour)
	require.NoError(t, err)

	noDispensary, err := svc.GenerateAccessToken(appctx.UserContext{UserID: 7}, time.Hour)
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":       "not-a-token",
		"expired":       expiredToken,
		"wrong key":     wrongKey,
		"wrong issuer":  wrongIssuer,
		"no dispensary": noDispensary,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			assert.Error(t, err)
		})
	}
}
