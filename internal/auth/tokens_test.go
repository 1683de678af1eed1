package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"picshare/internal/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAccessSecret  = "access-secret-for-tests-0123456789abcdef"
	testRefreshSecret = "refresh-secret-for-tests-0123456789abcdef"
)

func newTestService() *TokenService {
	return NewTokenService(testAccessSecret, testRefreshSecret, time.Hour, 7*24*time.Hour)
}

func TestAccessToken_RoundTrip(t *testing.T) {
	t.Parallel()
	svc := newTestService()

	token, err := svc.GenerateAccessToken(42, "user")
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "user", claims.Role)
	assert.Equal(t, TypeAccess, claims.Type)
	assert.Equal(t, Issuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestRefreshToken_RoundTrip(t *testing.T) {
	t.Parallel()
	svc := newTestService()

	token, err := svc.GenerateRefreshToken(7)
	require.NoError(t, err)

	claims, err := svc.ValidateRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, TypeRefresh, claims.Type)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	t.Parallel()
	svc := newTestService()

	access, err := svc.GenerateAccessToken(1, "user")
	require.NoError(t, err)
	refresh, err := svc.GenerateRefreshToken(1)
	require.NoError(t, err)

	_, err = svc.ValidateRefreshToken(access)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = svc.ValidateAccessToken(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Same secret for both kinds still rejects on the typ claim.
	shared := NewTokenService(testAccessSecret, testAccessSecret, time.Hour, time.Hour)
	access, err = shared.GenerateAccessToken(1, "user")
	require.NoError(t, err)
	_, err = shared.ValidateRefreshToken(access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_Rejects(t *testing.T) {
	t.Parallel()
	svc := newTestService()
	good, err := svc.GenerateAccessToken(1, "user")
	require.NoError(t, err)

	other := NewTokenService("some-other-secret-0123456789abcdef", testRefreshSecret, time.Hour, time.Hour)
	forged, err := other.GenerateAccessToken(1, "user")
	require.NoError(t, err)

	expiredSvc := newTestService()
	expiredSvc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiredSvc.GenerateAccessToken(1, "user")
	require.NoError(t, err)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: 1,
		Type:   TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			Issuer:    "someone-else",
			Audience:  jwt.ClaimStrings{Audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	wrongIssuer, err := foreign.SignedString([]byte(testAccessSecret))
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: 1, Type: TypeAccess})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"tampered", good + "x"},
		{"wrong secret", forged},
		{"expired", expired},
		{"wrong issuer", wrongIssuer},
		{"alg none", unsigned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateAccessToken(tt.token)
			assert.True(t, errors.Is(err, ErrInvalidToken), "got %v", err)
		})
	}
}

func TestGenerate_NoSecret(t *testing.T) {
	t.Parallel()
	svc := NewTokenService("", "", time.Hour, time.Hour)
	_, err := svc.GenerateAccessToken(1, "user")
	assert.Error(t, err)
}

func TestRevoke(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rdb.Close()
	})

	svc := newTestService()
	ctx := context.Background()
	token, err := svc.GenerateAccessToken(1, "user")
	require.NoError(t, err)
	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)

	revoked, err := svc.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, svc.Revoke(ctx, claims))

	revoked, err = svc.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	ttl := mr.TTL(cache.BlacklistKey(claims.ID))
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)

	mr.FastForward(time.Hour + time.Second)
	revoked, err = svc.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevoke_WithoutRedis(t *testing.T) {
	cache.SetClient(nil)
	svc := newTestService()

	assert.NoError(t, svc.Revoke(context.Background(), &Claims{RegisteredClaims: jwt.RegisteredClaims{ID: "abc"}}))
	revoked, err := svc.IsRevoked(context.Background(), "abc")
	assert.NoError(t, err)
	assert.False(t, revoked)
}
