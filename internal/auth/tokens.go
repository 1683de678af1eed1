// Package auth issues and verifies the JWTs used by the API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"picshare/internal/cache"
	"picshare/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	Issuer   = "picshare-api"
	Audience = "picshare-client"

	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrRevoked      = errors.New("token has been revoked")
)

// Claims represents JWT claims. Subject holds the user id as a decimal string.
type Claims struct {
	UserID uint   `json:"uid"`
	Role   string `json:"role,omitempty"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenService handles JWT token generation and validation. Access and
// refresh tokens are signed with different secrets.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenService creates a TokenService with explicit secrets and lifetimes.
func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// NewTokenServiceFromConfig wires secrets and lifetimes from cfg.
func NewTokenServiceFromConfig(cfg *config.Config) *TokenService {
	return NewTokenService(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())
}

// AccessTTL is the lifetime of newly issued access tokens.
func (s *TokenService) AccessTTL() time.Duration {
	return s.accessTTL
}

// GenerateAccessToken signs a short-lived token carrying the user id and role.
func (s *TokenService) GenerateAccessToken(userID uint, role string) (string, error) {
	return s.sign(userID, role, TypeAccess, s.accessTTL, s.accessSecret)
}

// GenerateRefreshToken signs a long-lived token that can only be exchanged
// for new access tokens.
func (s *TokenService) GenerateRefreshToken(userID uint) (string, error) {
	return s.sign(userID, "", TypeRefresh, s.refreshTTL, s.refreshSecret)
}

func (s *TokenService) sign(userID uint, role, typ string, ttl time.Duration, secret []byte) (string, error) {
	if len(secret) == 0 {
		return "", fmt.Errorf("JWT secret not configured")
	}
	now := s.now()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ValidateAccessToken verifies signature, issuer, audience, expiry and type.
func (s *TokenService) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, s.accessSecret, TypeAccess)
}

// ValidateRefreshToken is ValidateAccessToken for refresh tokens.
func (s *TokenService) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, s.refreshSecret, TypeRefresh)
}

func (s *TokenService) validate(tokenString string, secret []byte, typ string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != typ {
		return nil, fmt.Errorf("%w: expected %s token", ErrInvalidToken, typ)
	}
	if claims.UserID == 0 || claims.Subject != strconv.FormatUint(uint64(claims.UserID), 10) {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return claims, nil
}

// Revoke blacklists the token's jti until the token would have expired
// anyway. Without Redis it does nothing.
func (s *TokenService) Revoke(ctx context.Context, claims *Claims) error {
	rdb := cache.GetClient()
	if rdb == nil || claims == nil || claims.ID == "" {
		return nil
	}
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(s.now())
	}
	if ttl <= 0 {
		return nil
	}
	return rdb.Set(ctx, cache.BlacklistKey(claims.ID), "1", ttl).Err()
}

// IsRevoked reports whether jti was blacklisted. Redis errors are returned so
// the caller decides whether to fail open.
func (s *TokenService) IsRevoked(ctx context.Context, jti string) (bool, error) {
	rdb := cache.GetClient()
	if rdb == nil || jti == "" {
		return false, nil
	}
	n, err := rdb.Exists(ctx, cache.BlacklistKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
