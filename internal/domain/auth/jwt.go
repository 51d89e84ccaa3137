// Package auth validates access tokens issued to dispensary staff.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	appctx "cannapos/internal/core/context"
)

// Claims carried in access tokens.
type Claims struct {
	jwt.RegisteredClaims
	UserID         int64    `json:"uid"`
	DispensaryID   int64    `json:"did"`
	OrganizationID int64    `json:"oid,omitempty"`
	Name           string   `json:"name,omitempty"`
	Roles          []string `json:"roles"`
}

// JWTService signs and validates HS256 tokens.
type JWTService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewJWTService creates a token service. An empty issuer is not checked.
func NewJWTService(secret, issuer string) *JWTService {
	return &JWTService{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// GenerateAccessToken signs a token for user valid for ttl.
func (s *JWTService) GenerateAccessToken(user appctx.UserContext, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(user.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:         user.UserID,
		DispensaryID:   user.DispensaryID,
		OrganizationID: user.OrganizationID,
		Name:           user.Name,
		Roles:          user.Roles,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses tokenString and returns the caller.
func (s *JWTService) ValidateToken(tokenString string) (*appctx.UserContext, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.UserID <= 0 || claims.DispensaryID <= 0 {
		return nil, errors.New("token has no user or dispensary")
	}

	return &appctx.UserContext{
		UserID:         claims.UserID,
		DispensaryID:   claims.DispensaryID,
		OrganizationID: claims.OrganizationID,
		Name:           claims.Name,
		Roles:          claims.Roles,
	}, nil
}
