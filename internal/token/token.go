// Package token issues and verifies the signed access and refresh tokens.
// Access tokens verify statelessly; refresh tokens additionally carry a
// token_id that the auth service checks against the revocation store.
package token

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"license-admin/internal/errs"
	"license-admin/internal/model"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims is the payload carried by both token kinds. TokenID is set on
// refresh tokens only.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	Type     string `json:"type"`
	TokenID  string `json:"token_id,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim back into the user primary key.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse subject %q: %w", c.Subject, errs.ErrInvalidToken)
	}
	return uint(id), nil
}

// RefreshIssue is what IssueRefreshToken returns; the caller persists a
// RefreshToken row keyed by TokenID.
type RefreshIssue struct {
	Token     string
	TokenID   string
	ExpiresAt time.Time
}

type Service struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (s *Service) IssueAccessToken(user *model.User) (string, error) {
	return s.sign(user, TypeAccess, "", s.accessTTL, s.accessSecret)
}

func (s *Service) IssueRefreshToken(user *model.User) (RefreshIssue, error) {
	tokenID := uuid.NewString()
	signed, err := s.sign(user, TypeRefresh, tokenID, s.refreshTTL, s.refreshSecret)
	if err != nil {
		return RefreshIssue{}, err
	}
	return RefreshIssue{
		Token:     signed,
		TokenID:   tokenID,
		ExpiresAt: time.Now().Add(s.refreshTTL),
	}, nil
}

func (s *Service) sign(user *model.User, typ, tokenID string, ttl time.Duration, secret []byte) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: user.Username,
		Role:     user.Role,
		Type:     typ,
		TokenID:  tokenID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifyAccessToken checks signature, expiry and the type tag.
func (s *Service) VerifyAccessToken(tokenStr string) (*Claims, error) {
	return s.verify(tokenStr, TypeAccess, s.accessSecret)
}

// VerifyRefreshToken checks signature, expiry and the type tag. Revocation
// state lives in the refresh-token store and is checked by the caller.
func (s *Service) VerifyRefreshToken(tokenStr string) (*Claims, error) {
	return s.verify(tokenStr, TypeRefresh, s.refreshSecret)
}

func (s *Service) verify(tokenStr, typ string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, errs.ErrInvalidToken
	}
	if claims.Type != typ {
		return nil, errs.ErrInvalidToken
	}
	return claims, nil
}
