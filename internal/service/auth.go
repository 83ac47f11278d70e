// Package service contains the application services behind the HTTP handlers.
package service

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"license-admin/internal/errs"
	"license-admin/internal/model"
	"license-admin/internal/store"
	"license-admin/internal/token"
)

// LoginResult is the full payload returned on a successful login.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         model.PublicUser
}

// TokenPair is what a refresh rotation hands back.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type AuthService struct {
	users      *store.UserStore
	refresh    *store.RefreshTokenStore
	tokens     *token.Service
	bcryptCost int
	log        *zap.Logger
}

func NewAuthService(users *store.UserStore, refresh *store.RefreshTokenStore, tokens *token.Service, bcryptCost int, log *zap.Logger) *AuthService {
	return &AuthService{users: users, refresh: refresh, tokens: tokens, bcryptCost: bcryptCost, log: log}
}

// Login authenticates the user and issues a fresh access/refresh pair. The
// disabled-account check runs before the password compare so no tokens are
// ever issued for a disabled account.
func (s *AuthService) Login(username, password string) (LoginResult, error) {
	user, err := s.users.GetByUsername(username)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return LoginResult{}, errs.ErrInvalidCredentials
		}
		// lookup failures are masked as bad credentials, details go to the log
		s.log.Error("user lookup failed", zap.Error(err))
		return LoginResult{}, errs.ErrInvalidCredentials
	}

	if !user.IsActive {
		return LoginResult{}, errs.ErrAccountDisabled
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return LoginResult{}, errs.ErrInvalidCredentials
	}

	access, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue access token: %w", err)
	}
	issue, err := s.tokens.IssueRefreshToken(user)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue refresh token: %w", err)
	}

	row := &model.RefreshToken{
		TokenID:   issue.TokenID,
		UserID:    user.ID,
		Token:     issue.Token,
		ExpiresAt: issue.ExpiresAt,
	}
	if err := s.refresh.Insert(row); err != nil {
		return LoginResult{}, err
	}

	return LoginResult{
		AccessToken:  access,
		RefreshToken: issue.Token,
		User:         user.Public(),
	}, nil
}

// Refresh rotates a refresh token: the presented token's stored row is
// revoked and a brand-new pair is issued. A replayed token loses the guarded
// revoke inside the store and gets ErrTokenRevoked.
func (s *AuthService) Refresh(refreshToken string) (TokenPair, error) {
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, errs.ErrInvalidToken
	}

	row, err := s.refresh.Get(claims.TokenID)
	if err != nil {
		return TokenPair{}, err
	}
	if row.Revoked || time.Now().After(row.ExpiresAt) {
		return TokenPair{}, errs.ErrTokenRevoked
	}

	user, err := s.users.GetByID(row.UserID)
	if err != nil {
		return TokenPair{}, errs.ErrTokenRevoked
	}

	access, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	issue, err := s.tokens.IssueRefreshToken(user)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}

	next := &model.RefreshToken{
		TokenID:   issue.TokenID,
		UserID:    user.ID,
		Token:     issue.Token,
		ExpiresAt: issue.ExpiresAt,
	}
	if err := s.refresh.Rotate(claims.TokenID, next); err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: access, RefreshToken: issue.Token}, nil
}

// Logout revokes the token's stored row when the token verifies and reports
// success either way, so callers learn nothing about token validity.
func (s *AuthService) Logout(refreshToken string) {
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return
	}
	if err := s.refresh.Revoke(claims.TokenID); err != nil {
		s.log.Error("logout revoke failed", zap.Error(err))
	}
}

// Profile returns the stored account for an authenticated user.
func (s *AuthService) Profile(userID uint) (*model.User, error) {
	return s.users.GetByID(userID)
}

// ListUsers returns all accounts, newest first.
func (s *AuthService) ListUsers() ([]model.User, error) {
	return s.users.List()
}

// CreateUser registers an account with a bcrypt-hashed password. Role values
// are validated at the handler.
func (s *AuthService) CreateUser(username, password, role string, isActive bool) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     isActive,
	}
	if err := s.users.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetUserActive toggles the is_active flag.
func (s *AuthService) SetUserActive(id uint, active bool) error {
	return s.users.SetActive(id, active)
}
