package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"license-admin/internal/errs"
	"license-admin/internal/model"
)

type RefreshTokenStore struct {
	db *gorm.DB
}

func NewRefreshTokenStore(db *gorm.DB) *RefreshTokenStore {
	return &RefreshTokenStore{db: db}
}

func (s *RefreshTokenStore) Insert(row *model.RefreshToken) error {
	if err := s.db.Create(row).Error; err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

func (s *RefreshTokenStore) Get(tokenID string) (*model.RefreshToken, error) {
	var row model.RefreshToken
	err := s.db.Where("token_id = ?", tokenID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.ErrTokenRevoked
	}
	if err != nil {
		return nil, fmt.Errorf("get refresh token: %w", err)
	}
	return &row, nil
}

// Revoke marks the row revoked unconditionally. Used by logout, where
// revoking an already-revoked token is a no-op.
func (s *RefreshTokenStore) Revoke(tokenID string) error {
	err := s.db.Model(&model.RefreshToken{}).
		Where("token_id = ?", tokenID).
		Update("revoked", true).Error
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// Rotate revokes the old row and inserts the replacement in one transaction.
// The revoke is guarded on revoked = 0, so of two concurrent rotations of the
// same token exactly one commits; the loser gets ErrTokenRevoked.
func (s *RefreshTokenStore) Rotate(oldTokenID string, next *model.RefreshToken) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.RefreshToken{}).
			Where("token_id = ? AND revoked = ?", oldTokenID, false).
			Update("revoked", true)
		if res.Error != nil {
			return fmt.Errorf("revoke rotated token: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errs.ErrTokenRevoked
		}
		if err := tx.Create(next).Error; err != nil {
			return fmt.Errorf("insert rotated token: %w", err)
		}
		return nil
	})
}
