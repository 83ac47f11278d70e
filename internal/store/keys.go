package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"license-admin/internal/errs"
	"license-admin/internal/model"
)

type KeyStore struct {
	db *gorm.DB
}

func NewKeyStore(db *gorm.DB) *KeyStore {
	return &KeyStore{db: db}
}

func (s *KeyStore) GetByValue(keyValue string) (*model.LicenseKey, error) {
	var key model.LicenseKey
	err := s.db.Where("key_value = ?", keyValue).First(&key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get key by value: %w", err)
	}
	return &key, nil
}

func (s *KeyStore) GetByID(id uint) (*model.LicenseKey, error) {
	var key model.LicenseKey
	err := s.db.First(&key, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get key by id: %w", err)
	}
	return &key, nil
}

func (s *KeyStore) Create(key *model.LicenseKey) error {
	if err := s.db.Create(key).Error; err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return errs.ErrDuplicateKey
		}
		return fmt.Errorf("create key: %w", err)
	}
	return nil
}

// List filters by exact status and substring search over key_value and hwid,
// newest first.
func (s *KeyStore) List(status, search string) ([]model.LicenseKey, error) {
	q := s.db.Model(&model.LicenseKey{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if search != "" {
		like := "%" + search + "%"
		q = q.Where("key_value LIKE ? OR hwid LIKE ?", like, like)
	}

	var keys []model.LicenseKey
	if err := q.Order("created_at DESC").Find(&keys).Error; err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}

func (s *KeyStore) ListCreatedBy(userID uint) ([]model.LicenseKey, error) {
	var keys []model.LicenseKey
	err := s.db.Where("created_by = ?", userID).Order("created_at DESC").Find(&keys).Error
	if err != nil {
		return nil, fmt.Errorf("list keys by creator: %w", err)
	}
	return keys, nil
}

func (s *KeyStore) Stats() (model.KeyStats, error) {
	var stats model.KeyStats
	err := s.db.Model(&model.LicenseKey{}).
		Select(
			"COUNT(*) AS total, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS active, "+
				"COALESCE(SUM(CASE WHEN is_blocked THEN 1 ELSE 0 END), 0) AS blocked",
			model.StatusActive,
		).
		Scan(&stats).Error
	if err != nil {
		return model.KeyStats{}, fmt.Errorf("key stats: %w", err)
	}
	return stats, nil
}

func (s *KeyStore) History(keyID uint) ([]model.ActivationHistory, error) {
	var entries []model.ActivationHistory
	err := s.db.Where("key_id = ?", keyID).Order("created_at DESC").Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("key history: %w", err)
	}
	return entries, nil
}

// LatestActivity returns the newest history entries joined with their key
// values, for the admin activity feed.
func (s *KeyStore) LatestActivity(limit int) ([]model.ActivityEntry, error) {
	var entries []model.ActivityEntry
	err := s.db.Model(&model.ActivationHistory{}).
		Select("activation_histories.id, license_keys.key_value, activation_histories.hwid, "+
			"activation_histories.action, activation_histories.metadata, activation_histories.created_at").
		Joins("JOIN license_keys ON license_keys.id = activation_histories.key_id").
		Order("activation_histories.created_at DESC").
		Limit(limit).
		Scan(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("latest activity: %w", err)
	}
	return entries, nil
}

// Activate binds the hwid, moves the key to active and appends the history
// entry in one transaction. The update is guarded so that against an unbound
// key exactly one of two concurrent activations with different hwids wins;
// the guard also drops out if the key got blocked in between. A zero-row
// update surfaces as ErrHwidMismatch and the caller re-reads to classify.
func (s *KeyStore) Activate(keyID uint, hwid, metadata string) error {
	now := time.Now()
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.LicenseKey{}).
			Where("id = ? AND is_blocked = ? AND (hwid IS NULL OR hwid = '' OR hwid = ?)",
				keyID, false, hwid).
			Updates(map[string]interface{}{
				"hwid":            hwid,
				"status":          model.StatusActive,
				"last_activation": now,
			})
		if res.Error != nil {
			return fmt.Errorf("activate key: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errs.ErrHwidMismatch
		}

		entry := &model.ActivationHistory{
			KeyID:    keyID,
			Hwid:     hwid,
			Action:   model.ActionActivate,
			Metadata: metadata,
		}
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("append activation history: %w", err)
		}
		return nil
	})
}

// SetBlocked flips is_blocked. Blocking forces status to blocked; unblocking
// leaves status alone, the key reactivates only through a later activation.
func (s *KeyStore) SetBlocked(id uint, blocked bool) error {
	updates := map[string]interface{}{"is_blocked": blocked}
	if blocked {
		updates["status"] = model.StatusBlocked
	}

	res := s.db.Model(&model.LicenseKey{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("set blocked: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.ErrKeyNotFound
	}
	return nil
}

// SetHwid overwrites the bound hwid unconditionally (admin override).
func (s *KeyStore) SetHwid(id uint, hwid *string) error {
	res := s.db.Model(&model.LicenseKey{}).Where("id = ?", id).Update("hwid", hwid)
	if res.Error != nil {
		return fmt.Errorf("set hwid: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.ErrKeyNotFound
	}
	return nil
}

func (s *KeyStore) SetExpiry(id uint, expiresAt time.Time) error {
	res := s.db.Model(&model.LicenseKey{}).Where("id = ?", id).Update("expires_at", expiresAt)
	if res.Error != nil {
		return fmt.Errorf("set expiry: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.ErrKeyNotFound
	}
	return nil
}
