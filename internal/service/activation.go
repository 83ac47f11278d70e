package service

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"license-admin/internal/errs"
	"license-admin/internal/model"
	"license-admin/internal/store"
)

// RequestMeta is the client-request context recorded with every activation.
type RequestMeta struct {
	Comment   string
	IP        string
	UserAgent string
}

// ActivationResult is what a successful activation reports back.
type ActivationResult struct {
	ExpiresAt *time.Time `json:"expires_at"`
	Hwid      string     `json:"hwid"`
}

// KeyCheck is the read-only projection served by check_key. HwidMatches is
// nil while the key has no bound hwid.
type KeyCheck struct {
	Key           string     `json:"key"`
	Status        string     `json:"status"`
	Hwid          *string    `json:"hwid"`
	ExpiresAt     *time.Time `json:"expires_at"`
	IsBlocked     bool       `json:"is_blocked"`
	HwidMatches   *bool      `json:"hwid_matches"`
	RemainingDays *int       `json:"remaining_days"`
}

// CreateKeyInput carries the admin key-creation fields. KeyValue is generated
// when empty; ValidDays is used when ExpiresAt is unset.
type CreateKeyInput struct {
	KeyValue  string
	Status    string
	Hwid      *string
	ExpiresAt *time.Time
	ValidDays int
	Comment   string
	CreatedBy uint
}

// ActivationEngine owns the per-key state machine: new -> active, with
// blocked forced by the admin is_blocked flag.
type ActivationEngine struct {
	keys *store.KeyStore
	log  *zap.Logger
}

func NewActivationEngine(keys *store.KeyStore, log *zap.Logger) *ActivationEngine {
	return &ActivationEngine{keys: keys, log: log}
}

// Activate validates the key against the supplied hwid, binds the hwid on
// first use and appends a history entry. Record mutation and history append
// commit together or not at all.
func (e *ActivationEngine) Activate(keyValue, hwid string, meta RequestMeta) (ActivationResult, error) {
	key, err := e.keys.GetByValue(keyValue)
	if err != nil {
		return ActivationResult{}, err
	}

	if err := checkActivatable(key, hwid); err != nil {
		return ActivationResult{}, err
	}

	metadata, err := json.Marshal(map[string]interface{}{
		"comment":   nullable(meta.Comment),
		"ip":        meta.IP,
		"userAgent": nullable(meta.UserAgent),
	})
	if err != nil {
		return ActivationResult{}, fmt.Errorf("encode activation metadata: %w", err)
	}

	if err := e.keys.Activate(key.ID, hwid, string(metadata)); err != nil {
		if !errors.Is(err, errs.ErrHwidMismatch) {
			return ActivationResult{}, err
		}
		// lost a race: re-read and report what actually stopped us
		current, readErr := e.keys.GetByValue(keyValue)
		if readErr != nil {
			return ActivationResult{}, readErr
		}
		if classifyErr := checkActivatable(current, hwid); classifyErr != nil {
			return ActivationResult{}, classifyErr
		}
		return ActivationResult{}, err
	}

	e.log.Info("key activated", zap.String("key", keyValue), zap.String("hwid", hwid))
	return ActivationResult{ExpiresAt: key.ExpiresAt, Hwid: hwid}, nil
}

func checkActivatable(key *model.LicenseKey, hwid string) error {
	if key.IsBlocked {
		return errs.ErrKeyBlocked
	}
	if key.ExpiresAt != nil && key.ExpiresAt.Before(time.Now()) {
		return errs.ErrKeyExpired
	}
	if key.Hwid != nil && *key.Hwid != "" && *key.Hwid != hwid {
		return errs.ErrHwidMismatch
	}
	return nil
}

// Check reports the key's state without mutating anything. Blocked and
// expired keys still get a projection; only Activate refuses them.
func (e *ActivationEngine) Check(keyValue, hwid string) (KeyCheck, error) {
	key, err := e.keys.GetByValue(keyValue)
	if err != nil {
		return KeyCheck{}, err
	}

	check := KeyCheck{
		Key:       key.KeyValue,
		Status:    key.Status,
		Hwid:      key.Hwid,
		ExpiresAt: key.ExpiresAt,
		IsBlocked: key.IsBlocked,
	}
	if key.Hwid != nil && *key.Hwid != "" {
		matches := *key.Hwid == hwid
		check.HwidMatches = &matches
	}
	if key.ExpiresAt != nil {
		days := int(math.Ceil(time.Until(*key.ExpiresAt).Hours() / 24))
		check.RemainingDays = &days
	}
	return check, nil
}

// RemainingDays returns whole days until expiry, floored at zero, or nil when
// the key never expires.
func (e *ActivationEngine) RemainingDays(keyValue string) (*int, error) {
	key, err := e.keys.GetByValue(keyValue)
	if err != nil {
		return nil, err
	}
	if key.ExpiresAt == nil {
		return nil, nil
	}
	days := int(math.Ceil(time.Until(*key.ExpiresAt).Hours() / 24))
	if days < 0 {
		days = 0
	}
	return &days, nil
}

func (e *ActivationEngine) SetBlocked(id uint, blocked bool) error {
	return e.keys.SetBlocked(id, blocked)
}

func (e *ActivationEngine) SetHwid(id uint, hwid *string) error {
	return e.keys.SetHwid(id, hwid)
}

// Extend pushes the expiry out by the given days from max(expiry, now), so
// extending an already-expired key starts counting from now.
func (e *ActivationEngine) Extend(id uint, days int) (time.Time, error) {
	if days <= 0 {
		return time.Time{}, errs.ErrInvalidDays
	}

	key, err := e.keys.GetByID(id)
	if err != nil {
		return time.Time{}, err
	}

	base := time.Now()
	if key.ExpiresAt != nil && key.ExpiresAt.After(base) {
		base = *key.ExpiresAt
	}
	expiresAt := base.AddDate(0, 0, days)

	if err := e.keys.SetExpiry(id, expiresAt); err != nil {
		return time.Time{}, err
	}
	return expiresAt, nil
}

// CreateKey inserts a new key, generating the key value when none is given.
func (e *ActivationEngine) CreateKey(in CreateKeyInput) (*model.LicenseKey, error) {
	keyValue := in.KeyValue
	if keyValue == "" {
		generated, err := GenerateKeyValue()
		if err != nil {
			return nil, fmt.Errorf("generate key value: %w", err)
		}
		keyValue = generated
	}

	status := in.Status
	if status == "" {
		status = model.StatusNew
	}

	expiresAt := in.ExpiresAt
	if expiresAt == nil && in.ValidDays > 0 {
		t := time.Now().AddDate(0, 0, in.ValidDays)
		expiresAt = &t
	}

	key := &model.LicenseKey{
		KeyValue:  keyValue,
		Status:    status,
		Hwid:      in.Hwid,
		ExpiresAt: expiresAt,
		Comment:   in.Comment,
		CreatedBy: in.CreatedBy,
	}
	if err := e.keys.Create(key); err != nil {
		return nil, err
	}
	return key, nil
}

func (e *ActivationEngine) ListKeys(status, search string) ([]model.LicenseKey, error) {
	return e.keys.List(status, search)
}

func (e *ActivationEngine) ListKeysCreatedBy(userID uint) ([]model.LicenseKey, error) {
	return e.keys.ListCreatedBy(userID)
}

func (e *ActivationEngine) Stats() (model.KeyStats, error) {
	return e.keys.Stats()
}

func (e *ActivationEngine) History(keyID uint) ([]model.ActivationHistory, error) {
	return e.keys.History(keyID)
}

func (e *ActivationEngine) LatestActivity(limit int) ([]model.ActivityEntry, error) {
	return e.keys.LatestActivity(limit)
}

const keyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateKeyValue builds a key as four hyphen-separated groups of four
// uppercase alphanumeric characters, e.g. 7K2M-QX9A-03BD-TT41.
func GenerateKeyValue() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	out := make([]byte, 0, 19)
	for i, b := range buf {
		if i > 0 && i%4 == 0 {
			out = append(out, '-')
		}
		out = append(out, keyAlphabet[int(b)%len(keyAlphabet)])
	}
	return string(out), nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
