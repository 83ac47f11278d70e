package model

import "time"

// LicenseKey status values. Blocking forces StatusBlocked; unblocking leaves
// the status untouched until the next successful activation.
const (
	StatusNew     = "new"
	StatusActive  = "active"
	StatusBlocked = "blocked"
)

type LicenseKey struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	KeyValue       string     `json:"key_value" gorm:"uniqueIndex;not null"`
	Status         string     `json:"status" gorm:"default:'new'"`
	Hwid           *string    `json:"hwid"`
	ExpiresAt      *time.Time `json:"expires_at"`
	IsBlocked      bool       `json:"is_blocked" gorm:"default:false"`
	LastActivation *time.Time `json:"last_activation"`
	Comment        string     `json:"comment"`
	CreatedBy      uint       `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// KeyStats is the aggregate returned by the admin stats endpoint.
type KeyStats struct {
	Total   int64 `json:"total"`
	Active  int64 `json:"active"`
	Blocked int64 `json:"blocked"`
}
