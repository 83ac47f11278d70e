package model

import "time"

// RefreshToken is the server-side record behind a refresh JWT. Rows are never
// deleted; rotation and logout flip Revoked so the trail stays auditable.
type RefreshToken struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TokenID   string    `json:"token_id" gorm:"uniqueIndex;not null"`
	UserID    uint      `json:"user_id" gorm:"index;not null"`
	Token     string    `json:"-" gorm:"not null"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`
}
