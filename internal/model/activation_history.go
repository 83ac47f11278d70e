package model

import "time"

// ActionActivate is the only action written today; the column is free-form so
// future actions land in the same trail.
const ActionActivate = "activate"

// ActivationHistory is append-only: rows are written inside the activation
// transaction and never updated afterwards.
type ActivationHistory struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	KeyID     uint      `json:"key_id" gorm:"index;not null"`
	Hwid      string    `json:"hwid"`
	Action    string    `json:"action"`
	Metadata  string    `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}

// ActivityEntry is a history row joined with its key value, used by the
// latest-activity admin view.
type ActivityEntry struct {
	ID        uint      `json:"id"`
	KeyValue  string    `json:"key_value"`
	Hwid      string    `json:"hwid"`
	Action    string    `json:"action"`
	Metadata  string    `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}
