package models

import (
	"gorm.io/gorm"
)

/** --------------------ENTITIES-------------------- */
// User owns tasks, categories and notifications. Only its existence matters to the
// realtime layer; account management lives in the identity service.
type User struct {
	gorm.Model
	Username string `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Avatar   string `json:"avatar,omitempty"`
}
