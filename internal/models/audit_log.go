package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog records security-relevant mutations for later review.
type AuditLog struct {
	ID        string         `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    *string        `gorm:"type:uuid;index" json:"user_id"`
	User      *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action    string         `gorm:"not null;index" json:"action"`
	Resource  string         `gorm:"index" json:"resource"`
	Result    string         `gorm:"not null" json:"result"`
	IPAddress string         `json:"ip_address"`
	Metadata  datatypes.JSON `json:"metadata"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
