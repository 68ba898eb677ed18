package models

import "time"

// TimeEntry records hours a user spent on a task. Only the creating user
// may update or delete an entry.
type TimeEntry struct {
	BaseModel

	TaskID      string    `gorm:"type:uuid;not null;index" json:"task_id"`
	UserID      string    `gorm:"type:uuid;not null;index" json:"user_id"`
	Hours       float64   `gorm:"not null" json:"hours"`
	Date        time.Time `gorm:"not null" json:"date"`
	Description string    `json:"description"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
