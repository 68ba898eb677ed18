package models

// Project groups boards and carries its own membership roster.
type Project struct {
	BaseModel

	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description"`

	Members     []ProjectMember     `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"members,omitempty"`
	Invitations []ProjectInvitation `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	Boards      []Board             `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"boards,omitempty"`
}
