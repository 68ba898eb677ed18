package models

// ProjectMember associates a user with a project and the role held there.
// A user appears at most once per project.
type ProjectMember struct {
	BaseModel

	ProjectID string      `gorm:"type:uuid;not null;uniqueIndex:idx_project_user" json:"project_id"`
	UserID    string      `gorm:"type:uuid;not null;uniqueIndex:idx_project_user" json:"user_id"`
	Role      ProjectRole `gorm:"not null;default:DEVELOPER" json:"role"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
