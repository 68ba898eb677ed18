package models

// User describes a registered account with its platform-wide role.
type User struct {
	BaseModel

	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	Role          UserRole `gorm:"not null;default:USER" json:"role"`
	EmailVerified bool     `gorm:"default:false" json:"email_verified"`
	IsActive      bool     `gorm:"default:true" json:"is_active"`

	Memberships []ProjectMember `gorm:"foreignKey:UserID" json:"-"`
}
