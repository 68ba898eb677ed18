package models

// Board holds the ordered columns of a project's kanban view.
type Board struct {
	BaseModel

	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description"`
	ProjectID   string `gorm:"type:uuid;not null;index" json:"project_id"`

	Columns []Column `gorm:"foreignKey:BoardID;constraint:OnDelete:CASCADE" json:"columns,omitempty"`
}
