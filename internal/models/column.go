package models

// Column is an ordered lane within a board. Positions are zero-based and
// stay dense across sibling columns of the same board.
type Column struct {
	BaseModel

	Name     string `gorm:"not null" json:"name"`
	BoardID  string `gorm:"type:uuid;not null;index" json:"board_id"`
	Position int    `gorm:"not null" json:"position"`

	Tasks []Task `gorm:"foreignKey:ColumnID;constraint:OnDelete:CASCADE" json:"tasks,omitempty"`
}
