package models

// Task is an ordered card within a column. Positions are zero-based and
// stay dense across sibling tasks of the same column.
type Task struct {
	BaseModel

	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description"`
	ColumnID    string `gorm:"type:uuid;not null;index" json:"column_id"`
	Position    int    `gorm:"not null" json:"position"`
	Archived    bool   `gorm:"default:false" json:"archived"`

	Assignees   []User      `gorm:"many2many:task_assignees;" json:"assignees,omitempty"`
	TimeEntries []TimeEntry `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
}
