package models

import "time"

// InvitationStatus tracks the lifecycle of a project invitation.
// PENDING is the only non-terminal state.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "PENDING"
	InvitationAccepted InvitationStatus = "ACCEPTED"
	InvitationRejected InvitationStatus = "REJECTED"
	InvitationExpired  InvitationStatus = "EXPIRED"
)

// ProjectInvitation is a proposed membership awaiting the receiver's decision.
type ProjectInvitation struct {
	BaseModel

	ProjectID  string           `gorm:"type:uuid;not null;index" json:"project_id"`
	SenderID   string           `gorm:"type:uuid;not null" json:"sender_id"`
	ReceiverID string           `gorm:"type:uuid;not null;index" json:"receiver_id"`
	Role       ProjectRole      `gorm:"not null;default:DEVELOPER" json:"role"`
	Status     InvitationStatus `gorm:"not null;default:PENDING;index" json:"status"`
	ExpiresAt  time.Time        `gorm:"index" json:"expires_at"`

	Project  *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Sender   *User    `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Receiver *User    `gorm:"foreignKey:ReceiverID" json:"receiver,omitempty"`
}
