package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/esalinasbarros/zmartboard/internal/models"
	apperrors "github.com/esalinasbarros/zmartboard/pkg/errors"
	"github.com/esalinasbarros/zmartboard/pkg/logger"
	"github.com/esalinasbarros/zmartboard/pkg/mail"
	"github.com/esalinasbarros/zmartboard/pkg/metrics"
)

// DefaultInvitationTTL is how long an invitation stays answerable.
const DefaultInvitationTTL = 7 * 24 * time.Hour

var (
	// ErrInvitationNotFound indicates the requested invitation does not exist.
	ErrInvitationNotFound = apperrors.New("INVITATION_NOT_FOUND", "Invitation not found", http.StatusNotFound)
	// ErrInvitationExists signals a pending invitation already targets the user.
	ErrInvitationExists = apperrors.New("INVITATION_EXISTS", "User already has a pending invitation to this project", http.StatusConflict)
	// ErrInvitationClosed rejects responses to invitations that already left PENDING.
	ErrInvitationClosed = apperrors.New("INVITATION_CLOSED", "Invitation is no longer pending", http.StatusBadRequest)
	// ErrInvitationExpired rejects responses to invitations past their deadline.
	ErrInvitationExpired = apperrors.New("INVITATION_EXPIRED", "Invitation has expired", http.StatusBadRequest)
	// ErrSelfInvitation rejects inviting yourself.
	ErrSelfInvitation = apperrors.NewBadRequest("cannot invite yourself to a project")
)

// InvitationOption configures an InvitationService.
type InvitationOption func(*InvitationService)

// WithInvitationClock overrides the time source used for expiry checks.
func WithInvitationClock(now func() time.Time) InvitationOption {
	return func(s *InvitationService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithInvitationTTL overrides how long new invitations stay answerable.
func WithInvitationTTL(ttl time.Duration) InvitationOption {
	return func(s *InvitationService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// InvitationService manages the project invitation lifecycle. An invitation
// starts PENDING and terminally becomes ACCEPTED, REJECTED or EXPIRED; expiry
// is applied lazily when a stale invitation is read or answered.
type InvitationService struct {
	db      *gorm.DB
	members *MembershipService
	mailer  mail.Mailer
	audit   *AuditService
	now     func() time.Time
	ttl     time.Duration
}

// NewInvitationService constructs an InvitationService. The mailer may be nil.
func NewInvitationService(db *gorm.DB, members *MembershipService, mailer mail.Mailer, audit *AuditService, opts ...InvitationOption) (*InvitationService, error) {
	if db == nil {
		return nil, errors.New("invitation service: db is required")
	}
	if members == nil {
		return nil, errors.New("invitation service: membership service is required")
	}
	svc := &InvitationService{
		db:      db,
		members: members,
		mailer:  mailer,
		audit:   audit,
		now:     time.Now,
		ttl:     DefaultInvitationTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Create invites a user into the project with the given role. The sender must
// hold the project admin role; existing members and users with a pending
// invitation are rejected.
func (s *InvitationService) Create(ctx context.Context, senderID, projectID, receiverID string, role models.ProjectRole) (*models.ProjectInvitation, error) {
	ctx = ensureContext(ctx)

	if !role.Valid() {
		return nil, apperrors.NewBadRequest("unknown project role")
	}
	if strings.TrimSpace(senderID) == strings.TrimSpace(receiverID) {
		return nil, ErrSelfInvitation
	}
	if _, err := s.members.RequireRole(ctx, senderID, projectID, models.ProjectRoleAdmin); err != nil {
		return nil, err
	}

	var receiver models.User
	if err := s.db.WithContext(ctx).First(&receiver, "id = ?", receiverID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("invitation service: load receiver: %w", err)
	}

	existing, err := s.members.Membership(ctx, receiverID, projectID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrMemberExists
	}

	invitation := &models.ProjectInvitation{
		ProjectID:  projectID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Role:       role,
		Status:     models.InvitationPending,
		ExpiresAt:  s.now().Add(s.ttl),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending int64
		err := tx.Model(&models.ProjectInvitation{}).
			Where("project_id = ? AND receiver_id = ? AND status = ?", projectID, receiverID, models.InvitationPending).
			Count(&pending).Error
		if err != nil {
			return fmt.Errorf("invitation service: check pending: %w", err)
		}
		if pending > 0 {
			return ErrInvitationExists
		}

		if err := tx.Create(invitation).Error; err != nil {
			return fmt.Errorf("invitation service: create invitation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.InvitationTransitions.WithLabelValues("created").Inc()
	s.notifyReceiver(ctx, invitation, receiver.Email)

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &senderID,
		Action:   "invitation.create",
		Resource: invitation.ID,
		Result:   "success",
		Metadata: map[string]any{"project_id": projectID, "receiver_id": receiverID, "role": role},
	})

	return invitation, nil
}

// Accept moves a pending invitation to ACCEPTED and enrols the receiver as a
// project member in the same transaction. A racing membership insert is
// tolerated: the invitation still closes as accepted.
func (s *InvitationService) Accept(ctx context.Context, userID, invitationID string) (*models.ProjectInvitation, error) {
	return s.respond(ctx, userID, invitationID, models.InvitationAccepted)
}

// Reject moves a pending invitation to REJECTED.
func (s *InvitationService) Reject(ctx context.Context, userID, invitationID string) (*models.ProjectInvitation, error) {
	return s.respond(ctx, userID, invitationID, models.InvitationRejected)
}

func (s *InvitationService) respond(ctx context.Context, userID, invitationID string, target models.InvitationStatus) (*models.ProjectInvitation, error) {
	ctx = ensureContext(ctx)

	var result models.ProjectInvitation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invitation models.ProjectInvitation
		if err := tx.First(&invitation, "id = ?", invitationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvitationNotFound
			}
			return fmt.Errorf("invitation service: load invitation: %w", err)
		}

		if invitation.ReceiverID != userID {
			return apperrors.ErrForbidden
		}
		if invitation.Status != models.InvitationPending {
			return ErrInvitationClosed
		}

		if s.now().After(invitation.ExpiresAt) {
			if err := tx.Model(&invitation).Update("status", models.InvitationExpired).Error; err != nil {
				return fmt.Errorf("invitation service: mark expired: %w", err)
			}
			metrics.InvitationTransitions.WithLabelValues("expired").Inc()
			return ErrInvitationExpired
		}

		if err := tx.Model(&invitation).Update("status", target).Error; err != nil {
			return fmt.Errorf("invitation service: update status: %w", err)
		}
		invitation.Status = target

		if target == models.InvitationAccepted {
			member := models.ProjectMember{
				ProjectID: invitation.ProjectID,
				UserID:    invitation.ReceiverID,
				Role:      invitation.Role,
			}
			if err := tx.Create(&member).Error; err != nil && !isUniqueConstraintError(err) {
				return fmt.Errorf("invitation service: enrol member: %w", err)
			}
		}

		result = invitation
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.InvitationTransitions.WithLabelValues(strings.ToLower(string(target))).Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &userID,
		Action:   "invitation." + strings.ToLower(string(target)),
		Resource: result.ID,
		Result:   "success",
		Metadata: map[string]any{"project_id": result.ProjectID},
	})

	return &result, nil
}

// Cancel removes a pending invitation entirely. Only the sender or a project
// admin may cancel, and only while the invitation is still pending.
func (s *InvitationService) Cancel(ctx context.Context, actorID, invitationID string) error {
	ctx = ensureContext(ctx)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invitation models.ProjectInvitation
		if err := tx.First(&invitation, "id = ?", invitationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvitationNotFound
			}
			return fmt.Errorf("invitation service: load invitation: %w", err)
		}

		if invitation.SenderID != actorID {
			if _, err := s.members.RequireRole(ctx, actorID, invitation.ProjectID, models.ProjectRoleAdmin); err != nil {
				return err
			}
		}
		if invitation.Status != models.InvitationPending {
			return ErrInvitationClosed
		}

		if err := tx.Delete(&invitation).Error; err != nil {
			return fmt.Errorf("invitation service: delete invitation: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.InvitationTransitions.WithLabelValues("cancelled").Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &actorID,
		Action:   "invitation.cancel",
		Resource: invitationID,
		Result:   "success",
	})

	return nil
}

// ListForProject returns a project's invitations. Requires the project admin
// role. Stale pending invitations are marked expired before listing.
func (s *InvitationService) ListForProject(ctx context.Context, requesterID, projectID string) ([]models.ProjectInvitation, error) {
	ctx = ensureContext(ctx)

	if _, err := s.members.RequireRole(ctx, requesterID, projectID, models.ProjectRoleAdmin); err != nil {
		return nil, err
	}
	if err := s.sweepExpired(ctx, "project_id = ?", projectID); err != nil {
		return nil, err
	}

	var invitations []models.ProjectInvitation
	err := s.db.WithContext(ctx).
		Preload("Receiver").
		Preload("Sender").
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&invitations).Error
	if err != nil {
		return nil, fmt.Errorf("invitation service: list project invitations: %w", err)
	}
	return invitations, nil
}

// ListForUser returns the invitations addressed to the user. Stale pending
// invitations are marked expired before listing.
func (s *InvitationService) ListForUser(ctx context.Context, userID string) ([]models.ProjectInvitation, error) {
	ctx = ensureContext(ctx)

	if err := s.sweepExpired(ctx, "receiver_id = ?", userID); err != nil {
		return nil, err
	}

	var invitations []models.ProjectInvitation
	err := s.db.WithContext(ctx).
		Preload("Project").
		Preload("Sender").
		Where("receiver_id = ?", userID).
		Order("created_at DESC").
		Find(&invitations).Error
	if err != nil {
		return nil, fmt.Errorf("invitation service: list user invitations: %w", err)
	}
	return invitations, nil
}

// SweepExpired marks every stale pending invitation as expired. Returns the
// number of transitioned rows.
func (s *InvitationService) SweepExpired(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)

	res := s.db.WithContext(ctx).
		Model(&models.ProjectInvitation{}).
		Where("status = ? AND expires_at < ?", models.InvitationPending, s.now()).
		Update("status", models.InvitationExpired)
	if res.Error != nil {
		return 0, fmt.Errorf("invitation service: sweep expired: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		metrics.InvitationTransitions.WithLabelValues("expired").Add(float64(res.RowsAffected))
	}
	return res.RowsAffected, nil
}

func (s *InvitationService) sweepExpired(ctx context.Context, scope string, arg any) error {
	res := s.db.WithContext(ctx).
		Model(&models.ProjectInvitation{}).
		Where(scope, arg).
		Where("status = ? AND expires_at < ?", models.InvitationPending, s.now()).
		Update("status", models.InvitationExpired)
	if res.Error != nil {
		return fmt.Errorf("invitation service: sweep expired: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		metrics.InvitationTransitions.WithLabelValues("expired").Add(float64(res.RowsAffected))
	}
	return nil
}

func (s *InvitationService) notifyReceiver(ctx context.Context, invitation *models.ProjectInvitation, email string) {
	if s.mailer == nil {
		return
	}

	var project models.Project
	title := "a project"
	if err := s.db.WithContext(ctx).First(&project, "id = ?", invitation.ProjectID).Error; err == nil {
		title = project.Title
	}

	err := s.mailer.Send(ctx, mail.Message{
		To:      []string{email},
		Subject: "You have been invited to " + title,
		HTMLBody: fmt.Sprintf(
			"<p>You have been invited to join <strong>%s</strong> as %s.</p><p>The invitation expires on %s.</p>",
			html.EscapeString(title), invitation.Role, invitation.ExpiresAt.Format("Jan 2, 2006"),
		),
	})
	if err != nil && !errors.Is(err, mail.ErrSMTPDisabled) {
		logger.Error("failed to send invitation email", zap.Error(err))
	}
}
