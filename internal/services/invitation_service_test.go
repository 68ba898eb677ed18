package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/esalinasbarros/zmartboard/internal/models"
	"github.com/esalinasbarros/zmartboard/pkg/mail"
)

// recordingMailer keeps the last message handed to Send.
type recordingMailer struct {
	last mail.Message
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.last = msg
	return nil
}

func newInvitationService(t *testing.T, db *gorm.DB, opts ...InvitationOption) *InvitationService {
	t.Helper()

	members := newMembershipService(t, db)
	svc, err := NewInvitationService(db, members, nil, nil, opts...)
	require.NoError(t, err)
	return svc
}

func TestInvitationServiceCreateRejectsDuplicatesAndMembers(t *testing.T) {
	db := openServiceTestDB(t)
	svc := newInvitationService(t, db)

	admin := createTestUser(t, db, "alice")
	invitee := createTestUser(t, db, "bob")
	member := createTestUser(t, db, "carol")
	project := createProjectWithAdmin(t, db, admin)
	addMember(t, db, project.ID, member, models.ProjectRoleDeveloper)

	ctx := testContext()

	_, err := svc.Create(ctx, admin.ID, project.ID, admin.ID, models.ProjectRoleDeveloper)
	require.ErrorIs(t, err, ErrSelfInvitation)

	_, err = svc.Create(ctx, admin.ID, project.ID, member.ID, models.ProjectRoleDeveloper)
	require.ErrorIs(t, err, ErrMemberExists)

	invitation, err := svc.Create(ctx, admin.ID, project.ID, invitee.ID, models.ProjectRoleDeveloper)
	require.NoError(t, err)
	require.Equal(t, models.InvitationPending, invitation.Status)

	// A second pending invitation to the same user is rejected.
	_, err = svc.Create(ctx, admin.ID, project.ID, invitee.ID, models.ProjectRoleViewer)
	require.ErrorIs(t, err, ErrInvitationExists)
}

func TestInvitationServiceAcceptEnrolsMember(t *testing.T) {
	db := openServiceTestDB(t)
	svc := newInvitationService(t, db)

	admin := createTestUser(t, db, "alice")
	invitee := createTestUser(t, db, "bob")
	project := createProjectWithAdmin(t, db, admin)

	ctx := testContext()
	invitation, err := svc.Create(ctx, admin.ID, project.ID, invitee.ID, models.ProjectRoleViewer)
	require.NoError(t, err)

	// Only the receiver may answer.
	_, err = svc.Accept(ctx, admin.ID, invitation.ID)
	require.Error(t, err)

	accepted, err := svc.Accept(ctx, invitee.ID, invitation.ID)
	require.NoError(t, err)
	require.Equal(t, models.InvitationAccepted, accepted.Status)

	member, err := svc.members.Membership(ctx, invitee.ID, project.ID)
	require.NoError(t, err)
	require.NotNil(t, member)
	require.Equal(t, models.ProjectRoleViewer, member.Role)

	// Answering a closed invitation fails.
	_, err = svc.Reject(ctx, invitee.ID, invitation.ID)
	require.ErrorIs(t, err, ErrInvitationClosed)
}

func TestInvitationServiceRejectLeavesNoMembership(t *testing.T) {
	db := openServiceTestDB(t)
	svc := newInvitationService(t, db)

	admin := createTestUser(t, db, "alice")
	invitee := createTestUser(t, db, "bob")
	project := createProjectWithAdmin(t, db, admin)

	ctx := testContext()
	invitation, err := svc.Create(ctx, admin.ID, project.ID, invitee.ID, models.ProjectRoleDeveloper)
	require.NoError(t, err)

	rejected, err := svc.Reject(ctx, invitee.ID, invitation.ID)
	require.NoError(t, err)
	require.Equal(t, models.InvitationRejected, rejected.Status)

	member, err := svc.members.Membership(ctx, invitee.ID, project.ID)
	require.NoError(t, err)
	require.Nil(t, member)
}

func TestInvitationServiceLazyExpiry(t *testing.T) {
	db := openServiceTestDB(t)

	now := time.Now()
	clock := func() time.Time { return now }
	svc := newInvitationService(t, db, WithInvitationClock(func() time.Time { return clock() }))

	admin := createTestUser(t, db, "alice")
	invitee := createTestUser(t, db, "bob")
	project := createProjectWithAdmin(t, db, admin)

	ctx := testContext()
	invitation, err := svc.Create(ctx, admin.ID, project.ID, invitee.ID, models.ProjectRoleDeveloper)
	require.NoError(t, err)

	// Jump past the deadline; accepting marks the invitation expired instead.
	clock = func() time.Time { return now.Add(DefaultInvitationTTL + time.Hour) }

	_, err = svc.Accept(ctx, invitee.ID, invitation.ID)
	require.ErrorIs(t, err, ErrInvitationExpired)

	var stored models.ProjectInvitation
	require.NoError(t, db.First(&stored, "id = ?", invitation.ID).Error)
	require.Equal(t, models.InvitationExpired, stored.Status)

	member, err := svc.members.Membership(ctx, invitee.ID, project.ID)
	require.NoError(t, err)
	require.Nil(t, member)
}

func TestInvitationServiceSweepExpired(t *testing.T) {
	db := openServiceTestDB(t)

	now := time.Now()
	clock := func() time.Time { return now }
	svc := newInvitationService(t, db, WithInvitationClock(func() time.Time { return clock() }))

	admin := createTestUser(t, db, "alice")
	invitee := createTestUser(t, db, "bob")
	project := createProjectWithAdmin(t, db, admin)

	_, err := svc.Create(testContext(), admin.ID, project.ID, invitee.ID, models.ProjectRoleDeveloper)
	require.NoError(t, err)

	clock = func() time.Time { return now.Add(DefaultInvitationTTL + time.Hour) }

	swept, err := svc.SweepExpired(testContext())
	require.NoError(t, err)
	require.Equal(t, int64(1), swept)
}

func TestInvitationServiceEmailEscapesProjectTitle(t *testing.T) {
	db := openServiceTestDB(t)
	members := newMembershipService(t, db)
	mailer := &recordingMailer{}
	svc, err := NewInvitationService(db, members, mailer, nil)
	require.NoError(t, err)

	admin := createTestUser(t, db, "alice")
	invitee := createTestUser(t, db, "bob")

	project := models.Project{Title: `<script>alert("Q3")</script> Launch`}
	require.NoError(t, db.Create(&project).Error)
	addMember(t, db, project.ID, admin, models.ProjectRoleAdmin)

	_, err = svc.Create(testContext(), admin.ID, project.ID, invitee.ID, models.ProjectRoleDeveloper)
	require.NoError(t, err)

	require.Equal(t, []string{invitee.Email}, mailer.last.To)
	require.NotContains(t, mailer.last.HTMLBody, "<script>")
	require.True(t, strings.Contains(mailer.last.HTMLBody, "&lt;script&gt;"))
}

func TestInvitationServiceCancelDeletesPending(t *testing.T) {
	db := openServiceTestDB(t)
	svc := newInvitationService(t, db)

	admin := createTestUser(t, db, "alice")
	invitee := createTestUser(t, db, "bob")
	project := createProjectWithAdmin(t, db, admin)

	ctx := testContext()
	invitation, err := svc.Create(ctx, admin.ID, project.ID, invitee.ID, models.ProjectRoleDeveloper)
	require.NoError(t, err)

	// The receiver cannot cancel someone else's invitation for them.
	err = svc.Cancel(ctx, invitee.ID, invitation.ID)
	require.Error(t, err)

	require.NoError(t, svc.Cancel(ctx, admin.ID, invitation.ID))

	var count int64
	require.NoError(t, db.Model(&models.ProjectInvitation{}).Where("id = ?", invitation.ID).Count(&count).Error)
	require.Zero(t, count)

	// A fresh invitation can be issued afterwards.
	_, err = svc.Create(ctx, admin.ID, project.ID, invitee.ID, models.ProjectRoleDeveloper)
	require.NoError(t, err)
}
