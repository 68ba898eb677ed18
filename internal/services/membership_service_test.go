package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/esalinasbarros/zmartboard/internal/models"
)

func TestMembershipServiceRequireRoleRanks(t *testing.T) {
	db := openServiceTestDB(t)
	svc := newMembershipService(t, db)

	admin := createTestUser(t, db, "alice")
	dev := createTestUser(t, db, "bob")
	outsider := createTestUser(t, db, "mallory")
	project := createProjectWithAdmin(t, db, admin)
	addMember(t, db, project.ID, dev, models.ProjectRoleDeveloper)

	ctx := testContext()

	// Developer rank satisfies viewer and developer but not admin.
	_, err := svc.RequireRole(ctx, dev.ID, project.ID, models.ProjectRoleViewer)
	require.NoError(t, err)
	_, err = svc.RequireRole(ctx, dev.ID, project.ID, models.ProjectRoleDeveloper)
	require.NoError(t, err)
	_, err = svc.RequireRole(ctx, dev.ID, project.ID, models.ProjectRoleAdmin)
	require.ErrorIs(t, err, ErrInsufficientRole)

	_, err = svc.RequireRole(ctx, outsider.ID, project.ID, models.ProjectRoleViewer)
	require.ErrorIs(t, err, ErrNotProjectMember)
}

func TestMembershipServiceAddRequiresAdmin(t *testing.T) {
	db := openServiceTestDB(t)
	svc := newMembershipService(t, db)

	admin := createTestUser(t, db, "alice")
	dev := createTestUser(t, db, "bob")
	newcomer := createTestUser(t, db, "carol")
	project := createProjectWithAdmin(t, db, admin)
	addMember(t, db, project.ID, dev, models.ProjectRoleDeveloper)

	ctx := testContext()

	_, err := svc.Add(ctx, dev.ID, project.ID, newcomer.ID, models.ProjectRoleViewer)
	require.ErrorIs(t, err, ErrInsufficientRole)

	member, err := svc.Add(ctx, admin.ID, project.ID, newcomer.ID, models.ProjectRoleViewer)
	require.NoError(t, err)
	require.Equal(t, models.ProjectRoleViewer, member.Role)

	_, err = svc.Add(ctx, admin.ID, project.ID, newcomer.ID, models.ProjectRoleViewer)
	require.ErrorIs(t, err, ErrMemberExists)
}

func TestMembershipServiceLastAdminCannotBeRemoved(t *testing.T) {
	db := openServiceTestDB(t)
	svc := newMembershipService(t, db)

	admin := createTestUser(t, db, "alice")
	dev := createTestUser(t, db, "bob")
	project := createProjectWithAdmin(t, db, admin)
	addMember(t, db, project.ID, dev, models.ProjectRoleDeveloper)

	ctx := testContext()

	err := svc.Remove(ctx, admin.ID, project.ID, admin.ID)
	require.ErrorIs(t, err, ErrLastAdmin)

	_, err = svc.ChangeRole(ctx, admin.ID, project.ID, admin.ID, models.ProjectRoleDeveloper)
	require.ErrorIs(t, err, ErrLastAdmin)

	// Promoting a second admin unblocks both operations.
	_, err = svc.ChangeRole(ctx, admin.ID, project.ID, dev.ID, models.ProjectRoleAdmin)
	require.NoError(t, err)

	_, err = svc.ChangeRole(ctx, admin.ID, project.ID, admin.ID, models.ProjectRoleDeveloper)
	require.NoError(t, err)
}

func TestMembershipServiceSelfLeaveWithoutAdminRole(t *testing.T) {
	db := openServiceTestDB(t)
	svc := newMembershipService(t, db)

	admin := createTestUser(t, db, "alice")
	dev := createTestUser(t, db, "bob")
	project := createProjectWithAdmin(t, db, admin)
	addMember(t, db, project.ID, dev, models.ProjectRoleDeveloper)

	ctx := testContext()

	// A developer cannot remove someone else.
	err := svc.Remove(ctx, dev.ID, project.ID, admin.ID)
	require.ErrorIs(t, err, ErrInsufficientRole)

	// But may leave on their own.
	require.NoError(t, svc.Remove(ctx, dev.ID, project.ID, dev.ID))

	member, err := svc.Membership(ctx, dev.ID, project.ID)
	require.NoError(t, err)
	require.Nil(t, member)
}
