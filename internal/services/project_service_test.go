package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/esalinasbarros/zmartboard/internal/models"
)

func newProjectService(t *testing.T, db *gorm.DB) (*ProjectService, *MembershipService) {
	t.Helper()

	members := newMembershipService(t, db)
	svc, err := NewProjectService(db, members, nil)
	require.NoError(t, err)
	return svc, members
}

func TestProjectServiceCreateEnrolsCreatorAsAdmin(t *testing.T) {
	db := openServiceTestDB(t)
	svc, members := newProjectService(t, db)
	user := createTestUser(t, db, "alice")

	ctx := testContext()
	project, err := svc.Create(ctx, user.ID, CreateProjectInput{Title: "Roadmap"})
	require.NoError(t, err)

	member, err := members.Membership(ctx, user.ID, project.ID)
	require.NoError(t, err)
	require.NotNil(t, member)
	require.Equal(t, models.ProjectRoleAdmin, member.Role)
}

func TestProjectServiceListMineOnlyReturnsMemberships(t *testing.T) {
	db := openServiceTestDB(t)
	svc, _ := newProjectService(t, db)

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	ctx := testContext()
	mine, err := svc.Create(ctx, alice.ID, CreateProjectInput{Title: "Mine"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, bob.ID, CreateProjectInput{Title: "Theirs"})
	require.NoError(t, err)

	projects, err := svc.ListMine(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	require.Equal(t, mine.ID, projects[0].ID)
}

func TestProjectServiceListAllRequiresSystemAdmin(t *testing.T) {
	db := openServiceTestDB(t)
	svc, _ := newProjectService(t, db)

	alice := createTestUser(t, db, "alice")
	admin := createTestUser(t, db, "root")
	require.NoError(t, db.Model(admin).Update("role", models.UserRoleAdmin).Error)

	ctx := testContext()
	_, err := svc.Create(ctx, alice.ID, CreateProjectInput{Title: "Roadmap"})
	require.NoError(t, err)

	_, err = svc.ListAll(ctx, alice.ID)
	require.Error(t, err)

	projects, err := svc.ListAll(ctx, admin.ID)
	require.NoError(t, err)
	require.Len(t, projects, 1)
}

func TestProjectServiceUpdateRequiresAdminRole(t *testing.T) {
	db := openServiceTestDB(t)
	svc, _ := newProjectService(t, db)

	admin := createTestUser(t, db, "alice")
	dev := createTestUser(t, db, "bob")
	project := createProjectWithAdmin(t, db, admin)
	addMember(t, db, project.ID, dev, models.ProjectRoleDeveloper)

	ctx := testContext()
	title := "Renamed"

	_, err := svc.Update(ctx, dev.ID, project.ID, UpdateProjectInput{Title: &title})
	require.ErrorIs(t, err, ErrInsufficientRole)

	updated, err := svc.Update(ctx, admin.ID, project.ID, UpdateProjectInput{Title: &title})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Title)
}

func TestProjectServiceDeleteCascades(t *testing.T) {
	db := openServiceTestDB(t)
	svc, _ := newProjectService(t, db)

	admin := createTestUser(t, db, "alice")
	project := createProjectWithAdmin(t, db, admin)
	board := createTestBoard(t, db, project.ID)

	column := models.Column{Name: "Todo", BoardID: board.ID, Position: 0}
	require.NoError(t, db.Create(&column).Error)
	task := models.Task{Title: "work", ColumnID: column.ID, Position: 0}
	require.NoError(t, db.Create(&task).Error)
	entry := models.TimeEntry{TaskID: task.ID, UserID: admin.ID, Hours: 1.5, Date: task.CreatedAt}
	require.NoError(t, db.Create(&entry).Error)

	require.NoError(t, svc.Delete(testContext(), admin.ID, project.ID))

	for _, probe := range []struct {
		name  string
		model any
	}{
		{"projects", &models.Project{}},
		{"boards", &models.Board{}},
		{"columns", &models.Column{}},
		{"tasks", &models.Task{}},
		{"time entries", &models.TimeEntry{}},
		{"members", &models.ProjectMember{}},
	} {
		var count int64
		require.NoError(t, db.Model(probe.model).Count(&count).Error)
		require.Zerof(t, count, "expected no %s to remain", probe.name)
	}
}
