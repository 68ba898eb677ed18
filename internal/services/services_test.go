package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/esalinasbarros/zmartboard/internal/database/testutil"
	"github.com/esalinasbarros/zmartboard/internal/models"
	"github.com/esalinasbarros/zmartboard/pkg/crypto"
)

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	hashed, err := crypto.HashPassword("secret123!")
	require.NoError(t, err)

	user := models.User{
		Username:      username,
		Email:         username + "@example.com",
		Password:      hashed,
		Role:          models.UserRoleUser,
		EmailVerified: true,
		IsActive:      true,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

// createProjectWithAdmin provisions a project whose first member is admin.
func createProjectWithAdmin(t *testing.T, db *gorm.DB, admin *models.User) *models.Project {
	t.Helper()

	project := models.Project{Title: "Test Project"}
	require.NoError(t, db.Create(&project).Error)
	require.NoError(t, db.Create(&models.ProjectMember{
		ProjectID: project.ID,
		UserID:    admin.ID,
		Role:      models.ProjectRoleAdmin,
	}).Error)
	return &project
}

func addMember(t *testing.T, db *gorm.DB, projectID string, user *models.User, role models.ProjectRole) {
	t.Helper()
	require.NoError(t, db.Create(&models.ProjectMember{
		ProjectID: projectID,
		UserID:    user.ID,
		Role:      role,
	}).Error)
}

func newMembershipService(t *testing.T, db *gorm.DB) *MembershipService {
	t.Helper()
	svc, err := NewMembershipService(db, nil)
	require.NoError(t, err)
	return svc
}

func createTestBoard(t *testing.T, db *gorm.DB, projectID string) *models.Board {
	t.Helper()

	board := models.Board{Title: "Sprint Board", ProjectID: projectID}
	require.NoError(t, db.Create(&board).Error)
	return &board
}

func columnPositions(t *testing.T, db *gorm.DB, boardID string) map[string]int {
	t.Helper()

	var columns []models.Column
	require.NoError(t, db.Where("board_id = ?", boardID).Find(&columns).Error)

	positions := make(map[string]int, len(columns))
	for _, col := range columns {
		positions[col.Name] = col.Position
	}
	return positions
}

func taskPositions(t *testing.T, db *gorm.DB, columnID string) map[string]int {
	t.Helper()

	var tasks []models.Task
	require.NoError(t, db.Where("column_id = ?", columnID).Find(&tasks).Error)

	positions := make(map[string]int, len(tasks))
	for _, task := range tasks {
		positions[task.Title] = task.Position
	}
	return positions
}

func testContext() context.Context {
	return context.Background()
}
