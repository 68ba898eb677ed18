package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/esalinasbarros/zmartboard/internal/models"
)

func TestColumnServiceAppendAssignsDensePositions(t *testing.T) {
	db := openServiceTestDB(t)
	members := newMembershipService(t, db)
	svc, err := NewColumnService(db, members, nil)
	require.NoError(t, err)

	admin := createTestUser(t, db, "alice")
	project := createProjectWithAdmin(t, db, admin)
	board := createTestBoard(t, db, project.ID)

	ctx := testContext()
	for i, name := range []string{"Todo", "Doing", "Done"} {
		column, err := svc.Create(ctx, admin.ID, board.ID, CreateColumnInput{Name: name})
		require.NoError(t, err)
		require.Equal(t, i, column.Position)
	}
}

func TestColumnServiceInsertAtPositionShiftsSiblings(t *testing.T) {
	db := openServiceTestDB(t)
	members := newMembershipService(t, db)
	svc, err := NewColumnService(db, members, nil)
	require.NoError(t, err)

	admin := createTestUser(t, db, "alice")
	project := createProjectWithAdmin(t, db, admin)
	board := createTestBoard(t, db, project.ID)

	ctx := testContext()
	for _, name := range []string{"Todo", "Doing", "Done"} {
		_, err := svc.Create(ctx, admin.ID, board.ID, CreateColumnInput{Name: name})
		require.NoError(t, err)
	}

	pos := 1
	inserted, err := svc.Create(ctx, admin.ID, board.ID, CreateColumnInput{Name: "Review", Position: &pos})
	require.NoError(t, err)
	require.Equal(t, 1, inserted.Position)

	positions := columnPositions(t, db, board.ID)
	require.Equal(t, map[string]int{"Todo": 0, "Review": 1, "Doing": 2, "Done": 3}, positions)
}

func TestColumnServiceInsertBeyondCountAppends(t *testing.T) {
	db := openServiceTestDB(t)
	members := newMembershipService(t, db)
	svc, err := NewColumnService(db, members, nil)
	require.NoError(t, err)

	admin := createTestUser(t, db, "alice")
	project := createProjectWithAdmin(t, db, admin)
	board := createTestBoard(t, db, project.ID)

	ctx := testContext()
	for _, name := range []string{"Todo", "Doing", "Done"} {
		_, err := svc.Create(ctx, admin.ID, board.ID, CreateColumnInput{Name: name})
		require.NoError(t, err)
	}

	// A position far past the end lands at the append slot, not at the raw
	// requested value, so the sequence stays dense.
	pos := 10
	created, err := svc.Create(ctx, admin.ID, board.ID, CreateColumnInput{Name: "Later", Position: &pos})
	require.NoError(t, err)
	require.Equal(t, 3, created.Position)
	require.Equal(t, map[string]int{"Todo": 0, "Doing": 1, "Done": 2, "Later": 3}, columnPositions(t, db, board.ID))
}

func TestColumnServiceRejectsNegativePosition(t *testing.T) {
	db := openServiceTestDB(t)
	members := newMembershipService(t, db)
	svc, err := NewColumnService(db, members, nil)
	require.NoError(t, err)

	admin := createTestUser(t, db, "alice")
	project := createProjectWithAdmin(t, db, admin)
	board := createTestBoard(t, db, project.ID)

	neg := -1
	_, err = svc.Create(testContext(), admin.ID, board.ID, CreateColumnInput{Name: "Bad", Position: &neg})
	require.Error(t, err)
	require.True(t, errors.Is(err, errInvalidPosition))
}

func TestColumnServiceMoveForwardAndBack(t *testing.T) {
	db := openServiceTestDB(t)
	members := newMembershipService(t, db)
	svc, err := NewColumnService(db, members, nil)
	require.NoError(t, err)

	admin := createTestUser(t, db, "alice")
	project := createProjectWithAdmin(t, db, admin)
	board := createTestBoard(t, db, project.ID)

	ctx := testContext()
	var first string
	for _, name := range []string{"A", "B", "C", "D"} {
		column, err := svc.Create(ctx, admin.ID, board.ID, CreateColumnInput{Name: name})
		require.NoError(t, err)
		if name == "A" {
			first = column.ID
		}
	}

	// A moves from 0 to 2: B and C slide back.
	moved, err := svc.Move(ctx, admin.ID, first, 2)
	require.NoError(t, err)
	require.Equal(t, 2, moved.Position)
	require.Equal(t, map[string]int{"B": 0, "C": 1, "A": 2, "D": 3}, columnPositions(t, db, board.ID))

	// A moves back to 0: B and C slide forward again.
	moved, err = svc.Move(ctx, admin.ID, first, 0)
	require.NoError(t, err)
	require.Equal(t, 0, moved.Position)
	require.Equal(t, map[string]int{"A": 0, "B": 1, "C": 2, "D": 3}, columnPositions(t, db, board.ID))
}

func TestColumnServiceMoveClampsOutOfRangeTarget(t *testing.T) {
	db := openServiceTestDB(t)
	members := newMembershipService(t, db)
	svc, err := NewColumnService(db, members, nil)
	require.NoError(t, err)

	admin := createTestUser(t, db, "alice")
	project := createProjectWithAdmin(t, db, admin)
	board := createTestBoard(t, db, project.ID)

	ctx := testContext()
	a, err := svc.Create(ctx, admin.ID, board.ID, CreateColumnInput{Name: "A"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, admin.ID, board.ID, CreateColumnInput{Name: "B"})
	require.NoError(t, err)

	moved, err := svc.Move(ctx, admin.ID, a.ID, 99)
	require.NoError(t, err)
	require.Equal(t, 1, moved.Position)
	require.Equal(t, map[string]int{"B": 0, "A": 1}, columnPositions(t, db, board.ID))
}

func TestColumnServiceMoveToCurrentPositionLeavesNoTrail(t *testing.T) {
	db := openServiceTestDB(t)
	members := newMembershipService(t, db)
	audit, err := NewAuditService(db)
	require.NoError(t, err)
	svc, err := NewColumnService(db, members, audit)
	require.NoError(t, err)

	admin := createTestUser(t, db, "alice")
	project := createProjectWithAdmin(t, db, admin)
	board := createTestBoard(t, db, project.ID)

	ctx := testContext()
	a, err := svc.Create(ctx, admin.ID, board.ID, CreateColumnInput{Name: "A"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, admin.ID, board.ID, CreateColumnInput{Name: "B"})
	require.NoError(t, err)

	auditCount := func() int64 {
		var count int64
		require.NoError(t, db.Model(&models.AuditLog{}).Where("action = ?", "column.move").Count(&count).Error)
		return count
	}

	// Moving a column onto its own position changes nothing and records nothing.
	moved, err := svc.Move(ctx, admin.ID, a.ID, 0)
	require.NoError(t, err)
	require.Equal(t, 0, moved.Position)
	require.Zero(t, auditCount())

	// A real move does leave an audit entry.
	_, err = svc.Move(ctx, admin.ID, a.ID, 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), auditCount())
}

func TestColumnServiceDeleteClosesGap(t *testing.T) {
	db := openServiceTestDB(t)
	members := newMembershipService(t, db)
	svc, err := NewColumnService(db, members, nil)
	require.NoError(t, err)

	admin := createTestUser(t, db, "alice")
	project := createProjectWithAdmin(t, db, admin)
	board := createTestBoard(t, db, project.ID)

	ctx := testContext()
	var middle string
	for _, name := range []string{"A", "B", "C"} {
		column, err := svc.Create(ctx, admin.ID, board.ID, CreateColumnInput{Name: name})
		require.NoError(t, err)
		if name == "B" {
			middle = column.ID
		}
	}

	require.NoError(t, svc.Delete(ctx, admin.ID, middle))
	require.Equal(t, map[string]int{"A": 0, "C": 1}, columnPositions(t, db, board.ID))
}

func TestColumnServiceViewerCannotMutate(t *testing.T) {
	db := openServiceTestDB(t)
	members := newMembershipService(t, db)
	svc, err := NewColumnService(db, members, nil)
	require.NoError(t, err)

	admin := createTestUser(t, db, "alice")
	viewer := createTestUser(t, db, "bob")
	project := createProjectWithAdmin(t, db, admin)
	addMember(t, db, project.ID, viewer, "VIEWER")
	board := createTestBoard(t, db, project.ID)

	_, err = svc.Create(testContext(), viewer.ID, board.ID, CreateColumnInput{Name: "Todo"})
	require.ErrorIs(t, err, ErrInsufficientRole)
}
