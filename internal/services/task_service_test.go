package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/esalinasbarros/zmartboard/internal/models"
)

type taskFixture struct {
	db      *gorm.DB
	tasks   *TaskService
	columns *ColumnService
	admin   *models.User
	project *models.Project
	board   *models.Board
}

func newTaskFixture(t *testing.T) *taskFixture {
	t.Helper()

	db := openServiceTestDB(t)
	members := newMembershipService(t, db)

	columns, err := NewColumnService(db, members, nil)
	require.NoError(t, err)
	tasks, err := NewTaskService(db, members, nil)
	require.NoError(t, err)

	admin := createTestUser(t, db, "alice")
	project := createProjectWithAdmin(t, db, admin)
	board := createTestBoard(t, db, project.ID)

	return &taskFixture{db: db, tasks: tasks, columns: columns, admin: admin, project: project, board: board}
}

func (f *taskFixture) createColumn(t *testing.T, name string) *models.Column {
	t.Helper()
	column, err := f.columns.Create(testContext(), f.admin.ID, f.board.ID, CreateColumnInput{Name: name})
	require.NoError(t, err)
	return column
}

func (f *taskFixture) createTask(t *testing.T, columnID, title string) *models.Task {
	t.Helper()
	task, err := f.tasks.Create(testContext(), f.admin.ID, columnID, CreateTaskInput{Title: title})
	require.NoError(t, err)
	return task
}

func TestTaskServiceAppendAssignsDensePositions(t *testing.T) {
	f := newTaskFixture(t)
	column := f.createColumn(t, "Todo")

	for i, title := range []string{"one", "two", "three"} {
		task := f.createTask(t, column.ID, title)
		require.Equal(t, i, task.Position)
	}
}

func TestTaskServiceMoveWithinColumn(t *testing.T) {
	f := newTaskFixture(t)
	column := f.createColumn(t, "Todo")

	first := f.createTask(t, column.ID, "one")
	f.createTask(t, column.ID, "two")
	f.createTask(t, column.ID, "three")

	moved, err := f.tasks.Move(testContext(), f.admin.ID, first.ID, MoveTaskInput{Position: 2})
	require.NoError(t, err)
	require.Equal(t, 2, moved.Position)
	require.Equal(t, map[string]int{"two": 0, "three": 1, "one": 2}, taskPositions(t, f.db, column.ID))
}

func TestTaskServiceMoveAcrossColumns(t *testing.T) {
	f := newTaskFixture(t)
	source := f.createColumn(t, "Todo")
	target := f.createColumn(t, "Doing")

	moving := f.createTask(t, source.ID, "moving")
	f.createTask(t, source.ID, "stays")
	f.createTask(t, target.ID, "existing")

	moved, err := f.tasks.Move(testContext(), f.admin.ID, moving.ID, MoveTaskInput{
		TargetColumnID: &target.ID,
		Position:       0,
	})
	require.NoError(t, err)
	require.Equal(t, target.ID, moved.ColumnID)
	require.Equal(t, 0, moved.Position)

	// Source gap closed, target slot opened.
	require.Equal(t, map[string]int{"stays": 0}, taskPositions(t, f.db, source.ID))
	require.Equal(t, map[string]int{"moving": 0, "existing": 1}, taskPositions(t, f.db, target.ID))
}

func TestTaskServiceMoveToCurrentPositionLeavesNoTrail(t *testing.T) {
	f := newTaskFixture(t)
	audit, err := NewAuditService(f.db)
	require.NoError(t, err)
	tasks, err := NewTaskService(f.db, newMembershipService(t, f.db), audit)
	require.NoError(t, err)

	column := f.createColumn(t, "Todo")
	first := f.createTask(t, column.ID, "one")
	f.createTask(t, column.ID, "two")

	auditCount := func() int64 {
		var count int64
		require.NoError(t, f.db.Model(&models.AuditLog{}).Where("action = ?", "task.move").Count(&count).Error)
		return count
	}

	// Moving a task onto its own slot changes nothing and records nothing.
	moved, err := tasks.Move(testContext(), f.admin.ID, first.ID, MoveTaskInput{Position: 0})
	require.NoError(t, err)
	require.Equal(t, 0, moved.Position)
	require.Zero(t, auditCount())

	_, err = tasks.Move(testContext(), f.admin.ID, first.ID, MoveTaskInput{Position: 1})
	require.NoError(t, err)
	require.Equal(t, int64(1), auditCount())
}

func TestTaskServiceMoveAcrossBoardsRejected(t *testing.T) {
	f := newTaskFixture(t)
	source := f.createColumn(t, "Todo")
	task := f.createTask(t, source.ID, "stuck")

	otherBoard := createTestBoard(t, f.db, f.project.ID)
	foreign := models.Column{Name: "Elsewhere", BoardID: otherBoard.ID, Position: 0}
	require.NoError(t, f.db.Create(&foreign).Error)

	_, err := f.tasks.Move(testContext(), f.admin.ID, task.ID, MoveTaskInput{
		TargetColumnID: &foreign.ID,
		Position:       0,
	})
	require.ErrorIs(t, err, ErrCrossBoardMove)

	// Nothing moved.
	require.Equal(t, map[string]int{"stuck": 0}, taskPositions(t, f.db, source.ID))
}

func TestTaskServiceArchivedTaskCannotMove(t *testing.T) {
	f := newTaskFixture(t)
	column := f.createColumn(t, "Todo")
	task := f.createTask(t, column.ID, "frozen")

	_, err := f.tasks.SetArchived(testContext(), f.admin.ID, task.ID, true)
	require.NoError(t, err)

	_, err = f.tasks.Move(testContext(), f.admin.ID, task.ID, MoveTaskInput{Position: 0})
	require.ErrorIs(t, err, ErrTaskArchived)

	_, err = f.tasks.Update(testContext(), f.admin.ID, task.ID, UpdateTaskInput{})
	require.ErrorIs(t, err, ErrTaskArchived)
}

func TestTaskServiceDeleteClosesGap(t *testing.T) {
	f := newTaskFixture(t)
	column := f.createColumn(t, "Todo")

	f.createTask(t, column.ID, "one")
	middle := f.createTask(t, column.ID, "two")
	f.createTask(t, column.ID, "three")

	require.NoError(t, f.tasks.Delete(testContext(), f.admin.ID, middle.ID))
	require.Equal(t, map[string]int{"one": 0, "three": 1}, taskPositions(t, f.db, column.ID))
}

func TestTaskServiceListExcludesArchivedByDefault(t *testing.T) {
	f := newTaskFixture(t)
	column := f.createColumn(t, "Todo")

	f.createTask(t, column.ID, "visible")
	archived := f.createTask(t, column.ID, "hidden")
	_, err := f.tasks.SetArchived(testContext(), f.admin.ID, archived.ID, true)
	require.NoError(t, err)

	tasks, err := f.tasks.ListForColumn(testContext(), f.admin.ID, column.ID, false)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, "visible", tasks[0].Title)

	all, err := f.tasks.ListForColumn(testContext(), f.admin.ID, column.ID, true)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestTaskServiceAssignRequiresProjectMembership(t *testing.T) {
	f := newTaskFixture(t)
	column := f.createColumn(t, "Todo")
	task := f.createTask(t, column.ID, "work")

	outsider := createTestUser(t, f.db, "mallory")
	err := f.tasks.Assign(testContext(), f.admin.ID, task.ID, outsider.ID)
	require.ErrorIs(t, err, ErrMemberNotFound)

	member := createTestUser(t, f.db, "bob")
	addMember(t, f.db, f.project.ID, member, models.ProjectRoleDeveloper)
	require.NoError(t, f.tasks.Assign(testContext(), f.admin.ID, task.ID, member.ID))

	loaded, err := f.tasks.GetByID(testContext(), f.admin.ID, task.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Assignees, 1)
	require.Equal(t, member.ID, loaded.Assignees[0].ID)

	require.NoError(t, f.tasks.Unassign(testContext(), f.admin.ID, task.ID, member.ID))
	loaded, err = f.tasks.GetByID(testContext(), f.admin.ID, task.ID)
	require.NoError(t, err)
	require.Empty(t, loaded.Assignees)
}
