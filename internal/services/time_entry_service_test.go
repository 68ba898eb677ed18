package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/esalinasbarros/zmartboard/internal/models"
)

func newTimeEntryFixture(t *testing.T) (*taskFixture, *TimeEntryService, *models.Task) {
	t.Helper()

	f := newTaskFixture(t)
	members := newMembershipService(t, f.db)
	svc, err := NewTimeEntryService(f.db, members, f.tasks)
	require.NoError(t, err)

	column := f.createColumn(t, "Todo")
	task := f.createTask(t, column.ID, "work")
	return f, svc, task
}

func TestTimeEntryServiceCreateValidatesHours(t *testing.T) {
	f, svc, task := newTimeEntryFixture(t)

	ctx := testContext()
	_, err := svc.Create(ctx, f.admin.ID, task.ID, TimeEntryInput{Hours: 0.05, Date: time.Now()})
	require.ErrorIs(t, err, ErrInvalidHours)

	// The bound is strict: exactly 0.1 hours is still too little.
	_, err = svc.Create(ctx, f.admin.ID, task.ID, TimeEntryInput{Hours: 0.1, Date: time.Now()})
	require.ErrorIs(t, err, ErrInvalidHours)

	entry, err := svc.Create(ctx, f.admin.ID, task.ID, TimeEntryInput{Hours: 2.5, Date: time.Now(), Description: "pairing"})
	require.NoError(t, err)
	require.Equal(t, 2.5, entry.Hours)
	require.Equal(t, f.admin.ID, entry.UserID)
}

func TestTimeEntryServiceOnlyCreatorMayMutate(t *testing.T) {
	f, svc, task := newTimeEntryFixture(t)

	other := createTestUser(t, f.db, "bob")
	addMember(t, f.db, f.project.ID, other, models.ProjectRoleDeveloper)

	ctx := testContext()
	entry, err := svc.Create(ctx, f.admin.ID, task.ID, TimeEntryInput{Hours: 1, Date: time.Now()})
	require.NoError(t, err)

	_, err = svc.Update(ctx, other.ID, entry.ID, TimeEntryInput{Hours: 2, Date: time.Now()})
	require.ErrorIs(t, err, ErrNotEntryOwner)

	err = svc.Delete(ctx, other.ID, entry.ID)
	require.ErrorIs(t, err, ErrNotEntryOwner)

	updated, err := svc.Update(ctx, f.admin.ID, entry.ID, TimeEntryInput{Hours: 2, Date: time.Now()})
	require.NoError(t, err)
	require.Equal(t, 2.0, updated.Hours)

	require.NoError(t, svc.Delete(ctx, f.admin.ID, entry.ID))
}

func TestTimeEntryServiceListAndTotal(t *testing.T) {
	f, svc, task := newTimeEntryFixture(t)

	other := createTestUser(t, f.db, "bob")
	addMember(t, f.db, f.project.ID, other, models.ProjectRoleDeveloper)

	ctx := testContext()
	_, err := svc.Create(ctx, f.admin.ID, task.ID, TimeEntryInput{Hours: 1.5, Date: time.Now()})
	require.NoError(t, err)
	_, err = svc.Create(ctx, other.ID, task.ID, TimeEntryInput{Hours: 2, Date: time.Now()})
	require.NoError(t, err)

	entries, err := svc.ListForTask(ctx, f.admin.ID, task.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	total, err := svc.TotalForTask(ctx, f.admin.ID, task.ID)
	require.NoError(t, err)
	require.InDelta(t, 3.5, total, 0.001)
}
