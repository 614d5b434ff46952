package db

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/householdpro/backend/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	store, err := New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.EnsureSchema(ctx))
	return store
}

func seed(t *testing.T, store *Store) (models.Employee, models.Booking) {
	t.Helper()
	ctx := context.Background()
	suffix := uuid.NewString()[:8]
	emp := models.Employee{
		ID:             "emp-" + suffix,
		Name:           "Ravi",
		Location:       "Pune",
		ExpertiseAreas: []string{"Plumbing"},
		Skills:         []string{"pipe fitting"},
		Rating:         4.5,
		IsActive:       true,
		IsAvailable:    true,
		UpdatedAt:      time.Now().UTC(),
	}
	_, err := store.UpsertEmployees(ctx, []models.Employee{emp})
	require.NoError(t, err)

	day := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	booking := models.Booking{
		ID:            "bk-" + suffix,
		ServiceName:   "Tap repair",
		CategoryName:  "Plumbing",
		ScheduledDate: day,
		StartTime:     "10:00",
		EndTime:       "11:00",
		City:          "Pune",
		Status:        models.BookingPending,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	other := booking
	other.ID = "bk-other-" + suffix
	other.StartTime, other.EndTime = "12:00", "13:00"
	other.Status = models.BookingConfirmed
	other.AssignedEmployeeID = &emp.ID
	_, err = store.UpsertBookings(ctx, []models.Booking{booking, other})
	require.NoError(t, err)
	return emp, booking
}

func TestApplyAssignmentIntegration(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	emp, booking := seed(t, store)

	agenda, err := store.ListEmployeeAgenda(ctx, emp.ID, booking.ScheduledDate, models.ActiveStatuses)
	require.NoError(t, err)
	require.Len(t, agenda, 1)

	change := models.AssignmentChange{
		BookingID:        booking.ID,
		EmployeeID:       &emp.ID,
		Status:           models.BookingConfirmed,
		ScheduledDate:    booking.ScheduledDate,
		ExpectedWorkload: 0,
		Audit: models.AuditEntry{
			ID:         uuid.NewString(),
			BookingID:  booking.ID,
			EmployeeID: &emp.ID,
			Action:     models.AuditAssigned,
			Strategy:   "best_fit",
			Actor:      "test",
			CreatedAt:  time.Now().UTC(),
		},
	}
	err = store.ApplyAssignment(ctx, change)
	assert.True(t, errors.Is(err, models.ErrWorkloadChanged), "stale workload must be rejected, got %v", err)

	change.ExpectedWorkload = 1
	require.NoError(t, store.ApplyAssignment(ctx, change))

	saved, err := store.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, saved.Status)
	require.NotNil(t, saved.AssignedEmployeeID)
	assert.Equal(t, emp.ID, *saved.AssignedEmployeeID)

	audit, err := store.ListAudit(ctx, booking.ID)
	require.NoError(t, err)
	require.Len(t, audit, 1)
	assert.Equal(t, change.Audit.ID, audit[0].ID)
	assert.Equal(t, models.AuditAssigned, audit[0].Action)
}

func TestListEmployeesExpertiseFilterIntegration(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	emp, _ := seed(t, store)

	got, err := store.ListEmployees(ctx, models.EmployeeFilter{ActiveOnly: true, AvailableOnly: true, Expertise: "plumbing"})
	require.NoError(t, err)
	ids := map[string]bool{}
	for _, e := range got {
		ids[e.ID] = true
	}
	assert.True(t, ids[emp.ID])

	got, err = store.ListEmployees(ctx, models.EmployeeFilter{Expertise: "Carpentry"})
	require.NoError(t, err)
	for _, e := range got {
		assert.NotEqual(t, emp.ID, e.ID)
	}

	_, err = store.GetEmployee(ctx, "missing-"+uuid.NewString())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRunsIntegration(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	id, err := store.CreateRun(ctx, "RUNNING")
	require.NoError(t, err)
	require.NoError(t, store.FinishRun(ctx, id, "DONE", []byte(`{"counts":{"assigned":1}}`)))

	run, err := store.GetLatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, run.ID)
	assert.Equal(t, "DONE", run.Status)
	assert.JSONEq(t, `{"counts":{"assigned":1}}`, string(run.Summary))
}

func TestUpsertBookingsKeepsCommittedAssignmentIntegration(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	emp, booking := seed(t, store)

	require.NoError(t, store.ApplyAssignment(ctx, models.AssignmentChange{
		BookingID:        booking.ID,
		EmployeeID:       &emp.ID,
		Status:           models.BookingConfirmed,
		ScheduledDate:    booking.ScheduledDate,
		ExpectedWorkload: -1,
		Audit: models.AuditEntry{
			ID:         uuid.NewString(),
			BookingID:  booking.ID,
			EmployeeID: &emp.ID,
			Action:     models.AuditAssigned,
			Strategy:   "best_fit",
			Actor:      "test",
			CreatedAt:  time.Now().UTC(),
		},
	}))

	// Re-importing the original row (pending, no employee) must not undo the assignment.
	reimported := booking
	reimported.ServiceName = "Tap and pipe repair"
	_, err := store.UpsertBookings(ctx, []models.Booking{reimported})
	require.NoError(t, err)

	saved, err := store.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tap and pipe repair", saved.ServiceName)
	assert.Equal(t, models.BookingConfirmed, saved.Status)
	require.NotNil(t, saved.AssignedEmployeeID)
	assert.Equal(t, emp.ID, *saved.AssignedEmployeeID)

	audit, err := store.ListAudit(ctx, booking.ID)
	require.NoError(t, err)
	assert.Len(t, audit, 1)
}

func TestListEmployeesExpertiseWholeWordIntegration(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	suffix := uuid.NewString()[:8]
	ac := models.Employee{
		ID:             "emp-ac-" + suffix,
		Name:           "Kiran",
		ExpertiseAreas: []string{"AC"},
		IsActive:       true,
		IsAvailable:    true,
		UpdatedAt:      time.Now().UTC(),
	}
	_, err := store.UpsertEmployees(ctx, []models.Employee{ac})
	require.NoError(t, err)

	contains := func(filter string) bool {
		got, err := store.ListEmployees(ctx, models.EmployeeFilter{Expertise: filter})
		require.NoError(t, err)
		for _, e := range got {
			if e.ID == ac.ID {
				return true
			}
		}
		return false
	}
	assert.True(t, contains("AC Repair"))
	assert.True(t, contains("ac"))
	assert.False(t, contains("Vacuum Cleaning"))
}
