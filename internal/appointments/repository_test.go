package appointments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/store"
)

func TestBookAndListByPatient(t *testing.T) {
	repo := NewRepository(store.NewMemory())
	ctx := context.Background()

	later := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	sooner := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)

	second, err := repo.Book(ctx, "clinic-1", "patient-1", "Dental Checkup", later)
	require.NoError(t, err)
	require.NotEmpty(t, second.ID)
	assert.True(t, second.ScheduledFor.Equal(later))

	first, err := repo.Book(ctx, "clinic-1", "patient-1", "Eye Test", sooner)
	require.NoError(t, err)

	_, err = repo.Book(ctx, "clinic-2", "patient-2", "Vaccination", sooner)
	require.NoError(t, err)

	appts, err := repo.ListByPatient(ctx, "patient-1")
	require.NoError(t, err)
	require.Len(t, appts, 2)
	// Ordered by scheduled time, not booking order.
	assert.Equal(t, first.ID, appts[0].ID)
	assert.Equal(t, second.ID, appts[1].ID)
}

func TestCancelIsIdempotent(t *testing.T) {
	repo := NewRepository(store.NewMemory())
	ctx := context.Background()

	appt, err := repo.Book(ctx, "clinic-1", "patient-1", "Dental Checkup", time.Now().Add(24*time.Hour))
	require.NoError(t, err)

	require.NoError(t, repo.Cancel(ctx, appt.ID))
	require.NoError(t, repo.Cancel(ctx, appt.ID))
	require.NoError(t, repo.Cancel(ctx, "never-existed"))

	appts, err := repo.ListByPatient(ctx, "patient-1")
	require.NoError(t, err)
	assert.Empty(t, appts)
}

func TestReschedule(t *testing.T) {
	repo := NewRepository(store.NewMemory())
	ctx := context.Background()

	appt, err := repo.Book(ctx, "clinic-1", "patient-1", "Dental Checkup", time.Now().Add(24*time.Hour))
	require.NoError(t, err)

	moved := time.Now().Add(96 * time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, repo.Reschedule(ctx, appt.ID, moved))

	appts, err := repo.ListByPatient(ctx, "patient-1")
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.True(t, appts[0].ScheduledFor.Equal(moved))

	err = repo.Reschedule(ctx, "never-existed", moved)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}
