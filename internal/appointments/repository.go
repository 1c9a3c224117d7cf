// Package appointments holds the minimal appointment records the
// notification engine observes. Slot management and booking rules live
// elsewhere; this is deliberately a thin layer over the document store.
package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/store"
)

// Collection is the document-store collection holding appointments.
const Collection = "appointments"

// ErrAppointmentNotFound is returned when the targeted appointment is gone
var ErrAppointmentNotFound = errors.New("appointments: not found")

// Field names of an appointment document.
const (
	FieldClinicID     = "clinicId"
	FieldPatientID    = "patientId"
	FieldService      = "service"
	FieldScheduledFor = "scheduledFor"
)

// Appointment is one booked visit.
type Appointment struct {
	ID           string    `json:"id"`
	ClinicID     string    `json:"clinicId"`
	PatientID    string    `json:"patientId"`
	Service      string    `json:"service"`
	ScheduledFor time.Time `json:"scheduledFor"`
	CreatedAt    time.Time `json:"createdAt"`
}

// FromRecord projects a store record into an Appointment.
func FromRecord(r store.Record) Appointment {
	scheduledFor, _ := time.Parse(time.RFC3339, r.String(FieldScheduledFor))
	return Appointment{
		ID:           r.ID,
		ClinicID:     r.String(FieldClinicID),
		PatientID:    r.String(FieldPatientID),
		Service:      r.String(FieldService),
		ScheduledFor: scheduledFor,
		CreatedAt:    r.CreatedAt,
	}
}

// Repository reads and writes appointment records.
type Repository struct {
	store store.Client
}

// NewRepository creates an appointment repository.
func NewRepository(st store.Client) *Repository {
	if st == nil {
		panic("appointments: store client required")
	}
	return &Repository{store: st}
}

// Book creates an appointment and returns it with its assigned id.
func (r *Repository) Book(ctx context.Context, clinicID, patientID, service string, scheduledFor time.Time) (Appointment, error) {
	rec, err := r.store.Create(ctx, Collection, map[string]any{
		FieldClinicID:     clinicID,
		FieldPatientID:    patientID,
		FieldService:      service,
		FieldScheduledFor: scheduledFor.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return Appointment{}, fmt.Errorf("appointments: book: %w", err)
	}
	return FromRecord(rec), nil
}

// Cancel deletes the appointment. Cancelling an absent appointment is a no-op.
func (r *Repository) Cancel(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, Collection, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("appointments: cancel: %w", err)
	}
	return nil
}

// Reschedule moves the appointment to a new time.
func (r *Repository) Reschedule(ctx context.Context, id string, scheduledFor time.Time) error {
	err := r.store.Update(ctx, Collection, id, map[string]any{
		FieldScheduledFor: scheduledFor.UTC().Format(time.RFC3339),
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAppointmentNotFound
		}
		return fmt.Errorf("appointments: reschedule: %w", err)
	}
	return nil
}

// ListByPatient returns the patient's appointments ordered by scheduled time.
func (r *Repository) ListByPatient(ctx context.Context, patientID string) ([]Appointment, error) {
	records, err := r.store.Query(ctx, Collection, store.Query{
		Filters: []store.Filter{store.Eq(FieldPatientID, patientID)},
		OrderBy: FieldScheduledFor,
	})
	if err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	appts := make([]Appointment, 0, len(records))
	for _, rec := range records {
		appts = append(appts, FromRecord(rec))
	}
	return appts, nil
}
