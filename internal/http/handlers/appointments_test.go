package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/appointments"
)

func TestBookAndListAppointments(t *testing.T) {
	env := newTestEnv(t)
	scheduledFor := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)

	rec := env.do(t, http.MethodPost, "/api/appointments/", "patient-1", map[string]any{
		"clinicId":     env.clinicID,
		"service":      "Dental Checkup",
		"scheduledFor": scheduledFor,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("book status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var booked appointments.Appointment
	decodeBody(t, rec, &booked)
	if booked.ID == "" || booked.Service != "Dental Checkup" {
		t.Errorf("booked = %+v", booked)
	}
	if !booked.ScheduledFor.Equal(scheduledFor) {
		t.Errorf("scheduledFor = %v, want %v", booked.ScheduledFor, scheduledFor)
	}

	rec = env.do(t, http.MethodGet, "/api/appointments/", "patient-1", nil)
	var list struct {
		Appointments []appointments.Appointment `json:"appointments"`
	}
	decodeBody(t, rec, &list)
	if len(list.Appointments) != 1 || list.Appointments[0].ID != booked.ID {
		t.Errorf("list = %+v", list.Appointments)
	}

	// Other patients see nothing.
	rec = env.do(t, http.MethodGet, "/api/appointments/", "patient-2", nil)
	decodeBody(t, rec, &list)
	if len(list.Appointments) != 0 {
		t.Errorf("other patient's list = %+v", list.Appointments)
	}
}

func TestBookValidatesRequest(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/appointments/", "patient-1", map[string]any{"service": "Dental Checkup"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCancelAppointment(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/appointments/", "patient-1", map[string]any{
		"clinicId":     env.clinicID,
		"service":      "Dental Checkup",
		"scheduledFor": time.Now().Add(48 * time.Hour),
	})
	var booked appointments.Appointment
	decodeBody(t, rec, &booked)

	if rec := env.do(t, http.MethodDelete, "/api/appointments/"+booked.ID, "patient-1", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("cancel status = %d", rec.Code)
	}
	// Cancelling again is a no-op.
	if rec := env.do(t, http.MethodDelete, "/api/appointments/"+booked.ID, "patient-1", nil); rec.Code != http.StatusNoContent {
		t.Errorf("repeat cancel status = %d", rec.Code)
	}
}

func TestRescheduleAppointment(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/appointments/", "patient-1", map[string]any{
		"clinicId":     env.clinicID,
		"service":      "Dental Checkup",
		"scheduledFor": time.Now().Add(48 * time.Hour),
	})
	var booked appointments.Appointment
	decodeBody(t, rec, &booked)

	moved := time.Now().Add(96 * time.Hour).UTC().Truncate(time.Second)
	if rec := env.do(t, http.MethodPatch, "/api/appointments/"+booked.ID, "patient-1", map[string]any{"scheduledFor": moved}); rec.Code != http.StatusOK {
		t.Fatalf("reschedule status = %d", rec.Code)
	}

	var list struct {
		Appointments []appointments.Appointment `json:"appointments"`
	}
	decodeBody(t, env.do(t, http.MethodGet, "/api/appointments/", "patient-1", nil), &list)
	if !list.Appointments[0].ScheduledFor.Equal(moved) {
		t.Errorf("scheduledFor = %v, want %v", list.Appointments[0].ScheduledFor, moved)
	}

	if rec := env.do(t, http.MethodPatch, "/api/appointments/missing", "patient-1", map[string]any{"scheduledFor": moved}); rec.Code != http.StatusNotFound {
		t.Errorf("missing reschedule status = %d, want 404", rec.Code)
	}
}
