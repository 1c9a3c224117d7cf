package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/appointments"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/pkg/logging"
)

// AppointmentsHandler serves appointment booking, cancellation and listing.
type AppointmentsHandler struct {
	repo   *appointments.Repository
	logger *logging.Logger
}

// NewAppointmentsHandler creates the appointments handler.
func NewAppointmentsHandler(repo *appointments.Repository, logger *logging.Logger) *AppointmentsHandler {
	if repo == nil {
		panic("handlers: appointments repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentsHandler{repo: repo, logger: logger}
}

type bookRequest struct {
	ClinicID     string    `json:"clinicId"`
	Service      string    `json:"service"`
	ScheduledFor time.Time `json:"scheduledFor"`
}

// POST /api/appointments
func (h *AppointmentsHandler) Book(w http.ResponseWriter, r *http.Request) {
	patient, ok := patientID(w, r)
	if !ok {
		return
	}
	var req bookRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ClinicID == "" || req.ScheduledFor.IsZero() {
		writeError(w, http.StatusBadRequest, "invalid_request", "clinicId and scheduledFor are required")
		return
	}
	appt, err := h.repo.Book(r.Context(), req.ClinicID, patient, req.Service, req.ScheduledFor)
	if err != nil {
		h.logger.Error("appointment booking failed", "clinic_id", req.ClinicID, "error", err)
		writeError(w, http.StatusBadGateway, "store_error", "appointments are temporarily unavailable; please retry")
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

// GET /api/appointments
func (h *AppointmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	patient, ok := patientID(w, r)
	if !ok {
		return
	}
	appts, err := h.repo.ListByPatient(r.Context(), patient)
	if err != nil {
		h.logger.Error("appointment list failed", "error", err)
		writeError(w, http.StatusBadGateway, "store_error", "appointments are temporarily unavailable; please retry")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": appts})
}

// DELETE /api/appointments/{appointmentID}
func (h *AppointmentsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if _, ok := patientID(w, r); !ok {
		return
	}
	id := chi.URLParam(r, "appointmentID")
	if err := h.repo.Cancel(r.Context(), id); err != nil {
		h.logger.Error("appointment cancel failed", "appointment_id", id, "error", err)
		writeError(w, http.StatusBadGateway, "store_error", "appointments are temporarily unavailable; please retry")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type rescheduleRequest struct {
	ScheduledFor time.Time `json:"scheduledFor"`
}

// PATCH /api/appointments/{appointmentID}
func (h *AppointmentsHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if _, ok := patientID(w, r); !ok {
		return
	}
	var req rescheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ScheduledFor.IsZero() {
		writeError(w, http.StatusBadRequest, "invalid_request", "scheduledFor is required")
		return
	}
	id := chi.URLParam(r, "appointmentID")
	if err := h.repo.Reschedule(r.Context(), id, req.ScheduledFor); err != nil {
		if errors.Is(err, appointments.ErrAppointmentNotFound) {
			writeError(w, http.StatusNotFound, "appointment_not_found", "no such appointment")
			return
		}
		h.logger.Error("appointment reschedule failed", "appointment_id", id, "error", err)
		writeError(w, http.StatusBadGateway, "store_error", "appointments are temporarily unavailable; please retry")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rescheduled"})
}
