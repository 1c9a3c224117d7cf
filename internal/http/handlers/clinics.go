package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/clinic"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/queue"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/state"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/pkg/logging"
)

// ClinicsHandler serves the clinic directory, live per-clinic stats and the
// availability verdicts the join screen needs.
type ClinicsHandler struct {
	directory *clinic.Directory
	checker   *clinic.Checker
	coord     *queue.Coordinator
	sessions  *state.Manager
	logger    *logging.Logger
}

// NewClinicsHandler creates the clinics handler.
func NewClinicsHandler(directory *clinic.Directory, checker *clinic.Checker, coord *queue.Coordinator, sessions *state.Manager, logger *logging.Logger) *ClinicsHandler {
	if directory == nil {
		panic("handlers: directory required")
	}
	if checker == nil {
		panic("handlers: availability checker required")
	}
	if coord == nil {
		panic("handlers: coordinator required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ClinicsHandler{
		directory: directory,
		checker:   checker,
		coord:     coord,
		sessions:  sessions,
		logger:    logger,
	}
}

// GET /api/clinics?q=term
func (h *ClinicsHandler) List(w http.ResponseWriter, r *http.Request) {
	clinics, err := h.directory.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.logger.Error("clinic list failed", "error", err)
		writeError(w, http.StatusBadGateway, "store_error", "the clinic directory is temporarily unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"clinics": clinics})
}

// GET /api/clinics/{clinicID}
func (h *ClinicsHandler) Get(w http.ResponseWriter, r *http.Request) {
	clinicID := chi.URLParam(r, "clinicID")
	c, err := h.directory.Get(r.Context(), clinicID)
	if err != nil {
		if errors.Is(err, clinic.ErrClinicNotFound) {
			writeError(w, http.StatusNotFound, "clinic_not_found", "no such clinic")
			return
		}
		h.logger.Error("clinic get failed", "clinic_id", clinicID, "error", err)
		writeError(w, http.StatusBadGateway, "store_error", "the clinic directory is temporarily unavailable")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// GET /api/clinics/{clinicID}/stats
func (h *ClinicsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	clinicID := chi.URLParam(r, "clinicID")
	writeJSON(w, http.StatusOK, h.coord.ClinicStats(r.Context(), clinicID))
}

// GET /api/clinics/{clinicID}/availability
func (h *ClinicsHandler) Availability(w http.ResponseWriter, r *http.Request) {
	clinicID := chi.URLParam(r, "clinicID")
	availability, err := h.checker.IsAvailable(r.Context(), clinicID)
	if err != nil {
		if errors.Is(err, clinic.ErrClinicNotFound) {
			writeError(w, http.StatusNotFound, "clinic_not_found", "no such clinic")
			return
		}
		h.logger.Error("availability check failed", "clinic_id", clinicID, "error", err)
		writeError(w, http.StatusBadGateway, "store_error", "the clinic directory is temporarily unavailable")
		return
	}
	writeJSON(w, http.StatusOK, availability)
}

type canJoinResponse struct {
	CanJoin       bool   `json:"canJoin"`
	Reason        string `json:"reason,omitempty"`
	CurrentClinic string `json:"currentClinic,omitempty"`
	CurrentQueue  int    `json:"currentQueue"`
	EstimatedWait string `json:"estimatedWait,omitempty"`
}

// GET /api/clinics/{clinicID}/can-join
//
// Unlike the raw availability verdict, this also accounts for the caller's
// own state: a patient already queued anywhere must leave first.
func (h *ClinicsHandler) CanJoin(w http.ResponseWriter, r *http.Request) {
	patient, ok := patientID(w, r)
	if !ok {
		return
	}
	clinicID := chi.URLParam(r, "clinicID")

	session := h.sessions.Session(r.Context(), patient)
	if current := session.CurrentEntry(); current != nil {
		writeJSON(w, http.StatusOK, canJoinResponse{
			Reason:        "leave your current queue first",
			CurrentClinic: current.ClinicID,
		})
		return
	}

	availability, err := h.checker.IsAvailable(r.Context(), clinicID)
	if err != nil {
		if errors.Is(err, clinic.ErrClinicNotFound) {
			writeError(w, http.StatusNotFound, "clinic_not_found", "no such clinic")
			return
		}
		h.logger.Error("can-join check failed", "clinic_id", clinicID, "error", err)
		writeError(w, http.StatusBadGateway, "store_error", "the clinic directory is temporarily unavailable")
		return
	}
	writeJSON(w, http.StatusOK, canJoinResponse{
		CanJoin:       availability.Available,
		Reason:        availability.Reason,
		CurrentQueue:  availability.CurrentQueue,
		EstimatedWait: availability.EstimatedWait,
	})
}
