package handlers

import (
	"errors"
	"net/http"

	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/queue"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/state"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/pkg/logging"
)

// QueueHandler serves the patient's own queue surface: join, leave, update
// details and the canonical "my queue" view.
type QueueHandler struct {
	sessions *state.Manager
	coord    *queue.Coordinator
	logger   *logging.Logger
}

// NewQueueHandler creates the queue handler.
func NewQueueHandler(sessions *state.Manager, coord *queue.Coordinator, logger *logging.Logger) *QueueHandler {
	if sessions == nil {
		panic("handlers: session manager required")
	}
	if coord == nil {
		panic("handlers: coordinator required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &QueueHandler{sessions: sessions, coord: coord, logger: logger}
}

type joinRequest struct {
	ClinicID   string `json:"clinicId"`
	Name       string `json:"name"`
	NationalID string `json:"nationalId"`
	Phone      string `json:"phone"`
}

// POST /api/queue/join
func (h *QueueHandler) Join(w http.ResponseWriter, r *http.Request) {
	patient, ok := patientID(w, r)
	if !ok {
		return
	}
	var req joinRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ClinicID == "" {
		writeError(w, http.StatusBadRequest, "missing_clinic_id", "clinicId is required")
		return
	}

	// Opening the session before the join means the patient's own watch is
	// live when the entry lands, so the joined notification fires.
	h.sessions.Session(r.Context(), patient)

	entry, err := h.coord.Join(r.Context(), req.ClinicID, queue.Details{
		Name:       req.Name,
		NationalID: req.NationalID,
		Phone:      req.Phone,
	}, patient)
	if err != nil {
		h.writeJoinError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *QueueHandler) writeJoinError(w http.ResponseWriter, err error) {
	var unavailable *queue.UnavailableError
	switch {
	case errors.Is(err, queue.ErrAlreadyInQueue):
		writeError(w, http.StatusConflict, "already_in_queue", "you are already in a queue; leave it before joining another")
	case errors.As(err, &unavailable):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:   "clinic_unavailable",
			Message: "the clinic cannot accept new patients right now",
			Reason:  unavailable.Reason,
		})
	default:
		h.logger.Error("queue join failed", "error", err)
		writeError(w, http.StatusBadGateway, "store_error", "the queue service is temporarily unavailable; please retry")
	}
}

type queueView struct {
	InQueue         bool         `json:"inQueue"`
	Entry           *queue.Entry `json:"entry,omitempty"`
	ConnectionError bool         `json:"connectionError"`
}

// GET /api/queue
func (h *QueueHandler) Status(w http.ResponseWriter, r *http.Request) {
	patient, ok := patientID(w, r)
	if !ok {
		return
	}
	session := h.sessions.Session(r.Context(), patient)
	entry := session.CurrentEntry()
	writeJSON(w, http.StatusOK, queueView{
		InQueue:         entry != nil,
		Entry:           entry,
		ConnectionError: session.ConnErr(),
	})
}

// DELETE /api/queue
func (h *QueueHandler) Leave(w http.ResponseWriter, r *http.Request) {
	patient, ok := patientID(w, r)
	if !ok {
		return
	}
	session := h.sessions.Session(r.Context(), patient)
	entry := session.CurrentEntry()
	if entry == nil {
		// Leaving while not queued succeeds; the end state is identical.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := h.coord.Leave(r.Context(), entry.ID); err != nil {
		h.logger.Error("queue leave failed", "entry_id", entry.ID, "error", err)
		writeError(w, http.StatusBadGateway, "store_error", "the queue service is temporarily unavailable; please retry")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PATCH /api/queue/details
func (h *QueueHandler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	patient, ok := patientID(w, r)
	if !ok {
		return
	}
	var details queue.Details
	if !decodeJSON(w, r, &details) {
		return
	}
	session := h.sessions.Session(r.Context(), patient)
	entry := session.CurrentEntry()
	if entry == nil {
		writeError(w, http.StatusNotFound, "not_in_queue", "you are not in a queue")
		return
	}
	if err := h.coord.UpdateDetails(r.Context(), entry.ID, details); err != nil {
		if errors.Is(err, queue.ErrNotInQueue) {
			writeError(w, http.StatusNotFound, "not_in_queue", "you are not in a queue")
			return
		}
		h.logger.Error("queue details update failed", "entry_id", entry.ID, "error", err)
		writeError(w, http.StatusBadGateway, "store_error", "the queue service is temporarily unavailable; please retry")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
