package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/state"
)

// NotificationsHandler serves the patient's local notification feed.
type NotificationsHandler struct {
	sessions *state.Manager
}

// NewNotificationsHandler creates the notifications handler.
func NewNotificationsHandler(sessions *state.Manager) *NotificationsHandler {
	if sessions == nil {
		panic("handlers: session manager required")
	}
	return &NotificationsHandler{sessions: sessions}
}

// GET /api/notifications
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	patient, ok := patientID(w, r)
	if !ok {
		return
	}
	feed := h.sessions.Session(r.Context(), patient).Feed()
	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": feed.List(),
		"unreadCount":   feed.UnreadCount(),
	})
}

// POST /api/notifications/{notificationID}/read
func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	patient, ok := patientID(w, r)
	if !ok {
		return
	}
	h.sessions.Session(r.Context(), patient).Feed().MarkRead(chi.URLParam(r, "notificationID"))
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/notifications/read-all
func (h *NotificationsHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	patient, ok := patientID(w, r)
	if !ok {
		return
	}
	h.sessions.Session(r.Context(), patient).Feed().MarkAllRead()
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /api/notifications/{notificationID}
func (h *NotificationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	patient, ok := patientID(w, r)
	if !ok {
		return
	}
	h.sessions.Session(r.Context(), patient).Feed().Delete(chi.URLParam(r, "notificationID"))
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /api/notifications
//
// Clear-all goes through the dedup engine, not the feed, so already-announced
// states stay suppressed after the wipe.
func (h *NotificationsHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	patient, ok := patientID(w, r)
	if !ok {
		return
	}
	h.sessions.Session(r.Context(), patient).Dedup().ClearAll()
	w.WriteHeader(http.StatusNoContent)
}
