package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/state"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/pkg/logging"
)

// StreamHandler upgrades a patient connection to a WebSocket and pushes every
// session update as a JSON frame. Each frame is a full snapshot, so clients
// render the latest frame and never need to replay.
type StreamHandler struct {
	sessions     *state.Manager
	writeTimeout time.Duration
	logger       *logging.Logger
	upgrader     websocket.Upgrader
}

// NewStreamHandler creates the stream handler.
func NewStreamHandler(sessions *state.Manager, writeTimeout time.Duration, logger *logging.Logger) *StreamHandler {
	if sessions == nil {
		panic("handlers: session manager required")
	}
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &StreamHandler{
		sessions:     sessions,
		writeTimeout: writeTimeout,
		logger:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The edge enforces origin policy; identity comes from the header.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// GET /api/stream
func (h *StreamHandler) Serve(w http.ResponseWriter, r *http.Request) {
	patient, ok := patientID(w, r)
	if !ok {
		return
	}
	session := h.sessions.Session(r.Context(), patient)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Warn("websocket upgrade failed", "patient_id", patient, "error", err)
		return
	}
	defer conn.Close()

	updates, detach := session.Stream()
	defer detach()

	// Prime the client with the current state before streaming deltas.
	entry := session.CurrentEntry()
	initial := []state.StreamUpdate{
		{
			Kind:        "queue",
			InQueue:     entry != nil,
			Entry:       entry,
			UnreadCount: session.Feed().UnreadCount(),
		},
		{
			Kind:          "notifications",
			Notifications: session.Feed().List(),
			UnreadCount:   session.Feed().UnreadCount(),
		},
	}
	for _, update := range initial {
		if err := h.writeFrame(conn, update); err != nil {
			return
		}
	}

	// Drain client frames so close and pong handling keep working.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case update, open := <-updates:
			if !open {
				return
			}
			if err := h.writeFrame(conn, update); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (h *StreamHandler) writeFrame(conn *websocket.Conn, update state.StreamUpdate) error {
	_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	if err := conn.WriteJSON(update); err != nil {
		h.logger.Debug("websocket write failed", "error", err)
		return err
	}
	return nil
}
