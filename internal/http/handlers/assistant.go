package handlers

import (
	"net/http"
	"strings"

	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/assistant"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/pkg/logging"
)

// AssistantHandler relays one patient message to the configured assistant.
type AssistantHandler struct {
	client assistant.Client
	logger *logging.Logger
}

// NewAssistantHandler creates the assistant handler.
func NewAssistantHandler(client assistant.Client, logger *logging.Logger) *AssistantHandler {
	if client == nil {
		client = assistant.Stub{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AssistantHandler{client: client, logger: logger}
}

type assistantRequest struct {
	Message string `json:"message"`
}

// POST /api/assistant/message
func (h *AssistantHandler) Message(w http.ResponseWriter, r *http.Request) {
	if _, ok := patientID(w, r); !ok {
		return
	}
	var req assistantRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "empty_message", "message must not be empty")
		return
	}
	reply, err := h.client.Reply(r.Context(), req.Message)
	if err != nil {
		h.logger.Error("assistant reply failed", "error", err)
		writeError(w, http.StatusBadGateway, "assistant_unavailable", "the assistant is temporarily unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}
