package handlers

import (
	"net/http"
	"testing"
)

func TestAssistantStubReplies(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/assistant/message", "patient-1", map[string]string{"message": "Where is the nearest clinic?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	decodeBody(t, rec, &body)
	if body["reply"] == "" {
		t.Error("empty reply")
	}
}

func TestAssistantRejectsEmptyMessage(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/assistant/message", "patient-1", map[string]string{"message": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
