// Package handlers exposes the patient-facing HTTP API. Patient identity
// arrives as the X-Patient-ID header set by the edge; handlers resolve it to
// a live session and translate domain errors into stable error codes.
package handlers

import (
	"encoding/json"
	"net/http"
)

// headerPatientID carries the caller's patient identity.
const headerPatientID = "X-Patient-ID"

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// errorBody is the wire shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: code, Message: message})
}

// patientID extracts the caller identity, writing a 400 when absent.
func patientID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get(headerPatientID)
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing_patient_id", "X-Patient-ID header is required")
		return "", false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json: "+err.Error())
		return false
	}
	return true
}
