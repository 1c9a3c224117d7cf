package queue

import (
	"time"

	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/store"
)

// Collection is the document-store collection holding queue entries.
const Collection = "queue_entries"

// Status is the lifecycle state of a queue entry. Entries are deleted on
// leave, so "left" is only ever observed transiently by listeners mid-delete.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusCalled  Status = "called"
	StatusLeft    Status = "left"
)

// ActiveStatuses are the states that count toward clinic load and block a
// second join for the same patient.
func ActiveStatuses() []string {
	return []string{string(StatusWaiting), string(StatusCalled)}
}

// Field names of a queue entry document.
const (
	FieldClinicID          = "clinicId"
	FieldPatientID         = "patientId"
	FieldName              = "name"
	FieldNationalID        = "nationalId"
	FieldPhone             = "phone"
	FieldStatus            = "status"
	FieldPosition          = "position"
	FieldEstimatedWait     = "estimatedWaitMinutes"
	FieldLastNotifiedAt    = "lastNotifiedAt"
	FieldNotificationCount = "notificationCount"
)

// Entry is one patient's ticket in one clinic's walk-in line.
type Entry struct {
	ID                   string    `json:"id"`
	ClinicID             string    `json:"clinicId"`
	PatientID            string    `json:"patientId"`
	Name                 string    `json:"name"`
	NationalID           string    `json:"nationalId"`
	Phone                string    `json:"phone"`
	Status               Status    `json:"status"`
	Position             int       `json:"position"`
	EstimatedWaitMinutes int       `json:"estimatedWaitMinutes"`
	JoinedAt             time.Time `json:"joinedAt"`
	LastNotifiedAt       string    `json:"lastNotifiedAt,omitempty"`
	NotificationCount    int       `json:"notificationCount"`
}

// Details carries the patient-supplied fields of an entry. Empty values are
// ignored on update.
type Details struct {
	Name       string `json:"name"`
	NationalID string `json:"nationalId"`
	Phone      string `json:"phone"`
}

// Stats is the derived per-clinic aggregate. It is never persisted and is
// recomputed on every read or push.
type Stats struct {
	ClinicID      string `json:"clinicId"`
	Total         int    `json:"total"`
	Waiting       int    `json:"waiting"`
	Called        int    `json:"called"`
	EstimatedWait string `json:"estimatedWait"`
}

// EntryFromRecord projects a store record into an Entry.
func EntryFromRecord(r store.Record) Entry {
	return Entry{
		ID:                   r.ID,
		ClinicID:             r.String(FieldClinicID),
		PatientID:            r.String(FieldPatientID),
		Name:                 r.String(FieldName),
		NationalID:           r.String(FieldNationalID),
		Phone:                r.String(FieldPhone),
		Status:               Status(r.String(FieldStatus)),
		Position:             r.Int(FieldPosition),
		EstimatedWaitMinutes: r.Int(FieldEstimatedWait),
		JoinedAt:             r.CreatedAt,
		LastNotifiedAt:       r.String(FieldLastNotifiedAt),
		NotificationCount:    r.Int(FieldNotificationCount),
	}
}
