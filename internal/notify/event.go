// Package notify turns observed state transitions into a deduplicated,
// client-local notification feed. Nothing in this package is persisted to the
// remote store; the feed does not survive a process restart.
package notify

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type classifies a notification event.
type Type string

const (
	TypeQueueUpdate         Type = "queue_update"
	TypeAppointmentReminder Type = "appointment_reminder"
	TypeHealthTip           Type = "health_tip"
	TypeSystem              Type = "system"
)

// Priority marks how prominently the UI should surface an event.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// QueueAction is the payload of queue-related events: exactly the fields the
// UI needs to render or re-trigger the queue screen.
type QueueAction struct {
	ClinicID      string `json:"clinicId"`
	ClinicName    string `json:"clinicName"`
	Position      int    `json:"position,omitempty"`
	EstimatedWait string `json:"estimatedWait,omitempty"`
}

// AppointmentAction is the payload of appointment-related events.
type AppointmentAction struct {
	AppointmentID string    `json:"appointmentId"`
	ClinicID      string    `json:"clinicId"`
	Service       string    `json:"service"`
	ScheduledFor  time.Time `json:"scheduledFor"`
}

// Event is one user-visible notification. At most one of Queue/Appointment is
// set, matching the event's type.
type Event struct {
	ID          string             `json:"id"`
	Type        Type               `json:"type"`
	Title       string             `json:"title"`
	Message     string             `json:"message"`
	Timestamp   time.Time          `json:"timestamp"`
	Read        bool               `json:"read"`
	Priority    Priority           `json:"priority"`
	LinkedType  string             `json:"linkedType,omitempty"`
	LinkedID    string             `json:"linkedId,omitempty"`
	Queue       *QueueAction       `json:"queueAction,omitempty"`
	Appointment *AppointmentAction `json:"appointmentAction,omitempty"`
}

// newEventID builds a locally unique, roughly time-ordered id.
func newEventID(at time.Time) string {
	return fmt.Sprintf("%d-%s", at.UnixMilli(), uuid.NewString()[:8])
}
