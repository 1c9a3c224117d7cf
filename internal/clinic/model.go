package clinic

import (
	"errors"

	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/store"
)

// Collection is the document-store collection holding clinic records.
const Collection = "clinics"

// ErrClinicNotFound is returned when no clinic matches the requested id
var ErrClinicNotFound = errors.New("clinic: not found")

// Clinic is one walk-in clinic in the directory. OpenTime/CloseTime are local
// times of day in "HH:MM"; a close before the open means the window crosses
// midnight.
type Clinic struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Address           string `json:"address"`
	Specialty         string `json:"specialty"`
	Phone             string `json:"phone"`
	OpenTime          string `json:"openTime"`
	CloseTime         string `json:"closeTime"`
	MaxQueueSize      int    `json:"maxQueueSize"`
	AvgServiceMinutes int    `json:"avgServiceMinutes,omitempty"`
}

// Availability is the advisory join gate result for a clinic. It is evaluated
// client-side against server-reported counts and is not enforced by the store.
type Availability struct {
	Available     bool   `json:"available"`
	Reason        string `json:"reason,omitempty"`
	CurrentQueue  int    `json:"currentQueue"`
	EstimatedWait string `json:"estimatedWait"`
}

func fromRecord(r store.Record) Clinic {
	return Clinic{
		ID:                r.ID,
		Name:              r.String("name"),
		Address:           r.String("address"),
		Specialty:         r.String("specialty"),
		Phone:             r.String("phone"),
		OpenTime:          r.String("openTime"),
		CloseTime:         r.String("closeTime"),
		MaxQueueSize:      r.Int("maxQueueSize"),
		AvgServiceMinutes: r.Int("avgServiceMinutes"),
	}
}

func toFields(c Clinic) map[string]any {
	return map[string]any{
		"name":              c.Name,
		"address":           c.Address,
		"specialty":         c.Specialty,
		"phone":             c.Phone,
		"openTime":          c.OpenTime,
		"closeTime":         c.CloseTime,
		"maxQueueSize":      c.MaxQueueSize,
		"avgServiceMinutes": c.AvgServiceMinutes,
	}
}
