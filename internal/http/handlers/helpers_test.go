package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/appointments"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/clinic"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/queue"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/state"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/store"
)

// testEnv wires the full patient API against the in-memory store.
type testEnv struct {
	router    http.Handler
	store     *store.Memory
	coord     *queue.Coordinator
	directory *clinic.Directory
	sessions  *state.Manager
	clinicID  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mem := store.NewMemory()
	directory := clinic.NewDirectory(mem)
	checker := clinic.NewChecker(directory, mem, 15, 5, 50, nil)
	coord := queue.NewCoordinator(mem, mem, checker, queue.Rules{}, nil, nil)
	sessions := state.NewManager(mem, coord, directory, 5*time.Second, time.Hour, nil, nil)
	t.Cleanup(sessions.CloseAll)

	added, err := directory.Add(context.Background(), clinic.Clinic{
		Name:         "Soweto Community Clinic",
		Specialty:    "General Practice",
		OpenTime:     "00:00",
		CloseTime:    "00:00", // open==close keeps the clinic always open
		MaxQueueSize: 50,
	})
	if err != nil {
		t.Fatalf("seed clinic: %v", err)
	}

	apptRepo := appointments.NewRepository(mem)
	queueHandler := NewQueueHandler(sessions, coord, nil)
	clinicsHandler := NewClinicsHandler(directory, checker, coord, sessions, nil)
	notificationsHandler := NewNotificationsHandler(sessions)
	appointmentsHandler := NewAppointmentsHandler(apptRepo, nil)
	assistantHandler := NewAssistantHandler(nil, nil)

	r := chi.NewRouter()
	r.Route("/api", func(api chi.Router) {
		api.Route("/queue", func(q chi.Router) {
			q.Post("/join", queueHandler.Join)
			q.Get("/", queueHandler.Status)
			q.Delete("/", queueHandler.Leave)
			q.Patch("/details", queueHandler.UpdateDetails)
		})
		api.Route("/clinics", func(c chi.Router) {
			c.Get("/", clinicsHandler.List)
			c.Route("/{clinicID}", func(one chi.Router) {
				one.Get("/", clinicsHandler.Get)
				one.Get("/stats", clinicsHandler.Stats)
				one.Get("/availability", clinicsHandler.Availability)
				one.Get("/can-join", clinicsHandler.CanJoin)
			})
		})
		api.Route("/notifications", func(n chi.Router) {
			n.Get("/", notificationsHandler.List)
			n.Delete("/", notificationsHandler.ClearAll)
			n.Post("/read-all", notificationsHandler.MarkAllRead)
			n.Post("/{notificationID}/read", notificationsHandler.MarkRead)
			n.Delete("/{notificationID}", notificationsHandler.Delete)
		})
		api.Route("/appointments", func(a chi.Router) {
			a.Post("/", appointmentsHandler.Book)
			a.Get("/", appointmentsHandler.List)
			a.Delete("/{appointmentID}", appointmentsHandler.Cancel)
			a.Patch("/{appointmentID}", appointmentsHandler.Reschedule)
		})
		api.Post("/assistant/message", assistantHandler.Message)
	})

	return &testEnv{
		router:    r,
		store:     mem,
		coord:     coord,
		directory: directory,
		sessions:  sessions,
		clinicID:  added.ID,
	}
}

func (e *testEnv) do(t *testing.T, method, path, patient string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if patient != "" {
		req.Header.Set(headerPatientID, patient)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}
