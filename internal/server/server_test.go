package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/origo/signalcheck/internal/assessment"
	"github.com/origo/signalcheck/internal/database"
	"github.com/origo/signalcheck/internal/leads"
	"github.com/origo/signalcheck/internal/migrations"
	"github.com/origo/signalcheck/internal/quiz"
	"github.com/origo/signalcheck/internal/snapshot"
)

const (
	testAdminEmail    = "admin@origo.local"
	testAdminPassword = "changeme"
	testBookingURL    = "https://cal.example/strategy"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Run(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	return db
}

type testEnv struct {
	router    chi.Router
	leads     *leads.Store
	sessions  *quiz.Registry
	snapshots snapshot.Store
	broker    *Broker
	admin     *AdminDocStore
}

// newTestEnv wires the full router against an in-memory database. A nil
// submitter stores leads for real.
func newTestEnv(t *testing.T, submitter quiz.Submitter) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	logger := slog.New(slog.DiscardHandler)

	catalog, err := assessment.Default()
	if err != nil {
		t.Fatalf("loading catalog: %v", err)
	}

	store := leads.NewStore(db, catalog)
	broker := NewBroker()
	if submitter == nil {
		sub := leads.NewSubmitter(store, logger, false)
		sub.OnCreate(broker.LeadCreated(store))
		submitter = sub
	}

	snaps := snapshot.NewMemory(time.Hour)
	sessions := quiz.NewRegistry(catalog, submitter, quiz.Options{
		Snapshots:     snaps,
		SubmitTimeout: time.Second,
		Logger:        logger,
	}, time.Hour)

	admin := NewAdminDocStore(db)
	if _, err := admin.SeedAdmin(context.Background(), testAdminEmail, testAdminPassword); err != nil {
		t.Fatalf("seeding admin: %v", err)
	}

	return &testEnv{
		router: newRouter(logger, Deps{
			Sessions:   sessions,
			Leads:      store,
			Admin:      admin,
			Broker:     broker,
			BookingURL: testBookingURL,
		}, nil),
		leads:     store,
		sessions:  sessions,
		snapshots: snaps,
		broker:    broker,
		admin:     admin,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v (body %q)", err, w.Body.String())
	}
	return v
}

func (e *testEnv) login(t *testing.T) []*http.Cookie {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/admin/login", AdminLoginRequest{Email: testAdminEmail, Password: testAdminPassword})
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	return w.Result().Cookies()
}

func (e *testEnv) createSession(t *testing.T) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/assessment/sessions", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create session: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	return decode[SessionResponse](t, w).Token
}

func (e *testEnv) answer(t *testing.T, token, questionID string, value any) {
	t.Helper()
	path := fmt.Sprintf("/api/assessment/sessions/%s/answers/%s", token, questionID)
	w := e.do(t, http.MethodPut, path, map[string]any{"value": value})
	if w.Code != http.StatusOK {
		t.Fatalf("answer %s: expected 200, got %d: %s", questionID, w.Code, w.Body.String())
	}
}

// completeSession answers the contact questions and every scored question
// with the given option value.
func (e *testEnv) completeSession(t *testing.T, token, name, email string, value int) {
	t.Helper()
	e.answer(t, token, "q1", name)
	e.answer(t, token, "q2", email)
	e.answer(t, token, "q3", "Founder / Owner")
	e.answer(t, token, "q4", "Tech / SaaS")
	for _, id := range e.sessions.Catalog().Scored() {
		e.answer(t, token, id, value)
	}
}

func (e *testEnv) submit(t *testing.T, token string) SubmitResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/assessment/sessions/"+token+"/submit", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("submit: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	return decode[SubmitResponse](t, w)
}
