package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestManager(t *testing.T) *RoomManager {
	t.Helper()
	m := NewRoomManager(testConfig())
	t.Cleanup(m.StopAll)
	return m
}

func TestAdminConfigGetAndPost(t *testing.T) {
	m := newTestManager(t)

	rec := httptest.NewRecorder()
	m.HandleAdminConfig(rec, httptest.NewRequest(http.MethodGet, "/admin/config?room=r1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d", rec.Code)
	}
	var cur RoomConfig
	if err := json.NewDecoder(rec.Body).Decode(&cur); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cur.CooldownSeconds != 0.5 || cur.Speed != 5 {
		t.Fatalf("default room config = %+v", cur)
	}

	rec = httptest.NewRecorder()
	body := strings.NewReader(`{"speed":2.5,"simulateDropProb":0.25}`)
	m.HandleAdminConfig(rec, httptest.NewRequest(http.MethodPost, "/admin/config?room=r1", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("POST status = %d body=%s", rec.Code, rec.Body.String())
	}
	room, ok := m.Room("r1")
	if !ok {
		t.Fatalf("room r1 not created")
	}
	got := room.Config()
	if got.Speed != 2.5 || got.SimulateDropProb != 0.25 || got.CooldownSeconds != 0.5 {
		t.Fatalf("config after patch = %+v", got)
	}
}

func TestAdminConfigRejectsInvalid(t *testing.T) {
	m := newTestManager(t)
	for _, body := range []string{`{"simulateDropProb":1.5}`, `{"speed":-1}`, `not json`} {
		rec := httptest.NewRecorder()
		m.HandleAdminConfig(rec, httptest.NewRequest(http.MethodPost, "/admin/config", strings.NewReader(body)))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", body, rec.Code)
		}
	}
	rec := httptest.NewRecorder()
	m.HandleAdminConfig(rec, httptest.NewRequest(http.MethodDelete, "/admin/config", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("DELETE status = %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := newTestManager(t)
	rec := httptest.NewRecorder()
	m.HandleMetrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	var payload struct {
		Room    string         `json:"room"`
		Tick    uint64         `json:"tick"`
		Metrics map[string]any `json:"metrics"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Room != testConfig().DefaultRoom {
		t.Fatalf("room = %q, want default room", payload.Room)
	}
	if _, ok := payload.Metrics["authority_rejected"]; !ok {
		t.Fatalf("metrics missing authority_rejected: %v", payload.Metrics)
	}
}

func TestSchemaEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleSchema(rec, httptest.NewRequest(http.MethodGet, "/schema", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "chatRelay") {
		t.Fatalf("schema missing chatRelay definition")
	}
}

func TestManagerReusesRooms(t *testing.T) {
	m := newTestManager(t)
	a := m.GetOrCreateRoom("x")
	b := m.GetOrCreateRoom("x")
	if a != b {
		t.Fatalf("expected same room instance")
	}
	m.GetOrCreateRoom("")
	ids := m.RoomIDs()
	if len(ids) != 2 || ids[0] != testConfig().DefaultRoom || ids[1] != "x" {
		t.Fatalf("room ids = %v", ids)
	}
}
