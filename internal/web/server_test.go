package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/railsense/coach-comfort/internal/logic"
	"github.com/railsense/coach-comfort/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		PollMs:       500,
		TimeoutTicks: 5,
		HeartbeatMs:  900000,
		Broker:       "tcp://10.0.30.1:1883",
		HTTPAddr:     ":8080",
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(logic.ModeActive, logic.OutputsFor(logic.ModeActive, 20), 20, 0, logic.EventCounts{Activated: 4, Deactivated: 3})
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if sj.Status.Mode != "ACTIVE" {
		t.Errorf("mode: got %q, want ACTIVE", sj.Status.Mode)
	}
	if !sj.Status.Lights || !sj.Status.Fan {
		t.Error("expected lights and fan on")
	}
	if sj.Status.Brightness != 235 {
		t.Errorf("brightness: got %d, want 235", sj.Status.Brightness)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://10.0.30.1:1883" {
		t.Errorf("MQTT.Broker: got %q", sj.Status.MQTT.Broker)
	}
	if sj.Status.Counts.Activated != 4 {
		t.Errorf("Counts.Activated: got %d, want 4", sj.Status.Counts.Activated)
	}
	if sj.Status.Config.PollMs != 500 {
		t.Errorf("Config.PollMs: got %d, want 500", sj.Status.Config.PollMs)
	}
}

func TestIndexPage(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(logic.ModeWait, logic.OutputsFor(logic.ModeWait, 200), 200, 2, logic.EventCounts{})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	html := string(body)

	if !strings.Contains(html, "Coach Comfort") {
		t.Error("expected page title")
	}
	if !strings.Contains(html, "WAIT") {
		t.Error("expected WAIT mode on page")
	}
	if !strings.Contains(html, "55 / 255") {
		t.Error("expected brightness 55 on page")
	}
	if !strings.Contains(html, "2 / 5") {
		t.Error("expected wait timer progress on page")
	}
}

func TestIndexPageIdle(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	html := string(body)

	if !strings.Contains(html, "IDLE") {
		t.Error("expected IDLE mode on page")
	}
	if strings.Contains(html, "Empty ticks") {
		t.Error("wait timer row should be hidden outside WAIT")
	}
}

func TestNotFound(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nope")
	if err != nil {
		t.Fatalf("GET /nope: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}
