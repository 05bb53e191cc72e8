package main

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/railsense/coach-comfort/internal/gpio"
	"github.com/railsense/coach-comfort/internal/logic"
	"github.com/railsense/coach-comfort/internal/mqtt"
	"github.com/railsense/coach-comfort/internal/status"
)

// TestEnvVarNames verifies the env var constants match what pi-helper writes
// to /run/pi-helper.env. If pi-helper changes its var names, this test fails
// and we update the constants — not the other way around.
func TestEnvVarNames(t *testing.T) {
	want := map[string]string{
		"NETWORK_TYPE":        envNetworkType,
		"NETWORK_IP":          envNetworkIP,
		"NETWORK_STATUS":      envNetworkStatus,
		"NETWORK_GATEWAY":     envNetworkGateway,
		"NETWORK_WIFI_STATUS": envNetworkWifiStatus,
		"NETWORK_WIFI_SSID":   envNetworkWifiSSID,
	}
	for canonical, got := range want {
		if got != canonical {
			t.Errorf("env var constant: got %q, want %q", got, canonical)
		}
	}
}

func TestReadNetworkInfoAllSet(t *testing.T) {
	t.Setenv(envNetworkType, "wifi")
	t.Setenv(envNetworkIP, "10.0.30.7")
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkGateway, "10.0.30.1")
	t.Setenv(envNetworkWifiStatus, "connected")
	t.Setenv(envNetworkWifiSSID, "depot-net")

	info := readNetworkInfo()
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo")
	}

	if info.Type != "wifi" {
		t.Errorf("Type: got %q, want wifi", info.Type)
	}
	if info.IP != "10.0.30.7" {
		t.Errorf("IP: got %q, want 10.0.30.7", info.IP)
	}
	if info.Status != "connected" {
		t.Errorf("Status: got %q, want connected", info.Status)
	}
	if info.Gateway != "10.0.30.1" {
		t.Errorf("Gateway: got %q, want 10.0.30.1", info.Gateway)
	}
	if info.SSID != "depot-net" {
		t.Errorf("SSID: got %q, want depot-net", info.SSID)
	}
}

func TestReadNetworkInfoNoneSet(t *testing.T) {
	t.Setenv(envNetworkStatus, "")
	if info := readNetworkInfo(); info != nil {
		t.Errorf("expected nil when NETWORK_STATUS is unset, got %+v", info)
	}
}

func TestAssertedString(t *testing.T) {
	if got := assertedString(true); got != "ASSERTED" {
		t.Errorf("got %q, want ASSERTED", got)
	}
	if got := assertedString(false); got != "CLEAR" {
		t.Errorf("got %q, want CLEAR", got)
	}
}

// scriptedRun drives runLoop with fakes: one tick per sample, then SIGTERM.
func scriptedRun(t *testing.T, samples []gpio.Sample, client *mqtt.FakeClient) (*gpio.FakeWriter, *status.Tracker) {
	t.Helper()

	reader := gpio.NewFakeReader(samples)
	writer := gpio.NewFakeWriter()
	tracker := status.NewTracker(time.Now(), status.Config{TimeoutTicks: logic.DefaultTimeout})

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tickCount := 0
	now := func() time.Time {
		tickCount++
		return base.Add(time.Duration(tickCount) * 500 * time.Millisecond)
	}

	tickCh := make(chan time.Time)
	sigCh := make(chan os.Signal, 1)
	done := make(chan error, 1)

	go func() {
		done <- runLoop(reader, writer, client, client, client, tracker, logic.DefaultTimeout, 0, now, tickCh, sigCh)
	}()

	for range samples {
		tickCh <- time.Now()
	}
	sigCh <- syscall.SIGTERM

	if err := <-done; err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
	return writer, tracker
}

func TestRunLoopOccupancyCycle(t *testing.T) {
	empty := gpio.Sample{}
	present := gpio.Sample{Present: true}

	// Empty coach, a passenger boards for two ticks, then the coach stays
	// empty through the full shutdown delay.
	samples := []gpio.Sample{
		empty,
		present, present,
		empty, empty, empty, empty, empty, empty, // hold-off entry + 5 wait ticks
	}

	client := mqtt.NewFakeClient()
	client.SetAmbient(200)
	writer, tracker := scriptedRun(t, samples, client)

	// Transition events: ACTIVATED, HOLDOFF, DEACTIVATED
	if len(client.Events) != 3 {
		t.Fatalf("expected 3 events, got %d: %+v", len(client.Events), client.Events)
	}
	if client.Events[0].Type != logic.EventActivated {
		t.Errorf("event 0: expected ACTIVATED, got %s", client.Events[0].Type)
	}
	if client.Events[1].Type != logic.EventHoldoff {
		t.Errorf("event 1: expected HOLDOFF, got %s", client.Events[1].Type)
	}
	if client.Events[2].Type != logic.EventDeactivated {
		t.Errorf("event 2: expected DEACTIVATED, got %s", client.Events[2].Type)
	}
	if client.Events[0].Outputs.Brightness != 55 {
		t.Errorf("activation brightness: got %d, want 55", client.Events[0].Outputs.Brightness)
	}

	// Relay commands: initial off, on at activation, off at timeout, off at shutdown
	wantCmds := []gpio.Command{
		{Lights: false, Fan: false},
		{Lights: true, Fan: true},
		{Lights: false, Fan: false},
		{Lights: false, Fan: false},
	}
	if len(writer.Commands) != len(wantCmds) {
		t.Fatalf("expected %d relay commands, got %d: %+v", len(wantCmds), len(writer.Commands), writer.Commands)
	}
	for i, want := range wantCmds {
		if writer.Commands[i] != want {
			t.Errorf("command %d: got %+v, want %+v", i, writer.Commands[i], want)
		}
	}

	// Dimmer commands on change: 0 (initial idle), 55 (active), 0 (idle again)
	wantLevels := []int{0, 55, 0}
	if len(client.BrightnessCommands) != len(wantLevels) {
		t.Fatalf("expected %d brightness commands, got %d", len(wantLevels), len(client.BrightnessCommands))
	}
	for i, want := range wantLevels {
		if client.BrightnessCommands[i].Level != want {
			t.Errorf("brightness %d: got %d, want %d", i, client.BrightnessCommands[i].Level, want)
		}
	}

	// Shutdown event published with reason
	if len(client.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(client.SystemEvents))
	}
	if client.SystemEvents[0].Event != "SHUTDOWN" || client.SystemEvents[0].Reason != "SIGTERM" {
		t.Errorf("system event: got %+v", client.SystemEvents[0])
	}

	// Tracker reflects final state
	snap := tracker.Snapshot()
	if snap.Mode != logic.ModeIdle {
		t.Errorf("tracker mode: got %s, want IDLE", snap.Mode)
	}
	if snap.Counts.Activated != 1 || snap.Counts.Deactivated != 1 {
		t.Errorf("tracker counts: got %+v", snap.Counts)
	}
}

func TestRunLoopResumeDuringHoldoff(t *testing.T) {
	empty := gpio.Sample{}
	present := gpio.Sample{Present: true}

	samples := []gpio.Sample{
		present,      // ACTIVATED
		empty, empty, // HOLDOFF, waiting
		present,      // RESUMED
	}

	client := mqtt.NewFakeClient()
	writer, _ := scriptedRun(t, samples, client)

	if len(client.Events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(client.Events))
	}
	if client.Events[2].Type != logic.EventResumed {
		t.Errorf("expected RESUMED, got %s", client.Events[2].Type)
	}

	// Relays never dropped: initial on, then only the shutdown off
	wantCmds := []gpio.Command{
		{Lights: true, Fan: true},
		{Lights: false, Fan: false},
	}
	if len(writer.Commands) != len(wantCmds) {
		t.Fatalf("expected %d relay commands, got %d: %+v", len(wantCmds), len(writer.Commands), writer.Commands)
	}
}

func TestRunLoopButtonReset(t *testing.T) {
	present := gpio.Sample{Present: true}

	samples := []gpio.Sample{
		present,                      // ACTIVATED
		{Present: true, Reset: true}, // reset while occupied
		present,                      // re-activates
	}

	client := mqtt.NewFakeClient()
	writer, _ := scriptedRun(t, samples, client)

	// RESET system event, then SHUTDOWN
	if len(client.SystemEvents) != 2 {
		t.Fatalf("expected 2 system events, got %d", len(client.SystemEvents))
	}
	if client.SystemEvents[0].Event != "RESET" || client.SystemEvents[0].Reason != "BUTTON" {
		t.Errorf("system event 0: got %+v", client.SystemEvents[0])
	}

	// Two ACTIVATED transitions (reset itself is not a transition event)
	activations := 0
	for _, e := range client.Events {
		if e.Type == logic.EventActivated {
			activations++
		}
	}
	if activations != 2 {
		t.Errorf("expected 2 activations, got %d", activations)
	}

	// Relays: on, off (reset tick), on, off (shutdown)
	if len(writer.Commands) != 4 {
		t.Fatalf("expected 4 relay commands, got %d: %+v", len(writer.Commands), writer.Commands)
	}
	if writer.Commands[1] != (gpio.Command{}) {
		t.Errorf("expected relays off on reset tick, got %+v", writer.Commands[1])
	}
}

func TestRunLoopRemoteReset(t *testing.T) {
	present := gpio.Sample{Present: true}

	client := mqtt.NewFakeClient()
	client.ResetPending = true

	scriptedRun(t, []gpio.Sample{present}, client)

	if len(client.SystemEvents) < 1 || client.SystemEvents[0].Event != "RESET" {
		t.Fatalf("expected RESET system event, got %+v", client.SystemEvents)
	}
	if client.SystemEvents[0].Reason != "MQTT" {
		t.Errorf("reason: got %q, want MQTT", client.SystemEvents[0].Reason)
	}
	// Presence is ignored on the reset tick
	if len(client.Events) != 0 {
		t.Errorf("expected no transition events on reset tick, got %+v", client.Events)
	}
}

func TestRunLoopGPIOErrorSkipsTick(t *testing.T) {
	reader := gpio.NewFakeReader([]gpio.Sample{{Present: true}})
	reader.ReadError = os.ErrClosed
	writer := gpio.NewFakeWriter()
	client := mqtt.NewFakeClient()

	tickCh := make(chan time.Time)
	sigCh := make(chan os.Signal, 1)
	done := make(chan error, 1)

	go func() {
		done <- runLoop(reader, writer, client, client, client, nil, logic.DefaultTimeout, 0, time.Now, tickCh, sigCh)
	}()

	tickCh <- time.Now()
	tickCh <- time.Now()
	sigCh <- syscall.SIGTERM
	<-done

	if len(client.Events) != 0 {
		t.Errorf("expected no events on failed reads, got %d", len(client.Events))
	}
	// Only the shutdown fail-safe command
	if len(writer.Commands) != 1 {
		t.Errorf("expected 1 relay command (shutdown), got %d", len(writer.Commands))
	}
}
