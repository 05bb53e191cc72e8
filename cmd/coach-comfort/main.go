// Command coach-comfort automates lighting and ventilation in a railway
// coach: GPIO presence sensing in, relay and MQTT dimmer commands out, with a
// delayed shutdown once the coach is empty.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/railsense/coach-comfort/internal/gpio"
	"github.com/railsense/coach-comfort/internal/logic"
	"github.com/railsense/coach-comfort/internal/mqtt"
	"github.com/railsense/coach-comfort/internal/status"
	"github.com/railsense/coach-comfort/internal/web"
)

func main() {
	poll := flag.Duration("poll", 500*time.Millisecond, "Control loop tick interval")
	timeoutTicks := flag.Int("timeout-ticks", logic.DefaultTimeout, "Empty ticks in WAIT before shutdown")
	broker := flag.String("broker", "tcp://10.0.30.1:1883", "MQTT broker address")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	pinPresence := flag.Int("pin-presence", gpio.DefaultPinPresence, "BCM pin number for the presence sensor")
	pinReset := flag.Int("pin-reset", gpio.DefaultPinReset, "BCM pin number for the reset button")
	pinLights := flag.Int("pin-lights", gpio.DefaultPinLights, "BCM pin number for the lighting relay")
	pinFan := flag.Int("pin-fan", gpio.DefaultPinFan, "BCM pin number for the ventilation relay")
	printState := flag.Bool("print-state", false, "Print current input state and exit")
	httpAddr := flag.String("http", ":8080", "HTTP status address (empty to disable)")
	logLevel := flag.String("log-level", "info", "Log level (trace, debug, info, warn)")

	flag.Parse()

	logInit(*logLevel)

	if err := run(*poll, *timeoutTicks, *broker, *heartbeat, *pinPresence, *pinReset, *pinLights, *pinFan, *printState, *httpAddr); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}

func run(poll time.Duration, timeoutTicks int, broker string, heartbeat time.Duration, pinPresence, pinReset, pinLights, pinFan int, printState bool, httpAddr string) error {
	// Initialize GPIO inputs
	reader, err := gpio.NewRealReader(pinPresence, pinReset)
	if err != nil {
		return fmt.Errorf("init gpio inputs: %w", err)
	}
	defer reader.Close()

	// Print state mode
	if printState {
		present, reset, err := reader.Read()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Printf("presence: %s, reset: %s\n", assertedString(present), assertedString(reset))
		return nil
	}

	// Initialize GPIO outputs (relays start off)
	writer, err := gpio.NewRealWriter(pinLights, pinFan)
	if err != nil {
		return fmt.Errorf("init gpio outputs: %w", err)
	}
	defer writer.Close()

	// Initialize MQTT
	client, err := mqtt.NewRealClient(broker)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer client.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:       poll.Milliseconds(),
		TimeoutTicks: timeoutTicks,
		HeartbeatMs:  heartbeat.Milliseconds(),
		Broker:       broker,
		HTTPAddr:     httpAddr,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := client.PublishSystem(startupEvent); err != nil {
		log.Error().Err(err).Msg("failed to publish startup event")
	} else {
		log.Info().Msg("published startup event")
	}

	// Start HTTP status server
	if httpAddr != "" {
		srv := web.New(httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info().Str("addr", httpAddr).Msg("http status server listening")
	}

	log.Info().
		Dur("poll", poll).
		Int("timeout_ticks", timeoutTicks).
		Str("broker", broker).
		Dur("heartbeat", heartbeat).
		Msg("started")

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(reader, writer, client, client, client, tracker, timeoutTicks, heartbeat, time.Now, ticker.C, sigCh)
}

func runLoop(reader gpio.Reader, writer gpio.Writer, publisher mqtt.Publisher, inputs mqtt.InputSource, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, timeoutTicks int, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	controller := logic.New(timeoutTicks, startTime)

	var lastCmd gpio.Command
	haveCmd := false
	lastBrightness := -1

	for {
		select {
		case s := <-sig:
			log.Info().Str("signal", s.String()).Msg("shutting down")
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}

			// Fail-safe: never leave the coach with actuators stuck on.
			if err := writer.Set(false, false); err != nil {
				log.Error().Err(err).Msg("failed to switch relays off")
			}

			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Error().Err(err).Msg("failed to publish shutdown event")
			} else {
				log.Info().Msg("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			present, resetButton, err := reader.Read()
			if err != nil {
				log.Warn().Err(err).Msg("gpio read error")
				continue
			}

			resetRemote := false
			ambient := 0
			if inputs != nil {
				resetRemote = inputs.ConsumeReset()
				ambient = inputs.AmbientLevel()
			}
			reset := resetButton || resetRemote

			out, event := controller.Process(logic.Input{
				Reset:            reset,
				PassengerPresent: present,
				AmbientLight:     ambient,
				Time:             t,
			})

			if reset {
				reason := "MQTT"
				if resetButton {
					reason = "BUTTON"
				}
				log.Info().Str("reason", reason).Msg("reset asserted")
				if err := publisher.PublishSystem(mqtt.SystemEvent{Timestamp: t, Event: "RESET", Reason: reason}); err != nil {
					log.Error().Err(err).Msg("reset publish error")
				}
			}

			// Drive the relays on change only
			cmd := gpio.Command{Lights: out.LightsOn, Fan: out.FanOn}
			if !haveCmd || cmd != lastCmd {
				if err := writer.Set(cmd.Lights, cmd.Fan); err != nil {
					log.Error().Err(err).Msg("relay write error")
				} else {
					lastCmd = cmd
					haveCmd = true
					log.Info().Bool("lights", cmd.Lights).Bool("fan", cmd.Fan).Msg("relays updated")
				}
			}

			if event != nil {
				log.Info().
					Str("event", string(event.Type)).
					Str("mode", string(event.Mode)).
					Int("brightness", out.Brightness).
					Msg("transition")
				if err := publisher.Publish(*event); err != nil {
					log.Error().Err(err).Msg("publish error")
					// Don't crash on publish failure
				}
			}

			// Commanded intensity for the dimmer, published on change
			if out.Brightness != lastBrightness {
				dim := mqtt.BrightnessCommand{Timestamp: t, Level: out.Brightness, Status: out.Status}
				if err := publisher.PublishBrightness(dim); err != nil {
					log.Error().Err(err).Msg("brightness publish error")
				} else {
					lastBrightness = out.Brightness
				}
			}

			// Check for heartbeat
			if hbData := controller.CheckHeartbeat(t, heartbeat); hbData != nil {
				log.Info().
					Dur("uptime", hbData.Uptime).
					Int("activated", hbData.Counts.Activated).
					Int("deactivated", hbData.Counts.Deactivated).
					Msg("heartbeat")

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					if mqttStatus != nil {
						tracker.SetMQTTConnected(mqttStatus.IsConnected())
					}
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					tracker.Update(controller.Mode(), out, logic.ClampAmbient(ambient), controller.Timer(), controller.EventCountsSnapshot())
					snap := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Error().Err(err).Msg("heartbeat publish error")
				}
			}

			// Update status tracker for HTTP consumers
			if tracker != nil {
				tracker.Update(controller.Mode(), out, logic.ClampAmbient(ambient), controller.Timer(), controller.EventCountsSnapshot())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}
		}
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

func assertedString(on bool) string {
	if on {
		return "ASSERTED"
	}
	return "CLEAR"
}
