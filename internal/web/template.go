package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/railsense/coach-comfort/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"onOff": func(b bool) string {
		if b {
			return "ON"
		}
		return "OFF"
	},
	"modeOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="2">
<title>Coach Comfort</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.wait { color: orange; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
.bar { background: #eee; width: 100%; height: 12px; }
.bar div { background: #e6b800; height: 12px; }
</style>
</head>
<body>
<h1>Coach Comfort</h1>

<h2>State</h2>
<table>
<tr><th>Mode</th><td class="{{if eq (modeOrUnknown (printf "%s" .Mode)) "ACTIVE"}}on{{else if eq (modeOrUnknown (printf "%s" .Mode)) "WAIT"}}wait{{else}}off{{end}}">{{modeOrUnknown (printf "%s" .Mode)}}</td></tr>
<tr><th>Lights</th><td class="{{if .Outputs.LightsOn}}on{{else}}off{{end}}">{{onOff .Outputs.LightsOn}}</td></tr>
<tr><th>Fan</th><td class="{{if .Outputs.FanOn}}on{{else}}off{{end}}">{{onOff .Outputs.FanOn}}</td></tr>
<tr><th>Brightness</th><td>{{.Outputs.Brightness}} / 255<div class="bar"><div style="width: {{.Outputs.Brightness}}px"></div></div></td></tr>
<tr><th>Ambient light</th><td>{{.Ambient}}</td></tr>
{{if eq (printf "%s" .Mode) "WAIT"}}<tr><th>Empty ticks</th><td>{{.WaitTimer}} / {{.Config.TimeoutTicks}}</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}} / {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Transition Counts</h2>
<table>
<tr><th>Activated</th><td>{{.Counts.Activated}}</td></tr>
<tr><th>Hold-off</th><td>{{.Counts.Holdoff}}</td></tr>
<tr><th>Resumed</th><td>{{.Counts.Resumed}}</td></tr>
<tr><th>Deactivated</th><td>{{.Counts.Deactivated}}</td></tr>
</table>

<h2>Daemon</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02 15:04:05 UTC"}}</td></tr>
<tr><th>Poll interval</th><td>{{.Config.PollMs}} ms</td></tr>
<tr><th>Shutdown delay</th><td>{{.Config.TimeoutTicks}} ticks</td></tr>
<tr><th>Heartbeat</th><td>{{.Config.HeartbeatMs}} ms</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Template errors are development-time mistakes; a broken page beats a
	// crashed daemon.
	_ = indexTmpl.Execute(w, snap)
}
