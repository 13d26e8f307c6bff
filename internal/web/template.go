package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/pawsense/feeder-monitor/internal/status"
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
	"statusOrUnknown": func(s string) string {
		if s == "" {
			return "unknown"
		}
		return s
	},
	"grams": func(g int) string {
		return fmt.Sprintf("%dg", g)
	},
	"mealTime": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.UTC().Format("15:04:05")
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Feeder Monitor</title>
<style>
body { font-family: monospace; max-width: 700px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
h2 { font-size: 1.1em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.eating { color: green; font-weight: bold; }
.stabilizing { color: orange; }
.just_finished { color: #06c; }
.idle { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.offline { color: red; }
.error { color: red; }
</style>
</head>
<body>
<h1>Feeder Monitor</h1>

{{if not .Devices}}<p>No feeders polled yet.</p>{{end}}
{{range .Devices}}
<h2>{{.Name}} ({{.ID}}){{if not .Online}} <span class="offline">offline</span>{{end}}</h2>
<table>
<tr><th>Status</th><td class="{{statusOrUnknown .Status}}">{{statusOrUnknown .Status}}</td></tr>
<tr><th>Bowl Weight</th><td>{{grams .BowlWeight}}</td></tr>
<tr><th>Stable Weight</th><td>{{grams .StableWeight}}</td></tr>
<tr><th>Daily Intake</th><td>{{grams .DailyIntake}}</td></tr>
<tr><th>Meals Today</th><td>{{.MealCount}}</td></tr>
<tr><th>Avg Meal Size</th><td>{{printf "%.1f" .AvgMealSize}}g</td></tr>
<tr><th>Last Meal</th><td>{{mealTime .LastMealTime}}{{if .LastMealAmount}} ({{grams .LastMealAmount}}){{end}}</td></tr>
<tr><th>Reported Intake</th><td>{{grams .ReportedIntake}}</td></tr>
<tr><th>Desiccant</th><td>{{.DesiccantDays}}d remaining</td></tr>
{{if .FoodRemaining}}<tr><th>Food Remaining</th><td>{{.FoodRemaining}}</td></tr>{{end}}
{{if .LastLog}}<tr><th>Last Activity</th><td>{{.LastLog}}</td></tr>{{end}}
{{if .Firmware}}<tr><th>Firmware</th><td>{{.Firmware}}</td></tr>{{end}}
{{if eq .Status "eating"}}<tr><th>Eating Now</th><td>{{grams .CurrentAmount}} over {{.CurrentDuration}}s</td></tr>{{end}}
{{if .Error}}<tr><th>Device Error</th><td class="error">{{.Error}}</td></tr>{{end}}
</table>
<p><a href="/devices/{{.ID}}/history.json">event history</a></p>
{{end}}

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Cloud API</th><td>{{.Config.CloudBaseURL}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Polls</th><td>{{.PollCount}}</td></tr>
<tr><th>Poll Interval</th><td>{{.Config.PollSeconds}}s</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
