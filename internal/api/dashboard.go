package api

import (
	"encoding/json"
	"html/template"
)

var dashboardTemplate = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"pct": func(v float64) string { return formatPct(v) },
	"json": func(v interface{}) string {
		b, err := json.Marshal(v)
		if err != nil {
			return "{}"
		}
		return string(b)
	},
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Smart EA Dashboard</title>
<style>
body { font-family: Arial, sans-serif; background-color: #f0f4f8; color: #333; margin: 0; padding: 20px; }
.container { max-width: 1200px; margin: auto; background: white; padding: 20px; border-radius: 8px; box-shadow: 0 2px 10px rgba(0,0,0,0.1); }
h1 { color: #007bff; }
.section { margin-bottom: 20px; }
table { width: 100%; border-collapse: collapse; }
th, td { padding: 10px; border: 1px solid #ddd; text-align: left; }
th { background-color: #007bff; color: white; }
.status { font-weight: bold; color: #28a745; }
.inactive { color: #999; }
@media (max-width: 768px) { .container { padding: 10px; } }
</style>
</head>
<body>
<div class="container">
<h1>Smart EA Monitoring Dashboard</h1>

<div class="section">
<h2>Current Status</h2>
<p>Lot: <span class="status">{{printf "%.4f" .Risk.Lot}}</span>
 | Max positions: <span class="status">{{.Risk.MaxPositions}}</span>
 | Drawdown: <span class="status">{{pct .Risk.CurrentDrawdown}}</span> of {{pct .Risk.MaxDrawdown}}
 | Volatility: <span class="status">{{printf "%.2f" .Risk.Volatility}}</span></p>
</div>

<div class="section">
<h2>Strategies &amp; Win Rates</h2>
<table>
<tr><th>Strategy</th><th>Active</th><th>Win Rate</th><th>Confidence</th></tr>
{{range .Strategies}}<tr{{if not .Active}} class="inactive"{{end}}><td>{{.Name}}</td><td>{{.Active}}</td><td>{{pct .WinRate}}</td><td>{{printf "%.2f" .Confidence}}</td></tr>
{{end}}</table>
</div>

<div class="section">
<h2>Recent Logs</h2>
<table>
<tr><th>Time</th><th>Level</th><th>Message</th><th>Data</th></tr>
{{range .Logs}}<tr><td>{{.Timestamp.Format "2006-01-02 15:04:05"}}</td><td>{{.Level}}</td><td>{{.Message}}</td><td>{{json .Data}}</td></tr>
{{else}}<tr><td colspan="4">No events recorded</td></tr>
{{end}}</table>
</div>
</div>
</body>
</html>
`))
