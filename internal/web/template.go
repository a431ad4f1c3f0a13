package web

import (
	"html/template"
	"io"

	"github.com/sweeney/agent-panel/internal/render"
	"github.com/sweeney/agent-panel/internal/status"
)

// The page reuses the panel's own formatters so both surfaces read the same.
var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": render.FormatUptime,
	"memory": render.FormatMemory,
	"onoff": func(ok bool) string {
		if ok {
			return "up"
		}
		return "down"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Agent Panel</title>
<style>
body { font-family: monospace; background: #111; color: #ddd; max-width: 700px; margin: 1.5em auto; padding: 0 1em; }
h1 { font-size: 1.3em; border-bottom: 2px solid #444; padding-bottom: .3em; }
section { display: grid; grid-template-columns: 10em 1fr; gap: .25em 1em; margin: 1em 0; }
section h2 { grid-column: 1 / 3; font-size: 1em; color: #888; margin: .5em 0 0; }
.up, .band-nominal { color: #3c3; }
.down, .band-critical { color: #e33; }
.band-caution { color: #ec3; }
img.frame { image-rendering: pixelated; width: 640px; max-width: 100%; border: 4px solid #000; }
</style>
</head>
<body>
<h1>Agent Panel: {{.Snapshot.StateLabel}}</h1>
{{if .HasFrame}}<img id="frame" class="frame" src="/frame.png" alt="panel">{{end}}

<section>
<h2>display</h2>
<span>mode</span><span id="mode">{{.Mode}}</span>
<span>backlight</span><span id="backlight">{{.Backlight}}%</span>
<span>snapshot</span><span id="version">{{.Version}}</span>
</section>

<section>
<h2>links</h2>
<span>network</span><span class="{{onoff .Snapshot.LinkConnected}}">{{onoff .Snapshot.LinkConnected}} {{.Snapshot.IPAddress}} ({{.Signal}})</span>
<span>bot</span><span class="{{onoff .Snapshot.BotConnected}}">{{.Snapshot.BotState.Label}}</span>
<span>mqtt</span><span class="{{onoff .MQTTConnected}}">{{onoff .MQTTConnected}}{{if .Broker}} {{.Broker}}{{end}}</span>
</section>

<section>
<h2>system</h2>
<span>memory</span><span class="band-{{.Band}}">{{memory .Snapshot.FreeMemoryBytes .Snapshot.TotalMemoryBytes}} ({{.Snapshot.MemoryUtilization}}% used)</span>
<span>uptime</span><span>{{uptime .Snapshot.UptimeSeconds}}</span>
<span>started</span><span>{{.StartTime.UTC.Format "2006-01-02 15:04:05Z"}}</span>
</section>

<section>
<h2>buttons (short / long)</h2>
<span>BOOT</span><span>{{.Counts.BootShort}} / {{.Counts.BootLong}}</span>
<span>USER</span><span>{{.Counts.UserShort}} / {{.Counts.UserLong}}</span>
</section>

<p><a href="/index.json">json</a>{{if .HasFrame}} &middot; <a href="/frame.png">frame</a>{{end}}</p>
{{if .HasFrame}}
<script>
setInterval(function() {
  fetch("/index.json").then(function(r) { return r.json(); }).then(function(j) {
    var s = j.status;
    document.getElementById("mode").textContent = s.mode;
    document.getElementById("backlight").textContent = s.backlight_percent + "%";
    document.getElementById("version").textContent = s.version;
    document.getElementById("frame").src = "/frame.png?v=" + s.version + "&m=" + s.mode + "&b=" + s.backlight_percent;
  }).catch(function() {});
}, 2000);
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, rep status.Report, hasFrame bool) error {
	return indexTmpl.Execute(w, struct {
		status.Report
		Signal   string
		Band     string
		HasFrame bool
	}{
		Report:   rep,
		Signal:   render.FormatSignal(rep.Snapshot),
		Band:     render.MemoryBand(rep.Snapshot.MemoryUtilization()).String(),
		HasFrame: hasFrame,
	})
}
