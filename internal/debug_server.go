package internal

import (
	"chat-relay/projection"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
)

//go:embed inspect.html
var templatesFS embed.FS

type StatsProvider func() map[string]any

type pageData struct {
	Stats   map[string]any
	Entries []projection.Entry
}

// StartDebugServer exposes the live transcript and relay stats on a side
// port. `/inspect` renders the HTML dashboard, `/stats` serves raw JSON.
// Intended for DEBUG log level only, never for production traffic.
func StartDebugServer(timeline *projection.Timeline, port int, statsProvider StatsProvider) {
	mux := http.NewServeMux()
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	mux.HandleFunc("/inspect", func(w http.ResponseWriter, r *http.Request) {
		data := pageData{
			Stats:   make(map[string]any),
			Entries: timeline.Recent(),
		}
		if statsProvider != nil {
			data.Stats = statsProvider()
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		stats := make(map[string]any)
		if statsProvider != nil {
			stats = statsProvider()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(stats)
	})

	go func() {
		// All interfaces, so the dashboard is reachable from the network.
		_ = http.ListenAndServe(fmt.Sprintf("0.0.0.0:%d", port), mux)
	}()
}
