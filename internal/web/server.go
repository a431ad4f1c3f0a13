// Package web provides the HTTP status surface for the agent-panel daemon.
package web

import (
	"context"
	"image/png"
	"net"
	"net/http"

	"github.com/sweeney/agent-panel/internal/render"
	"github.com/sweeney/agent-panel/internal/status"
)

// ReportSource supplies the current status report.
type ReportSource interface {
	Report() status.Report
}

// FrameSource supplies a copy of the last presented frame, or nil before
// the first present.
type FrameSource interface {
	LatestFrame() *render.Frame
}

// Server serves the status page, the status JSON, the current frame and
// optionally the websocket chat gateway.
type Server struct {
	httpServer *http.Server
	reports    ReportSource
	frames     FrameSource
}

// New creates a Server. frames and ws may be nil.
func New(addr string, reports ReportSource, frames FrameSource, ws http.Handler) *Server {
	s := &Server{reports: reports, frames: frames}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/frame.png", s.handleFrame)
	if ws != nil {
		mux.Handle("/ws", ws)
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Handler returns the request router. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	rep := s.reports.Report()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, rep, s.frames != nil); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	rep := s.reports.Report()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(rep))
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	if s.frames == nil {
		http.NotFound(w, r)
		return
	}
	f := s.frames.LatestFrame()
	if f == nil {
		http.Error(w, "no frame presented yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	png.Encode(w, f.RGBA())
}
