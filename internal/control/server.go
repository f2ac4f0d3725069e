package control

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"tickerpane/internal/models"
	"tickerpane/internal/render"
	"tickerpane/internal/scheduler"
)

// HistorySource reads back archived quotes, when an archive is
// configured.
type HistorySource interface {
	GetRecent(ctx context.Context, symbol string, limit int) ([]models.Quote, error)
}

// Server is a loopback-only HTTP endpoint for the running instance:
// it lets a second launch signal "focus", exposes a manual refresh
// trigger, and serves the current render rows for debugging.
type Server struct {
	httpServer *http.Server
	sched      *scheduler.Scheduler
	rows       func() []render.Row
	onFocus    func()
	archive    HistorySource
}

// NewServer wires the control surface. rows, onFocus and archive may
// be nil.
func NewServer(port int, sched *scheduler.Scheduler, rows func() []render.Row, onFocus func(), archive HistorySource) *Server {
	s := &Server{
		sched:   sched,
		rows:    rows,
		onFocus: onFocus,
		archive: archive,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /v1/refresh", s.handleRefresh)
	mux.HandleFunc("POST /v1/focus", s.handleFocus)
	mux.HandleFunc("GET /v1/rows", s.handleRows)
	mux.HandleFunc("GET /v1/history/{symbol}", s.handleHistory)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	fmt.Printf("[CONTROL] Listening on http://%s\n", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"status":    "ok",
		"scheduler": s.sched.State(),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.sched.RefreshNow()
	writeJSON(w, map[string]string{"status": "refresh requested"})
}

func (s *Server) handleFocus(w http.ResponseWriter, r *http.Request) {
	if s.onFocus != nil {
		s.onFocus()
	}
	writeJSON(w, map[string]string{"status": "focused"})
}

func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	if s.rows == nil {
		http.Error(w, "rows unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.rows())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		http.Error(w, "archive not configured", http.StatusServiceUnavailable)
		return
	}

	symbol := r.PathValue("symbol")
	quotes, err := s.archive.GetRecent(r.Context(), symbol, 100)
	if err != nil {
		fmt.Printf("[CONTROL] History lookup %s: %v\n", symbol, err)
		http.Error(w, "archive lookup failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, quotes)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fmt.Printf("[CONTROL] Encode response: %v\n", err)
	}
}

// SignalFocus asks an already-running instance to raise its popup.
// Used by a second launch before it exits.
func SignalFocus(port int) error {
	client := &http.Client{Timeout: 2 * time.Second}
	url := fmt.Sprintf("http://127.0.0.1:%d/v1/focus", port)
	resp, err := client.Post(url, "application/json", nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("focus signal returned status %d", resp.StatusCode)
	}
	return nil
}
