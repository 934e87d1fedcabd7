// Package dashboard serves the burnwatch HTTP API, a websocket feed of live
// snapshots, and Prometheus metrics.
package dashboard

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/blackwell-systems/burnwatch/internal/activity"
	"github.com/blackwell-systems/burnwatch/internal/analyzer"
	"github.com/blackwell-systems/burnwatch/internal/monitor"
)

// DefaultHistoryHours is used when /api/history has no hours parameter.
const DefaultHistoryHours = 24

//go:embed static/index.html
var static embed.FS

// Source is the read side of the monitor plus the break command.
type Source interface {
	CurrentOrPending() activity.Snapshot
	Factors() (analyzer.Factors, bool, error)
	History(hours float64) ([]activity.PersistedRecord, error)
	Summary(date string) (activity.DailySummary, bool, error)
	RecordBreakTaken()
	LastBreak() time.Time
	MinutesSinceBreak() float64
	Thresholds() analyzer.Thresholds
	Stats() monitor.Stats
}

// Server is the dashboard HTTP server.
type Server struct {
	src      Source
	hub      *Hub
	log      logrus.FieldLogger
	now      func() time.Time
	server   *http.Server
	listener net.Listener
	upgrader websocket.Upgrader
}

// Options configures a Server.
type Options struct {
	// Hub receives snapshots from the monitor. When nil, /ws is not served.
	Hub    *Hub
	Logger logrus.FieldLogger
	Clock  func() time.Time
}

// New creates a dashboard server for src listening on addr.
func New(addr string, src Source, opts Options) *Server {
	s := &Server{
		src: src,
		hub: opts.Hub,
		log: opts.Logger,
		now: opts.Clock,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     sameHost,
		},
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	s.log = s.log.WithField("component", "dashboard")
	if s.now == nil {
		s.now = time.Now
	}

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the dashboard routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/current_metrics", s.handleCurrent)
	mux.HandleFunc("GET /api/factors", s.handleFactors)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("POST /api/break", s.handleBreak)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(newRegistry(s.src, s.hub), promhttp.HandlerOpts{}))
	if s.hub != nil {
		mux.HandleFunc("GET /ws", s.handleWS)
	}
	return mux
}

// Start binds the listen address and serves in the background. Bind errors
// are returned.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}
	s.listener = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Errorf("dashboard server error: %v", err)
		}
	}()

	s.log.Infof("dashboard listening on http://%s", ln.Addr())
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.server.Addr
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown dashboard: %w", err)
	}
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

type breakResponse struct {
	LastBreak time.Time `json:"last_break"`
}

type healthResponse struct {
	Status            string    `json:"status"`
	Time              time.Time `json:"time"`
	RiskLevel         string    `json:"risk_level"`
	Ticks             uint64    `json:"ticks"`
	TickFailures      uint64    `json:"tick_failures"`
	PersistFailures   uint64    `json:"persist_failures"`
	MinutesSinceBreak float64   `json:"minutes_since_break"`
}

type factorsResponse struct {
	Factors    *analyzer.Factors   `json:"factors"`
	Thresholds analyzer.Thresholds `json:"thresholds"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data, err := static.ReadFile("static/index.html")
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "dashboard page missing")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(data)
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.src.CurrentOrPending())
}

func (s *Server) handleFactors(w http.ResponseWriter, r *http.Request) {
	resp := factorsResponse{Thresholds: s.src.Thresholds()}
	f, ok, err := s.src.Factors()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ok {
		resp.Factors = &f
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	hours := float64(DefaultHistoryHours)
	if v := r.URL.Query().Get("hours"); v != "" {
		h, err := strconv.ParseFloat(v, 64)
		if err != nil || h <= 0 {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid hours %q", v))
			return
		}
		hours = h
	}

	records, err := s.src.History(hours)
	if err != nil {
		s.log.Errorf("history lookup failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if records == nil {
		records = []activity.PersistedRecord{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = s.now().Format(activity.DateLayout)
	}
	if _, err := time.Parse(activity.DateLayout, date); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid date %q (expected YYYY-MM-DD)", date))
		return
	}

	summary, ok, err := s.src.Summary(date)
	if err != nil {
		s.log.Errorf("summary lookup failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load summary")
		return
	}
	if !ok {
		s.writeError(w, http.StatusNotFound, "no data")
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleBreak(w http.ResponseWriter, r *http.Request) {
	s.src.RecordBreakTaken()
	s.writeJSON(w, http.StatusOK, breakResponse{LastBreak: s.src.LastBreak()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.src.Stats()
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:            "ok",
		Time:              s.now(),
		RiskLevel:         string(s.src.CurrentOrPending().RiskLevel),
		Ticks:             stats.Ticks,
		TickFailures:      stats.TickFailures,
		PersistFailures:   stats.PersistFailures,
		MinutesSinceBreak: s.src.MinutesSinceBreak(),
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debugf("websocket upgrade failed: %v", err)
		return
	}
	s.hub.serve(conn)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debugf("failed to write response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

// sameHost accepts browser upgrades only from pages served by this host.
// Non-browser clients send no Origin and are accepted.
func sameHost(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}
