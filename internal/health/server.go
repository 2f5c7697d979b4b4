// Package health — HTTP-проверка живости бота: /health и /extensions.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/EgorLis/cmdbot/internal/bot"
	"github.com/EgorLis/cmdbot/internal/extension"
	"github.com/rs/cors"
)

// Source — то, что сервер спрашивает у бота.
type Source interface {
	State() bot.State
	Report() extension.Report
	Commands() []string
}

type Server struct {
	src     Source
	log     *slog.Logger
	srv     *http.Server
	ln      net.Listener
	started time.Time
	now     func() time.Time
}

func New(addr string, src Source, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{src: src, log: log, now: time.Now}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /extensions", s.handleExtensions)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	})
	return c.Handler(mux)
}

// Start слушает адрес и обслуживает запросы в фоне.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.started = s.now()
	s.log.Info("health endpoint listening", "addr", ln.Addr().String())

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("health server", "error", err)
		}
	}()
	return nil
}

// Addr — фактический адрес после Start (полезно при ":0").
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.srv.Addr
	}
	return s.ln.Addr().String()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type healthResponse struct {
	Status   string `json:"status"`
	State    string `json:"state"`
	Uptime   string `json:"uptime,omitempty"`
	Loaded   int    `json:"extensions_loaded"`
	Failed   int    `json:"extensions_failed"`
	Commands int    `json:"commands"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	state := s.src.State()
	rep := s.src.Report()

	resp := healthResponse{
		Status:   "ok",
		State:    state.String(),
		Loaded:   rep.Loaded(),
		Failed:   rep.Failed(),
		Commands: len(s.src.Commands()),
	}
	if !s.started.IsZero() {
		resp.Uptime = s.now().Sub(s.started).Truncate(time.Second).String()
	}

	code := http.StatusOK
	if state != bot.StateRunning {
		resp.Status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

type extensionView struct {
	Name     string   `json:"name"`
	Loaded   bool     `json:"loaded"`
	Error    string   `json:"error,omitempty"`
	Commands []string `json:"commands,omitempty"`
}

func (s *Server) handleExtensions(w http.ResponseWriter, _ *http.Request) {
	rep := s.src.Report()
	out := make([]extensionView, 0, len(rep.Entries))
	for _, e := range rep.Entries {
		v := extensionView{Name: e.Name, Loaded: e.Loaded, Commands: e.Commands}
		if e.Err != nil {
			v.Error = e.Err.Error()
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"loaded":     rep.Loaded(),
		"failed":     rep.Failed(),
		"extensions": out,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
