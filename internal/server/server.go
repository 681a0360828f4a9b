// Package server exposes the monitoring surfaces over HTTP: the MJPEG
// camera feed, a WebSocket visualization channel, health and Prometheus
// metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/logger"
)

// Server is the monitoring HTTP server.
type Server struct {
	httpServer *http.Server
	frames     *FrameStore
	hub        *Hub
}

// New builds the server around an already-wired frame store and hub.
func New(cfg config.ServerConfig, frames *FrameStore, hub *Hub) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/stream", frames.ServeStream)
	mux.HandleFunc("/api/frame.jpg", frames.ServeFrame)
	mux.HandleFunc("/api/visualization", hub.ServeWS)
	if cfg.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		frames: frames,
		hub:    hub,
	}
}

// Handler returns the route tree, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until Shutdown is called. It blocks.
func (s *Server) Run() error {
	logger.Logger().Infow("http server listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown closes the visualization clients and drains the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
