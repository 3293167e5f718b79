package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/busbeacon/beacon/internal/app/config"
	"github.com/busbeacon/beacon/internal/ports"
)

const serverVersion = "1.0.0"

// Server is the realtime relay: websocket document routing plus the
// health/info/metrics HTTP surface and the periodic diagnostic log.
type Server struct {
	cfg      config.RelayConfig
	registry *Registry
	mux      *Multiplexer
	obs      ports.Observability
	httpSrv  *http.Server
}

func NewServer(cfg config.RelayConfig, obs ports.Observability) *Server {
	registry := NewRegistry()
	s := &Server{
		cfg:      cfg,
		registry: registry,
		mux:      NewMultiplexer(registry, cfg.BusIDPrefix, obs),
		obs:      obs,
	}
	s.httpSrv = &http.Server{Addr: cfg.Addr, Handler: s.Handler()}
	return s
}

// Registry exposes the connection bookkeeping, mainly for tests and
// embedding processes.
func (s *Server) Registry() *Registry { return s.registry }

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/", s.handleInfo).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/doc/{busID}", s.mux.HandleDoc)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully within
// the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.obs.LogInfo("relay_listening", ports.Field{Key: "addr", Value: s.cfg.Addr})

	stopDiag := make(chan struct{})
	go s.diagnosticLoop(stopDiag)

	select {
	case err := <-errCh:
		close(stopDiag)
		return err
	case <-ctx.Done():
	}

	close(stopDiag)
	s.obs.LogInfo("relay_shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}

// diagnosticLoop emits connection totals and a per-bus breakdown every
// LogInterval, and keeps the connection gauges current.
func (s *Server) diagnosticLoop(stop <-chan struct{}) {
	if s.cfg.LogInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.LogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			snapshot := s.registry.Snapshot()
			total := s.registry.Total()

			s.obs.SetGauge("beacon_connections", float64(total))
			s.obs.SetGauge("beacon_buses_active", float64(len(snapshot)))

			s.obs.LogInfo("active_connections", ports.Field{Key: "total", Value: total})
			for _, bc := range snapshot {
				s.obs.LogInfo("active_bus",
					ports.Field{Key: "bus_id", Value: bc.BusID},
					ports.Field{Key: "connections", Value: bc.Count})
			}
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type infoResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
	Status      string `json:"status"`
	Connections int    `json:"connections"`
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, infoResponse{
		Name:        "Bus Beacon Realtime Server",
		Description: "Websocket relay for real-time bus location updates",
		Version:     serverVersion,
		Status:      "running",
		Connections: s.registry.Total(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// Headers already sent; nothing left to do but note it.
		log.Printf("write response: %v", err)
	}
}
