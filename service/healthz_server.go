package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// HealthzServer answers liveness probes and reports the current run phase.
type HealthzServer struct {
	server *http.Server
	phase  atomic.Value // string
}

// SetPhase records what the run is currently doing, e.g. "sleep" or "done".
func (h *HealthzServer) SetPhase(phase string) {
	h.phase.Store(phase)
}

// Phase returns the last phase set, "idle" before any.
func (h *HealthzServer) Phase() string {
	if p, ok := h.phase.Load().(string); ok {
		return p
	}
	return "idle"
}

// Handler returns the HTTP handler of the server.
func (h *HealthzServer) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/phase", h.handlePhase).Methods(http.MethodGet)
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})
	return c.Handler(r)
}

// Start listens on addr and serves in the background until Shutdown.
func (h *HealthzServer) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	h.server = &http.Server{
		Handler: h.Handler(),
		Addr:    ln.Addr().String(),
	}
	go func() {
		if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "addr", ln.Addr().String(), "err", err)
		}
	}()
	return nil
}

// Addr returns the address the server listens on.
func (h *HealthzServer) Addr() string {
	if h.server == nil {
		return ""
	}
	return h.server.Addr
}

// Shutdown stops the server.
func (h *HealthzServer) Shutdown(ctx context.Context) error {
	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(ctx)
}

func (h *HealthzServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	log.Debug("Received health check request", "path", r.URL.Path)
	w.Write([]byte("OK")) //nolint:errcheck
}

func (h *HealthzServer) handlePhase(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte(h.Phase())) //nolint:errcheck
}
