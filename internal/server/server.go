// Package server exposes the daemon control API on a unix-domain
// socket: mode operations, status, and a websocket event stream.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/pygillier/nightswitch/internal/domain/entity"
	"github.com/pygillier/nightswitch/internal/logging"
	"github.com/pygillier/nightswitch/internal/services"
)

const (
	// maxRequestBytes bounds control request bodies; payloads are tiny.
	maxRequestBytes = 1 << 16
	// shutdownTimeout bounds the drain of in-flight requests.
	shutdownTimeout = 5 * time.Second
	// livenessTimeout bounds the check for an already-running daemon.
	livenessTimeout = 500 * time.Millisecond

	dirPerm    = 0o700
	socketPerm = 0o600
)

// ModeResponse is the body returned by every mode operation: the
// resulting status, plus communicated degradations. Warning is set
// when the operation succeeded but the state write failed.
type ModeResponse struct {
	services.Status
	Warning string `json:"warning,omitempty"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server serves the control API for one controller instance.
type Server struct {
	controller *services.ModeController
	socketPath string
	httpServer *http.Server
	listener   net.Listener
	upgrader   websocket.Upgrader
}

// New creates a server for the controller, listening on socketPath
// once started.
func New(controller *services.ModeController, socketPath string) *Server {
	s := &Server{
		controller: controller,
		socketPath: socketPath,
		// Same-host unix socket: the transport is the access control.
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/mode/manual", s.handleManual).Methods(http.MethodPost)
	api.HandleFunc("/mode/schedule", s.handleSchedule).Methods(http.MethodPost)
	api.HandleFunc("/mode/location", s.handleLocation).Methods(http.MethodPost)
	api.HandleFunc("/mode/disable", s.handleDisable).Methods(http.MethodPost)
	api.HandleFunc("/theme/toggle", s.handleToggle).Methods(http.MethodPost)
	api.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the route tree, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start binds the unix socket and serves in the background. A live
// socket from another instance is an error; a stale file is replaced.
func (s *Server) Start(ctx context.Context) error {
	log := logging.FromContext(ctx)

	if err := os.MkdirAll(filepath.Dir(s.socketPath), dirPerm); err != nil {
		return fmt.Errorf("failed to create runtime directory: %w", err)
	}
	if _, err := os.Stat(s.socketPath); err == nil {
		if conn, dialErr := net.DialTimeout("unix", s.socketPath, livenessTimeout); dialErr == nil {
			_ = conn.Close()
			return fmt.Errorf("another instance is already listening on %s", s.socketPath)
		}
		log.Debug().Str("socket", s.socketPath).Msg("removing stale socket")
		if err := os.Remove(s.socketPath); err != nil {
			return fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.socketPath, err)
	}
	if err := os.Chmod(s.socketPath, socketPerm); err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to restrict socket permissions: %w", err)
	}
	s.listener = listener
	s.httpServer.BaseContext = func(net.Listener) context.Context { return ctx }

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("control api server failed")
		}
	}()
	log.Info().Str("socket", s.socketPath).Msg("control api listening")
	return nil
}

// Shutdown drains in-flight requests and removes the socket file.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	err := s.httpServer.Shutdown(ctx)
	if rmErr := os.Remove(s.socketPath); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
		err = rmErr
	}
	return err
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.controller.Status())
}

type manualRequest struct {
	Theme string `json:"theme"`
}

func (s *Server) handleManual(w http.ResponseWriter, r *http.Request) {
	var req manualRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	variant, err := entity.ParseVariant(req.Theme)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeOpResult(w, s.controller.SetManualMode(r.Context(), variant))
}

type scheduleRequest struct {
	DarkAt  string `json:"dark_at"`
	LightAt string `json:"light_at"`
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	darkAt, err := entity.ParseTimeOfDay(req.DarkAt)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("dark_at: %w", err))
		return
	}
	lightAt, err := entity.ParseTimeOfDay(req.LightAt)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("light_at: %w", err))
		return
	}
	cfg := entity.ScheduleConfig{DarkAt: darkAt, LightAt: lightAt}
	s.writeOpResult(w, s.controller.SetScheduleMode(r.Context(), cfg))
}

type locationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	var override *entity.Coordinate
	switch {
	case req.Latitude == nil && req.Longitude == nil:
		// Auto-detect.
	case req.Latitude != nil && req.Longitude != nil:
		override = &entity.Coordinate{Latitude: *req.Latitude, Longitude: *req.Longitude}
	default:
		s.writeError(w, http.StatusBadRequest, fmt.Errorf(
			"%w: latitude and longitude must be set together", entity.ErrInvalidConfig))
		return
	}
	s.writeOpResult(w, s.controller.SetLocationMode(r.Context(), override))
}

func (s *Server) handleDisable(w http.ResponseWriter, r *http.Request) {
	s.writeOpResult(w, s.controller.DisableAutomaticMode(r.Context()))
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	_, err := s.controller.Toggle(r.Context())
	s.writeOpResult(w, err)
}

// handleEvents upgrades to a websocket and relays the notification
// stream, one JSON event per message.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer func() { _ = conn.Close() }()

	stream, cancel := s.controller.Subscribe()
	defer cancel()

	// Reads only detect the client going away.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	log.Debug().Msg("event stream client connected")
	defer log.Debug().Msg("event stream client disconnected")
	for {
		select {
		case <-clientGone:
			return
		case <-r.Context().Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "daemon shutting down"))
			return
		case ev, ok := <-stream:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}

// writeOpResult maps a controller result onto the wire: invalid input
// is the caller's fault, provider and applier failures are upstream
// failures, and a failed state write still reports success with a
// warning because the mutation stood.
func (s *Server) writeOpResult(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, ModeResponse{Status: s.controller.Status()})
	case errors.Is(err, entity.ErrPersistence):
		s.writeJSON(w, http.StatusOK, ModeResponse{
			Status:  s.controller.Status(),
			Warning: err.Error(),
		})
	case errors.Is(err, entity.ErrInvalidConfig):
		s.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, entity.ErrLocationUnavailable),
		errors.Is(err, entity.ErrAstronomyService),
		errors.Is(err, entity.ErrApply):
		s.writeError(w, http.StatusBadGateway, err)
	default:
		s.writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func decodeRequest(r *http.Request, into any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes)).Decode(into); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", entity.ErrInvalidConfig, err)
	}
	return nil
}
