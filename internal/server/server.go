// Package server provides the HTTP server for the Mudra gesture recognition system.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/server/api"
	"github.com/ayusman/mudra/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	App       *app.App
}

// Server represents the HTTP server for the Mudra application.
type Server struct {
	config Config
	log    *zap.SugaredLogger
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		log:    logging.DefaultLogger(),
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	// Register dataset API handlers if Store is configured
	if s.config.Store != nil {
		datasetHandler := api.NewDatasetHandler(s.config.Store)
		samplesHandler := api.NewSamplesHandler(s.config.Store)

		// Use a wrapper to route between the dataset CRUD, sample and
		// file transfer handlers, which share the /api/datasets prefix
		datasetRouter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.URL.Path == "/api/datasets/import":
				s.handleImport(w, r)
			case strings.HasSuffix(r.URL.Path, "/samples"):
				samplesHandler.ServeHTTP(w, r)
			case strings.HasSuffix(r.URL.Path, "/export"):
				s.handleExport(w, r)
			default:
				datasetHandler.ServeHTTP(w, r)
			}
		})

		s.mux.Handle("/api/datasets", datasetRouter)
		s.mux.Handle("/api/datasets/", datasetRouter)
	}

	// Register classifier endpoints if App is configured
	if s.config.App != nil {
		s.mux.HandleFunc("/api/status", s.handleStatus)
		s.mux.HandleFunc("/api/train", s.handleTrain)
		s.mux.HandleFunc("/api/predict", s.handlePredict)
		s.mux.HandleFunc("/api/record/start", s.handleRecordStart)
		s.mux.HandleFunc("/api/record/stop", s.handleRecordStop)
		s.mux.HandleFunc("/api/record/cancel", s.handleRecordCancel)
		s.mux.HandleFunc("/api/window", s.handleWindow)
		s.mux.HandleFunc("/api/diagnostics", s.handleDiagnostics)

		liveHandler := NewLiveHandler(s.config.App)
		s.mux.Handle("/api/live", liveHandler)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	})
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

// Serve starts the HTTP server on the given address and shuts it down
// cleanly when the context is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
