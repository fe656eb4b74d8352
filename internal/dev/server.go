package dev

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/pagefiles/internal/config"
	pferrors "github.com/vango-dev/pagefiles/internal/errors"
)

// ServerOptions configures the development server.
type ServerOptions struct {
	// Config is the project configuration.
	Config *config.Config

	// Controller owns the route table. Required.
	Controller *Controller

	// Watcher feeds file events to the controller. May be nil.
	Watcher *Watcher

	// Reload broadcasts changes (default: a new ReloadServer).
	Reload *ReloadServer

	// Gatherer is exposed at /metrics (default: prometheus.DefaultGatherer).
	Gatherer prometheus.Gatherer

	// Logger (default: slog.Default()).
	Logger *slog.Logger
}

// Server is the development server.
type Server struct {
	config     *config.Config
	controller *Controller
	watcher    *Watcher
	reload     *ReloadServer
	gatherer   prometheus.Gatherer
	logger     *slog.Logger
	httpServer *http.Server
	mu         sync.Mutex
	running    bool
}

// NewServer creates a new development server. It writes every new
// generation to the configured output files and forwards generations and
// diagnostics to the reload hub.
func NewServer(options ServerOptions) *Server {
	if options.Reload == nil {
		options.Reload = NewReloadServer(nil)
	}
	if options.Gatherer == nil {
		options.Gatherer = prometheus.DefaultGatherer
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	s := &Server{
		config:     options.Config,
		controller: options.Controller,
		watcher:    options.Watcher,
		reload:     options.Reload,
		gatherer:   options.Gatherer,
		logger:     options.Logger,
	}

	s.controller.OnRoutesGenerated(func(gen Generation) {
		if s.config != nil {
			if err := WriteGeneration(s.config, gen); err != nil {
				s.logger.Error("failed to write routes", "error", err)
			}
		}
		s.reload.NotifyRoutes(gen)
	})
	s.controller.OnDiagnostics(s.reload.NotifyErrors)

	return s
}

// Handler returns the HTTP handler of the dev server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/routes.js", s.handleRoutesModule)
	r.Get("/routes.json", s.handleManifest)
	r.Get("/errors", s.handleErrors)
	r.Get("/client.js", handleClientScript)
	r.Get("/ws", s.reload.HandleWebSocket)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})

	return r
}

// Start loads the project, then watches it and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	if err := s.controller.Load(ctx); err != nil {
		s.logger.Error("initial generation failed", "error", err)
	}

	if s.watcher != nil {
		s.watcher.OnEvent(s.controller.Enqueue)
		go func() {
			if err := s.watcher.Start(ctx); err != nil {
				s.logger.Error("watcher stopped", "error", err)
			}
		}()
	}
	go s.controller.Run(ctx)

	addr := "localhost:" + strconv.Itoa(config.DefaultPort)
	if s.config != nil {
		addr = s.config.DevAddress()
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("dev server running", "addr", "http://"+addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.Stop()
		return nil
	case err := <-errCh:
		s.Stop()
		return err
	}
}

// Stop stops the development server.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	s.reload.Close()

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(ctx)
	}
}

func (s *Server) handleRoutesModule(w http.ResponseWriter, _ *http.Request) {
	gen, ok := s.controller.Current()
	if !ok {
		http.Error(w, "routes not generated yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("ETag", strconv.Quote(strconv.FormatUint(gen.Sum, 16)))
	_, _ = w.Write(gen.Output)
}

func (s *Server) handleManifest(w http.ResponseWriter, _ *http.Request) {
	gen, ok := s.controller.Current()
	if !ok {
		http.Error(w, "routes not generated yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(gen.Manifest)
}

func (s *Server) handleErrors(w http.ResponseWriter, _ *http.Request) {
	diags := s.controller.Diagnostics()
	payloads := make([]pferrors.Payload, 0, len(diags))
	for _, d := range diags {
		payloads = append(payloads, d.Payload())
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payloads)
}

func handleClientScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	_, _ = w.Write([]byte(DevClientScript))
}
