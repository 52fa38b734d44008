package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/essboard/essboard/pkg/board"
	"github.com/essboard/essboard/pkg/log"
	"github.com/essboard/essboard/pkg/storage"
	"github.com/levenlabs/go-lflag"
)

// Server serves the fleet dashboard page, its JSON API and live
// interpretation updates.
type Server struct {
	storage storage.Database
	board   *board.Board
	hub     *hub

	listenAddr string
	httpServer *http.Server

	serverName       string
	webCacheDuration time.Duration
	page             *template.Template
	static           fs.FS
}

// New returns a Server for s and b. Interpretation changes on b are pushed
// to websocket clients.
func New(s storage.Database, b *board.Board) *Server {
	static, err := fs.Sub(webFS, "web/static")
	if err != nil {
		panic(fmt.Errorf("failed to get static fs: %w", err))
	}
	srv := &Server{
		storage:    s,
		board:      b,
		hub:        newHub(),
		serverName: "essboard",
		page:       dashboardTemplate,
		static:     static,
	}
	b.OnChange(srv.hub.publish)
	return srv
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration.
func Configured(s storage.Database, b *board.Board) *Server {
	srv := New(s, b)
	revision := os.Getenv("K_REVISION")
	if revision != "" {
		srv.serverName = revision
	}

	// get the port from PORT when running in cloud run
	port := os.Getenv("PORT")
	if port == "" {
		// otherwise default to 8080
		port = "8080"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	webCacheDuration := lflag.Duration("web-cache-duration", 0, "Duration to cache static web files (e.g. 1h, 5m). 0 means no cache.")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
		srv.webCacheDuration = *webCacheDuration
	})

	return srv
}

func (s *Server) setupHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleDashboardPage)
	mux.Handle("GET /static/", http.StripPrefix("/static/", s.staticHandler(http.FileServer(http.FS(s.static)))))
	mux.HandleFunc("GET /api/dashboard", s.handleGetDashboard)
	mux.HandleFunc("GET /api/interpretation", s.handleGetInterpretation)
	mux.HandleFunc("POST /api/interpretation/refresh", s.handleRefreshInterpretation)
	mux.HandleFunc("GET /api/ws", s.handleWebsocket)
	mux.HandleFunc("/healthz", s.handleHealthz)

	// websocket upgrades need the raw ResponseWriter so they skip gzip
	gz := gziphandler.GzipHandler(mux)
	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/ws" {
			mux.ServeHTTP(w, r)
			return
		}
		gz.ServeHTTP(w, r)
	})
	return s.revisionMiddleware(s.requestIDMiddleware(s.securityHeadersMiddleware(root)))
}

// Run starts the HTTP server and blocks until the context is canceled or an error occurs.
// It also handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	// use a channel to capturing server errors
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		// Context canceled, shut down gracefully
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		s.hub.close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) staticHandler(h http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.webCacheDuration > 0 {
			w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(s.webCacheDuration.Seconds())))
		}
		h.ServeHTTP(w, r)
	}
}

func (s *Server) revisionMiddleware(next http.Handler) http.Handler {
	if s.serverName == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", s.serverName)
		next.ServeHTTP(w, r)
	})
}
