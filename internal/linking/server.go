package linking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultCallbackPath is where the identity provider redirects after consent
const DefaultCallbackPath = "/oauth-callback"

// Linker completes the account-link flow
type Linker interface {
	UserForState(state string) (string, error)
	ConsentURL(state string) string
	Link(ctx context.Context, userID, code string) error
}

// LinkedHook is called after a user's credential has been stored
type LinkedHook func(ctx context.Context, userID string)

// HealthFunc reports whether the process can serve requests
type HealthFunc func(ctx context.Context) error

// Server serves the OAuth callback, metrics and health endpoints
type Server struct {
	linker       Linker
	onLinked     LinkedHook
	health       HealthFunc
	gatherer     prometheus.Gatherer
	callbackPath string
	mux          *http.ServeMux
}

// Options configures a Server
type Options struct {
	// CallbackPath defaults to DefaultCallbackPath
	CallbackPath string
	OnLinked     LinkedHook
	Health       HealthFunc
	// Gatherer defaults to prometheus.DefaultGatherer
	Gatherer prometheus.Gatherer
}

// NewServer creates a new Server with default mux
func NewServer(linker Linker, opts Options) *Server {
	return NewServerWithMux(linker, opts, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(linker Linker, opts Options, mux *http.ServeMux) *Server {
	s := &Server{
		linker:       linker,
		onLinked:     opts.OnLinked,
		health:       opts.Health,
		gatherer:     opts.Gatherer,
		callbackPath: opts.CallbackPath,
		mux:          mux,
	}
	if s.callbackPath == "" {
		s.callbackPath = DefaultCallbackPath
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if s.health == nil {
		s.health = func(context.Context) error { return nil }
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET "+s.callbackPath, s.handleCallback)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// handleCallback covers the three legs of the flow: the chat button
// (state only), the provider redirect (state and code) and a provider
// error.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state := q.Get("state")

	if providerErr := q.Get("error"); providerErr != "" {
		slog.Warn("Authorization denied by provider", "error", providerErr)
		s.renderError(w, http.StatusBadRequest, "Google did not grant access: "+providerErr)
		return
	}
	if state == "" {
		s.renderError(w, http.StatusBadRequest, "The link is missing its user reference.")
		return
	}
	userID, err := s.linker.UserForState(state)
	if err != nil {
		slog.Warn("Rejected link state", "error", err)
		s.renderError(w, http.StatusBadRequest, "This link is invalid or has expired. Ask the bot for a new one.")
		return
	}

	code := q.Get("code")
	if code == "" {
		http.Redirect(w, r, s.linker.ConsentURL(state), http.StatusFound)
		return
	}

	if err := s.linker.Link(r.Context(), userID, code); err != nil {
		slog.Error("Failed to link account", "user_id", userID, "error", err)
		s.renderError(w, http.StatusBadGateway, "The authorization code could not be exchanged.")
		return
	}

	slog.Info("Account linked", "user_id", userID)
	if s.onLinked != nil {
		s.onLinked(r.Context(), userID)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(w, "linked.html", nil); err != nil {
		slog.Error("Error rendering page", "error", err)
	}
}

func (s *Server) renderError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := pages.ExecuteTemplate(w, "error.html", errorPage{Message: message}); err != nil {
		slog.Error("Error rendering page", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()

	if err := s.health(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = fmt.Fprintf(w, "unhealthy: %v", err)
		return
	}
	_, _ = w.Write([]byte("ok"))
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Start serves on addr until ctx is cancelled
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving: %w", err)
	}
	return nil
}
