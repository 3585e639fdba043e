// Package backend serves the turbo-delete HTTP API.
package backend

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"turbo-delete/internal/config"
	"turbo-delete/web/backend/api"
	"turbo-delete/web/backend/auth"
	"turbo-delete/web/backend/middleware"
	"turbo-delete/web/backend/websocket"
)

const (
	ReadTimeout     = 15 * time.Second
	WriteTimeout    = 15 * time.Second
	IdleTimeout     = 60 * time.Second
	ShutdownTimeout = 10 * time.Second

	limiterIdle = 10 * time.Minute
)

// Options wires the server to the rest of the application
type Options struct {
	Config  config.ServerCfg
	Runner  api.JobRunner
	History api.HistoryStore
	// Hub streams job events; the caller runs it
	Hub    *websocket.Hub
	Logger zerolog.Logger
}

// Server is the API server
type Server struct {
	cfg     config.ServerCfg
	srv     *http.Server
	router  *mux.Router
	limiter *middleware.RateLimiter
	jwt     *auth.JWTManager
	logger  zerolog.Logger
}

// New builds the router. A JWT secret is required because every route
// other than health needs a bearer token.
func New(opts Options) (*Server, error) {
	if opts.Runner == nil {
		return nil, errors.New("server: runner is required")
	}
	jwtManager, err := auth.NewJWTManager(opts.Config.JWTSecret, opts.Config.JWTExpiry)
	if err != nil {
		return nil, errors.New("server: set server.jwt_secret or " + config.EnvJWTSecret)
	}

	s := &Server{
		cfg:     opts.Config,
		jwt:     jwtManager,
		logger:  opts.Logger,
		limiter: middleware.NewRateLimiter(rate.Limit(opts.Config.RateLimit), opts.Config.RateBurst, limiterIdle),
	}

	h := &api.Handlers{
		Runner:  opts.Runner,
		History: opts.History,
		Logger:  opts.Logger,
	}

	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware(opts.Logger))
	router.Use(middleware.MetricsMiddleware)
	router.Use(middleware.CORSMiddleware)
	router.Use(middleware.SecurityHeadersMiddleware)
	router.Use(middleware.RequestBodySizeLimitMiddleware(opts.Config.MaxBodyBytes))
	router.Use(s.limiter.Middleware())

	router.HandleFunc("/api/v1/health", h.HealthHandler).Methods(http.MethodGet, http.MethodHead)

	protected := router.PathPrefix("/api/v1").Subrouter()
	protected.Use(middleware.AuthMiddleware(jwtManager))

	browse := protected.NewRoute().Subrouter()
	browse.Use(middleware.RequirePermission(auth.PermissionBrowse))
	browse.HandleFunc("/drives", h.DrivesHandler).Methods(http.MethodGet)
	browse.HandleFunc("/list", h.ListHandler).Methods(http.MethodGet)

	del := protected.NewRoute().Subrouter()
	del.Use(middleware.RequirePermission(auth.PermissionDelete))
	del.HandleFunc("/delete", h.DeleteHandler).Methods(http.MethodPost)

	jobs := protected.NewRoute().Subrouter()
	jobs.Use(middleware.RequirePermission(auth.PermissionViewJobs))
	jobs.HandleFunc("/jobs", h.JobsHandler).Methods(http.MethodGet)
	jobs.HandleFunc("/jobs/{id}", h.JobHandler).Methods(http.MethodGet)
	if opts.Hub != nil {
		jobs.HandleFunc("/ws/events", websocket.HandleEvents(opts.Hub)).Methods(http.MethodGet)
	}

	history := protected.NewRoute().Subrouter()
	history.Use(middleware.RequirePermission(auth.PermissionViewHistory))
	history.HandleFunc("/history", h.HistoryHandler).Methods(http.MethodGet)
	history.HandleFunc("/history/stats", h.StatsHandler).Methods(http.MethodGet)
	history.HandleFunc("/history/{id}", h.RunHandler).Methods(http.MethodGet)

	purge := protected.NewRoute().Subrouter()
	purge.Use(middleware.RequirePermission(auth.PermissionPurge))
	purge.HandleFunc("/history/purge", h.PurgeHandler).Methods(http.MethodPost)

	s.router = router
	s.srv = &http.Server{
		Addr:         opts.Config.Addr,
		Handler:      router,
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
		IdleTimeout:  IdleTimeout,
	}
	if s.tlsEnabled() {
		s.srv.TLSConfig = &tls.Config{
			MinVersion:       tls.VersionTLS13,
			CurvePreferences: []tls.CurveID{tls.CurveP521, tls.CurveP384, tls.CurveP256},
		}
	}
	return s, nil
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Tokens returns the manager used to issue bearer tokens
func (s *Server) Tokens() *auth.JWTManager {
	return s.jwt
}

// ListenAndServe blocks until the server stops. It returns nil after Shutdown.
func (s *Server) ListenAndServe() error {
	var err error
	if s.tlsEnabled() {
		s.logger.Info().Str("addr", s.cfg.Addr).Str("cert", s.cfg.TLSCertFile).Msg("starting HTTPS server")
		err = s.srv.ListenAndServeTLS(s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
	} else {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("starting HTTP server")
		err = s.srv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.limiter.Stop()
	return s.srv.Shutdown(ctx)
}

func (s *Server) tlsEnabled() bool {
	return s.cfg.TLSCertFile != "" && s.cfg.TLSKeyFile != ""
}
