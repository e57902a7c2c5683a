package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"

	"larder/internal/catalog"
	"larder/internal/conversion"
	"larder/internal/editor"
	"larder/internal/handlers"
	applog "larder/internal/log"
	"larder/internal/metrics"
)

// Config captures the runtime configuration for the HTTP server.
type Config struct {
	Addr     string
	Session  SessionConfig
	Catalog  CatalogConfig
	Database *gorm.DB
	// Registry receives the engine metrics and backs /metrics. A fresh registry is used when nil.
	Registry *prometheus.Registry
}

// SessionConfig controls session behavior for the HTTP server.
type SessionConfig struct {
	Lifetime     time.Duration
	CookieName   string
	CookieDomain string
	CookieSecure bool
}

// CatalogConfig tunes catalog access and the conversion cache.
type CatalogConfig struct {
	RetryDelay time.Duration
	CacheTTL   time.Duration
	CacheSize  int
}

// Server wraps an http.Server and exposes helpers for bootstrapping a
// production-ready web service.
type Server struct {
	config     Config
	httpServer *http.Server
	workspace  *editor.Workspace
}

// New builds a new Server using the provided configuration.
func New(cfg Config) (*Server, error) {
	applog.Debug(context.Background(), "initializing server",
		"addr", cfg.Addr,
		"sessionLifetime", cfg.Session.Lifetime.String(),
		"sessionCookie", cfg.Session.CookieName,
	)

	sessionCfg := cfg.Session
	if sessionCfg.Lifetime <= 0 {
		applog.Debug(context.Background(), "session lifetime not provided, using default")
		sessionCfg.Lifetime = 12 * time.Hour
	}
	if strings.TrimSpace(sessionCfg.CookieName) == "" {
		applog.Debug(context.Background(), "session cookie name not provided, using default")
		sessionCfg.CookieName = "larder_session"
	}

	sessionManager := scs.New()
	sessionManager.Lifetime = sessionCfg.Lifetime
	sessionManager.Cookie.Name = sessionCfg.CookieName
	sessionManager.Cookie.Domain = sessionCfg.CookieDomain
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.Persist = true
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode
	sessionManager.Cookie.Secure = sessionCfg.CookieSecure

	applog.Debug(context.Background(), "session manager configured",
		"cookieName", sessionCfg.CookieName,
		"cookieDomain", sessionCfg.CookieDomain,
		"cookieSecure", sessionCfg.CookieSecure,
	)

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	collector := metrics.New(registry)

	var workspace *editor.Workspace
	if cfg.Database != nil {
		reader := catalog.WithRetry(catalog.NewGormCatalog(cfg.Database), cfg.Catalog.RetryDelay, collector)
		resolver := conversion.NewResolver(reader, conversion.Options{
			CacheSize: cfg.Catalog.CacheSize,
			CacheTTL:  cfg.Catalog.CacheTTL,
			Metrics:   collector,
		})
		workspace = editor.NewWorkspace(reader, resolver, catalog.NewStore(cfg.Database), collector)
		workspace.SetIdleTimeout(sessionCfg.Lifetime)
		handlers.Configure(sessionManager, workspace, resolver)
	} else {
		applog.Debug(context.Background(), "no database configured, editor endpoints disabled")
		handlers.Configure(sessionManager, nil, nil)
	}

	applog.Debug(context.Background(), "handler dependencies configured")

	handler := sessionManager.LoadAndSave(newRouter(registry))

	applog.Debug(context.Background(), "http handler chain prepared")

	return &Server{
		config:    cfg,
		workspace: workspace,
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// Start begins serving HTTP traffic using the underlying http.Server.
func (s *Server) Start() error {
	applog.Debug(context.Background(), "server starting listener", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server with a timeout.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	applog.Debug(ctx, "server initiating graceful shutdown")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the configured HTTP handler, enabling integration tests.
func (s *Server) Handler() http.Handler {
	applog.Debug(context.Background(), "server handler requested")
	return s.httpServer.Handler
}
