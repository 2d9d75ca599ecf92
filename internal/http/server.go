// Package http is the server-rendered web front-end: pages and forms over
// the ledger view-model, with the remote savings API behind everything.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"pocketgrow/internal/api"
	"pocketgrow/internal/cache"
	"pocketgrow/internal/config"
	"pocketgrow/internal/core"
	"pocketgrow/internal/log"
	"pocketgrow/internal/middleware/ratelimit"
	"pocketgrow/internal/savings"
	appweb "pocketgrow/web"
)

type Server struct {
	http.Server

	cfg       *config.Config
	logger    *log.Logger
	templates *template.Template

	apiClient   *api.Client
	coordinator *savings.Coordinator

	limiter    *ratelimit.Limiter
	caches     *cache.Manager
	usersCache *cache.LRUCache[[]core.UserSummary]

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(cfg *config.Config, apiClient *api.Client, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	funcs := template.FuncMap{
		"pagerPrev": func(p int) int { return p - 1 },
		"pagerNext": func(p int) int { return p + 1 },
	}
	templates, err := template.New("").Funcs(funcs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:        cfg,
		logger:     logger.WithComponent(log.ComponentHTTP),
		templates:  templates,
		apiClient:  apiClient,
		limiter:    ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitRPM}),
		caches:     cache.NewManager(),
		usersCache: cache.NewLRUCache[[]core.UserSummary](cfg.CacheSize, cfg.CacheTTL),
	}

	// Mutations share one coordinator so the per-identity in-flight guard
	// holds across browser sessions; a double-submitted admin form is
	// rejected even when the clicks race through two connections.
	s.coordinator = savings.NewCoordinator(apiClient, logger)
	s.coordinator.OnMutation(s.usersCache.Clear)

	s.caches.Register(s.usersCache)
	s.caches.StartCleanup(10 * time.Minute)

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
	)
	r.Use(log.Middleware(logger))
	r.Use(log.AccessLog)
	r.Use(s.limiter.Middleware(clientIP))

	r.Get("/healthz", s.handleHealth)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(sub))))
	}

	r.Get("/", s.handleIndex)
	r.Get("/login", s.handleLoginPage)
	r.Post("/login", s.handleLogin)
	r.Get("/register", s.handleRegisterPage)
	r.Post("/register", s.handleRegister)
	r.Get("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)
		r.Get("/my-savings", s.handleMySavings)
		r.Post("/my-savings/contributions", s.handleSelfContribute)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession, s.requireAdmin)
		r.Get("/admin", s.handleAdmin)
		r.Post("/admin/contributions", s.handleAdminCreate)
		r.Post("/admin/contributions/{id}", s.handleAdminUpdate)
		r.Post("/admin/contributions/{id}/delete", s.handleAdminDelete)
	})

	s.Server = http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}
	return s, nil
}

// Shutdown stops the HTTP server and the background cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.caches.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// handleIndex routes by role: admins to the management view, colleagues
// to their own savings.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromRequest(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if sess.Role == core.RoleAdmin {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/my-savings", http.StatusSeeOther)
}

// requireSession redirects anonymous requests to the login page and puts
// the session token on the request context for API calls downstream.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFromRequest(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		ctx := api.WithToken(r.Context(), sess.Token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sess, ok := sessionFromRequest(r); !ok || sess.Role != core.RoleAdmin {
			http.Redirect(w, r, "/my-savings", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template render failed",
			log.FieldError, err.Error(),
			log.FieldPath, r.URL.Path)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	return host
}
