// Package routing wraps chi with the small routing surface the runtime's
// HTTP layer uses, including the single-page-app fallback the original
// dev server provided.
package routing

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Router wraps chi.Router with app-shaped helpers.
type Router struct {
	mux chi.Router
}

// New creates a Router with sane defaults (Logger, Recoverer, RealIP).
func New() *Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	return &Router{mux: r}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// ── HTTP verbs ───────────────────────────────────────────────────────────────

func (r *Router) Get(pattern string, h http.HandlerFunc)    { r.mux.Get(pattern, h) }
func (r *Router) Post(pattern string, h http.HandlerFunc)   { r.mux.Post(pattern, h) }
func (r *Router) Put(pattern string, h http.HandlerFunc)    { r.mux.Put(pattern, h) }
func (r *Router) Patch(pattern string, h http.HandlerFunc)  { r.mux.Patch(pattern, h) }
func (r *Router) Delete(pattern string, h http.HandlerFunc) { r.mux.Delete(pattern, h) }

// Handle mounts a plain http.Handler at a pattern.
func (r *Router) Handle(pattern string, h http.Handler) { r.mux.Handle(pattern, h) }

// ── Groups & Prefixes ────────────────────────────────────────────────────────

// Group creates an inline group sharing middleware.
func (r *Router) Group(fn func(r *Router)) {
	r.mux.Group(func(mx chi.Router) {
		fn(&Router{mux: mx})
	})
}

// Prefix creates a sub-router under a URL prefix.
func (r *Router) Prefix(pattern string, fn func(r *Router)) {
	r.mux.Route(pattern, func(mx chi.Router) {
		fn(&Router{mux: mx})
	})
}

// Middleware adds one or more middleware to the router.
func (r *Router) Middleware(mw ...func(http.Handler) http.Handler) {
	r.mux.Use(mw...)
}

// Param returns a URL parameter from a chi-routed request.
func Param(req *http.Request, name string) string {
	return chi.URLParam(req, name)
}

// ── SPA serving ──────────────────────────────────────────────────────────────

// SPA serves the single-page app from siteDir. Existing files are served
// as-is; known client routes and any extensionless path outside /data/
// fall back to app.html so new client-side routes work without a server
// restart.
func (r *Router) SPA(siteDir string, clientRoutes []string) {
	routes := make(map[string]bool, len(clientRoutes))
	for _, route := range clientRoutes {
		routes[route] = true
	}
	appHTML := filepath.Join(siteDir, "app.html")

	r.mux.NotFound(func(w http.ResponseWriter, req *http.Request) {
		reqPath := path.Clean(req.URL.Path)

		if routes[reqPath] {
			http.ServeFile(w, req, appHTML)
			return
		}

		candidate := filepath.Join(siteDir, filepath.FromSlash(strings.TrimPrefix(reqPath, "/")))
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			http.ServeFile(w, req, candidate)
			return
		}

		if !strings.HasPrefix(reqPath, "/data/") && path.Ext(reqPath) == "" {
			http.ServeFile(w, req, appHTML)
			return
		}

		http.NotFound(w, req)
	})
}
