// Package server exposes the runtime over HTTP: state reads and writes,
// command dispatch, undo/redo, diagnostics, metrics, the MyAnimeList
// proxy and playlist scraping endpoints of the original dev server, and
// the single-page app itself.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/tracklet/appkit/command"
	"github.com/tracklet/appkit/config"
	"github.com/tracklet/appkit/container"
	"github.com/tracklet/appkit/event"
	apphttp "github.com/tracklet/appkit/http"
	"github.com/tracklet/appkit/metrics"
	"github.com/tracklet/appkit/routing"
	"github.com/tracklet/appkit/storage"
	"github.com/tracklet/appkit/store"
)

// clientRoutes are the SPA routes that serve app.html.
var clientRoutes = []string{"/schedule", "/shows", "/music", "/import"}

// Server wires the runtime components to the HTTP surface.
type Server struct {
	cfg      *config.Config
	log      logrus.FieldLogger
	router   *routing.Router
	services *container.Container
	events   *event.Bus
	commands *command.Bus
	state    *store.Store
	storage  storage.Driver
	metrics  *metrics.Metrics

	client *http.Client
}

// Config collects the server's collaborators.
type Config struct {
	App      *config.Config
	Logger   logrus.FieldLogger
	Router   *routing.Router
	Services *container.Container
	Events   *event.Bus
	Commands *command.Bus
	Store    *store.Store
	Storage  storage.Driver
	Metrics  *metrics.Metrics
}

// New builds a server and mounts its routes.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Router == nil {
		cfg.Router = routing.New()
	}

	s := &Server{
		cfg:      cfg.App,
		log:      cfg.Logger,
		router:   cfg.Router,
		services: cfg.Services,
		events:   cfg.Events,
		commands: cfg.Commands,
		state:    cfg.Store,
		storage:  cfg.Storage,
		metrics:  cfg.Metrics,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	s.mount()
	return s
}

// Router returns the mounted router, mainly for tests.
func (s *Server) Router() *routing.Router { return s.router }

func (s *Server) mount() {
	s.router.Prefix("/api", func(api *routing.Router) {
		api.Get("/state", s.handleGetState)
		api.Put("/state", s.handleReplaceState)
		api.Patch("/state", s.handlePatchState)
		api.Post("/state/undo", s.handleUndo)
		api.Post("/state/redo", s.handleRedo)
		api.Post("/commands/{name}", s.handleDispatch)
		api.Get("/diagnostics", s.handleDiagnostics)
	})

	s.router.Get("/proxy", s.handleAnimeListProxy)
	s.router.Get("/proxy-anime", s.handleAnimeProxy)
	s.router.Get("/scrape-playlist", s.handlePlaylistScrape)

	s.router.Post("/save-shows", s.saveDocument("shows", "shows"))
	s.router.Post("/save-schedule-updates", s.saveDocument("schedule_updates", ""))
	s.router.Post("/save-titles", s.saveDocument("titles", ""))
	s.router.Post("/save-songs", s.saveDocument("songs", "songs"))
	s.router.Post("/save-playlists", s.saveDocument("playlists", "playlists"))

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}

	if s.cfg != nil {
		s.router.SPA(s.cfg.App.SiteDir, clientRoutes)
	}
}

// Run serves until the listener fails.
func (s *Server) Run() error {
	addr := ":" + s.cfg.App.Port
	s.log.WithFields(logrus.Fields{
		"app":  s.cfg.App.Name,
		"addr": addr,
		"env":  s.cfg.App.Env,
	}).Info("server: listening")
	return http.ListenAndServe(addr, s.router)
}

// ── State endpoints ──────────────────────────────────────────────────────────

// handleGetState returns the whole state document, or the value at
// ?path= resolved against its JSON form.
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	req := apphttp.NewRequest(r)
	res := apphttp.NewResponse(w)

	tree := s.state.GetState()
	if path := req.Query("path", ""); path != "" {
		data, err := json.Marshal(tree)
		if err != nil {
			res.ServerError(err.Error())
			return
		}
		result := gjson.GetBytes(data, path)
		if !result.Exists() {
			res.Success(nil)
			return
		}
		res.Success(json.RawMessage(result.Raw))
		return
	}
	res.Success(tree)
}

func (s *Server) handleReplaceState(w http.ResponseWriter, r *http.Request) {
	req := apphttp.NewRequest(r)
	res := apphttp.NewResponse(w)

	var tree map[string]any
	if err := req.Bind(&tree); err != nil {
		res.Error(http.StatusBadRequest, err.Error())
		return
	}
	s.state.ReplaceState(tree)
	res.Success(map[string]any{"replaced": true})
}

// handlePatchState writes a single value at a dot path, going through
// ReplaceState so history and persistence still hold.
func (s *Server) handlePatchState(w http.ResponseWriter, r *http.Request) {
	req := apphttp.NewRequest(r)
	res := apphttp.NewResponse(w)

	var body struct {
		Path  string          `json:"path"`
		Value json.RawMessage `json:"value"`
	}
	if err := req.Bind(&body); err != nil {
		res.Error(http.StatusBadRequest, err.Error())
		return
	}
	if body.Path == "" {
		res.Error(http.StatusBadRequest, "missing path")
		return
	}

	data, err := json.Marshal(s.state.GetState())
	if err != nil {
		res.ServerError(err.Error())
		return
	}
	patched, err := sjson.SetRawBytes(data, body.Path, body.Value)
	if err != nil {
		res.Error(http.StatusBadRequest, err.Error())
		return
	}
	var tree map[string]any
	if err := json.Unmarshal(patched, &tree); err != nil {
		res.ServerError(err.Error())
		return
	}
	s.state.ReplaceState(tree)
	res.Success(map[string]any{"path": body.Path})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	apphttp.NewResponse(w).Success(map[string]any{"undone": s.state.Undo()})
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	apphttp.NewResponse(w).Success(map[string]any{"redone": s.state.Redo()})
}

// ── Command dispatch ─────────────────────────────────────────────────────────

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	req := apphttp.NewRequest(r)
	res := apphttp.NewResponse(w)
	name := routing.Param(r, "name")

	var payload any
	if err := req.Bind(&payload); err != nil {
		res.Error(http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.commands.Dispatch(r.Context(), name, payload)
	if err != nil {
		res.FromError(err)
		return
	}
	res.Success(result)
}

// ── Diagnostics ──────────────────────────────────────────────────────────────

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	res := apphttp.NewResponse(w)
	body := map[string]any{
		"historyLength": s.state.HistoryLength(),
		"canUndo":       s.state.CanUndo(),
		"canRedo":       s.state.CanRedo(),
	}
	if s.services != nil {
		body["container"] = s.services.GetDiagnostics()
	}
	if s.events != nil {
		body["events"] = s.events.GetDiagnostics()
	}
	if s.commands != nil {
		body["commands"] = s.commands.RegisteredCommands()
	}
	res.Success(body)
}

// ── Persistence documents ────────────────────────────────────────────────────

// saveDocument writes a posted JSON document under a fixed storage key.
// A non-empty envelope wraps the payload as {"<envelope>": doc} first;
// shows, songs and playlists documents are stored wrapped, titles and
// schedule updates as posted.
func (s *Server) saveDocument(key, envelope string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := apphttp.NewRequest(r)
		res := apphttp.NewResponse(w)

		var doc json.RawMessage
		if err := req.Bind(&doc); err != nil {
			res.Error(http.StatusBadRequest, err.Error())
			return
		}
		if s.storage == nil {
			res.ServerError("persistence is disabled")
			return
		}
		if envelope != "" {
			wrapped, err := json.Marshal(map[string]json.RawMessage{envelope: doc})
			if err != nil {
				res.ServerError(err.Error())
				return
			}
			doc = wrapped
		}
		if err := s.storage.Set(key, doc); err != nil {
			res.ServerError(err.Error())
			return
		}
		res.JSON(http.StatusOK, map[string]any{"success": true})
	}
}
