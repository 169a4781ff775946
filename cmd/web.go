package cmd

import (
	"context"
	"embed"
	"errors"
	"fmt"
	stdlog "log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/chartes/dicotopo/cmd/web/components"
	"github.com/chartes/dicotopo/cmd/web/components/types"
	"github.com/chartes/dicotopo/pkg/api"
	"github.com/chartes/dicotopo/pkg/config"
	"github.com/chartes/dicotopo/pkg/explorer"
	"github.com/chartes/dicotopo/pkg/log"
	"github.com/chartes/dicotopo/pkg/realtime"
	"github.com/chartes/dicotopo/pkg/sanitize"
	"github.com/chartes/dicotopo/pkg/search"
	"github.com/chartes/dicotopo/pkg/session"
	"github.com/chartes/dicotopo/pkg/shared"
	"github.com/chartes/dicotopo/pkg/version"
	"github.com/fsnotify/fsnotify"
	"github.com/klauspost/compress/gzhttp"
	"github.com/urfave/cli/v3"
)

//go:embed web/static/*
var staticFS embed.FS

var webLogger = log.ForService("web")

const (
	selectPath    = "/select/"
	streamPath    = "/api/markers/ws"
	sweepInterval = time.Minute
)

// WebCommand creates the web command serving the explorer and its API
func WebCommand() *cli.Command {
	return &cli.Command{
		Name:  "web",
		Usage: "Start the placename explorer web server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "port",
				Usage: "Port to listen on (overrides [web] port)",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind to (overrides [web] host)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return startWebServer(ctx, c.String("config"), c.String("host"), c.String("port"))
		},
	}
}

// WebServer holds the server configuration and dependencies
type WebServer struct {
	mu       sync.RWMutex
	config   *config.Config
	searcher *search.Service // nil when no search endpoint is configured

	store     *session.Store
	hub       *realtime.MarkerHub
	apiServer *api.Server
}

// loadConfig reads the configuration file and applies DICOTOPO_*
// environment overrides.
func loadConfig(configPath string) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// newSearchService builds the backend search client, or nil when cfg has
// no search endpoint.
func newSearchService(cfg *config.Config) (*search.Service, error) {
	if cfg.Backend.SearchEndpoint == "" {
		return nil, nil
	}
	return search.NewService(search.Options{
		Endpoint:          cfg.Backend.SearchEndpoint,
		Timeout:           cfg.Backend.Timeout.Duration,
		RequestsPerSecond: cfg.Backend.RequestsPerSecond,
		PageSize:          cfg.Backend.PageSize,
	})
}

func newWebServer(cfg *config.Config) (*WebServer, error) {
	searcher, err := newSearchService(cfg)
	if err != nil {
		return nil, err
	}

	store := session.NewStore(cfg.Web.SessionTTL.Duration)
	hub := realtime.NewMarkerHub(0)

	return &WebServer{
		config:    cfg,
		searcher:  searcher,
		store:     store,
		hub:       hub,
		apiServer: api.NewServer(store, hub),
	}, nil
}

// Handler returns the complete HTTP handler. Every route but the marker
// stream is gzip compressed; compression would break the WebSocket
// upgrade.
func (s *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()

	// API routes
	s.apiServer.RegisterRoutes(mux)

	// Web UI routes
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("GET /select/{id}", s.handleSelect)

	// Static assets
	mux.HandleFunc("GET /static/", s.handleStatic)

	root := http.NewServeMux()
	s.apiServer.RegisterStreamRoutes(root)
	root.Handle("/", gzhttp.GzipHandler(mux))

	return api.CorsMiddleware(root)
}

// startWebServer starts the web server with both API and UI
func startWebServer(ctx context.Context, configPath, host, port string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if host != "" {
		cfg.Web.Host = host
	}
	if port != "" {
		cfg.Web.Port = port
	}

	webServer, err := newWebServer(cfg)
	if err != nil {
		return fmt.Errorf("creating web server: %w", err)
	}
	if webServer.searcher == nil {
		webLogger.Warnf("no [backend] search_endpoint configured, searches will fail")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go webServer.store.Run(ctx, sweepInterval)
	go webServer.watchConfig(ctx, configPath)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           webServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          stdlog.New(webLogger.Writer(), "", 0),
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		webLogger.Infof("Starting web server on http://%s", cfg.Addr())
		webLogger.Infof("Available endpoints:")
		webLogger.Infof("  Web UI:")
		webLogger.Infof("    GET / - Placename explorer")
		webLogger.Infof("    GET /search?q= - Search placenames")
		webLogger.Infof("    GET /select/{id} - Show a placename card")
		webLogger.Infof("  API:")
		webLogger.Infof("    GET /api/state - Explorer state of the session")
		webLogger.Infof("    GET /api/markers - Map markers of the session")
		webLogger.Infof("    GET /api/markers/ws - Marker updates (WebSocket)")
		webLogger.Infof("    GET /health - Health check")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("web server failed: %w", err)
	}

	webLogger.Infof("Shutting down web server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	return server.Shutdown(shutdownCtx)
}

// watchConfig reloads the configuration when the file changes. Sessions
// read their settings once at mount, so only new sessions see the change.
func (s *WebServer) watchConfig(ctx context.Context, configPath string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		webLogger.Warnf("failed to create config file watcher: %v", err)
		return
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			webLogger.Warnf("failed to close config file watcher: %v", err)
		}
	}()

	if err := watcher.Add(configPath); err != nil {
		webLogger.Debugf("not watching %s: %v", configPath, err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			webLogger.Infof("Config file changed: %s (event: %s), reloading configuration...", event.Name, event.Op.String())

			// Editors replace the file, re-add it so later changes are seen.
			if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				time.Sleep(100 * time.Millisecond)
				if _, err := os.Stat(configPath); os.IsNotExist(err) {
					webLogger.Warnf("Config file was removed and not replaced, skipping reload")
					continue
				}
				if err := watcher.Add(configPath); err != nil {
					webLogger.Warnf("failed to re-add config file to watcher: %v", err)
				}
			}

			if err := s.reload(configPath); err != nil {
				webLogger.Errorf("Failed to reload configuration: %v", err)
			} else {
				webLogger.Infof("Configuration reloaded, new sessions use the new settings")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			webLogger.Warnf("Config file watcher error: %v", err)
		}
	}
}

// reload swaps in the configuration at configPath. Listen address and
// session TTL changes need a restart.
func (s *WebServer) reload(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	searcher, err := newSearchService(cfg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cfg.Web = s.config.Web
	s.config = cfg
	s.searcher = searcher
	return nil
}

func (s *WebServer) current() (*config.Config, *search.Service) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config, s.searcher
}

// Web UI Handlers

// session returns the explorer session of r, mounting a new one with the
// current settings when the request has none or it expired.
func (s *WebServer) session(w http.ResponseWriter, r *http.Request) (string, explorer.State) {
	if id := shared.SessionID(r); id != "" {
		if state, ok := s.store.Get(id); ok {
			return id, state
		}
	}

	cfg, _ := s.current()
	id, state := s.store.Create(cfg.Settings())
	shared.SetSessionCookie(w, id, cfg.Web.SessionTTL.Duration)
	webLogger.Debugf("mounted session %s (map=%v, panel=%s)", id, state.Settings.MapEnabled, state.Active)
	return id, state
}

// update applies transition to session id and returns the stored result.
// A session that expired since it was looked up is remounted with the
// current settings before the transition runs.
func (s *WebServer) update(w http.ResponseWriter, id string, transition func(explorer.State) explorer.State) (string, explorer.State) {
	if next, ok := s.store.Update(id, transition); ok {
		return id, next
	}

	cfg, _ := s.current()
	newID, _ := s.store.Create(cfg.Settings())
	shared.SetSessionCookie(w, newID, cfg.Web.SessionTTL.Duration)
	webLogger.Debugf("session %s expired, remounted as %s", id, newID)
	next, _ := s.store.Update(newID, transition)
	return newID, next
}

// handleHome serves the explorer page
func (s *WebServer) handleHome(w http.ResponseWriter, r *http.Request) {
	_, state := s.session(w, r)
	s.render(w, r, s.pageData(state, "", ""))
}

// handleSearch runs the query against the search backend and feeds the
// result to the session. A failed search leaves the session unchanged and
// shows an error line.
func (s *WebServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	id, state := s.session(w, r)

	params, err := search.ParseSearchParams(r.URL.Query())
	if err != nil {
		s.render(w, r, s.pageData(state, r.URL.Query().Get("q"), fmt.Sprintf("Paramètres invalides : %v", err)))
		return
	}

	// Web allows empty queries (shows the explorer page)
	if params.Query == "" || !state.Settings.MapEnabled {
		s.render(w, r, s.pageData(state, params.Query, ""))
		return
	}

	_, searcher := s.current()
	if searcher == nil {
		s.render(w, r, s.pageData(state, params.Query, "La recherche n'est pas configurée."))
		return
	}

	result, err := searcher.Search(r.Context(), params)
	if err != nil {
		webLogger.Warnf("search %q failed: %v", params.Query, err)
		s.render(w, r, s.pageData(state, params.Query, formatSearchError(err)))
		return
	}

	id, next := s.update(w, id, func(st explorer.State) explorer.State {
		return st.SubmitSearch(result)
	})
	if n := s.hub.Broadcast(realtime.NewMarkerEvent(id, next.Markers)); n > 0 {
		webLogger.Debugf("pushed %d marker(s) to %d listener(s)", len(next.Markers), n)
	}

	s.render(w, r, s.pageData(next, params.Query, ""))
}

// handleSelect points the placename card at the selected id
func (s *WebServer) handleSelect(w http.ResponseWriter, r *http.Request) {
	id, _ := s.session(w, r)
	placenameID := r.PathValue("id")

	_, next := s.update(w, id, func(st explorer.State) explorer.State {
		return st.SelectPlacename(placenameID)
	})

	s.render(w, r, s.pageData(next, "", ""))
}

func (s *WebServer) render(w http.ResponseWriter, r *http.Request, data types.PageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := components.Explorer(data).Render(r.Context(), w); err != nil {
		http.Error(w, fmt.Sprintf("Template error: %v", err), http.StatusInternalServerError)
	}
}

// handleStatic serves static assets from embedded files
func (s *WebServer) handleStatic(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	// Remove /static/ prefix and add web/static/ prefix for embedded filesystem
	filePath := "web/static/" + strings.TrimPrefix(path, "/static/")

	content, err := staticFS.ReadFile(filePath)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	// Set appropriate content type
	if strings.HasSuffix(path, ".css") {
		w.Header().Set("Content-Type", "text/css")
	} else if strings.HasSuffix(path, ".js") {
		w.Header().Set("Content-Type", "application/javascript")
	}

	// Set cache headers for static assets
	w.Header().Set("Cache-Control", "public, max-age=3600")

	if _, err := w.Write(content); err != nil {
		webLogger.Warnf("Error writing static content: %v", err)
	}
}

// Helper methods

// pageData converts an explorer state into the page view model.
func (s *WebServer) pageData(state explorer.State, query, errMsg string) types.PageData {
	cfg, _ := s.current()

	data := types.PageData{
		Title:       "Dictionnaire topographique - Explorateur",
		Version:     version.APIVersion(),
		Query:       query,
		Error:       errMsg,
		MapEnabled:  state.Settings.MapEnabled,
		CardEnabled: state.Settings.CardEnabled,
		Markers:     state.Markers,
		SelectPath:  selectPath,
		StreamPath:  streamPath,
	}

	if state.CardRenderable() {
		data.Card = types.CardData{URL: state.DetailURL, Visible: state.CardVisible()}
	}

	if state.ResultsRenderable() {
		results := &types.ResultsData{
			Visible: state.ResultsVisible(),
			Count:   state.ResultCount(),
			Rows:    make([]types.ResultRow, 0, state.ResultCount()),
		}
		for _, rec := range state.Result.Data {
			desc := rec.Attributes.Desc
			if !cfg.Explorer.TrustDescriptions {
				desc = sanitize.Description(desc)
			}
			results.Rows = append(results.Rows, types.ResultRow{
				ID:          rec.ID,
				Label:       rec.Attributes.Label,
				Description: desc,
				Permalink:   cfg.Explorer.PermalinkPrefix + rec.ID,
			})
		}
		data.Results = results
	}

	return data
}

// formatSearchError converts search errors into user-friendly messages
func formatSearchError(err error) string {
	if errors.Is(err, search.ErrEmptyQuery) {
		return "Veuillez saisir un toponyme."
	}

	var statusErr *search.StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusBadRequest:
			return "La requête de recherche est invalide. Simplifiez-la et réessayez."
		case statusErr.StatusCode >= 500:
			return "Le service de recherche est indisponible. Réessayez dans un moment."
		default:
			return fmt.Sprintf("La recherche a échoué (HTTP %d).", statusErr.StatusCode)
		}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return "Le service de recherche ne répond pas. Réessayez dans un moment."
	}

	// Fallback for unknown errors
	return "La recherche a échoué suite à une erreur inattendue."
}
