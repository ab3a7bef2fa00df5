package http

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/rainfall-heatmap-service/internal/adapter/scene"
	"github.com/couchcryptid/rainfall-heatmap-service/internal/domain"
	"github.com/couchcryptid/rainfall-heatmap-service/internal/pipeline"
	"github.com/couchcryptid/rainfall-heatmap-service/internal/session"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed web/index.html
var webFS embed.FS

var pageTmpl = template.Must(template.ParseFS(webFS, "web/index.html"))

// Sessions creates, finds and deletes heatmap sessions.
type Sessions interface {
	Create() *session.Session
	Get(id string) (*session.Session, error)
	Delete(ctx context.Context, id string) error
}

// Scenes returns what a viewport currently shows.
type Scenes interface {
	Snapshot(m domain.MapHandle) (scene.Scene, error)
}

// DatasetDescriber reports the shape of the loaded dataset.
type DatasetDescriber interface {
	Describe(ctx context.Context) (pipeline.DatasetInfo, error)
}

// Deps are the collaborators behind the HTTP routes.
type Deps struct {
	Sessions Sessions
	Scenes   Scenes
	Dataset  DatasetDescriber
	Ready    sharedobs.ReadinessChecker
	Calendar domain.Calendar
}

// Server exposes the heatmap page, its JSON API, and health, readiness and
// metrics endpoints.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the page, /api/v1, /healthz, /readyz
// and /metrics routes.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		deps:   deps,
		logger: logger,
	}

	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("POST /api/v1/sessions", s.handleCreateSession)
	mux.HandleFunc("POST /api/v1/sessions/{id}/heatmap", s.handleGenerate)
	mux.HandleFunc("GET /api/v1/sessions/{id}/scene", s.handleScene)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("GET /api/v1/dataset", s.handleDataset)

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(deps.Ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handlePage(w http.ResponseWriter, _ *http.Request) {
	cal := s.deps.Calendar
	data := struct {
		StartYear  int
		StartMonth int
	}{cal.StartYear, cal.StartMonth}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTmpl.Execute(w, data); err != nil {
		s.logger.Error("render page", "error", err)
	}
}
