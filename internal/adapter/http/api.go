package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/couchcryptid/rainfall-heatmap-service/internal/adapter/scene"
	"github.com/couchcryptid/rainfall-heatmap-service/internal/domain"
	"github.com/couchcryptid/rainfall-heatmap-service/internal/session"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

const (
	kindBadRequest = "bad_request"
	kindNotFound   = "not_found"
)

const maxRequestBytes = 1 << 10

type generateRequest struct {
	Year  *int `json:"year"`
	Month *int `json:"month"`
}

// heatmapSummary is a Heatmap without its points; those travel in the scene.
type heatmapSummary struct {
	Year        int             `json:"year"`
	Month       int             `json:"month"`
	Label       string          `json:"label"`
	Column      string          `json:"column"`
	Points      int             `json:"points"`
	Min         float64         `json:"min"`
	Max         float64         `json:"max"`
	Degenerate  bool            `json:"degenerate"`
	Gradient    domain.Gradient `json:"gradient"`
	GeneratedAt string          `json:"generated_at"`
}

func summarize(h domain.Heatmap) heatmapSummary {
	return heatmapSummary{
		Year:        h.Year,
		Month:       h.Month,
		Label:       h.Label(),
		Column:      h.Column,
		Points:      len(h.Points),
		Min:         h.Min,
		Max:         h.Max,
		Degenerate:  h.Degenerate,
		Gradient:    h.Gradient,
		GeneratedAt: h.GeneratedAt.Format(time.RFC3339),
	}
}

type generateResponse struct {
	Status     string         `json:"status"`
	Session    string         `json:"session"`
	Generation uint64         `json:"generation"`
	Heatmap    heatmapSummary `json:"heatmap"`
	Scene      scene.Scene    `json:"scene"`
	Legend     string         `json:"legend"`
}

type sceneResponse struct {
	Session session.State   `json:"session"`
	Heatmap *heatmapSummary `json:"heatmap,omitempty"`
	Scene   *scene.Scene    `json:"scene"`
	Legend  string          `json:"legend,omitempty"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	sess := s.deps.Sessions.Create()
	sharedobs.WriteJSON(w, http.StatusCreated, map[string]string{"id": sess.ID()})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Sessions.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req generateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeBadRequest(w, "request body must be JSON {\"year\": int, \"month\": int}")
		return
	}
	if req.Year == nil || req.Month == nil {
		s.writeBadRequest(w, "year and month are required")
		return
	}

	res, err := sess.Generate(r.Context(), *req.Year, *req.Month)
	if err != nil {
		s.writeError(w, err)
		return
	}

	snap, err := s.deps.Scenes.Snapshot(res.Map)
	if err != nil {
		s.writeError(w, err)
		return
	}
	legend, err := renderLegend(res.Heatmap)
	if err != nil {
		s.writeError(w, err)
		return
	}

	sharedobs.WriteJSON(w, http.StatusOK, generateResponse{
		Status:     "ok",
		Session:    sess.ID(),
		Generation: res.Generation,
		Heatmap:    summarize(res.Heatmap),
		Scene:      snap,
		Legend:     legend,
	})
}

func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Sessions.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	st := sess.State()
	resp := sceneResponse{Session: st}
	if st.Map != nil {
		snap, err := s.deps.Scenes.Snapshot(*st.Map)
		if err != nil {
			s.writeError(w, err)
			return
		}
		resp.Scene = &snap
	}
	if st.Heatmap != nil {
		summary := summarize(*st.Heatmap)
		resp.Heatmap = &summary
		if resp.Legend, err = renderLegend(*st.Heatmap); err != nil {
			s.writeError(w, err)
			return
		}
	}
	sharedobs.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Sessions.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	info, err := s.deps.Dataset.Describe(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, info)
}

func (s *Server) writeBadRequest(w http.ResponseWriter, msg string) {
	sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Kind: kindBadRequest, Message: msg})
}

// writeError maps err onto a status code and the error envelope.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, kind := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "kind", kind, "error", err)
	}
	sharedobs.WriteJSON(w, status, errorResponse{Status: "error", Kind: kind, Message: err.Error()})
}

func classify(err error) (int, string) {
	if errors.Is(err, session.ErrNotFound) {
		return http.StatusNotFound, kindNotFound
	}
	kind := domain.ErrorKind(err)
	switch kind {
	case domain.KindOutOfRange:
		return http.StatusBadRequest, kind
	case domain.KindNoValidData:
		return http.StatusNotFound, kind
	case domain.KindSuperseded:
		return http.StatusConflict, kind
	case domain.KindFetch, domain.KindParse:
		return http.StatusBadGateway, kind
	default:
		return http.StatusInternalServerError, kind
	}
}
