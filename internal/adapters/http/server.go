// Package http exposes the engine over a JSON REST API plus a Server-Sent
// Events stream of live graph and execution updates.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	weft "github.com/loomworks/weft"
	"github.com/loomworks/weft/internal/logging"
	"github.com/loomworks/weft/pkg/domain"
	"github.com/loomworks/weft/pkg/graph"
)

// Server serves the editor API over HTTP.
type Server struct {
	engine  *weft.Engine
	streams *StreamManager
	logger  *slog.Logger
	metrics bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStreams injects a shared stream manager; wire its Hooks() into the
// engine so SSE clients see live updates.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		if sm != nil {
			s.streams = sm
		}
	}
}

// WithMetrics exposes the Prometheus registry at /metrics.
func WithMetrics() Option {
	return func(s *Server) {
		s.metrics = true
	}
}

// NewServer creates a Server around an engine.
func NewServer(engine *weft.Engine, opts ...Option) *Server {
	s := &Server{
		engine:  engine,
		streams: NewStreamManager(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the chi router for the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.getHealth)
	r.Get("/info", s.getInfo)
	if s.metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Get("/graph", s.getGraph)
	r.Get("/events", s.subscribeEvents)

	r.Route("/nodes", func(r chi.Router) {
		r.Post("/", s.addNode)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getNode)
			r.Patch("/", s.updateNode)
			r.Delete("/", s.deleteNode)
			r.Post("/run", s.runNode)
			r.Post("/reset", s.resetNode)
			r.Put("/status", s.overrideStatus)
		})
	})
	r.Delete("/edges/{id}", s.deleteEdge)

	r.Route("/wiring", func(r chi.Router) {
		r.Get("/", s.getWiring)
		r.Post("/output", s.clickOutput)
		r.Post("/input", s.clickInput)
		r.Post("/cancel", s.cancelWiring)
	})

	r.Post("/run", s.runAll)
	r.Post("/reset", s.resetAll)

	r.Route("/templates", func(r chi.Router) {
		r.Get("/", s.listTemplates)
		r.Post("/{name}/instantiate", s.instantiateTemplate)
	})

	r.Route("/snapshots", func(r chi.Router) {
		r.Get("/", s.listSnapshots)
		r.Route("/{name}", func(r chi.Router) {
			r.Post("/", s.saveSnapshot)
			r.Post("/restore", s.restoreSnapshot)
			r.Delete("/", s.deleteSnapshot)
		})
	})

	r.Get("/timeline", s.getTimeline)
	r.Get("/console", s.getConsole)

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- Handlers ---

func (s *Server) getHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getInfo(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "weft-http",
		"version": weft.Version,
	})
}

func (s *Server) getGraph(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Graph())
}

func (s *Server) addNode(w http.ResponseWriter, r *http.Request) {
	var node domain.Node
	if err := json.NewDecoder(r.Body).Decode(&node); err != nil {
		s.writeError(w, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return
	}

	created, err := s.engine.AddNode(node)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getNode(w http.ResponseWriter, r *http.Request) {
	node, err := s.engine.Node(chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, node)
}

type nodePatchRequest struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Config      map[string]any `json:"config,omitempty"`
}

func (s *Server) updateNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body nodePatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return
	}

	patch := graph.NodePatch{Title: body.Title, Description: body.Description}
	if body.Config != nil {
		node, err := s.engine.Node(id)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		cfg, err := domain.DecodeConfig(node.Type, body.Config)
		if err != nil {
			s.writeError(w, err, http.StatusBadRequest)
			return
		}
		patch.Config = cfg
	}

	updated, err := s.engine.UpdateNode(id, patch)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteNode(w http.ResponseWriter, r *http.Request) {
	s.engine.DeleteNode(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteEdge(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteEdge(chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type wiringRequest struct {
	NodeID string `json:"node_id"`
}

func (s *Server) getWiring(w http.ResponseWriter, _ *http.Request) {
	from, pending := s.engine.PendingWiring()
	s.writeJSON(w, http.StatusOK, map[string]any{"pending": pending, "from": from})
}

func (s *Server) clickOutput(w http.ResponseWriter, r *http.Request) {
	var body wiringRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return
	}
	if err := s.engine.ClickOutput(body.NodeID); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"pending": true, "from": body.NodeID})
}

func (s *Server) clickInput(w http.ResponseWriter, r *http.Request) {
	var body wiringRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return
	}
	edge, err := s.engine.ClickInput(body.NodeID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if edge.ID == "" {
		// Input click without a pending source is not a gesture.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.writeJSON(w, http.StatusCreated, edge)
}

func (s *Server) cancelWiring(w http.ResponseWriter, _ *http.Request) {
	s.engine.CancelWiring()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) runNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.engine.RunNode(r.Context(), id); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"node_id": id,
		"status":  s.engine.Status(id),
	})
}

func (s *Server) runAll(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.RunAll(r.Context()); err != nil {
		s.writeError(w, err, http.StatusUnprocessableEntity)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) resetNode(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ResetNode(chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) resetAll(w http.ResponseWriter, _ *http.Request) {
	s.engine.ResetAll()
	w.WriteHeader(http.StatusNoContent)
}

type statusRequest struct {
	Status domain.ExecutionStatus `json:"status"`
}

func (s *Server) overrideStatus(w http.ResponseWriter, r *http.Request) {
	var body statusRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return
	}
	if !body.Status.Valid() {
		s.writeError(w, fmt.Errorf("unknown status %q", body.Status), http.StatusBadRequest)
		return
	}
	if err := s.engine.OverrideStatus(chi.URLParam(r, "id"), body.Status); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
	defs, err := s.engine.Templates(r.Context())
	if err != nil {
		s.writeError(w, err, http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, defs)
}

func (s *Server) instantiateTemplate(w http.ResponseWriter, r *http.Request) {
	idMap, err := s.engine.LoadTemplate(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"id_map": idMap})
}

func (s *Server) listSnapshots(w http.ResponseWriter, r *http.Request) {
	names, err := s.engine.Snapshots(r.Context())
	if err != nil {
		s.writeError(w, err, http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, names)
}

func (s *Server) saveSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.SaveSnapshot(r.Context(), chi.URLParam(r, "name")); err != nil {
		s.writeError(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) restoreSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.LoadSnapshot(r.Context(), chi.URLParam(r, "name")); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteSnapshot(r.Context(), chi.URLParam(r, "name")); err != nil {
		s.writeError(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getTimeline(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Trail().Timeline())
}

func (s *Server) getConsole(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Trail().Console())
}

// subscribeEvents streams engine events as SSE.
func (s *Server) subscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, errors.New("streaming not supported"), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.streams.Subscribe()
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("sse client disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// --- Response helpers ---

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error, status int) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeDomainError maps domain errors onto HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	var terr *domain.InvalidTransitionError

	switch {
	case errors.Is(err, domain.ErrNodeNotFound),
		errors.Is(err, domain.ErrEdgeNotFound),
		errors.Is(err, domain.ErrSnapshotNotFound),
		errors.Is(err, domain.ErrTemplateNotFound):
		s.writeError(w, err, http.StatusNotFound)
	case errors.Is(err, domain.ErrDuplicateEdge),
		errors.Is(err, domain.ErrAlreadyRunning):
		s.writeError(w, err, http.StatusConflict)
	case errors.Is(err, domain.ErrSelfLoop),
		errors.Is(err, domain.ErrDanglingEndpoint),
		errors.Is(err, domain.ErrNotImplemented):
		s.writeError(w, err, http.StatusUnprocessableEntity)
	case errors.As(err, &verr), errors.As(err, &terr):
		s.writeError(w, err, http.StatusUnprocessableEntity)
	default:
		s.logger.Error("request failed", "err", err)
		s.writeError(w, err, http.StatusInternalServerError)
	}
}
