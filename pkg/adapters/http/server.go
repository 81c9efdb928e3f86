// Package http exposes a workspace.Service over HTTP with chi.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/grove/internal/logging"
	"github.com/aretw0/grove/pkg/domain"
	"github.com/aretw0/grove/pkg/workspace"
	"github.com/go-chi/chi/v5"
)

type providerKey struct{}

// Server serves the routes of one workspace.Service.
type Server struct {
	Workspaces *workspace.Service
	metrics    http.Handler
	version    string
	logger     *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics mounts h on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithVersion sets the version reported by GET /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler for svc.
func NewHandler(svc *workspace.Service, opts ...Option) http.Handler {
	s := &Server{
		Workspaces: svc,
		version:    "dev",
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.Get("/providers", s.ListProviders)

	r.Route("/providers/{provider}", func(r chi.Router) {
		r.Use(s.providerCtx)
		r.Get("/events", s.SubscribeEvents)

		r.Get("/workspaces/{workspace}", s.GetWorkspace)
		r.Get("/workspaces/{workspace}/collections", s.GetRootCollections)
		r.Post("/workspaces/{workspace}/collections", s.CreateCollection)

		r.Get("/collections/{handle}/children", s.GetCollectionChildren)
		r.Delete("/collections/{handle}", s.DeleteCollection)
		r.Patch("/collections/{handle}", s.RenameCollection)
		r.Post("/collections/{handle}/requests", s.CreateRequest)
		r.Post("/collections/{handle}/move", s.MoveCollection)
		r.Post("/collections/{handle}/reorder", s.ReorderCollection)
		r.Post("/collections/{handle}/duplicate", s.DuplicateCollection)

		r.Get("/requests/{handle}", s.GetRequest)
		r.Put("/requests/{handle}", s.UpdateRequest)
		r.Delete("/requests/{handle}", s.DeleteRequest)
		r.Post("/requests/{handle}/move", s.MoveRequest)
		r.Post("/requests/{handle}/reorder", s.ReorderRequest)
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// providerCtx answers 404 for unregistered providers before the service
// would panic on them.
func (s *Server) providerCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := domain.ProviderID(chi.URLParam(r, "provider"))
		if _, ok := s.Workspaces.Lookup(id); !ok {
			s.fail(w, fmt.Errorf("%w: %q", domain.ErrProviderNotFound, id))
			return
		}
		ctx := context.WithValue(r.Context(), providerKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func providerOf(r *http.Request) domain.ProviderID {
	return r.Context().Value(providerKey{}).(domain.ProviderID)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrProviderNotFound),
		errors.Is(err, domain.ErrHandleUnresolvable),
		errors.Is(err, domain.ErrInvalidWorkspace):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidDispatch),
		errors.Is(err, domain.ErrInvalidPath):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrStaleTarget):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnsupportedOperation):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	} else {
		s.logger.Debug("request rejected", "status", status, "err", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.logger.Warn("invalid request body", "path", r.URL.Path, "err", err)
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "grove-http",
		"version": s.version,
	})
}

// ListProviders handles GET /providers.
func (s *Server) ListProviders(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Workspaces.Providers())
}

// GetWorkspace handles GET /providers/{provider}/workspaces/{workspace}.
func (s *Server) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	handle := domain.WorkspaceHandle(chi.URLParam(r, "workspace"))
	s.writeJSON(w, http.StatusOK, s.Workspaces.GetWorkspace(providerOf(r), handle))
}

// GetRootCollections handles GET /providers/{provider}/workspaces/{workspace}/collections.
func (s *Server) GetRootCollections(w http.ResponseWriter, r *http.Request) {
	handle := domain.WorkspaceHandle(chi.URLParam(r, "workspace"))
	s.writeJSON(w, http.StatusOK, s.Workspaces.GetRootCollections(providerOf(r), handle))
}

// GetCollectionChildren handles GET /providers/{provider}/collections/{handle}/children.
func (s *Server) GetCollectionChildren(w http.ResponseWriter, r *http.Request) {
	handle := domain.CollectionHandle(chi.URLParam(r, "handle"))
	s.writeJSON(w, http.StatusOK, s.Workspaces.GetCollectionChildren(providerOf(r), handle))
}

// GetRequest handles GET /providers/{provider}/requests/{handle}.
func (s *Server) GetRequest(w http.ResponseWriter, r *http.Request) {
	handle := domain.RequestHandle(chi.URLParam(r, "handle"))
	s.writeJSON(w, http.StatusOK, s.Workspaces.GetRequest(providerOf(r), handle))
}

// CreateCollectionBody is the body of a collection creation. An empty
// parent creates a root collection.
type CreateCollectionBody struct {
	Parent domain.CollectionHandle `json:"parent,omitempty"`
	domain.CreateCollectionInput
}

// CreatedBody reports the handle of a created node.
type CreatedBody struct {
	Handle string `json:"handle"`
}

// CreateCollection handles POST /providers/{provider}/workspaces/{workspace}/collections.
func (s *Server) CreateCollection(w http.ResponseWriter, r *http.Request) {
	var body CreateCollectionBody
	if !s.decode(w, r, &body) {
		return
	}
	ws := domain.WorkspaceHandle(chi.URLParam(r, "workspace"))
	h, err := s.Workspaces.CreateCollection(r.Context(), providerOf(r), ws, body.Parent, body.CreateCollectionInput)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, CreatedBody{Handle: string(h)})
}

// CreateRequest handles POST /providers/{provider}/collections/{handle}/requests.
// The request goes to the current workspace of the provider.
func (s *Server) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var req domain.Request
	if !s.decode(w, r, &req) {
		return
	}
	provider := providerOf(r)
	parent := domain.CollectionHandle(chi.URLParam(r, "handle"))
	h, err := s.Workspaces.CreateRequest(r.Context(), provider, s.workspaceOf(r, provider), parent, req)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, CreatedBody{Handle: string(h)})
}

// workspaceOf picks the workspace for routes that do not name one: the
// ?workspace query parameter, then the service's current selection, then
// the provider id itself.
func (s *Server) workspaceOf(r *http.Request, provider domain.ProviderID) domain.WorkspaceHandle {
	if ws := r.URL.Query().Get("workspace"); ws != "" {
		return domain.WorkspaceHandle(ws)
	}
	if sel, ok := s.Workspaces.CurrentWorkspace(); ok && sel.Provider == provider {
		return sel.Workspace
	}
	return domain.WorkspaceHandle(provider)
}

// DeleteCollection handles DELETE /providers/{provider}/collections/{handle}.
func (s *Server) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	handle := domain.CollectionHandle(chi.URLParam(r, "handle"))
	if err := s.Workspaces.DeleteCollection(r.Context(), providerOf(r), handle); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteRequest handles DELETE /providers/{provider}/requests/{handle}.
func (s *Server) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	handle := domain.RequestHandle(chi.URLParam(r, "handle"))
	if err := s.Workspaces.DeleteRequest(r.Context(), providerOf(r), handle); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubscribeEvents handles GET /providers/{provider}/events (SSE). One
// "changed" event is sent per reactive signal of the provider.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: streaming not supported")
		return
	}

	provider := providerOf(r)
	events := s.Workspaces.Watch(r.Context(), provider)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Info("SSE client connected", "provider", provider)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE client disconnected", "provider", provider)
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: changed\n\n")
			flusher.Flush()
		}
	}
}
