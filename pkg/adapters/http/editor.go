package http

import (
	"net/http"

	"github.com/aretw0/grove/pkg/domain"
	"github.com/aretw0/grove/pkg/ports"
	"github.com/go-chi/chi/v5"
)

// RenameBody renames a collection.
type RenameBody struct {
	Name string `json:"name"`
}

// MoveBody names the destination collection; empty means the root.
type MoveBody struct {
	Dest domain.CollectionHandle `json:"dest"`
}

// ReorderBody names the target position; negative means the end.
type ReorderBody struct {
	Index int `json:"index"`
}

// edit resolves the provider's editor and runs fn with it, answering 204
// on success.
func (s *Server) edit(w http.ResponseWriter, r *http.Request, fn func(ports.WorkspaceEditor) error) {
	ed, err := s.Workspaces.Editor(providerOf(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	if err := fn(ed); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RenameCollection handles PATCH /providers/{provider}/collections/{handle}.
func (s *Server) RenameCollection(w http.ResponseWriter, r *http.Request) {
	var body RenameBody
	if !s.decode(w, r, &body) {
		return
	}
	handle := domain.CollectionHandle(chi.URLParam(r, "handle"))
	s.edit(w, r, func(ed ports.WorkspaceEditor) error {
		return ed.RenameCollection(r.Context(), handle, body.Name)
	})
}

// MoveCollection handles POST /providers/{provider}/collections/{handle}/move.
func (s *Server) MoveCollection(w http.ResponseWriter, r *http.Request) {
	var body MoveBody
	if !s.decode(w, r, &body) {
		return
	}
	handle := domain.CollectionHandle(chi.URLParam(r, "handle"))
	s.edit(w, r, func(ed ports.WorkspaceEditor) error {
		return ed.MoveCollection(r.Context(), handle, body.Dest)
	})
}

// ReorderCollection handles POST /providers/{provider}/collections/{handle}/reorder.
func (s *Server) ReorderCollection(w http.ResponseWriter, r *http.Request) {
	var body ReorderBody
	if !s.decode(w, r, &body) {
		return
	}
	handle := domain.CollectionHandle(chi.URLParam(r, "handle"))
	s.edit(w, r, func(ed ports.WorkspaceEditor) error {
		return ed.ReorderCollection(r.Context(), handle, body.Index)
	})
}

// DuplicateCollection handles POST /providers/{provider}/collections/{handle}/duplicate.
func (s *Server) DuplicateCollection(w http.ResponseWriter, r *http.Request) {
	ed, err := s.Workspaces.Editor(providerOf(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	h, err := ed.DuplicateCollection(r.Context(), domain.CollectionHandle(chi.URLParam(r, "handle")))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, CreatedBody{Handle: string(h)})
}

// UpdateRequest handles PUT /providers/{provider}/requests/{handle}.
func (s *Server) UpdateRequest(w http.ResponseWriter, r *http.Request) {
	var req domain.Request
	if !s.decode(w, r, &req) {
		return
	}
	handle := domain.RequestHandle(chi.URLParam(r, "handle"))
	s.edit(w, r, func(ed ports.WorkspaceEditor) error {
		return ed.UpdateRequest(r.Context(), handle, req)
	})
}

// MoveRequest handles POST /providers/{provider}/requests/{handle}/move.
func (s *Server) MoveRequest(w http.ResponseWriter, r *http.Request) {
	var body MoveBody
	if !s.decode(w, r, &body) {
		return
	}
	handle := domain.RequestHandle(chi.URLParam(r, "handle"))
	s.edit(w, r, func(ed ports.WorkspaceEditor) error {
		return ed.MoveRequest(r.Context(), handle, body.Dest)
	})
}

// ReorderRequest handles POST /providers/{provider}/requests/{handle}/reorder.
func (s *Server) ReorderRequest(w http.ResponseWriter, r *http.Request) {
	var body ReorderBody
	if !s.decode(w, r, &body) {
		return
	}
	handle := domain.RequestHandle(chi.URLParam(r, "handle"))
	s.edit(w, r, func(ed ports.WorkspaceEditor) error {
		return ed.ReorderRequest(r.Context(), handle, body.Index)
	})
}
