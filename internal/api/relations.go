package api

import (
	"net/http"

	"github.com/nerrad567/gray-logic-records/internal/record"
	"github.com/nerrad567/gray-logic-records/internal/store"
)

// createRelationRequest is the body of POST /relations. For one_to_many,
// Left is the parent.
type createRelationRequest struct {
	Kind  store.RelationKind `json:"kind"`
	Left  string             `json:"left"`
	Right string             `json:"right"`
}

// linkRequest is the body of POST and DELETE /relations/link.
type linkRequest struct {
	Left    string `json:"left"`
	Right   string `json:"right"`
	LeftID  int64  `json:"left_id"`
	RightID int64  `json:"right_id"`
}

func (s *Server) handleListRelations(w http.ResponseWriter, r *http.Request) {
	rels, err := s.store.ListRelations(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"relations": rels})
}

func (s *Server) handleCreateRelation(w http.ResponseWriter, r *http.Request) {
	var req createRelationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var (
		rel store.Relation
		err error
	)
	switch req.Kind {
	case store.OneToMany:
		rel, err = s.store.CreateOneToMany(r.Context(), req.Left, req.Right)
	case store.ManyToMany:
		rel, err = s.store.CreateManyToMany(r.Context(), req.Left, req.Right)
	default:
		writeBadRequest(w, "kind must be one_to_many or many_to_many")
		return
	}
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rel)
}

func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	n, err := s.store.Link(r.Context(), req.Left, req.Right, record.Int(req.LeftID), record.Int(req.RightID))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"rows_affected": n})
}

func (s *Server) handleUnlink(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	n, err := s.store.Unlink(r.Context(), req.Left, req.Right, record.Int(req.LeftID), record.Int(req.RightID))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if n == 0 {
		writeNotFound(w, "link not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
