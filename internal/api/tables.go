package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-records/internal/schema"
)

// createTableRequest is the body of POST /tables.
type createTableRequest struct {
	Name    string         `json:"name"`
	Columns schema.Columns `json:"columns"`
}

// addColumnsRequest is the body of POST /tables/{table}/columns.
type addColumnsRequest struct {
	Columns schema.Columns `json:"columns"`
}

// decodeJSON decodes the request body into v, writing the error response
// itself and returning false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "request body too large")
			return false
		}
		writeBadRequest(w, "invalid JSON body")
		return false
	}
	return true
}

// readBody reads the whole request body, writing the error response itself
// and returning false on failure.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "request body too large")
			return nil, false
		}
		writeBadRequest(w, "failed to read request body")
		return nil, false
	}
	return body, true
}

// handleListTables returns the user tables.
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.store.GetTables(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if tables == nil {
		tables = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
}

// handleCreateTable creates a table from a name and column list.
func (s *Server) handleCreateTable(w http.ResponseWriter, r *http.Request) {
	var req createTableRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.store.CreateTable(r.Context(), req.Name, req.Columns); err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	cols, err := s.store.GetColumnMetadata(r.Context(), req.Name)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"name": req.Name, "columns": cols})
}

// handleDeleteTable drops a table with its relations.
func (s *Server) handleDeleteTable(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTable(r.Context(), chi.URLParam(r, "table")); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetColumns returns the declared columns of a table.
func (s *Server) handleGetColumns(w http.ResponseWriter, r *http.Request) {
	cols, err := s.store.GetColumnMetadata(r.Context(), chi.URLParam(r, "table"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"columns": cols})
}

// handleAddColumns appends columns to a table and returns the new column set.
func (s *Server) handleAddColumns(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	var req addColumnsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.store.AddColumns(r.Context(), table, req.Columns); err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	cols, err := s.store.GetColumnMetadata(r.Context(), table)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"columns": cols})
}

// handleGetSchema returns the JSON Schema describing one record of a table.
func (s *Server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	sch, err := s.store.TableJSONSchema(r.Context(), chi.URLParam(r, "table"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sch)
}
