package api

import (
	"bytes"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-records/internal/record"
	"github.com/nerrad567/gray-logic-records/internal/schema"
	"github.com/nerrad567/gray-logic-records/internal/store"
)

// recordID parses the {id} path parameter, writing a 400 on failure.
func recordID(w http.ResponseWriter, r *http.Request) (record.Value, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeBadRequest(w, "record id must be an integer")
		return record.Value{}, false
	}
	return record.Int(id), true
}

// handleListRecords returns every row of a table, or the rows matching the
// query parameters as column equality filters.
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	query := r.URL.Query()
	query.Del("access_token")
	if len(query) == 0 {
		body, err := s.store.GetAllRecordsJSON(r.Context(), table)
		if err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		writeRawJSON(w, http.StatusOK, body)
		return
	}

	cols, err := s.store.GetColumnMetadata(r.Context(), table)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	rows, err := s.store.FindRecords(r.Context(), table, filterFromQuery(query, cols))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// filterFromQuery builds an equality filter from query parameters, typing
// each value by its column's declared affinity. Values that do not parse,
// and unknown columns, stay text. Parameters are applied in sorted order.
func filterFromQuery(query url.Values, cols schema.Columns) record.Record {
	keys := make([]string, 0, len(query))
	for key := range query {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	filter := record.New()
	for _, key := range keys {
		raw := query.Get(key)
		v := record.Text(raw)
		if col, ok := cols.Find(key); ok {
			switch schema.BaseType(col.Type) {
			case schema.TypeInteger:
				if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
					v = record.Int(i)
				}
			case schema.TypeReal, schema.TypeNumeric:
				if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
					v = record.Int(i)
				} else if f, err := strconv.ParseFloat(raw, 64); err == nil {
					v = record.Real(f)
				}
			}
		}
		filter.Set(key, v)
	}
	return filter
}

// handleAddRecords inserts one record (JSON object) or many (JSON array).
// Arrays use the write path named by ?mode=, defaulting to batch-transaction.
func (s *Server) handleAddRecords(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	body, ok := readBody(w, r)
	if !ok {
		return
	}

	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '[' {
		mode, err := store.ParseInsertMode(r.URL.Query().Get("mode"))
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		n, err := s.store.AddRecordsJSON(r.Context(), table, body, mode)
		if err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"rows_affected": n, "mode": mode})
		return
	}

	id, err := s.store.AddRecordJSON(r.Context(), table, body)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

// handleGetRecord returns one row by id.
func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	body, found, err := s.store.GetRecordByIDJSON(r.Context(), chi.URLParam(r, "table"), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if !found {
		writeNotFound(w, "record not found")
		return
	}
	writeRawJSON(w, http.StatusOK, body)
}

// handleUpdateRecord merges the body's fields into one row.
func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	table := chi.URLParam(r, "table")
	n, err := s.store.UpdateRecordJSON(r.Context(), table, id, body)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if n == 0 {
		writeNotFound(w, "record not found")
		return
	}

	updated, found, err := s.store.GetRecordByIDJSON(r.Context(), table, id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if !found {
		writeNotFound(w, "record not found")
		return
	}
	writeRawJSON(w, http.StatusOK, updated)
}

// handleDeleteRecord removes one row by id.
func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	n, err := s.store.DeleteRecord(r.Context(), chi.URLParam(r, "table"), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if n == 0 {
		writeNotFound(w, "record not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetRelated returns the rows of {other} related to one row.
func (s *Server) handleGetRelated(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	rows, err := s.store.GetRelated(r.Context(), chi.URLParam(r, "table"), id, chi.URLParam(r, "other"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if rows == nil {
		rows = []record.Record{}
	}
	writeJSON(w, http.StatusOK, rows)
}
