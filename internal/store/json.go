package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/gray-logic-records/internal/record"
)

// InsertMode selects the write path used for multi-record JSON payloads.
type InsertMode string

// Insert modes.
const (
	// ModeSingle inserts each record with its own statement and no
	// transaction; records before a failure stay stored.
	ModeSingle InsertMode = "single"

	// ModeTransaction inserts one statement per record in one transaction.
	ModeTransaction InsertMode = "transaction"

	// ModeBatch uses multi-row INSERT statements without a transaction.
	ModeBatch InsertMode = "batch"

	// ModeBatchTransaction uses multi-row INSERT statements in one transaction.
	ModeBatchTransaction InsertMode = "batch-transaction"
)

// ParseInsertMode parses s, defaulting to ModeBatchTransaction when empty.
func ParseInsertMode(s string) (InsertMode, error) {
	switch m := InsertMode(s); m {
	case "":
		return ModeBatchTransaction, nil
	case ModeSingle, ModeTransaction, ModeBatch, ModeBatchTransaction:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown insert mode %q", ErrInvalidJSON, s)
	}
}

// DecodeRecord parses a JSON object into a record, keeping key order.
func DecodeRecord(data []byte) (record.Record, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return record.Record{}, fmt.Errorf("%w: expected a JSON object", ErrInvalidJSON)
	}
	var rec record.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return record.Record{}, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}
	return rec, nil
}

// DecodeRecords parses a JSON array of objects into records.
func DecodeRecords(data []byte) ([]record.Record, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrInvalidJSON)
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}
	recs := make([]record.Record, len(raw))
	for i, item := range raw {
		rec, err := DecodeRecord(item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		recs[i] = rec
	}
	return recs, nil
}

// AddRecordJSON inserts the JSON object data and returns the new id.
func (s *Store) AddRecordJSON(ctx context.Context, table string, data []byte) (int64, error) {
	rec, err := DecodeRecord(data)
	if err != nil {
		return 0, opError("add record", table, err)
	}
	return s.AddRecord(ctx, table, rec)
}

// AddRecordsJSON inserts every object of the JSON array data using mode and
// returns the number of rows written.
func (s *Store) AddRecordsJSON(ctx context.Context, table string, data []byte, mode InsertMode) (int64, error) {
	recs, err := DecodeRecords(data)
	if err != nil {
		return 0, opError("add records", table, err)
	}

	switch mode {
	case ModeSingle:
		var n int64
		for _, rec := range recs {
			if _, err := s.AddRecord(ctx, table, rec); err != nil {
				return n, err
			}
			n++
		}
		return n, nil
	case ModeTransaction:
		return s.AddRecordsInTransaction(ctx, table, recs)
	case ModeBatch:
		return s.AddRecordsBatch(ctx, table, recs)
	case ModeBatchTransaction, "":
		return s.AddRecordsBatchInTransaction(ctx, table, recs)
	default:
		return 0, opError("add records", table, fmt.Errorf("%w: unknown insert mode %q", ErrInvalidJSON, mode))
	}
}

// UpdateRecordJSON applies the JSON object data to the row with the given id.
func (s *Store) UpdateRecordJSON(ctx context.Context, table string, id record.Value, data []byte) (int64, error) {
	values, err := DecodeRecord(data)
	if err != nil {
		return 0, opError("update record", table, err)
	}
	return s.UpdateRecord(ctx, table, id, values)
}

// GetAllRecordsJSON returns every row of table as a JSON array.
func (s *Store) GetAllRecordsJSON(ctx context.Context, table string) ([]byte, error) {
	rows, err := s.GetAllRecords(ctx, table)
	if err != nil {
		return nil, err
	}
	out, err := json.Marshal(rows)
	if err != nil {
		return nil, opError("get all records", table, fmt.Errorf("encoding rows: %w", err))
	}
	return out, nil
}

// GetRecordByIDJSON returns the row with the given id as a JSON object.
// ok is false when the row does not exist.
func (s *Store) GetRecordByIDJSON(ctx context.Context, table string, id record.Value) (data []byte, ok bool, err error) {
	rec, ok, err := s.GetRecordByID(ctx, table, id)
	if err != nil || !ok {
		return nil, ok, err
	}
	out, err := json.Marshal(rec)
	if err != nil {
		return nil, false, opError("get record", table, fmt.Errorf("encoding row: %w", err))
	}
	return out, true, nil
}
