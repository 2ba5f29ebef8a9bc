package store

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-records/internal/record"
	"github.com/nerrad567/gray-logic-records/internal/schema"
)

// Entity is a typed row that declares its own table shape.
//
// Implementations list their columns explicitly instead of having them
// derived from struct fields at runtime.
type Entity interface {
	TableName() string
	Columns() schema.Columns
	Record() record.Record
}

// Loader populates an entity from a stored row.
type Loader interface {
	Load(rec record.Record) error
}

// entityPtr constrains PT to a pointer to T implementing Entity and Loader.
type entityPtr[T any] interface {
	*T
	Entity
	Loader
}

// CreateEntityTable creates the table declared by e.
func CreateEntityTable(ctx context.Context, s *Store, e Entity) error {
	return s.CreateTable(ctx, e.TableName(), e.Columns())
}

// InsertEntity stores e and returns the new id.
func InsertEntity(ctx context.Context, s *Store, e Entity) (int64, error) {
	return s.AddRecord(ctx, e.TableName(), e.Record())
}

// UpdateEntity overwrites the row with the given id using e's values.
func UpdateEntity(ctx context.Context, s *Store, id int64, e Entity) (int64, error) {
	return s.UpdateRecord(ctx, e.TableName(), record.Int(id), e.Record())
}

// GetEntity loads the entity with the given id. ok is false when the row
// does not exist.
func GetEntity[T any, PT entityPtr[T]](ctx context.Context, s *Store, id int64) (*T, bool, error) {
	var zero T
	table := PT(&zero).TableName()

	rec, ok, err := s.GetRecordByID(ctx, table, record.Int(id))
	if err != nil || !ok {
		return nil, ok, err
	}

	out := new(T)
	if err := PT(out).Load(rec); err != nil {
		return nil, false, opError("get record", table, fmt.Errorf("loading entity: %w", err))
	}
	return out, true, nil
}

// ListEntities loads every row of the entity's table.
func ListEntities[T any, PT entityPtr[T]](ctx context.Context, s *Store) ([]*T, error) {
	var zero T
	table := PT(&zero).TableName()

	rows, err := s.GetAllRecords(ctx, table)
	if err != nil {
		return nil, err
	}

	out := make([]*T, len(rows))
	for i, rec := range rows {
		e := new(T)
		if err := PT(e).Load(rec); err != nil {
			return nil, opError("get all records", table, fmt.Errorf("loading entity %d: %w", i, err))
		}
		out[i] = e
	}
	return out, nil
}
